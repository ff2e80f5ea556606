package relay

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"wxrelay/internal/auth"
	"wxrelay/internal/config"
	"wxrelay/internal/logger"
	"wxrelay/internal/params"
	"wxrelay/internal/wechat"
	"wxrelay/pkg/errors"
)

// Service runs one relay request end to end: required-field validation,
// caller authentication, override merging, provider token exchange and the
// recipient fan-out. Every rejection happens before the first network call.
type Service struct {
	cfg           config.WechatConfig
	authenticator *auth.Authenticator
	client        *wechat.Client
	dispatcher    *Dispatcher
	log           logger.Logger
}

func NewService(cfg config.WechatConfig, authenticator *auth.Authenticator, client *wechat.Client, dispatcher *Dispatcher, log logger.Logger) *Service {
	return &Service{
		cfg:           cfg,
		authenticator: authenticator,
		client:        client,
		dispatcher:    dispatcher,
		log:           log,
	}
}

// Relay validates, authenticates and dispatches one request. It returns the
// number of recipients the provider accepted.
func (s *Service) Relay(ctx context.Context, bag params.Bag, header http.Header) (int, error) {
	token := auth.ResolveToken(bag, header)

	if err := validateRequired(bag, token); err != nil {
		return 0, err
	}

	if err := s.authenticator.Authenticate(token); err != nil {
		return 0, err
	}

	req, err := s.buildRequest(bag)
	if err != nil {
		return 0, err
	}

	accessToken, err := s.client.GetAccessToken(ctx, req.AppID, req.AppSecret)
	if err != nil {
		return 0, err
	}

	result, err := s.dispatcher.Dispatch(ctx, req.Recipients, func(ctx context.Context, recipient string) (*wechat.SendResult, error) {
		return s.client.SendTemplateMessage(ctx, accessToken, wechat.TemplateMessage{
			Recipient:   recipient,
			TemplateID:  req.TemplateID,
			RedirectURL: req.RedirectURL,
			Titles:      req.Titles,
			Content:     req.Content,
			Contents:    req.Contents,
		})
	})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrUpstream.WithMessage(fmt.Sprintf("An error occurred: %v", err)))
	}

	if result.Succeeded == 0 {
		return 0, errors.ErrUpstream.WithMessage(
			fmt.Sprintf("Failed to send messages. First error: %s", result.FirstError()))
	}

	s.log.InfowCtx(ctx, "Messages dispatched",
		"recipients", len(req.Recipients),
		"succeeded", result.Succeeded,
	)

	return result.Succeeded, nil
}

// validateRequired rejects requests missing a content field, the primary
// title or the caller token, naming every missing parameter.
func validateRequired(bag params.Bag, token string) error {
	var missing []string

	if !hasContent(bag) {
		missing = append(missing, "content")
	}
	if bag.Get("title1") == "" {
		missing = append(missing, "title1")
	}
	if token == "" {
		missing = append(missing, "token")
	}

	if len(missing) > 0 {
		return errors.ErrValidation.WithMessage(
			"Missing required parameters: " + strings.Join(missing, ", "))
	}

	return nil
}

// buildRequest merges per-request overrides over the configured fallbacks
// and verifies the merged provider settings are complete.
func (s *Service) buildRequest(bag params.Bag) (*SendRequest, error) {
	appID := firstNonEmpty(bag.Get("appid"), s.cfg.AppID)
	appSecret := firstNonEmpty(bag.Get("secret"), s.cfg.AppSecret)
	userID := firstNonEmpty(bag.Get("userid"), s.cfg.UserID)
	templateID := firstNonEmpty(bag.Get("template_id"), s.cfg.TemplateID)
	redirectURL := firstNonEmpty(bag.Get("base_url"), s.cfg.RedirectURL)

	recipients := SplitRecipients(userID)

	var missing []string
	if appID == "" {
		missing = append(missing, "appid")
	}
	if appSecret == "" {
		missing = append(missing, "secret")
	}
	if len(recipients) == 0 {
		missing = append(missing, "userid")
	}
	if templateID == "" {
		missing = append(missing, "template_id")
	}

	if len(missing) > 0 {
		return nil, errors.ErrConfig.WithMessage(
			"Missing required provider configuration: " + strings.Join(missing, ", "))
	}

	return &SendRequest{
		Recipients:  recipients,
		AppID:       appID,
		AppSecret:   appSecret,
		TemplateID:  templateID,
		RedirectURL: redirectURL,
		Titles:      collectTitles(bag),
		Content:     bag.Get("content"),
		Contents:    collectContents(bag),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package wechat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"wxrelay/internal/constants"
	"wxrelay/internal/logger"
	"wxrelay/pkg/circuitbreaker"
	"wxrelay/pkg/errors"
	"wxrelay/pkg/metrics"
)

// Client wraps the two provider calls: the stable_token credential exchange
// and the template message send. Responses are decoded just far enough to
// read errcode/errmsg; everything else in the provider payload is ignored.
type Client struct {
	baseURL string
	client  *http.Client
	log     logger.Logger
	breaker *circuitbreaker.Wrapper
}

type Option func(*Client)

// WithBreaker guards every provider call with a circuit breaker.
func WithBreaker(w *circuitbreaker.Wrapper) Option {
	return func(c *Client) {
		c.breaker = w
	}
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	c := &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	AppID        string `json:"appid"`
	Secret       string `json:"secret"`
	ForceRefresh bool   `json:"force_refresh"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
}

// GetAccessToken performs the client-credential grant. An empty access_token
// in the provider response is a hard failure: no sends may be attempted
// without one.
func (c *Client) GetAccessToken(ctx context.Context, appID, secret string) (string, error) {
	payload := tokenRequest{
		GrantType:    "client_credential",
		AppID:        appID,
		Secret:       secret,
		ForceRefresh: false,
	}

	var resp tokenResponse
	if err := c.postJSON(ctx, constants.StableTokenPath, payload, &resp); err != nil {
		metrics.TokenExchangesTotal.WithLabelValues("error").Inc()
		return "", errors.Wrap(err, errors.ErrUpstream.WithMessage("failed to get access token"))
	}

	if resp.AccessToken == "" {
		metrics.TokenExchangesTotal.WithLabelValues("denied").Inc()
		c.log.ErrorwCtx(ctx, "Provider returned no access token",
			"errcode", resp.ErrCode,
			"errmsg", resp.ErrMsg,
		)
		return "", errors.ErrUpstream.WithMessage("failed to get access token").
			WithDetail("errcode", resp.ErrCode).
			WithDetail("errmsg", resp.ErrMsg)
	}

	metrics.TokenExchangesTotal.WithLabelValues("ok").Inc()
	return resp.AccessToken, nil
}

// TemplateMessage carries one templated send to one recipient. Titles holds
// title1..title5 in order; Contents holds content1..content10. Content, when
// set, maps to the single content data field.
type TemplateMessage struct {
	Recipient   string
	TemplateID  string
	RedirectURL string
	Titles      []string
	Content     string
	Contents    []string
}

// SendResult is the provider's verdict for one recipient. Success means the
// provider answered errmsg "ok"; anything else is a per-recipient failure,
// not a transport error.
type SendResult struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
	MsgID   int64  `json:"msgid"`
}

func (r *SendResult) OK() bool {
	return r.ErrMsg == constants.ProviderSuccessMsg
}

type templateValue struct {
	Value string `json:"value"`
}

type templateSendRequest struct {
	ToUser     string                   `json:"touser"`
	TemplateID string                   `json:"template_id"`
	URL        string                   `json:"url,omitempty"`
	Data       map[string]templateValue `json:"data"`
}

// SendTemplateMessage posts one templated message. Transport and decode
// errors are returned as errors; a provider-level rejection comes back as a
// non-OK SendResult with a nil error.
func (c *Client) SendTemplateMessage(ctx context.Context, accessToken string, msg TemplateMessage) (*SendResult, error) {
	path := fmt.Sprintf("%s?access_token=%s", constants.TemplateSendPath, url.QueryEscape(accessToken))

	payload := templateSendRequest{
		ToUser:     msg.Recipient,
		TemplateID: msg.TemplateID,
		URL:        buildRedirectURL(msg),
		Data:       buildDataFields(msg),
	}

	var resp SendResult
	if err := c.postJSON(ctx, path, payload, &resp); err != nil {
		metrics.RecipientSendsTotal.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, errors.ErrUpstream.WithMessage("template message send failed"))
	}

	if resp.OK() {
		metrics.RecipientSendsTotal.WithLabelValues("ok").Inc()
	} else {
		metrics.RecipientSendsTotal.WithLabelValues("rejected").Inc()
	}

	return &resp, nil
}

func buildDataFields(msg TemplateMessage) map[string]templateValue {
	data := make(map[string]templateValue)

	for i, title := range msg.Titles {
		if i >= constants.MaxTitleFields {
			break
		}
		data["title"+strconv.Itoa(i+1)] = templateValue{Value: title}
	}

	if msg.Content != "" {
		data["content"] = templateValue{Value: msg.Content}
	}

	for i, content := range msg.Contents {
		if i >= constants.MaxContentFields {
			break
		}
		data["content"+strconv.Itoa(i+1)] = templateValue{Value: content}
	}

	return data
}

// buildRedirectURL appends message/date/title1 metadata to the deep link so
// the landing page can render the notification without another lookup.
func buildRedirectURL(msg TemplateMessage) string {
	if msg.RedirectURL == "" {
		return ""
	}

	message := msg.Content
	if message == "" && len(msg.Contents) > 0 {
		message = msg.Contents[0]
	}

	var title1 string
	if len(msg.Titles) > 0 {
		title1 = msg.Titles[0]
	}

	return fmt.Sprintf("%s?message=%s&date=%s&title1=%s",
		msg.RedirectURL,
		url.QueryEscape(message),
		url.QueryEscape(civilTimestamp(time.Now())),
		url.QueryEscape(title1),
	)
}

// civilTimestamp renders Beijing civil time, matching the provider's
// regional convention.
func civilTimestamp(now time.Time) string {
	zone := time.FixedZone("UTC+8", constants.TimestampZoneOffset)
	return now.In(zone).Format(constants.TimestampFormat)
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	if c.breaker != nil {
		_, err := c.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
			return nil, c.doPostJSON(ctx, path, payload, out)
		})
		c.breaker.RecordRequest(err == nil)
		return err
	}
	return c.doPostJSON(ctx, path, payload, out)
}

func (c *Client) doPostJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

package relay

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"wxrelay/internal/logger"
	"wxrelay/internal/wechat"
	"wxrelay/pkg/metrics"
)

// SendFunc delivers one message to one recipient.
type SendFunc func(ctx context.Context, recipient string) (*wechat.SendResult, error)

// Dispatcher fans one logical send out over all recipients concurrently and
// reduces the outcomes. Transport errors abort the aggregate and surface to
// the caller; provider-level rejections are recorded per recipient and never
// cancel sibling sends.
type Dispatcher struct {
	log logger.Logger
}

func NewDispatcher(log logger.Logger) *Dispatcher {
	return &Dispatcher{log: log}
}

func (d *Dispatcher) Dispatch(ctx context.Context, recipients []string, send SendFunc) (AggregateResult, error) {
	start := time.Now()

	outcomes := make([]DispatchOutcome, len(recipients))

	var g errgroup.Group
	for i, recipient := range recipients {
		g.Go(func() error {
			result, err := send(ctx, recipient)
			if err != nil {
				outcomes[i] = DispatchOutcome{Recipient: recipient, ErrorMsg: err.Error()}
				return err
			}

			outcomes[i] = DispatchOutcome{
				Recipient: recipient,
				Success:   result.OK(),
				ErrorMsg:  result.ErrMsg,
			}
			return nil
		})
	}

	err := g.Wait()

	result := AggregateResult{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Success {
			result.Succeeded++
		} else if o.Recipient != "" {
			d.log.WarnwCtx(ctx, "Recipient send failed",
				"recipient", o.Recipient,
				"errmsg", o.ErrorMsg,
			)
		}
	}

	status := "ok"
	if err != nil || result.Succeeded == 0 {
		status = "failed"
	}
	metrics.DispatchDuration.WithLabelValues(status).Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		return result, err
	}

	return result, nil
}

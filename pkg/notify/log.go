package notify

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"
)

// Log writes alerts to the service log.
type Log struct{}

// Notify implements the notifier contract by logging the alert.
func (Log) Notify(ctx context.Context, subject, body string) error {
	logx.WithContext(ctx).Infow("notification",
		logx.Field("subject", subject),
		logx.Field("body", body))
	return nil
}

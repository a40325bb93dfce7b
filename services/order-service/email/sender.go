package email

import (
	"context"
	"time"
)

type SendResult struct {
	MessageID string
	SentAt    time.Time
}

type Sender interface {
	SendEmail(ctx context.Context, to, subject, body string) (SendResult, error)
}

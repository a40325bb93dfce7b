// Package email sends order-confirmation mail. Jobs are queued on SQS by
// the order materializer and drained by an in-process worker, so a slow
// or failing mail server never holds up webhook processing.
package email

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	awspkg "github.com/agrigrocer/marketplace-backend/pkg/aws"
)

// Job is one queued order-confirmation email.
type Job struct {
	To          string  `json:"to"`
	Name        string  `json:"name"`
	OrderRef    string  `json:"orderRef"`
	TotalAmount float64 `json:"totalAmount"`
	TrackingURL string  `json:"trackingUrl"`
}

// Dispatcher enqueues email jobs for asynchronous delivery.
type Dispatcher interface {
	Enqueue(ctx context.Context, job Job) error
}

// SQSDispatcher queues jobs on SQS.
type SQSDispatcher struct {
	queue *awspkg.SQSQueue
}

func NewSQSDispatcher(queue *awspkg.SQSQueue) *SQSDispatcher {
	return &SQSDispatcher{queue: queue}
}

func (d *SQSDispatcher) Enqueue(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.queue.SendMessage(ctx, string(body))
}

// Worker drains the email queue and delivers each job over SMTP.
type Worker struct {
	queue  *awspkg.SQSQueue
	sender Sender
	logger *zap.Logger
}

func NewWorker(queue *awspkg.SQSQueue, sender Sender, logger *zap.Logger) *Worker {
	return &Worker{queue: queue, sender: sender, logger: logger}
}

// Start polls until the context is cancelled. Delivery failures leave the
// message on the queue for the next visibility cycle.
func (w *Worker) Start(ctx context.Context) {
	_ = w.queue.StartPolling(ctx, w.handle)
}

func (w *Worker) handle(ctx context.Context, body string) error {
	var job Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		// Malformed jobs are dropped, not retried.
		w.logger.Warn("Dropping malformed email job", zap.Error(err))
		return nil
	}

	result, err := w.sender.SendEmail(ctx, job.To, "Your order confirmation", renderConfirmation(job))
	if err != nil {
		w.logger.Error("Order confirmation email failed",
			zap.String("to", job.To),
			zap.Error(err),
		)
		return err
	}

	w.logger.Info("Order confirmation email sent",
		zap.String("to", job.To),
		zap.String("message_id", result.MessageID),
	)
	return nil
}

func renderConfirmation(job Job) string {
	return fmt.Sprintf(
		"<p>Hi %s,</p><p>Thanks for your order! We charged a total of $%.2f.</p>"+
			"<p>Track it here: <a href=%q>%s</a></p>",
		job.Name, job.TotalAmount, job.TrackingURL, job.TrackingURL,
	)
}

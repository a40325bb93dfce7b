package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agrigrocer/marketplace-backend/services/order-service/models"
)

// EventLedger is the webhook idempotency ledger. MarkProcessed is an
// atomic check-and-insert: the first caller for a given event id wins,
// every redelivery after it is told to skip.
type EventLedger interface {
	// MarkProcessed returns true when this call inserted the event id,
	// false when the id was already present.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
	// Forget removes a ledger entry so the processor's redelivery of a
	// failed event is not silently skipped.
	Forget(ctx context.Context, eventID string) error
}

type GormEventLedger struct {
	db *gorm.DB
}

func NewGormEventLedger(db *gorm.DB) EventLedger {
	return &GormEventLedger{db: db}
}

func (l *GormEventLedger) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	result := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ProcessedEvent{EventID: eventID})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (l *GormEventLedger) Forget(ctx context.Context, eventID string) error {
	return l.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&models.ProcessedEvent{}).Error
}

package consumer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/agrigrocer/marketplace-backend/services/analytics-service/models"
	"github.com/agrigrocer/marketplace-backend/services/analytics-service/services"
)

// DrainInterval is how often buffered events are flushed to the store.
const DrainInterval = 3 * time.Second

// Consumer reads user events off Kafka into an in-memory buffer and flushes
// them in batches. Batching keeps the DB write rate independent of the
// message rate.
type Consumer struct {
	reader  *kafka.Reader
	service *services.AnalyticsService
	logger  *zap.Logger

	mu     sync.Mutex
	buffer []models.UserEvent
}

func New(brokers []string, topic, groupID string, service *services.AnalyticsService, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3, // 1KB
			MaxBytes: 1e6, // 1MB
		}),
		service: service,
		logger:  logger,
	}
}

// Start blocks reading messages until ctx is cancelled. The drain loop runs
// alongside and flushes whatever accumulated on each tick.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Kafka consumer started", zap.String("topic", c.reader.Config().Topic))

	go c.drainLoop(ctx)

	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			c.logger.Error("Failed to read message", zap.Error(err))
			continue
		}

		var event models.UserEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			c.logger.Warn("Invalid user event, dropping", zap.Error(err))
			continue
		}

		c.mu.Lock()
		c.buffer = append(c.buffer, event)
		c.mu.Unlock()
	}

	c.flush(context.Background())
	return c.reader.Close()
}

func (c *Consumer) drainLoop(ctx context.Context) {
	ticker := time.NewTicker(DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.flush(ctx)
		}
	}
}

func (c *Consumer) flush(ctx context.Context) {
	c.mu.Lock()
	batch := c.buffer
	c.buffer = nil
	c.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	c.service.ProcessBatch(ctx, batch)
}

package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gomarketplace/cartstore/internal/domain"
	pkgkafka "github.com/gomarketplace/cartstore/pkg/kafka"
	"github.com/gomarketplace/cartstore/pkg/logger"
)

// TopicCartUpdated is published after every applied cart change.
var TopicCartUpdated = pkgkafka.Topic("cart", "updated")

// AggregateTypeCart is the aggregate type carried in the envelope.
const AggregateTypeCart = "cart"

// SourceCartStore identifies events originating from this process.
const SourceCartStore = "cart-store"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	Items     []CartItemData `json:"items"`
	Lines     int            `json:"lines"`
	ItemCount int            `json:"item_count"`
}

// CartItemData is the item payload within cart events.
type CartItemData struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Publisher is the subset of *pkgkafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes cart domain events to Kafka.
type Producer struct {
	kafka       Publisher
	aggregateID string
	logger      *slog.Logger
}

// NewProducer creates an event producer. aggregateID keys every message so
// all updates of one cart land on the same partition.
func NewProducer(kafka Publisher, aggregateID string, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:       kafka,
		aggregateID: aggregateID,
		logger:      logger,
	}
}

// PublishCartUpdated publishes a cart.updated event describing items at
// the given version.
func (p *Producer) PublishCartUpdated(ctx context.Context, version uint64, items domain.Items) error {
	lines := make([]CartItemData, len(items))
	for i, item := range items {
		lines[i] = CartItemData{
			ID:       item.ID,
			Title:    item.Title,
			Price:    item.Price,
			Quantity: item.Quantity,
		}
	}

	data := CartUpdatedData{
		Items:     lines,
		Lines:     len(items),
		ItemCount: items.ItemCount(),
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, p.aggregateID, AggregateTypeCart, SourceCartStore, version, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.Uint64("version", version),
		slog.Int("item_count", data.ItemCount),
	)

	return nil
}

// Noop discards events. It is used when no brokers are configured.
type Noop struct{}

// PublishCartUpdated does nothing.
func (Noop) PublishCartUpdated(context.Context, uint64, domain.Items) error { return nil }

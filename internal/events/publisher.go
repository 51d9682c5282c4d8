// Package events announces billing changes to other modules over Redis pub/sub.
// Delivery is fire-and-forget: a failed publish is logged, never returned.
package events

import (
	"context"
	"encoding/json"
	"time"

	"society-billing/internal/logger"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const Channel = "billing.events"

// Event types
const (
	InvoiceGenerated = "invoice.generated"
	InvoiceCancelled = "invoice.cancelled"
	PaymentRecorded  = "payment.recorded"
	PaymentRefunded  = "payment.refunded"
	PaymentFailed    = "payment.failed"
)

type Event struct {
	Type      string          `json:"type"`
	SocietyID int64           `json:"society_id"`
	UnitID    int64           `json:"unit_id,omitempty"`
	InvoiceID int64           `json:"invoice_id,omitempty"`
	PaymentID int64           `json:"payment_id,omitempty"`
	Number    string          `json:"number,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	At        time.Time       `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// RedisPublisher publishes events on Channel
type RedisPublisher struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, log: logger.WithComponent("events")}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		p.log.Error().Err(err).Str("type", e.Type).Msg("encode event")
		return
	}
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := p.client.Publish(pubCtx, Channel, payload).Err(); err != nil {
			p.log.Warn().Err(err).Str("type", e.Type).Msg("publish event")
		}
	}()
}

// Nop drops every event; used when Redis is not configured
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// New picks the Redis publisher when a client is available
func New(client *redis.Client) Publisher {
	if client == nil {
		return Nop{}
	}
	return NewRedisPublisher(client)
}

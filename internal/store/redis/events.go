package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/event"
	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
)

// Event type tags on the outbound stream.
const (
	eventTypeUtxosExtracted = "utxos_extracted"
	eventTypeCanonAdvanced  = "canon_advanced"
)

// EventPublisher emits settlement events for out-of-core consumers.
type EventPublisher struct {
	client  *Client
	chain   model.Chain
	network model.Network
	logger  *slog.Logger
}

func NewEventPublisher(client *Client, chain model.Chain, network model.Network, logger *slog.Logger) *EventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventPublisher{
		client:  client,
		chain:   chain,
		network: network,
		logger:  logger.With("component", "event_publisher", "chain", chain, "network", network),
	}
}

func (p *EventPublisher) PublishUtxosExtracted(ctx context.Context, ev event.UtxosExtracted) error {
	return p.publish(ctx, eventTypeUtxosExtracted, ev)
}

func (p *EventPublisher) PublishCanonAdvanced(ctx context.Context, ev event.CanonAdvanced) error {
	return p.publish(ctx, eventTypeCanonAdvanced, ev)
}

func (p *EventPublisher) publish(ctx context.Context, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	id, err := p.client.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: eventStream(p.chain, p.network),
		Values: map[string]any{
			"type":       eventType,
			payloadField: body,
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.Debug("settlement event published", "type", eventType, "stream_id", id)
	return nil
}

package service

import (
	"context"
	"time"

	"codebattle/internal/platform/events"
	"codebattle/internal/platform/logger"
)

// publish never fails the caller: a lost event is logged and the write it describes stands.
func publish(ctx context.Context, p events.Publisher, eventType, entityID string, data interface{}) {
	if p == nil {
		return
	}
	evt := events.Event{
		Type:       eventType,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	if err := p.Publish(ctx, evt); err != nil {
		logger.L().Error().Err(err).Str("event", eventType).Str("entity_id", entityID).Msg("publishing event")
	}
}

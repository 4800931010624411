// Package events persists core lifecycle events into the transactional
// outbox. The core never dispatches anything itself: transitions return the
// events they produced and the caller records them in the same transaction
// as the state change, so an event exists iff its transition committed.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/medoffice/scheduler-api/internal/model"
	"github.com/medoffice/scheduler-api/internal/repository"
	"github.com/medoffice/scheduler-api/pkg/event"
)

// Record writes the events to the outbox repository.
func Record(ctx context.Context, outbox repository.OutboxRepository, evts []event.Event) error {
	for _, e := range evts {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal event payload: %w", err)
		}
		if err := outbox.Create(ctx, &model.OutboxEvent{
			EventType: e.Type,
			Payload:   payload,
		}); err != nil {
			return fmt.Errorf("failed to record %s event: %w", e.Type, err)
		}
	}
	return nil
}

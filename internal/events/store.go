package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clovershop/backoffice/internal/shop"
)

// PGStore persists events into the domain_events table, scoped to the shop
// bound to the context.
type PGStore struct {
	Pool *pgxpool.Pool
}

func (s PGStore) Insert(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	shopID, err := shop.UUIDFromContext(ctx)
	if err != nil {
		return Event{}, err
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO domain_events (shop_id, topic, aggregate_id, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, shop_id, topic, aggregate_id, payload, occurred_at`,
		shopID, topic, aggregateID, payload,
	)
	var ev Event
	if err := row.Scan(&ev.ID, &ev.ShopID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt); err != nil {
		return Event{}, err
	}
	return ev, nil
}

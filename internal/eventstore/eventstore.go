package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gymflow/internal/database"
)

var ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")

// Aggregate types.
const (
	AggregateMember  = "member"
	AggregatePayment = "payment"
)

// Event types.
const (
	MemberRegistered  = "MemberRegistered"
	PaymentRecorded   = "PaymentRecorded"
	MembershipExpired = "MembershipExpired"
)

// Event is an append-only domain fact. Metadata["member_id"] links events of
// other aggregates to the member they concern.
type Event struct {
	ID            int64           `json:"id"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	EventData     json.RawMessage `json:"event_data"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
}

// New builds an event with data marshalled to JSON.
func New(aggregateID uuid.UUID, aggregateType, eventType string, data any, memberID *uuid.UUID) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s data: %w", eventType, err)
	}
	e := Event{
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		EventData:     raw,
	}
	if memberID != nil {
		e.Metadata = map[string]any{"member_id": memberID.String()}
	}
	return e, nil
}

// EventStore appends and reads domain events. Appends run on the caller's
// Querier so they commit or roll back with the state change they describe.
type EventStore struct {
	db     database.Querier
	tracer trace.Tracer
}

// NewEventStore creates an event store reading through db.
func NewEventStore(db database.Querier) *EventStore {
	return &EventStore{
		db:     db,
		tracer: otel.Tracer("gymflow/eventstore"),
	}
}

// Append writes events on q, each at the next version of its aggregate.
// A racing writer that claimed the same version yields ErrConcurrencyConflict.
func (es *EventStore) Append(ctx context.Context, q database.Querier, events ...Event) error {
	ctx, span := es.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(attribute.Int("event.count", len(events))),
	)
	defer span.End()

	for i, event := range events {
		metadataJSON, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata %d: %w", i, err)
		}

		var (
			eventID int64
			version int
		)
		err = q.QueryRowContext(ctx, `
			INSERT INTO events (aggregate_id, aggregate_type, event_type, event_data, metadata, version, created_at)
			SELECT $1, $2, $3, $4, $5, COALESCE(MAX(version), 0) + 1, $6
			FROM events
			WHERE aggregate_id = $1
			RETURNING id, version
		`,
			event.AggregateID,
			event.AggregateType,
			event.EventType,
			[]byte(event.EventData),
			metadataJSON,
			time.Now().UTC(),
		).Scan(&eventID, &version)
		if err != nil {
			if _, ok := database.UniqueViolation(err); ok {
				span.SetAttributes(attribute.Bool("conflict.detected", true))
				return ErrConcurrencyConflict
			}
			return fmt.Errorf("insert event %d: %w", i, err)
		}

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int64("event.id", eventID),
			attribute.Int("event.version", version),
			attribute.String("event.type", event.EventType),
		))
	}
	return nil
}

// LoadEvents retrieves all events of one aggregate in version order.
func (es *EventStore) LoadEvents(ctx context.Context, aggregateID uuid.UUID) ([]Event, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.load",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	events, err := es.query(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type, event_data, metadata, version, created_at
		FROM events
		WHERE aggregate_id = $1
		ORDER BY version ASC
	`, aggregateID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// MemberHistory returns every event concerning a member, oldest first: its own
// aggregate stream plus events of other aggregates tagged with its id.
func (es *EventStore) MemberHistory(ctx context.Context, memberID uuid.UUID) ([]Event, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.member_history",
		trace.WithAttributes(attribute.String("member.id", memberID.String())),
	)
	defer span.End()

	return es.query(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type, event_data, metadata, version, created_at
		FROM events
		WHERE aggregate_id = $1 OR metadata ->> 'member_id' = $2
		ORDER BY id ASC
	`, memberID, memberID.String())
}

func (es *EventStore) query(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := es.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			event        Event
			data         []byte
			metadataJSON []byte
		)
		if err := rows.Scan(
			&event.ID,
			&event.AggregateID,
			&event.AggregateType,
			&event.EventType,
			&data,
			&metadataJSON,
			&event.Version,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.EventData = data
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of event %d: %w", event.ID, err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"familytree/application/ports"
	"familytree/domain/core/valueobjects"
	"familytree/domain/events"
	pkgerrors "familytree/pkg/errors"
)

// EventStore keeps person events in the same database as the persons
type EventStore struct {
	db *sql.DB
}

var _ ports.EventStore = (*EventStore)(nil)

// EventStore returns an event store sharing the repository's connection
func (r *PersonRepository) EventStore() *EventStore {
	return &EventStore{db: r.db}
}

// Append inserts every event in one transaction
func (s *EventStore) Append(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.NewDatabaseError("append events", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO person_events
		(event_id, event_type, aggregate_id, version, occurred_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return pkgerrors.NewDatabaseError("append events", err)
	}
	defer stmt.Close()

	for _, event := range domainEvents {
		record, err := events.NewRecord(event)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			record.EventID,
			record.EventType,
			record.AggregateID,
			record.Version,
			record.Timestamp.Format(timestampLayout),
			string(record.Payload),
		); err != nil {
			return pkgerrors.NewDatabaseError("append events", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return pkgerrors.NewDatabaseError("append events", err)
	}
	return nil
}

// History returns the newest events of a person first
func (s *EventStore) History(ctx context.Context, personID valueobjects.PersonID, limit int) ([]events.Record, error) {
	q := `SELECT event_id, event_type, aggregate_id, version, occurred_at, payload
		FROM person_events WHERE aggregate_id = ? ORDER BY seq DESC`
	args := []interface{}{personID.String()}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query events", err)
	}
	defer rows.Close()

	var out []events.Record
	for rows.Next() {
		var (
			record     events.Record
			occurredAt string
			payload    string
		)
		if err := rows.Scan(&record.EventID, &record.EventType, &record.AggregateID,
			&record.Version, &occurredAt, &payload); err != nil {
			return nil, pkgerrors.NewDatabaseError("query events", err)
		}
		record.Timestamp = parseTimestamp(occurredAt)
		record.Payload = json.RawMessage(payload)
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewDatabaseError("query events", err)
	}
	return out, nil
}

package outbox

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/rcarvalho-pb/tipbot-go/internal/domain/event"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db}
}

func (r *SQLiteRepository) Save(evt OutboxEvent) error {
	_, err := r.db.Exec(`
		INSERT INTO outbox_events (id, aggregate_id, event_type, payload, published, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		evt.ID,
		evt.AggregateID,
		string(evt.Type),
		evt.Payload,
		0,
		evt.CreatedAt,
	)
	return errors.Wrap(err, "Failed insert outbox event")
}

func (r *SQLiteRepository) FindUnpublished(limit int) ([]OutboxEvent, error) {
	rows, err := r.db.Query(`
		SELECT id, aggregate_id, event_type, payload, published, created_at
		FROM outbox_events
		WHERE published = 0
		ORDER BY created_at, rowid
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "Failed select unpublished events")
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (r *SQLiteRepository) FindByAggregate(aggregateID string, limit int) ([]OutboxEvent, error) {
	rows, err := r.db.Query(`
		SELECT id, aggregate_id, event_type, payload, published, created_at
		FROM outbox_events
		WHERE aggregate_id = ?
		ORDER BY created_at, rowid
		LIMIT ?
	`, aggregateID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "Failed select aggregate events")
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (r *SQLiteRepository) MarkPublished(id string) error {
	_, err := r.db.Exec(`
		UPDATE outbox_events
		SET published = 1
		WHERE id = ?
	`, id)

	return errors.Wrap(err, "Failed mark event published")
}

func scanEvents(rows *sql.Rows) ([]OutboxEvent, error) {
	var events []OutboxEvent

	for rows.Next() {
		var evt OutboxEvent
		var typ string
		var published int

		if err := rows.Scan(
			&evt.ID,
			&evt.AggregateID,
			&typ,
			&evt.Payload,
			&published,
			&evt.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "Failed scan outbox event")
		}

		evt.Type = event.Type(typ)
		evt.Published = published == 1
		events = append(events, evt)
	}

	return events, errors.Wrap(rows.Err(), "Failed iterate outbox events")
}

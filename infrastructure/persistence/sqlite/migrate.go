package sqlite

import (
	"context"
	"database/sql"

	"familytree/infrastructure/persistence/schema"

	"go.uber.org/zap"
)

func migrations(logger *zap.Logger) (*schema.Evolution, error) {
	evo := schema.NewEvolution(logger)
	for _, m := range []schema.Migration{
		{
			Version:     1,
			Description: "persons table",
			Up: schema.Exec(`CREATE TABLE persons (
				id          TEXT PRIMARY KEY,
				full_name   TEXT NOT NULL,
				gender      TEXT NOT NULL CHECK(gender IN ('male','female')),
				birth_date  TEXT,
				death_date  TEXT,
				birth_place TEXT NOT NULL DEFAULT '',
				occupation  TEXT NOT NULL DEFAULT '',
				bio         TEXT NOT NULL DEFAULT '',
				photo_url   TEXT NOT NULL DEFAULT '',
				father_id   TEXT,
				mother_id   TEXT,
				spouse_id   TEXT,
				created_at  TEXT NOT NULL,
				updated_at  TEXT NOT NULL,
				version     INTEGER NOT NULL DEFAULT 1
			)`,
				`CREATE INDEX idx_persons_created ON persons(created_at, id)`),
		},
		{
			Version:     2,
			Description: "reference indexes",
			Up: schema.Exec(
				`CREATE INDEX idx_persons_father ON persons(father_id)`,
				`CREATE INDEX idx_persons_mother ON persons(mother_id)`,
				`CREATE INDEX idx_persons_spouse ON persons(spouse_id)`),
		},
		{
			Version:     3,
			Description: "person event history",
			Up: schema.Exec(`CREATE TABLE person_events (
				seq          INTEGER PRIMARY KEY AUTOINCREMENT,
				event_id     TEXT NOT NULL UNIQUE,
				event_type   TEXT NOT NULL,
				aggregate_id TEXT NOT NULL,
				version      INTEGER NOT NULL,
				occurred_at  TEXT NOT NULL,
				payload      TEXT NOT NULL
			)`,
				`CREATE INDEX idx_person_events_aggregate ON person_events(aggregate_id, seq)`),
		},
	} {
		if err := evo.Register(m); err != nil {
			return nil, err
		}
	}
	return evo, nil
}

func migrate(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	evo, err := migrations(logger)
	if err != nil {
		return err
	}
	return evo.Apply(ctx, db)
}

// Package sqlite stores persons in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"familytree/application/ports"
	"familytree/domain/core/entities"
	"familytree/domain/core/valueobjects"
	pkgerrors "familytree/pkg/errors"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// timestampLayout is fixed-width so text ordering matches time ordering
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const personColumns = `id, full_name, gender, birth_date, death_date, birth_place, occupation,
	bio, photo_url, father_id, mother_id, spouse_id, created_at, updated_at, version`

// PersonRepository implements ports.PersonRepository on SQLite
type PersonRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ ports.PersonRepository = (*PersonRepository)(nil)

// Open opens (or creates) the database at path and applies the schema
func Open(path string, logger *zap.Logger) (*PersonRepository, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open person db: %w", err)
	}

	if err := migrate(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate person db: %w", err)
	}

	logger.Info("SQLite store ready", zap.String("path", path))
	return &PersonRepository{db: db, logger: logger}, nil
}

// Close closes the database.
func (r *PersonRepository) Close() error {
	return r.db.Close()
}

// Ping checks the database connection
func (r *PersonRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PersonRepository) Create(ctx context.Context, person *entities.Person) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO persons (`+personColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		personArgs(person)...)
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.ErrDuplicatePerson(person.ID().String())
		}
		return pkgerrors.NewDatabaseError("create person", err)
	}
	return nil
}

// Save upserts the person. A stored row with a newer version is left
// untouched and reported as a concurrent modification.
func (r *PersonRepository) Save(ctx context.Context, person *entities.Person) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO persons (`+personColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			gender = excluded.gender,
			birth_date = excluded.birth_date,
			death_date = excluded.death_date,
			birth_place = excluded.birth_place,
			occupation = excluded.occupation,
			bio = excluded.bio,
			photo_url = excluded.photo_url,
			father_id = excluded.father_id,
			mother_id = excluded.mother_id,
			spouse_id = excluded.spouse_id,
			updated_at = excluded.updated_at,
			version = excluded.version
		WHERE persons.version <= excluded.version`,
		personArgs(person)...)
	if err != nil {
		return pkgerrors.NewDatabaseError("save person", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.NewDatabaseError("save person", err)
	}
	if n == 0 {
		return pkgerrors.ErrConcurrentModification(person.ID().String())
	}
	return nil
}

func (r *PersonRepository) GetByID(ctx context.Context, id valueobjects.PersonID) (*entities.Person, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM persons WHERE id = ?`, id.String())
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrPersonNotFound(id.String())
	}
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get person", err)
	}
	return p, nil
}

func (r *PersonRepository) GetByIDs(ctx context.Context, ids []valueobjects.PersonID) (map[string]*entities.Person, error) {
	out := make(map[string]*entities.Person, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id.String()
	}

	people, err := r.query(ctx, "get persons",
		`SELECT `+personColumns+` FROM persons WHERE id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	for _, p := range people {
		out[p.ID().String()] = p
	}
	return out, nil
}

func (r *PersonRepository) List(ctx context.Context, opts ports.ListOptions) ([]*entities.Person, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM persons`).Scan(&total); err != nil {
		return nil, 0, pkgerrors.NewDatabaseError("count persons", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	people, err := r.query(ctx, "list persons",
		`SELECT `+personColumns+` FROM persons ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, opts.Offset)
	if err != nil {
		return nil, 0, err
	}
	return people, total, nil
}

func (r *PersonRepository) FindReferencing(ctx context.Context, id valueobjects.PersonID) ([]*entities.Person, error) {
	return r.query(ctx, "find referencing persons",
		`SELECT `+personColumns+` FROM persons
		WHERE father_id = ? OR mother_id = ? OR spouse_id = ?
		ORDER BY created_at, id`,
		id.String(), id.String(), id.String())
}

func (r *PersonRepository) Delete(ctx context.Context, id valueobjects.PersonID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM persons WHERE id = ?`, id.String())
	if err != nil {
		return pkgerrors.NewDatabaseError("delete person", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.NewDatabaseError("delete person", err)
	}
	if n == 0 {
		return pkgerrors.ErrPersonNotFound(id.String())
	}
	return nil
}

func (r *PersonRepository) Snapshot(ctx context.Context) ([]*entities.Person, error) {
	return r.query(ctx, "snapshot persons",
		`SELECT `+personColumns+` FROM persons ORDER BY created_at, id`)
}

func (r *PersonRepository) query(ctx context.Context, op, q string, args ...interface{}) ([]*entities.Person, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError(op, err)
	}
	defer rows.Close()

	var people []*entities.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError(op, err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewDatabaseError(op, err)
	}
	return people, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPerson(s scanner) (*entities.Person, error) {
	var (
		id, fullName, gender                  string
		birth, death                          sql.NullString
		birthPlace, occupation, bio, photoURL string
		father, mother, spouse                sql.NullString
		createdAt, updatedAt                  string
		version                               int
	)
	if err := s.Scan(&id, &fullName, &gender, &birth, &death, &birthPlace, &occupation,
		&bio, &photoURL, &father, &mother, &spouse, &createdAt, &updatedAt, &version); err != nil {
		return nil, err
	}

	personID, err := valueobjects.NewPersonIDFromString(id)
	if err != nil {
		return nil, err
	}
	birthDate, err := valueobjects.ParseDate(birth.String)
	if err != nil {
		return nil, fmt.Errorf("person %s: %w", id, err)
	}
	deathDate, err := valueobjects.ParseDate(death.String)
	if err != nil {
		return nil, fmt.Errorf("person %s: %w", id, err)
	}

	return entities.ReconstructPerson(
		personID,
		entities.Profile{
			FullName:   fullName,
			Gender:     valueobjects.Gender(gender),
			BirthDate:  birthDate,
			DeathDate:  deathDate,
			BirthPlace: birthPlace,
			Occupation: occupation,
			Bio:        bio,
			PhotoURL:   photoURL,
		},
		entities.Relations{
			FatherID: nullableID(father),
			MotherID: nullableID(mother),
			SpouseID: nullableID(spouse),
		},
		parseTimestamp(createdAt),
		parseTimestamp(updatedAt),
		version,
	)
}

func personArgs(p *entities.Person) []interface{} {
	profile := p.Profile()
	return []interface{}{
		p.ID().String(),
		profile.FullName,
		profile.Gender.String(),
		nullableDate(profile.BirthDate),
		nullableDate(profile.DeathDate),
		profile.BirthPlace,
		profile.Occupation,
		profile.Bio,
		profile.PhotoURL,
		nullableString(p.FatherID()),
		nullableString(p.MotherID()),
		nullableString(p.SpouseID()),
		p.CreatedAt().UTC().Format(timestampLayout),
		p.UpdatedAt().UTC().Format(timestampLayout),
		p.Version(),
	}
}

func nullableString(id valueobjects.PersonID) sql.NullString {
	return sql.NullString{String: id.String(), Valid: !id.IsZero()}
}

func nullableDate(d valueobjects.Date) sql.NullString {
	return sql.NullString{String: d.String(), Valid: !d.IsZero()}
}

func nullableID(s sql.NullString) valueobjects.PersonID {
	if !s.Valid {
		return valueobjects.PersonID{}
	}
	id, err := valueobjects.NewPersonIDFromString(s.String)
	if err != nil {
		return valueobjects.PersonID{}
	}
	return id
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

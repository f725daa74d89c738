package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/couchcryptid/temperature-relay/internal/domain"
	_ "github.com/lib/pq" // postgres driver
)

const schema = `
CREATE TABLE IF NOT EXISTS temperature_readings (
	id                   TEXT PRIMARY KEY,
	city                 TEXT NOT NULL,
	temperature          DOUBLE PRECISION NOT NULL,
	timestamp_utc        BIGINT NOT NULL,
	unit                 TEXT NOT NULL,
	processed_at         TEXT NOT NULL,
	source               TEXT NOT NULL,
	country              TEXT NOT NULL,
	timezone             TEXT NOT NULL,
	lat                  DOUBLE PRECISION NOT NULL,
	lng                  DOUBLE PRECISION NOT NULL,
	iso_date             TEXT NOT NULL,
	temperature_category TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS temperature_readings_ts_idx ON temperature_readings (timestamp_utc DESC);
CREATE INDEX IF NOT EXISTS temperature_readings_city_ts_idx ON temperature_readings (city, timestamp_utc DESC);
`

const selectColumns = `id, city, temperature, timestamp_utc, unit, processed_at, source,
	country, timezone, lat, lng, iso_date, temperature_category`

// PostgresStore persists readings in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to dsn, verifies the connection, and applies the
// schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := NewPostgresStore(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the readings table and its indexes if missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Insert relies on the primary key: a conflicting id inserts nothing, which
// is reported as a duplicate.
func (s *PostgresStore) Insert(ctx context.Context, r domain.EnrichedReading) error {
	query := `
		INSERT INTO temperature_readings (` + selectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		r.ID,
		r.City,
		r.Temperature,
		r.TimestampUTC,
		r.Unit,
		r.ProcessedAt,
		r.Source,
		r.CityInfo.Country,
		r.CityInfo.Timezone,
		r.CityInfo.Coordinates.Lat,
		r.CityInfo.Coordinates.Lng,
		r.ISODate,
		string(r.TemperatureCategory),
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert reading rows affected: %w", err)
	}
	if rows == 0 {
		return domain.Errorf(domain.KindDuplicateID, "reading %s already exists", r.ID)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM temperature_readings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reading: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete reading rows affected: %w", err)
	}
	if rows == 0 {
		return domain.Errorf(domain.KindNotFound, "reading %s not found", id)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, f Filter) ([]domain.EnrichedReading, error) {
	where, args := whereClause(f)
	query := `SELECT ` + selectColumns + ` FROM temperature_readings` + where +
		` ORDER BY timestamp_utc DESC, id ASC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	out := make([]domain.EnrichedReading, 0)
	for rows.Next() {
		var (
			r        domain.EnrichedReading
			category string
		)
		if err := rows.Scan(
			&r.ID,
			&r.City,
			&r.Temperature,
			&r.TimestampUTC,
			&r.Unit,
			&r.ProcessedAt,
			&r.Source,
			&r.CityInfo.Country,
			&r.CityInfo.Timezone,
			&r.CityInfo.Coordinates.Lat,
			&r.CityInfo.Coordinates.Lng,
			&r.ISODate,
			&category,
		); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.TemperatureCategory = domain.Category(category)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Count(ctx context.Context, f Filter) (int, error) {
	where, args := whereClause(f)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM temperature_readings`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return n, nil
}

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func whereClause(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.City != "" {
		args = append(args, f.City)
		conds = append(conds, fmt.Sprintf("city = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("timestamp_utc >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		conds = append(conds, fmt.Sprintf("timestamp_utc <= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

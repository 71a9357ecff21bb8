package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"geonames-importer/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// PostgresRepository stores records in a PostGIS table
type PostgresRepository struct {
	db        *pgxpool.Pool
	table     string
	insertSQL string
}

// OpenPostgres connects to dsn and verifies the connection
func OpenPostgres(ctx context.Context, dsn, table string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("repository: failed to reach postgres: %w", err)
	}

	return NewPostgresRepository(pool, table), nil
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *pgxpool.Pool, table string) *PostgresRepository {
	cols := models.FieldNames()
	params := make([]string, len(cols))
	for i := range cols {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	n := len(cols)

	insertSQL := fmt.Sprintf(
		`INSERT INTO %s (%s, geohash, loc) VALUES (%s, $%d, ST_SetSRID(ST_MakePoint($%d, $%d), 4326)::geography)`,
		pq.QuoteIdentifier(table), strings.Join(cols, ", "), strings.Join(params, ", "), n+1, n+2, n+3,
	)

	return &PostgresRepository{db: db, table: table, insertSQL: insertSQL}
}

// EnsureSchema creates the locations table and its GIST index on loc
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	cols := models.FieldNames()
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c + " TEXT"
	}
	defs[0] += " PRIMARY KEY"

	query := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS postgis;
	CREATE TABLE IF NOT EXISTS %s (
		%s,
		geohash TEXT,
		loc GEOGRAPHY(POINT, 4326) NOT NULL
	);
	CREATE INDEX IF NOT EXISTS %s ON %s USING GIST (loc);
	`,
		pq.QuoteIdentifier(r.table), strings.Join(defs, ",\n\t\t"),
		pq.QuoteIdentifier(r.table+"_loc_idx"), pq.QuoteIdentifier(r.table),
	)

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("repository: failed to create schema: %w", err)
	}
	return nil
}

// Insert adds rec as a new row. Existing identifiers yield ErrDuplicate.
func (r *PostgresRepository) Insert(ctx context.Context, rec *models.LocationRecord) error {
	args := append(rec.Values(), rec.Geohash, rec.Loc.Lon(), rec.Loc.Lat())

	if _, err := r.db.Exec(ctx, r.insertSQL, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("repository: insert %s: %w", rec.ID, ErrDuplicate)
		}
		return fmt.Errorf("repository: failed to insert %s: %w", rec.ID, err)
	}
	return nil
}

// Count returns the number of stored records
func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(r.table))
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("repository: failed to count records: %w", err)
	}
	return count, nil
}

// Nearest returns the stored record closest to the given point, or nil when
// nothing lies within radius metres. The importer never queries; this is used
// by the integration tests to check the GIST index.
func (r *PostgresRepository) Nearest(ctx context.Context, lon, lat, radius float64) (*models.LocationRecord, error) {
	cols := models.FieldNames()
	query := fmt.Sprintf(`
		SELECT %s, geohash, ST_X(loc::geometry), ST_Y(loc::geometry)
		FROM %s
		WHERE ST_DWithin(loc, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY loc <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography
		LIMIT 1
	`, strings.Join(cols, ", "), pq.QuoteIdentifier(r.table))

	var rec models.LocationRecord
	values := make([]string, len(cols))
	dest := make([]any, 0, len(cols)+3)
	for i := range values {
		dest = append(dest, &values[i])
	}
	var x, y float64
	dest = append(dest, &rec.Geohash, &x, &y)

	err := r.db.QueryRow(ctx, query, lon, lat, radius).Scan(dest...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("repository: failed to execute spatial query: %w", err)
	}

	for i, f := range models.Fields {
		f.Set(&rec, values[i])
	}
	rec.Loc = models.GeoPoint{Type: "Point", Coordinates: [2]float64{x, y}}
	return &rec, nil
}

// Close releases the pool
func (r *PostgresRepository) Close(context.Context) error {
	r.db.Close()
	return nil
}

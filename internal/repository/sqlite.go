package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"geonames-importer/internal/models"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository stores records in a SQLite table with an R*Tree index over
// the points.
type SQLiteRepository struct {
	db        *sql.DB
	table     string
	rtree     string
	insertSQL string
	rtreeSQL  string
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(ctx context.Context, path, table string) (*SQLiteRepository, error) {
	if path == "" {
		return nil, errors.New("repository: sqlite path is empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("repository: open sqlite database %q: %w", path, err)
	}
	// one writer; the pipeline never inserts concurrently
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("repository: verify sqlite connection to %q: %w", path, err)
	}

	return NewSQLiteRepository(db, table), nil
}

// NewSQLiteRepository wraps an open database handle.
func NewSQLiteRepository(db *sql.DB, table string) *SQLiteRepository {
	cols := models.FieldNames()
	params := strings.TrimSuffix(strings.Repeat("?, ", len(cols)+3), ", ")
	rtree := table + "_rtree"

	return &SQLiteRepository{
		db:    db,
		table: table,
		rtree: rtree,
		insertSQL: fmt.Sprintf(
			"INSERT INTO %s (%s, geohash, lon, lat) VALUES (%s)",
			pq.QuoteIdentifier(table), strings.Join(cols, ", "), params,
		),
		rtreeSQL: fmt.Sprintf(
			"INSERT INTO %s (id, min_lon, max_lon, min_lat, max_lat) VALUES (?, ?, ?, ?, ?)",
			pq.QuoteIdentifier(rtree),
		),
	}
}

// EnsureSchema creates the table and the R*Tree index.
func (r *SQLiteRepository) EnsureSchema(ctx context.Context) error {
	cols := models.FieldNames()
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c + " TEXT"
	}
	defs[0] += " PRIMARY KEY"

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			%s,
			geohash TEXT,
			lon REAL NOT NULL,
			lat REAL NOT NULL
		)`, pq.QuoteIdentifier(r.table), strings.Join(defs, ",\n\t\t\t")),
		fmt.Sprintf(
			`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING rtree(id, min_lon, max_lon, min_lat, max_lat)`,
			pq.QuoteIdentifier(r.rtree),
		),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("repository: init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repository: init schema: commit tx: %w", err)
	}
	return nil
}

// Insert adds rec and its R*Tree entry in one transaction. Existing
// identifiers yield ErrDuplicate.
func (r *SQLiteRepository) Insert(ctx context.Context, rec *models.LocationRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: insert %s: begin tx: %w", rec.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	lon, lat := rec.Loc.Lon(), rec.Loc.Lat()
	args := append(rec.Values(), rec.Geohash, lon, lat)

	res, err := tx.ExecContext(ctx, r.insertSQL, args...)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("repository: insert %s: %w", rec.ID, ErrDuplicate)
		}
		return fmt.Errorf("repository: failed to insert %s: %w", rec.ID, err)
	}

	rowID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("repository: insert %s: read rowid: %w", rec.ID, err)
	}

	if _, err := tx.ExecContext(ctx, r.rtreeSQL, rowID, lon, lon, lat, lat); err != nil {
		return fmt.Errorf("repository: insert %s: index point: %w", rec.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repository: insert %s: commit tx: %w", rec.ID, err)
	}
	return nil
}

// the only constraint on the table is the geonameid primary key
func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", pq.QuoteIdentifier(r.table))
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("repository: failed to count records: %w", err)
	}
	return n, nil
}

// Within returns the identifiers of records whose point lies inside the box,
// using the R*Tree index. The importer never queries; tests use it to check
// that points were indexed in [lon, lat] order.
func (r *SQLiteRepository) Within(ctx context.Context, minLon, minLat, maxLon, maxLat float64) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT l.geonameid
		FROM %s t
		JOIN %s l ON l.rowid = t.id
		WHERE t.min_lon >= ? AND t.max_lon <= ? AND t.min_lat >= ? AND t.max_lat <= ?
		ORDER BY l.geonameid
	`, pq.QuoteIdentifier(r.rtree), pq.QuoteIdentifier(r.table))

	rows, err := r.db.QueryContext(ctx, query, minLon, maxLon, minLat, maxLat)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to execute box query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("repository: failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating rows: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) Close(context.Context) error {
	return r.db.Close()
}

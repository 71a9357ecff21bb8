package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"geonames-importer/internal/models"
)

// ErrDuplicate is returned by Insert when a record with the same identifier is
// already stored.
var ErrDuplicate = errors.New("repository: duplicate record")

// DefaultTable is the table (or collection) records are written to.
const DefaultTable = "locations"

// Store is the persistence contract shared by every backend.
type Store interface {
	// EnsureSchema creates the table and its geospatial index if missing.
	EnsureSchema(ctx context.Context) error
	// Insert stores rec. It never overwrites and returns ErrDuplicate when the
	// identifier already exists.
	Insert(ctx context.Context, rec *models.LocationRecord) error
	Count(ctx context.Context) (int64, error)
	Close(ctx context.Context) error
}

// Open connects to the store named by dsn. The scheme picks the backend:
// postgres:// or postgresql:// for PostGIS, mongodb:// or mongodb+srv:// for
// MongoDB and sqlite://<path> for SQLite.
func Open(ctx context.Context, dsn, table string) (Store, error) {
	if table == "" {
		table = DefaultTable
	}

	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn, table)
	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		return OpenMongo(ctx, dsn, table)
	case strings.HasPrefix(dsn, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"), table)
	default:
		return nil, fmt.Errorf("repository: unsupported connection string %q", redact(dsn))
	}
}

// redact hides everything between the scheme and the host so credentials do
// not end up in logs.
func redact(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return "<invalid>"
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***@" + rest[at+1:]
	}
	return scheme + "://" + rest
}

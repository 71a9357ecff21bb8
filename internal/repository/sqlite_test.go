package repository

import (
	"context"
	"path/filepath"
	"testing"

	"geonames-importer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	repo, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "locations.db"), DefaultTable)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close(ctx) })

	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

func record(id, lon, lat string) *models.LocationRecord {
	rec := &models.LocationRecord{ID: id, Name: "place " + id, Longitude: lon, Latitude: lat, FeatureCode: "PPL"}
	rec.Locate()
	return rec
}

func TestSQLiteRepository_Insert(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, record("1", "-77.03637", "38.89511")))
	require.NoError(t, repo.Insert(ctx, record("2", "2.3488", "48.85341")))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestSQLiteRepository_InsertDuplicate(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, record("1", "-77.03637", "38.89511")))

	err := repo.Insert(ctx, record("1", "0", "0"))
	assert.ErrorIs(t, err, ErrDuplicate)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	// the first version is kept
	var name, lon string
	require.NoError(t, repo.db.QueryRowContext(ctx,
		`SELECT name, longitude FROM locations WHERE geonameid = ?`, "1").Scan(&name, &lon))
	assert.Equal(t, "place 1", name)
	assert.Equal(t, "-77.03637", lon)
}

func TestSQLiteRepository_EnsureSchemaIdempotent(t *testing.T) {
	repo := setupSQLite(t)
	require.NoError(t, repo.EnsureSchema(context.Background()))
}

func TestSQLiteRepository_Within(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, record("washington", "-77.03637", "38.89511")))
	require.NoError(t, repo.Insert(ctx, record("paris", "2.3488", "48.85341")))
	require.NoError(t, repo.Insert(ctx, record("tokyo", "139.69171", "35.6895")))

	ids, err := repo.Within(ctx, -80, 35, -70, 40)
	require.NoError(t, err)
	assert.Equal(t, []string{"washington"}, ids)

	ids, err = repo.Within(ctx, -10, 30, 150, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"paris", "tokyo"}, ids)
}

func TestSQLiteRepository_StoresLonLatOrder(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, record("1", "139.69171", "35.6895")))

	var lon, lat float64
	require.NoError(t, repo.db.QueryRowContext(ctx,
		`SELECT lon, lat FROM locations WHERE geonameid = ?`, "1").Scan(&lon, &lat))
	assert.Equal(t, 139.69171, lon)
	assert.Equal(t, 35.6895, lat)
}

//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
)

func setupTestMongo(t *testing.T) string {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections"),
	}

	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		mongoC.Terminate(ctx)
	})

	host, err := mongoC.Host(ctx)
	require.NoError(t, err)

	port, err := mongoC.MappedPort(ctx, "27017")
	require.NoError(t, err)

	return "mongodb://" + host + ":" + port.Port() + "/world-locations-test"
}

func TestMongoRepository_Insert(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	uri := setupTestMongo(t)
	ctx := context.Background()

	repo, err := OpenMongo(ctx, uri, DefaultTable)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close(ctx) })
	require.NoError(t, repo.EnsureSchema(ctx))

	require.NoError(t, repo.Insert(ctx, record("4140963", "-77.03637", "38.89511")))
	assert.ErrorIs(t, repo.Insert(ctx, record("4140963", "0", "0")), ErrDuplicate)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	// the 2dsphere index answers $near queries on loc
	var doc bson.M
	err = repo.coll.FindOne(ctx, bson.D{{Key: "loc", Value: bson.D{{Key: "$near", Value: bson.D{
		{Key: "$geometry", Value: bson.D{{Key: "type", Value: "Point"}, {Key: "coordinates", Value: bson.A{-77.0, 38.9}}}},
		{Key: "$maxDistance", Value: 10000},
	}}}}}).Decode(&doc)
	require.NoError(t, err)
	assert.Equal(t, "4140963", doc["_id"])
}

package service

import (
	"context"

	"geonames-importer/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of the LocationStore interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) EnsureSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockStore) Insert(ctx context.Context, rec *models.LocationRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockStore) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// insertedIDs lists the record IDs passed to Insert, in call order.
func (m *MockStore) insertedIDs() []string {
	var ids []string
	for _, c := range m.Calls {
		if c.Method == "Insert" {
			ids = append(ids, c.Arguments.Get(1).(*models.LocationRecord).ID)
		}
	}
	return ids
}

// MockFetcher is a mock implementation of the ArchiveFetcher interface
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Retrieve(ctx context.Context, region, dir string) ([]string, error) {
	args := m.Called(ctx, region, dir)
	files, _ := args.Get(0).([]string)
	return files, args.Error(1)
}

func idIs(id string) any {
	return mock.MatchedBy(func(rec *models.LocationRecord) bool { return rec.ID == id })
}

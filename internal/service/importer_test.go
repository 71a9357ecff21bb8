package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"geonames-importer/internal/geonames/geonamestest"
	"geonames-importer/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMockStore() *MockStore {
	s := new(MockStore)
	s.On("EnsureSchema", mock.Anything).Return(nil)
	s.On("Count", mock.Anything).Return(int64(0), nil)
	s.On("Close", mock.Anything).Return(nil)
	return s
}

func opener(s LocationStore) StoreOpener {
	return func(context.Context) (LocationStore, error) { return s, nil }
}

// writes makes a mocked Retrieve extract name into its target directory.
func writes(name string, lines ...string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		dir := args.String(2)
		_ = os.MkdirAll(dir, 0o755)
		_ = os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(lines, "\n")+"\n"), 0o644)
	}
}

func assertWorkspaceRemoved(t *testing.T, workDir string) {
	t.Helper()
	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImporter_Run_DropsInvalidCodes(t *testing.T) {
	store := newMockStore()
	store.On("Insert", mock.Anything, mock.Anything).Return(nil)

	fetcher := new(MockFetcher)
	fetcher.On("Retrieve", mock.Anything, "US", mock.Anything).
		Run(writes("US.txt", geonamestest.Line("1", "Washington", "38.89511", "-77.03637", "P", "PPLC", "US"))).
		Return(nil, nil)

	workDir := t.TempDir()
	imp := NewImporter(opener(store), fetcher, zerolog.Nop(), Options{WorkDir: workDir})

	report, err := imp.Run(context.Background(), Request{
		Regions:    []string{"us", "ZZ"},
		Categories: []string{"PPLC", "NOPE"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"US"}, report.Regions)
	assert.Equal(t, []string{"ZZ"}, report.RejectedRegions)
	assert.Equal(t, []string{"PPLC"}, report.Categories)
	assert.Equal(t, []string{"NOPE"}, report.RejectedCategories)
	assert.Equal(t, int64(1), report.Inserted)

	fetcher.AssertNotCalled(t, "Retrieve", mock.Anything, "ZZ", mock.Anything)
	fetcher.AssertExpectations(t)
	assertWorkspaceRemoved(t, workDir)
}

func TestImporter_Run_OnlyRequestedCategoriesLoaded(t *testing.T) {
	store := newMockStore()
	store.On("Insert", mock.Anything, mock.Anything).Return(nil)

	fetcher := new(MockFetcher)
	fetcher.On("Retrieve", mock.Anything, "US", mock.Anything).
		Run(writes("US.txt",
			geonamestest.Line("1", "Washington", "38.89511", "-77.03637", "P", "PPLC", "US"),
			geonamestest.Line("2", "Springfield", "39.80172", "-89.64371", "P", "PPL", "US"),
			geonamestest.Line("3", "Texas", "31.25044", "-99.25061", "A", "ADM1", "US"),
			geonamestest.Line("4", "Potomac", "38.0", "-76.3", "H", "STM", "US"),
		)).
		Return(nil, nil)

	var progress bytes.Buffer
	imp := NewImporter(opener(store), fetcher, zerolog.Nop(), Options{WorkDir: t.TempDir(), Progress: &progress})

	report, err := imp.Run(context.Background(), Request{Regions: []string{"US"}, Categories: []string{"PPLC", "ADM1"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "3"}, store.insertedIDs())
	assert.Equal(t, 1, report.Files)
	assert.Equal(t, int64(4), report.Lines)
	assert.Equal(t, int64(2), report.Accepted)
	assert.Equal(t, int64(2), report.Inserted)
	assert.Empty(t, report.FailedFiles)
	assert.NotEmpty(t, progress.String())
}

func TestImporter_Run_StoreUnavailable(t *testing.T) {
	fetcher := new(MockFetcher)
	open := func(context.Context) (LocationStore, error) { return nil, errors.New("connection refused") }

	workDir := t.TempDir()
	imp := NewImporter(open, fetcher, zerolog.Nop(), Options{WorkDir: workDir})

	_, err := imp.Run(context.Background(), Request{Regions: []string{"US"}, Categories: []string{"PPLC"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorContains(t, err, "connection refused")

	fetcher.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything, mock.Anything)
	assertWorkspaceRemoved(t, workDir)
}

func TestImporter_Run_SchemaFailure(t *testing.T) {
	store := new(MockStore)
	store.On("EnsureSchema", mock.Anything).Return(assert.AnError)
	store.On("Close", mock.Anything).Return(nil)
	fetcher := new(MockFetcher)

	workDir := t.TempDir()
	_, err := NewImporter(opener(store), fetcher, zerolog.Nop(), Options{WorkDir: workDir}).
		Run(context.Background(), Request{Regions: []string{"US"}})
	require.ErrorIs(t, err, assert.AnError)

	fetcher.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything, mock.Anything)
	store.AssertCalled(t, "Close", mock.Anything)
	assertWorkspaceRemoved(t, workDir)
}

func TestImporter_Run_RetrievalFailureAborts(t *testing.T) {
	store := newMockStore()

	fetcher := new(MockFetcher)
	fetcher.On("Retrieve", mock.Anything, "US", mock.Anything).
		Run(writes("US.txt", geonamestest.Line("1", "Washington", "38.89511", "-77.03637", "P", "PPLC", "US"))).
		Return(nil, nil).Maybe()
	fetcher.On("Retrieve", mock.Anything, "FR", mock.Anything).Return(nil, assert.AnError)

	workDir := t.TempDir()
	imp := NewImporter(opener(store), fetcher, zerolog.Nop(), Options{WorkDir: workDir, Workers: 1})

	_, err := imp.Run(context.Background(), Request{Regions: []string{"FR", "US"}, Categories: []string{"PPLC"}})
	require.ErrorIs(t, err, assert.AnError)

	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	store.AssertCalled(t, "Close", mock.Anything)
	assertWorkspaceRemoved(t, workDir)
}

func TestImporter_Run_FileAbandonedOnLoadError(t *testing.T) {
	store := newMockStore()
	store.On("Insert", mock.Anything, idIs("2")).Return(assert.AnError).Once()
	store.On("Insert", mock.Anything, mock.Anything).Return(nil)

	fetcher := new(MockFetcher)
	fetcher.On("Retrieve", mock.Anything, "AD", mock.Anything).
		Run(writes("AD.txt",
			geonamestest.Line("1", "Andorra la Vella", "42.50779", "1.52109", "P", "PPLC", "AD"),
			geonamestest.Line("2", "Canillo", "42.5676", "1.59756", "P", "PPLC", "AD"),
			geonamestest.Line("3", "Encamp", "42.53474", "1.58014", "P", "PPLC", "AD"),
		)).
		Return(nil, nil)
	fetcher.On("Retrieve", mock.Anything, "US", mock.Anything).
		Run(writes("US.txt", geonamestest.Line("10", "Washington", "38.89511", "-77.03637", "P", "PPLC", "US"))).
		Return(nil, nil)

	workDir := t.TempDir()
	imp := NewImporter(opener(store), fetcher, zerolog.Nop(), Options{WorkDir: workDir})

	report, err := imp.Run(context.Background(), Request{Regions: []string{"US", "AD"}, Categories: []string{"PPLC"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "10"}, store.insertedIDs())
	require.Len(t, report.FailedFiles, 1)
	assert.Equal(t, "AD.txt", filepath.Base(report.FailedFiles[0].Path))
	assert.Equal(t, 2, report.FailedFiles[0].Line)
	assert.ErrorIs(t, report.FailedFiles[0], assert.AnError)
	assert.Equal(t, int64(2), report.Inserted)
	assertWorkspaceRemoved(t, workDir)
}

func TestImporter_Run_DuplicateInFileKeepsFirst(t *testing.T) {
	store := newMockStore()
	store.On("Insert", mock.Anything, idIs("1")).Return(nil).Once()
	store.On("Insert", mock.Anything, idIs("1")).Return(repository.ErrDuplicate)
	store.On("Insert", mock.Anything, mock.Anything).Return(nil)

	fetcher := new(MockFetcher)
	fetcher.On("Retrieve", mock.Anything, "US", mock.Anything).
		Run(writes("US.txt",
			geonamestest.Line("1", "Washington", "38.89511", "-77.03637", "P", "PPLC", "US"),
			geonamestest.Line("1", "Washington again", "0", "0", "P", "PPLC", "US"),
			geonamestest.Line("2", "Other", "1", "1", "P", "PPLC", "US"),
		)).
		Return(nil, nil)

	imp := NewImporter(opener(store), fetcher, zerolog.Nop(), Options{WorkDir: t.TempDir()})

	report, err := imp.Run(context.Background(), Request{Regions: []string{"US"}, Categories: []string{"PPLC"}})
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.Inserted)
	assert.Equal(t, int64(1), report.Duplicates)
	assert.Empty(t, report.FailedFiles)
}

func TestImporter_Run_Canceled(t *testing.T) {
	store := newMockStore()
	fetcher := new(MockFetcher)
	fetcher.On("Retrieve", mock.Anything, mock.Anything, mock.Anything).
		Run(writes("US.txt", geonamestest.Line("1", "Washington", "38.89511", "-77.03637", "P", "PPLC", "US"))).
		Return(nil, nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	workDir := t.TempDir()
	_, err := NewImporter(opener(store), fetcher, zerolog.Nop(), Options{WorkDir: workDir}).
		Run(ctx, Request{Regions: []string{"US"}, Categories: []string{"PPLC"}})
	require.ErrorIs(t, err, context.Canceled)

	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	assertWorkspaceRemoved(t, workDir)
}

func TestImporter_Run_CanceledDuringIngest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newMockStore()
	store.On("Insert", mock.Anything, idIs("2")).
		Run(func(mock.Arguments) { cancel() }).
		Return(context.Canceled).Once()
	store.On("Insert", mock.Anything, mock.Anything).Return(nil)

	fetcher := new(MockFetcher)
	fetcher.On("Retrieve", mock.Anything, "US", mock.Anything).
		Run(writes("US.txt",
			geonamestest.Line("1", "Washington", "38.89511", "-77.03637", "P", "PPLC", "US"),
			geonamestest.Line("2", "Other", "1", "1", "P", "PPLC", "US"),
			geonamestest.Line("3", "Last", "2", "2", "P", "PPLC", "US"),
		)).
		Return(nil, nil)

	workDir := t.TempDir()
	_, err := NewImporter(opener(store), fetcher, zerolog.Nop(), Options{WorkDir: workDir}).
		Run(ctx, Request{Regions: []string{"US"}, Categories: []string{"PPLC"}})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{"1", "2"}, store.insertedIDs())
	store.AssertNotCalled(t, "Count", mock.Anything)
	store.AssertCalled(t, "Close", mock.Anything)
	assertWorkspaceRemoved(t, workDir)
}

func TestImporter_Run_CanceledDuringDownload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newMockStore()
	fetcher := new(MockFetcher)
	fetcher.On("Retrieve", mock.Anything, "AD", mock.Anything).
		Run(func(args mock.Arguments) {
			writes("AD.txt", geonamestest.Line("1", "Andorra la Vella", "42.50779", "1.52109", "P", "PPLC", "AD"))(args)
			cancel()
		}).
		Return(nil, context.Canceled)
	fetcher.On("Retrieve", mock.Anything, "US", mock.Anything).
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() }).
		Return(nil, context.Canceled)

	workDir := t.TempDir()
	_, err := NewImporter(opener(store), fetcher, zerolog.Nop(), Options{WorkDir: workDir, Workers: 2}).
		Run(ctx, Request{Regions: []string{"AD", "US"}, Categories: []string{"PPLC"}})
	require.ErrorIs(t, err, context.Canceled)

	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	store.AssertCalled(t, "Close", mock.Anything)
	assertWorkspaceRemoved(t, workDir)
}

func TestImporter_Run_NoValidRegions(t *testing.T) {
	store := newMockStore()
	fetcher := new(MockFetcher)

	report, err := NewImporter(opener(store), fetcher, zerolog.Nop(), Options{WorkDir: t.TempDir()}).
		Run(context.Background(), Request{Regions: []string{"ZZ", "QQ"}, Categories: []string{"PPLC"}})
	require.NoError(t, err)

	assert.Empty(t, report.Regions)
	assert.Equal(t, 0, report.Files)
	fetcher.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything, mock.Anything)
}

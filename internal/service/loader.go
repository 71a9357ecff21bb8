package service

import (
	"context"
	"errors"
	"fmt"

	"geonames-importer/internal/models"
	"geonames-importer/internal/repository"

	"github.com/rs/zerolog"
)

// LocationStore interface for dependency injection
type LocationStore interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, rec *models.LocationRecord) error
	Count(ctx context.Context) (int64, error)
	Close(ctx context.Context) error
}

// Outcome is the result of loading one record.
type Outcome int

const (
	OutcomeInserted Outcome = iota
	OutcomeDuplicate
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "failed"
	}
}

// Loader persists accepted records one at a time.
type Loader struct {
	store LocationStore
	log   zerolog.Logger
}

// NewLoader creates a loader writing to store
func NewLoader(store LocationStore, log zerolog.Logger) *Loader {
	return &Loader{store: store, log: log}
}

// Load derives the record's point and inserts it. A record that is already
// stored is reported as OutcomeDuplicate without error.
func (l *Loader) Load(ctx context.Context, rec *models.LocationRecord) (Outcome, error) {
	rec.Locate()

	err := l.store.Insert(ctx, rec)
	switch {
	case err == nil:
		return OutcomeInserted, nil
	case errors.Is(err, repository.ErrDuplicate):
		l.log.Debug().Str("geonameid", rec.ID).Msg("record already stored")
		return OutcomeDuplicate, nil
	default:
		return OutcomeFailed, fmt.Errorf("service: failed to load %s: %w", rec.ID, err)
	}
}

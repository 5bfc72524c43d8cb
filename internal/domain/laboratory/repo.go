package laboratory

import (
	"context"

	"github.com/google/uuid"
)

type LabFilter struct {
	Name     string
	IsActive *bool
	Ordering string
}

type TestFilter struct {
	LabID    *uuid.UUID
	IsActive *bool
	Ordering string
}

type ScoreFilter struct {
	TestID            *uuid.UUID
	IndicatorMetricID *uuid.UUID
	IsActive          *bool
	Ordering          string
}

type LabRepository interface {
	Create(ctx context.Context, l *Lab) error
	GetByID(ctx context.Context, id uuid.UUID) (*Lab, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Update(ctx context.Context, l *Lab) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f LabFilter, limit, offset int) ([]*Lab, int, error)
}

type TestRepository interface {
	Create(ctx context.Context, t *Test) error
	GetByID(ctx context.Context, id uuid.UUID) (*Test, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Update(ctx context.Context, t *Test) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f TestFilter, limit, offset int) ([]*Test, int, error)
}

type ScoreRepository interface {
	Create(ctx context.Context, s *Score) error
	GetByID(ctx context.Context, id uuid.UUID) (*Score, error)
	Update(ctx context.Context, s *Score) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ScoreFilter, limit, offset int) ([]*Score, int, error)
	// Details returns the scores of the given tests joined for the
	// test-result view, newest first.
	Details(ctx context.Context, testIDs []uuid.UUID) ([]*ScoreDetail, error)
}

// IndicatorMetricLookup checks references into the catalog.
type IndicatorMetricLookup interface {
	IndicatorMetricExists(ctx context.Context, id uuid.UUID) (bool, error)
}

package catalog

import (
	"context"

	"github.com/google/uuid"
)

// NameFilter narrows the Indicator and Metric lists.
type NameFilter struct {
	Name     string
	IsActive *bool
	Ordering string
}

type IndicatorMetricFilter struct {
	IndicatorID *uuid.UUID
	MetricID    *uuid.UUID
	IsActive    *bool
	Ordering    string
}

type ReferenceFilter struct {
	IndicatorMetricID *uuid.UUID
	IsActive          *bool
	Ordering          string
}

type IndicatorRepository interface {
	Create(ctx context.Context, ind *Indicator) error
	GetByID(ctx context.Context, id uuid.UUID) (*Indicator, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Update(ctx context.Context, ind *Indicator) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f NameFilter, limit, offset int) ([]*Indicator, int, error)
}

type MetricRepository interface {
	Create(ctx context.Context, m *Metric) error
	GetByID(ctx context.Context, id uuid.UUID) (*Metric, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Update(ctx context.Context, m *Metric) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f NameFilter, limit, offset int) ([]*Metric, int, error)
}

type IndicatorMetricRepository interface {
	Create(ctx context.Context, im *IndicatorMetric) error
	GetByID(ctx context.Context, id uuid.UUID) (*IndicatorMetric, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Update(ctx context.Context, im *IndicatorMetric) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f IndicatorMetricFilter, limit, offset int) ([]*IndicatorMetric, int, error)
}

type ReferenceRepository interface {
	Create(ctx context.Context, ref *Reference) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reference, error)
	Update(ctx context.Context, ref *Reference) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ReferenceFilter, limit, offset int) ([]*Reference, int, error)
}

package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/labdata/labdata/internal/platform/apierr"
	"github.com/labdata/labdata/internal/platform/db"
)

type Service struct {
	indicators       IndicatorRepository
	metrics          MetricRepository
	indicatorMetrics IndicatorMetricRepository
	references       ReferenceRepository
	inTx             db.TxFunc
}

func NewService(ind IndicatorRepository, m MetricRepository, im IndicatorMetricRepository, ref ReferenceRepository) *Service {
	return &Service{
		indicators:       ind,
		metrics:          m,
		indicatorMetrics: im,
		references:       ref,
		inTx:             db.NoTx,
	}
}

// SetTransactor makes read-modify-write updates run in one transaction.
func (s *Service) SetTransactor(tx db.TxFunc) {
	s.inTx = tx
}

// IndicatorMetricExists reports whether id names a stored IndicatorMetric.
func (s *Service) IndicatorMetricExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.indicatorMetrics.Exists(ctx, id)
}

// -- Indicator --

func (s *Service) CreateIndicator(ctx context.Context, in IndicatorInput) (*Indicator, error) {
	ind := &Indicator{IsActive: true}
	v := apierr.NewValidation()
	in.apply(ind, v)
	if err := ind.validate(v); err != nil {
		return nil, err
	}
	if err := s.indicators.Create(ctx, ind); err != nil {
		return nil, err
	}
	return ind, nil
}

func (s *Service) GetIndicator(ctx context.Context, id uuid.UUID) (*Indicator, error) {
	return s.indicators.GetByID(ctx, id)
}

// UpdateIndicator replaces every writable field, or with partial set only
// the supplied ones.
func (s *Service) UpdateIndicator(ctx context.Context, id uuid.UUID, in IndicatorInput, partial bool) (*Indicator, error) {
	var out *Indicator
	err := s.inTx(ctx, func(ctx context.Context) error {
		cur, err := s.indicators.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !partial {
			cur = &Indicator{ID: cur.ID, IsActive: true, CreatedAt: cur.CreatedAt}
		}
		v := apierr.NewValidation()
		in.apply(cur, v)
		if err := cur.validate(v); err != nil {
			return err
		}
		if err := s.indicators.Update(ctx, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	return out, err
}

func (s *Service) DeleteIndicator(ctx context.Context, id uuid.UUID) error {
	return s.indicators.Delete(ctx, id)
}

func (s *Service) ListIndicators(ctx context.Context, f NameFilter, limit, offset int) ([]*Indicator, int, error) {
	return s.indicators.List(ctx, f, limit, offset)
}

// -- Metric --

func (s *Service) CreateMetric(ctx context.Context, in MetricInput) (*Metric, error) {
	m := &Metric{IsActive: true}
	v := apierr.NewValidation()
	in.apply(m, v)
	if err := m.validate(v); err != nil {
		return nil, err
	}
	if err := s.metrics.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) GetMetric(ctx context.Context, id uuid.UUID) (*Metric, error) {
	return s.metrics.GetByID(ctx, id)
}

func (s *Service) UpdateMetric(ctx context.Context, id uuid.UUID, in MetricInput, partial bool) (*Metric, error) {
	var out *Metric
	err := s.inTx(ctx, func(ctx context.Context) error {
		cur, err := s.metrics.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !partial {
			cur = &Metric{ID: cur.ID, IsActive: true, CreatedAt: cur.CreatedAt}
		}
		v := apierr.NewValidation()
		in.apply(cur, v)
		if err := cur.validate(v); err != nil {
			return err
		}
		if err := s.metrics.Update(ctx, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	return out, err
}

func (s *Service) DeleteMetric(ctx context.Context, id uuid.UUID) error {
	return s.metrics.Delete(ctx, id)
}

func (s *Service) ListMetrics(ctx context.Context, f NameFilter, limit, offset int) ([]*Metric, int, error) {
	return s.metrics.List(ctx, f, limit, offset)
}

// -- IndicatorMetric --

func (s *Service) CreateIndicatorMetric(ctx context.Context, in IndicatorMetricInput) (*IndicatorMetric, error) {
	im := &IndicatorMetric{IsActive: true}
	if err := s.prepareIndicatorMetric(ctx, im, in); err != nil {
		return nil, err
	}
	if err := s.indicatorMetrics.Create(ctx, im); err != nil {
		return nil, err
	}
	return im, nil
}

func (s *Service) GetIndicatorMetric(ctx context.Context, id uuid.UUID) (*IndicatorMetric, error) {
	return s.indicatorMetrics.GetByID(ctx, id)
}

func (s *Service) UpdateIndicatorMetric(ctx context.Context, id uuid.UUID, in IndicatorMetricInput, partial bool) (*IndicatorMetric, error) {
	var out *IndicatorMetric
	err := s.inTx(ctx, func(ctx context.Context) error {
		cur, err := s.indicatorMetrics.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !partial {
			cur = &IndicatorMetric{ID: cur.ID, IsActive: true, CreatedAt: cur.CreatedAt}
		}
		if err := s.prepareIndicatorMetric(ctx, cur, in); err != nil {
			return err
		}
		if err := s.indicatorMetrics.Update(ctx, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	return out, err
}

func (s *Service) prepareIndicatorMetric(ctx context.Context, im *IndicatorMetric, in IndicatorMetricInput) error {
	v := apierr.NewValidation()
	in.apply(im, v)
	im.validate(v)
	if err := v.Err(); err != nil {
		return err
	}
	if ok, err := s.indicators.Exists(ctx, im.IndicatorID); err != nil {
		return err
	} else if !ok {
		v.Add("indicator_id", "indicator not found")
	}
	if ok, err := s.metrics.Exists(ctx, im.MetricID); err != nil {
		return err
	} else if !ok {
		v.Add("metric_id", "metric not found")
	}
	return v.Err()
}

func (s *Service) DeleteIndicatorMetric(ctx context.Context, id uuid.UUID) error {
	return s.indicatorMetrics.Delete(ctx, id)
}

func (s *Service) ListIndicatorMetrics(ctx context.Context, f IndicatorMetricFilter, limit, offset int) ([]*IndicatorMetric, int, error) {
	return s.indicatorMetrics.List(ctx, f, limit, offset)
}

// -- Reference --

func (s *Service) CreateReference(ctx context.Context, in ReferenceInput) (*Reference, error) {
	ref := &Reference{IsActive: true}
	if err := s.prepareReference(ctx, ref, in, true); err != nil {
		return nil, err
	}
	if err := s.references.Create(ctx, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

func (s *Service) GetReference(ctx context.Context, id uuid.UUID) (*Reference, error) {
	return s.references.GetByID(ctx, id)
}

func (s *Service) UpdateReference(ctx context.Context, id uuid.UUID, in ReferenceInput, partial bool) (*Reference, error) {
	var out *Reference
	err := s.inTx(ctx, func(ctx context.Context) error {
		cur, err := s.references.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !partial {
			cur = &Reference{ID: cur.ID, IsActive: true, CreatedAt: cur.CreatedAt}
		}
		if err := s.prepareReference(ctx, cur, in, !partial); err != nil {
			return err
		}
		if err := s.references.Update(ctx, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	return out, err
}

// prepareReference applies in to ref and validates the result. fresh marks
// an entity built from scratch, on which both bounds are required.
func (s *Service) prepareReference(ctx context.Context, ref *Reference, in ReferenceInput, fresh bool) error {
	v := apierr.NewValidation()
	hasMin, hasMax := in.apply(ref, v)
	if fresh && !hasMin {
		v.Required("min_score")
	}
	if fresh && !hasMax {
		v.Required("max_score")
	}
	ref.validate(v)
	if err := v.Err(); err != nil {
		return err
	}
	ok, err := s.indicatorMetrics.Exists(ctx, ref.IndicatorMetricID)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.Field("indicator_metric_id", "indicator metric not found")
	}
	return nil
}

func (s *Service) DeleteReference(ctx context.Context, id uuid.UUID) error {
	return s.references.Delete(ctx, id)
}

func (s *Service) ListReferences(ctx context.Context, f ReferenceFilter, limit, offset int) ([]*Reference, int, error) {
	return s.references.List(ctx, f, limit, offset)
}

package laboratory

import (
	"context"

	"github.com/google/uuid"

	"github.com/labdata/labdata/internal/platform/apierr"
	"github.com/labdata/labdata/internal/platform/db"
)

type Service struct {
	labs    LabRepository
	tests   TestRepository
	scores  ScoreRepository
	catalog IndicatorMetricLookup
	inTx    db.TxFunc
}

func NewService(labs LabRepository, tests TestRepository, scores ScoreRepository, catalog IndicatorMetricLookup) *Service {
	return &Service{
		labs:    labs,
		tests:   tests,
		scores:  scores,
		catalog: catalog,
		inTx:    db.NoTx,
	}
}

// SetTransactor makes read-modify-write updates run in one transaction.
func (s *Service) SetTransactor(tx db.TxFunc) {
	s.inTx = tx
}

// -- Lab --

func (s *Service) CreateLab(ctx context.Context, in LabInput) (*Lab, error) {
	l := &Lab{IsActive: true}
	in.apply(l)
	if err := l.validate(); err != nil {
		return nil, err
	}
	if err := s.labs.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) GetLab(ctx context.Context, id uuid.UUID) (*Lab, error) {
	return s.labs.GetByID(ctx, id)
}

// UpdateLab replaces every writable field, or with partial set only the
// supplied ones.
func (s *Service) UpdateLab(ctx context.Context, id uuid.UUID, in LabInput, partial bool) (*Lab, error) {
	var out *Lab
	err := s.inTx(ctx, func(ctx context.Context) error {
		cur, err := s.labs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !partial {
			cur = &Lab{ID: cur.ID, IsActive: true, CreatedAt: cur.CreatedAt}
		}
		in.apply(cur)
		if err := cur.validate(); err != nil {
			return err
		}
		if err := s.labs.Update(ctx, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	return out, err
}

func (s *Service) DeleteLab(ctx context.Context, id uuid.UUID) error {
	return s.labs.Delete(ctx, id)
}

func (s *Service) ListLabs(ctx context.Context, f LabFilter, limit, offset int) ([]*Lab, int, error) {
	return s.labs.List(ctx, f, limit, offset)
}

// -- Test --

func (s *Service) CreateTest(ctx context.Context, in TestInput) (*Test, error) {
	t := &Test{IsActive: true}
	if err := s.prepareTest(ctx, t, in); err != nil {
		return nil, err
	}
	if err := s.tests.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) GetTest(ctx context.Context, id uuid.UUID) (*Test, error) {
	return s.tests.GetByID(ctx, id)
}

func (s *Service) UpdateTest(ctx context.Context, id uuid.UUID, in TestInput, partial bool) (*Test, error) {
	var out *Test
	err := s.inTx(ctx, func(ctx context.Context) error {
		cur, err := s.tests.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !partial {
			cur = &Test{ID: cur.ID, IsActive: true, CreatedAt: cur.CreatedAt}
		}
		if err := s.prepareTest(ctx, cur, in); err != nil {
			return err
		}
		if err := s.tests.Update(ctx, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	return out, err
}

func (s *Service) prepareTest(ctx context.Context, t *Test, in TestInput) error {
	v := apierr.NewValidation()
	in.apply(t, v)
	t.validate(v)
	if err := v.Err(); err != nil {
		return err
	}
	ok, err := s.labs.Exists(ctx, t.LabID)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.Field("lab_id", "lab not found")
	}
	return nil
}

func (s *Service) DeleteTest(ctx context.Context, id uuid.UUID) error {
	return s.tests.Delete(ctx, id)
}

func (s *Service) ListTests(ctx context.Context, f TestFilter, limit, offset int) ([]*Test, int, error) {
	return s.tests.List(ctx, f, limit, offset)
}

// -- Score --

func (s *Service) CreateScore(ctx context.Context, in ScoreInput) (*Score, error) {
	sc := &Score{IsActive: true}
	if err := s.prepareScore(ctx, sc, in, true); err != nil {
		return nil, err
	}
	if err := s.scores.Create(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *Service) GetScore(ctx context.Context, id uuid.UUID) (*Score, error) {
	return s.scores.GetByID(ctx, id)
}

func (s *Service) UpdateScore(ctx context.Context, id uuid.UUID, in ScoreInput, partial bool) (*Score, error) {
	var out *Score
	err := s.inTx(ctx, func(ctx context.Context) error {
		cur, err := s.scores.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !partial {
			cur = &Score{ID: cur.ID, IsActive: true, CreatedAt: cur.CreatedAt}
		}
		if err := s.prepareScore(ctx, cur, in, !partial); err != nil {
			return err
		}
		if err := s.scores.Update(ctx, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	return out, err
}

// prepareScore applies in to sc and validates the result. fresh marks an
// entity built from scratch, on which the score value is required.
func (s *Service) prepareScore(ctx context.Context, sc *Score, in ScoreInput, fresh bool) error {
	v := apierr.NewValidation()
	if hasScore := in.apply(sc, v); fresh && !hasScore {
		v.Required("score")
	}
	sc.validate(v)
	if err := v.Err(); err != nil {
		return err
	}
	ok, err := s.tests.Exists(ctx, sc.TestID)
	if err != nil {
		return err
	}
	if !ok {
		v.Add("test_id", "test not found")
	}
	ok, err = s.catalog.IndicatorMetricExists(ctx, sc.IndicatorMetricID)
	if err != nil {
		return err
	}
	if !ok {
		v.Add("indicator_metric_id", "indicator metric not found")
	}
	return v.Err()
}

func (s *Service) DeleteScore(ctx context.Context, id uuid.UUID) error {
	return s.scores.Delete(ctx, id)
}

func (s *Service) ListScores(ctx context.Context, f ScoreFilter, limit, offset int) ([]*Score, int, error) {
	return s.scores.List(ctx, f, limit, offset)
}

// -- Test results --

// GetTestResult returns the composed read view of one test.
func (s *Service) GetTestResult(ctx context.Context, id uuid.UUID) (*TestResult, error) {
	t, err := s.tests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.scores.Details(ctx, []uuid.UUID{t.ID})
	if err != nil {
		return nil, err
	}
	return NewTestResult(t, details), nil
}

// ListTestResults returns one page of test results. Scores for the whole
// page are loaded with a single query.
func (s *Service) ListTestResults(ctx context.Context, f TestFilter, limit, offset int) ([]*TestResult, int, error) {
	tests, total, err := s.tests.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uuid.UUID, len(tests))
	for i, t := range tests {
		ids[i] = t.ID
	}
	details, err := s.scores.Details(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	byTest := make(map[uuid.UUID][]*ScoreDetail, len(tests))
	for _, d := range details {
		byTest[d.TestID] = append(byTest[d.TestID], d)
	}

	out := make([]*TestResult, 0, len(tests))
	for _, t := range tests {
		out = append(out, NewTestResult(t, byTest[t.ID]))
	}
	return out, total, nil
}

package laboratory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labdata/labdata/internal/platform/apierr"
	"github.com/labdata/labdata/internal/platform/db"
	"github.com/labdata/labdata/pkg/sqlquery"
)

const defaultOrder = "created_at DESC, id DESC"

func exists(ctx context.Context, conn db.Querier, table string, id uuid.UUID) (bool, error) {
	var found bool
	err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", table, err)
	}
	return found, nil
}

func deleteByID(ctx context.Context, conn db.Querier, table string, id uuid.UUID) error {
	tag, err := conn.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.ErrNotFound
	}
	return nil
}

// -- Lab --

type labRepoPG struct{ pool *pgxpool.Pool }

func NewLabRepoPG(pool *pgxpool.Pool) LabRepository {
	return &labRepoPG{pool: pool}
}

func (r *labRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const labCols = `id, name, is_active, created_at, updated_at`

func scanLab(row pgx.Row) (*Lab, error) {
	var l Lab
	err := row.Scan(&l.ID, &l.Name, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	return &l, err
}

func (r *labRepoPG) Create(ctx context.Context, l *Lab) error {
	l.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO labs (id, name, is_active)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		l.ID, l.Name, l.IsActive).Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert lab: %w", err)
	}
	return nil
}

func (r *labRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Lab, error) {
	l, err := scanLab(r.conn(ctx).QueryRow(ctx, `SELECT `+labCols+` FROM labs WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError("labs", err)
	}
	return l, nil
}

func (r *labRepoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.conn(ctx), "labs", id)
}

func (r *labRepoPG) Update(ctx context.Context, l *Lab) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE labs SET name = $2, is_active = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		l.ID, l.Name, l.IsActive).Scan(&l.UpdatedAt)
	if err != nil {
		return db.TranslateError("labs", err)
	}
	return nil
}

// Delete removes the lab; its tests and their scores go with it through
// ON DELETE CASCADE.
func (r *labRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.conn(ctx), "labs", id)
}

func (r *labRepoPG) List(ctx context.Context, f LabFilter, limit, offset int) ([]*Lab, int, error) {
	q := sqlquery.New("labs", labCols)
	if f.Name != "" {
		q.Contains("name", f.Name)
	}
	if f.IsActive != nil {
		q.Eq("is_active", *f.IsActive)
	}
	q.ApplySort(f.Ordering, defaultOrder, map[string]string{
		"name":       "name",
		"created_at": "created_at",
		"updated_at": "updated_at",
	})
	return db.Page(ctx, r.conn(ctx), q, limit, offset, scanLab)
}

// -- Test --

type testRepoPG struct{ pool *pgxpool.Pool }

func NewTestRepoPG(pool *pgxpool.Pool) TestRepository {
	return &testRepoPG{pool: pool}
}

func (r *testRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const testCols = `id, started_at, completed_at, comment, lab_id, is_active, created_at, updated_at`

func scanTest(row pgx.Row) (*Test, error) {
	var t Test
	err := row.Scan(&t.ID, &t.StartedAt, &t.CompletedAt, &t.Comment, &t.LabID, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *testRepoPG) Create(ctx context.Context, t *Test) error {
	t.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO tests (id, started_at, completed_at, comment, lab_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		t.ID, t.StartedAt, t.CompletedAt, t.Comment, t.LabID, t.IsActive).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return db.TranslateError("tests", err)
	}
	return nil
}

func (r *testRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Test, error) {
	t, err := scanTest(r.conn(ctx).QueryRow(ctx, `SELECT `+testCols+` FROM tests WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError("tests", err)
	}
	return t, nil
}

func (r *testRepoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.conn(ctx), "tests", id)
}

func (r *testRepoPG) Update(ctx context.Context, t *Test) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE tests
		SET started_at = $2, completed_at = $3, comment = $4, lab_id = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		t.ID, t.StartedAt, t.CompletedAt, t.Comment, t.LabID, t.IsActive).Scan(&t.UpdatedAt)
	if err != nil {
		return db.TranslateError("tests", err)
	}
	return nil
}

func (r *testRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.conn(ctx), "tests", id)
}

func (r *testRepoPG) List(ctx context.Context, f TestFilter, limit, offset int) ([]*Test, int, error) {
	q := sqlquery.New("tests", testCols)
	if f.LabID != nil {
		q.Eq("lab_id", *f.LabID)
	}
	if f.IsActive != nil {
		q.Eq("is_active", *f.IsActive)
	}
	q.ApplySort(f.Ordering, defaultOrder, map[string]string{
		"started_at":   "started_at",
		"completed_at": "completed_at",
		"created_at":   "created_at",
		"updated_at":   "updated_at",
	})
	return db.Page(ctx, r.conn(ctx), q, limit, offset, scanTest)
}

// -- Score --

type scoreRepoPG struct{ pool *pgxpool.Pool }

func NewScoreRepoPG(pool *pgxpool.Pool) ScoreRepository {
	return &scoreRepoPG{pool: pool}
}

func (r *scoreRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const scoreCols = `id, score, test_id, indicator_metric_id, is_active, created_at, updated_at`

func scanScore(row pgx.Row) (*Score, error) {
	var s Score
	err := row.Scan(&s.ID, &s.Score, &s.TestID, &s.IndicatorMetricID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *scoreRepoPG) Create(ctx context.Context, s *Score) error {
	s.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO scores (id, score, test_id, indicator_metric_id, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		s.ID, s.Score, s.TestID, s.IndicatorMetricID, s.IsActive).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return db.TranslateError("scores", err)
	}
	return nil
}

func (r *scoreRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Score, error) {
	s, err := scanScore(r.conn(ctx).QueryRow(ctx, `SELECT `+scoreCols+` FROM scores WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError("scores", err)
	}
	return s, nil
}

func (r *scoreRepoPG) Update(ctx context.Context, s *Score) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE scores
		SET score = $2, test_id = $3, indicator_metric_id = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.Score, s.TestID, s.IndicatorMetricID, s.IsActive).Scan(&s.UpdatedAt)
	if err != nil {
		return db.TranslateError("scores", err)
	}
	return nil
}

func (r *scoreRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.conn(ctx), "scores", id)
}

func (r *scoreRepoPG) List(ctx context.Context, f ScoreFilter, limit, offset int) ([]*Score, int, error) {
	q := sqlquery.New("scores", scoreCols)
	if f.TestID != nil {
		q.Eq("test_id", *f.TestID)
	}
	if f.IndicatorMetricID != nil {
		q.Eq("indicator_metric_id", *f.IndicatorMetricID)
	}
	if f.IsActive != nil {
		q.Eq("is_active", *f.IsActive)
	}
	q.ApplySort(f.Ordering, defaultOrder, map[string]string{
		"score":      "score",
		"created_at": "created_at",
		"updated_at": "updated_at",
	})
	return db.Page(ctx, r.conn(ctx), q, limit, offset, scanScore)
}

// The newest reference range of the score's indicator metric decides the
// in-range flag.
const scoreDetailsSQL = `
	SELECT s.test_id, s.id, s.score, i.name, m.name, m.unit, ref.min_score, ref.max_score
	FROM scores s
	JOIN indicator_metrics im ON im.id = s.indicator_metric_id
	JOIN indicators i ON i.id = im.indicator_id
	JOIN metrics m ON m.id = im.metric_id
	LEFT JOIN LATERAL (
		SELECT r.min_score, r.max_score
		FROM reference_ranges r
		WHERE r.indicator_metric_id = s.indicator_metric_id
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT 1
	) ref ON TRUE
	WHERE s.test_id = ANY($1)
	ORDER BY s.created_at DESC, s.id DESC`

func (r *scoreRepoPG) Details(ctx context.Context, testIDs []uuid.UUID) ([]*ScoreDetail, error) {
	if len(testIDs) == 0 {
		return nil, nil
	}
	rows, err := r.conn(ctx).Query(ctx, scoreDetailsSQL, testIDs)
	if err != nil {
		return nil, fmt.Errorf("query score details: %w", err)
	}
	defer rows.Close()

	var out []*ScoreDetail
	for rows.Next() {
		var d ScoreDetail
		if err := rows.Scan(&d.TestID, &d.ScoreID, &d.Score, &d.IndicatorName,
			&d.MetricName, &d.MetricUnit, &d.MinScore, &d.MaxScore); err != nil {
			return nil, fmt.Errorf("scan score detail: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

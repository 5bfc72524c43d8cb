package catalog

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

var nameSortFields = map[string]string{
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

var timeSortFields = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
}

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

// -- Indicator --

type indicatorRepoPG struct{ pool *pgxpool.Pool }

func NewIndicatorRepoPG(pool *pgxpool.Pool) IndicatorRepository {
	return &indicatorRepoPG{pool: pool}
}

func (r *indicatorRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const indicatorCols = `id, name, description, is_active, created_at, updated_at`

func scanIndicator(row pgx.Row) (*Indicator, error) {
	var ind Indicator
	err := row.Scan(&ind.ID, &ind.Name, &ind.Description, &ind.IsActive, &ind.CreatedAt, &ind.UpdatedAt)
	return &ind, err
}

func (r *indicatorRepoPG) Create(ctx context.Context, ind *Indicator) error {
	ind.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO indicators (id, name, description, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		ind.ID, ind.Name, ind.Description, ind.IsActive).Scan(&ind.CreatedAt, &ind.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert indicator: %w", err)
	}
	return nil
}

func (r *indicatorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Indicator, error) {
	ind, err := scanIndicator(r.conn(ctx).QueryRow(ctx, `SELECT `+indicatorCols+` FROM indicators WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError("indicators", err)
	}
	return ind, nil
}

func (r *indicatorRepoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.conn(ctx), "indicators", id)
}

func (r *indicatorRepoPG) Update(ctx context.Context, ind *Indicator) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE indicators SET name = $2, description = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		ind.ID, ind.Name, ind.Description, ind.IsActive).Scan(&ind.UpdatedAt)
	if err != nil {
		return db.TranslateError("indicators", err)
	}
	return nil
}

func (r *indicatorRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.conn(ctx), "indicators", id)
}

func (r *indicatorRepoPG) List(ctx context.Context, f NameFilter, limit, offset int) ([]*Indicator, int, error) {
	q := sqlquery.New("indicators", indicatorCols)
	if f.Name != "" {
		q.Contains("name", f.Name)
	}
	if f.IsActive != nil {
		q.Eq("is_active", *f.IsActive)
	}
	q.ApplySort(f.Ordering, defaultOrder, nameSortFields)
	return db.Page(ctx, r.conn(ctx), q, limit, offset, scanIndicator)
}

// -- Metric --

type metricRepoPG struct{ pool *pgxpool.Pool }

func NewMetricRepoPG(pool *pgxpool.Pool) MetricRepository {
	return &metricRepoPG{pool: pool}
}

func (r *metricRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const metricCols = `id, name, description, unit, is_active, created_at, updated_at`

func scanMetric(row pgx.Row) (*Metric, error) {
	var m Metric
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Unit, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *metricRepoPG) Create(ctx context.Context, m *Metric) error {
	m.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO metrics (id, name, description, unit, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		m.ID, m.Name, m.Description, m.Unit, m.IsActive).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert metric: %w", err)
	}
	return nil
}

func (r *metricRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Metric, error) {
	m, err := scanMetric(r.conn(ctx).QueryRow(ctx, `SELECT `+metricCols+` FROM metrics WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError("metrics", err)
	}
	return m, nil
}

func (r *metricRepoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.conn(ctx), "metrics", id)
}

func (r *metricRepoPG) Update(ctx context.Context, m *Metric) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE metrics SET name = $2, description = $3, unit = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		m.ID, m.Name, m.Description, m.Unit, m.IsActive).Scan(&m.UpdatedAt)
	if err != nil {
		return db.TranslateError("metrics", err)
	}
	return nil
}

func (r *metricRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.conn(ctx), "metrics", id)
}

func (r *metricRepoPG) List(ctx context.Context, f NameFilter, limit, offset int) ([]*Metric, int, error) {
	q := sqlquery.New("metrics", metricCols)
	if f.Name != "" {
		q.Contains("name", f.Name)
	}
	if f.IsActive != nil {
		q.Eq("is_active", *f.IsActive)
	}
	q.ApplySort(f.Ordering, defaultOrder, nameSortFields)
	return db.Page(ctx, r.conn(ctx), q, limit, offset, scanMetric)
}

// -- IndicatorMetric --

type indicatorMetricRepoPG struct{ pool *pgxpool.Pool }

func NewIndicatorMetricRepoPG(pool *pgxpool.Pool) IndicatorMetricRepository {
	return &indicatorMetricRepoPG{pool: pool}
}

func (r *indicatorMetricRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const indicatorMetricCols = `id, indicator_id, metric_id, is_active, created_at, updated_at`

func scanIndicatorMetric(row pgx.Row) (*IndicatorMetric, error) {
	var im IndicatorMetric
	err := row.Scan(&im.ID, &im.IndicatorID, &im.MetricID, &im.IsActive, &im.CreatedAt, &im.UpdatedAt)
	return &im, err
}

func (r *indicatorMetricRepoPG) Create(ctx context.Context, im *IndicatorMetric) error {
	im.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO indicator_metrics (id, indicator_id, metric_id, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		im.ID, im.IndicatorID, im.MetricID, im.IsActive).Scan(&im.CreatedAt, &im.UpdatedAt)
	if err != nil {
		return db.TranslateError("indicator_metrics", err)
	}
	return nil
}

func (r *indicatorMetricRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*IndicatorMetric, error) {
	im, err := scanIndicatorMetric(r.conn(ctx).QueryRow(ctx, `SELECT `+indicatorMetricCols+` FROM indicator_metrics WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError("indicator_metrics", err)
	}
	return im, nil
}

func (r *indicatorMetricRepoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.conn(ctx), "indicator_metrics", id)
}

func (r *indicatorMetricRepoPG) Update(ctx context.Context, im *IndicatorMetric) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE indicator_metrics SET indicator_id = $2, metric_id = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		im.ID, im.IndicatorID, im.MetricID, im.IsActive).Scan(&im.UpdatedAt)
	if err != nil {
		return db.TranslateError("indicator_metrics", err)
	}
	return nil
}

func (r *indicatorMetricRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.conn(ctx), "indicator_metrics", id)
}

func (r *indicatorMetricRepoPG) List(ctx context.Context, f IndicatorMetricFilter, limit, offset int) ([]*IndicatorMetric, int, error) {
	q := sqlquery.New("indicator_metrics", indicatorMetricCols)
	if f.IndicatorID != nil {
		q.Eq("indicator_id", *f.IndicatorID)
	}
	if f.MetricID != nil {
		q.Eq("metric_id", *f.MetricID)
	}
	if f.IsActive != nil {
		q.Eq("is_active", *f.IsActive)
	}
	q.ApplySort(f.Ordering, defaultOrder, timeSortFields)
	return db.Page(ctx, r.conn(ctx), q, limit, offset, scanIndicatorMetric)
}

// -- Reference --

type referenceRepoPG struct{ pool *pgxpool.Pool }

func NewReferenceRepoPG(pool *pgxpool.Pool) ReferenceRepository {
	return &referenceRepoPG{pool: pool}
}

func (r *referenceRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const referenceCols = `id, min_score, max_score, indicator_metric_id, is_active, created_at, updated_at`

func scanReference(row pgx.Row) (*Reference, error) {
	var ref Reference
	err := row.Scan(&ref.ID, &ref.MinScore, &ref.MaxScore, &ref.IndicatorMetricID, &ref.IsActive, &ref.CreatedAt, &ref.UpdatedAt)
	return &ref, err
}

func referenceError(err error) error {
	if _, ok := db.CheckViolation(err); ok {
		return apierr.Field("max_score", "must be greater than or equal to min_score")
	}
	return db.TranslateError("reference_ranges", err)
}

func (r *referenceRepoPG) Create(ctx context.Context, ref *Reference) error {
	ref.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO reference_ranges (id, min_score, max_score, indicator_metric_id, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		ref.ID, ref.MinScore, ref.MaxScore, ref.IndicatorMetricID, ref.IsActive).Scan(&ref.CreatedAt, &ref.UpdatedAt)
	if err != nil {
		return referenceError(err)
	}
	return nil
}

func (r *referenceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Reference, error) {
	ref, err := scanReference(r.conn(ctx).QueryRow(ctx, `SELECT `+referenceCols+` FROM reference_ranges WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError("reference_ranges", err)
	}
	return ref, nil
}

func (r *referenceRepoPG) Update(ctx context.Context, ref *Reference) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE reference_ranges
		SET min_score = $2, max_score = $3, indicator_metric_id = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		ref.ID, ref.MinScore, ref.MaxScore, ref.IndicatorMetricID, ref.IsActive).Scan(&ref.UpdatedAt)
	if err != nil {
		return referenceError(err)
	}
	return nil
}

func (r *referenceRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.conn(ctx), "reference_ranges", id)
}

func (r *referenceRepoPG) List(ctx context.Context, f ReferenceFilter, limit, offset int) ([]*Reference, int, error) {
	q := sqlquery.New("reference_ranges", referenceCols)
	if f.IndicatorMetricID != nil {
		q.Eq("indicator_metric_id", *f.IndicatorMetricID)
	}
	if f.IsActive != nil {
		q.Eq("is_active", *f.IsActive)
	}
	q.ApplySort(f.Ordering, defaultOrder, map[string]string{
		"min_score":  "min_score",
		"max_score":  "max_score",
		"created_at": "created_at",
		"updated_at": "updated_at",
	})
	return db.Page(ctx, r.conn(ctx), q, limit, offset, scanReference)
}

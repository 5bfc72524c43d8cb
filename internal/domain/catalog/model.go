package catalog

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labdata/labdata/internal/platform/apierr"
	"github.com/labdata/labdata/internal/platform/reqparam"
	"github.com/labdata/labdata/pkg/fixedpoint"
)

const maxNameLength = 255

// Indicator is a named property being measured, e.g. a compound.
type Indicator struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Metric is a unit of measurement definition.
type Metric struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Unit        string    `json:"unit"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IndicatorMetric pairs one Indicator with one Metric.
type IndicatorMetric struct {
	ID          uuid.UUID `json:"id"`
	IndicatorID uuid.UUID `json:"indicator_id"`
	MetricID    uuid.UUID `json:"metric_id"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Reference is the normal range of an IndicatorMetric.
type Reference struct {
	ID                uuid.UUID          `json:"id"`
	MinScore          fixedpoint.Decimal `json:"min_score"`
	MaxScore          fixedpoint.Decimal `json:"max_score"`
	IndicatorMetricID uuid.UUID          `json:"indicator_metric_id"`
	IsActive          bool               `json:"is_active"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// -- Write payloads --
//
// Nil fields are absent from the request body. Create and full update apply
// them to a fresh entity, partial update to the stored one.

type IndicatorInput struct {
	Name *string `json:"name"`
	// Description is kept raw so that an explicit null can clear it.
	Description json.RawMessage `json:"description"`
	IsActive    *bool           `json:"is_active"`
}

func (in IndicatorInput) apply(ind *Indicator, v *apierr.ValidationError) {
	if in.Name != nil {
		ind.Name = strings.TrimSpace(*in.Name)
	}
	reqparam.NullableStringField(v, "description", in.Description, &ind.Description)
	if in.IsActive != nil {
		ind.IsActive = *in.IsActive
	}
}

func (ind *Indicator) validate(v *apierr.ValidationError) error {
	if ind.Name == "" {
		v.Required("name")
	}
	v.MaxLength("name", ind.Name, maxNameLength)
	return v.Err()
}

type MetricInput struct {
	Name        *string         `json:"name"`
	Description json.RawMessage `json:"description"`
	Unit        *string         `json:"unit"`
	IsActive    *bool           `json:"is_active"`
}

func (in MetricInput) apply(m *Metric, v *apierr.ValidationError) {
	if in.Name != nil {
		m.Name = strings.TrimSpace(*in.Name)
	}
	reqparam.NullableStringField(v, "description", in.Description, &m.Description)
	if in.Unit != nil {
		m.Unit = strings.TrimSpace(*in.Unit)
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
}

func (m *Metric) validate(v *apierr.ValidationError) error {
	if m.Name == "" {
		v.Required("name")
	}
	v.MaxLength("name", m.Name, maxNameLength)
	if m.Unit == "" {
		v.Required("unit")
	}
	v.MaxLength("unit", m.Unit, maxNameLength)
	return v.Err()
}

type IndicatorMetricInput struct {
	IndicatorID *string `json:"indicator_id"`
	MetricID    *string `json:"metric_id"`
	IsActive    *bool   `json:"is_active"`
}

func (in IndicatorMetricInput) apply(im *IndicatorMetric, v *apierr.ValidationError) {
	if in.IndicatorID != nil {
		im.IndicatorID = reqparam.UUIDField(v, "indicator_id", *in.IndicatorID)
	}
	if in.MetricID != nil {
		im.MetricID = reqparam.UUIDField(v, "metric_id", *in.MetricID)
	}
	if in.IsActive != nil {
		im.IsActive = *in.IsActive
	}
}

func (im *IndicatorMetric) validate(v *apierr.ValidationError) {
	if im.IndicatorID == uuid.Nil {
		v.Required("indicator_id")
	}
	if im.MetricID == uuid.Nil {
		v.Required("metric_id")
	}
}

type ReferenceInput struct {
	MinScore          json.RawMessage `json:"min_score"`
	MaxScore          json.RawMessage `json:"max_score"`
	IndicatorMetricID *string         `json:"indicator_metric_id"`
	IsActive          *bool           `json:"is_active"`
}

// apply copies the supplied fields onto ref. It reports which bounds were
// present so that a fresh entity can flag the missing ones as required.
func (in ReferenceInput) apply(ref *Reference, v *apierr.ValidationError) (hasMin, hasMax bool) {
	if d, ok := reqparam.DecimalField(v, "min_score", in.MinScore); ok {
		ref.MinScore, hasMin = d, true
	}
	if d, ok := reqparam.DecimalField(v, "max_score", in.MaxScore); ok {
		ref.MaxScore, hasMax = d, true
	}
	if in.IndicatorMetricID != nil {
		ref.IndicatorMetricID = reqparam.UUIDField(v, "indicator_metric_id", *in.IndicatorMetricID)
	}
	if in.IsActive != nil {
		ref.IsActive = *in.IsActive
	}
	return hasMin, hasMax
}

func (ref *Reference) validate(v *apierr.ValidationError) {
	if ref.IndicatorMetricID == uuid.Nil {
		v.Required("indicator_metric_id")
	}
	if _, bad := v.Fields["min_score"]; bad {
		return
	}
	if _, bad := v.Fields["max_score"]; bad {
		return
	}
	if ref.MinScore.GreaterThan(ref.MaxScore.Decimal) {
		v.Add("max_score", "must be greater than or equal to min_score")
	}
}

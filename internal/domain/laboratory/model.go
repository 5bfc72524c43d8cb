package laboratory

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labdata/labdata/internal/platform/apierr"
	"github.com/labdata/labdata/internal/platform/reqparam"
	"github.com/labdata/labdata/pkg/fixedpoint"
)

const maxNameLength = 255

// Lab is the laboratory a Test is run in.
type Lab struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Test is one testing session of a Lab.
type Test struct {
	ID          uuid.UUID `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Comment     *string   `json:"comment"`
	LabID       uuid.UUID `json:"lab_id"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Score is one measurement of an IndicatorMetric within a Test.
type Score struct {
	ID                uuid.UUID          `json:"id"`
	Score             fixedpoint.Decimal `json:"score"`
	TestID            uuid.UUID          `json:"test_id"`
	IndicatorMetricID uuid.UUID          `json:"indicator_metric_id"`
	IsActive          bool               `json:"is_active"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// TestResult is the composed read view of a Test and its Scores.
type TestResult struct {
	ID              uuid.UUID   `json:"id"`
	LabID           uuid.UUID   `json:"lab_id"`
	DurationSeconds *int64      `json:"duration_seconds"`
	Results         []ResultRow `json:"results"`
}

// ResultRow is one Score of a TestResult.
type ResultRow struct {
	ID                  uuid.UUID          `json:"id"`
	Score               fixedpoint.Decimal `json:"score"`
	IndicatorName       string             `json:"indicator_name"`
	MetricName          string             `json:"metric_name"`
	MetricUnit          string             `json:"metric_unit"`
	IsWithinNormalRange *bool              `json:"is_within_normal_range"`
}

// ScoreDetail is a Score joined with its catalog names and the newest
// Reference of its IndicatorMetric. MinScore and MaxScore are nil when no
// Reference exists.
type ScoreDetail struct {
	TestID        uuid.UUID
	ScoreID       uuid.UUID
	Score         fixedpoint.Decimal
	IndicatorName string
	MetricName    string
	MetricUnit    string
	MinScore      *fixedpoint.Decimal
	MaxScore      *fixedpoint.Decimal
}

// Row renders d as a result row.
func (d *ScoreDetail) Row() ResultRow {
	return ResultRow{
		ID:                  d.ScoreID,
		Score:               d.Score,
		IndicatorName:       d.IndicatorName,
		MetricName:          d.MetricName,
		MetricUnit:          d.MetricUnit,
		IsWithinNormalRange: withinRange(d.Score, d.MinScore, d.MaxScore),
	}
}

func withinRange(score fixedpoint.Decimal, min, max *fixedpoint.Decimal) *bool {
	if min == nil || max == nil {
		return nil
	}
	in := score.Between(*min, *max)
	return &in
}

// durationSeconds is the whole number of seconds from started to
// completed, rounded down. It is nil when either time is unset.
func durationSeconds(started, completed time.Time) *int64 {
	if started.IsZero() || completed.IsZero() {
		return nil
	}
	secs := int64(math.Floor(completed.Sub(started).Seconds()))
	return &secs
}

// NewTestResult assembles the read view of t from its score details.
func NewTestResult(t *Test, details []*ScoreDetail) *TestResult {
	tr := &TestResult{
		ID:              t.ID,
		LabID:           t.LabID,
		DurationSeconds: durationSeconds(t.StartedAt, t.CompletedAt),
		Results:         make([]ResultRow, 0, len(details)),
	}
	for _, d := range details {
		tr.Results = append(tr.Results, d.Row())
	}
	return tr
}

// -- Write payloads --
//
// Nil fields are absent from the request body. Create and full update apply
// them to a fresh entity, partial update to the stored one.

type LabInput struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"is_active"`
}

func (in LabInput) apply(l *Lab) {
	if in.Name != nil {
		l.Name = strings.TrimSpace(*in.Name)
	}
	if in.IsActive != nil {
		l.IsActive = *in.IsActive
	}
}

func (l *Lab) validate() error {
	v := apierr.NewValidation()
	if l.Name == "" {
		v.Required("name")
	}
	v.MaxLength("name", l.Name, maxNameLength)
	return v.Err()
}

type TestInput struct {
	StartedAt   *string `json:"started_at"`
	CompletedAt *string `json:"completed_at"`
	// Comment is kept raw so that an explicit null can clear it.
	Comment  json.RawMessage `json:"comment"`
	LabID    *string         `json:"lab_id"`
	IsActive *bool           `json:"is_active"`
}

func (in TestInput) apply(t *Test, v *apierr.ValidationError) {
	if in.StartedAt != nil {
		t.StartedAt = reqparam.TimeField(v, "started_at", *in.StartedAt)
	}
	if in.CompletedAt != nil {
		t.CompletedAt = reqparam.TimeField(v, "completed_at", *in.CompletedAt)
	}
	reqparam.NullableStringField(v, "comment", in.Comment, &t.Comment)
	if in.LabID != nil {
		t.LabID = reqparam.UUIDField(v, "lab_id", *in.LabID)
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
}

func (t *Test) validate(v *apierr.ValidationError) {
	if t.StartedAt.IsZero() {
		v.Required("started_at")
	}
	if t.CompletedAt.IsZero() {
		v.Required("completed_at")
	}
	if t.LabID == uuid.Nil {
		v.Required("lab_id")
	}
	if !t.StartedAt.IsZero() && !t.CompletedAt.IsZero() && t.CompletedAt.Before(t.StartedAt) {
		v.Add("completed_at", "must not be before started_at")
	}
}

type ScoreInput struct {
	Score             json.RawMessage `json:"score"`
	TestID            *string         `json:"test_id"`
	IndicatorMetricID *string         `json:"indicator_metric_id"`
	IsActive          *bool           `json:"is_active"`
}

// apply copies the supplied fields onto s and reports whether a score
// value was present.
func (in ScoreInput) apply(s *Score, v *apierr.ValidationError) (hasScore bool) {
	if d, ok := reqparam.DecimalField(v, "score", in.Score); ok {
		s.Score, hasScore = d, true
	}
	if in.TestID != nil {
		s.TestID = reqparam.UUIDField(v, "test_id", *in.TestID)
	}
	if in.IndicatorMetricID != nil {
		s.IndicatorMetricID = reqparam.UUIDField(v, "indicator_metric_id", *in.IndicatorMetricID)
	}
	if in.IsActive != nil {
		s.IsActive = *in.IsActive
	}
	return hasScore
}

func (s *Score) validate(v *apierr.ValidationError) {
	if s.TestID == uuid.Nil {
		v.Required("test_id")
	}
	if s.IndicatorMetricID == uuid.Nil {
		v.Required("indicator_metric_id")
	}
}

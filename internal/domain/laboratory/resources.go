package laboratory

import "github.com/labdata/labdata/internal/platform/openapi"

// APIResources describes the laboratory routes for the schema document.
func (h *Handler) APIResources() []openapi.Resource {
	active := openapi.Param{Name: "is_active", Schema: openapi.Boolean(), Description: "Filter by active flag"}
	labFilter := openapi.Param{Name: "lab_id", Schema: openapi.UUID(), Description: "Only tests run by this lab"}

	return []openapi.Resource{
		{
			Name: "Lab",
			Path: "/labs",
			Tag:  "Laboratory",
			Properties: map[string]interface{}{
				"name":      openapi.MaxLength(maxNameLength),
				"is_active": openapi.Boolean(),
			},
			Required: []string{"name"},
			Filters: []openapi.Param{
				{Name: "name", Schema: openapi.String(), Description: "Case-insensitive substring match"},
				active,
			},
		},
		{
			Name: "Test",
			Path: "/tests",
			Tag:  "Laboratory",
			Properties: map[string]interface{}{
				"started_at":   openapi.DateTime(),
				"completed_at": openapi.DateTime(),
				"comment":      openapi.Nullable(openapi.String()),
				"lab_id":       openapi.UUID(),
				"is_active":    openapi.Boolean(),
			},
			Required: []string{"started_at", "completed_at", "lab_id"},
			Filters:  []openapi.Param{labFilter, active},
		},
		{
			Name: "Score",
			Path: "/scores",
			Tag:  "Laboratory",
			Properties: map[string]interface{}{
				"score":               openapi.Decimal(),
				"test_id":             openapi.UUID(),
				"indicator_metric_id": openapi.UUID(),
				"is_active":           openapi.Boolean(),
			},
			Required: []string{"score", "test_id", "indicator_metric_id"},
			Filters: []openapi.Param{
				{Name: "test_id", Schema: openapi.UUID()},
				{Name: "indicator_metric_id", Schema: openapi.UUID()},
				active,
			},
		},
		{
			Name:     "TestResult",
			Path:     "/test-results",
			Tag:      "Laboratory",
			ReadOnly: true,
			Properties: map[string]interface{}{
				"lab_id":           openapi.UUID(),
				"duration_seconds": openapi.Nullable(openapi.Integer()),
				"results": openapi.ArrayOf(openapi.Object(map[string]interface{}{
					"id":                     openapi.UUID(),
					"score":                  openapi.Decimal(),
					"indicator_name":         openapi.String(),
					"metric_name":            openapi.String(),
					"metric_unit":            openapi.String(),
					"is_within_normal_range": openapi.Nullable(openapi.Boolean()),
				})),
			},
			Filters: []openapi.Param{labFilter},
		},
	}
}

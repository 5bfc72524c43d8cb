package catalog

import "github.com/labdata/labdata/internal/platform/openapi"

var activeFilter = openapi.Param{Name: "is_active", Schema: openapi.Boolean(), Description: "Filter by active flag"}

// APIResources describes the catalog routes for the schema document.
func (h *Handler) APIResources() []openapi.Resource {
	nameFilters := []openapi.Param{
		{Name: "name", Schema: openapi.String(), Description: "Case-insensitive substring match"},
		activeFilter,
	}
	return []openapi.Resource{
		{
			Name: "Indicator",
			Path: "/indicators",
			Tag:  "Catalog",
			Properties: map[string]interface{}{
				"name":        openapi.MaxLength(maxNameLength),
				"description": openapi.Nullable(openapi.String()),
				"is_active":   openapi.Boolean(),
			},
			Required: []string{"name"},
			Filters:  nameFilters,
		},
		{
			Name: "Metric",
			Path: "/metrics",
			Tag:  "Catalog",
			Properties: map[string]interface{}{
				"name":        openapi.MaxLength(maxNameLength),
				"description": openapi.Nullable(openapi.String()),
				"unit":        openapi.MaxLength(maxNameLength),
				"is_active":   openapi.Boolean(),
			},
			Required: []string{"name", "unit"},
			Filters:  nameFilters,
		},
		{
			Name: "IndicatorMetric",
			Path: "/indicator-metrics",
			Tag:  "Catalog",
			Properties: map[string]interface{}{
				"indicator_id": openapi.UUID(),
				"metric_id":    openapi.UUID(),
				"is_active":    openapi.Boolean(),
			},
			Required: []string{"indicator_id", "metric_id"},
			Filters: []openapi.Param{
				{Name: "indicator_id", Schema: openapi.UUID()},
				{Name: "metric_id", Schema: openapi.UUID()},
				activeFilter,
			},
		},
		{
			Name: "Reference",
			Path: "/references",
			Tag:  "Catalog",
			Properties: map[string]interface{}{
				"min_score":           openapi.Decimal(),
				"max_score":           openapi.Decimal(),
				"indicator_metric_id": openapi.UUID(),
				"is_active":           openapi.Boolean(),
			},
			Required: []string{"min_score", "max_score", "indicator_metric_id"},
			Filters: []openapi.Param{
				{Name: "indicator_metric_id", Schema: openapi.UUID()},
				activeFilter,
			},
		},
	}
}

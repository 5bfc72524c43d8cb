package catalog

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/labdata/labdata/internal/platform/auth"
	"github.com/labdata/labdata/internal/platform/reqparam"
	"github.com/labdata/labdata/pkg/pagination"
)

type Handler struct {
	svc    *Service
	policy auth.ObjectPolicy
}

func NewHandler(svc *Service, policy auth.ObjectPolicy) *Handler {
	return &Handler{svc: svc, policy: policy}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Middleware is attached per route: a group with middleware adds a
	// catch-all that would turn 405 into 404.
	coll := auth.ReadOnlyOrAuthenticated()
	obj := auth.RequireObjectPermission(h.policy)

	api.GET("/indicators", h.ListIndicators, coll)
	api.POST("/indicators", h.CreateIndicator, coll)
	api.GET("/indicators/:id", h.GetIndicator, obj)
	api.PUT("/indicators/:id", h.UpdateIndicator, obj)
	api.PATCH("/indicators/:id", h.PatchIndicator, obj)
	api.DELETE("/indicators/:id", h.DeleteIndicator, obj)

	api.GET("/metrics", h.ListMetrics, coll)
	api.POST("/metrics", h.CreateMetric, coll)
	api.GET("/metrics/:id", h.GetMetric, obj)
	api.PUT("/metrics/:id", h.UpdateMetric, obj)
	api.PATCH("/metrics/:id", h.PatchMetric, obj)
	api.DELETE("/metrics/:id", h.DeleteMetric, obj)

	api.GET("/indicator-metrics", h.ListIndicatorMetrics, coll)
	api.POST("/indicator-metrics", h.CreateIndicatorMetric, coll)
	api.GET("/indicator-metrics/:id", h.GetIndicatorMetric, obj)
	api.PUT("/indicator-metrics/:id", h.UpdateIndicatorMetric, obj)
	api.PATCH("/indicator-metrics/:id", h.PatchIndicatorMetric, obj)
	api.DELETE("/indicator-metrics/:id", h.DeleteIndicatorMetric, obj)

	api.GET("/references", h.ListReferences, coll)
	api.POST("/references", h.CreateReference, coll)
	api.GET("/references/:id", h.GetReference, obj)
	api.PUT("/references/:id", h.UpdateReference, obj)
	api.PATCH("/references/:id", h.PatchReference, obj)
	api.DELETE("/references/:id", h.DeleteReference, obj)
}

func nameFilter(c echo.Context) (NameFilter, error) {
	active, err := reqparam.Bool(c, "is_active")
	if err != nil {
		return NameFilter{}, err
	}
	return NameFilter{
		Name:     reqparam.String(c, "name"),
		IsActive: active,
		Ordering: reqparam.String(c, "ordering"),
	}, nil
}

func listResponse(c echo.Context, pg pagination.Params, items interface{}, total int) error {
	resp := pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL)
	return c.JSON(http.StatusOK, resp)
}

// -- Indicator --

func (h *Handler) CreateIndicator(c echo.Context) error {
	var in IndicatorInput
	if err := reqparam.Bind(c, &in); err != nil {
		return err
	}
	ind, err := h.svc.CreateIndicator(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ind)
}

func (h *Handler) GetIndicator(c echo.Context) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	ind, err := h.svc.GetIndicator(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ind)
}

func (h *Handler) ListIndicators(c echo.Context) error {
	f, err := nameFilter(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListIndicators(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return listResponse(c, pg, items, total)
}

func (h *Handler) UpdateIndicator(c echo.Context) error { return h.updateIndicator(c, false) }
func (h *Handler) PatchIndicator(c echo.Context) error  { return h.updateIndicator(c, true) }

func (h *Handler) updateIndicator(c echo.Context, partial bool) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	var in IndicatorInput
	if err := reqparam.Bind(c, &in); err != nil {
		return err
	}
	ind, err := h.svc.UpdateIndicator(c.Request().Context(), id, in, partial)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ind)
}

func (h *Handler) DeleteIndicator(c echo.Context) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteIndicator(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Metric --

func (h *Handler) CreateMetric(c echo.Context) error {
	var in MetricInput
	if err := reqparam.Bind(c, &in); err != nil {
		return err
	}
	m, err := h.svc.CreateMetric(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetMetric(c echo.Context) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.GetMetric(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListMetrics(c echo.Context) error {
	f, err := nameFilter(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMetrics(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return listResponse(c, pg, items, total)
}

func (h *Handler) UpdateMetric(c echo.Context) error { return h.updateMetric(c, false) }
func (h *Handler) PatchMetric(c echo.Context) error  { return h.updateMetric(c, true) }

func (h *Handler) updateMetric(c echo.Context, partial bool) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	var in MetricInput
	if err := reqparam.Bind(c, &in); err != nil {
		return err
	}
	m, err := h.svc.UpdateMetric(c.Request().Context(), id, in, partial)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) DeleteMetric(c echo.Context) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteMetric(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- IndicatorMetric --

func (h *Handler) CreateIndicatorMetric(c echo.Context) error {
	var in IndicatorMetricInput
	if err := reqparam.Bind(c, &in); err != nil {
		return err
	}
	im, err := h.svc.CreateIndicatorMetric(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, im)
}

func (h *Handler) GetIndicatorMetric(c echo.Context) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	im, err := h.svc.GetIndicatorMetric(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, im)
}

func (h *Handler) ListIndicatorMetrics(c echo.Context) error {
	var f IndicatorMetricFilter
	var err error
	if f.IndicatorID, err = reqparam.UUID(c, "indicator_id"); err != nil {
		return err
	}
	if f.MetricID, err = reqparam.UUID(c, "metric_id"); err != nil {
		return err
	}
	if f.IsActive, err = reqparam.Bool(c, "is_active"); err != nil {
		return err
	}
	f.Ordering = reqparam.String(c, "ordering")

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListIndicatorMetrics(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return listResponse(c, pg, items, total)
}

func (h *Handler) UpdateIndicatorMetric(c echo.Context) error { return h.updateIndicatorMetric(c, false) }
func (h *Handler) PatchIndicatorMetric(c echo.Context) error  { return h.updateIndicatorMetric(c, true) }

func (h *Handler) updateIndicatorMetric(c echo.Context, partial bool) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	var in IndicatorMetricInput
	if err := reqparam.Bind(c, &in); err != nil {
		return err
	}
	im, err := h.svc.UpdateIndicatorMetric(c.Request().Context(), id, in, partial)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, im)
}

func (h *Handler) DeleteIndicatorMetric(c echo.Context) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteIndicatorMetric(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Reference --

func (h *Handler) CreateReference(c echo.Context) error {
	var in ReferenceInput
	if err := reqparam.Bind(c, &in); err != nil {
		return err
	}
	ref, err := h.svc.CreateReference(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ref)
}

func (h *Handler) GetReference(c echo.Context) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	ref, err := h.svc.GetReference(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ref)
}

func (h *Handler) ListReferences(c echo.Context) error {
	var f ReferenceFilter
	var err error
	if f.IndicatorMetricID, err = reqparam.UUID(c, "indicator_metric_id"); err != nil {
		return err
	}
	if f.IsActive, err = reqparam.Bool(c, "is_active"); err != nil {
		return err
	}
	f.Ordering = reqparam.String(c, "ordering")

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListReferences(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return listResponse(c, pg, items, total)
}

func (h *Handler) UpdateReference(c echo.Context) error { return h.updateReference(c, false) }
func (h *Handler) PatchReference(c echo.Context) error  { return h.updateReference(c, true) }

func (h *Handler) updateReference(c echo.Context, partial bool) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	var in ReferenceInput
	if err := reqparam.Bind(c, &in); err != nil {
		return err
	}
	ref, err := h.svc.UpdateReference(c.Request().Context(), id, in, partial)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ref)
}

func (h *Handler) DeleteReference(c echo.Context) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteReference(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

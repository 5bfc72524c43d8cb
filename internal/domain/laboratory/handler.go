package laboratory

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

	api.GET("/labs", h.ListLabs, coll)
	api.POST("/labs", h.CreateLab, coll)
	api.GET("/labs/:id", h.GetLab, obj)
	api.PUT("/labs/:id", h.UpdateLab, obj)
	api.PATCH("/labs/:id", h.PatchLab, obj)
	api.DELETE("/labs/:id", h.DeleteLab, obj)

	api.GET("/tests", h.ListTests, coll)
	api.POST("/tests", h.CreateTest, coll)
	api.GET("/tests/:id", h.GetTest, obj)
	api.PUT("/tests/:id", h.UpdateTest, obj)
	api.PATCH("/tests/:id", h.PatchTest, obj)
	api.DELETE("/tests/:id", h.DeleteTest, obj)

	api.GET("/scores", h.ListScores, coll)
	api.POST("/scores", h.CreateScore, coll)
	api.GET("/scores/:id", h.GetScore, obj)
	api.PUT("/scores/:id", h.UpdateScore, obj)
	api.PATCH("/scores/:id", h.PatchScore, obj)
	api.DELETE("/scores/:id", h.DeleteScore, obj)

	// The test-result view is read-only and needs a caller even for reads.
	requireAuth := auth.RequireAuthenticated()
	api.GET("/test-results", h.ListTestResults, requireAuth)
	api.GET("/test-results/:id", h.GetTestResult, requireAuth)
	for _, path := range []string{"/test-results", "/test-results/:id"} {
		api.POST(path, methodNotAllowed)
		api.PUT(path, methodNotAllowed)
		api.PATCH(path, methodNotAllowed)
		api.DELETE(path, methodNotAllowed)
	}
}

func methodNotAllowed(echo.Context) error {
	return echo.ErrMethodNotAllowed
}

func listResponse(c echo.Context, pg pagination.Params, items interface{}, total int) error {
	resp := pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL)
	return c.JSON(http.StatusOK, resp)
}

func testFilter(c echo.Context) (TestFilter, error) {
	var f TestFilter
	var err error
	if f.LabID, err = reqparam.UUID(c, "lab_id"); err != nil {
		return f, err
	}
	if f.IsActive, err = reqparam.Bool(c, "is_active"); err != nil {
		return f, err
	}
	f.Ordering = reqparam.String(c, "ordering")
	return f, nil
}

// -- Lab --

func (h *Handler) CreateLab(c echo.Context) error {
	var in LabInput
	if err := reqparam.Bind(c, &in); err != nil {
		return err
	}
	l, err := h.svc.CreateLab(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) GetLab(c echo.Context) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	l, err := h.svc.GetLab(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) ListLabs(c echo.Context) error {
	active, err := reqparam.Bool(c, "is_active")
	if err != nil {
		return err
	}
	f := LabFilter{
		Name:     reqparam.String(c, "name"),
		IsActive: active,
		Ordering: reqparam.String(c, "ordering"),
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListLabs(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return listResponse(c, pg, items, total)
}

func (h *Handler) UpdateLab(c echo.Context) error { return h.updateLab(c, false) }
func (h *Handler) PatchLab(c echo.Context) error  { return h.updateLab(c, true) }

func (h *Handler) updateLab(c echo.Context, partial bool) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	var in LabInput
	if err := reqparam.Bind(c, &in); err != nil {
		return err
	}
	l, err := h.svc.UpdateLab(c.Request().Context(), id, in, partial)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) DeleteLab(c echo.Context) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteLab(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Test --

func (h *Handler) CreateTest(c echo.Context) error {
	var in TestInput
	if err := reqparam.Bind(c, &in); err != nil {
		return err
	}
	t, err := h.svc.CreateTest(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetTest(c echo.Context) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.GetTest(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListTests(c echo.Context) error {
	f, err := testFilter(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListTests(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return listResponse(c, pg, items, total)
}

func (h *Handler) UpdateTest(c echo.Context) error { return h.updateTest(c, false) }
func (h *Handler) PatchTest(c echo.Context) error  { return h.updateTest(c, true) }

func (h *Handler) updateTest(c echo.Context, partial bool) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	var in TestInput
	if err := reqparam.Bind(c, &in); err != nil {
		return err
	}
	t, err := h.svc.UpdateTest(c.Request().Context(), id, in, partial)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteTest(c echo.Context) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteTest(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Score --

func (h *Handler) CreateScore(c echo.Context) error {
	var in ScoreInput
	if err := reqparam.Bind(c, &in); err != nil {
		return err
	}
	s, err := h.svc.CreateScore(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *Handler) GetScore(c echo.Context) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	s, err := h.svc.GetScore(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) ListScores(c echo.Context) error {
	var f ScoreFilter
	var err error
	if f.TestID, err = reqparam.UUID(c, "test_id"); err != nil {
		return err
	}
	if f.IndicatorMetricID, err = reqparam.UUID(c, "indicator_metric_id"); err != nil {
		return err
	}
	if f.IsActive, err = reqparam.Bool(c, "is_active"); err != nil {
		return err
	}
	f.Ordering = reqparam.String(c, "ordering")

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListScores(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return listResponse(c, pg, items, total)
}

func (h *Handler) UpdateScore(c echo.Context) error { return h.updateScore(c, false) }
func (h *Handler) PatchScore(c echo.Context) error  { return h.updateScore(c, true) }

func (h *Handler) updateScore(c echo.Context, partial bool) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	var in ScoreInput
	if err := reqparam.Bind(c, &in); err != nil {
		return err
	}
	s, err := h.svc.UpdateScore(c.Request().Context(), id, in, partial)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) DeleteScore(c echo.Context) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteScore(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Test results --

func (h *Handler) ListTestResults(c echo.Context) error {
	f, err := testFilter(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListTestResults(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return listResponse(c, pg, items, total)
}

func (h *Handler) GetTestResult(c echo.Context) error {
	id, err := reqparam.PathID(c)
	if err != nil {
		return err
	}
	tr, err := h.svc.GetTestResult(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tr)
}

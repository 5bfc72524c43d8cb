package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/labdata/labdata/internal/platform/apierr"
	"github.com/labdata/labdata/internal/platform/auth"
)

const testSecret = "test-secret-with-at-least-32-bytes!!"

type testServer struct {
	e      *echo.Echo
	svc    *Service
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T, policy auth.ObjectPolicy) *testServer {
	t.Helper()
	svc := newTestService()
	tokens := auth.NewTokenManager(testSecret, time.Hour, nil)

	e := echo.New()
	e.HTTPErrorHandler = apierr.HTTPErrorHandler(zerolog.Nop())
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(auth.Authenticate(tokens, nil))
	NewHandler(svc, policy).RegisterRoutes(e.Group("/api/v1"))
	return &testServer{e: e, svc: svc, tokens: tokens}
}

func (s *testServer) token(t *testing.T, staff bool) string {
	t.Helper()
	tok, _, err := s.tokens.Issue(auth.Principal{UserID: uuid.New(), Username: "tester", Staff: staff})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (s *testServer) do(method, target, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Token "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestIndicators_AnonymousCanRead(t *testing.T) {
	s := newTestServer(t, auth.ObjectPolicy{})
	rec := s.do(http.MethodGet, "/api/v1/indicators/", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	for _, key := range []string{"data", "total", "limit", "offset", "has_more"} {
		if _, ok := body[key]; !ok {
			t.Errorf("expected %q in list envelope", key)
		}
	}
	if data, ok := body["data"].([]interface{}); !ok || len(data) != 0 {
		t.Errorf("expected empty data array, got %v", body["data"])
	}
}

func TestIndicators_AnonymousCannotWrite(t *testing.T) {
	s := newTestServer(t, auth.ObjectPolicy{})
	rec := s.do(http.MethodPost, "/api/v1/indicators/", "", `{"name":"Glucose"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestIndicators_CreateAndRetrieve(t *testing.T) {
	s := newTestServer(t, auth.ObjectPolicy{})
	tok := s.token(t, false)

	rec := s.do(http.MethodPost, "/api/v1/indicators/", tok, `{"name":"Glucose","description":"blood sugar"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode(t, rec)
	id, _ := created["id"].(string)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected UUID id, got %q", id)
	}

	rec = s.do(http.MethodGet, "/api/v1/indicators/"+id+"/", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decode(t, rec)
	if got["name"] != "Glucose" || got["description"] != "blood sugar" || got["is_active"] != true {
		t.Errorf("unexpected retrieved indicator: %v", got)
	}
}

func TestMetrics_DescriptionRendersNullWhenUnset(t *testing.T) {
	s := newTestServer(t, auth.ObjectPolicy{})
	rec := s.do(http.MethodPost, "/api/v1/metrics/", s.token(t, false), `{"name":"Concentration","unit":"mg/dL"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode(t, rec)
	desc, ok := got["description"]
	if !ok || desc != nil {
		t.Errorf("expected description to be null, got %v (present=%v)", desc, ok)
	}
}

func TestIndicators_ValidationBody(t *testing.T) {
	s := newTestServer(t, auth.ObjectPolicy{})
	rec := s.do(http.MethodPost, "/api/v1/indicators", s.token(t, false), `{"description":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode(t, rec)
	errs, _ := body["errors"].(map[string]interface{})
	if errs["name"] != "this field is required" {
		t.Errorf("unexpected errors %v", body["errors"])
	}
}

func TestIndicators_MalformedJSON(t *testing.T) {
	s := newTestServer(t, auth.ObjectPolicy{})
	rec := s.do(http.MethodPost, "/api/v1/indicators", s.token(t, false), `{"name":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestIndicators_MalformedIDIsNotFound(t *testing.T) {
	s := newTestServer(t, auth.ObjectPolicy{})
	rec := s.do(http.MethodGet, "/api/v1/indicators/not-a-uuid/", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	rec = s.do(http.MethodGet, "/api/v1/indicators/"+uuid.NewString(), "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown id, got %d", rec.Code)
	}
}

func TestIndicators_ObjectPermissions(t *testing.T) {
	s := newTestServer(t, auth.ObjectPolicy{})
	user := s.token(t, false)
	staff := s.token(t, true)

	rec := s.do(http.MethodPost, "/api/v1/indicators", user, `{"name":"Glucose"}`)
	id := decode(t, rec)["id"].(string)
	path := "/api/v1/indicators/" + id + "/"

	tests := []struct {
		name   string
		method string
		token  string
		body   string
		want   int
	}{
		{"anonymous put", http.MethodPut, "", `{"name":"x"}`, http.StatusUnauthorized},
		{"user put", http.MethodPut, user, `{"name":"x"}`, http.StatusForbidden},
		{"user patch", http.MethodPatch, user, `{"name":"x"}`, http.StatusForbidden},
		{"user delete", http.MethodDelete, user, "", http.StatusForbidden},
		{"staff patch", http.MethodPatch, staff, `{"description":"patched"}`, http.StatusOK},
		{"staff put", http.MethodPut, staff, `{"name":"Lactate"}`, http.StatusOK},
		{"staff delete", http.MethodDelete, staff, "", http.StatusNoContent},
		{"staff delete again", http.MethodDelete, staff, "", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := s.do(tt.method, path, tt.token, tt.body)
		if rec.Code != tt.want {
			t.Errorf("%s: expected %d, got %d: %s", tt.name, tt.want, rec.Code, rec.Body.String())
		}
	}
}

func TestIndicators_NonStaffDeleteWhenAllowed(t *testing.T) {
	s := newTestServer(t, auth.ObjectPolicy{AllowNonStaffDelete: true})
	user := s.token(t, false)

	rec := s.do(http.MethodPost, "/api/v1/indicators", user, `{"name":"Glucose"}`)
	id := decode(t, rec)["id"].(string)

	if rec := s.do(http.MethodDelete, "/api/v1/indicators/"+id, user, ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec := s.do(http.MethodPatch, "/api/v1/indicators/"+id, user, `{"name":"x"}`); rec.Code != http.StatusForbidden {
		t.Errorf("expected non-staff patch to stay forbidden, got %d", rec.Code)
	}
}

func TestIndicators_ListFiltersAndPaging(t *testing.T) {
	s := newTestServer(t, auth.ObjectPolicy{})
	tok := s.token(t, false)
	for _, name := range []string{"Glucose", "Lactate", "Glutamine"} {
		s.do(http.MethodPost, "/api/v1/indicators", tok, `{"name":"`+name+`"}`)
	}

	body := decode(t, s.do(http.MethodGet, "/api/v1/indicators?name=glu", "", ""))
	if body["total"] != float64(2) {
		t.Errorf("expected 2 matches for name=glu, got %v", body["total"])
	}

	body = decode(t, s.do(http.MethodGet, "/api/v1/indicators?limit=1&offset=1", "", ""))
	if body["has_more"] != true || body["limit"] != float64(1) {
		t.Errorf("unexpected paging envelope %v", body)
	}
	if next, _ := body["next"].(string); !strings.Contains(next, "offset=2") {
		t.Errorf("expected next link with offset=2, got %q", next)
	}

	rec := s.do(http.MethodGet, "/api/v1/indicators?is_active=perhaps", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad is_active, got %d", rec.Code)
	}
}

func TestIndicatorMetrics_BadFilter(t *testing.T) {
	s := newTestServer(t, auth.ObjectPolicy{})
	rec := s.do(http.MethodGet, "/api/v1/indicator-metrics?indicator_id=xyz", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	errs, _ := decode(t, rec)["errors"].(map[string]interface{})
	if errs["indicator_id"] != "must be a valid UUID" {
		t.Errorf("unexpected errors %v", errs)
	}
}

func TestReferences_DecimalsRenderWithTwoPlaces(t *testing.T) {
	s := newTestServer(t, auth.ObjectPolicy{})
	tok := s.token(t, false)
	im := seedPair(t, s.svc)

	rec := s.do(http.MethodPost, "/api/v1/references", tok,
		`{"min_score":70,"max_score":"100.5","indicator_metric_id":"`+im.ID.String()+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["min_score"] != "70.00" || body["max_score"] != "100.50" {
		t.Errorf("unexpected bounds %v..%v", body["min_score"], body["max_score"])
	}

	rec = s.do(http.MethodGet, "/api/v1/references?indicator_metric_id="+im.ID.String(), "", "")
	if decode(t, rec)["total"] != float64(1) {
		t.Errorf("expected one reference for the indicator metric")
	}
}

func TestReferences_UnknownIndicatorMetric(t *testing.T) {
	s := newTestServer(t, auth.ObjectPolicy{})
	rec := s.do(http.MethodPost, "/api/v1/references", s.token(t, false),
		`{"min_score":1,"max_score":2,"indicator_metric_id":"`+uuid.NewString()+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	errs, _ := decode(t, rec)["errors"].(map[string]interface{})
	if errs["indicator_metric_id"] != "indicator metric not found" {
		t.Errorf("unexpected errors %v", errs)
	}
}

func TestMetrics_MethodNotAllowedOnCollection(t *testing.T) {
	s := newTestServer(t, auth.ObjectPolicy{})
	rec := s.do(http.MethodDelete, "/api/v1/metrics", s.token(t, true), "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

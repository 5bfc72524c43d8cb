package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestGenerator() *Generator {
	g := NewGenerator("Lab Data API", "1.0.0", "http://localhost:8000/api/v1")
	g.AddResource(
		Resource{
			Name: "Lab",
			Path: "/labs",
			Properties: map[string]interface{}{
				"name":      MaxLength(255),
				"is_active": Boolean(),
			},
			Required: []string{"name"},
			Filters:  []Param{{Name: "name", Schema: String(), Description: "Substring match"}},
		},
		Resource{
			Name:     "TestResult",
			Path:     "/test-results",
			Tag:      "Lab",
			ReadOnly: true,
			Properties: map[string]interface{}{
				"duration_seconds": Nullable(Integer()),
			},
		},
	)
	return g
}

func TestGenerateSpec_Structure(t *testing.T) {
	spec := newTestGenerator().GenerateSpec()

	if spec["openapi"] != "3.0.3" {
		t.Errorf("expected openapi '3.0.3', got %v", spec["openapi"])
	}
	info, ok := spec["info"].(map[string]interface{})
	if !ok {
		t.Fatal("expected info object")
	}
	if info["title"] != "Lab Data API" || info["version"] != "1.0.0" {
		t.Errorf("unexpected info %v", info)
	}
	servers, ok := spec["servers"].([]map[string]string)
	if !ok || len(servers) != 1 || servers[0]["url"] != "http://localhost:8000/api/v1" {
		t.Errorf("unexpected servers %v", spec["servers"])
	}
}

func TestGenerateSpec_Paths(t *testing.T) {
	paths := newTestGenerator().GenerateSpec()["paths"].(map[string]interface{})

	for _, p := range []string{"/labs/", "/labs/{id}/", "/test-results/", "/test-results/{id}/"} {
		if _, ok := paths[p]; !ok {
			t.Errorf("missing expected path: %s", p)
		}
	}

	labs := paths["/labs/"].(map[string]interface{})
	if _, ok := labs["post"]; !ok {
		t.Error("expected POST on /labs/")
	}
	lab := paths["/labs/{id}/"].(map[string]interface{})
	for _, m := range []string{"get", "put", "patch", "delete"} {
		if _, ok := lab[m]; !ok {
			t.Errorf("expected %s on /labs/{id}/", m)
		}
	}
}

func TestGenerateSpec_ReadOnlyResource(t *testing.T) {
	paths := newTestGenerator().GenerateSpec()["paths"].(map[string]interface{})

	results := paths["/test-results/"].(map[string]interface{})
	if len(results) != 1 {
		t.Errorf("expected only GET on /test-results/, got %v", results)
	}
	get := results["get"].(map[string]interface{})
	tags := get["tags"].([]string)
	if len(tags) != 1 || tags[0] != "Lab" {
		t.Errorf("expected tag override 'Lab', got %v", tags)
	}
}

func TestGenerateSpec_ListParameters(t *testing.T) {
	paths := newTestGenerator().GenerateSpec()["paths"].(map[string]interface{})
	get := paths["/labs/"].(map[string]interface{})["get"].(map[string]interface{})
	params := get["parameters"].([]map[string]interface{})

	names := make(map[string]bool)
	for _, p := range params {
		names[p["name"].(string)] = true
		if p["in"] != "query" {
			t.Errorf("expected query param, got %v", p["in"])
		}
	}
	for _, want := range []string{"name", "limit", "offset", "ordering"} {
		if !names[want] {
			t.Errorf("missing query parameter %s", want)
		}
	}
}

func TestGenerateSpec_RequestBodyOmitsReadOnlyFields(t *testing.T) {
	g := NewGenerator("t", "1", "/")
	g.AddResource(Resource{
		Name: "Lab",
		Path: "/labs",
		Properties: map[string]interface{}{
			"id":   ReadOnly(UUID()),
			"name": String(),
		},
		Required: []string{"name"},
	})
	paths := g.GenerateSpec()["paths"].(map[string]interface{})

	post := paths["/labs/"].(map[string]interface{})["post"].(map[string]interface{})
	body := post["requestBody"].(map[string]interface{})
	schema := body["content"].(map[string]interface{})[echo.MIMEApplicationJSON].(map[string]interface{})["schema"].(map[string]interface{})
	props := schema["properties"].(map[string]interface{})
	if _, ok := props["id"]; ok {
		t.Error("request body must not include id")
	}
	if _, ok := schema["required"]; !ok {
		t.Error("create body should list required fields")
	}

	patch := paths["/labs/{id}/"].(map[string]interface{})["patch"].(map[string]interface{})
	patchSchema := patch["requestBody"].(map[string]interface{})["content"].(map[string]interface{})[echo.MIMEApplicationJSON].(map[string]interface{})["schema"].(map[string]interface{})
	if _, ok := patchSchema["required"]; ok {
		t.Error("partial update body should not list required fields")
	}
}

func TestGenerateSpec_ComponentSchemas(t *testing.T) {
	spec := newTestGenerator().GenerateSpec()
	schemas := spec["components"].(map[string]interface{})["schemas"].(map[string]interface{})

	for _, name := range []string{"Error", "Lab", "TestResult"} {
		if _, ok := schemas[name]; !ok {
			t.Errorf("missing schema %s", name)
		}
	}
	lab := schemas["Lab"].(map[string]interface{})["properties"].(map[string]interface{})
	for _, field := range []string{"id", "created_at", "updated_at", "name", "is_active"} {
		if _, ok := lab[field]; !ok {
			t.Errorf("Lab schema missing %s", field)
		}
	}
}

func TestSchemaHelpers(t *testing.T) {
	base := String()
	n := Nullable(base)
	if n["nullable"] != true {
		t.Error("expected nullable flag")
	}
	if _, ok := base["nullable"]; ok {
		t.Error("Nullable must not modify its argument")
	}
	if Decimal()["pattern"] == "" {
		t.Error("expected decimal pattern")
	}
	if lowerFirst("PartialUpdate") != "partialUpdate" {
		t.Errorf("unexpected lowerFirst result %q", lowerFirst("PartialUpdate"))
	}
}

func TestTags(t *testing.T) {
	tags := newTestGenerator().Tags()
	if len(tags) != 1 || tags[0] != "Lab" {
		t.Errorf("expected [Lab], got %v", tags)
	}
}

func TestRegisterRoutes(t *testing.T) {
	e := echo.New()
	newTestGenerator().RegisterRoutes(e.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schema", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	if doc["openapi"] != "3.0.3" {
		t.Errorf("unexpected document %v", doc["openapi"])
	}
}

func TestGenerateSpec_ReadOnlySchemaHasNoTimestamps(t *testing.T) {
	schemas := newTestGenerator().GenerateSpec()["components"].(map[string]interface{})["schemas"].(map[string]interface{})
	props := schemas["TestResult"].(map[string]interface{})["properties"].(map[string]interface{})
	if _, ok := props["created_at"]; ok {
		t.Error("read-only resource should not document created_at")
	}
	if _, ok := props["id"]; !ok {
		t.Error("expected id property")
	}
}

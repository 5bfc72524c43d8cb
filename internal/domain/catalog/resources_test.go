package catalog

import (
	"testing"

	"github.com/labdata/labdata/internal/platform/auth"
)

func TestAPIResources(t *testing.T) {
	resources := NewHandler(nil, auth.ObjectPolicy{}).APIResources()
	if len(resources) != 4 {
		t.Fatalf("expected 4 resources, got %d", len(resources))
	}
	for _, res := range resources {
		if res.ReadOnly {
			t.Errorf("%s should be writable", res.Name)
		}
		if len(res.Required) == 0 {
			t.Errorf("%s should list required fields", res.Name)
		}
	}
}

func TestAPIResources_DescriptionNullable(t *testing.T) {
	for _, res := range NewHandler(nil, auth.ObjectPolicy{}).APIResources()[:2] {
		desc, ok := res.Properties["description"].(map[string]interface{})
		if !ok || desc["nullable"] != true {
			t.Errorf("%s description should be nullable, got %v", res.Name, res.Properties["description"])
		}
	}
}

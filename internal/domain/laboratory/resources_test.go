package laboratory

import (
	"testing"

	"github.com/labdata/labdata/internal/platform/auth"
)

func TestAPIResources(t *testing.T) {
	h := NewHandler(nil, auth.ObjectPolicy{})
	byPath := make(map[string]bool)
	for _, res := range h.APIResources() {
		byPath[res.Path] = res.ReadOnly
	}

	for _, p := range []string{"/labs", "/tests", "/scores", "/test-results"} {
		if _, ok := byPath[p]; !ok {
			t.Errorf("missing resource %s", p)
		}
	}
	if !byPath["/test-results"] {
		t.Error("test-results must be documented as read-only")
	}
	if byPath["/labs"] {
		t.Error("labs must be writable")
	}
}

package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tendant/stay-concierge/pkg/domain"
)

func TestList(t *testing.T) {
	h := NewHandler()
	req := httptest.NewRequest(http.MethodGet, "/v1/catalog", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Sections) == 0 {
		t.Fatal("Sections is empty")
	}
	if resp.Sections[0].ID != domain.SectionCheckin {
		t.Errorf("first section = %s, want %s", resp.Sections[0].ID, domain.SectionCheckin)
	}
	if len(resp.Sections[0].Fields) == 0 {
		t.Error("check-in section has no fields")
	}
}

package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

func TestHandlerGet_DefaultRange(t *testing.T) {
	repo := &stubRepository{kpis: KPIs{ActivePatients: 3, Notes: 7}}
	h := NewHandler(newTestService(repo), logging.Default())

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		OK    bool      `json:"ok"`
		Range RangeInfo `json:"range"`
		KPIs  KPIs      `json:"kpis"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !body.OK || body.KPIs.ActivePatients != 3 || body.KPIs.Notes != 7 {
		t.Errorf("unexpected body: %+v", body)
	}
	if body.Range.From != "2025-05-01" || body.Range.To != "2025-06-01" {
		t.Errorf("unexpected range: %+v", body.Range)
	}
}

func TestHandlerGet_ExplicitRange(t *testing.T) {
	repo := &stubRepository{}
	h := NewHandler(newTestService(repo), logging.Default())

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard?desde=2025-04-01&hasta=2025-04-08", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Charts Charts `json:"charts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Charts.AppointmentsByDay) != 7 {
		t.Errorf("expected 7 zero-filled days, got %d", len(body.Charts.AppointmentsByDay))
	}
}

func TestHandlerGet_BadDate(t *testing.T) {
	h := NewHandler(newTestService(&stubRepository{}), logging.Default())

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard?desde=ayer", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

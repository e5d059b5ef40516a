package appointments

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

func TestHandlerCreate_ByName(t *testing.T) {
	env := newTestEnv(t, nil)
	env.createPatient(t, "María López")
	handler := NewHandler(env.svc, logging.Default())

	body, _ := json.Marshal(CreateRequest{PatientName: "maria lopez", Fecha: "2025-05-10 16:00"})
	req := httptest.NewRequest(http.MethodPost, "/api/citas", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	var resp struct {
		OK   bool         `json:"ok"`
		Cita *Appointment `json:"cita"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK || resp.Cita == nil || MinutePrefix(resp.Cita.Date, clinicZone) != "2025-05-10 16:00" {
		t.Errorf("unexpected response: %+v", resp.Cita)
	}
}

func TestHandlerCreate_Conflict(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.createPatient(t, "María López")
	env.createPatient(t, "Juan Pérez")
	handler := NewHandler(env.svc, logging.Default())

	date := time.Date(2025, 5, 10, 16, 0, 0, 0, clinicZone)
	if _, err := env.svc.Schedule(context.Background(), p, date, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body, _ := json.Marshal(CreateRequest{PatientName: "Juan Pérez", Fecha: "2025-05-10 16:20"})
	req := httptest.NewRequest(http.MethodPost, "/api/citas", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, w.Code)
	}
	var resp struct {
		OK   bool   `json:"ok"`
		Code string `json:"code"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.OK || resp.Code != "CONFLICT" {
		t.Errorf("expected CONFLICT code, got %+v", resp)
	}
}

func TestHandlerCreate_UnknownPatient(t *testing.T) {
	env := newTestEnv(t, nil)
	handler := NewHandler(env.svc, logging.Default())

	body, _ := json.Marshal(CreateRequest{PatientName: "nadie", Fecha: "2025-05-10 16:00"})
	req := httptest.NewRequest(http.MethodPost, "/api/citas", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestHandlerCancel(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.createPatient(t, "María López")
	handler := NewHandler(env.svc, logging.Default())

	a, err := env.svc.Schedule(context.Background(), p, env.now.Add(24*time.Hour), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/citas/1", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	handler.Cancel(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	got, err := env.svc.GetByID(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("expected status %q, got %q", StatusCancelled, got.Status)
	}
}

func TestHandlerList_Filters(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.createPatient(t, "María López")
	handler := NewHandler(env.svc, logging.Default())

	for _, h := range []int{24, 48, 72} {
		if _, err := env.svc.Schedule(context.Background(), p, env.now.Add(time.Duration(h)*time.Hour), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/citas?estado=programada&limit=2", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp ListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 3 || len(resp.Data) != 2 {
		t.Errorf("expected total 3 with 2 rows, got total %d rows %d", resp.Total, len(resp.Data))
	}
}

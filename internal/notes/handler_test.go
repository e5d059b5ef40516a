package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

func newNotesHandler() (*Handler, *Service) {
	logger := logging.Default()
	svc := NewService(NewInMemoryRepository(), logger)
	return NewHandler(svc, logger), svc
}

func TestHandlerCreate_Success(t *testing.T) {
	handler, _ := newNotesHandler()

	symptoms := "dolor de cabeza"
	body, _ := json.Marshal(CreateRequest{PatientID: 3, Symptoms: &symptoms})
	req := httptest.NewRequest(http.MethodPost, "/api/notas", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	var resp struct {
		OK   bool  `json:"ok"`
		Note *Note `json:"nota"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK || resp.Note == nil || resp.Note.PatientID != 3 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandlerCreate_MissingPatient(t *testing.T) {
	handler, _ := newNotesHandler()

	body, _ := json.Marshal(CreateRequest{})
	req := httptest.NewRequest(http.MethodPost, "/api/notas", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestHandlerList_ByPatient(t *testing.T) {
	handler, svc := newNotesHandler()

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), &CreateInput{PatientID: 5}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/notas?paciente_id=5&limit=2", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp ListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("expected total 3, got %d", resp.Total)
	}
	if len(resp.Data) != 2 {
		t.Errorf("expected 2 rows for limit=2, got %d", len(resp.Data))
	}
}

func TestHandlerList_RequiresPatientID(t *testing.T) {
	handler, _ := newNotesHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/notas", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestHandlerDeactivate_NotFound(t *testing.T) {
	handler, _ := newNotesHandler()

	req := httptest.NewRequest(http.MethodDelete, "/api/notas/99", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "99")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	handler.Deactivate(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestHandlerUpdate_SetsDiagnosis(t *testing.T) {
	handler, svc := newNotesHandler()

	n, err := svc.Create(context.Background(), &CreateInput{PatientID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	diag := "trastorno adaptativo"
	body, _ := json.Marshal(UpdateInput{Diagnosis: &diag})
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/notas/%d", n.ID), bytes.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", fmt.Sprint(n.ID))
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	handler.Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	got, err := svc.GetByID(context.Background(), n.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Diagnosis == nil || *got.Diagnosis != diag {
		t.Errorf("expected diagnosis %q, got %v", diag, got.Diagnosis)
	}
}

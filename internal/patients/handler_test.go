package patients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/clinicadelvalle/clinica-platform/internal/notes"
	"github.com/clinicadelvalle/clinica-platform/pkg/logging"
)

func newTestHandler(t *testing.T) (*Handler, *Service, *notes.Service) {
	t.Helper()
	logger := logging.Default()
	svc := NewService(NewInMemoryRepository(), logger)
	notesSvc := notes.NewService(notes.NewInMemoryRepository(), logger)
	return NewHandler(svc, notesSvc, logger), svc, notesSvc
}

func TestHandlerCreate_Success(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	body, _ := json.Marshal(CreateInput{FullName: "María López"})
	req := httptest.NewRequest(http.MethodPost, "/api/pacientes", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	var resp struct {
		OK             bool     `json:"ok"`
		Patient        *Patient `json:"paciente"`
		AlreadyExisted bool     `json:"alreadyExisted"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK || resp.AlreadyExisted {
		t.Errorf("unexpected response flags: ok=%v alreadyExisted=%v", resp.OK, resp.AlreadyExisted)
	}
	if resp.Patient == nil || resp.Patient.FullName != "María López" {
		t.Errorf("unexpected patient in response: %+v", resp.Patient)
	}
}

func TestHandlerCreate_DuplicateReturnsExisting(t *testing.T) {
	handler, svc, _ := newTestHandler(t)

	if _, err := svc.Create(context.Background(), &CreateInput{FullName: "María López"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body, _ := json.Marshal(CreateInput{FullName: "maria lopez"})
	req := httptest.NewRequest(http.MethodPost, "/api/pacientes", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d for duplicate, got %d", http.StatusOK, w.Code)
	}
	var resp struct {
		AlreadyExisted bool `json:"alreadyExisted"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.AlreadyExisted {
		t.Error("expected alreadyExisted=true")
	}
}

func TestHandlerCreate_InvalidName(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	body, _ := json.Marshal(CreateInput{FullName: "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/pacientes", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestHandlerDetails_IncludesNotes(t *testing.T) {
	handler, svc, notesSvc := newTestHandler(t)

	out, err := svc.Create(context.Background(), &CreateInput{FullName: "María López"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	symptoms := "insomnio"
	if _, err := notesSvc.Create(context.Background(), &notes.CreateInput{
		PatientID: out.Patient.ID,
		Symptoms:  &symptoms,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := newRouteRequest(http.MethodGet, fmt.Sprintf("/api/pacientes/%d", out.Patient.ID), "id", fmt.Sprint(out.Patient.ID))
	w := httptest.NewRecorder()

	handler.Details(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp DetailsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Patient == nil || resp.Patient.ID != out.Patient.ID {
		t.Errorf("unexpected patient in response: %+v", resp.Patient)
	}
	if len(resp.Notes) != 1 || resp.NotesTotal != 1 {
		t.Errorf("expected one note, got %d (total %d)", len(resp.Notes), resp.NotesTotal)
	}
}

func TestHandlerDetails_NotFound(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := newRouteRequest(http.MethodGet, "/api/pacientes/999", "id", "999")
	w := httptest.NewRecorder()

	handler.Details(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestHandlerDeactivate(t *testing.T) {
	handler, svc, _ := newTestHandler(t)

	out, err := svc.Create(context.Background(), &CreateInput{FullName: "María López"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := newRouteRequest(http.MethodDelete, fmt.Sprintf("/api/pacientes/%d", out.Patient.ID), "id", fmt.Sprint(out.Patient.ID))
	w := httptest.NewRecorder()

	handler.Deactivate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	p, err := svc.GetByID(context.Background(), out.Patient.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != StatusInactive {
		t.Errorf("expected status %q after deactivate, got %q", StatusInactive, p.Status)
	}
}

func newRouteRequest(method, target, paramKey, paramValue string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(paramKey, paramValue)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

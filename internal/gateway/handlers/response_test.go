package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"vellum/internal/session"
)

func TestSendJSON(t *testing.T) {
	w := httptest.NewRecorder()
	SendJSON(w, http.StatusCreated, map[string]int{"sessions": 2})

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", ct)
	}
	var got map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["sessions"] != 2 {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestSendJSONNil(t *testing.T) {
	w := httptest.NewRecorder()
	SendJSON(w, http.StatusNoContent, nil)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("got %d %q, want empty 204", w.Code, w.Body.String())
	}
}

func TestSendJSONUnencodable(t *testing.T) {
	w := httptest.NewRecorder()
	SendJSON(w, http.StatusOK, map[string]any{"fn": func() {}})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error.Code != ErrCodeInternalError {
		t.Errorf("code = %s", resp.Error.Code)
	}
}

func TestSendError(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{ErrCodeInvalidRequest, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
		{ErrCodeInternalError, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			w := httptest.NewRecorder()
			SendError(w, tt.code, "boom")
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Error.Code != tt.code || resp.Error.Message != "boom" {
				t.Errorf("envelope = %+v", resp.Error)
			}
		})
	}
}

func TestCodeFor(t *testing.T) {
	if got := CodeFor(fmt.Errorf("get x: %w", session.ErrNotFound)); got != ErrCodeNotFound {
		t.Errorf("not found -> %s", got)
	}
	if got := CodeFor(session.ErrClosed); got != ErrCodeServiceUnavailable {
		t.Errorf("closed -> %s", got)
	}
	if got := CodeFor(fmt.Errorf("disk on fire")); got != ErrCodeInternalError {
		t.Errorf("other -> %s", got)
	}
}

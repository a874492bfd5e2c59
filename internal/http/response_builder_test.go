package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gastos/internal/auth"
	"gastos/internal/core"
	"gastos/internal/repository"
	"gastos/internal/services"
)

func TestJSONResponseBuilder(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "yes").
		Data(map[string]int{"id": 7}).
		Write(rec)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if rec.Header().Get("X-Custom") != "yes" {
		t.Error("custom header not set")
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["id"] != 7 {
		t.Errorf("body = %s, %v", rec.Body.String(), err)
	}
}

func TestJSONResponseBuilder_NoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Data("ignored").Write(rec)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestServiceErrorResponse(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", fmt.Errorf("wrap: %w", core.ErrEmptyCategory), http.StatusUnprocessableEntity, CodeValidation},
		{"period", services.ErrInvalidPeriod, http.StatusBadRequest, CodeInvalidPeriod},
		{"registration", auth.ErrInvalidRegistration, http.StatusBadRequest, CodeInvalidRegistration},
		{"credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
		{"not found", fmt.Errorf("get: %w", repository.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"email taken", repository.ErrEmailTaken, http.StatusConflict, CodeEmailTaken},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
			rec := httptest.NewRecorder()
			ServiceErrorResponse(r, tt.err, "test").Write(rec)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var body ErrorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.code {
				t.Errorf("code = %q, want %q", body.Code, tt.code)
			}
			if tt.status == http.StatusInternalServerError && body.Error != "Erro interno do servidor" {
				t.Errorf("internal error leaked %q", body.Error)
			}
		})
	}
}

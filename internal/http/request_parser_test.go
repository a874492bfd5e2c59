package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gastos/internal/core"
	"gastos/internal/repository"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2025-05-10", time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC), false},
		{"2025-05-10T14:30:00-03:00", time.Date(2025, 5, 10, 17, 30, 0, 0, time.UTC), false},
		{" 2025-01-01 ", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"10/05/2025", time.Time{}, true},
		{"", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidDate) {
					t.Fatalf("err = %v, want ErrInvalidDate", err)
				}
				return
			}
			if err != nil || !got.Equal(tt.want) {
				t.Fatalf("ParseDate(%q) = %v, %v", tt.in, got, err)
			}
		})
	}
}

func TestParseListFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		check   func(t *testing.T, f repository.Filter)
		wantErr bool
	}{
		{
			name:  "empty",
			query: "",
			check: func(t *testing.T, f repository.Filter) {
				if f.Type != "" || f.Limit != 0 || !f.Start.IsZero() || !f.End.IsZero() {
					t.Errorf("filter = %+v", f)
				}
			},
		},
		{
			name:  "all clauses",
			query: "type=INCOME&category=lazer&startDate=2025-05-01&endDate=2025-05-31&limit=10&offset=20",
			check: func(t *testing.T, f repository.Filter) {
				if f.Type != core.Income || f.Category != "lazer" || f.Limit != 10 || f.Offset != 20 {
					t.Errorf("filter = %+v", f)
				}
				if !f.Start.Equal(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)) {
					t.Errorf("start = %v", f.Start)
				}
				if !f.End.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
					t.Errorf("end = %v, want the day after endDate", f.End)
				}
			},
		},
		{name: "bad type", query: "type=transfer", wantErr: true},
		{name: "bad start", query: "startDate=yesterday", wantErr: true},
		{name: "inverted range", query: "startDate=2025-06-01&endDate=2025-05-01", wantErr: true},
		{name: "negative offset", query: "offset=-5", wantErr: true},
		{name: "non-numeric limit", query: "limit=ten", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/transactions?"+tt.query, nil)
			f, err := ParseListFilter(r)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", f)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseListFilter: %v", err)
			}
			tt.check(t, f)
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/transactions/"+tt.raw, nil)
			r.SetPathValue("id", tt.raw)
			got, err := ParseID(r)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Fatalf("ParseID(%q) = %d, %v", tt.raw, got, err)
			}
		})
	}
}

func TestParseYear(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for query, want := range map[string]int{"": 2026, "year=2024": 2024} {
		r := httptest.NewRequest(http.MethodGet, "/x?"+query, nil)
		if got, err := ParseYear(r, now); err != nil || got != want {
			t.Errorf("ParseYear(%q) = %d, %v", query, got, err)
		}
	}
	r := httptest.NewRequest(http.MethodGet, "/x?year=20x4", nil)
	if _, err := ParseYear(r, now); err == nil {
		t.Error("expected error for malformed year")
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst map[string]any

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := DecodeJSON(httptest.NewRecorder(), r, 64, &dst); !errors.Is(err, errEmptyBody) {
		t.Errorf("empty body err = %v", err)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"`+strings.Repeat("x", 100)+`"}`))
	if err := DecodeJSON(httptest.NewRecorder(), r, 64, &dst); err == nil {
		t.Error("expected error for oversized body")
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))
	if err := DecodeJSON(httptest.NewRecorder(), r, 64, &dst); err != nil || dst["a"] != float64(1) {
		t.Errorf("decode = %v, %v", dst, err)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw     string
		cents   int64
		wantErr bool
	}{
		{`150.5`, 15050, false},
		{`"150,50"`, 15050, false},
		{`-20`, 2000, false},
		{`0`, 0, true},
		{`null`, 0, true},
		{``, 0, true},
		{`"abc"`, 0, true},
		{`{}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			m, err := parseAmount([]byte(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidAmount) {
					t.Fatalf("err = %v, want ErrInvalidAmount", err)
				}
				return
			}
			if err != nil || m.Cents != tt.cents {
				t.Fatalf("parseAmount(%s) = %d, %v", tt.raw, m.Cents, err)
			}
		})
	}
}

package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseYear(t *testing.T) {
	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{"2024", 2024, false},
		{"0999", 999, false},
		{"0000", 0, true},
		{"202", 0, true},
		{"20245", 0, true},
		{"20a4", 0, true},
		{"+123", 0, true},
		{"-999", 0, true},
		{" 2024", 2024, false},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.SetPathValue("year", tt.value)

			got, err := ParseYear(r)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidYear) {
					t.Errorf("ParseYear(%q) error = %v, want ErrInvalidYear", tt.value, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseYear(%q) = %d, %v; want %d", tt.value, got, err, tt.want)
			}
		})
	}
}

func TestDefaultYear(t *testing.T) {
	years := []int{2024, 2023}
	tests := []struct {
		name  string
		query string
		years []int
		want  int
	}{
		{"newest year", "", years, 2024},
		{"requested year present", "?year=2023", years, 2023},
		{"requested year absent", "?year=2019", years, 2024},
		{"garbage", "?year=abc", years, 2024},
		{"no data", "", nil, time.Now().Year()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			if got := DefaultYear(r, tt.years); got != tt.want {
				t.Errorf("DefaultYear() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsHTMX(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	if IsHTMX(r) {
		t.Error("plain request reported as htmx")
	}
	r.Header.Set("HX-Request", "true")
	if !IsHTMX(r) {
		t.Error("htmx request not detected")
	}
}

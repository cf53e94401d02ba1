// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
)

// ErrInvalidYear is returned for a year path value that is not a four digit
// number.
var ErrInvalidYear = errors.New("invalid year")

const (
	minYear = 1
	maxYear = 9999
)

// ParseYear reads the {year} path value.
func ParseYear(r *http.Request) (int, error) {
	return parseYearValue(r.PathValue("year"))
}

func parseYearValue(v string) (int, error) {
	v = strings.TrimSpace(v)
	if len(v) != 4 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidYear, v)
	}
	y, ok := core.Year(v)
	if !ok || y < minYear || y > maxYear {
		return 0, fmt.Errorf("%w: %q", ErrInvalidYear, v)
	}
	return y, nil
}

// DefaultYear picks the year the dashboard opens on: the ?year= query value
// when it names a year of the data, else the newest year, else the current
// one.
func DefaultYear(r *http.Request, years []int) int {
	if v := r.URL.Query().Get("year"); v != "" {
		if y, err := parseYearValue(v); err == nil {
			for _, have := range years {
				if have == y {
					return y
				}
			}
		}
	}
	if len(years) > 0 {
		return years[0]
	}
	return time.Now().Year()
}

// IsHTMX reports whether r was issued by htmx.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

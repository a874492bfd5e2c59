package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gastos/internal/core"
	"gastos/internal/repository"
)

const (
	dateLayout = "2006-01-02"

	maxBodyBytes        = 1 << 20
	maxAnalyzeBodyBytes = 10 << 20
)

var errEmptyBody = errors.New("empty request body")

// DecodeJSON reads a JSON body of at most limit bytes into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// ParseID reads the {id} path value as a positive integer.
func ParseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp. Calendar
// dates are midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
}

// ParseDateRange reads startDate and endDate. Both are inclusive; a
// calendar endDate is widened to the end of that day.
func ParseDateRange(r *http.Request) (start, end time.Time, err error) {
	q := r.URL.Query()
	if v := q.Get("startDate"); v != "" {
		if start, err = ParseDate(v); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if v := q.Get("endDate"); v != "" {
		if end, err = ParseDate(v); err != nil {
			return time.Time{}, time.Time{}, err
		}
		if isCalendarDate(v) {
			end = end.AddDate(0, 0, 1)
		} else {
			end = end.Add(time.Nanosecond)
		}
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("startDate must not be after endDate")
	}
	return start, end, nil
}

// ParseListFilter builds a transaction filter from the query string.
func ParseListFilter(r *http.Request) (repository.Filter, error) {
	q := r.URL.Query()
	var f repository.Filter

	if v := q.Get("type"); v != "" {
		typ, err := core.ParseTransactionType(v)
		if err != nil {
			return f, err
		}
		f.Type = typ
	}
	if v := strings.TrimSpace(q.Get("category")); v != "" {
		f.Category = v
	}

	start, end, err := ParseDateRange(r)
	if err != nil {
		return f, err
	}
	f.Start, f.End = start, end

	if f.Limit, err = parseNonNegative(q.Get("limit"), "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = parseNonNegative(q.Get("offset"), "offset"); err != nil {
		return f, err
	}
	return f, nil
}

// ParseYear reads ?year=, defaulting to the year of now.
func ParseYear(r *http.Request, now time.Time) (int, error) {
	v := r.URL.Query().Get("year")
	if v == "" {
		return now.Year(), nil
	}
	year, err := strconv.Atoi(v)
	if err != nil || year < 1900 || year > 9999 {
		return 0, fmt.Errorf("invalid year %q", v)
	}
	return year, nil
}

func isCalendarDate(s string) bool {
	_, err := time.Parse(dateLayout, strings.TrimSpace(s))
	return err == nil
}

func parseNonNegative(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}

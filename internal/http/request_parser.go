// Package http serves the snapshot and bridge JSON API.
//
// This file implements utilities for parsing and validating request data:
// month ids, month ranges, bridge periods and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"networth/internal/core"
)

// maxBodyBytes bounds request bodies; generation requests are tiny.
const maxBodyBytes = 64 << 10

const dateLayout = "2006-01-02"

var errMissingParam = errors.New("missing parameter")

// MonthRangeParams holds a parsed inclusive month range.
type MonthRangeParams struct {
	From core.Month
	To   core.Month
}

// ParseMonthRange reads "from" and "to" (YYYY-MM). A lone "from" or "to"
// selects that single month.
func ParseMonthRange(query url.Values) (MonthRangeParams, error) {
	fromStr := strings.TrimSpace(query.Get("from"))
	toStr := strings.TrimSpace(query.Get("to"))
	if fromStr == "" && toStr == "" {
		return MonthRangeParams{}, fmt.Errorf("%w: from or to", errMissingParam)
	}
	if fromStr == "" {
		fromStr = toStr
	}
	if toStr == "" {
		toStr = fromStr
	}

	from, err := core.ParseMonth(fromStr)
	if err != nil {
		return MonthRangeParams{}, err
	}
	to, err := core.ParseMonth(toStr)
	if err != nil {
		return MonthRangeParams{}, err
	}
	if to.Before(from) {
		return MonthRangeParams{}, fmt.Errorf("%w: %s after %s", core.ErrInvalidRange, from, to)
	}
	if n := core.MonthsBetween(from, to); n > core.MaxRangeMonths {
		return MonthRangeParams{}, fmt.Errorf("%w: %d months, limit %d", core.ErrInvalidRange, n, core.MaxRangeMonths)
	}
	return MonthRangeParams{From: from, To: to}, nil
}

// PeriodParams is a parsed bridge period. End is zero for "up to now".
type PeriodParams struct {
	Start time.Time
	End   time.Time
}

// ParsePeriod reads either "month" (YYYY-MM) or "start" with an optional
// "end". Dates are YYYY-MM-DD or RFC 3339; a date-only end covers the whole
// day.
func ParsePeriod(query url.Values) (PeriodParams, error) {
	if m := strings.TrimSpace(query.Get("month")); m != "" {
		if query.Get("start") != "" || query.Get("end") != "" {
			return PeriodParams{}, errors.New("month and start/end are exclusive")
		}
		month, err := core.ParseMonth(m)
		if err != nil {
			return PeriodParams{}, err
		}
		return PeriodParams{Start: month.Start(), End: month.End()}, nil
	}

	startStr := strings.TrimSpace(query.Get("start"))
	if startStr == "" {
		return PeriodParams{}, fmt.Errorf("%w: start or month", errMissingParam)
	}
	start, _, err := parseInstant(startStr)
	if err != nil {
		return PeriodParams{}, fmt.Errorf("invalid start: %w", err)
	}

	var end time.Time
	if endStr := strings.TrimSpace(query.Get("end")); endStr != "" {
		var dateOnly bool
		end, dateOnly, err = parseInstant(endStr)
		if err != nil {
			return PeriodParams{}, fmt.Errorf("invalid end: %w", err)
		}
		if dateOnly {
			end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
	}
	return PeriodParams{Start: start, End: end}, nil
}

// parseInstant accepts a UTC date or an RFC 3339 timestamp.
func parseInstant(s string) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse(dateLayout, s); err == nil {
		return t.UTC(), true, nil
	}
	if t, err = time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), false, nil
	}
	return time.Time{}, false, fmt.Errorf("%q is neither YYYY-MM-DD nor RFC 3339", s)
}

// DecodeJSONBody strictly decodes a single JSON object into dst.
func DecodeJSONBody(r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("unsupported content type %q", ct)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

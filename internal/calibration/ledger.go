// Package calibration tracks validator calibration requests per governance
// area and resolves them.
//
// A Ledger lives inside the assessment aggregate and is persisted with it.
// Invariants: at most one open request per area; each open→resolved cycle
// bumps the counter; an area may be reopened after it resolves.
package calibration

import (
	"slices"
	"time"

	"sglgb/internal/indicator"
	dErrors "sglgb/pkg/domain-errors"
)

// Request is one validator's calibration request against an area.
type Request struct {
	ID          string           `json:"id"`
	Area        indicator.Code   `json:"area"`
	ValidatorID string           `json:"validator_id"`
	Indicators  []indicator.Code `json:"indicators,omitempty"`
	RequestedAt time.Time        `json:"requested_at"`
	ResolvedAt  *time.Time       `json:"resolved_at,omitempty"`
}

// IsOpen reports whether the request awaits resubmission.
func (r Request) IsOpen() bool { return r.ResolvedAt == nil }

// Ledger is the per-assessment record of calibration requests.
type Ledger struct {
	Requests []Request `json:"requests,omitempty"`
	// Resolved counts completed open→resolved cycles.
	Resolved int `json:"resolved"`
}

// Clone returns a deep copy.
func (l Ledger) Clone() Ledger {
	out := Ledger{Resolved: l.Resolved}
	if l.Requests != nil {
		out.Requests = make([]Request, len(l.Requests))
		for i, r := range l.Requests {
			r.Indicators = slices.Clone(r.Indicators)
			out.Requests[i] = r
		}
	}
	return out
}

// Count is the calibration counter.
func (l Ledger) Count() int { return l.Resolved }

// OpenRequest returns the open request for area.
func (l Ledger) OpenRequest(area indicator.Code) (Request, bool) {
	for _, r := range l.Requests {
		if r.Area == area && r.IsOpen() {
			return r, true
		}
	}
	return Request{}, false
}

func (l Ledger) IsOpen(area indicator.Code) bool {
	_, ok := l.OpenRequest(area)
	return ok
}

func (l Ledger) HasOpen() bool {
	for _, r := range l.Requests {
		if r.IsOpen() {
			return true
		}
	}
	return false
}

// OpenAreas lists areas with an open request, in request order.
func (l Ledger) OpenAreas() []indicator.Code {
	var out []indicator.Code
	for _, r := range l.Requests {
		if r.IsOpen() {
			out = append(out, r.Area)
		}
	}
	return out
}

// Cutoffs maps each open area to its request time; evidence older than the
// cutoff is stale on calibration-flagged responses.
func (l Ledger) Cutoffs() map[indicator.Code]time.Time {
	out := make(map[indicator.Code]time.Time)
	for _, r := range l.Requests {
		if r.IsOpen() {
			out[r.Area] = r.RequestedAt
		}
	}
	return out
}

// Open records req. A second request for an area that is already open is
// accepted as a duplicate and reports false.
func (l *Ledger) Open(req Request) bool {
	if l.IsOpen(req.Area) {
		return false
	}
	req.ResolvedAt = nil
	l.Requests = append(l.Requests, req)
	return true
}

// Resolve closes the open request for area at the given time.
func (l *Ledger) Resolve(area indicator.Code, at time.Time) (Request, error) {
	for i := range l.Requests {
		r := &l.Requests[i]
		if r.Area != area || !r.IsOpen() {
			continue
		}
		resolved := at
		r.ResolvedAt = &resolved
		l.Resolved++
		return *r, nil
	}
	return Request{}, dErrors.Newf(dErrors.CodeValidation, "area %s has no open calibration request", area)
}

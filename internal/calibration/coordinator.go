package calibration

import (
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"sglgb/internal/compliance"
	"sglgb/internal/indicator"
	dErrors "sglgb/pkg/domain-errors"
)

// Resolution is the outcome of resolving one area.
type Resolution struct {
	Request      Request
	Summary      compliance.AreaResult
	ClearedFlags int
	// Remaining lists areas still open after this resolution.
	Remaining []indicator.Code
}

// Resolver closes calibration requests against one assessment's state.
type Resolver struct {
	Tree      *indicator.Tree
	Policy    compliance.Policy
	Options   compliance.Options
	Responses map[indicator.Code]*compliance.Response
}

// Resolve closes area's open request, clears calibration flags in the area
// that were set before the resolution time, and recomputes the area's
// summary. The ledger and responses are mutated in place; callers hand in a
// copy when they need the original intact.
//
// An area resolves only after the submitter replaced everything flagged in
// it; otherwise the error is CodeUnresolvedCalibration and nothing changes.
func (r Resolver) Resolve(l *Ledger, area indicator.Code, at time.Time) (Resolution, error) {
	open, ok := l.OpenRequest(area)
	if !ok {
		return Resolution{}, dErrors.Newf(dErrors.CodeValidation, "area %s has no open calibration request", area)
	}
	if pending := Outstanding(r.Responses, open, at); len(pending) > 0 {
		return Resolution{}, dErrors.Newf(dErrors.CodeUnresolvedCalibration,
			"area %s needs fresh evidence for %s", area, strings.Join(pending, ", "))
	}
	req, err := l.Resolve(area, at)
	if err != nil {
		return Resolution{}, err
	}
	cleared := ClearFlags(r.Responses, area, at)

	opts := r.Options
	opts.CalibrationRequestedAt = maps.Clone(opts.CalibrationRequestedAt)
	delete(opts.CalibrationRequestedAt, area)

	summary, err := compliance.EvaluateArea(r.Tree, ResponseList(r.Responses), r.Policy, opts, area)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{
		Request:      req,
		Summary:      summary,
		ClearedFlags: cleared,
		Remaining:    l.OpenAreas(),
	}, nil
}

// Outstanding lists what still blocks req from resolving at the given time:
// flagged indicators whose current evidence is missing or predates their
// flag, and flagged evidence records that were never replaced.
func Outstanding(responses map[indicator.Code]*compliance.Response, req Request, at time.Time) []string {
	var pending []string
	for _, resp := range ResponseList(responses) {
		if resp.Indicator.Area() != req.Area {
			continue
		}
		named := slices.Contains(req.Indicators, resp.Indicator)
		if named || resp.FlaggedForCalibration && flaggedBefore(resp.FlaggedAt, at) {
			cutoff := req.RequestedAt
			if resp.FlaggedAt != nil && resp.FlaggedAt.After(cutoff) && resp.FlaggedAt.Before(at) {
				cutoff = *resp.FlaggedAt
			}
			if !replacedSince(resp, cutoff) {
				pending = append(pending, string(resp.Indicator))
			}
		}
		for _, ev := range resp.Evidence {
			if ev.FlaggedForCalibration && ev.Current() && flaggedBefore(ev.FlaggedAt, at) {
				pending = append(pending, ev.ID)
			}
		}
	}
	return pending
}

// replacedSince reports whether resp has current evidence and all of it was
// uploaded at or after cutoff.
func replacedSince(resp compliance.Response, cutoff time.Time) bool {
	current := 0
	for _, ev := range resp.Evidence {
		if !ev.Current() {
			continue
		}
		if ev.UploadedAt.Before(cutoff) {
			return false
		}
		current++
	}
	return current > 0
}

// ClearFlags drops flagged_for_calibration from area's responses and
// evidence flagged before at. It returns how many flags were cleared.
func ClearFlags(responses map[indicator.Code]*compliance.Response, area indicator.Code, at time.Time) int {
	cleared := 0
	for code, resp := range responses {
		if code.Area() != area {
			continue
		}
		if resp.FlaggedForCalibration && flaggedBefore(resp.FlaggedAt, at) {
			resp.FlaggedForCalibration = false
			cleared++
		}
		for i := range resp.Evidence {
			ev := &resp.Evidence[i]
			if ev.FlaggedForCalibration && flaggedBefore(ev.FlaggedAt, at) {
				ev.FlaggedForCalibration = false
				cleared++
			}
		}
	}
	return cleared
}

func flaggedBefore(flaggedAt *time.Time, at time.Time) bool {
	return flaggedAt == nil || flaggedAt.Before(at)
}

// ResponseList flattens responses in code order.
func ResponseList(responses map[indicator.Code]*compliance.Response) []compliance.Response {
	codes := make([]indicator.Code, 0, len(responses))
	for c := range responses {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	out := make([]compliance.Response, 0, len(codes))
	for _, c := range codes {
		out = append(out, *responses[c])
	}
	return out
}

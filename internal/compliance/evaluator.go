package compliance

import (
	"sort"
	"strings"

	"sglgb/internal/indicator"
	dErrors "sglgb/pkg/domain-errors"
)

// Evaluate scores every governance area of tree and applies the unit-level
// pass rule. A response or evidence record the tree cannot place is an
// EvaluationInconsistency and nothing is scored.
func Evaluate(tree *indicator.Tree, responses []Response, policy Policy, opts Options) (Summary, error) {
	ev, err := newEvaluator(tree, responses, policy, opts)
	if err != nil {
		return Summary{}, err
	}

	areas := tree.Areas()
	sum := Summary{
		Year:          tree.Year(),
		Indicators:    make(map[indicator.Code]IndicatorResult, tree.Len()),
		MinMetAreas:   policy.MinMetAreas,
		RequiredAreas: policy.RequiredAreas,
	}
	if sum.MinMetAreas == 0 {
		sum.MinMetAreas = len(areas)
	}

	met := make(map[indicator.Code]bool, len(areas))
	for _, code := range areas {
		ar := ev.area(code)
		sum.Areas = append(sum.Areas, ar)
		sum.BBIs = append(sum.BBIs, ar.BBIs...)
		for k, v := range ar.Indicators {
			sum.Indicators[k] = v
		}
		if ar.Met {
			sum.MetAreas++
			met[code] = true
		}
	}

	sum.Passed = sum.MetAreas >= sum.MinMetAreas
	for _, req := range policy.RequiredAreas {
		if !met[req] {
			sum.Passed = false
		}
	}
	return sum, nil
}

// EvaluateArea scores a single governance area. The unit-level rule is not
// applied.
func EvaluateArea(tree *indicator.Tree, responses []Response, policy Policy, opts Options, area indicator.Code) (AreaResult, error) {
	ind, ok := tree.Lookup(area)
	if !ok || !ind.IsArea() {
		return AreaResult{}, dErrors.Newf(dErrors.CodeNotFound, "governance area %s not in %d catalog", area, tree.Year())
	}
	ev, err := newEvaluator(tree, responses, policy, opts)
	if err != nil {
		return AreaResult{}, err
	}
	return ev.area(area), nil
}

// MissingEvidence lists the non-profiling leaf indicators with checklist items
// but no current evidence, in tree order.
func MissingEvidence(tree *indicator.Tree, responses []Response) []indicator.Code {
	has := make(map[indicator.Code]bool, len(responses))
	for _, r := range responses {
		for _, e := range r.Evidence {
			if e.Current() {
				has[r.Indicator] = true
				break
			}
		}
	}
	var missing []indicator.Code
	for _, code := range tree.Leaves("") {
		ind, _ := tree.Lookup(code)
		if ind.IsProfilingOnly || ind.IsArea() || len(tree.Items(code)) == 0 {
			continue
		}
		if !has[code] {
			missing = append(missing, code)
		}
	}
	return missing
}

type evaluator struct {
	tree      *indicator.Tree
	policy    Policy
	opts      Options
	responses map[indicator.Code]*Response
	excluded  map[string]struct{}
	results   map[indicator.Code]IndicatorResult
	bbis      map[indicator.Code][]BBIResult
}

func newEvaluator(tree *indicator.Tree, responses []Response, policy Policy, opts Options) (*evaluator, error) {
	e := &evaluator{
		tree:      tree,
		policy:    policy,
		opts:      opts,
		responses: make(map[indicator.Code]*Response, len(responses)),
		excluded:  make(map[string]struct{}, len(opts.ExcludedEvidence)),
		results:   make(map[indicator.Code]IndicatorResult, tree.Len()),
		bbis:      make(map[indicator.Code][]BBIResult),
	}
	for _, id := range opts.ExcludedEvidence {
		e.excluded[id] = struct{}{}
	}
	for i := range responses {
		r := &responses[i]
		if !tree.Has(r.Indicator) {
			return nil, dErrors.Newf(dErrors.CodeEvaluationInconsistency,
				"response references indicator %s missing from %d catalog", r.Indicator, tree.Year())
		}
		if _, dup := e.responses[r.Indicator]; dup {
			return nil, dErrors.Newf(dErrors.CodeEvaluationInconsistency,
				"more than one response for indicator %s", r.Indicator)
		}
		if !r.ValidationStatus.IsValid() {
			return nil, dErrors.Newf(dErrors.CodeEvaluationInconsistency,
				"indicator %s has unknown validation status %q", r.Indicator, r.ValidationStatus)
		}
		for _, ev := range r.Evidence {
			item, ok := tree.Item(ev.ItemID)
			if !ok || item.Indicator != r.Indicator {
				return nil, dErrors.Newf(dErrors.CodeEvaluationInconsistency,
					"evidence %s references item %s outside indicator %s", ev.ID, ev.ItemID, r.Indicator)
			}
		}
		e.responses[r.Indicator] = r
	}
	return e, nil
}

func (e *evaluator) area(code indicator.Code) AreaResult {
	root := e.eval(code)
	out := AreaResult{
		Area:       code,
		Met:        root.Passed(),
		Indicators: make(map[indicator.Code]IndicatorResult),
	}
	for k, v := range e.results {
		if k.Area() == code {
			out.Indicators[k] = v
		}
	}
	out.BBIs = e.bbis[code]
	return out
}

func (e *evaluator) eval(code indicator.Code) IndicatorResult {
	if r, ok := e.results[code]; ok {
		return r
	}
	ind, _ := e.tree.Lookup(code)
	res := IndicatorResult{
		Code:            code,
		IsProfilingOnly: ind.IsProfilingOnly,
		IsBBI:           ind.IsBBI,
	}

	children := e.tree.Children(code)
	if len(children) == 0 {
		res = e.leaf(ind, res)
		if ind.IsBBI {
			passed := 0
			if res.Passed() {
				passed = 1
			}
			res.Status = e.scoreBBI(ind, passed)
			res.Computed = res.Status
		}
		e.results[code] = res
		return res
	}

	passed, considered := 0, 0
	for _, c := range children {
		cr := e.eval(c)
		if cr.IsProfilingOnly {
			continue
		}
		considered++
		if cr.Passed() {
			passed++
		}
	}
	if ind.IsBBI {
		res.Computed = e.scoreBBI(ind, passed)
	} else {
		res.Computed = statusOf(passed == considered)
	}
	res.Status = res.Computed
	e.results[code] = res
	return res
}

func (e *evaluator) scoreBBI(ind indicator.Indicator, passed int) Status {
	bands := e.policy.bandsFor(ind.Code)
	band := SelectBand(bands, passed)
	functional := band.MinPassed >= e.policy.passingThreshold(bands)
	e.bbis[ind.Area] = append(e.bbis[ind.Area], BBIResult{
		Indicator:   ind.Code,
		PassedCount: passed,
		Level:       band.Level,
		Functional:  functional,
	})
	return statusOf(functional)
}

func (e *evaluator) leaf(ind indicator.Indicator, res IndicatorResult) IndicatorResult {
	resp := e.responses[ind.Code]
	items := e.tree.Items(ind.Code)
	satisfied := map[string]bool{}
	if resp != nil {
		satisfied, res.StaleEvidence = e.satisfiedItems(ind, resp)
	}
	for _, it := range items {
		if satisfied[it.ID] {
			res.SatisfiedItems = append(res.SatisfiedItems, it.ID)
		}
	}

	var ok bool
	switch ind.Rule {
	case indicator.RuleAnyItemRequired:
		ok, res.MissingItems = anyItem(items, satisfied)
	case indicator.RuleAnyOptionGroupRequired:
		ok, res.SelectedGroup, res.MissingItems = anyGroup(items, satisfied)
	default:
		ok, res.SelectedGroup, res.MissingItems = allItems(items, satisfied)
	}
	if len(items) == 0 {
		ok = false
	}
	res.Computed = statusOf(ok)
	res.Status = res.Computed

	if resp != nil && resp.ValidationStatus != ValidationUnset {
		res.Reviewer = resp.ValidationStatus
		res.Status = statusOf(resp.ValidationStatus.Passing())
	}
	return res
}

func (e *evaluator) satisfiedItems(ind indicator.Indicator, resp *Response) (map[string]bool, []string) {
	out := make(map[string]bool, len(resp.Evidence))
	var stale []string
	for _, ev := range resp.Evidence {
		if !ev.Current() {
			continue
		}
		if !e.fresh(ind, resp, ev) {
			stale = append(stale, ev.ID)
			continue
		}
		item, _ := e.tree.Item(ev.ItemID)
		if hasValue(item.Kind, ev) {
			out[ev.ItemID] = true
		}
	}
	return out, stale
}

// fresh applies the staleness cutoffs. Indicator-level and evidence-level
// flags are independent signals; either one can make a record stale.
func (e *evaluator) fresh(ind indicator.Indicator, resp *Response, ev Evidence) bool {
	if _, ok := e.excluded[ev.ID]; ok {
		return false
	}
	if ev.FlaggedForRework || ev.FlaggedForCalibration {
		return false
	}
	if resp.FlaggedForRework && resp.ReworkRequestedAt != nil && ev.UploadedAt.Before(*resp.ReworkRequestedAt) {
		return false
	}
	if resp.FlaggedForCalibration {
		if at, ok := e.opts.CalibrationRequestedAt[ind.Area]; ok && ev.UploadedAt.Before(at) {
			return false
		}
	}
	return true
}

func hasValue(kind indicator.ItemKind, ev Evidence) bool {
	if kind == indicator.ItemBoolean {
		return ev.Checked
	}
	return strings.TrimSpace(ev.Value) != ""
}

// allItems needs every required ungrouped item plus one option group. The
// first fully satisfied group is selected, else the one closest to complete.
func allItems(items []indicator.ChecklistItem, satisfied map[string]bool) (bool, string, []string) {
	var missing []string
	order, groups := groupItems(items, true)
	for _, it := range items {
		if it.Required && it.OptionGroup == "" && !satisfied[it.ID] {
			missing = append(missing, it.ID)
		}
	}
	if len(order) == 0 {
		return len(missing) == 0, "", missing
	}
	selected := selectGroup(order, groups, satisfied)
	for _, it := range groups[selected] {
		if !satisfied[it.ID] {
			missing = append(missing, it.ID)
		}
	}
	return len(missing) == 0, selected, missing
}

// anyItem needs one satisfied required item; with no required items any item
// will do.
func anyItem(items []indicator.ChecklistItem, satisfied map[string]bool) (bool, []string) {
	candidates := make([]indicator.ChecklistItem, 0, len(items))
	for _, it := range items {
		if it.Required {
			candidates = append(candidates, it)
		}
	}
	if len(candidates) == 0 {
		candidates = items
	}
	var missing []string
	for _, it := range candidates {
		if satisfied[it.ID] {
			return true, nil
		}
		missing = append(missing, it.ID)
	}
	return false, missing
}

// anyGroup needs one option group with every member satisfied. Partial
// groups earn nothing.
func anyGroup(items []indicator.ChecklistItem, satisfied map[string]bool) (bool, string, []string) {
	order, groups := groupItems(items, false)
	if len(order) == 0 {
		return false, "", nil
	}
	selected := selectGroup(order, groups, satisfied)
	var missing []string
	for _, it := range groups[selected] {
		if !satisfied[it.ID] {
			missing = append(missing, it.ID)
		}
	}
	return len(missing) == 0, selected, missing
}

// groupItems buckets items by option group in declaration order. A group's
// members are its required items, or all of them when none is required.
// requiredOnly drops groups without required members entirely.
func groupItems(items []indicator.ChecklistItem, requiredOnly bool) ([]string, map[string][]indicator.ChecklistItem) {
	var order []string
	all := map[string][]indicator.ChecklistItem{}
	req := map[string][]indicator.ChecklistItem{}
	for _, it := range items {
		if it.OptionGroup == "" {
			continue
		}
		if _, seen := all[it.OptionGroup]; !seen {
			order = append(order, it.OptionGroup)
		}
		all[it.OptionGroup] = append(all[it.OptionGroup], it)
		if it.Required {
			req[it.OptionGroup] = append(req[it.OptionGroup], it)
		}
	}

	groups := make(map[string][]indicator.ChecklistItem, len(order))
	kept := order[:0:0]
	for _, g := range order {
		switch {
		case len(req[g]) > 0:
			groups[g] = req[g]
		case requiredOnly:
			continue
		default:
			groups[g] = all[g]
		}
		kept = append(kept, g)
	}
	return kept, groups
}

func selectGroup(order []string, groups map[string][]indicator.ChecklistItem, satisfied map[string]bool) string {
	best, bestScore := order[0], -1.0
	for _, g := range order {
		n := 0
		for _, it := range groups[g] {
			if satisfied[it.ID] {
				n++
			}
		}
		if n == len(groups[g]) {
			return g
		}
		if score := float64(n) / float64(len(groups[g])); score > bestScore {
			best, bestScore = g, score
		}
	}
	return best
}

func statusOf(ok bool) Status {
	if ok {
		return StatusPass
	}
	return StatusFail
}

// SortedCodes returns the keys of m in lexical order; handy for stable output.
func SortedCodes(m map[indicator.Code]IndicatorResult) []indicator.Code {
	out := make([]indicator.Code, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

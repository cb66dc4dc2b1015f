package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sglgb/internal/compliance"
	"sglgb/internal/indicator"
)

var (
	t0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	submitter = Actor{ID: "sub-1", Role: RoleSubmitter}
	assessor1 = Actor{ID: "as-1", Role: RoleAssessor, Areas: []indicator.Code{"1"}}
	assessor2 = Actor{ID: "as-2", Role: RoleAssessor, Areas: []indicator.Code{"2"}}
	validator = Actor{ID: "val-1", Role: RoleValidator}
	mlgoo     = Actor{ID: "mlgoo-1", Role: RoleMLGOO}

	allActors = []Actor{submitter, assessor1, validator, mlgoo, SystemActor}
)

func testTree() *indicator.Tree {
	return indicator.NewBuilder(2025).
		Area("1", "Financial Administration").
		Indicator("1", indicator.Spec{Code: "1.1", Name: "Budget transparency"}).
		Item(indicator.ChecklistItem{ID: "1.1.a", Indicator: "1.1", Required: true}).
		Item(indicator.ChecklistItem{ID: "1.1.b", Indicator: "1.1", Required: true}).
		Area("2", "Disaster Preparedness").
		Indicator("2", indicator.Spec{Code: "2.1", Name: "Contingency plan"}).
		Item(indicator.ChecklistItem{ID: "2.1.a", Indicator: "2.1", Required: true}).
		MustBuild()
}

// harness drives one assessment through transitions on a ticking clock.
type harness struct {
	t      *testing.T
	tree   *indicator.Tree
	policy compliance.Policy
	a      *Assessment
	now    time.Time
	seq    int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tree := testTree()
	return &harness{
		t:      t,
		tree:   tree,
		policy: compliance.DefaultPolicy(),
		a:      NewAssessment("asm-1", "unit-1", tree, t0),
		now:    t0,
	}
}

func (h *harness) tick() time.Time {
	h.now = h.now.Add(time.Hour)
	return h.now
}

func (h *harness) env() Env {
	return Env{
		Now:    h.now,
		Tree:   h.tree,
		Policy: h.policy,
		NewID: func() string {
			h.seq++
			return fmt.Sprintf("cal-%d", h.seq)
		},
	}
}

func (h *harness) upload(item string) string {
	h.t.Helper()
	h.tick()
	h.seq++
	id := fmt.Sprintf("ev-%d", h.seq)
	ind, _ := h.tree.Item(item)
	_, err := h.a.RecordEvidence(submitter, h.tree, ind.Indicator, EvidenceInput{ItemID: item, Checked: true}, id, h.now)
	require.NoError(h.t, err)
	return id
}

func (h *harness) try(actor Actor, action Action, p Payload) (Outcome, error) {
	h.tick()
	return ApplyTransition(h.a, actor, action, p, h.env())
}

func (h *harness) do(actor Actor, action Action, p Payload) Outcome {
	h.t.Helper()
	out, err := h.try(actor, action, p)
	require.NoError(h.t, err, "%s by %s from %s", action, actor.Role, h.a.Status)
	h.a = out.Assessment
	require.Equal(h.t, DeriveStatus(h.a), h.a.Status)
	return out
}

// Steps that walk the happy path; each builds on the previous one.

func (h *harness) complete() *harness {
	h.upload("1.1.a")
	h.upload("1.1.b")
	h.upload("2.1.a")
	return h
}

func (h *harness) submitted() *harness {
	h.complete()
	h.do(submitter, ActionSubmit, Payload{})
	return h
}

func (h *harness) inReview() *harness {
	h.submitted()
	h.do(assessor1, ActionStartReview, Payload{})
	return h
}

func (h *harness) reworkRequested() *harness {
	h.inReview()
	h.do(assessor1, ActionRequestRework, Payload{Area: "1", Indicators: []indicator.Code{"1.1"}})
	h.do(assessor2, ActionApproveArea, Payload{Area: "2"})
	return h
}

func (h *harness) awaitingValidation() *harness {
	h.inReview()
	h.do(assessor1, ActionApproveArea, Payload{Area: "1"})
	h.do(assessor2, ActionApproveArea, Payload{Area: "2"})
	return h
}

func (h *harness) underValidation() *harness {
	h.awaitingValidation()
	h.do(validator, ActionStartValidation, Payload{})
	return h
}

func (h *harness) calibrationRequested() *harness {
	h.underValidation()
	h.do(validator, ActionRequestCalibration, Payload{Area: "1", Indicators: []indicator.Code{"1.1"}})
	return h
}

func (h *harness) awaitingApproval() *harness {
	h.underValidation()
	h.do(validator, ActionApproveArea, Payload{Area: "1"})
	h.do(validator, ActionApproveArea, Payload{Area: "2"})
	return h
}

func (h *harness) recalibration() *harness {
	h.awaitingApproval()
	h.do(mlgoo, ActionRequestRecalibration, Payload{EvidenceIDs: []string{h.currentEvidence("1.1.a")}})
	return h
}

func (h *harness) completed() *harness {
	h.awaitingApproval()
	h.do(mlgoo, ActionApprove, Payload{})
	return h
}

func (h *harness) evaluate() compliance.Summary {
	h.t.Helper()
	sum, err := h.a.Evaluate(h.tree, h.policy)
	require.NoError(h.t, err)
	return sum
}

func (h *harness) currentEvidence(item string) string {
	h.t.Helper()
	for _, r := range h.a.Responses {
		for _, ev := range r.Evidence {
			if ev.ItemID == item && ev.Current() {
				return ev.ID
			}
		}
	}
	h.t.Fatalf("no current evidence for %s", item)
	return ""
}

// atStatus builds a fresh assessment parked in s.
func atStatus(t *testing.T, s Status) *harness {
	t.Helper()
	h := newHarness(t)
	switch s {
	case StatusDraft:
	case StatusSubmitted:
		h.submitted()
	case StatusUnderAssessorReview:
		h.inReview()
	case StatusReworkRequested:
		h.reworkRequested()
	case StatusAwaitingFinalValidation:
		h.awaitingValidation()
	case StatusUnderValidation:
		h.underValidation()
	case StatusCalibrationRequested:
		h.calibrationRequested()
	case StatusAwaitingMLGOOApproval:
		h.awaitingApproval()
	case StatusMLGOORecalibration:
		h.recalibration()
	case StatusCompleted:
		h.completed()
	default:
		t.Fatalf("no fixture for %s", s)
	}
	require.Equal(t, s, h.a.Status)
	return h
}

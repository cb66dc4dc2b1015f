package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sglgb/internal/compliance"
	"sglgb/internal/indicator"
	dErrors "sglgb/pkg/domain-errors"
)

func TestRecordEvidence(t *testing.T) {
	t.Run("a new upload supersedes the current record for the item", func(t *testing.T) {
		h := newHarness(t)
		first := h.upload("1.1.a")
		second := h.upload("1.1.a")

		ev := h.a.Responses["1.1"].Evidence
		require.Len(t, ev, 2)
		assert.Equal(t, first, ev[0].ID)
		assert.NotNil(t, ev[0].SupersededAt)
		assert.Equal(t, second, ev[1].ID)
		assert.True(t, ev[1].Current())
	})

	t.Run("items must belong to the indicator", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.a.RecordEvidence(submitter, h.tree, "2.1", EvidenceInput{ItemID: "1.1.a", Checked: true}, "e", t0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("only the submitter uploads", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.a.RecordEvidence(assessor1, h.tree, "1.1", EvidenceInput{ItemID: "1.1.a", Checked: true}, "e", t0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("evidence is frozen while under review", func(t *testing.T) {
		h := atStatus(t, StatusUnderAssessorReview)
		_, err := h.a.RecordEvidence(submitter, h.tree, "1.1", EvidenceInput{ItemID: "1.1.a", Checked: true}, "e", h.now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("rework reopens only the returned area", func(t *testing.T) {
		h := atStatus(t, StatusReworkRequested)
		_, err := h.a.RecordEvidence(submitter, h.tree, "2.1", EvidenceInput{ItemID: "2.1.a", Checked: true}, "e", h.now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
		_, err = h.a.RecordEvidence(submitter, h.tree, "1.1", EvidenceInput{ItemID: "1.1.a", Checked: true}, "e2", h.now)
		assert.NoError(t, err)
	})
}

func TestRecordEvidenceValueItems(t *testing.T) {
	tree := indicator.NewBuilder(2025).
		Area("1", "Finance").
		Indicator("1", indicator.Spec{Code: "1.1"}).
		Item(indicator.ChecklistItem{ID: "amount", Indicator: "1.1", Kind: indicator.ItemNumeric, Required: true}).
		MustBuild()
	a := NewAssessment("asm", "unit", tree, t0)

	_, err := a.RecordEvidence(submitter, tree, "1.1", EvidenceInput{ItemID: "amount", Value: "  "}, "e1", t0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	ev, err := a.RecordEvidence(submitter, tree, "1.1", EvidenceInput{ItemID: "amount", Value: " 1250000 "}, "e2", t0)
	require.NoError(t, err)
	assert.Equal(t, "1250000", ev.Value)
}

func TestRecordValidation(t *testing.T) {
	t.Run("assessors record verdicts on their own area", func(t *testing.T) {
		h := atStatus(t, StatusUnderAssessorReview)
		require.NoError(t, h.a.RecordValidation(assessor1, h.tree, "1.1", compliance.ValidationFail, "missing signature", h.now))
		assert.Equal(t, compliance.ValidationFail, h.a.Responses["1.1"].ValidationStatus)
		assert.Equal(t, "missing signature", h.a.Responses["1.1"].Remarks)

		err := h.a.RecordValidation(assessor1, h.tree, "2.1", compliance.ValidationPass, "", h.now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("reviewer verdicts override the computed status", func(t *testing.T) {
		h := atStatus(t, StatusUnderAssessorReview)
		require.NoError(t, h.a.RecordValidation(assessor1, h.tree, "1.1", compliance.ValidationFail, "", h.now))
		sum, err := h.a.Evaluate(h.tree, compliance.DefaultPolicy())
		require.NoError(t, err)
		assert.Equal(t, compliance.StatusFail, sum.Indicators["1.1"].Status)
		assert.False(t, sum.Passed)
	})

	t.Run("unknown verdicts are rejected", func(t *testing.T) {
		h := atStatus(t, StatusUnderValidation)
		err := h.a.RecordValidation(validator, h.tree, "1.1", "MAYBE", "", h.now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("validators cannot touch an area under calibration", func(t *testing.T) {
		h := atStatus(t, StatusCalibrationRequested)
		err := h.a.RecordValidation(validator, h.tree, "1.1", compliance.ValidationPass, "", h.now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnresolvedCalibration))
		assert.NoError(t, h.a.RecordValidation(validator, h.tree, "2.1", compliance.ValidationConditional, "", h.now))
	})

	t.Run("assessors are done once validation starts", func(t *testing.T) {
		h := atStatus(t, StatusUnderValidation)
		err := h.a.RecordValidation(assessor1, h.tree, "1.1", compliance.ValidationPass, "", h.now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestFlagEvidence(t *testing.T) {
	h := atStatus(t, StatusUnderValidation)
	id := h.currentEvidence("1.1.b")

	err := h.a.FlagEvidence(validator, id, FlagRework, h.now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	require.NoError(t, h.a.FlagEvidence(validator, id, FlagCalibration, h.now))
	_, ev, ok := h.a.findEvidence(id)
	require.True(t, ok)
	assert.True(t, ev.FlaggedForCalibration)
	assert.Equal(t, validator.ID, ev.FlaggedBy)
	assert.False(t, h.a.Responses["1.1"].FlaggedForCalibration, "indicator flag is independent")

	sum, err := h.a.Evaluate(h.tree, compliance.DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, compliance.StatusFail, sum.Indicators["1.1"].Status)
	assert.Contains(t, sum.Indicators["1.1"].StaleEvidence, id)

	err = h.a.FlagEvidence(validator, "nope", FlagCalibration, h.now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestFlagIndicatorForCalibration(t *testing.T) {
	h := atStatus(t, StatusUnderValidation)
	at := h.now.Add(time.Minute)

	require.NoError(t, h.a.FlagIndicatorForCalibration(validator, h.tree, "2.1", at))
	r := h.a.Responses["2.1"]
	assert.True(t, r.FlaggedForCalibration)
	require.NotNil(t, r.FlaggedAt)
	assert.Equal(t, at, *r.FlaggedAt)
	for _, ev := range r.Evidence {
		assert.False(t, ev.FlaggedForCalibration)
	}

	err := h.a.FlagIndicatorForCalibration(assessor2, h.tree, "2.1", at)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

package models

// DeriveStatus computes the macro state from the phase, the per-area map and
// the open calibration requests. Stored Status must always equal it.
func DeriveStatus(a *Assessment) Status {
	switch a.Phase {
	case PhaseDraft:
		return StatusDraft
	case PhaseSubmitted:
		return StatusSubmitted
	case PhaseAssessment:
		if a.allAreas(AreaAssessed) {
			return StatusAwaitingFinalValidation
		}
		// A review round closes once every area is approved or returned.
		if a.anyArea(AreaRework) && a.allAreas(AreaAssessed, AreaRework) {
			return StatusReworkRequested
		}
		return StatusUnderAssessorReview
	case PhaseValidation:
		if a.Calibrations.HasOpen() {
			return StatusCalibrationRequested
		}
		if a.allAreas(AreaValidated) {
			return StatusAwaitingMLGOOApproval
		}
		return StatusUnderValidation
	case PhaseOversight:
		return StatusAwaitingMLGOOApproval
	case PhaseRecalibration:
		return StatusMLGOORecalibration
	case PhaseCompleted:
		return StatusCompleted
	}
	return StatusDraft
}

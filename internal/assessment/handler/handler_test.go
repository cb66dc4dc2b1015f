package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"sglgb/internal/assessment/handler/mocks"
	"sglgb/internal/assessment/models"
	"sglgb/internal/compliance"
	"sglgb/internal/indicator"
	dErrors "sglgb/pkg/domain-errors"
	"sglgb/pkg/platform/middleware/metadata"
	"sglgb/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	r := chi.NewRouter()
	r.Use(metadata.RequestID, metadata.Actor)
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func as(req *http.Request, id, role, areas string) *http.Request {
	if areas == "" {
		return testutil.WithActor(req, id, role)
	}
	return testutil.WithActor(req, id, role, areas)
}

func (s *HandlerSuite) TestCreate() {
	s.Run("creates a draft", func() {
		a := &models.Assessment{ID: "asm-1", UnitID: "unit-1", Year: 2025, Status: models.StatusDraft}
		s.service.EXPECT().Create(gomock.Any(), "unit-1", 2025).Return(a, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/assessments",
			map[string]any{"unit_id": " unit-1 ", "year": 2025}))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "id", "asm-1")
		testutil.AssertJSONContains(s.T(), rr, "status", "DRAFT")
	})

	s.Run("missing unit is a validation error", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/assessments",
			map[string]any{"year": 2025}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("unknown fields are rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/assessments",
			`{"unit_id":"u","year":2025,"status":"COMPLETED"}`))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("duplicate maps to conflict", func() {
		s.service.EXPECT().Create(gomock.Any(), "unit-1", 2025).
			Return(nil, dErrors.New(dErrors.CodeConflict, "an assessment already exists for this unit and year"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/assessments",
			map[string]any{"unit_id": "unit-1", "year": 2025}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeConflict))
	})
}

func (s *HandlerSuite) TestGet() {
	s.service.EXPECT().Get(gomock.Any(), "missing").Return(nil, dErrors.New(dErrors.CodeNotFound, "assessment not found"))
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/assessments/missing"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
}

func (s *HandlerSuite) TestTransition() {
	s.Run("passes the parsed actor and payload", func() {
		want := models.Actor{ID: "as-1", Role: models.RoleAssessor, Areas: []indicator.Code{"1", "3"}}
		s.service.EXPECT().Transition(gomock.Any(), "asm-1", want, models.ActionRequestRework, models.Payload{
			Area:       "1",
			Indicators: []indicator.Code{"1.1"},
			Remarks:    "missing signature",
		}).Return(models.Outcome{
			Assessment: &models.Assessment{ID: "asm-1", Status: models.StatusReworkRequested},
			Events:     []models.Event{{Type: models.EventReworkRequested, AssessmentID: "asm-1", OccurredAt: time.Now()}},
			Changed:    true,
		}, nil)

		req := as(testutil.NewJSONRequest(s.T(), http.MethodPost, "/assessments/asm-1/transitions", map[string]any{
			"action":     " REQUEST_REWORK ",
			"area":       "1",
			"indicators": []string{" 1.1 ", ""},
			"remarks":    " missing signature ",
		}), "as-1", "Assessor", "1, 3")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[TransitionResponse](s.T(), rr)
		s.True(resp.Changed)
		s.Equal(models.StatusReworkRequested, resp.Assessment.Status)
		s.Require().Len(resp.Events, 1)
		s.Equal(models.EventReworkRequested, resp.Events[0].Type)
	})

	s.Run("missing identity is unauthorized", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/assessments/asm-1/transitions",
			map[string]any{"action": "submit"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})

	s.Run("callers cannot claim the system role", func() {
		req := as(testutil.NewJSONRequest(s.T(), http.MethodPost, "/assessments/asm-1/transitions",
			map[string]any{"action": "submit"}), "cron", "system", "")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(dErrors.CodeForbidden))
	})

	s.Run("auto_submit is not exposed", func() {
		req := as(testutil.NewJSONRequest(s.T(), http.MethodPost, "/assessments/asm-1/transitions",
			map[string]any{"action": "auto_submit"}), "sub-1", "submitter", "")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(dErrors.CodeForbidden))
	})

	s.Run("unknown action is a bad request", func() {
		req := as(testutil.NewJSONRequest(s.T(), http.MethodPost, "/assessments/asm-1/transitions",
			map[string]any{"action": "teleport"}), "sub-1", "submitter", "")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("illegal transitions map to conflict", func() {
		s.service.EXPECT().Transition(gomock.Any(), "asm-1", gomock.Any(), models.ActionApprove, gomock.Any()).
			Return(models.Outcome{}, dErrors.New(dErrors.CodeInvalidTransition, "invalid transition"))
		req := as(testutil.NewJSONRequest(s.T(), http.MethodPost, "/assessments/asm-1/transitions",
			map[string]any{"action": "approve"}), "mlgoo-1", "mlgoo", "")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeInvalidTransition))
	})
}

func (s *HandlerSuite) TestRecordEvidence() {
	actor := models.Actor{ID: "sub-1", Role: models.RoleSubmitter}
	s.service.EXPECT().RecordEvidence(gomock.Any(), "asm-1", gomock.Any(), indicator.Code("1.1"),
		models.EvidenceInput{ItemID: "1.1.a", Checked: true}).
		DoAndReturn(func(_ context.Context, _ string, got models.Actor, _ indicator.Code, in models.EvidenceInput) (models.Evidence, error) {
			s.Equal(actor.ID, got.ID)
			s.Equal(actor.Role, got.Role)
			return models.Evidence{ID: "ev-1", ItemID: in.ItemID, Checked: true}, nil
		})

	req := as(testutil.NewJSONRequest(s.T(), http.MethodPost, "/assessments/asm-1/indicators/1.1/evidence",
		map[string]any{"item_id": "1.1.a", "checked": true}), "sub-1", "submitter", "")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	testutil.AssertJSONContains(s.T(), rr, "id", "ev-1")
}

func (s *HandlerSuite) TestRecordValidation() {
	s.Run("normalizes the verdict", func() {
		s.service.EXPECT().RecordValidation(gomock.Any(), "asm-1", gomock.Any(), indicator.Code("1.1"), compliance.ValidationFail, "unsigned").Return(nil)
		req := as(testutil.NewJSONRequest(s.T(), http.MethodPut, "/assessments/asm-1/indicators/1.1/validation",
			map[string]any{"status": "fail", "remarks": " unsigned "}), "val-1", "validator", "")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})

	s.Run("rejects unknown verdicts", func() {
		req := as(testutil.NewJSONRequest(s.T(), http.MethodPut, "/assessments/asm-1/indicators/1.1/validation",
			map[string]any{"status": "maybe"}), "val-1", "validator", "")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("open calibration maps to conflict", func() {
		s.service.EXPECT().RecordValidation(gomock.Any(), "asm-1", gomock.Any(), indicator.Code("1.1"), compliance.ValidationPass, "").
			Return(dErrors.New(dErrors.CodeUnresolvedCalibration, "area 1 has an open calibration request"))
		req := as(testutil.NewJSONRequest(s.T(), http.MethodPut, "/assessments/asm-1/indicators/1.1/validation",
			map[string]any{"status": "PASS"}), "val-1", "validator", "")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeUnresolvedCalibration))
	})
}

func (s *HandlerSuite) TestFlags() {
	s.service.EXPECT().FlagEvidence(gomock.Any(), "asm-1", gomock.Any(), "ev-9", models.FlagCalibration).Return(nil)
	req := as(testutil.NewJSONRequest(s.T(), http.MethodPost, "/assessments/asm-1/evidence/ev-9/flags",
		map[string]any{"kind": "Calibration"}), "val-1", "validator", "")
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusNoContent)

	s.service.EXPECT().FlagIndicatorForCalibration(gomock.Any(), "asm-1", gomock.Any(), indicator.Code("2.1")).Return(nil)
	req = as(testutil.NewRequest(s.T(), http.MethodPost, "/assessments/asm-1/indicators/2.1/calibration-flag"), "val-1", "validator", "")
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusNoContent)

	req = as(testutil.NewJSONRequest(s.T(), http.MethodPost, "/assessments/asm-1/evidence/ev-9/flags",
		map[string]any{"kind": "delete"}), "val-1", "validator", "")
	testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, req), http.StatusBadRequest, string(dErrors.CodeValidation))
}

func (s *HandlerSuite) TestEvaluateInternalErrorsAreOpaque() {
	s.service.EXPECT().Evaluate(gomock.Any(), "asm-1").
		Return(compliance.Summary{}, dErrors.Wrap(io.ErrUnexpectedEOF, dErrors.CodeInternal, "failed to load assessment"))
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/assessments/asm-1/evaluation"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, string(dErrors.CodeInternal))
	s.NotContains(rr.Body.String(), "unexpected EOF")
}

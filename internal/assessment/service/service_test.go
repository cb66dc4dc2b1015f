package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Catalog,PolicySource,Dispatcher,TxRunner,AuditPublisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"sglgb/internal/assessment/models"
	"sglgb/internal/assessment/service/mocks"
	"sglgb/internal/assessment/store"
	"sglgb/internal/compliance"
	"sglgb/internal/indicator"
	dErrors "sglgb/pkg/domain-errors"
	"sglgb/pkg/platform/audit"
	"sglgb/pkg/platform/audit/publisher"
	auditmemory "sglgb/pkg/platform/audit/store/memory"
	"sglgb/pkg/platform/sentinel"
	"sglgb/pkg/requestcontext"
)

// =============================================================================
// Assessment Service Test Suite
// =============================================================================
// The suite runs the service over the in-memory store and the real audit
// publisher; only the notification boundary is mocked.

var (
	t0       = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	deadline = time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)

	submitter = models.Actor{ID: "sub-1", Role: models.RoleSubmitter}
	assessor1 = models.Actor{ID: "as-1", Role: models.RoleAssessor, Areas: []indicator.Code{"1"}}
	assessor2 = models.Actor{ID: "as-2", Role: models.RoleAssessor, Areas: []indicator.Code{"2"}}
	validator = models.Actor{ID: "val-1", Role: models.RoleValidator}
)

func testTree() *indicator.Tree {
	return indicator.NewBuilder(2025).
		Area("1", "Financial Administration").
		Indicator("1", indicator.Spec{Code: "1.1", Name: "Budget transparency"}).
		Item(indicator.ChecklistItem{ID: "1.1.a", Indicator: "1.1", Required: true}).
		Area("2", "Disaster Preparedness").
		Indicator("2", indicator.Spec{Code: "2.1", Name: "Contingency plan"}).
		Item(indicator.ChecklistItem{ID: "2.1.a", Indicator: "2.1", Required: true}).
		MustBuild()
}

func testPolicy() compliance.Policy {
	p := compliance.DefaultPolicy()
	p.Deadlines = map[int]time.Time{2025: deadline}
	return p
}

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("id-%d", n.Add(1)) }
}

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	dispatcher *mocks.MockDispatcher
	store      *store.InMemoryStore
	audits     *auditmemory.InMemoryStore
	service    *Service
	now        time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.dispatcher = mocks.NewMockDispatcher(s.ctrl)
	s.store = store.NewInMemory()
	s.audits = auditmemory.NewInMemoryStore()
	s.now = t0

	svc, err := New(s.store,
		indicator.StaticCatalog{2025: testTree()},
		compliance.NewStaticSource(testPolicy()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithDispatcher(s.dispatcher),
		WithAuditPublisher(publisher.NewPublisher(s.audits)),
		WithIDGenerator(sequentialIDs()),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

// ctx advances the request clock by a minute per call.
func (s *ServiceSuite) ctx() context.Context {
	s.now = s.now.Add(time.Minute)
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) create() *models.Assessment {
	a, err := s.service.Create(s.ctx(), "unit-1", 2025)
	s.Require().NoError(err)
	return a
}

func (s *ServiceSuite) upload(id string, code indicator.Code, item string) models.Evidence {
	ev, err := s.service.RecordEvidence(s.ctx(), id, submitter, code, models.EvidenceInput{ItemID: item, Checked: true})
	s.Require().NoError(err)
	return ev
}

func (s *ServiceSuite) transition(id string, actor models.Actor, action models.Action, p models.Payload) models.Outcome {
	out, err := s.service.Transition(s.ctx(), id, actor, action, p)
	s.Require().NoError(err, "%s by %s", action, actor.Role)
	return out
}

// underValidation drives a fresh assessment to UNDER_VALIDATION, accepting
// any dispatched events on the way.
func (s *ServiceSuite) underValidation() *models.Assessment {
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	a := s.create()
	s.upload(a.ID, "1.1", "1.1.a")
	s.upload(a.ID, "2.1", "2.1.a")
	s.transition(a.ID, submitter, models.ActionSubmit, models.Payload{})
	s.transition(a.ID, assessor1, models.ActionStartReview, models.Payload{})
	s.transition(a.ID, assessor1, models.ActionApproveArea, models.Payload{Area: "1"})
	s.transition(a.ID, assessor2, models.ActionApproveArea, models.Payload{Area: "2"})
	out := s.transition(a.ID, validator, models.ActionStartValidation, models.Payload{})
	s.Require().Equal(models.StatusUnderValidation, out.Assessment.Status)
	return out.Assessment
}

// =============================================================================
// Constructor
// =============================================================================

func (s *ServiceSuite) TestNew() {
	catalog := indicator.StaticCatalog{}
	policies := compliance.NewStaticSource(compliance.DefaultPolicy())

	s.Run("nil store returns error", func() {
		_, err := New(nil, catalog, policies)
		s.ErrorContains(err, "assessment store is required")
	})
	s.Run("nil catalog returns error", func() {
		_, err := New(s.store, nil, policies)
		s.ErrorContains(err, "indicator catalog is required")
	})
	s.Run("nil policy source returns error", func() {
		_, err := New(s.store, catalog, nil)
		s.ErrorContains(err, "policy source is required")
	})
}

// =============================================================================
// Create / Get
// =============================================================================

func (s *ServiceSuite) TestCreate() {
	s.Run("opens a draft with every area pending", func() {
		a := s.create()
		s.Equal(models.StatusDraft, a.Status)
		s.Equal(1, a.Version)
		s.Equal([]indicator.Code{"1", "2"}, a.Areas)

		trail, err := s.service.AuditTrail(context.Background(), a.ID)
		s.Require().NoError(err)
		s.Require().Len(trail, 1)
		s.Equal(audit.ActionAssessmentCreated, trail[0].Action)
	})

	s.Run("one assessment per unit and year", func() {
		_, err := s.service.Create(s.ctx(), "unit-1", 2025)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("blank unit is rejected", func() {
		_, err := s.service.Create(s.ctx(), "   ", 2025)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("year without a catalog is rejected", func() {
		_, err := s.service.Create(s.ctx(), "unit-9", 1999)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestGetMissing() {
	_, err := s.service.Get(context.Background(), "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Evaluate(context.Background(), "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// =============================================================================
// Transitions
// =============================================================================

func (s *ServiceSuite) TestSubmitDispatchesAfterSave() {
	a := s.create()
	s.upload(a.ID, "1.1", "1.1.a")
	s.upload(a.ID, "2.1", "2.1.a")

	s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, events []models.Event) error {
			s.Require().Len(events, 1)
			s.Equal(models.EventAssessmentSubmitted, events[0].Type)
			stored, err := s.store.FindByID(ctx, events[0].AssessmentID)
			s.Require().NoError(err)
			s.Equal(models.StatusSubmitted, stored.Status, "events go out after the save")
			return nil
		})

	out := s.transition(a.ID, submitter, models.ActionSubmit, models.Payload{})
	s.True(out.Changed)
	s.Equal(models.StatusSubmitted, out.Assessment.Status)
	s.Equal(4, out.Assessment.Version)

	trail, err := s.service.AuditTrail(context.Background(), a.ID)
	s.Require().NoError(err)
	s.Require().Len(trail, 4)
	last := trail[3]
	s.Equal(string(models.EventAssessmentSubmitted), last.Action)
	s.Equal(string(models.StatusDraft), last.FromStatus)
	s.Equal(string(models.StatusSubmitted), last.ToStatus)
	s.Equal(submitter.ID, last.ActorID)
}

func (s *ServiceSuite) TestIllegalTransitionChangesNothing() {
	a := s.create()

	_, err := s.service.Transition(s.ctx(), a.ID, assessor1, models.ActionStartReview, models.Payload{})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	var te *models.TransitionError
	s.Require().True(errors.As(err, &te))
	s.Equal(models.StatusDraft, te.State)

	stored, err := s.service.Get(context.Background(), a.ID)
	s.Require().NoError(err)
	s.Equal(1, stored.Version)
}

func (s *ServiceSuite) TestDuplicateRequestIsNoOp() {
	a := s.underValidation()

	first := s.transition(a.ID, validator, models.ActionApproveArea, models.Payload{Area: "1"})
	s.True(first.Changed)
	again := s.transition(a.ID, validator, models.ActionApproveArea, models.Payload{Area: "1"})
	s.False(again.Changed)
	s.Empty(again.Events)
	s.Equal(first.Assessment.Version, again.Assessment.Version)
}

func (s *ServiceSuite) TestDispatchFailureKeepsTransition() {
	a := s.create()
	s.upload(a.ID, "1.1", "1.1.a")
	s.upload(a.ID, "2.1", "2.1.a")
	s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	out, err := s.service.Transition(s.ctx(), a.ID, submitter, models.ActionSubmit, models.Payload{})
	s.Require().NoError(err)
	s.Equal(models.StatusSubmitted, out.Assessment.Status)

	stored, err := s.service.Get(context.Background(), a.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusSubmitted, stored.Status)
}

// TestConcurrentCalibrationRequests verifies validators calibrating
// different areas at the same time both succeed.
func (s *ServiceSuite) TestConcurrentCalibrationRequests() {
	a := s.underValidation()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	ctx := s.ctx()
	for i, area := range []indicator.Code{"1", "2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.service.Transition(ctx, a.ID, validator, models.ActionRequestCalibration, models.Payload{Area: area})
		}()
	}
	wg.Wait()
	s.NoError(errs[0])
	s.NoError(errs[1])

	stored, err := s.service.Get(context.Background(), a.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCalibrationRequested, stored.Status)
	s.ElementsMatch([]indicator.Code{"1", "2"}, stored.Calibrations.OpenAreas())
}

// =============================================================================
// Evidence and review mutations
// =============================================================================

func (s *ServiceSuite) TestRecordEvidence() {
	a := s.create()
	first := s.upload(a.ID, "1.1", "1.1.a")
	second := s.upload(a.ID, "1.1", "1.1.a")
	s.NotEqual(first.ID, second.ID)

	stored, err := s.service.Get(context.Background(), a.ID)
	s.Require().NoError(err)
	s.Require().Len(stored.Responses["1.1"].Evidence, 2)
	s.NotNil(stored.Responses["1.1"].Evidence[0].SupersededAt)

	_, err = s.service.RecordEvidence(s.ctx(), a.ID, assessor1, "1.1", models.EvidenceInput{ItemID: "1.1.a", Checked: true})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestReviewMutations() {
	a := s.underValidation()

	s.Require().NoError(s.service.RecordValidation(s.ctx(), a.ID, validator, "1.1", compliance.ValidationFail, "unsigned"))
	s.Require().NoError(s.service.FlagIndicatorForCalibration(s.ctx(), a.ID, validator, "2.1"))

	stored, err := s.service.Get(context.Background(), a.ID)
	s.Require().NoError(err)
	s.Equal(compliance.ValidationFail, stored.Responses["1.1"].ValidationStatus)
	s.True(stored.Responses["2.1"].FlaggedForCalibration)

	evID := stored.Responses["1.1"].Evidence[0].ID
	s.Require().NoError(s.service.FlagEvidence(s.ctx(), a.ID, validator, evID, models.FlagCalibration))
	err = s.service.FlagEvidence(s.ctx(), a.ID, validator, evID, models.FlagRework)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	sum, err := s.service.Evaluate(context.Background(), a.ID)
	s.Require().NoError(err)
	s.Equal(compliance.StatusFail, sum.Indicators["1.1"].Status)
	s.False(sum.Passed)
}

// =============================================================================
// Scheduler hooks
// =============================================================================

func (s *ServiceSuite) TestSendReminderIsIdempotent() {
	a := s.create()
	s.now = deadline.Add(-6 * 24 * time.Hour)

	s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, events []models.Event) error {
			s.Equal(models.EventDeadlineReminder, events[0].Type)
			s.Equal(7, events[0].DaysLeft)
			return nil
		}).Times(1)

	days, err := s.service.SendReminder(s.ctx(), a.ID)
	s.Require().NoError(err)
	s.Equal(7, days)

	_, err = s.service.SendReminder(s.ctx(), a.ID)
	s.ErrorIs(err, ErrSchedulerNoOp)
}

func (s *ServiceSuite) TestAutoSubmit() {
	a := s.create()

	s.now = deadline.Add(-time.Hour)
	s.ErrorIs(s.service.AutoSubmit(s.ctx(), a.ID), ErrSchedulerNoOp)

	s.dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	s.now = deadline
	s.Require().NoError(s.service.AutoSubmit(s.ctx(), a.ID))

	for range 3 {
		s.ErrorIs(s.service.AutoSubmit(s.ctx(), a.ID), ErrSchedulerNoOp)
	}

	stored, err := s.service.Get(context.Background(), a.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusSubmitted, stored.Status)
	s.True(stored.AutoSubmitted)
	s.Require().NotNil(stored.AutoSubmittedAt)
	s.Equal(deadline.Add(time.Minute), *stored.AutoSubmittedAt)
}

func (s *ServiceSuite) TestDraftIDs() {
	a := s.create()
	ids, err := s.service.DraftIDs(context.Background())
	s.Require().NoError(err)
	s.Equal([]string{a.ID}, ids)
}

// =============================================================================
// Persistence failures (mocked store)
// =============================================================================

type StoreFailureSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockStore *mocks.MockStore
	mockAudit *mocks.MockAuditPublisher
	service   *Service
	draft     *models.Assessment
}

func TestStoreFailureSuite(t *testing.T) {
	suite.Run(t, new(StoreFailureSuite))
}

func (s *StoreFailureSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.mockAudit = mocks.NewMockAuditPublisher(s.ctrl)
	tree := testTree()
	svc, err := New(s.mockStore,
		indicator.StaticCatalog{2025: tree},
		compliance.NewStaticSource(testPolicy()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.mockAudit),
		WithIDGenerator(sequentialIDs()),
	)
	s.Require().NoError(err)
	s.service = svc
	s.draft = models.NewAssessment("asm-1", "unit-1", tree, t0)
	s.draft.Version = 1
}

func (s *StoreFailureSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *StoreFailureSuite) findDraft() *gomock.Call {
	return s.mockStore.EXPECT().FindByID(gomock.Any(), "asm-1").DoAndReturn(
		func(context.Context, string) (*models.Assessment, error) { return s.draft.Clone(), nil })
}

func (s *StoreFailureSuite) TestConflictReloadsAndRetries() {
	ctx := requestcontext.WithTime(context.Background(), t0)
	s.findDraft().Times(2)
	gomock.InOrder(
		s.mockStore.EXPECT().Update(gomock.Any(), gomock.Any()).Return(fmt.Errorf("stale: %w", sentinel.ErrConflict)),
		s.mockStore.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil),
	)
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

	_, err := s.service.RecordEvidence(ctx, "asm-1", submitter, "1.1", models.EvidenceInput{ItemID: "1.1.a", Checked: true})
	s.NoError(err)
}

func (s *StoreFailureSuite) TestConflictRetriesAreBounded() {
	ctx := requestcontext.WithTime(context.Background(), t0)
	s.findDraft().Times(maxAttempts)
	s.mockStore.EXPECT().Update(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict).Times(maxAttempts)

	_, err := s.service.RecordEvidence(ctx, "asm-1", submitter, "1.1", models.EvidenceInput{ItemID: "1.1.a", Checked: true})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *StoreFailureSuite) TestAuditFailureFailsTheOperation() {
	ctx := requestcontext.WithTime(context.Background(), t0)
	s.findDraft()
	s.mockStore.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	_, err := s.service.RecordEvidence(ctx, "asm-1", submitter, "1.1", models.EvidenceInput{ItemID: "1.1.a", Checked: true})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *StoreFailureSuite) TestStoreErrorsAreInternal() {
	s.mockStore.EXPECT().FindByID(gomock.Any(), "asm-1").Return(nil, errors.New("connection reset"))
	_, err := s.service.Get(context.Background(), "asm-1")
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *StoreFailureSuite) TestRejectedMutationSkipsSave() {
	ctx := requestcontext.WithTime(context.Background(), t0)
	s.findDraft()

	err := s.service.RecordValidation(ctx, "asm-1", validator, "1.1", compliance.ValidationPass, "")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

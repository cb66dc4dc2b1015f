package assessment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// TestContext is the part of the scenario context these steps use.
type TestContext interface {
	ActAs(id, role string, areas []string)
	GET(path string) error
	POST(path string, body any) error
	PUT(path string, body any) error
	Status() int
	Field(path string) (any, error)
	Body() string
	Set(key, value string)
	Get(key string) string
}

// RegisterSteps registers assessment lifecycle step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &assessmentSteps{tc: tc}

	ctx.Step(`^the service is healthy$`, s.serviceIsHealthy)
	ctx.Step(`^I act as the (submitter|assessor|validator|mlgoo) "([^"]*)"$`, s.actAs)
	ctx.Step(`^I act as the assessor "([^"]*)" for areas "([^"]*)"$`, s.actAsAssessor)
	ctx.Step(`^I act without an identity$`, s.actAnonymously)

	ctx.Step(`^I create an assessment for a new unit in year (\d+)$`, s.createAssessment)
	ctx.Step(`^I record evidence for item "([^"]*)" on indicator "([^"]*)"$`, s.recordEvidence)
	ctx.Step(`^I record the value "([^"]*)" for item "([^"]*)" on indicator "([^"]*)"$`, s.recordValue)
	ctx.Step(`^I request the "([^"]*)" transition$`, s.transition)
	ctx.Step(`^I request the "([^"]*)" transition for area "([^"]*)"$`, s.transitionForArea)
	ctx.Step(`^I fetch the assessment$`, s.fetch)
	ctx.Step(`^I fetch the audit trail$`, s.fetchAudit)
	ctx.Step(`^I evaluate the assessment$`, s.evaluate)

	ctx.Step(`^the response status should be (\d+)$`, s.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, s.fieldShouldBe)
	ctx.Step(`^the response should mention "([^"]*)"$`, s.bodyShouldMention)
}

type assessmentSteps struct {
	tc TestContext
}

func (s *assessmentSteps) path(suffix string) string {
	return "/assessments/" + s.tc.Get("assessment_id") + suffix
}

func (s *assessmentSteps) serviceIsHealthy(context.Context) error {
	if err := s.tc.GET("/health"); err != nil {
		return err
	}
	return s.statusShouldBe(context.Background(), 200)
}

func (s *assessmentSteps) actAs(_ context.Context, role, id string) error {
	s.tc.ActAs(id, role, nil)
	return nil
}

func (s *assessmentSteps) actAsAssessor(_ context.Context, id, areas string) error {
	s.tc.ActAs(id, "assessor", strings.Split(areas, ","))
	return nil
}

func (s *assessmentSteps) actAnonymously(context.Context) error {
	s.tc.ActAs("", "", nil)
	return nil
}

func (s *assessmentSteps) createAssessment(_ context.Context, year int) error {
	unit := fmt.Sprintf("e2e-unit-%d", time.Now().UnixNano())
	if err := s.tc.POST("/assessments", map[string]any{"unit_id": unit, "year": year}); err != nil {
		return err
	}
	id, err := s.tc.Field("id")
	if err != nil {
		return err
	}
	s.tc.Set("assessment_id", fmt.Sprint(id))
	return nil
}

func (s *assessmentSteps) recordEvidence(_ context.Context, item, code string) error {
	return s.tc.POST(s.path("/indicators/"+code+"/evidence"), map[string]any{"item_id": item, "checked": true})
}

func (s *assessmentSteps) recordValue(_ context.Context, value, item, code string) error {
	return s.tc.POST(s.path("/indicators/"+code+"/evidence"), map[string]any{"item_id": item, "value": value})
}

func (s *assessmentSteps) transition(_ context.Context, action string) error {
	return s.tc.POST(s.path("/transitions"), map[string]any{"action": action})
}

func (s *assessmentSteps) transitionForArea(_ context.Context, action, area string) error {
	return s.tc.POST(s.path("/transitions"), map[string]any{"action": action, "area": area})
}

func (s *assessmentSteps) fetch(context.Context) error {
	return s.tc.GET(s.path(""))
}

func (s *assessmentSteps) fetchAudit(context.Context) error {
	return s.tc.GET(s.path("/audit"))
}

func (s *assessmentSteps) evaluate(context.Context) error {
	return s.tc.GET(s.path("/evaluation"))
}

func (s *assessmentSteps) statusShouldBe(_ context.Context, want int) error {
	if got := s.tc.Status(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.Body())
	}
	return nil
}

func (s *assessmentSteps) fieldShouldBe(_ context.Context, field, want string) error {
	got, err := s.tc.Field(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != want {
		return fmt.Errorf("expected %s=%q, got %q", field, want, fmt.Sprint(got))
	}
	return nil
}

func (s *assessmentSteps) bodyShouldMention(_ context.Context, text string) error {
	if !strings.Contains(s.tc.Body(), text) {
		return fmt.Errorf("response does not mention %q: %s", text, s.tc.Body())
	}
	return nil
}

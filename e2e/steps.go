package e2e

import (
	"github.com/cucumber/godog"

	"sglgb/e2e/steps/assessment"
)

// RegisterSteps registers all step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	assessment.RegisterSteps(ctx, tc)
}

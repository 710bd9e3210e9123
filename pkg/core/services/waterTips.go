package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/clients/llmclient"
	"github.com/waterwatch/lifedrop/pkg/core/model"
)

const (
	tipPromptTemplate = "Answer simply for someone living outdoors: %s"
	maxQuestionLength = 500

	materialsNote = "You can find these materials at supermarkets, camping stores, shelters, or community centers."
)

// ExampleTipQuestions are offered to people who are unsure what to ask
var ExampleTipQuestions = []string{
	"How do I clean river water to drink?",
	"Is rainwater safe to drink?",
	"How long should I boil water to make it safe?",
	"How to store water safely outdoors?",
}

// ParseWaterCondition reads the clear/cloudy and smell answers
func ParseWaterCondition(clarity, smell string) (model.WaterCondition, error) {
	var cond model.WaterCondition
	var fields, reasons []string

	switch strings.ToLower(strings.TrimSpace(clarity)) {
	case "clear", "":
	case "cloudy":
		cond.Cloudy = true
	default:
		fields = append(fields, "clarity")
		reasons = append(reasons, fmt.Sprintf("clarity must be clear or cloudy, got %q", clarity))
	}

	switch strings.ToLower(strings.TrimSpace(smell)) {
	case "no", "":
	case "yes":
		cond.BadSmell = true
	default:
		fields = append(fields, "smell")
		reasons = append(reasons, fmt.Sprintf("smell must be yes or no, got %q", smell))
	}

	if len(fields) > 0 {
		return model.WaterCondition{}, &model.ValidationError{Fields: fields, Reason: strings.Join(reasons, "; ")}
	}
	return cond, nil
}

// TipForCondition returns the treatment advice for cond.
// Water that looks and smells fine still gets boiled for a minute.
func TipForCondition(cond model.WaterCondition) model.WaterTip {
	tip := model.WaterTip{Advice: []string{}, Materials: []string{}, Steps: []string{}, Note: materialsNote}

	if cond.Cloudy {
		tip.Advice = append(tip.Advice, "Water is cloudy: Needs extra boiling.")
		tip.Materials = append(tip.Materials, "Pot or metal container")
		tip.Steps = append(tip.Steps, "Boil the water for at least 3 minutes.")
	}
	if cond.BadSmell {
		tip.Advice = append(tip.Advice, "Water smells bad: Needs filtering.")
		tip.Materials = append(tip.Materials, "Cloth or charcoal filter")
		tip.Steps = append(tip.Steps, "Filter water using cloth or available basic water filter.")
	}

	if len(tip.Advice) == 0 {
		tip.Advice = append(tip.Advice, "Water looks fine: Still boil for 1 minute before drinking.")
	}

	return tip
}

// AskWaterTip answers a free-text water safety question in plain language
func AskWaterTip(ctx context.Context, generator TextGenerator, logger *zap.Logger, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", &model.ValidationError{Fields: []string{"question"}, Reason: "question is required"}
	}
	if len(question) > maxQuestionLength {
		return "", &model.ValidationError{
			Fields: []string{"question"},
			Reason: fmt.Sprintf("question must be at most %d characters", maxQuestionLength),
		}
	}

	logger.Debug("Asking for water tip", zap.Int("question_length", len(question)))

	answer, err := generator.Complete(ctx, llmclient.Completion{
		UserPrompt: fmt.Sprintf(tipPromptTemplate, question),
	})
	if err != nil {
		return "", &model.GenerationError{Err: err}
	}

	return answer, nil
}

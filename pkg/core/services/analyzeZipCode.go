package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/clients/llmclient"
	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/db"
)

const (
	analysisWeeks       = 12
	analysisTemperature = 0.5
	analysisMaxTokens   = 300
)

const analysisSystemPromptTemplate = `You are an expert assistant reviewing a collection of user-submitted reports about unsanitary water issues.
Each report includes a ZIP code, date, and a short description of the problem.

Your task is to analyze the reports for ZIP code %s and provide a structured summary of the specific water-related problems being reported.

Instructions:
- Group similar issues together (e.g., bad smell, unusual color, poor taste, contamination, etc.).
- If certain issues happen repeatedly over time, point that out with approximate dates.
- If certain neighborhoods, streets, or areas are mentioned frequently, highlight them.
- Focus on the nature and severity of the water problems, not how many reports there are.
- Do not include report counts or mention that more analysis is needed.

Present the summary in a clear, organized format that would be useful to local officials or utility workers trying to understand what's happening in this area.`

// WeeklySummary is the per-week digest of one zip code's reports fed into the analysis prompt
type WeeklySummary struct {
	Week         string
	Count        int
	Descriptions []string
	Concerns     []string
}

// SummarizeWeeks groups the reports for zip by ISO week and keeps the most recent `weeks` buckets, oldest first
func SummarizeWeeks(reports []model.WaterReport, zip string, weeks int) []WeeklySummary {
	byWeek := make(map[string]*WeeklySummary)
	concernSeen := make(map[string]map[model.Concern]bool)

	ordered, _ := QueryReports(reports, zip, model.OldestFirst)
	for _, r := range ordered {
		label := WeekLabel(r.Timestamp)
		s, ok := byWeek[label]
		if !ok {
			s = &WeeklySummary{Week: label}
			byWeek[label] = s
			concernSeen[label] = make(map[model.Concern]bool)
		}
		s.Count++
		if r.Description != "" {
			s.Descriptions = append(s.Descriptions, r.Description)
		}
		for _, c := range r.Concerns {
			if !concernSeen[label][c] {
				concernSeen[label][c] = true
				s.Concerns = append(s.Concerns, string(c))
			}
		}
	}

	summaries := make([]WeeklySummary, 0, len(byWeek))
	for _, s := range byWeek {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Week < summaries[j].Week })

	if weeks > 0 && len(summaries) > weeks {
		summaries = summaries[len(summaries)-weeks:]
	}
	return summaries
}

// AnalysisPrompt renders the user prompt for a zip code's weekly summaries
func AnalysisPrompt(zip string, summaries []WeeklySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Here is the latest report data for ZIP %s:\n", zip)
	for _, s := range summaries {
		fmt.Fprintf(&b, "- week %s: %d report(s)", s.Week, s.Count)
		if len(s.Concerns) > 0 {
			fmt.Fprintf(&b, "; concerns: %s", strings.Join(s.Concerns, ", "))
		}
		b.WriteString("\n")
		for _, d := range s.Descriptions {
			fmt.Fprintf(&b, "  * %s\n", d)
		}
	}
	return b.String()
}

// AnalyzeZipCode asks the text generator for a summary of the recent water problems in one zip code
func AnalyzeZipCode(
	ctx context.Context,
	store db.WaterReportStore,
	generator TextGenerator,
	logger *zap.Logger,
	zip string,
) (string, error) {
	if !IsValidZipcode(zip) {
		return "", &model.ValidationError{
			Fields: []string{"zipcode"},
			Reason: fmt.Sprintf("zipcode %q must be 5 digits or 5+4 digits", zip),
		}
	}

	reports, err := LoadReports(ctx, store)
	if err != nil {
		return "", err
	}

	summaries := SummarizeWeeks(reports, zip, analysisWeeks)
	if len(summaries) == 0 {
		return "", &model.ValidationError{
			Fields: []string{"zipcode"},
			Reason: fmt.Sprintf("no reports for zipcode %s", zip),
		}
	}

	logger.Debug("Requesting zip code analysis",
		zap.String("zipcode", zip),
		zap.Int("weeks", len(summaries)))

	analysis, err := generator.Complete(ctx, llmclient.Completion{
		SystemPrompt: fmt.Sprintf(analysisSystemPromptTemplate, zip),
		UserPrompt:   AnalysisPrompt(zip, summaries),
		Temperature:  analysisTemperature,
		MaxTokens:    analysisMaxTokens,
	})
	if err != nil {
		return "", &model.GenerationError{Err: err}
	}

	logger.Info("Zip code analysis generated", zap.String("zipcode", zip))

	return analysis, nil
}

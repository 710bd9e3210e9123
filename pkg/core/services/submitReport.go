package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/db"
	"github.com/waterwatch/lifedrop/pkg/utils/metrics"
)

// zipcodePattern accepts five digits with an optional four digit extension
var zipcodePattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

var (
	reportValidatorOnce sync.Once
	reportValidator     *validator.Validate
)

// SubmitReportInput holds a water report as entered by the user
type SubmitReportInput struct {
	Address     string   `json:"address" validate:"required"`
	Zipcode     string   `json:"zipcode" validate:"required,zipcode"`
	Description string   `json:"description" validate:"required,max=300"`
	Concerns    []string `json:"concerns" validate:"required,min=1"`
	SourceType  string   `json:"source_type" validate:"required"`
	Used        *bool    `json:"used" validate:"required"`
	Symptoms    string   `json:"symptoms"`
	Alert       bool     `json:"alert"`
	PhotoPath   string   `json:"photo_path"`
}

// IsValidZipcode reports whether s is a five digit zip code, optionally followed by -dddd
func IsValidZipcode(s string) bool {
	return zipcodePattern.MatchString(s)
}

func getReportValidator() *validator.Validate {
	reportValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("zipcode", func(fl validator.FieldLevel) bool {
			return IsValidZipcode(fl.Field().String())
		})
		reportValidator = v
	})
	return reportValidator
}

// SubmitReport validates and persists one water report.
// When the report asks to alert the community and notifier is non-nil, a notification is sent
// after the row is written. A failed notification is logged and does not fail the submission.
func SubmitReport(
	ctx context.Context,
	store db.WaterReportStore,
	notifier ReportNotifier,
	logger *zap.Logger,
	now time.Time,
	input SubmitReportInput,
) (report *model.WaterReport, err error) {
	defer func() { metrics.IncReportSubmission(err) }()

	report, err = validateReportInput(input, now)
	if err != nil {
		return nil, err
	}

	logger.Debug("Submitting water report",
		zap.String("zipcode", report.Zipcode),
		zap.String("type", string(report.Type)),
		zap.Int("concerns", len(report.Concerns)))

	if err := store.InsertWaterReports(ctx, []model.WaterReport{*report}); err != nil {
		return nil, storeError("insert water report", err)
	}

	logger.Info("Water report submitted",
		zap.String("zipcode", report.Zipcode),
		zap.Bool("alert", report.Alert))

	if report.Alert && notifier != nil {
		if notifyErr := notifier.NotifyWaterReport(ctx, *report); notifyErr != nil {
			logger.Warn("Failed to notify about water report",
				zap.String("zipcode", report.Zipcode),
				zap.Error(notifyErr))
		} else {
			logger.Debug("Water report notification sent", zap.String("zipcode", report.Zipcode))
		}
	}

	return report, nil
}

func validateReportInput(input SubmitReportInput, now time.Time) (*model.WaterReport, error) {
	input.Address = strings.TrimSpace(input.Address)
	input.Zipcode = strings.TrimSpace(input.Zipcode)
	input.Description = strings.TrimSpace(input.Description)

	var fields, reasons []string

	if err := getReportValidator().Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("failed to validate report: %w", err)
		}
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
			reasons = append(reasons, describeFieldError(fe))
		}
	}

	concerns := make([]model.Concern, 0, len(input.Concerns))
	seen := make(map[string]bool, len(input.Concerns))
	for _, c := range input.Concerns {
		c = strings.TrimSpace(c)
		if !model.IsConcern(c) {
			fields = appendOnce(fields, "concerns")
			reasons = append(reasons, fmt.Sprintf("unknown concern %q", c))
			continue
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		concerns = append(concerns, model.Concern(c))
	}

	if input.SourceType != "" && !model.IsSourceType(input.SourceType) {
		fields = appendOnce(fields, "source_type")
		reasons = append(reasons, fmt.Sprintf("unknown source type %q", input.SourceType))
	}

	if len(fields) > 0 {
		return nil, &model.ValidationError{Fields: fields, Reason: strings.Join(reasons, "; ")}
	}

	symptoms := strings.TrimSpace(input.Symptoms)
	if symptoms == "" {
		symptoms = model.SymptomsNotProvided
	}

	return &model.WaterReport{
		Timestamp:   now.UTC().Truncate(time.Second),
		Address:     input.Address,
		Zipcode:     input.Zipcode,
		Description: input.Description,
		Concerns:    concerns,
		Type:        model.SourceType(input.SourceType),
		Used:        *input.Used,
		Symptoms:    symptoms,
		Alert:       input.Alert,
		PhotoPath:   input.PhotoPath,
	}, nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "zipcode":
		return fmt.Sprintf("zipcode %q must be 5 digits or 5+4 digits", fe.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s needs at least %s entry", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

func appendOnce(fields []string, field string) []string {
	for _, f := range fields {
		if f == field {
			return fields
		}
	}
	return append(fields, field)
}

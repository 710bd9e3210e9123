package gmailclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/db"
)

const defaultSubject = "WaterWatch community alert"

// Sender sends a plain-text email
type Sender interface {
	SendEmail(ctx context.Context, to []string, subject, body string) error
}

// ReportNotifier emails a fixed recipient list about water reports flagged for alerting
type ReportNotifier struct {
	sender     Sender
	recipients []string
	subject    string
}

// NewReportNotifier returns nil when there is nobody to notify
func NewReportNotifier(sender Sender, recipients []string, subject string) *ReportNotifier {
	if len(recipients) == 0 {
		return nil
	}
	if subject == "" {
		subject = defaultSubject
	}
	return &ReportNotifier{sender: sender, recipients: recipients, subject: subject}
}

// NotifyWaterReport sends one email describing the report
func (n *ReportNotifier) NotifyWaterReport(ctx context.Context, report model.WaterReport) error {
	subject := fmt.Sprintf("%s: %s (%s)", n.subject, report.Type, report.Zipcode)
	return n.sender.SendEmail(ctx, n.recipients, subject, FormatReportBody(report))
}

// FormatReportBody renders a report as the email body
func FormatReportBody(report model.WaterReport) string {
	used := "No"
	if report.Used {
		used = "Yes"
	}

	var b strings.Builder
	b.WriteString("A community member reported unsafe water.\n\n")
	fmt.Fprintf(&b, "Reported: %s\n", report.Timestamp.UTC().Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Address: %s\n", report.Address)
	fmt.Fprintf(&b, "ZIP code: %s\n", report.Zipcode)
	fmt.Fprintf(&b, "Source: %s\n", report.Type)
	fmt.Fprintf(&b, "Concerns: %s\n", db.JoinConcerns(report.Concerns))
	fmt.Fprintf(&b, "Water was used: %s\n", used)
	fmt.Fprintf(&b, "Symptoms: %s\n", report.Symptoms)
	fmt.Fprintf(&b, "\n%s\n", report.Description)
	return b.String()
}

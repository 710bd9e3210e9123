package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/db"
)

// FormatAlertMessages joins the alert messages with a blank line between each
func FormatAlertMessages(alerts []model.Alert) string {
	messages := make([]string, 0, len(alerts))
	for _, a := range alerts {
		messages = append(messages, a.Message)
	}
	return strings.Join(messages, "\n\n")
}

// ExportAlertsText returns the messages of every live alert as plain text
func ExportAlertsText(ctx context.Context, store db.AlertStore, logger *zap.Logger, now time.Time) (string, error) {
	alerts, err := ListActiveAlerts(ctx, store, logger, now, "")
	if err != nil {
		return "", err
	}
	logger.Debug("Exporting alerts as text", zap.Int("count", len(alerts)))
	return FormatAlertMessages(alerts), nil
}

// ExportAlertsPDF writes a printable bulletin of the live alerts to w
func ExportAlertsPDF(ctx context.Context, store db.AlertStore, logger *zap.Logger, now time.Time, w io.Writer) error {
	alerts, err := ListActiveAlerts(ctx, store, logger, now, "")
	if err != nil {
		return err
	}

	if err := BuildAlertBulletinPDF(w, alerts, now); err != nil {
		return fmt.Errorf("failed to render alert bulletin: %w", err)
	}

	logger.Debug("Exported alerts as PDF", zap.Int("count", len(alerts)))
	return nil
}

// BuildAlertBulletinPDF renders one block per alert with its message, place and time remaining
func BuildAlertBulletinPDF(w io.Writer, alerts []model.Alert, now time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Community Alerts")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 5, fmt.Sprintf("Generated: %s", now.UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	if len(alerts) == 0 {
		pdf.SetFont("Arial", "I", 11)
		pdf.Cell(0, 6, "No active alerts.")
		pdf.Ln(6)
	}

	for _, a := range alerts {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 6, tr(fmt.Sprintf("%s - %s", a.Type, a.LocationName)))
		pdf.Ln(6)

		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, tr(a.Message), "", "L", false)
		pdf.Cell(0, 5, tr(fmt.Sprintf("Address: %s", a.Address)))
		pdf.Ln(5)
		if a.Hours != "" {
			pdf.Cell(0, 5, tr(fmt.Sprintf("Hours: %s", a.Hours)))
			pdf.Ln(5)
		}
		pdf.Cell(0, 5, fmt.Sprintf("Expires in %s  |  +%d / -%d",
			a.TimeRemaining(now).Truncate(time.Second), a.Upvotes, a.Downvotes))
		pdf.Ln(8)
	}

	return pdf.Output(w)
}

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/core/services"
)

const defaultTopZipCodes = 5

// SubmitReportCmd creates the submitReport command
func SubmitReportCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submitReport",
		Short: "Submit a water quality report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			address, _ := cmd.Flags().GetString("address")
			zipcode, _ := cmd.Flags().GetString("zipcode")
			description, _ := cmd.Flags().GetString("description")
			concerns, _ := cmd.Flags().GetStringArray("concern")
			source, _ := cmd.Flags().GetString("source")
			symptoms, _ := cmd.Flags().GetString("symptoms")
			alert, _ := cmd.Flags().GetBool("alert")
			photo, _ := cmd.Flags().GetString("photo")

			input := services.SubmitReportInput{
				Address:     address,
				Zipcode:     zipcode,
				Description: description,
				Concerns:    concerns,
				SourceType:  source,
				Symptoms:    symptoms,
				Alert:       alert,
			}
			if cmd.Flags().Changed("used") {
				used, _ := cmd.Flags().GetBool("used")
				input.Used = &used
			}

			now := app.now()
			if photo != "" {
				path, err := services.StorePhoto(app.Cfg.PhotoDir, photo, now)
				if err != nil {
					return err
				}
				input.PhotoPath = path
			}

			report, err := services.SubmitReport(app.Ctx, app.Database, app.Notifier, app.Logger, now, input)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Report submitted for %s (%s)\n", report.Zipcode, report.Type)
			if report.Alert && app.Notifier == nil {
				fmt.Printf("%s  No notification recipients are configured; nobody was emailed%s\n", colorYellow, colorReset)
			}
			return nil
		},
	}

	cmd.Flags().String("address", "", "Street address or landmark")
	cmd.Flags().String("zipcode", "", "ZIP code (12345 or 12345-6789)")
	cmd.Flags().String("description", "", "What is wrong with the water (max 300 characters)")
	cmd.Flags().StringArray("concern", nil, "Observed concern, repeatable")
	cmd.Flags().String("source", "", "Water source type")
	cmd.Flags().Bool("used", false, "Whether the water was used")
	cmd.Flags().String("symptoms", "", "Symptoms experienced, if any")
	cmd.Flags().Bool("alert", false, "Alert the community about this report")
	cmd.Flags().String("photo", "", "Path of a photo to attach")

	return cmd
}

// ListReportsCmd creates the listReports command
func ListReportsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listReports",
		Short: "List water reports, optionally for one ZIP code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			zipcode, _ := cmd.Flags().GetString("zipcode")
			sortOrder, _ := cmd.Flags().GetString("sort")

			reports, err := services.LoadReports(app.Ctx, app.Database)
			if err != nil {
				return err
			}
			reports, err = services.QueryReports(reports, zipcode, model.ReportSortOrder(sortOrder))
			if err != nil {
				return err
			}

			fmt.Printf("\nFound %d report(s):\n\n", len(reports))
			for _, r := range reports {
				fmt.Printf("- %s  %s  %s  [%s]\n", r.Timestamp.Format("2006-01-02 15:04"), r.Zipcode, r.Type, concernList(r.Concerns))
				fmt.Printf("  %s\n", r.Description)
				if r.Symptoms != model.SymptomsNotProvided {
					fmt.Printf("  %ssymptoms: %s%s\n", colorRed, r.Symptoms, colorReset)
				}
			}
			return nil
		},
	}

	cmd.Flags().String("zipcode", "", "Only show reports for this ZIP code")
	cmd.Flags().String("sort", string(model.NewestFirst), "newest_first or oldest_first")

	return cmd
}

func concernList(concerns []model.Concern) string {
	names := make([]string, 0, len(concerns))
	for _, c := range concerns {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

// exportFormat picks the export format from the file extension
func exportFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "csv", nil
	case ".xlsx":
		return "xlsx", nil
	default:
		return "", fmt.Errorf("unsupported export format %q: use .csv or .xlsx", filepath.Ext(path))
	}
}

// ExportReportsCmd creates the exportReports command
func ExportReportsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exportReports <file.csv|file.xlsx>",
		Short: "Export water reports to CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			format, err := exportFormat(path)
			if err != nil {
				return err
			}
			zipcode, _ := cmd.Flags().GetString("zipcode")

			reports, err := services.LoadReports(app.Ctx, app.Database)
			if err != nil {
				return err
			}
			reports, err = services.QueryReports(reports, zipcode, model.NewestFirst)
			if err != nil {
				return err
			}

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			if format == "xlsx" {
				err = services.ExportReportsXLSX(f, reports)
			} else {
				err = services.ExportReportsCSV(f, reports)
			}
			if err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			fmt.Printf("✓ Exported %d report(s) to %s\n", len(reports), path)
			return nil
		},
	}

	cmd.Flags().String("zipcode", "", "Only export reports for this ZIP code")

	return cmd
}

// ImportReportsCmd creates the importReports command
func ImportReportsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "importReports <file.csv>",
		Short: "Append reports from a CSV export to the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			n, err := services.ImportReportsCSV(app.Ctx, app.Database, app.Logger, f)
			if err != nil {
				return err
			}

			fmt.Printf("✓ Imported %d report(s)\n", n)
			return nil
		},
	}
}

// TrendsCmd creates the trends command
func TrendsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Show weekly report counts per ZIP code and the most reported ZIP codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			zipcode, _ := cmd.Flags().GetString("zipcode")
			top, _ := cmd.Flags().GetInt("top")

			reports, err := services.LoadReports(app.Ctx, app.Database)
			if err != nil {
				return err
			}
			reports, err = services.QueryReports(reports, zipcode, model.OldestFirst)
			if err != nil {
				return err
			}

			trends := services.AggregateTrends(reports)
			if len(trends) == 0 {
				fmt.Println("No reports yet.")
				return nil
			}

			fmt.Printf("\nWeekly reports:\n\n")
			fmt.Printf("  %-12s %-10s %s\n", "ZIP", "Week", "Reports")
			for _, p := range services.SortedTrends(trends) {
				fmt.Printf("  %-12s %-10s %d\n", p.Zipcode, p.Week, p.Count)
			}

			fmt.Printf("\nTop ZIP codes:\n\n")
			for i, zc := range services.TopZipCodes(trends, top) {
				fmt.Printf("  %d. %-12s %d\n", i+1, zc.Zipcode, zc.Count)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().String("zipcode", "", "Only include this ZIP code")
	cmd.Flags().Int("top", defaultTopZipCodes, "How many ZIP codes to rank")

	return cmd
}

// AnalyzeZipCmd creates the analyzeZip command
func AnalyzeZipCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analyzeZip <zipcode>",
		Short: "Summarise recent water problems in a ZIP code with AI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			generator, err := app.generator()
			if err != nil {
				return err
			}

			analysis, err := services.AnalyzeZipCode(app.Ctx, app.Database, generator, app.Logger, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("\nAnalysis for %s:\n\n%s\n\n", args[0], analysis)
			return nil
		},
	}
}

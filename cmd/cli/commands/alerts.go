package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/core/services"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
)

// remainingColor is green with more than half an hour left, yellow with more than five minutes, red otherwise
func remainingColor(remaining time.Duration) string {
	switch {
	case remaining > 30*time.Minute:
		return colorGreen
	case remaining > 5*time.Minute:
		return colorYellow
	default:
		return colorRed
	}
}

func formatRemaining(remaining time.Duration) string {
	remaining = remaining.Truncate(time.Second)
	if remaining >= time.Hour {
		return fmt.Sprintf("%dh%02dm", int(remaining.Hours()), int(remaining.Minutes())%60)
	}
	return fmt.Sprintf("%dm%02ds", int(remaining.Minutes()), int(remaining.Seconds())%60)
}

func printAlert(a model.Alert, now time.Time) {
	remaining := a.TimeRemaining(now)
	fmt.Printf("%s[%s]%s %s - %s\n", colorDim, a.ID, colorReset, a.Type, a.LocationName)
	fmt.Printf("  %s\n", a.Message)
	fmt.Printf("  %s", a.Address)
	if a.Hours != "" {
		fmt.Printf(" (%s)", a.Hours)
	}
	if a.Coordinates != nil {
		fmt.Printf(" @ %.5f,%.5f", a.Coordinates.Lat, a.Coordinates.Lng)
	}
	fmt.Println()
	fmt.Printf("  expires in %s%s%s  |  +%d / -%d\n",
		remainingColor(remaining), formatRemaining(remaining), colorReset, a.Upvotes, a.Downvotes)
	for _, c := range a.Comments {
		fmt.Printf("    %s> %s%s\n", colorDim, c, colorReset)
	}
	fmt.Println()
}

// CreateAlertCmd creates the createAlert command
func CreateAlertCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createAlert <location_name> <address>",
		Short: "Post a new community resource alert",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			generator, err := app.generator()
			if err != nil {
				return err
			}

			resourceType, _ := cmd.Flags().GetString("type")
			hours, _ := cmd.Flags().GetString("hours")
			ttl, _ := cmd.Flags().GetInt("ttl")
			geocode, _ := cmd.Flags().GetBool("geocode")

			now := app.now()
			alert, err := services.CreateAlert(app.Ctx, app.Database, generator, app.Geocoder, app.Logger, now, services.CreateAlertInput{
				Type:         resourceType,
				LocationName: args[0],
				Address:      args[1],
				Hours:        hours,
				TTLMinutes:   ttl,
				Geocode:      geocode,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Alert created!\n\n")
			printAlert(*alert, now)
			return nil
		},
	}

	cmd.Flags().String("type", string(model.ResourceWaterStation), "Resource type ("+joinTypes()+")")
	cmd.Flags().String("hours", "", "When the resource is available, e.g. 9AM-5PM")
	cmd.Flags().Int("ttl", 30, "Minutes until the alert expires")
	cmd.Flags().Bool("geocode", false, "Attach coordinates for the address")

	return cmd
}

func joinTypes() string {
	names := make([]string, 0, len(model.ResourceTypes))
	for _, rt := range model.ResourceTypes {
		names = append(names, string(rt))
	}
	return strings.Join(names, ", ")
}

// ListAlertsCmd creates the listAlerts command
func ListAlertsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listAlerts",
		Short: "List live alerts, removing any that have expired",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filterType, _ := cmd.Flags().GetString("type")

			now := app.now()
			alerts, err := services.ListActiveAlerts(app.Ctx, app.Database, app.Logger, now, filterType)
			if err != nil {
				return err
			}

			if len(alerts) == 0 {
				fmt.Println("No active alerts.")
				return nil
			}

			fmt.Printf("\n%d active alert(s):\n\n", len(alerts))
			for _, a := range alerts {
				printAlert(a, now)
			}
			return nil
		},
	}

	cmd.Flags().String("type", "", "Only show alerts of this resource type")

	return cmd
}

// VoteCmd creates the vote command
func VoteCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "vote <alert_id> <up|down>",
		Short: "Up or down vote a live alert",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := model.VoteDirection(strings.ToLower(args[1]))
			alert, err := services.Vote(app.Ctx, app.Database, app.Logger, app.now(), args[0], direction)
			if err != nil {
				return err
			}

			fmt.Printf("✓ Vote recorded: +%d / -%d\n", alert.Upvotes, alert.Downvotes)
			return nil
		},
	}
}

// CommentCmd creates the comment command
func CommentCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <alert_id> <text>",
		Short: "Add a comment to a live alert",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			alert, err := services.AddComment(app.Ctx, app.Database, app.Logger, app.now(), args[0], text)
			if err != nil {
				return err
			}

			fmt.Printf("✓ Comment added (%d total)\n", len(alert.Comments))
			return nil
		},
	}
}

// ExportAlertsCmd creates the exportAlerts command
func ExportAlertsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exportAlerts",
		Short: "Print live alert messages, or write them to a PDF bulletin with --pdf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pdfPath, _ := cmd.Flags().GetString("pdf")

			if pdfPath == "" {
				text, err := services.ExportAlertsText(app.Ctx, app.Database, app.Logger, app.now())
				if err != nil {
					return err
				}
				fmt.Println(text)
				return nil
			}

			f, err := os.Create(pdfPath)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", pdfPath, err)
			}
			if err := services.ExportAlertsPDF(app.Ctx, app.Database, app.Logger, app.now(), f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", pdfPath, err)
			}

			fmt.Printf("✓ Alert bulletin written to %s\n", pdfPath)
			return nil
		},
	}

	cmd.Flags().String("pdf", "", "Write a PDF bulletin to this path")

	return cmd
}

// PurgeAlertsCmd creates the purgeAlerts command
func PurgeAlertsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purgeAlerts",
		Short: "Remove expired alerts from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := services.PurgeExpiredAlerts(app.Ctx, app.Database, app.Logger, app.now())
			if err != nil {
				return err
			}

			fmt.Printf("✓ Removed %d expired alert(s)\n", removed)
			return nil
		},
	}
}

// GeocodeCmd creates the geocode command
func GeocodeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "geocode <address>",
		Short: "Look up the coordinates of an address",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Geocoder == nil {
				return errNoGeocoder
			}

			address := strings.Join(args, " ")
			coords, err := services.Geocode(app.Ctx, app.Geocoder, address)
			if err != nil {
				return err
			}

			fmt.Printf("%s -> %.6f, %.6f\n", address, coords.Lat, coords.Lng)
			return nil
		},
	}
}

package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/waterwatch/lifedrop/pkg/core/model"
	"github.com/waterwatch/lifedrop/pkg/core/services"
)

// WaterSourcesCmd creates the waterSources command
func WaterSourcesCmd(app *AppContext) *cobra.Command {
	var (
		lat, lng, radius float64
		address          string
	)

	cmd := &cobra.Command{
		Use:   "waterSources",
		Short: "List public drinking water near a point",
		Long: `List public drinking-water points within a radius of the configured centre,
a given --lat/--lng, or a geocoded --address. Nearest first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			search := app.waterDefaults()

			switch {
			case address != "":
				if app.Geocoder == nil {
					return errNoGeocoder
				}
				coords, err := services.Geocode(app.Ctx, app.Geocoder, address)
				if err != nil {
					return err
				}
				search.Center = *coords
			case cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng"):
				if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
					return fmt.Errorf("--lat and --lng must be given together")
				}
				search.Center = model.Coordinates{Lat: lat, Lng: lng}
			}
			if cmd.Flags().Changed("radius") {
				search.RadiusKm = radius
			}

			nearby, err := services.NearbyWaterSources(app.Ctx, app.Water, app.Logger, search)
			if err != nil {
				return err
			}

			if len(nearby) == 0 {
				fmt.Printf("No drinking water found within %.1f km\n", search.RadiusKm)
				return nil
			}

			fmt.Printf("\n%d drinking water point(s) within %.1f km:\n\n", len(nearby), search.RadiusKm)
			for _, s := range nearby {
				fmt.Printf("  %6.2f km  %s %s(%.5f, %.5f)%s\n", s.DistanceKm, s.Name, colorDim, s.Lat, s.Lng, colorReset)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude of the search centre")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude of the search centre")
	cmd.Flags().StringVar(&address, "address", "", "Address to search around (needs MAPS_API_KEY)")
	cmd.Flags().Float64Var(&radius, "radius", services.DefaultRadiusKm,
		fmt.Sprintf("Search radius in km (%g-%g)", services.MinRadiusKm, services.MaxRadiusKm))

	return cmd
}

// WaterTipCmd creates the waterTip command
func WaterTipCmd(app *AppContext) *cobra.Command {
	var clarity, smell string

	cmd := &cobra.Command{
		Use:   "waterTip",
		Short: "Show treatment advice for water by how it looks and smells",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cond, err := services.ParseWaterCondition(clarity, smell)
			if err != nil {
				return err
			}

			tip := services.TipForCondition(cond)
			fmt.Println()
			for _, a := range tip.Advice {
				fmt.Printf("  %s\n", a)
			}
			if len(tip.Materials) > 0 {
				fmt.Printf("\nMaterials needed:\n  - %s\n", strings.Join(tip.Materials, "\n  - "))
				fmt.Printf("\nSteps:\n  - %s\n", strings.Join(tip.Steps, "\n  - "))
			}
			fmt.Printf("\n%s%s%s\n\n", colorDim, tip.Note, colorReset)
			return nil
		},
	}

	cmd.Flags().StringVar(&clarity, "clarity", "clear", "Is the water clear or cloudy")
	cmd.Flags().StringVar(&smell, "smell", "no", "Does the water smell bad (yes or no)")

	return cmd
}

// AskTipCmd creates the askTip command
func AskTipCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "askTip <question>",
		Short: "Ask a water safety question and get a simple AI answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Println("Ask a question, for example:")
				for _, q := range services.ExampleTipQuestions {
					fmt.Printf("  askTip %q\n", q)
				}
				return nil
			}

			generator, err := app.generator()
			if err != nil {
				return err
			}

			answer, err := services.AskWaterTip(app.Ctx, generator, app.Logger, strings.Join(args, " "))
			if err != nil {
				return err
			}

			fmt.Printf("\n%s\n\n", answer)
			return nil
		},
	}
}

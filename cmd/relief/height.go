package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pavletto/relief/terrain"
	"github.com/spf13/cobra"
)

// heightCmd represents the height command
var heightCmd = &cobra.Command{
	Use:   "height",
	Short: "Get exaggerated terrain elevation at a location",
	Long: `Get terrain elevation at a specific geographic coordinate, multiplied
by the configured exaggeration factor.

Examples:
  relief height --lat 25.0 --lon 55.0
  relief height --lat 25.0 --lon 55.0 --zoom 12 --exaggeration 1
  relief height --lat 46.5586 --lon 7.8250 --mbtiles alps.mbtiles`,
	Run: func(cmd *cobra.Command, args []string) {
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")

		if lat < -90 || lat > 90 {
			log.Fatal("Latitude must be between -90 and 90")
		}
		if lon < -180 || lon > 180 {
			log.Fatal("Longitude must be between -180 and 180")
		}

		cfg := LoadConfig(cmd)

		ex, err := cfg.CreateExaggerator()
		if err != nil {
			log.Fatalf("Failed to create source: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := ex.Initialize(ctx); err != nil {
			log.Fatalf("Failed to initialize source: %v", err)
		}

		result, err := terrain.PickHeight(ctx, ex, cfg.DefaultZoom, terrain.HeightRequest{
			Lat:  lat,
			Lon:  lon,
			Zoom: cfg.DefaultZoom,
		})
		if err != nil {
			log.Fatalf("Failed to get height: %v", err)
		}

		fmt.Printf("Location: %.6f, %.6f\n", result.Lat, result.Lon)
		fmt.Printf("Elevation: %.2f meters (x%g)\n", result.Height, result.Meta.Exaggeration)
		fmt.Printf("Tile: z=%d x=%d y=%d\n", result.Meta.Z, result.Meta.X, result.Meta.Y)
		fmt.Printf("Grid Size: %d\n", result.Meta.GridSize)
	},
}

func init() {
	rootCmd.AddCommand(heightCmd)

	heightCmd.Flags().Float64("lat", 0, "Latitude (required)")
	heightCmd.Flags().Float64("lon", 0, "Longitude (required)")
	heightCmd.MarkFlagRequired("lat")
	heightCmd.MarkFlagRequired("lon")
}

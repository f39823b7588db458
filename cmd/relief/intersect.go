package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/pavletto/relief/terrain"
	"github.com/spf13/cobra"
)

var intersectCmd = &cobra.Command{
	Use:   "intersect",
	Short: "Raycast from a camera to the exaggerated terrain",
	Long: `Cast the camera's forward ray and report where it meets the
exaggerated terrain surface.

Examples:
  relief intersect --cam-lat 25.001 --cam-lon 55.729 --cam-alt 177.7 --quat 0.8581,0.0776,-0.1359,0.4899
  relief intersect --cam-lat 46.55 --cam-lon 7.82 --cam-alt 4000 --quat 1,0,0,0 --ellipsoid`,
	Run: func(cmd *cobra.Command, args []string) {
		camLat, _ := cmd.Flags().GetFloat64("cam-lat")
		camLon, _ := cmd.Flags().GetFloat64("cam-lon")
		camAlt, _ := cmd.Flags().GetFloat64("cam-alt")
		quatStr, _ := cmd.Flags().GetString("quat")
		step, _ := cmd.Flags().GetFloat64("step")
		maxDist, _ := cmd.Flags().GetFloat64("max-dist")
		ellipsoid, _ := cmd.Flags().GetBool("ellipsoid")

		var quat [4]float64
		parts := strings.Split(quatStr, ",")
		if len(parts) != 4 {
			log.Fatal("quat must have exactly 4 comma-separated values")
		}
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				log.Fatalf("invalid quat value %q", p)
			}
			quat[i] = f
		}

		cfg := LoadConfig(cmd)

		ex, err := cfg.CreateExaggerator()
		if err != nil {
			log.Fatalf("Failed to create source: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := ex.Initialize(ctx); err != nil {
			log.Fatalf("Failed to initialize source: %v", err)
		}

		result, err := terrain.SearchIntersection(ctx, ex, cfg.DefaultZoom, terrain.IntersectionRequest{
			CamLon:       camLon,
			CamLat:       camLat,
			CamAlt:       camAlt,
			EllipsoidAlt: ellipsoid,
			Quat:         quat,
			Step:         step,
			MaxDist:      maxDist,
		})
		if err != nil {
			log.Fatalf("Intersection search failed: %v", err)
		}

		if result.Hit {
			fmt.Printf("Terrain intersection found at (%.6f, %.6f)\n", result.Lat, result.Lon)
			fmt.Printf("Ground elevation: %.2f meters\n", result.Ground)
		} else {
			fmt.Println("No terrain intersection found within search distance")
		}
	},
}

func init() {
	rootCmd.AddCommand(intersectCmd)

	intersectCmd.Flags().Float64("cam-lat", 0, "Camera latitude (required)")
	intersectCmd.Flags().Float64("cam-lon", 0, "Camera longitude (required)")
	intersectCmd.Flags().Float64("cam-alt", 0, "Camera altitude in meters (required)")
	intersectCmd.Flags().String("quat", "", "Attitude quaternion w,x,y,z in NED (required)")
	intersectCmd.Flags().Float64("step", 1.0, "Ray march step in meters")
	intersectCmd.Flags().Float64("max-dist", 5000.0, "Maximum search distance in meters")
	intersectCmd.Flags().Bool("ellipsoid", false, "cam-alt is WGS84 ellipsoid height (converted to MSL via EGM96)")
	intersectCmd.MarkFlagRequired("cam-lat")
	intersectCmd.MarkFlagRequired("cam-lon")
	intersectCmd.MarkFlagRequired("cam-alt")
	intersectCmd.MarkFlagRequired("quat")
}

package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "relief",
	Short: "Exaggerated terrain tile service",
	Long: `Relief serves elevation tiles whose samples are multiplied by a fixed
exaggeration factor, so 3D globe viewers render dramatized mountains.

It provides both CLI commands and HTTP API endpoints for:
- Tiles: exaggerated DDM and terrain-RGB WebP tiles
- Height Lookup: exaggerated elevation at any geographic coordinate
- Intersection Search: raycast against the exaggerated surface
- Export: write exaggerated tiles into an MBTiles archive

Configuration can be set via environment variables or command-line flags.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()

	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringP("cache-dir", "c", "./cache", "Cache directory for DEM tiles")
	rootCmd.PersistentFlags().String("url-template", "https://{s}.geodata.microavia.com/srtm/{z}/{y}/{x}.ddm", "URL template for downloading tiles")
	rootCmd.PersistentFlags().String("subdomains", "a,b,c", "Comma-separated list of subdomains")
	rootCmd.PersistentFlags().String("mbtiles", "", "Read tiles from an MBTiles archive instead of the URL template")
	rootCmd.PersistentFlags().IntP("zoom", "z", 14, "Default zoom level")
	rootCmd.PersistentFlags().Int("max-native-zoom", 14, "Maximum native zoom level")
	rootCmd.PersistentFlags().Float64P("exaggeration", "e", 100, "Multiplier applied to every elevation sample")
	rootCmd.PersistentFlags().String("nodata-values", "", "Comma-separated list of no-data values (e.g., '-32768,3.4028235e+38')")
}

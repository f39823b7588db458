package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pavletto/relief/terrain"
	"github.com/spf13/cobra"
)

// Config holds application configuration
type Config struct {
	CacheDir      string
	URLTemplate   string
	Subdomains    []string
	MBTiles       string
	DefaultZoom   int
	MaxNativeZoom int
	Exaggeration  float64
	NoDataValues  string
}

// LoadConfig loads configuration from environment variables and command flags
// Flags take precedence over environment variables
func LoadConfig(cmd *cobra.Command) Config {
	cfg := Config{}

	cfg.CacheDir = getConfigString(cmd, "cache-dir", "RELIEF_CACHE_DIR", "./cache")
	cfg.URLTemplate = getConfigString(cmd, "url-template", "RELIEF_URL_TEMPLATE", "https://{s}.geodata.microavia.com/srtm/{z}/{y}/{x}.ddm")
	cfg.Subdomains = strings.Split(getConfigString(cmd, "subdomains", "RELIEF_SUBDOMAINS", "a,b,c"), ",")
	cfg.MBTiles = getConfigString(cmd, "mbtiles", "RELIEF_MBTILES", "")
	cfg.DefaultZoom = getConfigInt(cmd, "zoom", "RELIEF_DEFAULT_Z", 14)
	cfg.MaxNativeZoom = getConfigInt(cmd, "max-native-zoom", "RELIEF_MAX_NATIVE_Z", 14)
	cfg.Exaggeration = getConfigFloat(cmd, "exaggeration", "RELIEF_EXAGGERATION", terrain.DefaultExaggeration)
	cfg.NoDataValues = getConfigString(cmd, "nodata-values", "RELIEF_NODATA_CSV", "")

	return cfg
}

// CreateSource builds the raw tile source: the MBTiles archive when one is
// configured, the URL template otherwise.
func (c *Config) CreateSource() (terrain.Source, error) {
	noData := terrain.ParseNoData(c.NoDataValues)
	if c.MBTiles != "" {
		return terrain.NewMBTilesSource(c.MBTiles, noData), nil
	}

	return terrain.NewHTTPSource(terrain.HTTPSourceConfig{
		CacheDir:          c.CacheDir,
		URLTemplate:       c.URLTemplate,
		Subdomains:        c.Subdomains,
		PermitDownload:    c.URLTemplate != "",
		HTTPClientTimeout: 15 * time.Second,
		MaxLevel:          c.MaxNativeZoom,
		NoDataValues:      noData,
	})
}

// CreateExaggerator wraps the configured source in the exaggerator.
func (c *Config) CreateExaggerator() (*terrain.Exaggerator, error) {
	src, err := c.CreateSource()
	if err != nil {
		return nil, err
	}
	return terrain.NewExaggerator(src, terrain.WithExaggeration(c.Exaggeration))
}

// getConfigString gets a string value from flag, then env, then default
func getConfigString(cmd *cobra.Command, flagName, envName, defaultValue string) string {
	if cmd.Flags().Changed(flagName) {
		val, _ := cmd.Flags().GetString(flagName)
		return val
	}
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return defaultValue
}

// getConfigInt gets an int value from flag, then env, then default
func getConfigInt(cmd *cobra.Command, flagName, envName string, defaultValue int) int {
	if cmd.Flags().Changed(flagName) {
		val, _ := cmd.Flags().GetInt(flagName)
		return val
	}
	if v := os.Getenv(envName); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

// getConfigFloat gets a float64 value from flag, then env, then default
func getConfigFloat(cmd *cobra.Command, flagName, envName string, defaultValue float64) float64 {
	if cmd.Flags().Changed(flagName) {
		val, _ := cmd.Flags().GetFloat64(flagName)
		return val
	}
	if v := os.Getenv(envName); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

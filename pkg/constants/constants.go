// Package constants provides shared constants for the portfolio-pilot application.
package constants

import "time"

// Chart geometry. Pie charts are drawn in a square viewBox with the circle centred in it.
const (
	// ChartViewBox is the width and height of the SVG viewBox
	ChartViewBox = 100.0

	// ChartCenter is the x and y coordinate of the pie centre
	ChartCenter = 50.0

	// ChartRadius is the pie radius
	ChartRadius = 40.0

	// FullCircleDegrees is the sweep of a complete pie
	FullCircleDegrees = 360.0

	// ColorSaturation is the fixed HSL saturation (percent) for chart segments
	ColorSaturation = 70.0

	// ColorLightness is the fixed HSL lightness (percent) for chart segments
	ColorLightness = 50.0

	// AngleTolerance is the tolerance used when comparing accumulated angles
	AngleTolerance = 1e-6
)

// Financial constants
const (
	// DecimalPlaces is the number of decimals shown for currency amounts
	DecimalPlaces = 2

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// MinimumTickers is the smallest ticker set the optimization service accepts
	MinimumTickers = 2
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatYAML is the YAML output format
	OutputFormatYAML = "yaml"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// EnvPrefix prefixes environment variable overrides (PORTFOLIO_PILOT_OPTIMIZER_URL)
	EnvPrefix = "PORTFOLIO_PILOT"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the web UI
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum JSON request body size (64 KB)
	DefaultMaxBodySizeBytes int64 = 64 * 1024

	// DefaultSessionTTL is how long an idle browser session is kept
	DefaultSessionTTL = 2 * time.Hour

	// SessionCookieName names the cookie carrying the session id
	SessionCookieName = "portfolio_pilot_session"

	// ShutdownTimeout bounds graceful server shutdown
	ShutdownTimeout = 10 * time.Second
)

// Optimization service defaults
const (
	// DefaultOptimizerURL is where the optimization service listens by default
	DefaultOptimizerURL = "http://127.0.0.1:5000"

	// DefaultOptimizerPath is the optimization endpoint path
	DefaultOptimizerPath = "/optimize"

	// DefaultOptimizerTimeout bounds a single optimization call. Optimization can take time.
	DefaultOptimizerTimeout = 60 * time.Second

	// DefaultMaxResponseSizeBytes caps how much of a service response is read (1 MB)
	DefaultMaxResponseSizeBytes int64 = 1024 * 1024
)

// Session defaults
var (
	// DefaultTickers seeds a new session
	DefaultTickers = []string{"AAPL", "GOOG", "MSFT", "AMZN"}
)

// DefaultInvestment seeds a new session
const DefaultInvestment = "10000"

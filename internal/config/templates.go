package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Options Lab Configuration

[pricing]
# Annualized risk-free rate used by Black-Scholes
risk_free_rate = 0.05
# Newton-Raphson implied volatility solver
initial_vol_guess = 0.5
iv_tolerance = 1e-6
iv_max_iterations = 100
# Solver clamps volatility to [vol_floor, vol_cap]
vol_floor = 0.001
vol_cap = 2.0

[analysis]
# Price points scanned for breakevens and max profit/loss
breakeven_samples = 200
# Histogram bins for distribution charts
histogram_bins = 20
# Scan range padding beyond the lowest/highest price, as a fraction
range_padding = 0.25
# Relative edge inside which a quote is FAIR
fair_edge_threshold = 0.05

[synth]
base_url = "https://api.synthdata.co"
# Forecast horizon: 1h, 24h
timeframe = "24h"
timeout = "10s"
# Extra attempts on 5xx and 429
retry_attempts = 2
retry_delay = "1s"

[log]
# Log level: debug, info, warn, error
level = "info"
console = true
file = false
max_size = 50
max_backups = 5
max_age = 30
`

const credentialsTemplate = `# Options Lab Credentials
# Keep this file private. SYNTH_API_KEY overrides the value below.

[synth]
api_key = ""
`

func createTemplate(configDir, name, content string, perm os.FileMode) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name)
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing %s template: %w", name, err)
	}
	return nil
}

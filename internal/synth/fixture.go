package synth

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"options-lab/internal/errors"
)

//go:embed fixtures/*.json
var demoFS embed.FS

// DemoAssets lists the assets with bundled offline snapshots.
func DemoAssets() []string {
	entries, err := demoFS.ReadDir("fixtures")
	if err != nil {
		return nil
	}
	assets := make([]string, 0, len(entries))
	for _, e := range entries {
		assets = append(assets, strings.ToUpper(strings.TrimSuffix(e.Name(), ".json")))
	}
	sort.Strings(assets)
	return assets
}

// Demo returns the bundled snapshot for asset.
func Demo(asset string) (*Snapshot, error) {
	asset = normalizeAsset(asset)
	data, err := demoFS.ReadFile("fixtures/" + strings.ToLower(asset) + ".json")
	if err != nil {
		return nil, errors.NewDataError("fixture", asset, "no bundled snapshot", errors.ErrDataNotFound)
	}
	return decodeSnapshot(data, "fixture:"+asset)
}

// LoadFixture reads a snapshot saved as JSON, for example the output of
// `optionslab snapshot --out`.
func LoadFixture(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}
	return decodeSnapshot(data, path)
}

func decodeSnapshot(data []byte, source string) (*Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return nil, errors.NewDataError("snapshot", source, "decoding JSON", err)
	}
	if err := snap.Validate(); err != nil {
		return nil, errors.Wrapf(err, "snapshot %s", source)
	}
	return &snap, nil
}

// Validate checks that the snapshot can drive the analytics.
func (s *Snapshot) Validate() error {
	if !(s.Pricing.CurrentPrice > 0) {
		return errors.NewValidationError("current_price", s.Pricing.CurrentPrice, "must be positive")
	}
	if len(s.Pricing.Strikes) == 0 {
		return errors.NewValidationError("strikes", 0, "no strikes quoted")
	}
	if s.Pricing.Expiration <= s.Pricing.Timestamp {
		return errors.NewValidationError("expiration", s.Pricing.Expiration, "must be after the quote timestamp")
	}
	if _, err := s.Percentiles.Distribution(); err != nil {
		return err
	}
	if !(s.Volatility.ImpliedVolatility > 0) {
		return errors.NewValidationError("implied_volatility", s.Volatility.ImpliedVolatility, "must be positive")
	}
	return nil
}

package weights

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/mir00r/edge-router/internal/domain"
)

// wireConfig is the stored form. Fields left out of the payload keep their
// default values.
type wireConfig struct {
	Weight *json.Number `json:"weight"`
	Blue   *string      `json:"blue"`
	Green  *string      `json:"green"`
}

// NormalizePayload turns the single-quoted form written by operators, e.g.
// {'weight': 51, 'blue': 'v1'}, into JSON. Every single quote becomes a double
// quote; tags containing quotes are not supported.
func NormalizePayload(payload string) string {
	return strings.ReplaceAll(payload, "'", `"`)
}

// unsafeTagChars cannot survive the single-quoted form: quotes are rewritten by
// NormalizePayload and backslashes start JSON escapes
const unsafeTagChars = `'"\`

// ParseRoutingConfig decodes a stored routing config. The weight must be an
// integral number (51 and 51.0 are equal) or a numeric string. Out-of-range
// weights are returned as-is.
func ParseRoutingConfig(payload string) (domain.RoutingConfig, error) {
	var wire wireConfig
	if err := json.Unmarshal([]byte(NormalizePayload(payload)), &wire); err != nil {
		return domain.RoutingConfig{}, fmt.Errorf("invalid routing payload: %w", err)
	}

	cfg := domain.DefaultRoutingConfig()
	if wire.Weight != nil {
		weight, err := parseWeight(*wire.Weight)
		if err != nil {
			return domain.RoutingConfig{}, err
		}
		cfg.Weight = weight
	}
	if wire.Blue != nil {
		cfg.Blue = *wire.Blue
	}
	if wire.Green != nil {
		cfg.Green = *wire.Green
	}
	return cfg, nil
}

func parseWeight(n json.Number) (int, error) {
	if weight, err := n.Int64(); err == nil {
		return int(weight), nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("weight %q is not an integer", n.String())
	}
	return int(f), nil
}

// ValidateVersionTags rejects version tags that would not read back unchanged
// from the single-quoted form
func ValidateVersionTags(cfg domain.RoutingConfig) error {
	for color, tag := range map[string]string{"blue": cfg.Blue, "green": cfg.Green} {
		if strings.ContainsAny(tag, unsafeTagChars) {
			return fmt.Errorf("%s version tag %q must not contain quotes or backslashes", color, tag)
		}
	}
	return nil
}

// FormatRoutingConfig encodes cfg in the single-quoted form operators write.
// It fails for tags ValidateVersionTags rejects.
func FormatRoutingConfig(cfg domain.RoutingConfig) (string, error) {
	if err := ValidateVersionTags(cfg); err != nil {
		return "", err
	}
	return fmt.Sprintf("{'weight': %d, 'blue': '%s', 'green': '%s'}", cfg.Weight, cfg.Blue, cfg.Green), nil
}

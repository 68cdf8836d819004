package weights

import (
	"testing"

	"github.com/mir00r/edge-router/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoutingConfig(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    domain.RoutingConfig
		wantErr bool
	}{
		{
			name:    "single quoted",
			payload: "{'weight': 60, 'blue': 'v1.2.0', 'green': 'v1.3.0'}",
			want:    domain.RoutingConfig{Weight: 60, Blue: "v1.2.0", Green: "v1.3.0"},
		},
		{
			name:    "standard json",
			payload: `{"weight": 0, "blue": "a", "green": "b"}`,
			want:    domain.RoutingConfig{Weight: 0, Blue: "a", Green: "b"},
		},
		{
			name:    "missing green keeps default tag",
			payload: "{'weight': 51, 'blue': 'v1'}",
			want:    domain.RoutingConfig{Weight: 51, Blue: "v1", Green: "unknown"},
		},
		{
			name:    "missing weight keeps default weight",
			payload: "{'blue': 'v1', 'green': 'v2'}",
			want:    domain.RoutingConfig{Weight: 51, Blue: "v1", Green: "v2"},
		},
		{
			name:    "numeric string weight",
			payload: "{'weight': '100'}",
			want:    domain.RoutingConfig{Weight: 100, Blue: "unknown", Green: "unknown"},
		},
		{
			name:    "out of range weight kept",
			payload: "{'weight': -20}",
			want:    domain.RoutingConfig{Weight: -20, Blue: "unknown", Green: "unknown"},
		},
		{
			name:    "integral float weight",
			payload: "{'weight': 51.0, 'blue': 'v1', 'green': 'v2'}",
			want:    domain.RoutingConfig{Weight: 51, Blue: "v1", Green: "v2"},
		},
		{
			name:    "exponent weight",
			payload: `{"weight": 1e1}`,
			want:    domain.RoutingConfig{Weight: 10, Blue: "unknown", Green: "unknown"},
		},
		{name: "fractional weight", payload: "{'weight': 50.5}", wantErr: true},
		{name: "huge weight", payload: "{'weight': 1e40}", wantErr: true},
		{name: "non numeric weight", payload: "{'weight': 'half'}", wantErr: true},
		{name: "not an object", payload: "[1, 2]", wantErr: true},
		{name: "garbage", payload: "weight=60", wantErr: true},
		{name: "empty", payload: "", wantErr: true},
		{name: "trailing data", payload: "{'weight': 1} {}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRoutingConfig(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatRoutingConfigParsesBack(t *testing.T) {
	cfg := domain.RoutingConfig{Weight: 25, Blue: "2024.10.1", Green: "2024.10.2"}

	payload, err := FormatRoutingConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "{'weight': 25, 'blue': '2024.10.1', 'green': '2024.10.2'}", payload)

	parsed, err := ParseRoutingConfig(payload)
	require.NoError(t, err)
	assert.Equal(t, cfg, parsed)
}

func TestFormatRoutingConfigRejectsUnsafeTags(t *testing.T) {
	tests := []struct {
		name string
		cfg  domain.RoutingConfig
	}{
		{"double quote in blue", domain.RoutingConfig{Weight: 10, Blue: `v"1`, Green: "x"}},
		{"single quote in green", domain.RoutingConfig{Weight: 10, Blue: "x", Green: "it's"}},
		{"backslash", domain.RoutingConfig{Weight: 10, Blue: `a\b`, Green: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FormatRoutingConfig(tt.cfg)
			assert.Error(t, err)
			assert.Error(t, ValidateVersionTags(tt.cfg))
		})
	}
}

func TestParsedTagsFormatOrFail(t *testing.T) {
	// standard JSON can carry escaped quotes that the stored form cannot
	cfg, err := ParseRoutingConfig(`{"weight": 10, "blue": "v\"1", "green": "x"}`)
	require.NoError(t, err)
	assert.Equal(t, `v"1`, cfg.Blue)

	_, err = FormatRoutingConfig(cfg)
	assert.Error(t, err)
}

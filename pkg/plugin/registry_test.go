package plugin_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/aicred/pkg/plugin"
)

type stubValidator struct {
	name     string
	provider string
	suffix   string
}

func (s stubValidator) Name() string { return s.name }
func (s stubValidator) ProviderID() string { return s.provider }
func (s stubValidator) ConfidenceScore(string) float64 { return 0.5 }
func (s stubValidator) CanHandle(path string) bool {
	return s.suffix == "" || strings.HasSuffix(path, s.suffix)
}

func newTestRegistry(t *testing.T) *plugin.ValidatorRegistry {
	t.Helper()

	reg := plugin.NewValidatorRegistry()
	require.NoError(t, reg.Register(stubValidator{name: "openai", provider: "openai"}))
	require.NoError(t, reg.Register(stubValidator{name: "aws-bedrock", provider: "aws_bedrock", suffix: ".env"}))
	require.NoError(t, reg.Register(stubValidator{name: "groq", provider: "groq", suffix: ".gshrc"}))
	return reg
}

// TestRegistryOrder validates insertion order and lookup
func TestRegistryOrder(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)
	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, []string{"openai", "aws-bedrock", "groq"}, reg.Names())

	v, ok := reg.Get("groq")
	require.True(t, ok)
	assert.Equal(t, "groq", v.ProviderID())

	_, ok = reg.Get("missing")
	assert.False(t, ok)

	list := reg.List()
	require.Len(t, list, 3)
	assert.Equal(t, "openai", list[0].Name())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)
	err := reg.Register(stubValidator{name: "openai", provider: "openai"})
	assert.ErrorContains(t, err, "already registered")

	err = reg.Register(stubValidator{})
	assert.ErrorContains(t, err, "must not be empty")

	assert.Panics(t, func() {
		reg.MustRegister(stubValidator{name: "groq"})
	})
}

func TestRegistryHandling(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)

	names := func(vs []plugin.Validator) []string {
		var out []string
		for _, v := range vs {
			out = append(out, v.Name())
		}
		return out
	}

	assert.Equal(t, []string{"openai", "aws-bedrock"}, names(reg.Handling("/h/.env")))
	assert.Equal(t, []string{"openai", "groq"}, names(reg.Handling("/h/.gshrc")))
	assert.Equal(t, []string{"openai"}, names(reg.Handling("/h/config.json")))
}

// TestFilterValidators validates allow-list before deny-list semantics
func TestFilterValidators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		only    []string
		exclude []string
		want    []string
	}{
		{"no filters", nil, nil, []string{"openai", "aws-bedrock", "groq"}},
		{"only list", []string{"groq", "openai"}, nil, []string{"openai", "groq"}},
		{"exclude list", nil, []string{"openai"}, []string{"aws-bedrock", "groq"}},
		{"in both lists is excluded", []string{"openai", "groq"}, []string{"openai"}, []string{"groq"}},
		{"matches provider id", []string{"aws_bedrock"}, nil, []string{"aws-bedrock"}},
		{"case insensitive", []string{" OpenAI "}, nil, []string{"openai"}},
		{"unknown only yields empty", []string{"nope"}, nil, []string{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			filtered := plugin.FilterValidators(newTestRegistry(t), tt.only, tt.exclude)
			assert.Equal(t, tt.want, filtered.Names())
		})
	}
}

func TestByProvider(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)

	v, ok := plugin.ByProvider(reg, "aws_bedrock")
	require.True(t, ok)
	assert.Equal(t, "aws-bedrock", v.Name())

	_, ok = plugin.ByProvider(reg, "mistral")
	assert.False(t, ok)

	assert.Equal(t, []string{"openai", "aws_bedrock", "groq"}, plugin.ProviderIDs(reg))
}

func TestParsedConfigEmpty(t *testing.T) {
	t.Parallel()

	var nilConfig *plugin.ParsedConfig
	assert.True(t, nilConfig.Empty())
	assert.True(t, (&plugin.ParsedConfig{}).Empty())
	assert.False(t, (&plugin.ParsedConfig{Metadata: map[string]string{"model": "x"}}).Empty())
}

package yamlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Name    string `yaml:"name"`
	Workers int    `yaml:"workers"`
}

func TestUnmarshalStrict(t *testing.T) {
	var cfg sampleConfig
	require.NoError(t, UnmarshalStrict([]byte("name: live\nworkers: 4\n"), &cfg))
	assert.Equal(t, "live", cfg.Name)
	assert.Equal(t, 4, cfg.Workers)
}

func TestUnmarshalStrict_UnknownField(t *testing.T) {
	var cfg sampleConfig
	err := UnmarshalStrict([]byte("name: live\nworkerz: 4\n"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown configuration field")
}

func TestUnmarshalStrict_Empty(t *testing.T) {
	cfg := sampleConfig{Name: "kept"}
	require.NoError(t, UnmarshalStrict([]byte(""), &cfg))
	assert.Equal(t, "kept", cfg.Name)
}

func TestUnmarshalStrict_Malformed(t *testing.T) {
	var cfg sampleConfig
	assert.Error(t, UnmarshalStrict([]byte("name: [unclosed"), &cfg))
}

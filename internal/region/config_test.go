package region

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inodb/vibe-hap/internal/gtfilter"
)

func TestWindow(t *testing.T) {
	tests := []struct {
		name        string
		pos, flanks int64
		left, right Span
	}{
		{"interior", 1000, 500, Span{500, 999}, Span{1001, 1500}},
		{"flanks reach position", 1000, 1000, Span{1, 999}, Span{1001, 2000}},
		{"flanks past start", 100, 1000, Span{1, 99}, Span{101, 1100}},
		{"first base", 1, 10, Span{1, 0}, Span{2, 11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left, right := Window(tt.pos, tt.flanks)
			assert.Equal(t, tt.left, left)
			assert.Equal(t, tt.right, right)
		})
	}
	left, _ := Window(1, 10)
	assert.True(t, left.Empty())
}

func TestConfig_Policy(t *testing.T) {
	assert.Equal(t, PolicyAll, (&Config{}).Policy())
	assert.Equal(t, PolicyInformative, (&Config{InformativeOnly: true}).Policy())
	assert.Equal(t, PolicyPhasedInAll, (&Config{PhasedInAll: true, InformativeOnly: true}).Policy())
	assert.Equal(t, "phased-in-all", PolicyPhasedInAll.String())
}

func TestConfig_Validate(t *testing.T) {
	neg := -1
	bigAF := 1.5
	okAF := 0.01
	tests := []struct {
		name    string
		edit    func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"valid with options", func(c *Config) { c.MinOtherAlleleFreq = &okAF; c.Filter = gtfilter.Filter{GQ: 20, HetAB: 0.2} }, false},
		{"bad variant", func(c *Config) { c.Variant = "chr1:abc-A/G" }, true},
		{"no samples", func(c *Config) { c.Samples = nil }, true},
		{"duplicate sample", func(c *Config) { c.Samples = []string{"a", "a"} }, true},
		{"zero flanks", func(c *Config) { c.Flanks = 0 }, true},
		{"bad allele balance", func(c *Config) { c.Filter.HetAB = 0.7 }, true},
		{"negative no-calls", func(c *Config) { c.MaxNoCalls = &neg }, true},
		{"frequency above one", func(c *Config) { c.MinOtherAlleleFreq = &bigAF }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Variant: "chr1:1000-A/G", Samples: []string{"a", "b"}, Flanks: DefaultFlanks}
			tt.edit(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

package configtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateListenAddress(t *testing.T) {
	tests := []struct {
		listen  string
		wantErr bool
	}{
		{":9464", false},
		{"0.0.0.0:9464", false},
		{"localhost:10070", false},
		{"[::1]:9464", false},
		{"9464", true},
		{"", true},
		{"localhost:metrics", true},
		{":0", true},
		{":70000", true},
	}

	for _, tt := range tests {
		t.Run(tt.listen, func(t *testing.T) {
			err := ValidateListenAddress(tt.listen)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestReportConfig_AssertionMessageEnabled(t *testing.T) {
	var r ReportConfig
	assert.True(t, r.AssertionMessageEnabled())

	off := false
	r.UseAssertionMessage = &off
	assert.False(t, r.AssertionMessageEnabled())
}

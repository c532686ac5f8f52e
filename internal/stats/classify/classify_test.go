package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgecomet/loadstats/pkg/types"
)

func TestIsSuccessCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"200", true},
		{"302", true},
		{"399", true},
		{"199", false},
		{"400", false},
		{"500", false},
		{"", false},
		{"Non HTTP response code: java.net.SocketException", false},
		{"-200", false},
		{"99999999999999999999", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSuccessCode(tt.code))
		})
	}
}

func TestSignature(t *testing.T) {
	tests := []struct {
		name   string
		sample types.Sample
		opts   Options
		want   string
	}{
		{
			name:   "protocol failure with message",
			sample: types.Sample{ResponseCode: "500", ResponseMessage: "Internal Error"},
			opts:   DefaultOptions(),
			want:   "500/Internal Error",
		},
		{
			name:   "protocol failure without message",
			sample: types.Sample{ResponseCode: "503"},
			opts:   DefaultOptions(),
			want:   "503",
		},
		{
			name:   "assertion with message enabled",
			sample: types.Sample{ResponseCode: "200", ResponseMessage: "OK", FailureMessage: "Test failed: text expected to contain /Welcome/"},
			opts:   Options{UseAssertionMessage: true},
			want:   `Test failed: text expected to contain \/Welcome\/`,
		},
		{
			name:   "assertion with message disabled",
			sample: types.Sample{ResponseCode: "200", FailureMessage: "size mismatch"},
			opts:   Options{UseAssertionMessage: false},
			want:   AssertionFailed,
		},
		{
			name:   "assertion without failure message",
			sample: types.Sample{ResponseCode: "302"},
			opts:   Options{UseAssertionMessage: true},
			want:   AssertionFailed,
		},
		{
			name:   "unparsable code is a generic error",
			sample: types.Sample{ResponseCode: "Non HTTP response code: java.net.ConnectException", ResponseMessage: "Connection refused"},
			opts:   DefaultOptions(),
			want:   "Non HTTP response code: java.net.ConnectException/Connection refused",
		},
		{
			name:   "message is escaped",
			sample: types.Sample{ResponseCode: "400", ResponseMessage: "bad \"input\"\n"},
			opts:   DefaultOptions(),
			want:   `400/bad \"input\"\n`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Signature(&tt.sample, tt.opts))
		})
	}
}

func TestEscapeJSON(t *testing.T) {
	assert.Equal(t, "plain", EscapeJSON("plain"))
	assert.Equal(t, `a\\b`, EscapeJSON(`a\b`))
	assert.Equal(t, `<tag>&`, EscapeJSON(`<tag>&`))
	assert.Equal(t, `tab\there`, EscapeJSON("tab\there"))
	assert.Equal(t, `say \"hi\"`, EscapeJSON(`say "hi"`))
	assert.Equal(t, `a\/b`, EscapeJSON("a/b"))
	assert.Equal(t, `\u0001\r\n\b\f`, EscapeJSON("\x01\r\n\b\f"))
	assert.Equal(t, "del\x7f", EscapeJSON("del\x7f"))
}

func TestEscapeJSON_NonASCII(t *testing.T) {
	assert.Equal(t, `Caf\u00E9`, EscapeJSON("Café"))
	assert.Equal(t, `Caf\u00E9`, EscapeJSON("Caf\xe9"))
	assert.Equal(t, `\u041E\u0448\u0438\u0431\u043A\u0430`, EscapeJSON("Ошибка"))
	assert.Equal(t, `\uD83D\uDE00`, EscapeJSON("\U0001F600"))
	assert.Equal(t, `\u00A0`, EscapeJSON("\u00a0"))
}

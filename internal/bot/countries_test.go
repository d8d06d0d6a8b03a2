package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCountryCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare code", input: "7", want: "7"},
		{name: "keyboard entry", input: "7 - Russia", want: "7"},
		{name: "three digit keyboard entry", input: "380 - Ukraine", want: "380"},
		{name: "surrounding whitespace", input: "  91  ", want: "91"},
		{name: "letters", input: "abc", wantErr: true},
		{name: "mixed", input: "7a", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "only separator", input: " - Russia", wantErr: true},
		{name: "negative", input: "-7", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCountryCode(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCountryCode)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

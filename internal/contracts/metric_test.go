package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{"COVID_Positivity", KindCOVIDPositivity, false},
		{"covid_cases", KindCOVIDCases, false},
		{"RSV_Rate", KindRSVRate, false},
		{"Flu_Rate", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKind_IsSnapshot(t *testing.T) {
	snapshot := map[Kind]bool{
		KindCOVIDPositivity: false,
		KindCOVIDCases:      true,
		KindCOVIDDeaths:     true,
		KindCOVIDRecovered:  true,
		KindRSVRate:         false,
	}

	for kind, want := range snapshot {
		assert.Equal(t, want, kind.IsSnapshot(), kind.String())
	}
	assert.Len(t, AllKinds, len(snapshot))
}

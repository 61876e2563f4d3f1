package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSOL(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"1", 1_000_000_000, false},
		{"0.5", 500_000_000, false},
		{"0.000000001", 1, false},
		{"0.0000000001", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"18446744074", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSOL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLamportsToSOL(t *testing.T) {
	assert.Equal(t, "0.000000001", LamportsToSOL(1).String())
	assert.Equal(t, "0", LamportsToSOL(0).String())
	assert.Equal(t, "1.5", LamportsToSOL(1_500_000_000).String())
}

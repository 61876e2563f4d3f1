package utils

import (
	"reflect"
	"testing"
)

func TestSplitWords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"initialize_mint", []string{"initialize", "mint"}},
		{"initializeMint", []string{"initialize", "Mint"}},
		{"setNFTData", []string{"set", "NFT", "Data"}},
		{"HTTPServer", []string{"HTTP", "Server"}},
		{"MyAccount", []string{"My", "Account"}},
		{"mint2-authority", []string{"mint2", "authority"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := SplitWords(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitWords(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"initializeMint": "initialize_mint",
		"setNFTData":     "set_nft_data",
		"initialize":     "initialize",
		"Transfer":       "transfer",
	}
	for in, want := range tests {
		if got := ToSnakeCase(in); got != want {
			t.Errorf("ToSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToPascalCase(t *testing.T) {
	tests := map[string]string{
		"my_account":  "MyAccount",
		"tradeEvent":  "TradeEvent",
		"pool-config": "PoolConfig",
	}
	for in, want := range tests {
		if got := ToPascalCase(in); got != want {
			t.Errorf("ToPascalCase(%q) = %q, want %q", in, got, want)
		}
	}
}

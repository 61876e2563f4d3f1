package programlog

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	outer = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	inner = "11111111111111111111111111111111"
)

func b64(b ...byte) string { return base64.StdEncoding.EncodeToString(b) }

func sampleLogs() []string {
	return []string{
		"Program " + outer + " invoke [1]",
		"Program log: Instruction: Swap",
		"Program data: " + b64(1, 2, 3),
		"Program " + inner + " invoke [2]",
		"Program data: " + b64(4, 5),
		"Program " + inner + " consumed 150 of 190000 compute units",
		"Program " + inner + " success",
		"Program data: " + b64(6),
		"Program " + outer + " consumed 4200 of 200000 compute units",
		"Program " + outer + " success",
		"Program " + inner + " invoke [1]",
		"Program " + inner + " consumed 300 of 195800 compute units",
		"Program " + inner + " failed: custom program error: 0x1",
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		raw  string
		want Line
	}{
		{"Program " + outer + " invoke [3]", Line{Kind: KindInvoke, Program: outer, Depth: 3}},
		{"Program " + outer + " success", Line{Kind: KindSuccess, Program: outer}},
		{"Program " + outer + " failed: insufficient funds", Line{Kind: KindFailed, Program: outer}},
		{"Program " + outer + " consumed 42 of 200000 compute units", Line{Kind: KindConsumed, Program: outer, Units: 42}},
		{"Program log: hello world", Line{Kind: KindLog, Message: "hello world"}},
		{"Program log: success", Line{Kind: KindLog, Message: "success"}},
		{"Program data: " + b64(9, 8), Line{Kind: KindData, Payload: []byte{9, 8}}},
		{"Program data: !!!", Line{Kind: KindData}},
		{"Log truncated", Line{Kind: KindOther}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			tt.want.Raw = tt.raw
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "invoke", KindInvoke.String())
	assert.Equal(t, "other", Kind(99).String())
}

func TestDataAttributesProgram(t *testing.T) {
	entries := Data(sampleLogs())
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{Program: outer, Depth: 1, Payload: []byte{1, 2, 3}}, entries[0])
	assert.Equal(t, Entry{Program: inner, Depth: 2, Payload: []byte{4, 5}}, entries[1])
	assert.Equal(t, Entry{Program: outer, Depth: 1, Payload: []byte{6}}, entries[2])
}

func TestDataRecoversFromTruncatedStack(t *testing.T) {
	logs := []string{
		"Program " + outer + " invoke [1]",
		"Program " + inner + " invoke [2]",
		// success line for inner missing
		"Program " + inner + " invoke [2]",
		"Program data: " + b64(7),
	}
	entries := Data(logs)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Depth)
	assert.Equal(t, inner, entries[0].Program)
}

func TestDataOutsideInvoke(t *testing.T) {
	entries := Data([]string{"Program data: " + b64(1)})
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Program)
	assert.Zero(t, entries[0].Depth)
}

func TestMessages(t *testing.T) {
	assert.Equal(t, []string{"Instruction: Swap"}, Messages(sampleLogs()))
	assert.Nil(t, Messages(nil))
}

func TestComputeUnitsCountsTopLevelOnly(t *testing.T) {
	assert.Equal(t, uint64(4500), ComputeUnits(sampleLogs()))
}

func TestParseAll(t *testing.T) {
	lines := ParseAll(sampleLogs())
	require.Len(t, lines, len(sampleLogs()))
	assert.Equal(t, KindInvoke, lines[0].Kind)
	assert.Equal(t, KindFailed, lines[len(lines)-1].Kind)
}

// Package programlog reads the log lines a validator records while executing a
// transaction, as delivered by logsSubscribe or getTransaction.
//
// Programs emit structured events as base64 "Program data:" lines. Data walks
// the invoke stack so each payload is attributed to the program that was running
// when it was logged:
//
//	for _, e := range programlog.Data(logs) {
//	    if anchor.EventDiscriminator("TradeEvent").Matches(e.Payload) { ... }
//	}
package programlog

import (
	"encoding/base64"
	"regexp"
	"strconv"
)

// Kind classifies a log line.
type Kind int

const (
	KindOther Kind = iota
	KindInvoke
	KindSuccess
	KindFailed
	KindData
	KindLog
	KindConsumed
)

func (k Kind) String() string {
	switch k {
	case KindInvoke:
		return "invoke"
	case KindSuccess:
		return "success"
	case KindFailed:
		return "failed"
	case KindData:
		return "data"
	case KindLog:
		return "log"
	case KindConsumed:
		return "consumed"
	default:
		return "other"
	}
}

// Line is one parsed log line. Only the fields relevant to Kind are set.
type Line struct {
	Kind Kind

	// Program is the base58 program id of invoke, success, failed and consumed lines.
	Program string

	// Depth is the 1-based invoke depth of an invoke line.
	Depth int

	// Payload is the decoded body of a data line. nil when the base64 is malformed.
	Payload []byte

	// Message is the text of a log line.
	Message string

	// Units is the compute budget spent by a consumed line.
	Units uint64

	Raw string
}

var (
	invokeRe   = regexp.MustCompile(`^Program (\S+) invoke \[(\d+)\]$`)
	successRe  = regexp.MustCompile(`^Program (\S+) success$`)
	failedRe   = regexp.MustCompile(`^Program (\S+) failed`)
	dataRe     = regexp.MustCompile(`^Program data: (.+)$`)
	logRe      = regexp.MustCompile(`^Program log: (.*)$`)
	consumedRe = regexp.MustCompile(`^Program (\S+) consumed (\d+) of \d+ compute units$`)
)

// Parse classifies a single line.
func Parse(raw string) Line {
	l := Line{Kind: KindOther, Raw: raw}

	// Program output first, its text may look like any other line.
	if m := dataRe.FindStringSubmatch(raw); m != nil {
		l.Kind = KindData
		if b, err := base64.StdEncoding.DecodeString(m[1]); err == nil {
			l.Payload = b
		}
		return l
	}
	if m := logRe.FindStringSubmatch(raw); m != nil {
		l.Kind, l.Message = KindLog, m[1]
		return l
	}
	if m := invokeRe.FindStringSubmatch(raw); m != nil {
		l.Kind, l.Program = KindInvoke, m[1]
		l.Depth, _ = strconv.Atoi(m[2])
		return l
	}
	if m := successRe.FindStringSubmatch(raw); m != nil {
		l.Kind, l.Program = KindSuccess, m[1]
		return l
	}
	if m := consumedRe.FindStringSubmatch(raw); m != nil {
		l.Kind, l.Program = KindConsumed, m[1]
		l.Units, _ = strconv.ParseUint(m[2], 10, 64)
		return l
	}
	if m := failedRe.FindStringSubmatch(raw); m != nil {
		l.Kind, l.Program = KindFailed, m[1]
		return l
	}
	return l
}

// ParseAll parses every line in order.
func ParseAll(lines []string) []Line {
	out := make([]Line, 0, len(lines))
	for _, raw := range lines {
		out = append(out, Parse(raw))
	}
	return out
}

// Entry is a data payload together with the program that logged it.
type Entry struct {
	Program string
	Depth   int
	Payload []byte
}

// Data returns every decodable "Program data:" payload. Lines logged outside any
// invoke keep an empty Program.
func Data(lines []string) []Entry {
	var (
		stack []string
		out   []Entry
	)
	for _, raw := range lines {
		l := Parse(raw)
		switch l.Kind {
		case KindInvoke:
			// Depth is authoritative when lines were truncated by the validator.
			if l.Depth > 0 && l.Depth-1 < len(stack) {
				stack = stack[:l.Depth-1]
			}
			stack = append(stack, l.Program)
		case KindSuccess, KindFailed:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case KindData:
			if l.Payload == nil {
				continue
			}
			e := Entry{Depth: len(stack), Payload: l.Payload}
			if len(stack) > 0 {
				e.Program = stack[len(stack)-1]
			}
			out = append(out, e)
		}
	}
	return out
}

// Messages returns the text of every "Program log:" line.
func Messages(lines []string) []string {
	var out []string
	for _, raw := range lines {
		if l := Parse(raw); l.Kind == KindLog {
			out = append(out, l.Message)
		}
	}
	return out
}

// ComputeUnits sums the units consumed by top-level invocations. Inner
// invocations are already included in their caller's figure.
func ComputeUnits(lines []string) uint64 {
	var (
		depth int
		total uint64
	)
	for _, raw := range lines {
		l := Parse(raw)
		switch l.Kind {
		case KindInvoke:
			depth = l.Depth
		case KindConsumed:
			if depth == 1 {
				total += l.Units
			}
		case KindSuccess, KindFailed:
			if depth > 0 {
				depth--
			}
		}
	}
	return total
}

// Package llmjson recovers a JSON document embedded in free-form model output.
//
// Model answers are wrapped in code fences, surrounded by prose, carry trailing
// commas or were cut off at the output length ceiling. Extract runs a fixed sequence
// of candidate strategies and, for each candidate, a strict parse followed by two
// repair attempts. The first candidate producing an accepted value wins.
package llmjson

import (
	"encoding/json"
	"io"
	"regexp"
	"strings"
)

const fence = "```"

var (
	fencedBlockRe = regexp.MustCompile("(?s)" + fence + `(?i:json)?\s*(.*?)` + fence)
	fenceMarkerRe = regexp.MustCompile(fence + `(?i:json)?\s*`)
)

// Strategy identifies how a candidate was cut out of the raw text.
type Strategy int

const (
	StrategyFenced Strategy = iota + 1
	StrategyFenceStripped
	StrategyOuterBraces
	StrategyKeyAnchored
	StrategyContentAnchored
)

func (s Strategy) String() string {
	switch s {
	case StrategyFenced:
		return "fenced"
	case StrategyFenceStripped:
		return "fence-stripped"
	case StrategyOuterBraces:
		return "outer-braces"
	case StrategyKeyAnchored:
		return "key-anchored"
	case StrategyContentAnchored:
		return "content-anchored"
	}
	return "unknown"
}

// Repair identifies which fix made a candidate parseable.
type Repair int

const (
	RepairNone Repair = iota
	RepairTrailingCommas
	RepairTruncation
)

func (r Repair) String() string {
	switch r {
	case RepairNone:
		return "none"
	case RepairTrailingCommas:
		return "trailing-commas"
	case RepairTruncation:
		return "truncation"
	}
	return "unknown"
}

// Options bind the pipeline to one kind of document.
type Options struct {
	// AnchorKey is the object key the key-anchored strategy looks for, eg. "plano".
	AnchorKey string
	// ContentKey is the key a content-anchored span must contain, eg. "etapas".
	ContentKey string
	// Accept reports whether a parsed value is the expected document. Nil accepts any JSON object.
	Accept func(v interface{}) bool
}

// Result is a successfully extracted document.
type Result struct {
	// Value is the decoded document; numbers are json.Number.
	Value    interface{}
	JSON     string
	Strategy Strategy
	Repair   Repair
}

// ExtractionFailure is returned when no strategy produced an accepted document.
// Raw is the untouched model output, kept for display or regeneration.
type ExtractionFailure struct {
	Raw string
}

func (e *ExtractionFailure) Error() string {
	return "no structured document found in model output"
}

type strategyFunc func(raw string, opts Options) (string, bool)

var strategies = []struct {
	kind Strategy
	fn   strategyFunc
}{
	{StrategyFenced, fencedCandidate},
	{StrategyFenceStripped, fenceStrippedCandidate},
	{StrategyOuterBraces, outerBracesCandidate},
	{StrategyKeyAnchored, keyAnchoredCandidate},
	{StrategyContentAnchored, contentAnchoredCandidate},
}

// Extract returns the first accepted document found in raw, or an *ExtractionFailure.
func Extract(raw string, opts Options) (Result, error) {
	accept := opts.Accept
	if accept == nil {
		accept = IsObject
	}

	seen := make(map[string]bool, len(strategies))
	for _, s := range strategies {
		candidate, ok := s.fn(raw, opts)
		if !ok {
			continue
		}
		candidate = strings.TrimSpace(candidate)
		if candidate == "" || seen[candidate] {
			continue
		}
		seen[candidate] = true

		if res, ok := attemptParse(candidate, accept); ok {
			res.Strategy = s.kind
			return res, nil
		}
	}
	return Result{}, &ExtractionFailure{Raw: raw}
}

// attemptParse tries the candidate as-is, without trailing commas, then with truncation repair.
func attemptParse(candidate string, accept func(interface{}) bool) (Result, bool) {
	if v, ok := decode(candidate, accept); ok {
		return Result{Value: v, JSON: candidate, Repair: RepairNone}, true
	}

	stripped := StripTrailingCommas(candidate)
	if stripped != candidate {
		if v, ok := decode(stripped, accept); ok {
			return Result{Value: v, JSON: stripped, Repair: RepairTrailingCommas}, true
		}
	}

	repaired := RepairTruncated(stripped)
	if repaired != stripped {
		if v, ok := decode(repaired, accept); ok {
			return Result{Value: v, JSON: repaired, Repair: RepairTruncation}, true
		}
	}
	return Result{}, false
}

// decode is a strict parse: exactly one JSON value, nothing but whitespace after it.
func decode(s string, accept func(interface{}) bool) (interface{}, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	if !accept(v) {
		return nil, false
	}
	return v, true
}

func fencedCandidate(raw string, _ Options) (string, bool) {
	m := fencedBlockRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func fenceStrippedCandidate(raw string, _ Options) (string, bool) {
	text := fenceMarkerRe.ReplaceAllString(raw, "")
	text = strings.ReplaceAll(text, fence, "")
	return text, true
}

func outerBracesCandidate(raw string, _ Options) (string, bool) {
	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first == -1 || last <= first {
		return "", false
	}
	return raw[first : last+1], true
}

func keyAnchoredCandidate(raw string, opts Options) (string, bool) {
	if opts.AnchorKey == "" {
		return "", false
	}
	idx := strings.Index(raw, `"`+opts.AnchorKey+`"`)
	if idx == -1 {
		return "", false
	}
	start := strings.LastIndex(raw[:idx], "{")
	if start == -1 {
		return "", false
	}
	end := matchBrace(raw, start)
	if end == -1 {
		return raw[start:], true // cut off: leave it to truncation repair
	}
	return raw[start : end+1], true
}

func contentAnchoredCandidate(raw string, opts Options) (string, bool) {
	if opts.ContentKey == "" {
		return "", false
	}
	needle := `"` + opts.ContentKey + `"`
	for _, sp := range topLevelSpans(raw) {
		if text := raw[sp.start:sp.end]; strings.Contains(text, needle) {
			return text, true
		}
	}
	return "", false
}

// IsObject accepts any JSON object.
func IsObject(v interface{}) bool {
	_, ok := v.(map[string]interface{})
	return ok
}

// HasKeys returns an Accept func matching objects carrying at least one of keys.
func HasKeys(keys ...string) func(interface{}) bool {
	return func(v interface{}) bool {
		obj, ok := v.(map[string]interface{})
		if !ok {
			return false
		}
		for _, k := range keys {
			if _, ok := obj[k]; ok {
				return true
			}
		}
		return false
	}
}

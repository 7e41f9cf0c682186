// Package extractor turns loosely formatted model replies into structured
// values. Lines or blocks that do not match are dropped, never reported.
package extractor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoTestCases is returned when a reply holds no decodable test case array
var ErrNoTestCases = errors.New("no test cases found in response")

var (
	numberedSuggestion = regexp.MustCompile(`(\d+)(?:\*\*)? - (.+?) - (.+)`)
	plainSuggestion    = regexp.MustCompile(`^(?:[-*]\s+)?(.+?) - (.+)$`)
	fencedBlock        = regexp.MustCompile("(?s)```[\\w+#.-]*[ \\t]*\\r?\\n(.*?)\\r?\\n?```")
)

// ParseSuggestions extracts every suggestion line from text. Lines shaped
// "N - type - fix" carry a line number; "type - fix" lines are kept as
// document-level entries. Bold markers around the line number and type are
// ignored so "**3** - **x** - y" parses. The fix is kept as written.
func ParseSuggestions(text string) []Suggestion {
	var out []Suggestion
	inFence := false

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
			continue
		}
		if line == "" || inFence {
			continue
		}

		if m := numberedSuggestion.FindStringSubmatch(line); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			fix := strings.TrimSpace(m[3])
			if fix == "" {
				continue
			}
			out = append(out, Suggestion{Line: n, Type: unbold(m[2]), Fix: fix})
			continue
		}

		if m := plainSuggestion.FindStringSubmatch(line); m != nil {
			issue, fix := unbold(m[1]), strings.TrimSpace(m[2])
			if issue == "" || fix == "" {
				continue
			}
			out = append(out, Suggestion{Type: issue, Fix: fix})
		}
	}

	return out
}

func unbold(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
}

// StripCodeFence removes the opening and closing fence lines when the reply
// starts and ends with one. A reply with prose around a single fenced block
// yields the block's body. Anything else is returned unchanged.
func StripCodeFence(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > 1 &&
		strings.HasPrefix(strings.TrimSpace(lines[0]), "```") &&
		strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		return strings.Join(lines[1:len(lines)-1], "\n")
	}

	if m := fencedBlock.FindAllStringSubmatch(text, -1); len(m) == 1 {
		return m[0][1]
	}

	return text
}

// ParseTestCases decodes a JSON array of {input, output} objects. Markdown
// fences are removed first; numeric or boolean values are kept as their
// literal text.
func ParseTestCases(text string) ([]TestCase, error) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	cases, err := decodeTestCases(cleaned)
	if err == nil {
		return cases, nil
	}

	// Prose before or after the array
	start, end := strings.Index(cleaned, "["), strings.LastIndex(cleaned, "]")
	if start >= 0 && end > start {
		if cases, innerErr := decodeTestCases(cleaned[start : end+1]); innerErr == nil {
			return cases, nil
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrNoTestCases, err)
}

func decodeTestCases(data string) ([]TestCase, error) {
	var raw []struct {
		Input  json.RawMessage `json:"input"`
		Output json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, err
	}

	cases := make([]TestCase, 0, len(raw))
	for _, r := range raw {
		cases = append(cases, TestCase{Input: rawText(r.Input), Output: rawText(r.Output)})
	}
	return cases, nil
}

// rawText renders a JSON scalar as the text a program would print
func rawText(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}

	var list []json.RawMessage
	if err := json.Unmarshal(v, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, rawText(item))
		}
		return strings.Join(parts, "\n")
	}

	return string(v)
}

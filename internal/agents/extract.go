package agents

import (
	"errors"
	"fmt"
	"strings"

	"stock-agents/internal/jsondoc"
)

var (
	ErrEmptyResponse = errors.New("empty response")
	ErrNoJSON        = errors.New("no JSON found")
	ErrInvalidJSON   = errors.New("invalid JSON")
	ErrRootNotObject = errors.New("root is not an object")
)

const fence = "```"

// ExtractJSON returns the first balanced top-level JSON object in text.
// A leading code fence line and everything from the last fence on are
// dropped first. Braces inside string literals are ignored.
func ExtractJSON(text string) (string, bool) {
	text = stripFence(strings.TrimSpace(text))

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, fence) {
		return text
	}
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	if end := strings.LastIndex(text, fence); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}

// ParseOutput extracts and decodes the JSON object in a model response.
func ParseOutput(text string) (jsondoc.Value, error) {
	if strings.TrimSpace(text) == "" {
		return jsondoc.Value{}, ErrEmptyResponse
	}
	candidate, ok := ExtractJSON(text)
	if !ok {
		return jsondoc.Value{}, ErrNoJSON
	}
	return parseCandidate(candidate)
}

func parseCandidate(candidate string) (jsondoc.Value, error) {
	doc, err := jsondoc.Parse([]byte(candidate))
	if err != nil {
		return jsondoc.Value{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if !doc.IsObject() {
		return jsondoc.Value{}, ErrRootNotObject
	}
	return doc, nil
}

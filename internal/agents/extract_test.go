package agents

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		found bool
	}{
		{
			name:  "fenced json block",
			input: "```json\n{\"agent\":\"stock_news\",\"summary\":\"ok\"}\n```",
			want:  `{"agent":"stock_news","summary":"ok"}`,
			found: true,
		},
		{
			name:  "fence without language tag",
			input: "```\n{\"a\":1}\n```\ntrailing words",
			want:  `{"a":1}`,
			found: true,
		},
		{
			name:  "surrounding prose",
			input: "好的，结果如下：{\"a\":{\"b\":2}} 以上。",
			want:  `{"a":{"b":2}}`,
			found: true,
		},
		{
			name:  "braces inside strings",
			input: `note {"text":"use } and { freely","n":1} end`,
			want:  `{"text":"use } and { freely","n":1}`,
			found: true,
		},
		{
			name:  "escaped quote inside string",
			input: `{"text":"say \"}\" now","ok":true}`,
			want:  `{"text":"say \"}\" now","ok":true}`,
			found: true,
		},
		{
			name:  "escaped backslash before closing quote",
			input: `{"path":"C:\\","x":{}}`,
			want:  `{"path":"C:\\","x":{}}`,
			found: true,
		},
		{
			name:  "first of several objects",
			input: `{"first":1} {"second":2}`,
			want:  `{"first":1}`,
			found: true,
		},
		{name: "no brace", input: "not json"},
		{name: "unbalanced", input: `{"a":{"b":1}`},
		{name: "empty", input: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.input)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOutput(t *testing.T) {
	doc, err := ParseOutput("```json\n{\"agent\":\"stock_news\",\"summary\":\"ok\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"agent":"stock_news","summary":"ok"}`, doc.String())
}

func TestParseOutputErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		msg     string
	}{
		{name: "empty", input: " \n\t", wantErr: ErrEmptyResponse, msg: "empty response"},
		{name: "no json", input: "not json", wantErr: ErrNoJSON, msg: "no JSON found"},
		{name: "bare array", input: "[1,2,3]", wantErr: ErrNoJSON},
		{name: "invalid", input: `{"a": tru}`, wantErr: ErrInvalidJSON},
		{name: "trailing comma", input: `{"a":1,}`, wantErr: ErrInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseOutput(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.True(t, doc.IsNull())
			if tt.msg != "" {
				assert.Equal(t, tt.msg, err.Error())
			}
		})
	}
}

func TestInvalidJSONMessageCarriesParserError(t *testing.T) {
	_, err := ParseOutput(`{"a": tru}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON: ")
	assert.Greater(t, len(err.Error()), len("invalid JSON: "))
}

func TestParseCandidateRejectsNonObjectRoot(t *testing.T) {
	_, err := parseCandidate(`["x"]`)
	assert.ErrorIs(t, err, ErrRootNotObject)
	assert.Equal(t, "root is not an object", err.Error())
}

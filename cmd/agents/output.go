package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/itchyny/gojq"

	"stock-agents/internal/agents"
	"stock-agents/internal/jsondoc"
	"stock-agents/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	agentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Width(22)

	completedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)
)

func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// emitJSON writes v as indented JSON. With a jq expression every result of
// the query is written on its own.
func emitJSON(w io.Writer, v any, expr string) error {
	out, err := marshalIndent(v)
	if err != nil {
		return err
	}
	if strings.TrimSpace(expr) == "" {
		_, err = w.Write(out)
		return err
	}

	query, err := gojq.Parse(expr)
	if err != nil {
		return usageError{fmt.Errorf("invalid jq expression %q: %w", expr, err)}
	}
	doc, err := jsondoc.Parse(out)
	if err != nil {
		return err
	}

	iter := query.Run(doc.Interface())
	for {
		res, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := res.(error); ok {
			return fmt.Errorf("jq error: %w", err)
		}
		b, err := marshalIndent(res)
		if err != nil {
			return fmt.Errorf("marshal jq result: %w", err)
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
}

func renderSummary(w io.Writer, resp *types.OrchestrationResponse) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %s", resp.Symbol, resp.Name)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("run %s at %s", resp.RunID, resp.Timestamp.Format("2006-01-02 15:04:05"))))
	b.WriteString("\n\n")
	for _, r := range resp.Agents {
		b.WriteString(resultLine(r))
		b.WriteString("\n")
	}
	_, err := fmt.Fprintln(w, boxStyle.Render(strings.TrimRight(b.String(), "\n")))
	return err
}

func renderResult(w io.Writer, r types.AgentResult) error {
	_, err := fmt.Fprintln(w, boxStyle.Render(resultLine(r)))
	return err
}

func resultLine(r types.AgentResult) string {
	name := agentStyle.Render(r.AgentName)
	if !r.Success {
		return name + " " + errorStyle.Render("✗ "+r.Error)
	}
	summary := ""
	if r.Data != nil {
		if v, ok := r.Data.Get("summary"); ok {
			summary, _ = v.AsString()
		}
	}
	if summary == "" {
		summary = mutedStyle.Render("(no summary)")
	}
	return name + " " + completedStyle.Render("✓") + " " + summary
}

func renderCatalog(w io.Writer) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Agents"))
	b.WriteString("\n\n")
	for _, k := range agents.All() {
		scope := "quote + messages"
		if k.Definition().FullContext {
			scope = "full context"
		}
		fmt.Fprintf(&b, "%s %s %s\n", agentStyle.Render(k.ID()), k.Name(), mutedStyle.Render("("+scope+")"))
	}
	_, err := fmt.Fprintln(w, boxStyle.Render(strings.TrimRight(b.String(), "\n")))
	return err
}

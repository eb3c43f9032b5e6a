package types

import (
	"time"

	"stock-agents/internal/jsondoc"
)

// AgentResult is the envelope every agent invocation produces. Success
// carries Data; failure carries Error. RawContent may be set in both cases.
type AgentResult struct {
	AgentID    string         `json:"agentId"`
	AgentName  string         `json:"agentName"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	Data       *jsondoc.Value `json:"data,omitempty"`
	RawContent string         `json:"rawContent,omitempty"`
}

func SucceededResult(agentID, agentName string, data jsondoc.Value, raw string) AgentResult {
	return AgentResult{
		AgentID:    agentID,
		AgentName:  agentName,
		Success:    true,
		Data:       &data,
		RawContent: raw,
	}
}

func FailedResult(agentID, agentName, errMsg, raw string) AgentResult {
	if errMsg == "" {
		errMsg = "unknown error"
	}
	return AgentResult{
		AgentID:    agentID,
		AgentName:  agentName,
		Error:      errMsg,
		RawContent: raw,
	}
}

// OrchestrationResponse lists the commander result first, then the sub-agents
// in catalog order.
type OrchestrationResponse struct {
	RunID     string        `json:"runId"`
	Symbol    string        `json:"symbol"`
	Name      string        `json:"name"`
	Timestamp time.Time     `json:"timestamp"`
	Agents    []AgentResult `json:"agents"`
}

// RunRequest is the input of a full orchestration run. Zero values select
// defaults: interval "day", 60 bars, the configured default provider.
type RunRequest struct {
	Symbol      string `json:"symbol"`
	Source      string `json:"source,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Model       string `json:"model,omitempty"`
	Interval    string `json:"interval,omitempty"`
	Count       int    `json:"count,omitempty"`
	UseInternet bool   `json:"useInternet"`
}

// SingleRequest runs one named agent. DependencyResults feed the commander.
type SingleRequest struct {
	RunRequest
	AgentID           string        `json:"agentId"`
	DependencyResults []AgentResult `json:"dependencyResults,omitempty"`
}

// RunOptions are the per-call provider hints an agent run carries.
type RunOptions struct {
	Provider    string
	Model       string
	UseInternet bool
}

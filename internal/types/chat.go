package types

// ChatRequest is one logical language-model call.
type ChatRequest struct {
	Prompt string
	Model  string
	// Temperature is optional; nil selects the provider default.
	Temperature *float64
	UseInternet bool
}

type ChatResult struct {
	Content  string
	Model    string
	Provider string
}

func Float(f float64) *float64 { return &f }

package llm

import (
	"context"
	"net/http"
	"time"
)

// FallbackResponse is returned in place of a backend's answer when its
// call fails. The dispatch never surfaces a backend error to the client.
const FallbackResponse = "Sorry, I encountered an error while processing your request."

// Provider is a single model backend. Complete returns the model's text
// answer for a prompt or an error; callers decide how to degrade.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}

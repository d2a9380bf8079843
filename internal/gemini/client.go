// Package gemini talks to the Google generative AI endpoints: one-shot text
// insight generation and the long-running Veo video protocol.
package gemini

import (
	errs "errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const (
	insightModel = "gemini-3-flash-preview"
	videoModel   = "veo-3.1-fast-generate-preview"
)

var (
	// ErrInvalidKey marks the "Requested entity was not found" failure: the
	// selected API key is expired or wrong. Callers should re-select a key
	// before any retry.
	ErrInvalidKey = errs.New("api key invalid or not selected")
	// ErrTimedOut marks a video job that never reported completion within
	// the configured poll budget.
	ErrTimedOut = errs.New("video job timed out")
)

// KeySelector is the environment capability for picking an API credential.
// Consulted lazily before video submission and again on a credential failure.
type KeySelector interface {
	HasSelectedKey() bool
	OpenSelectKey() error
}

// Client carries the credential and HTTP plumbing shared by both endpoints.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(apiKey string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}
}

// WithBaseURL points the client at a different endpoint root. Test hook.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// entityNotFound matches the failure signature the service emits for an
// expired or invalid key.
func entityNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Requested entity was not found")
}

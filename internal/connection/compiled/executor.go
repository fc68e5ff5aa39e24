package compiled

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
	"github.com/DjordjeVuckovic/qstone/internal/connection"
)

// MultishotRequest asks the executor to run a program Trials times and return
// the listed classical registers.
type MultishotRequest struct {
	Type         string          `json:"type"`
	CompiledQuil string          `json:"compiled-quil"`
	Addresses    map[string]bool `json:"addresses"`
	Trials       int             `json:"trials"`
}

type typedRequest struct {
	Type string `json:"type"`
}

// ExecutorClient speaks the QVM style protocol: every request is a POST to
// the root path tagged with a "type".
type ExecutorClient struct {
	base string
	http *http.Client
}

func NewExecutorClient(base string, hc *http.Client) *ExecutorClient {
	return &ExecutorClient{base: strings.TrimSuffix(base, "/"), http: hc}
}

func (e *ExecutorClient) Version(ctx context.Context, timeout time.Duration) (string, connection.Outcome) {
	out := connection.CallJSON(ctx, e.http, http.MethodPost, e.base+"/", typedRequest{Type: "version"}, timeout, "executor version")
	if !out.OK() {
		return "", out
	}
	// The version comes back as plain text, optionally JSON-quoted.
	v := string(bytes.TrimSpace(out.Body))
	var quoted string
	if json.Unmarshal(out.Body, &quoted) == nil {
		v = quoted
	}
	return v, out
}

// Multishot runs exe and returns the raw response body, a JSON object keyed by
// register name holding one bit array per trial.
func (e *ExecutorClient) Multishot(ctx context.Context, exe, register string, trials int, timeout time.Duration) connection.Outcome {
	req := MultishotRequest{
		Type:         "multishot",
		CompiledQuil: exe,
		Addresses:    map[string]bool{register: true},
		Trials:       trials,
	}
	out := connection.CallJSON(ctx, e.http, http.MethodPost, e.base+"/", req, timeout, "execute")
	if out.OK() && len(bytes.TrimSpace(out.Body)) == 0 {
		return connection.Failure(out.StatusCode, apperr.NewTransport("execute", out.StatusCode, errEmptyBody))
	}
	return out
}

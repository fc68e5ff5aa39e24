package compiled

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
	"github.com/DjordjeVuckovic/qstone/internal/connection"
)

// DialectOpenQASM2 is the only input dialect the compiler is asked to lower.
const DialectOpenQASM2 = "openqasm2"

var ErrRejected = errors.New("compiler rejected program")

type TranslateRequest struct {
	Program string `json:"program"`
	Dialect string `json:"dialect"`
}

type CompileRequest struct {
	Program string `json:"program"`
	Target  string `json:"target"`
	AsQVM   bool   `json:"as_qvm"`
	Shots   int    `json:"shots"`
}

type programResponse struct {
	Program string `json:"program"`
}

type versionResponse struct {
	Version string `json:"version"`
}

// CompilerClient talks to the compilation service:
//
//	GET  /version
//	POST /translate  OpenQASM 2 to native program text
//	POST /compile    native program to an executable for a target
type CompilerClient struct {
	base string
	http *http.Client
}

func NewCompilerClient(base string, hc *http.Client) *CompilerClient {
	return &CompilerClient{base: base, http: hc}
}

func (c *CompilerClient) Version(ctx context.Context, timeout time.Duration) (string, connection.Outcome) {
	out := connection.CallJSON(ctx, c.http, http.MethodGet, c.base+"/version", nil, timeout, "compiler version")
	if !out.OK() {
		return "", out
	}
	var v versionResponse
	if err := json.Unmarshal(out.Body, &v); err != nil {
		return "", connection.Failure(out.StatusCode, apperr.NewTransport("compiler version", out.StatusCode, err))
	}
	return v.Version, out
}

// Translate lowers an OpenQASM 2 program. A 400 or 422 from the service means
// the program is not valid input and is reported as an error wrapping
// ErrRejected; anything else comes back as the Outcome.
func (c *CompilerClient) Translate(ctx context.Context, source string, timeout time.Duration) (string, connection.Outcome, error) {
	out := connection.CallJSON(ctx, c.http, http.MethodPost, c.base+"/translate",
		TranslateRequest{Program: source, Dialect: DialectOpenQASM2}, timeout, "translate")
	if rejected(out) {
		return "", out, fmt.Errorf("%w: %v", ErrRejected, out.Err)
	}
	if !out.OK() {
		return "", out, nil
	}
	native, err := decodeProgram(out.Body)
	if err != nil {
		return "", connection.Failure(out.StatusCode, apperr.NewTransport("translate", out.StatusCode, err)), nil
	}
	return native, out, nil
}

func (c *CompilerClient) Compile(ctx context.Context, req CompileRequest, timeout time.Duration) (string, connection.Outcome) {
	out := connection.CallJSON(ctx, c.http, http.MethodPost, c.base+"/compile", req, timeout, "compile")
	if !out.OK() {
		return "", out
	}
	exe, err := decodeProgram(out.Body)
	if err != nil {
		return "", connection.Failure(out.StatusCode, apperr.NewTransport("compile", out.StatusCode, err))
	}
	return exe, out
}

func rejected(out connection.Outcome) bool {
	return out.StatusCode == http.StatusBadRequest || out.StatusCode == http.StatusUnprocessableEntity
}

func decodeProgram(body []byte) (string, error) {
	var p programResponse
	if err := json.Unmarshal(body, &p); err != nil {
		return "", fmt.Errorf("decode program: %w", err)
	}
	if p.Program == "" {
		return "", errors.New("decode program: empty program")
	}
	return p.Program, nil
}

package compiled

import (
	"context"
	"net/http"
	"strings"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
	"github.com/DjordjeVuckovic/qstone/internal/domain"
)

// Session binds a compiler, an executor and a target device.
type Session struct {
	Compiler *CompilerClient
	Executor *ExecutorClient
	Target   string
	// AsVirtual is set when the executor is an emulator.
	AsVirtual bool

	CompilerVersion string
	ExecutorVersion string
}

// AsVirtual reports whether endpoint runs on a virtual machine: any mode other
// than REAL, or a target named like a QVM.
func AsVirtual(endpoint domain.EndpointConfig) bool {
	return endpoint.Mode.Virtual() || strings.Contains(strings.ToLower(endpoint.Target), "qvm")
}

// Dial performs the two-step handshake, compiler first. A missing address or
// a failed handshake is a *apperr.ConfigError.
func Dial(ctx context.Context, hc *http.Client, endpoint domain.EndpointConfig) (*Session, error) {
	compilerURL := endpoint.CompilerURL()
	if compilerURL == "" {
		return nil, apperr.NewConfig("compiled endpoint has no compiler host")
	}
	executorURL := endpoint.BaseURL()
	if executorURL == "" {
		return nil, apperr.NewConfig("compiled endpoint has no executor host")
	}

	timeout := endpoint.Timeouts.WithDefaults().HTTP
	s := &Session{
		Compiler:  NewCompilerClient(compilerURL, hc),
		Executor:  NewExecutorClient(executorURL, hc),
		Target:    endpoint.Target,
		AsVirtual: AsVirtual(endpoint),
	}

	v, out := s.Compiler.Version(ctx, timeout)
	if !out.OK() {
		return nil, apperr.NewConfigWrap("compiler handshake with "+compilerURL, out.Err)
	}
	s.CompilerVersion = v

	v, out = s.Executor.Version(ctx, timeout)
	if !out.OK() {
		return nil, apperr.NewConfigWrap("executor handshake with "+executorURL, out.Err)
	}
	s.ExecutorVersion = v

	return s, nil
}

// origin names the device results come from.
func origin(endpoint domain.EndpointConfig) string {
	if endpoint.Target != "" {
		return endpoint.Target
	}
	return endpoint.Address()
}

package connector

import (
	"fmt"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
	"github.com/DjordjeVuckovic/qstone/internal/connection"
	"github.com/DjordjeVuckovic/qstone/internal/connection/compiled"
	"github.com/DjordjeVuckovic/qstone/internal/connection/httpconn"
	"github.com/DjordjeVuckovic/qstone/internal/connection/local"
	"github.com/DjordjeVuckovic/qstone/internal/connection/rpc"
	"github.com/DjordjeVuckovic/qstone/internal/domain"
)

// NewConnection builds the adapter for kind.
func NewConnection(kind domain.ProtocolKind, opts ...connection.Option) (connection.Connection, error) {
	switch kind {
	case domain.ProtocolRPC:
		return rpc.New(opts...), nil
	case domain.ProtocolHTTP:
		return httpconn.New(opts...), nil
	case domain.ProtocolVendorCompiled:
		return compiled.New(opts...), nil
	case domain.ProtocolLocalFallback:
		return local.New(opts...), nil
	default:
		return nil, apperr.NewConfig(fmt.Sprintf("unsupported protocol %q, expected one of %v", kind,
			[]domain.ProtocolKind{domain.ProtocolRPC, domain.ProtocolHTTP, domain.ProtocolVendorCompiled, domain.ProtocolLocalFallback}))
	}
}

// validateEndpoint checks what kind needs to reach its backend.
func validateEndpoint(kind domain.ProtocolKind, e domain.EndpointConfig) error {
	if kind == domain.ProtocolLocalFallback {
		return nil
	}
	if e.Host == "" {
		return apperr.NewConfig(fmt.Sprintf("%s connector requires a QPU host", kind))
	}
	if err := validatePort(e.Port); err != nil {
		return apperr.NewConfigWrap("QPU port", err)
	}
	if kind == domain.ProtocolVendorCompiled {
		if e.CompilerHost == "" {
			return apperr.NewConfig(fmt.Sprintf("%s connector requires a compiler host", kind))
		}
		if err := validatePort(e.CompilerPort); err != nil {
			return apperr.NewConfigWrap("compiler port", err)
		}
	}
	return nil
}

// validatePort accepts 0 as "no port".
func validatePort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("port %d out of range", port)
	}
	return nil
}

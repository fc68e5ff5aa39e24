package domain

import (
	"fmt"
	"strings"
)

// ProtocolKind selects the backend adapter a connector owns.
type ProtocolKind string

const (
	ProtocolRPC            ProtocolKind = "GRPC"
	ProtocolHTTP           ProtocolKind = "HTTPS"
	ProtocolVendorCompiled ProtocolKind = "RIGETTI"
	ProtocolLocalFallback  ProtocolKind = "NO_LINK"
)

var SupportedProtocols = map[ProtocolKind]bool{
	ProtocolRPC:            true,
	ProtocolHTTP:           true,
	ProtocolVendorCompiled: true,
	ProtocolLocalFallback:  true,
}

var protocolAliases = map[string]ProtocolKind{
	"GRPC":            ProtocolRPC,
	"RPC":             ProtocolRPC,
	"HTTP":            ProtocolHTTP,
	"HTTPS":           ProtocolHTTP,
	"RIGETTI":         ProtocolVendorCompiled,
	"VENDOR_COMPILED": ProtocolVendorCompiled,
	"NO_LINK":         ProtocolLocalFallback,
	"LOCAL_FALLBACK":  ProtocolLocalFallback,
}

// ParseProtocol accepts both the configuration tags (GRPC, HTTPS, RIGETTI,
// NO_LINK) and the descriptive names (RPC, HTTP, VENDOR_COMPILED, LOCAL_FALLBACK).
func ParseProtocol(s string) (ProtocolKind, error) {
	p, ok := protocolAliases[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown protocol %q", s)
	}
	return p, nil
}

func (p ProtocolKind) String() string {
	return string(p)
}

// ExecutionMode tells a backend whether to target real hardware.
type ExecutionMode string

const (
	ModeReal     ExecutionMode = "REAL"
	ModeEmulated ExecutionMode = "EMULATED"
	ModeRandom   ExecutionMode = "RANDOM"
)

func ParseMode(s string) (ExecutionMode, error) {
	m := ExecutionMode(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case ModeReal, ModeEmulated, ModeRandom:
		return m, nil
	default:
		return "", fmt.Errorf("unknown execution mode %q, expected one of %v", s, []ExecutionMode{ModeReal, ModeEmulated, ModeRandom})
	}
}

// Virtual reports whether the mode runs on an emulator rather than a device.
func (m ExecutionMode) Virtual() bool {
	return m != ModeReal
}

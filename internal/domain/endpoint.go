package domain

import (
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultHTTPTimeout  = 10 * time.Second
	DefaultLockTimeout  = 200 * time.Second
	DefaultLockInterval = 100 * time.Millisecond
	DefaultRunTimeout   = 20 * time.Second
)

// Timeouts bounds every blocking step of a run.
type Timeouts struct {
	// HTTP bounds result retrieval and every request except submission.
	HTTP time.Duration
	// Submit bounds the submission request.
	Submit time.Duration
	// Lock is the total active-wait budget for the resource lock.
	Lock time.Duration
	// LockInterval is the fixed pause between two acquisition attempts.
	LockInterval time.Duration
	// Run bounds a compiled program's execution on the device.
	Run time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		HTTP:         DefaultHTTPTimeout,
		Submit:       DefaultHTTPTimeout,
		Lock:         DefaultLockTimeout,
		LockInterval: DefaultLockInterval,
		Run:          DefaultRunTimeout,
	}
}

// WithDefaults fills zero values with their defaults.
func (t Timeouts) WithDefaults() Timeouts {
	d := DefaultTimeouts()
	if t.HTTP <= 0 {
		t.HTTP = d.HTTP
	}
	if t.Submit <= 0 {
		t.Submit = d.Submit
	}
	if t.Lock <= 0 {
		t.Lock = d.Lock
	}
	if t.LockInterval <= 0 {
		t.LockInterval = d.LockInterval
	}
	if t.Run <= 0 {
		t.Run = d.Run
	}
	return t
}

// EndpointConfig holds everything needed to reach a backend. Adapters get it
// by value and never mutate it.
type EndpointConfig struct {
	Host string
	Port int

	// Compiler service, vendor-compiled backends only.
	CompilerHost string
	CompilerPort int

	Target string
	Mode   ExecutionMode

	Timeouts Timeouts
}

// Address joins host and port, leaving the port out when unset.
func (e EndpointConfig) Address() string {
	return joinHostPort(e.Host, e.Port)
}

func (e EndpointConfig) CompilerAddress() string {
	return joinHostPort(e.CompilerHost, e.CompilerPort)
}

// BaseURL is Address with an http:// scheme prepended when none is given.
func (e EndpointConfig) BaseURL() string {
	return withScheme(e.Address())
}

func (e EndpointConfig) CompilerURL() string {
	return withScheme(e.CompilerAddress())
}

func joinHostPort(host string, port int) string {
	if port == 0 {
		return host
	}
	if strings.Contains(host, "://") {
		return host + ":" + strconv.Itoa(port)
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func withScheme(addr string) string {
	if addr == "" || strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	return "http://" + addr
}

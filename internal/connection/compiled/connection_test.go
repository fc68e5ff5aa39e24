package compiled

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
	"github.com/DjordjeVuckovic/qstone/internal/connection"
	"github.com/DjordjeVuckovic/qstone/internal/domain"
)

const bell = `OPENQASM 2.0;
include "qelib1.inc";
qreg q[2];
creg c[2];
h q[0];
cx q[0], q[1];
measure q -> c;
`

// stack fakes a compiler service and a QVM style executor.
type stack struct {
	translateStatus int
	compileStatus   int
	executeStatus   int
	executeBody     string

	mu        sync.Mutex
	compiles  []CompileRequest
	multishot []MultishotRequest
}

func (s *stack) compiler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version": "1.26.0"}`))
	})
	mux.HandleFunc("POST /translate", func(w http.ResponseWriter, r *http.Request) {
		var req TranslateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if s.translateStatus != 0 {
			w.WriteHeader(s.translateStatus)
			_, _ = w.Write([]byte(`{"error": "unexpected token"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(programResponse{Program: "DECLARE c BIT[2]\nH 0\nCNOT 0 1\n"})
	})
	mux.HandleFunc("POST /compile", func(w http.ResponseWriter, r *http.Request) {
		var req CompileRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		s.compiles = append(s.compiles, req)
		s.mu.Unlock()
		if s.compileStatus != 0 {
			w.WriteHeader(s.compileStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(programResponse{Program: "EXE " + req.Target})
	})
	return mux
}

func (s *stack) executor() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req MultishotRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.Type {
		case "version":
			_, _ = w.Write([]byte("1.17.2 [cf3f91f]"))
		case "multishot":
			s.mu.Lock()
			s.multishot = append(s.multishot, req)
			s.mu.Unlock()
			if s.executeStatus != 0 {
				w.WriteHeader(s.executeStatus)
				return
			}
			if s.executeBody != "" {
				_, _ = w.Write([]byte(s.executeBody))
				return
			}
			shots := make([][]int, req.Trials)
			for i := range shots {
				shots[i] = []int{i % 2, i % 2}
			}
			out := map[string][][]int{}
			for reg := range req.Addresses {
				out[reg] = shots
			}
			_ = json.NewEncoder(w).Encode(out)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
}

func hostPort(t *testing.T, raw string) (string, int) {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	host, p, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)
	return host, port
}

func start(t *testing.T, s *stack, mode domain.ExecutionMode, target string) domain.EndpointConfig {
	t.Helper()
	comp := httptest.NewServer(s.compiler())
	t.Cleanup(comp.Close)
	exec := httptest.NewServer(s.executor())
	t.Cleanup(exec.Close)

	host, port := hostPort(t, exec.URL)
	chost, cport := hostPort(t, comp.URL)
	return domain.EndpointConfig{
		Host:         host,
		Port:         port,
		CompilerHost: chost,
		CompilerPort: cport,
		Target:       target,
		Mode:         mode,
		Timeouts: domain.Timeouts{
			HTTP:         time.Second,
			Lock:         time.Second,
			LockInterval: 10 * time.Millisecond,
			Run:          2 * time.Second,
		},
	}
}

func writeCircuit(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "circuit.qasm")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func newLogged() (*Connection, *bytes.Buffer) {
	var logs bytes.Buffer
	return New(connection.WithLogger(slog.New(slog.NewTextHandler(&logs, nil)))), &logs
}

func TestConnection_Run(t *testing.T) {
	s := &stack{}
	endpoint := start(t, s, domain.ModeEmulated, "2q-qvm")
	lockPath := filepath.Join(t.TempDir(), "qpu.lock")

	res, err := New().Run(context.Background(), connection.Request{
		CircuitPath: writeCircuit(t, bell),
		Reps:        10,
		Endpoint:    endpoint,
		LockPath:    lockPath,
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, res.Mapping)
	assert.Len(t, res.Measurements, 10)
	assert.Equal(t, map[string]int{"00": 5, "11": 5}, res.Counts)
	assert.Equal(t, domain.ModeTagSimulated, res.Mode)
	assert.Equal(t, "2q-qvm", res.Origin)
	assert.NotZero(t, res.Timestamp)
	assert.NoFileExists(t, lockPath)

	require.Len(t, s.compiles, 1)
	assert.True(t, s.compiles[0].AsQVM)
	assert.Equal(t, 10, s.compiles[0].Shots)
	require.Len(t, s.multishot, 1)
	assert.Equal(t, "EXE 2q-qvm", s.multishot[0].CompiledQuil)
	assert.Equal(t, map[string]bool{"c": true}, s.multishot[0].Addresses)
}

func TestConnection_Run_Provenance(t *testing.T) {
	tests := []struct {
		name     string
		mode     domain.ExecutionMode
		target   string
		wantMode string
		wantQVM  bool
	}{
		{"real device", domain.ModeReal, "Ankaa-3", domain.ModeTagReal, false},
		{"qvm target on real mode", domain.ModeReal, "9q-square-qvm", domain.ModeTagSimulated, true},
		{"random mode is virtual", domain.ModeRandom, "Ankaa-3", domain.ModeTagSimulated, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &stack{}
			endpoint := start(t, s, tt.mode, tt.target)
			res, err := New().Run(context.Background(), connection.Request{CircuitPath: writeCircuit(t, bell), Reps: 2, Endpoint: endpoint})
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, res.Mode)
			assert.Equal(t, tt.target, res.Origin)
			assert.Equal(t, tt.wantQVM, s.compiles[0].AsQVM)
		})
	}
}

func TestConnection_Run_ReadoutRegister(t *testing.T) {
	s := &stack{}
	endpoint := start(t, s, domain.ModeEmulated, "")
	src := strings.Replace(bell, "creg c[2];", "creg ro[2];", 1)

	res, err := New().Run(context.Background(), connection.Request{CircuitPath: writeCircuit(t, src), Reps: 4, Endpoint: endpoint})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"ro": true}, s.multishot[0].Addresses)
	assert.Equal(t, endpoint.Address(), res.Origin, "origin falls back to the executor address")
}

func TestConnection_Run_Failures(t *testing.T) {
	tests := []struct {
		name    string
		stack   *stack
		wantLog string
	}{
		{"compile fails", &stack{compileStatus: http.StatusInternalServerError}, "request failed"},
		{"execute fails", &stack{executeStatus: http.StatusServiceUnavailable}, "request failed"},
		{"register missing from response", &stack{executeBody: `{"other": [[1]]}`}, "failed to interpret backend response"},
		{"body is not a register map", &stack{executeBody: `[[0, 1]]`}, "failed to interpret backend response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint := start(t, tt.stack, domain.ModeEmulated, "2q-qvm")
			lockPath := filepath.Join(t.TempDir(), "qpu.lock")
			conn, logs := newLogged()

			res, err := conn.Run(context.Background(), connection.Request{
				CircuitPath: writeCircuit(t, bell),
				Reps:        4,
				Endpoint:    endpoint,
				LockPath:    lockPath,
			})
			require.NoError(t, err)
			assert.True(t, res.IsEmpty())
			assert.NoFileExists(t, lockPath)
			assert.Contains(t, logs.String(), tt.wantLog)
		})
	}
}

func TestConnection_Run_TranslationRejected(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnprocessableEntity} {
		t.Run(strconv.Itoa(status), func(t *testing.T) {
			s := &stack{translateStatus: status}
			endpoint := start(t, s, domain.ModeEmulated, "2q-qvm")

			_, err := New().Run(context.Background(), connection.Request{CircuitPath: writeCircuit(t, bell), Reps: 1, Endpoint: endpoint})
			require.Error(t, err)
			assert.True(t, apperr.IsTranslation(err))
			assert.ErrorIs(t, err, ErrRejected)
			assert.Empty(t, s.compiles)
		})
	}
}

func TestConnection_Run_LockContention(t *testing.T) {
	s := &stack{}
	endpoint := start(t, s, domain.ModeEmulated, "2q-qvm")
	endpoint.Timeouts.Lock = 300 * time.Millisecond

	lockPath := filepath.Join(t.TempDir(), "qpu.lock")
	require.NoError(t, os.WriteFile(lockPath, nil, 0o644))
	conn, logs := newLogged()

	res, err := conn.Run(context.Background(), connection.Request{
		CircuitPath: writeCircuit(t, bell),
		Reps:        4,
		Endpoint:    endpoint,
		LockPath:    lockPath,
	})
	require.NoError(t, err)
	assert.True(t, res.IsEmpty())
	assert.Contains(t, logs.String(), "timeout waiting for lock")
	assert.FileExists(t, lockPath)
	assert.Empty(t, s.compiles)
}

func TestDial(t *testing.T) {
	t.Run("handshake", func(t *testing.T) {
		endpoint := start(t, &stack{}, domain.ModeReal, "Ankaa-3")
		s, err := Dial(context.Background(), http.DefaultClient, endpoint)
		require.NoError(t, err)
		assert.Equal(t, "1.26.0", s.CompilerVersion)
		assert.Equal(t, "1.17.2 [cf3f91f]", s.ExecutorVersion)
		assert.False(t, s.AsVirtual)
		assert.Equal(t, "Ankaa-3", s.Target)
	})

	t.Run("missing compiler host", func(t *testing.T) {
		_, err := Dial(context.Background(), http.DefaultClient, domain.EndpointConfig{Host: "localhost", Port: 5000})
		assert.True(t, apperr.IsConfig(err))
	})

	t.Run("compiler unreachable", func(t *testing.T) {
		endpoint := start(t, &stack{}, domain.ModeReal, "Ankaa-3")
		lis, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		endpoint.CompilerPort = lis.Addr().(*net.TCPAddr).Port
		require.NoError(t, lis.Close())

		_, err = New().Run(context.Background(), connection.Request{CircuitPath: writeCircuit(t, bell), Reps: 1, Endpoint: endpoint})
		assert.True(t, apperr.IsConfig(err))
	})
}

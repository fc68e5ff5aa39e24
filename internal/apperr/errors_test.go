package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
)

func TestNewValidation(t *testing.T) {
	err := apperr.NewValidation("repetitions must not be negative")

	if err.Error() != "repetitions must not be negative" {
		t.Errorf("expected 'repetitions must not be negative', got %q", err.Error())
	}
	if err.Unwrap() != nil {
		t.Errorf("expected nil unwrap, got %v", err.Unwrap())
	}
}

func TestNewValidationWrap(t *testing.T) {
	inner := fmt.Errorf("strconv.Atoi: invalid syntax")
	err := apperr.NewValidationWrap("pkt_id must be a number", inner)

	if err.Error() != "pkt_id must be a number: strconv.Atoi: invalid syntax" {
		t.Errorf("expected 'pkt_id must be a number: strconv.Atoi: invalid syntax', got %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("expected Unwrap to return inner error")
	}
}

func TestValidationError_SurvivesFmtWrapping(t *testing.T) {
	reps := apperr.NewValidation("reps must be positive")

	wrapped := fmt.Errorf("execute: %w", reps)
	doubleWrapped := fmt.Errorf("node: %w", wrapped)

	var ve *apperr.ValidationError
	if !errors.As(doubleWrapped, &ve) {
		t.Fatal("errors.As should find ValidationError through double wrapping")
	}
	if ve.Message != "reps must be positive" {
		t.Errorf("expected 'reps must be positive', got %q", ve.Message)
	}
}

func TestValidationError_NotFoundForPlainErrors(t *testing.T) {
	plain := fmt.Errorf("connection refused")
	wrapped := fmt.Errorf("submit: %w", plain)

	var ve *apperr.ValidationError
	if errors.As(wrapped, &ve) {
		t.Fatal("errors.As should NOT find ValidationError in plain error chain")
	}
}

func TestConfigError_Chain(t *testing.T) {
	inner := fmt.Errorf("permission denied")
	err := fmt.Errorf("acquire lock: %w", apperr.NewConfigWrap("lock path not writable", inner))

	if !apperr.IsConfig(err) {
		t.Fatal("expected ConfigError in chain")
	}
	if !errors.Is(err, inner) {
		t.Error("expected inner error to be reachable")
	}
	if apperr.IsTranslation(err) || apperr.IsTransport(err) {
		t.Error("ConfigError must not match other error kinds")
	}
}

func TestTranslationError_Message(t *testing.T) {
	err := apperr.NewTranslation("/tmp/c.qasm", fmt.Errorf("missing OPENQASM header"))

	if err.Error() != `translate circuit "/tmp/c.qasm": missing OPENQASM header` {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !apperr.IsTranslation(fmt.Errorf("prepare: %w", err)) {
		t.Error("expected TranslationError through wrapping")
	}
}

func TestTransportError_Message(t *testing.T) {
	withStatus := apperr.NewTransport("submit", 503, fmt.Errorf("unavailable"))
	if withStatus.Error() != "submit: status 503: unavailable" {
		t.Errorf("unexpected message %q", withStatus.Error())
	}

	noStatus := apperr.NewTransport("rpc", 0, fmt.Errorf("connection refused"))
	if noStatus.Error() != "rpc: connection refused" {
		t.Errorf("unexpected message %q", noStatus.Error())
	}
}

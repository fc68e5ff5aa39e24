package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
)

// CallJSON sends payload as a JSON body and reads the whole response within
// timeout. Anything but 200 is a failed Outcome whose Err is a
// *apperr.TransportError naming step.
func CallJSON(ctx context.Context, hc *http.Client, method, url string, payload any, timeout time.Duration, step string) Outcome {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Failure(0, apperr.NewTransport(step, 0, fmt.Errorf("marshal request: %w", err)))
		}
		body = bytes.NewReader(data)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	request, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return Failure(0, apperr.NewTransport(step, 0, err))
	}
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")

	resp, err := hc.Do(request)
	if err != nil {
		return Failure(0, apperr.NewTransport(step, 0, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Failure(resp.StatusCode, apperr.NewTransport(step, resp.StatusCode, fmt.Errorf("read body: %w", err)))
	}

	if resp.StatusCode != http.StatusOK {
		return Failure(resp.StatusCode, apperr.NewTransport(step, resp.StatusCode, fmt.Errorf("unexpected status code, body: %s", bytes.TrimSpace(respBody))))
	}
	return Success(resp.StatusCode, respBody)
}

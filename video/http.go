package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/BaSui01/vidflow/internal/tlsutil"
	"github.com/BaSui01/vidflow/types"
)

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 512

// doJSON sends a JSON request and decodes a JSON response into out.
// Transport failures and HTTP errors are mapped to retryable types.Error
// values; ctx cancellation is returned unwrapped so it is never retried.
func doJSON(ctx context.Context, client *http.Client, provider, method, url string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", provider, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return transportError(ctx, provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return types.Upstream(provider, resp.StatusCode,
			fmt.Sprintf("%s error: status=%d body=%s", provider, resp.StatusCode, bytes.TrimSpace(errBody)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewError(types.ErrUpstreamError, fmt.Sprintf("failed to decode %s response", provider)).
			WithCause(err).
			WithProvider(provider).
			WithRetryable(true)
	}
	return nil
}

func transportError(ctx context.Context, provider string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	code := types.ErrUpstreamError
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		code = types.ErrUpstreamTimeout
	}
	return types.NewError(code, fmt.Sprintf("%s request failed", provider)).
		WithCause(err).
		WithProvider(provider).
		WithRetryable(true)
}

// pollUntil calls check every interval until it reports done or ctx ends.
// A done check returns its error as the outcome. Errors from checks that are
// not done count as poll failures; maxErrors consecutive ones end the wait.
func pollUntil(ctx context.Context, interval time.Duration, maxErrors int, check func(ctx context.Context) (bool, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			done, err := check(ctx)
			if done {
				return err
			}
			if err == nil {
				failures = 0
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			failures++
			if failures >= maxErrors {
				return err
			}
		}
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return tlsutil.SecureHTTPClient(timeout)
}

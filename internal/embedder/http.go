package embedder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/docqa/docqa-go/internal/backoff"
)

// transientStatusError marks an HTTP status worth retrying (429 and 5xx).
type transientStatusError struct {
	status int
}

func (e *transientStatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.status)
}

// retryableRequestError reports whether an embed request failure is worth
// retrying: transport errors and transient HTTP statuses are, everything
// else (auth failures, bad requests, malformed responses) is permanent.
func retryableRequestError(err error) bool {
	var tse *transientStatusError
	if errors.As(err, &tse) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// http.Client.Do wraps every transport-level failure in *url.Error.
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// postJSON sends payload to url with the given headers, retrying transport
// errors and transient statuses with exponential backoff. It returns the
// final status code and response body; non-2xx terminal statuses are NOT
// errors — callers decode backend-specific error messages from the body.
func postJSON(ctx context.Context, client *http.Client, url string, header http.Header, payload []byte) (int, []byte, error) {
	var status int
	var body []byte

	err := backoff.Retry(ctx, backoff.DefaultAttempts, backoff.DefaultBaseDelay, retryableRequestError, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Set(k, v)
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		status = resp.StatusCode

		if status == http.StatusTooManyRequests || status >= 500 {
			return &transientStatusError{status: status}
		}
		return nil
	})

	if err != nil {
		var tse *transientStatusError
		if errors.As(err, &tse) {
			// Retries exhausted on a transient status — surface it as the
			// final response so the caller can decode the error body.
			return tse.status, body, nil
		}
		return 0, nil, err
	}
	return status, body, nil
}

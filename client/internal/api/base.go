package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/taskdesk/taskdesk/client/internal/types"
	"github.com/taskdesk/taskdesk/internal/errors"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 64 << 10

// send performs one API call: it validates and encodes in, issues the request,
// classifies non-2xx responses and decodes and validates out. in and out may
// be nil.
func send(ctx context.Context, httpClient types.HTTPClient, method, url, op string, in any, out types.Validator) (err error) {
	defer func() { operationsTotal.WithLabelValues(op, outcome(err)).Inc() }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if v, ok := in.(types.Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	// Note: Authorization header will be added by transport layer

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.NewNetworkError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.ClassifyHTTPError(op, resp.StatusCode, string(b))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewMalformedResponseError(op, err)
	}
	if err := out.Validate(); err != nil {
		return errors.NewMalformedResponseError(op, err)
	}
	return nil
}

// endpoint joins baseURL and path, escaping each id segment.
func endpoint(baseURL, path string, ids ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	b.WriteString(path)
	for _, id := range ids {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(id))
	}
	return b.String()
}

// requireID rejects empty ids before any network call.
func requireID(op, what, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.NewValidationError(op, what+" is required")
	}
	return nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return errors.KindOf(err).String()
}

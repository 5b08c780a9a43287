package routing

import (
	"collection-route-service/internal/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// providerError is a non-2xx answer from OSRM. Code and Message come from
// the JSON error body when the server sent one.
type providerError struct {
	Status  int
	Code    string
	Message string
	Body    string
}

// Codes OSRM uses for requests that will fail the same way every time.
var permanentCodes = map[string]bool{
	"NoRoute":        true,
	"NoSegment":      true,
	"NoTable":        true,
	"InvalidQuery":   true,
	"InvalidValue":   true,
	"InvalidOptions": true,
	"InvalidUrl":     true,
	"InvalidService": true,
	"InvalidVersion": true,
	"TooBig":         true,
	"NotImplemented": true,
}

// retryable reports whether another attempt could succeed. A known OSRM
// code decides on its own; otherwise 429 and 5xx are transient.
func (e *providerError) retryable() bool {
	if permanentCodes[e.Code] {
		return false
	}
	if e.Code == "TooManyRequests" {
		return true
	}
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

func (e *providerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("status %d: %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

func newProviderError(status int, body []byte) *providerError {
	pe := &providerError{Status: status, Body: strings.TrimSpace(string(body))}
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		pe.Code = payload.Code
		pe.Message = payload.Message
	}
	return pe
}

// coordinatePath renders waypoints as OSRM expects them: "lng,lat;lng,lat".
func coordinatePath(coords []domain.LatLng) string {
	parts := make([]string, 0, len(coords))
	for _, c := range coords {
		parts = append(parts,
			strconv.FormatFloat(c.Lng, 'f', -1, 64)+","+strconv.FormatFloat(c.Lat, 'f', -1, 64))
	}
	return strings.Join(parts, ";")
}

func (o *OSRMClient) newRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if o.userAgent != "" {
		req.Header.Set("User-Agent", o.userAgent)
	}

	return req, nil
}

func (o *OSRMClient) do(req *http.Request) (*http.Response, error) {
	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, newProviderError(resp.StatusCode, b)
	}
	return resp, nil
}

// doWithRetry retries transient failures with exponential backoff while
// respecting context cancellation. Network errors are transient; provider
// answers are judged by providerError.retryable.
func (o *OSRMClient) doWithRetry(
	ctx context.Context,
	makeReq func() (*http.Request, error),
) (*http.Response, error) {
	backoff := o.backoff

	var lastErr error

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := o.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var pe *providerError
		var netErr net.Error
		switch {
		case errors.As(err, &pe):
			retry = pe.retryable()
		case errors.As(err, &netErr):
			retry = ctx.Err() == nil
		}

		if !retry || attempt == o.maxAttempts {
			return nil, lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}

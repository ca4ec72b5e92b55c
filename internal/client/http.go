package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/util"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
)

var validate = validator.New()

// ErrInvalidPayload wraps schema violations in requests or responses
var ErrInvalidPayload = errors.New("invalid payload")

// StatusError is returned for non-2xx upstream responses
type StatusError struct {
	Upstream   string
	Operation  string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Upstream, e.Operation, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s %s: status %d", e.Upstream, e.Operation, e.StatusCode)
}

// IsStatus reports whether err is an upstream response with the given status
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// transport is the JSON plumbing shared by every upstream client
type transport struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

func newTransport(name, baseURL string, timeout time.Duration) transport {
	return transport{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type call struct {
	operation string
	method    string
	path      string
	token     string
	body      interface{}
	out       interface{}
}

func (t transport) do(ctx context.Context, c call) (err error) {
	ctx, span := util.StartSpan(ctx, "client."+t.name+"."+c.operation,
		attribute.String("http.method", c.method),
		attribute.String("upstream", t.name))
	defer span.End()

	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			util.RecordError(span, err)
		}
		util.UpstreamRequestDuration.WithLabelValues(t.name, c.operation, outcome).Observe(time.Since(start).Seconds())
	}()

	var body io.Reader
	if c.body != nil {
		if err := validate.Struct(c.body); err != nil {
			return fmt.Errorf("%w: %s request: %v", ErrInvalidPayload, c.operation, err)
		}
		raw, err := json.Marshal(c.body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", c.operation, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, t.baseURL+c.path, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", c.operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s request failed: %w", t.name, c.operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", c.operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Upstream:   t.name,
			Operation:  c.operation,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(raw),
		}
	}

	if c.out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, c.out); err != nil {
		return fmt.Errorf("%w: %s response: %v", ErrInvalidPayload, c.operation, err)
	}
	if err := validateResponse(c.out); err != nil {
		return fmt.Errorf("%w: %s response: %v", ErrInvalidPayload, c.operation, err)
	}
	return nil
}

// validateResponse validates structs and slices of structs
func validateResponse(out interface{}) error {
	switch v := out.(type) {
	case *[]CatalogProduct:
		for i := range *v {
			if err := validate.Struct((*v)[i]); err != nil {
				return err
			}
		}
		return nil
	case *[]UserRecord:
		for i := range *v {
			if err := validate.Struct((*v)[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		return validate.Struct(out)
	}
}

// errorDetail extracts the FastAPI style {"detail": ...} message
func errorDetail(raw []byte) string {
	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		text := strings.TrimSpace(string(raw))
		if len(text) > 200 {
			text = text[:200]
		}
		return text
	}
	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err == nil && detail != "" {
		return detail
	}
	if len(body.Detail) > 0 {
		return string(body.Detail)
	}
	return body.Message
}

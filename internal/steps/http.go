package steps

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Cascade/internal/domain"
)

// StepTypeHTTP — HTTP запрос.
const StepTypeHTTP = "http"

const (
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBody    = 10 << 20
)

// HTTPStep выполняет один HTTP запрос.
//
//	config:
//	  method: POST                  # GET по умолчанию
//	  url: "https://ci.example.com/api/builds"
//	  headers:
//	    Authorization: "Bearer {{ .Params.token }}"
//	  body:                         # строка уходит как есть, остальное как JSON
//	    ref: "{{ .Inputs.checkout.sha }}"
//	  expect_status: [200, 202]     # по умолчанию любой 2xx
//	  follow_redirects: true
//	  validate_ssl: true
//	  timeout_sec: 30
//
// Значение action: {status_code, headers, body}; JSON-ответ декодируется.
// Неожиданный код ответа или сетевая ошибка дают итог failure, ошибкой
// Execute становятся только неверная конфигурация и отмена.
type HTTPStep struct {
	secure   http.RoundTripper
	insecure http.RoundTripper
}

func NewHTTPStep() *HTTPStep {
	base := http.DefaultTransport.(*http.Transport)
	insecure := base.Clone()
	insecure.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	return &HTTPStep{secure: base, insecure: insecure}
}

func (*HTTPStep) Type() string { return StepTypeHTTP }

type httpCall struct {
	Method          string            `yaml:"method"`
	URL             string            `yaml:"url"`
	Headers         map[string]string `yaml:"headers"`
	Body            any               `yaml:"body"`
	ExpectStatus    []int             `yaml:"expect_status"`
	FollowRedirects *bool             `yaml:"follow_redirects"`
	ValidateSSL     *bool             `yaml:"validate_ssl"`
	TimeoutSec      int               `yaml:"timeout_sec"`
}

// decodeCall раскладывает config по полям httpCall через YAML: так
// целые из JSON (float64) и числа в заголовках приводятся одинаково.
func decodeCall(config map[string]any) (*httpCall, error) {
	raw, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("%w: http: %v", ErrInvalidConfig, err)
	}
	var call httpCall
	if err := yaml.Unmarshal(raw, &call); err != nil {
		return nil, fmt.Errorf("%w: http: %v", ErrInvalidConfig, err)
	}

	if call.URL == "" {
		return nil, fmt.Errorf("%w: http: url is required", ErrInvalidConfig)
	}
	call.Method = strings.ToUpper(call.Method)
	if call.Method == "" {
		call.Method = http.MethodGet
	}
	return &call, nil
}

func (c *httpCall) timeout(override time.Duration) time.Duration {
	switch {
	case override > 0:
		return override
	case c.TimeoutSec > 0:
		return time.Duration(c.TimeoutSec) * time.Second
	}
	return defaultHTTPTimeout
}

func (c *httpCall) accepts(code int) bool {
	if len(c.ExpectStatus) > 0 {
		return slices.Contains(c.ExpectStatus, code)
	}
	return code >= 200 && code < 300
}

func (s *HTTPStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	call, err := decodeCall(req.Config)
	if err != nil {
		return nil, err
	}

	httpReq, err := call.request(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: http: %v", ErrInvalidConfig, err)
	}

	resp, err := s.client(call, req.Timeout).Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
		}
		return NewResponse(map[string]any{"error": err.Error()}).
			WithStatus(domain.ActionStatusFailure), nil
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
		}
		return NewResponse(map[string]any{
			"status_code": resp.StatusCode,
			"error":       err.Error(),
		}).WithStatus(domain.ActionStatusFailure), nil
	}

	out := NewResponse(map[string]any{
		"status_code": resp.StatusCode,
		"headers":     flattenHeader(resp.Header),
		"body":        decodeBody(resp.Header.Get("Content-Type"), payload),
	})
	if !call.accepts(resp.StatusCode) {
		out.WithStatus(domain.ActionStatusFailure)
	}
	return out, nil
}

func (s *HTTPStep) client(call *httpCall, override time.Duration) *http.Client {
	c := &http.Client{Timeout: call.timeout(override), Transport: s.secure}
	if call.ValidateSSL != nil && !*call.ValidateSSL {
		c.Transport = s.insecure
	}
	if call.FollowRedirects != nil && !*call.FollowRedirects {
		c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return c
}

func (c *httpCall) request(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	contentType := ""
	switch v := c.Body.(type) {
	case nil:
	case string:
		body = strings.NewReader(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, c.Method, c.URL, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func flattenHeader(h http.Header) map[string]any {
	out := make(map[string]any, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

func decodeBody(contentType string, payload []byte) any {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
		var v any
		if err := json.Unmarshal(payload, &v); err == nil {
			return v
		}
	}
	return string(payload)
}

package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

const defaultMaxBodyBytes = 10 << 20

// Sender performs one try of a request.
type Sender interface {
	Send(ctx context.Context, req *Request) (json.RawMessage, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, req *Request) (json.RawMessage, error)

func (f SenderFunc) Send(ctx context.Context, req *Request) (json.RawMessage, error) {
	return f(ctx, req)
}

// HTTPSender sends requests with net/http and expects JSON responses.
type HTTPSender struct {
	client       *http.Client
	maxBodyBytes int64
}

// NewHTTPSender returns a sender over client, or http.DefaultClient when nil.
func NewHTTPSender(client *http.Client) *HTTPSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSender{client: client, maxBodyBytes: defaultMaxBodyBytes}
}

func (s *HTTPSender) Send(ctx context.Context, req *Request) (json.RawMessage, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL, Err: err}
	}
	for k, v := range req.Header {
		httpReq.Header[k] = append([]string(nil), v...)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL, Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, s.maxBodyBytes))
		return nil, &HTTPStatusError{
			Method:     req.Method,
			URL:        req.URL,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL, Timeout: isTimeout(err), Err: err}
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(raw) {
		return nil, &TransportError{Method: req.Method, URL: req.URL, Err: fmt.Errorf("%w (%d bytes)", ErrInvalidJSON, len(raw))}
	}
	return json.RawMessage(raw), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

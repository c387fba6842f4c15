package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

// apiError is the error envelope the upstream services and the payment
// gateway share: {"error": "...", "code": "..."}.
type apiError struct {
	Message string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// doJSON issues a JSON request and decodes a 2xx response into dest (which
// may be nil for ack-only endpoints). Non-2xx responses are returned as an
// error carrying the upstream message and code.
func doJSON(ctx context.Context, client *http.Client, method, url, bearer string, body, dest interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var upstream apiError
		data, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(data, &upstream); err != nil || upstream.Message == "" {
			return fmt.Errorf("%s %s: status %d", method, url, resp.StatusCode)
		}
		return &UpstreamError{Status: resp.StatusCode, Code: upstream.Code, Message: upstream.Message}
	}

	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// UpstreamError preserves the status, machine code and message of a non-2xx
// upstream response so callers can classify failures.
type UpstreamError struct {
	Status  int
	Code    string
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("upstream error %d: %s", e.Status, e.Message)
}

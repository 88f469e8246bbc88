package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"holidayd/internal/config"
	"holidayd/internal/messaging"
)

// envPassword supplies the basic auth password when the config only
// carries a hash.
const envPassword = "HOLIDAYD_PASSWORD"

// apiClient talks to a running daemon.
type apiClient struct {
	base     string
	user     string
	password string
	http     *http.Client
}

// apiError is a non-2xx answer from the daemon.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("holidayd: %d %s", e.Status, e.Message)
}

// errUnreachable wraps transport failures, e.g. the daemon is not running.
var errUnreachable = errors.New("daemon unreachable")

func newAPIClient(cfg *config.Config) *apiClient {
	base := cfg.Listen
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	c := &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
	}
	if ba := cfg.BasicAuth; ba != nil && ba.Username != "" {
		c.user = ba.Username
		c.password = ba.Password
		if c.password == "" {
			c.password = os.Getenv(envPassword)
		}
	}
	return c
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &apiError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// message sends one action over /api/message and decodes its data into
// out. An error inside the response is returned as an error.
func (c *apiClient) message(ctx context.Context, action string, payload, out any) error {
	req := messaging.Request{Action: action}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		req.Payload = raw
	}

	var resp struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/message", req, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Data, out)
}

// Package http calls the Syncano REST API.
//
// Every method is a POST to {base}/api/{method} with the parameters as a
// JSON object. Replies are envelopes of the form
// {"result":"OK","data":...} or {"result":"NOK","error":"..."}.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/juju/ratelimit"

	"github.com/syncano/syncano.go/internal/codec"
	"github.com/syncano/syncano.go/internal/rand"
	"github.com/syncano/syncano.go/pkg/connection"
	"github.com/syncano/syncano.go/pkg/constants"
	"github.com/syncano/syncano.go/pkg/logger"
	"github.com/syncano/syncano.go/pkg/marshal"
	"github.com/syncano/syncano.go/pkg/models"
)

const (
	APIKeyHeader    = "X-API-KEY"
	RequestIDHeader = "X-Request-ID"
	InstanceHeader  = "X-Syncano-Instance"

	// maxErrorBody bounds how much of a non-JSON error body ends up in an error message.
	maxErrorBody = 512
)

type Connection struct {
	baseURL  string
	apiKey   string
	instance string
	codec    codec.Codec
	logger   logger.Logger

	httpClient *http.Client
	bucket     *ratelimit.Bucket
}

var _ connection.Connection = (*Connection)(nil)

func New(p *connection.Config) *Connection {
	log := p.Logger
	if log == nil {
		log = logger.Discard()
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	con := &Connection{
		baseURL:  strings.TrimSuffix(p.BaseURL, "/"),
		apiKey:   p.APIKey,
		instance: p.Instance,
		// The REST API only speaks JSON.
		codec:  marshal.JSONCodec{},
		logger: log,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	if p.TLSConfig != nil {
		con.httpClient.Transport = &http.Transport{TLSClientConfig: p.TLSConfig}
	}

	return con.SetRateLimit(p.RateLimit, p.RateBurst)
}

func (c *Connection) SetHTTPClient(client *http.Client) *Connection {
	c.httpClient = client
	return c
}

// SetRateLimit throttles calls to perSecond with bursts of up to burst calls.
// A perSecond of 0 removes the limit.
func (c *Connection) SetRateLimit(perSecond float64, burst int64) *Connection {
	if perSecond <= 0 {
		c.bucket = nil
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.bucket = ratelimit.NewBucketWithRate(perSecond, burst)
	return c
}

// Connect only checks the configuration; REST calls are independent requests.
func (c *Connection) Connect(ctx context.Context) error {
	if c.baseURL == "" {
		return constants.ErrNoBaseURL
	}
	if c.apiKey == "" {
		return constants.ErrNoAPIKey
	}
	return ctx.Err()
}

func (c *Connection) Close(ctx context.Context) error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Connection) GetCodec() codec.Codec {
	return c.codec
}

func (c *Connection) Notifications(string) (chan models.Notification, error) {
	return nil, constants.ErrMethodNotAvailable
}

func (c *Connection) RemoveNotifications(string) {}

func (c *Connection) Send(ctx context.Context, dest any, method string, params any) error {
	if c.baseURL == "" {
		return constants.ErrNoBaseURL
	}

	if params == nil {
		params = struct{}{}
	}
	body, err := c.codec.Marshal(params)
	if err != nil {
		return fmt.Errorf("%s: encoding params: %w", method, err)
	}

	if err := c.throttle(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/"+method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(APIKeyHeader, c.apiKey)
	if c.instance != "" {
		req.Header.Set(InstanceHeader, c.instance)
	}
	requestID := rand.NewRequestID(constants.RequestIDLength)
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	status, respBody, err := c.MakeRequest(req)
	if err != nil {
		return err
	}
	c.logger.Debug("rest call",
		"method", method,
		"request_id", requestID,
		"status", status,
		"duration", time.Since(start).String(),
	)

	return c.handleResponse(method, status, respBody, dest)
}

// MakeRequest performs req and returns the status code and the full body.
func (c *Connection) MakeRequest(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn("failed to close response body", "error", err)
		}
	}(resp.Body)

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBytes, nil
}

func (c *Connection) handleResponse(method string, status int, body []byte, dest any) error {
	if status < 200 || status > 299 {
		return &connection.ServiceError{Method: method, StatusCode: status, Message: errorMessage(status, body)}
	}

	result, err := jsonparser.GetString(body, "result")
	if err != nil {
		return fmt.Errorf("%s: %w: no result in reply", method, constants.InvalidResponse)
	}
	if result != constants.ResultOK {
		msg, _ := jsonparser.GetString(body, "error")
		return &connection.ServiceError{Method: method, StatusCode: status, Message: msg}
	}

	if dest == nil {
		return nil
	}

	data, dataType, _, err := jsonparser.Get(body, "data")
	switch {
	case dataType == jsonparser.NotExist || dataType == jsonparser.Null:
		return nil
	case err != nil:
		return fmt.Errorf("%s: %w: %v", method, constants.InvalidResponse, err)
	case dataType == jsonparser.String:
		// jsonparser strips the quotes of string values.
		data = append(append([]byte{'"'}, data...), '"')
	}

	if err := c.codec.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%s: decoding data: %w", method, err)
	}
	return nil
}

func (c *Connection) throttle(ctx context.Context) error {
	if c.bucket == nil {
		return nil
	}
	wait := c.bucket.Take(1)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func errorMessage(status int, body []byte) string {
	if msg, err := jsonparser.GetString(body, "error"); err == nil && msg != "" {
		return msg
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	if text == "" {
		return http.StatusText(status)
	}
	return text
}

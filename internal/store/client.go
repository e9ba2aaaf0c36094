package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/fault"
)

// HTTPClient talks to the backend over JSON/HTTP. It is safe for concurrent
// use once configured; fields must not change after the first call.
type HTTPClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *zap.Logger
}

// New creates a client with sane defaults.
func New(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		Token:   token,
		Timeout: 10 * time.Second,
		Logger:  zap.NewNop(),
	}
}

var _ Store = (*HTTPClient)(nil)

func (c *HTTPClient) List(ctx context.Context, table string, q Query) ([]Record, error) {
	env, err := c.do(ctx, http.MethodPost, c.tablePath(table, "query"), q)
	if err != nil {
		return nil, err
	}
	var records []Record
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return []Record{}, nil
	}
	if err := decodeRaw(env.Data, &records); err != nil {
		return nil, fault.Transportf(err, "decode %s list: %v", table, err)
	}
	return records, nil
}

func (c *HTTPClient) Get(ctx context.Context, table string, id int64) (Record, error) {
	env, err := c.do(ctx, http.MethodGet, c.tablePath(table, fmt.Sprintf("records/%d", id)), nil)
	if err != nil {
		return nil, err
	}
	var rec Record
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, fault.NotFoundf("%s record %d not found", table, id)
	}
	if err := decodeRaw(env.Data, &rec); err != nil {
		return nil, fault.Transportf(err, "decode %s record: %v", table, err)
	}
	return rec, nil
}

func (c *HTTPClient) Create(ctx context.Context, table string, f Fields) (Record, error) {
	env, err := c.do(ctx, http.MethodPost, c.tablePath(table, "records"), BatchRequest{Records: []Fields{f}})
	if err != nil {
		return nil, err
	}
	return single(table, env.Results)
}

func (c *HTTPClient) Update(ctx context.Context, table string, id int64, f Fields) (Record, error) {
	body := make(Fields, len(f)+1)
	for k, v := range f {
		body[k] = v
	}
	body[IDField] = id
	env, err := c.do(ctx, http.MethodPatch, c.tablePath(table, "records"), BatchRequest{Records: []Fields{body}})
	if err != nil {
		return nil, err
	}
	return single(table, env.Results)
}

func (c *HTTPClient) Delete(ctx context.Context, table string, id int64) error {
	env, err := c.do(ctx, http.MethodPost, c.tablePath(table, "records/delete"), DeleteRequest{RecordIDs: []int64{id}})
	if err != nil {
		return err
	}
	_, err = single(table, env.Results)
	return err
}

// single unwraps a one-record batch. A failed record is a failure of the whole call;
// its data, if any, is never returned.
func single(table string, results []Result) (Record, error) {
	if len(results) == 0 {
		return nil, fault.Rejectedf("%s: backend returned no results", table)
	}
	r := results[0]
	if !r.Success {
		msg := r.Message
		if msg == "" {
			msg = fmt.Sprintf("%s: record rejected", table)
		}
		if r.Code == ResultCodeNotFound {
			return nil, fault.NotFoundf("%s", msg)
		}
		return nil, fault.Rejectedf("%s", msg).WithFields(r.Errors...)
	}
	return r.Data, nil
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body any) (Envelope, error) {
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: c.Timeout}
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return Envelope{}, fault.Validationf("encode request: %v", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return Envelope{}, fault.Transportf(err, "build request: %v", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Envelope{}, fault.Transportf(ctxErr, "request cancelled: %v", ctxErr)
		}
		return Envelope{}, fault.Transportf(err, "backend unreachable: %v", unwrapURLError(err))
	}
	defer resp.Body.Close()
	logger.Debug("store request",
		zap.String("method", method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", reqID),
		zap.Duration("latency", time.Since(start)),
	)
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Envelope{}, fault.Transportf(err, "read response: %v", err)
	}
	if resp.StatusCode >= 500 {
		return Envelope{}, fault.Transportf(nil, "backend unavailable: status %d", resp.StatusCode)
	}
	var env Envelope
	decodeErr := decodeRaw(data, &env)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = "record not found"
		}
		return Envelope{}, fault.NotFoundf("%s", msg)
	case resp.StatusCode >= 300:
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("request failed: status %d", resp.StatusCode)
		}
		return Envelope{}, fault.Rejectedf("%s", msg)
	case decodeErr != nil:
		return Envelope{}, fault.Transportf(decodeErr, "invalid response: %v", decodeErr)
	case !env.Success:
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return Envelope{}, fault.Rejectedf("%s", msg)
	}
	return env, nil
}

func decodeRaw(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}

func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

func (c *HTTPClient) tablePath(table, p string) string {
	return fmt.Sprintf("tables/%s/%s", url.PathEscape(table), strings.TrimLeft(p, "/"))
}

func (c *HTTPClient) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}

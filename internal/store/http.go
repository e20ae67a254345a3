package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/ergydev/billed/internal/bill"
)

// maxErrorBody caps how much of a failed response ends up in a StatusError
const maxErrorBody = 1 << 10

// Client talks to the remote bills API
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a Client for baseURL. token is sent as a bearer token when set.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return NewClientWithHTTP(baseURL, token, &http.Client{Timeout: timeout})
}

// NewClientWithHTTP creates a Client with a custom http.Client for testing
func NewClientWithHTTP(baseURL, token string, hc *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    hc,
	}
}

// Bills returns the bills API
func (c *Client) Bills() BillsAPI {
	return c
}

// List fetches GET /bills
func (c *Client) List(ctx context.Context) ([]bill.Bill, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/bills", nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	var records []json.RawMessage
	if err := c.do(req, &records); err != nil {
		return nil, err
	}

	bills := make([]bill.Bill, 0, len(records))
	for _, raw := range records {
		bills = append(bills, decodeBill("", raw))
	}
	return bills, nil
}

// Create posts the receipt as multipart form data to POST /bills
func (c *Client) Create(ctx context.Context, up Upload) (*Created, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if up.File != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, up.File.Name))
		contentType := up.File.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("creating file part: %w", err)
		}
		if _, err := part.Write(up.File.Data); err != nil {
			return nil, fmt.Errorf("writing file part: %w", err)
		}
	}
	if err := mw.WriteField("email", up.Email); err != nil {
		return nil, fmt.Errorf("writing email field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bills", &body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var created Created
	if err := c.do(req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update sends PATCH /bills/{id}
func (c *Client) Update(ctx context.Context, b *bill.Bill) (*bill.Bill, error) {
	if b.ID == "" {
		return nil, &StatusError{Code: http.StatusBadRequest, Body: "bill id required"}
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshaling bill: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/bills/"+url.PathEscape(b.ID), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var updated bill.Bill
	if err := c.do(req, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// do sends req and decodes a 2xx JSON response into out
func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

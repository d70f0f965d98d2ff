package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrTransport covers network failures and non-2xx answers.
	ErrTransport = errors.New("sheets: transport failure")
	// ErrMalformed is returned when the endpoint answers something that is
	// not the expected JSON envelope.
	ErrMalformed = errors.New("sheets: malformed response")
	// ErrRemote is a well-formed response with success=false.
	ErrRemote = errors.New("sheets: remote error")
)

const (
	DefaultTimeout = 30 * time.Second
	previewLen     = 200
)

// Reader fetches sheet rows.
type Reader interface {
	Fetch(ctx context.Context, sheet string) ([][]any, error)
}

// Writer posts rows back to a sheet.
type Writer interface {
	Insert(ctx context.Context, sheet string, row []any) error
	Update(ctx context.Context, sheet string, rowIndex int, row []any) error
}

type ReadWriter interface {
	Reader
	Writer
}

// Client talks to the Apps Script web app that fronts the spreadsheet.
type Client struct {
	scriptURL string
	http      *http.Client
	log       *zap.Logger
}

func NewClient(scriptURL string, httpClient *http.Client, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{scriptURL: scriptURL, http: httpClient, log: log}
}

type envelope struct {
	Success bool              `json:"success"`
	Data    []json.RawMessage `json:"data"`
	Error   string            `json:"error"`
}

// Fetch returns the rows of sheet as decoded JSON cells. Entries of the
// data array that are not arrays are dropped.
func (c *Client) Fetch(ctx context.Context, sheet string) ([][]any, error) {
	u, err := url.Parse(c.scriptURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad script url: %v", ErrTransport, err)
	}
	q := u.Query()
	q.Set("sheet", sheet)
	q.Set("action", "fetch")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	start := time.Now()
	env, err := c.do(req)
	if err != nil {
		c.log.Warn("sheet fetch failed", zap.String("sheet", sheet), zap.Error(err))
		return nil, err
	}

	rows := make([][]any, 0, len(env.Data))
	skipped := 0
	for _, raw := range env.Data {
		var row []any
		if err := json.Unmarshal(raw, &row); err != nil {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	c.log.Debug("sheet fetched",
		zap.String("sheet", sheet),
		zap.Int("rows", len(rows)),
		zap.Int("skipped", skipped),
		zap.Duration("took", time.Since(start)),
	)
	return rows, nil
}

func (c *Client) Insert(ctx context.Context, sheet string, row []any) error {
	return c.post(ctx, sheet, "insert", 0, row)
}

// Update overwrites the 1-based sheet row rowIndex. Empty cells in row
// leave the existing values alone.
func (c *Client) Update(ctx context.Context, sheet string, rowIndex int, row []any) error {
	if rowIndex < 1 {
		return fmt.Errorf("sheets: invalid row index %d", rowIndex)
	}
	return c.post(ctx, sheet, "update", rowIndex, row)
}

func (c *Client) post(ctx context.Context, sheet, action string, rowIndex int, row []any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("sheets: encode row: %w", err)
	}

	form := url.Values{}
	form.Set("sheetName", sheet)
	form.Set("action", action)
	form.Set("rowData", string(data))
	if rowIndex > 0 {
		form.Set("rowIndex", strconv.Itoa(rowIndex))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.scriptURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if _, err := c.do(req); err != nil {
		c.log.Warn("sheet write failed",
			zap.String("sheet", sheet),
			zap.String("action", action),
			zap.Int("row_index", rowIndex),
			zap.Error(err),
		)
		return err
	}
	c.log.Info("sheet row written",
		zap.String("sheet", sheet),
		zap.String("action", action),
		zap.Int("row_index", rowIndex),
	)
	return nil
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrTransport, resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if !IsJSON(ct) {
		return nil, fmt.Errorf("%w: expected JSON, got %q: %s", ErrMalformed, ct, Preview(body))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrMalformed, err, Preview(body))
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "request was not successful"
		}
		return nil, fmt.Errorf("%w: %s", ErrRemote, msg)
	}
	return &env, nil
}

// IsJSON reports whether a Content-Type header names a JSON body.
func IsJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// Preview returns at most the first 200 bytes of body for error messages.
func Preview(body []byte) string {
	if len(body) > previewLen {
		body = body[:previewLen]
	}
	return strings.TrimSpace(string(body))
}

package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Judge status ids that mean the run has not finished yet.
const (
	StatusIDInQueue    = 1
	StatusIDProcessing = 2
)

// Synthetic verdicts produced by the client itself.
const (
	DescriptionSystemError = "System Error"
	DescriptionAPIError    = "API Error"
)

// Request is one unit of work for the external judge.
type Request struct {
	SourceCode     string  `json:"source_code"`
	LanguageID     int     `json:"language_id"`
	Stdin          string  `json:"stdin"`
	ExpectedOutput string  `json:"expected_output"`
	CPUTimeLimit   float64 `json:"cpu_time_limit"` // seconds
	MemoryLimit    int     `json:"memory_limit"`   // KB
}

type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Result is the judge's raw result record. Fields the judge did not report
// stay nil.
type Result struct {
	Status        *Status  `json:"status"`
	Time          *Seconds `json:"time"`
	Memory        *float64 `json:"memory"` // KB
	Stdout        *string  `json:"stdout"`
	Stderr        *string  `json:"stderr"`
	CompileOutput *string  `json:"compile_output"`
}

// Terminal reports whether the judge has finished with this run.
func (r *Result) Terminal() bool {
	if r.Status == nil {
		return true
	}
	return r.Status.ID != StatusIDInQueue && r.Status.ID != StatusIDProcessing
}

func synthetic(description string) *Result {
	return &Result{Status: &Status{Description: description}}
}

// Seconds accepts both the judge's quoted decimal ("0.012") and a bare number.
type Seconds float64

func (s *Seconds) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		*s = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid judge time %q: %w", raw, err)
	}
	*s = Seconds(v)
	return nil
}

// VerdictClient submits one run to the judge and waits for its verdict.
// Judge-side failures come back as a Result with a synthetic status; an
// error is returned only when ctx is done.
type VerdictClient interface {
	Judge(ctx context.Context, req Request) (*Result, error)
}

type Options struct {
	BaseURL      string
	AuthHeader   string
	AuthToken    string
	PollInterval time.Duration
	MaxAttempts  int
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

type Client struct {
	baseURL      string
	authHeader   string
	authToken    string
	pollInterval time.Duration
	maxAttempts  int
	http         *http.Client
	logger       *slog.Logger
}

func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		authHeader:   opts.AuthHeader,
		authToken:    opts.AuthToken,
		pollInterval: opts.PollInterval,
		maxAttempts:  opts.MaxAttempts,
		http:         opts.HTTPClient,
		logger:       opts.Logger,
	}
	if c.pollInterval <= 0 {
		c.pollInterval = time.Second
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 10
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "judge_client")
	return c
}

func (c *Client) Judge(ctx context.Context, req Request) (*Result, error) {
	token, err := c.submit(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("judge submit failed", "error", err)
		return synthetic(DescriptionAPIError), nil
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		res, err := c.fetch(ctx, token)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("judge poll failed", "token", token, "attempt", attempt, "error", err)
			return synthetic(DescriptionAPIError), nil
		}
		if res.Terminal() {
			return res, nil
		}
		if attempt == c.maxAttempts {
			break
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.Warn("judge run did not finish in time", "token", token, "attempts", c.maxAttempts)
	return synthetic(DescriptionSystemError), nil
}

func (c *Client) submit(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal judge request: %w", err)
	}

	url := c.baseURL + "/submissions?base64_encoded=false&wait=false"
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, url, bytes.NewReader(body), &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("judge returned no token")
	}
	return out.Token, nil
}

func (c *Client) fetch(ctx context.Context, token string) (*Result, error) {
	url := c.baseURL + "/submissions/" + token + "?base64_encoded=false"
	var res Result
	if err := c.do(ctx, http.MethodGet, url, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build judge request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.authHeader != "" && c.authToken != "" {
		httpReq.Header.Set(c.authHeader, c.authToken)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: judge returned %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode judge response: %w", err)
	}
	return nil
}

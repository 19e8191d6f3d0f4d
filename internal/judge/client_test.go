package judge

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJudge struct {
	t         *testing.T
	submitted atomic.Int32
	polls     atomic.Int32
	mu        sync.Mutex
	lastReq   Request
	submitErr int
	pollErr   int
	// statuses returned per poll; the last one repeats
	statuses []string
}

func (f *fakeJudge) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /submissions", func(w http.ResponseWriter, r *http.Request) {
		f.submitted.Add(1)
		assert.Equal(f.t, "false", r.URL.Query().Get("base64_encoded"))
		assert.Equal(f.t, "false", r.URL.Query().Get("wait"))
		assert.Equal(f.t, "secret", r.Header.Get("X-Auth-Token"))
		if f.submitErr != 0 {
			w.WriteHeader(f.submitErr)
			return
		}
		var req Request
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.lastReq = req
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"token":"tok-1"}`)
	})
	mux.HandleFunc("GET /submissions/{token}", func(w http.ResponseWriter, r *http.Request) {
		n := int(f.polls.Add(1))
		assert.Equal(f.t, "tok-1", r.PathValue("token"))
		if f.pollErr != 0 {
			w.WriteHeader(f.pollErr)
			return
		}
		idx := n - 1
		if idx >= len(f.statuses) {
			idx = len(f.statuses) - 1
		}
		_, _ = io.WriteString(w, f.statuses[idx])
	})
	return mux
}

const (
	inQueue    = `{"status":{"id":1,"description":"In Queue"},"time":null,"memory":null,"stdout":null}`
	processing = `{"status":{"id":2,"description":"Processing"},"time":null,"memory":null,"stdout":null}`
	accepted   = `{"status":{"id":3,"description":"Accepted"},"time":"0.012","memory":3072,"stdout":"42\n"}`
)

func newTestClient(t *testing.T, f *fakeJudge, maxAttempts int) (*Client, *httptest.Server) {
	t.Helper()
	f.t = t
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	c := NewClient(Options{
		BaseURL:      srv.URL + "/",
		AuthHeader:   "X-Auth-Token",
		AuthToken:    "secret",
		PollInterval: time.Millisecond,
		MaxAttempts:  maxAttempts,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return c, srv
}

func sampleRequest() Request {
	return Request{SourceCode: "print(42)", LanguageID: 71, Stdin: "1 2\n", ExpectedOutput: "42", CPUTimeLimit: 1.5, MemoryLimit: 262144}
}

func TestJudge_PollsUntilTerminal(t *testing.T) {
	f := &fakeJudge{statuses: []string{inQueue, processing, accepted}}
	c, _ := newTestClient(t, f, 10)

	res, err := c.Judge(context.Background(), sampleRequest())
	require.NoError(t, err)

	require.NotNil(t, res.Status)
	assert.Equal(t, "Accepted", res.Status.Description)
	require.NotNil(t, res.Time)
	assert.InDelta(t, 0.012, float64(*res.Time), 1e-9)
	require.NotNil(t, res.Memory)
	assert.Equal(t, 3072.0, *res.Memory)
	require.NotNil(t, res.Stdout)
	assert.Equal(t, "42\n", *res.Stdout)

	assert.EqualValues(t, 1, f.submitted.Load())
	assert.EqualValues(t, 3, f.polls.Load())
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, sampleRequest(), f.lastReq)
}

func TestJudge_NeverTerminalIsSystemError(t *testing.T) {
	f := &fakeJudge{statuses: []string{processing}}
	c, _ := newTestClient(t, f, 10)

	res, err := c.Judge(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, DescriptionSystemError, res.Status.Description)
	assert.EqualValues(t, 10, f.polls.Load())
	assert.EqualValues(t, 1, f.submitted.Load())
}

func TestJudge_SubmitNon2xxIsAPIError(t *testing.T) {
	f := &fakeJudge{submitErr: http.StatusInternalServerError, statuses: []string{accepted}}
	c, _ := newTestClient(t, f, 10)

	res, err := c.Judge(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, DescriptionAPIError, res.Status.Description)
	assert.EqualValues(t, 0, f.polls.Load())
}

func TestJudge_PollNon2xxIsAPIError(t *testing.T) {
	f := &fakeJudge{pollErr: http.StatusServiceUnavailable, statuses: []string{accepted}}
	c, _ := newTestClient(t, f, 10)

	res, err := c.Judge(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, DescriptionAPIError, res.Status.Description)
	assert.EqualValues(t, 1, f.polls.Load())
}

func TestJudge_UnreachableIsAPIError(t *testing.T) {
	f := &fakeJudge{statuses: []string{accepted}}
	c, srv := newTestClient(t, f, 10)
	srv.Close()

	res, err := c.Judge(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, DescriptionAPIError, res.Status.Description)
}

func TestJudge_CanceledContextReturnsError(t *testing.T) {
	f := &fakeJudge{statuses: []string{inQueue}}
	c, _ := newTestClient(t, f, 10)
	c.pollInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for f.polls.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	res, err := c.Judge(ctx, sampleRequest())
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestSeconds_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{`"0.5"`, 0.5},
		{`1.25`, 1.25},
		{`""`, 0},
	}
	for _, tt := range tests {
		var s Seconds
		require.NoError(t, json.Unmarshal([]byte(tt.in), &s), tt.in)
		assert.InDelta(t, tt.want, float64(s), 1e-9, tt.in)
	}

	var s Seconds
	assert.Error(t, json.Unmarshal([]byte(`"fast"`), &s))
}

func TestResult_Terminal(t *testing.T) {
	assert.False(t, (&Result{Status: &Status{ID: StatusIDInQueue}}).Terminal())
	assert.False(t, (&Result{Status: &Status{ID: StatusIDProcessing}}).Terminal())
	assert.True(t, (&Result{Status: &Status{ID: 4, Description: "Wrong Answer"}}).Terminal())
	assert.True(t, (&Result{}).Terminal())
}

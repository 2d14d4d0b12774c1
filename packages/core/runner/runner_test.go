package runner

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/ideacheck/packages/assertions"
	"github.com/abdul-hamid-achik/ideacheck/packages/auth"
	ihttp "github.com/abdul-hamid-achik/ideacheck/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statusCase builds a case that GETs path and expects status
func statusCase(order int, name, path string, status int) *Case {
	return &Case{
		Order: order,
		Name:  name,
		Run: func(ctx context.Context, rc *RunContext) Outcome {
			resp, err := rc.Session.Client.Get(ctx, path)
			if err != nil {
				return Outcome{Method: http.MethodGet, Error: err}
			}
			return Outcome{
				Method:     http.MethodGet,
				Response:   resp,
				Assertions: []*assertions.Result{assertions.NewEvaluator(resp).Status(status)},
			}
		},
	}
}

func okServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fail":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewRunner(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		r := NewRunner(nil, "s", nil)
		assert.NotNil(t, r)
		assert.NotNil(t, r.config)
		assert.Empty(t, r.Cases())
	})

	t.Run("orders cases stably", func(t *testing.T) {
		cases := []*Case{
			{Order: 3, Name: "c"},
			{Order: 1, Name: "a"},
			{Order: 2, Name: "b1"},
			{Order: 2, Name: "b2"},
		}
		r := NewRunner(&Config{}, "s", cases)

		var names []string
		for _, c := range r.Cases() {
			names = append(names, c.Name)
		}
		assert.Equal(t, []string{"a", "b1", "b2", "c"}, names)
		assert.Equal(t, "c", cases[0].Name, "input slice is not reordered")
	})
}

func TestRunner_RunsInOrderAndSharesContext(t *testing.T) {
	server := okServer(t)

	var seen []string
	record := func(order int, name string) *Case {
		return &Case{
			Order: order,
			Name:  name,
			Run: func(ctx context.Context, rc *RunContext) Outcome {
				seen = append(seen, name)
				if name == "capture" {
					rc.LastCreatedIdeaID = "abc"
					return Outcome{Captures: map[string]any{"id": "abc"}, Response: mustGet(ctx, t, rc, "/")}
				}
				assert.Equal(t, "abc", rc.LastCreatedIdeaID)
				assert.Equal(t, "abc", rc.Captures["id"])
				return Outcome{Response: mustGet(ctx, t, rc, "/")}
			},
		}
	}

	r := NewRunner(&Config{BaseURL: server.URL, StaticToken: "tok"}, "ordered", []*Case{
		record(2, "use"),
		record(1, "capture"),
	})

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"capture", "use"}, seen)
	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, "ordered", result.Suite)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, int64(2), result.Latency.Count)
	assert.Equal(t, "abc", result.Results[0].Captures["id"])
	assert.True(t, result.Success())
}

func mustGet(ctx context.Context, t *testing.T, rc *RunContext, path string) *ihttp.Response {
	t.Helper()
	resp, err := rc.Session.Client.Get(ctx, path)
	require.NoError(t, err)
	return resp
}

func TestRunner_FailureDoesNotStopRun(t *testing.T) {
	server := okServer(t)

	r := NewRunner(&Config{BaseURL: server.URL, StaticToken: "tok"}, "s", []*Case{
		statusCase(1, "first", "/", http.StatusOK),
		statusCase(2, "broken", "/fail", http.StatusOK),
		statusCase(3, "last", "/", http.StatusOK),
	})

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.Success())
	assert.False(t, result.Results[1].Passed)
	assert.True(t, result.Results[2].Passed)
	assert.Equal(t, http.MethodGet, result.Results[1].Method)
	assert.Contains(t, result.Results[1].URL, "/fail")
}

func TestRunner_Bail(t *testing.T) {
	server := okServer(t)

	r := NewRunner(&Config{BaseURL: server.URL, StaticToken: "tok", Bail: true}, "s", []*Case{
		statusCase(1, "broken", "/fail", http.StatusOK),
		statusCase(2, "next", "/", http.StatusOK),
		statusCase(3, "last", "/", http.StatusOK),
	})

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, SkipBail, result.Results[1].SkipReason)
	assert.Equal(t, SkipBail, result.Results[2].SkipReason)
}

func TestRunner_NameFilter(t *testing.T) {
	server := okServer(t)

	r := NewRunner(&Config{BaseURL: server.URL, StaticToken: "tok", NameFilter: "Create*"}, "s", []*Case{
		statusCase(1, "CreateIdea", "/", http.StatusOK),
		statusCase(2, "DeleteIdea", "/", http.StatusOK),
	})

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Skipped)
	assert.True(t, result.Results[1].Skipped)
	assert.Equal(t, SkipFiltered, result.Results[1].SkipReason)
}

func TestRunner_PanicIsIsolated(t *testing.T) {
	server := okServer(t)

	r := NewRunner(&Config{BaseURL: server.URL, StaticToken: "tok"}, "s", []*Case{
		{Order: 1, Name: "boom", Run: func(ctx context.Context, rc *RunContext) Outcome {
			panic("nil idea")
		}},
		statusCase(2, "after", "/", http.StatusOK),
	})

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Error(t, result.Results[0].Error)
	assert.Contains(t, result.Results[0].Error.Error(), "panicked")
	assert.False(t, result.Results[0].Passed)
	assert.True(t, result.Results[1].Passed)
}

func TestRunner_CaseErrorFails(t *testing.T) {
	server := okServer(t)

	r := NewRunner(&Config{BaseURL: server.URL, StaticToken: "tok"}, "s", []*Case{
		{Order: 1, Name: "err", Run: func(ctx context.Context, rc *RunContext) Outcome {
			return Outcome{Error: errors.New("connection reset")}
		}},
		{Order: 2, Name: "no assertions", Run: func(ctx context.Context, rc *RunContext) Outcome {
			resp, err := rc.Session.Client.Get(ctx, "/fail")
			return Outcome{Response: resp, Error: err}
		}},
	})

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Results[0].Passed)
	assert.False(t, result.Results[1].Passed, "non-2xx without assertions fails")
}

func TestRunner_Cancellation(t *testing.T) {
	server := okServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	var torndown atomic.Bool
	r := NewRunner(&Config{BaseURL: server.URL, StaticToken: "tok"}, "s", []*Case{
		{Order: 1, Name: "cancel", Run: func(ctx context.Context, rc *RunContext) Outcome {
			cancel()
			return Outcome{}
		}},
		statusCase(2, "skipped", "/", http.StatusOK),
	})
	r.AfterAll(func(ctx context.Context, rc *RunContext) error {
		assert.NoError(t, ctx.Err(), "teardown context is not cancelled")
		torndown.Store(true)
		return nil
	})

	result, err := r.Run(ctx)
	require.NoError(t, err)

	assert.True(t, result.Results[1].Skipped)
	assert.Equal(t, SkipCancelled, result.Results[1].SkipReason)
	assert.True(t, torndown.Load())
}

func TestRunner_Teardown(t *testing.T) {
	server := okServer(t)

	t.Run("runs all hooks in order", func(t *testing.T) {
		var calls []int
		r := NewRunner(&Config{BaseURL: server.URL, StaticToken: "tok"}, "s", []*Case{
			statusCase(1, "broken", "/fail", http.StatusOK),
		})
		r.AfterAll(func(ctx context.Context, rc *RunContext) error {
			calls = append(calls, 1)
			return errors.New("cleanup failed")
		})
		r.AfterAll(func(ctx context.Context, rc *RunContext) error {
			calls = append(calls, 2)
			return nil
		})

		result, err := r.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []int{1, 2}, calls)
		require.Error(t, result.TeardownError)
		assert.Contains(t, result.TeardownError.Error(), "cleanup failed")
		assert.False(t, result.Success())
	})

	t.Run("panicking hook is recorded and later hooks still run", func(t *testing.T) {
		var diag bytes.Buffer
		later := false
		r := NewRunner(&Config{BaseURL: server.URL, StaticToken: "tok", Verbose: true}, "s", []*Case{
			statusCase(1, "ok", "/", http.StatusOK),
		})
		r.diag = &diag
		r.AfterAll(func(ctx context.Context, rc *RunContext) error {
			panic("boom")
		})
		r.AfterAll(func(ctx context.Context, rc *RunContext) error {
			later = true
			return nil
		})

		var result *RunResult
		var err error
		require.NotPanics(t, func() {
			result, err = r.Run(context.Background())
		})
		require.NoError(t, err)

		assert.True(t, later)
		assert.Equal(t, 1, result.Passed)
		require.Error(t, result.TeardownError)
		assert.Contains(t, result.TeardownError.Error(), "teardown hook 1 failed: panicked: boom")
		assert.False(t, result.Success())
		assert.Contains(t, diag.String(), "warning: teardown hook 1 failed")
	})

	t.Run("not run when setup fails", func(t *testing.T) {
		called := false
		r := NewRunner(&Config{BaseURL: server.URL}, "s", nil)
		r.AfterAll(func(ctx context.Context, rc *RunContext) error {
			called = true
			return nil
		})

		_, err := r.Run(context.Background())
		require.Error(t, err)
		assert.False(t, called)
	})
}

func TestRunner_Setup(t *testing.T) {
	var logins atomic.Int32
	var lastAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/User/Authentication" {
			logins.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"accessToken":"issued"}`))
			return
		}
		lastAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	t.Run("static token skips login", func(t *testing.T) {
		logins.Store(0)
		r := NewRunner(&Config{BaseURL: server.URL, StaticToken: "static"}, "s", []*Case{
			statusCase(1, "ping", "/", http.StatusOK),
		})

		result, err := r.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, auth.SourceStatic, result.TokenSource)
		assert.Equal(t, int32(0), logins.Load())
		assert.Equal(t, "Bearer static", lastAuth.Load())
	})

	t.Run("login happens once per run", func(t *testing.T) {
		logins.Store(0)
		r := NewRunner(&Config{BaseURL: server.URL, Email: "a@b.c", Password: "pw"}, "s", []*Case{
			statusCase(1, "one", "/", http.StatusOK),
			statusCase(2, "two", "/", http.StatusOK),
			statusCase(3, "three", "/", http.StatusOK),
		})

		result, err := r.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, result.Passed)
		assert.Equal(t, auth.SourceLogin, result.TokenSource)
		assert.Equal(t, int32(1), logins.Load())
		assert.Equal(t, "Bearer issued", lastAuth.Load())
	})

	t.Run("missing base url", func(t *testing.T) {
		_, err := NewRunner(&Config{StaticToken: "tok"}, "s", nil).Setup(context.Background())
		var cfgErr *auth.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("invalid base url", func(t *testing.T) {
		_, err := NewRunner(&Config{BaseURL: "::nope", StaticToken: "tok"}, "s", nil).Setup(context.Background())
		var cfgErr *auth.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("no token and no credentials", func(t *testing.T) {
		logins.Store(0)
		result, err := NewRunner(&Config{BaseURL: server.URL}, "s", nil).Run(context.Background())
		assert.Nil(t, result)
		var cfgErr *auth.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("incomplete credentials fail before login", func(t *testing.T) {
		logins.Store(0)
		_, err := NewRunner(&Config{BaseURL: server.URL, Email: "a@b.c"}, "s", nil).Run(context.Background())
		var cfgErr *auth.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, int32(0), logins.Load())
	})
}

func TestRunner_WaitForService(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		server := okServer(t)
		r := NewRunner(&Config{
			BaseURL:      server.URL,
			StaticToken:  "tok",
			WaitTimeout:  time.Second,
			WaitInterval: 10 * time.Millisecond,
		}, "s", nil)

		session, err := r.Setup(context.Background())
		require.NoError(t, err)
		session.Close()
	})

	t.Run("verbose progress goes to diagnostics", func(t *testing.T) {
		server := okServer(t)
		var diag bytes.Buffer
		r := NewRunner(&Config{
			BaseURL:      server.URL,
			StaticToken:  "tok",
			Verbose:      true,
			WaitTimeout:  time.Second,
			WaitInterval: 10 * time.Millisecond,
		}, "s", nil)
		r.diag = &diag

		session, err := r.Setup(context.Background())
		require.NoError(t, err)
		session.Close()

		assert.Contains(t, diag.String(), "Waiting for "+server.URL)
		assert.Contains(t, diag.String(), "is reachable (status: 200)")
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		r := NewRunner(&Config{
			BaseURL:      url,
			StaticToken:  "tok",
			WaitTimeout:  100 * time.Millisecond,
			WaitInterval: 10 * time.Millisecond,
		}, "s", nil)

		_, err := r.Setup(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not reachable")
	})
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    bool
	}{
		{"CreateIdea", "", true},
		{"CreateIdea", "CreateIdea", true},
		{"CreateIdea", "Create*", true},
		{"CreateIdea", "*Idea", true},
		{"EditNonExistingIdea", "*NonExisting*", true},
		{"CreateIdea", "Delete*", false},
		{"CreateIdea", "*Delete*", false},
		{"", "Create*", false},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesPattern(tt.name, tt.pattern))
		})
	}
}

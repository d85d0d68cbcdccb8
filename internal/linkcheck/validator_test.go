package linkcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testValidator(cfg Config) *Validator {
	cfg.AllowPrivateNetworks = true
	return New(cfg, nil)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com/page", NormalizeURL("https://example.com/page."))
	assert.Equal(t, "https://www.test.org", NormalizeURL("www.test.org),"))
	assert.Equal(t, "http://a.b/c", NormalizeURL(" http://a.b/c; "))
}

func TestCheckNameMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.UserAgent(), "Mozilla/5.0")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><p>Holder: <b>DOE</b>, Jane</p></body></html>")
	}))
	defer srv.Close()

	res := testValidator(Config{}).Check(context.Background(), srv.URL+"/verify/123", []string{"Jane Doe"}, nil)
	assert.True(t, res.Reachable)
	require.NotNil(t, res.StatusCode)
	assert.Equal(t, 200, *res.StatusCode)
	assert.True(t, res.NameMatch)
	assert.False(t, res.IDMatch)
	assert.Nil(t, res.Error)
	assert.True(t, res.Strong())
}

func TestCheckRequiresEveryNameWord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "certificate for jane smith")
	}))
	defer srv.Close()

	res := testValidator(Config{}).Check(context.Background(), srv.URL, []string{"Jane Doe"}, []string{"ABC12", "XYZ-9876543210"})
	assert.True(t, res.Reachable)
	assert.False(t, res.NameMatch)
	assert.False(t, res.IDMatch)
}

func TestCheckIDMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "credential xyz-9876543210 is valid")
	}))
	defer srv.Close()

	res := testValidator(Config{}).Check(context.Background(), srv.URL, nil, []string{"short", "XYZ-9876543210"})
	assert.True(t, res.IDMatch)
	assert.True(t, res.Strong())
}

func TestCheckFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "Ada Lovelace")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res := testValidator(Config{}).Check(context.Background(), srv.URL+"/old", []string{"Ada Lovelace"}, nil)
	assert.True(t, res.Reachable)
	assert.True(t, res.NameMatch)
}

func TestCheckNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	res := testValidator(Config{}).Check(context.Background(), srv.URL, []string{"Jane Doe"}, nil)
	assert.False(t, res.Reachable)
	require.NotNil(t, res.StatusCode)
	assert.Equal(t, 404, *res.StatusCode)
	require.NotNil(t, res.Error)
	assert.Equal(t, "unexpected status: 404 Not Found", *res.Error)
}

func TestCheckConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := testValidator(Config{}).Check(context.Background(), url, nil, nil)
	assert.False(t, res.Reachable)
	assert.Nil(t, res.StatusCode)
	require.NotNil(t, res.Error)
}

func TestCheckTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	res := testValidator(Config{Timeout: 50 * time.Millisecond}).Check(context.Background(), srv.URL, nil, nil)
	assert.False(t, res.Reachable)
	require.NotNil(t, res.Error)
	assert.Equal(t, TimeoutError, *res.Error)
}

func TestCheckBlocksPrivateNetworks(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))
	defer srv.Close()

	res := New(Config{}, nil).Check(context.Background(), srv.URL, nil, nil)
	assert.False(t, res.Reachable)
	require.NotNil(t, res.Error)
	assert.Contains(t, *res.Error, "non-public address")
	assert.Zero(t, hits.Load())
}

func TestCheckAllKeepsOrderAndBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		fmt.Fprintf(w, "page %s", r.URL.Path)
	}))
	defer srv.Close()

	urls := make([]string, 12)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/p%d", srv.URL, i)
	}
	results, err := testValidator(Config{Workers: 3}).CheckAll(context.Background(), urls, nil, nil)
	require.NoError(t, err)
	require.Len(t, results, len(urls))
	for i, r := range results {
		assert.Equal(t, urls[i], r.URL)
		assert.True(t, r.Reachable)
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestCheckAllStageBudget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fast", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	v := testValidator(Config{Timeout: 5 * time.Second, StageBudget: 100 * time.Millisecond, Workers: 2})
	start := time.Now()
	results, err := v.CheckAll(context.Background(), []string{srv.URL + "/fast", srv.URL + "/slow"}, nil, nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, results, 2)
	assert.True(t, results[0].Reachable)
	assert.False(t, results[1].Reachable)
	require.NotNil(t, results[1].Error)
	assert.Equal(t, TimeoutError, *results[1].Error)
}

func TestCheckAllCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	results, err := testValidator(Config{}).CheckAll(ctx, []string{srv.URL}, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}

func TestCheckAllEmpty(t *testing.T) {
	results, err := testValidator(Config{}).CheckAll(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

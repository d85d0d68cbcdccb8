// Package linkcheck probes candidate issuer URLs and looks for the holder's
// name or credential ID on the returned page.
package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/cert-verifier/internal/entity"
	"github.com/joseph-ayodele/cert-verifier/internal/utils"
)

// TimeoutError is the error recorded for checks that hit their own timeout or
// the stage budget.
const TimeoutError = "timeout"

// MinIDLength is the shortest ID token searched for on issuer pages.
const MinIDLength = 6

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

var reachableStatus = map[int]bool{
	200: true, 201: true, 202: true, 204: true,
	301: true, 302: true, 303: true, 307: true, 308: true,
}

type Config struct {
	Timeout              time.Duration // per URL, default 8s
	StageBudget          time.Duration // whole CheckAll call, default 20s
	Workers              int           // concurrent probes, default 6
	MaxBodyBytes         int64         // default 2 MiB
	UserAgent            string
	AllowPrivateNetworks bool // permit loopback/private targets (tests, intranets)
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 8 * time.Second
	}
	if c.StageBudget <= 0 {
		c.StageBudget = 20 * time.Second
	}
	if c.Workers <= 0 {
		c.Workers = 6
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 2 << 20
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	return c
}

// Validator is safe for concurrent use; its HTTP connection pool is shared by
// every run in the process.
type Validator struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Validator{cfg: cfg, client: newClient(cfg), logger: logger}
}

func newClient(cfg Config) *http.Client {
	dialer := &net.Dialer{Timeout: cfg.Timeout, KeepAlive: 30 * time.Second}
	if !cfg.AllowPrivateNetworks {
		dialer.Control = publicOnly
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.Workers,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   cfg.Timeout,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}

// NormalizeURL is utils.NormalizeURL; checked URLs are reported in this form.
func NormalizeURL(raw string) string { return utils.NormalizeURL(raw) }

// CheckAll probes every URL with at most Workers requests in flight. Results
// keep the order of urls. Checks still unfinished when the stage budget runs
// out are reported unreachable with TimeoutError. The error is non-nil only
// when ctx itself is cancelled.
func (v *Validator) CheckAll(ctx context.Context, urls, names, ids []string) ([]entity.LinkCheckResult, error) {
	results := make([]entity.LinkCheckResult, len(urls))
	for i, u := range urls {
		results[i] = timedOut(NormalizeURL(u))
	}
	if len(urls) == 0 {
		return results, ctx.Err()
	}

	stageCtx, cancel := context.WithTimeout(ctx, v.cfg.StageBudget)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(v.cfg.Workers)
	for i, u := range urls {
		if stageCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if stageCtx.Err() != nil {
				return nil
			}
			results[i] = v.Check(stageCtx, u, names, ids)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Check probes one URL. It never fails; network problems are recorded on the
// result.
func (v *Validator) Check(ctx context.Context, rawURL string, names, ids []string) entity.LinkCheckResult {
	target := NormalizeURL(rawURL)
	res := entity.LinkCheckResult{URL: target}

	ctx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	reqID := uuid.New().String()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		v.logger.Warn("linkcheck.http.build_request_error", "req_id", reqID, "url", target, "error", err)
		return withError(res, err.Error())
	}
	req.Header.Set("User-Agent", v.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	v.logger.Debug("linkcheck.http.request", "req_id", reqID, "url", target)

	resp, err := v.client.Do(req)
	if err != nil {
		msg := errorMessage(ctx, err)
		v.logger.Warn("linkcheck.http.send_error", "req_id", reqID, "url", target, "error", msg, "elapsed_ms", time.Since(start).Milliseconds())
		return withError(res, msg)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			v.logger.Debug("linkcheck.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	code := resp.StatusCode
	res.StatusCode = &code
	if !reachableStatus[code] {
		v.logger.Info("linkcheck.http.response", "req_id", reqID, "url", target, "status", code, "reachable", false, "elapsed_ms", time.Since(start).Milliseconds())
		return withError(res, fmt.Sprintf("unexpected status: %s", resp.Status))
	}
	res.Reachable = true

	page, err := readPage(resp, v.cfg.MaxBodyBytes)
	if err != nil {
		// Reachable, but the body could not be scanned.
		v.logger.Warn("linkcheck.http.read_error", "req_id", reqID, "url", target, "error", err)
		return withError(res, errorMessage(ctx, err))
	}
	res.NameMatch = matchName(page, names)
	res.IDMatch = matchID(page, ids)

	v.logger.Info("linkcheck.http.response",
		"req_id", reqID,
		"url", target,
		"status", code,
		"bytes", len(page),
		"name_match", res.NameMatch,
		"id_match", res.IDMatch,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}

// matchName: every word of some candidate name occurs in the page.
func matchName(page string, names []string) bool {
	for _, name := range names {
		parts := strings.Fields(strings.ToLower(name))
		if len(parts) == 0 {
			continue
		}
		all := true
		for _, p := range parts {
			if !strings.Contains(page, p) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func matchID(page string, ids []string) bool {
	for _, id := range ids {
		if len(id) >= MinIDLength && strings.Contains(page, strings.ToLower(id)) {
			return true
		}
	}
	return false
}

func errorMessage(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return TimeoutError
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return TimeoutError
	}
	return err.Error()
}

func withError(res entity.LinkCheckResult, msg string) entity.LinkCheckResult {
	res.Error = &msg
	return res
}

func timedOut(url string) entity.LinkCheckResult {
	return withError(entity.LinkCheckResult{URL: url}, TimeoutError)
}

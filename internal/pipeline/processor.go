// Package pipeline runs one verification: fingerprint fast-path, text and QR
// extraction, evidence parsing, link checks and the final decision.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/cert-verifier/internal/common"
	"github.com/joseph-ayodele/cert-verifier/internal/decision"
	"github.com/joseph-ayodele/cert-verifier/internal/entity"
	"github.com/joseph-ayodele/cert-verifier/internal/linkcheck"
	"github.com/joseph-ayodele/cert-verifier/internal/metrics"
	"github.com/joseph-ayodele/cert-verifier/internal/ocr"
	"github.com/joseph-ayodele/cert-verifier/internal/qr"
	"github.com/joseph-ayodele/cert-verifier/internal/utils"
)

// Stages are the collaborators of a Processor. Metrics may be nil.
type Stages struct {
	Text    TextExtractor
	QR      QRExtractor
	Parser  EvidenceParser
	Links   LinkChecker
	Gate    HashGate
	Metrics *metrics.Metrics
}

// Processor is stateless between runs and safe for concurrent use.
type Processor struct {
	Logger *slog.Logger
	stages Stages
}

func NewProcessor(logger *slog.Logger, stages Stages) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, stages: stages}
}

// Verify runs the pipeline on the stored document at path. Stage failures
// degrade to missing evidence and are listed in the audit diagnostics; the
// only error returned is ctx's, in which case there is no verdict.
func (p *Processor) Verify(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	ctx = common.WithRequestID(ctx, runID)
	log := p.Logger.With("run_id", runID, "path", path)
	m := p.stages.Metrics

	res := Result{RunID: runID, Path: path}
	var diags []string

	hash, err := p.stages.Gate.Fingerprint(path)
	if err != nil {
		log.Warn("processor.fingerprint.failed", "error", err)
		diags = append(diags, "fingerprint: "+err.Error())
	} else {
		res.Fingerprint = hash
		ctx = ocr.WithContentHash(ctx, hash)

		prior, err := p.stages.Gate.Lookup(ctx, hash)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			m.ObserveHashGate("error")
			log.Warn("processor.hashgate.failed", "error", err)
			diags = append(diags, "hash lookup: "+err.Error())
		case prior != nil:
			m.ObserveHashGate("hit")
			res.Verdict = decision.HashMatch(prior)
			res.Evidence = emptyEvidence()
			res.QRPayloads = []string{}
			p.finish(&res, start, log)
			return res, nil
		default:
			m.ObserveHashGate("miss")
		}
	}

	textRes, payloads, stageDiags := p.extract(ctx, path, log)
	diags = append(diags, stageDiags...)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	parseStart := time.Now()
	ev := p.stages.Parser.Parse(textRes.Text)
	m.ObserveStage("parse", time.Since(parseStart))

	qrValues := qr.CleanPayloads(payloads)
	urls := make([]string, 0, len(ev.URLCandidates)+len(textRes.LinkURIs)+len(qrValues))
	urls = append(urls, ev.URLCandidates...)
	urls = append(urls, textRes.LinkURIs...)
	urls = append(urls, qr.FilterURLs(qrValues)...)
	ev.URLCandidates = utils.DedupeStrings(urls)
	log.Info("processor.evidence",
		"urls", len(ev.URLCandidates),
		"ids", len(ev.IDTokens),
		"names", len(ev.CandidateNames),
		"qr_payloads", len(qrValues),
	)

	linkStart := time.Now()
	checks, err := p.stages.Links.CheckAll(ctx, ev.URLCandidates, ev.CandidateNames, ev.IDTokens)
	if err != nil {
		log.Info("processor.cancelled", "stage", "linkcheck", "error", err)
		return Result{}, err
	}
	m.ObserveStage("linkcheck", time.Since(linkStart))
	m.ObserveLinkChecks(checks, linkcheck.TimeoutError)

	res.Verdict = decision.Evaluate(checks, qrValues)
	res.Evidence = normalizeEvidence(ev)
	res.QRPayloads = qrValues

	if res.Fingerprint != "" {
		prior, err := p.stages.Gate.LookupRejected(ctx, res.Fingerprint)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			diags = append(diags, "rejected lookup: "+err.Error())
		case prior != nil:
			log.Info("processor.prior_rejection", "submission_id", prior.ID)
			res.PriorRejection = prior.AsPrior()
			res.Verdict.Audit.PriorRejection = res.PriorRejection
		}
	}
	if len(diags) > 0 {
		res.Verdict.Audit.Diagnostics = diags
	}

	p.finish(&res, start, log)
	return res, nil
}

// extract runs text and QR extraction side by side. Neither failure aborts the
// run.
func (p *Processor) extract(ctx context.Context, path string, log *slog.Logger) (ocr.Result, []string, []string) {
	var (
		textRes  ocr.Result
		textErr  error
		payloads []string
		qrErr    error
		g        errgroup.Group
	)
	g.Go(func() error {
		t := time.Now()
		textRes, textErr = p.stages.Text.Extract(ctx, path)
		p.stages.Metrics.ObserveStage("text", time.Since(t))
		return nil
	})
	g.Go(func() error {
		t := time.Now()
		payloads, qrErr = p.stages.QR.Extract(ctx, path)
		p.stages.Metrics.ObserveStage("qr", time.Since(t))
		return nil
	})
	_ = g.Wait()

	var diags []string
	if textErr != nil {
		log.Warn("processor.text.failed", "error", textErr)
		diags = append(diags, "text extraction: "+textErr.Error())
		textRes = ocr.Result{}
	}
	for _, w := range textRes.Warnings {
		diags = append(diags, "text extraction warning: "+utils.Truncate(w, 512))
	}
	if qrErr != nil {
		log.Warn("processor.qr.failed", "error", qrErr)
		diags = append(diags, "qr extraction: "+qrErr.Error())
		payloads = nil
	}
	log.Debug("processor.extract.ok", "method", textRes.Method, "chars", len(textRes.Text), "qr_payloads", len(payloads))
	return textRes, payloads, diags
}

func (p *Processor) finish(res *Result, start time.Time, log *slog.Logger) {
	if res.Verdict.AutoVerified() {
		res.VerificationToken = uuid.NewString()
	}
	res.Duration = time.Since(start)
	p.stages.Metrics.ObserveVerdict(res.Verdict)
	log.Info("processor.verdict",
		"status", res.Verdict.Status,
		"mode", res.Verdict.Mode,
		"reason", res.Verdict.Reason,
		"duration_ms", res.Duration.Milliseconds(),
	)
}

func emptyEvidence() entity.ExtractionResult {
	return normalizeEvidence(entity.ExtractionResult{})
}

func normalizeEvidence(ev entity.ExtractionResult) entity.ExtractionResult {
	if ev.URLCandidates == nil {
		ev.URLCandidates = []string{}
	}
	if ev.IDTokens == nil {
		ev.IDTokens = []string{}
	}
	if ev.CandidateNames == nil {
		ev.CandidateNames = []string{}
	}
	return ev
}

// String is a short log-friendly summary.
func (r Result) String() string {
	return fmt.Sprintf("%s %s/%s %s", r.Path, r.Verdict.Status, r.Verdict.Mode, r.Verdict.Reason)
}

package export

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/cert-verifier/internal/pipeline"
	"github.com/joseph-ayodele/cert-verifier/internal/utils"
)

const (
	VerdictSheet = "Verdicts"
	FailureSheet = "Failures"

	// Excel rejects cells longer than 32767 characters.
	maxCellChars = 32000
)

var verdictHeaders = []string{
	"File Path",
	"Status",
	"Mode",
	"Reason",
	"Matched URL",
	"Fingerprint",
	"Verification Token",
	"Prior Rejection",
	"Duration (ms)",
	"Audit Trail",
}

// Failure is a document the batch could not verify at all (the run returned
// an error rather than a verdict).
type Failure struct {
	Path  string
	Error string
}

// Exporter writes batch verification results as an XLSX workbook for
// reviewers.
type Exporter struct {
	logger *slog.Logger
}

func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger}
}

// WriteXLSX renders results (and failures, if any) and streams the workbook to w.
func (e *Exporter) WriteXLSX(w io.Writer, results []pipeline.Result, failures []Failure) error {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.Warn("export.xlsx.close", "error", err)
		}
	}()

	// Rename the default sheet rather than leaving an empty Sheet1 behind.
	if err := f.SetSheetName(f.GetSheetName(0), VerdictSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeHeader(f, VerdictSheet, verdictHeaders); err != nil {
		return err
	}

	for i, r := range results {
		audit, err := r.AuditJSON()
		if err != nil {
			return fmt.Errorf("audit for %s: %w", r.Path, err)
		}
		matched := ""
		if r.Verdict.MatchedURL != nil {
			matched = *r.Verdict.MatchedURL
		}
		prior := ""
		if r.PriorRejection != nil {
			prior = fmt.Sprintf("%s (%s)", r.PriorRejection.Filename, r.PriorRejection.OwnerID)
		}
		row := []any{
			r.Path,
			string(r.Verdict.Status),
			string(r.Verdict.Mode),
			r.Verdict.Reason,
			matched,
			r.Fingerprint,
			r.VerificationToken,
			prior,
			r.Duration.Milliseconds(),
			utils.Truncate(string(audit), maxCellChars),
		}
		if err := writeRow(f, VerdictSheet, i+2, row); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(VerdictSheet, "A", "A", 48) // path
	_ = f.SetColWidth(VerdictSheet, "B", "C", 18) // status, mode
	_ = f.SetColWidth(VerdictSheet, "D", "D", 60) // reason
	_ = f.SetColWidth(VerdictSheet, "E", "E", 48) // url
	_ = f.SetColWidth(VerdictSheet, "F", "G", 40) // hash, token
	_ = f.SetColWidth(VerdictSheet, "J", "J", 80) // audit

	if len(failures) > 0 {
		if _, err := f.NewSheet(FailureSheet); err != nil {
			return fmt.Errorf("new sheet: %w", err)
		}
		if err := writeHeader(f, FailureSheet, []string{"File Path", "Error"}); err != nil {
			return err
		}
		for i, fl := range failures {
			if err := writeRow(f, FailureSheet, i+2, []any{fl.Path, fl.Error}); err != nil {
				return err
			}
		}
		_ = f.SetColWidth(FailureSheet, "A", "B", 60)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export.xlsx.ok",
		"rows", len(results),
		"failures", len(failures),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := writeRow(f, sheet, 1, row); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/cert-verifier/internal/async"
	"github.com/joseph-ayodele/cert-verifier/internal/export"
	"github.com/joseph-ayodele/cert-verifier/internal/ingest"
	"github.com/joseph-ayodele/cert-verifier/internal/pipeline"
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Verify every certificate under a directory and export an XLSX report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]
		out, _ := cmd.Flags().GetString("out")
		workers, _ := cmd.Flags().GetInt("workers")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		skipHidden, _ := cmd.Flags().GetBool("skip-hidden")
		if out == "" {
			out = filepath.Join(filepath.Dir(filepath.Clean(root)), "verdicts.xlsx")
		}

		paths, stats, err := ingest.ScanDirectory(root, skipHidden)
		if err != nil {
			return err
		}
		logger.Info("batch.scan", "root", root, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)

		ctx, stop := signalContext()
		defer stop()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var (
			mu       sync.Mutex
			results  []pipeline.Result
			failures []export.Failure
		)
		q := async.NewProcessorQueue(a.Processor, logger,
			async.WithWorkers(workers),
			async.WithProcessTimeout(timeout),
			async.WithBaseContext(ctx),
			async.WithResultHandler(func(job async.Job, res pipeline.Result, err error) {
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failures = append(failures, export.Failure{Path: job.Path, Error: err.Error()})
					return
				}
				results = append(results, res)
			}),
		)

		batchID := uuid.NewString()
		for _, p := range paths {
			if err := q.Enqueue(ctx, async.Job{Path: p, TraceID: batchID}); err != nil {
				logger.Warn("batch.enqueue.stopped", "path", p, "error", err)
				break
			}
		}
		// Drain whatever was queued. After an interrupt the remaining runs fail fast.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout*time.Duration(len(paths)+1))
		defer cancel()
		q.Shutdown(shutdownCtx)

		mu.Lock()
		defer mu.Unlock()
		sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
		sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		if err := export.NewExporter(logger).WriteXLSX(f, results, failures); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		verified := 0
		for _, r := range results {
			if r.Verdict.AutoVerified() {
				verified++
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d files: %d auto-verified, %d pending, %d failed -> %s\n",
			len(paths), verified, len(results)-verified, len(failures), out)
		return nil
	},
}

func init() {
	batchCmd.Flags().String("out", "", "output XLSX path (default: verdicts.xlsx next to <dir>)")
	batchCmd.Flags().Int("workers", 4, "documents verified concurrently")
	batchCmd.Flags().Duration("timeout", 2*time.Minute, "per-document verification timeout")
	batchCmd.Flags().Bool("skip-hidden", true, "skip hidden files and directories")
	rootCmd.AddCommand(batchCmd)
}

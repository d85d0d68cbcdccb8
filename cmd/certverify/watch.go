package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/cert-verifier/internal/async"
	"github.com/joseph-ayodele/cert-verifier/internal/ingest"
	"github.com/joseph-ayodele/cert-verifier/internal/pipeline"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>...",
	Short: "Verify certificates as they appear in the given directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		initial, _ := cmd.Flags().GetBool("initial-scan")
		debounce, _ := cmd.Flags().GetDuration("debounce")
		workers, _ := cmd.Flags().GetInt("workers")

		ctx, stop := signalContext()
		defer stop()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		q := async.NewProcessorQueue(a.Processor, logger,
			async.WithWorkers(workers),
			async.WithBaseContext(ctx),
			async.WithResultHandler(func(job async.Job, res pipeline.Result, err error) {
				if err != nil {
					return
				}
				fmt.Fprintln(out, res.String())
			}),
		)
		defer q.Shutdown(ctx)

		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       args,
			InitialScan: initial,
			Debounce:    debounce,
		}, logger)
		if err != nil {
			return err
		}
		logger.Info("watch.started", "roots", args)

		for {
			select {
			case <-ctx.Done():
				logger.Info("watch.stopped")
				return nil
			case p, ok := <-events:
				if !ok {
					return nil
				}
				if err := q.Enqueue(ctx, async.Job{Path: p}); err != nil {
					logger.Warn("watch.enqueue.failed", "path", p, "error", err)
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Warn("watch.error", "error", err)
			}
		}
	},
}

func init() {
	watchCmd.Flags().Bool("initial-scan", false, "verify files already present at startup")
	watchCmd.Flags().Duration("debounce", 500*time.Millisecond, "coalesce bursts of file events")
	watchCmd.Flags().Int("workers", 2, "documents verified concurrently")
	rootCmd.AddCommand(watchCmd)
}

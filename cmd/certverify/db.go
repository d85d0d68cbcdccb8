package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/cert-verifier/constants"
	"github.com/joseph-ayodele/cert-verifier/internal/entity"
	"github.com/joseph-ayodele/cert-verifier/internal/hashgate"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Submission store maintenance",
}

var dbPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the submission store is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DB.HealthCheck(ctx, time.Second, logger); err != nil {
			return fmt.Errorf("db health: FAIL (%w)", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "db health: OK (%s)\n", a.DB.Dialect())
		return nil
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the submissions table if it does not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DB.EnsureSchema(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "submissions schema ready")
		return nil
	},
}

var dbRecordCmd = &cobra.Command{
	Use:   "record <file>",
	Short: "Store a reviewed submission for a file (local setups and demos)",
	Long: `Record inserts a submission row with the file's fingerprint, as the review
workflow would after a decision. Later uploads of identical bytes then hit the
hash fast-path (approved statuses) or are flagged as previously rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		status, _ := cmd.Flags().GetString("status")
		reviewer, _ := cmd.Flags().GetString("reviewer")

		switch constants.SubmissionStatus(status) {
		case constants.SubmissionPending, constants.SubmissionAutoVerified,
			constants.SubmissionFacultyVerified, constants.SubmissionRejected:
		default:
			return fmt.Errorf("unknown status %q", status)
		}

		hash, err := hashgate.Fingerprint(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		rec := entity.SubmissionRecord{
			OwnerID:     owner,
			Filename:    args[0],
			ContentHash: hash,
			Status:      constants.SubmissionStatus(status),
		}
		if reviewer != "" {
			rec.ReviewerID = &reviewer
		}
		if err := a.Submissions.Insert(ctx, rec); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "recorded %s as %s\n", hash, status)
		return nil
	},
}

func init() {
	dbRecordCmd.Flags().String("owner", "local", "owner identifier")
	dbRecordCmd.Flags().String("status", string(constants.SubmissionFacultyVerified), "submission status")
	dbRecordCmd.Flags().String("reviewer", "", "reviewer identifier")

	dbCmd.AddCommand(dbPingCmd, dbMigrateCmd, dbRecordCmd)
	rootCmd.AddCommand(dbCmd)
}

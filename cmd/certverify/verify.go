package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file>...",
	Short: "Verify one or more certificate files",
	Long: `Verify runs the full pipeline on each file: hash fast-path, text and QR
extraction, issuer link checks and the decision. With --json the full result,
including the audit trail, is printed per file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx, stop := signalContext()
		defer stop()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		for _, path := range args {
			res, err := a.Processor.Verify(ctx, path)
			if err != nil {
				return fmt.Errorf("verify %s: %w", path, err)
			}
			if !asJSON {
				fmt.Fprintln(out, res.String())
				if res.VerificationToken != "" {
					fmt.Fprintf(out, "  token: %s\n", res.VerificationToken)
				}
				if res.Verdict.MatchedURL != nil {
					fmt.Fprintf(out, "  matched: %s\n", *res.Verdict.MatchedURL)
				}
				if res.PriorRejection != nil {
					fmt.Fprintf(out, "  previously rejected: %s (%s)\n", res.PriorRejection.Filename, res.PriorRejection.OwnerID)
				}
				continue
			}
			b, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().Bool("json", false, "print the full result as JSON")
	rootCmd.AddCommand(verifyCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/cert-verifier/internal/hashgate"
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <file>...",
	Short: "Print the SHA-256 fingerprint of each file",
	Long: `Fingerprint prints the content hash stored with submissions. With --lookup
the hash is also looked up among approved and rejected submissions.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lookup, _ := cmd.Flags().GetBool("lookup")
		out := cmd.OutOrStdout()

		if !lookup {
			for _, path := range args {
				h, err := hashgate.Fingerprint(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s  %s\n", h, path)
			}
			return nil
		}

		ctx, stop := signalContext()
		defer stop()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		for _, path := range args {
			h, err := a.Gate.Fingerprint(path)
			if err != nil {
				return err
			}
			state := "new"
			if rec, err := a.Gate.Lookup(ctx, h); err != nil {
				return err
			} else if rec != nil {
				state = fmt.Sprintf("approved (%s, submission %d)", rec.Status, rec.ID)
			} else if rec, err := a.Gate.LookupRejected(ctx, h); err != nil {
				return err
			} else if rec != nil {
				state = fmt.Sprintf("rejected (submission %d)", rec.ID)
			}
			fmt.Fprintf(out, "%s  %s  %s\n", h, path, state)
		}
		return nil
	},
}

func init() {
	fingerprintCmd.Flags().Bool("lookup", false, "look the fingerprint up in the submission store")
	rootCmd.AddCommand(fingerprintCmd)
}

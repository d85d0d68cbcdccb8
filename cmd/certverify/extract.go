package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/cert-verifier/internal/entity"
	"github.com/joseph-ayodele/cert-verifier/internal/qr"
)

type extractOutput struct {
	Path       string                  `json:"path"`
	Method     string                  `json:"method"`
	Pages      int                     `json:"pages"`
	Warnings   []string                `json:"warnings,omitempty"`
	LinkURIs   []string                `json:"link_uris,omitempty"`
	QRPayloads []string                `json:"qr_payloads"`
	Evidence   entity.ExtractionResult `json:"evidence"`
}

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Show the text, QR payloads and evidence extracted from a file",
	Long: `Extract runs only the extraction stages (text, QR, evidence parsing) and
prints what they found, without probing any URL. Useful when a verdict is
unexpectedly pending.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		ctx, stop := signalContext()
		defer stop()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		text, err := a.Text.Extract(ctx, path)
		if err != nil {
			return fmt.Errorf("text extraction: %w", err)
		}
		payloads, err := a.QR.Extract(ctx, path)
		if err != nil {
			logger.Warn("qr extraction failed", "path", path, "error", err)
		}

		out := extractOutput{
			Path:       path,
			Method:     text.Method,
			Pages:      text.Pages,
			Warnings:   text.Warnings,
			LinkURIs:   text.LinkURIs,
			QRPayloads: qr.CleanPayloads(payloads),
			Evidence:   a.Parser.Parse(text.Text),
		}
		if out.QRPayloads == nil {
			out.QRPayloads = []string{}
		}
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"codexgen/internal/domain"
	"codexgen/internal/generation"
)

func newGenerateCmd() *cobra.Command {
	var (
		flags   runFlags
		outPath string
		compact bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print the job payloads for a batch as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := flags.load(ctx, cmd)
			if err != nil {
				return err
			}
			payloads, err := generatePayloads(cmd, s, &flags)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return writePayloads(out, payloads, !compact)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write payloads to this file instead of stdout")
	cmd.Flags().BoolVar(&compact, "compact", false, "Emit compact JSON")
	return cmd
}

func generatePayloads(cmd *cobra.Command, s *session, flags *runFlags) ([]domain.Payload, error) {
	engine, err := generation.New(generation.Options{
		Config: s.runtime.Generation,
		Seed:   flags.seedPtr(),
		Logger: s.logger,
	})
	if err != nil {
		return nil, err
	}
	return engine.Generate(cmd.Context(), s.runtime.Params, s.runtime.Corpus, flags.images)
}

func writePayloads(w io.Writer, payloads []domain.Payload, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	if payloads == nil {
		payloads = []domain.Payload{}
	}
	return enc.Encode(payloads)
}

package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"codexgen/internal/comfy"
	"codexgen/internal/dispatch"
	"codexgen/internal/metrics"
	"codexgen/internal/storage"
	"codexgen/pkg/zip"
)

func newRunCmd() *cobra.Command {
	var (
		flags        runFlags
		workflowPath string
		promptNode   string
		outputDir    string
		address      string
		archivePath  string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate payloads, submit them to the job server and save the images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := flags.load(ctx, cmd)
			if err != nil {
				return err
			}
			if workflowPath == "" {
				workflowPath = s.cfg.ComfyWorkflowPath
			}
			if workflowPath == "" {
				return errors.New("a workflow is required: set COMFY_WORKFLOW_PATH or --workflow")
			}
			if promptNode == "" {
				promptNode = s.cfg.ComfyPromptNode
			}
			if outputDir == "" {
				outputDir = s.cfg.StoragePath
			}
			if address == "" {
				address = s.cfg.ComfyAddress
			}

			wf, err := comfy.LoadWorkflow(workflowPath)
			if err != nil {
				return err
			}
			store, err := storage.NewFileStore(outputDir)
			if err != nil {
				return err
			}
			client, err := comfy.NewClient(comfy.Options{Address: address, Logger: s.logger})
			if err != nil {
				return err
			}
			transport := comfy.NewTransport(client, wf, promptNode)
			defer transport.Close()

			payloads, err := generatePayloads(cmd, s, &flags)
			if err != nil {
				return err
			}
			results, err := dispatch.New(transport, store, metrics.New(), s.logger).Run(ctx, payloads)
			saved := 0
			for _, r := range results {
				saved += len(r.Keys)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d/%d jobs dispatched, %d images saved to %s\n", len(results), len(payloads), saved, store.BasePath())
			if archivePath != "" && saved > 0 {
				if aerr := zip.WriteFile(archivePath, archiveEntries(store.BasePath(), results)); aerr != nil {
					return errors.Join(err, aerr)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "archive written to %s\n", archivePath)
			}
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&workflowPath, "workflow", "w", "", "API-format workflow file (overrides COMFY_WORKFLOW_PATH)")
	cmd.Flags().StringVar(&promptNode, "prompt-node", "", "Workflow node receiving the prompt text (overrides COMFY_PROMPT_NODE)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for downloaded images (overrides STORAGE_PATH)")
	cmd.Flags().StringVar(&address, "server", "", "Job server host:port (overrides COMFY_SERVER_ADDRESS)")
	cmd.Flags().StringVar(&archivePath, "archive", "", "Also bundle the saved images and their metadata into this zip file")
	cmd.MarkFlagFilename("workflow", "json")
	cmd.MarkFlagDirname("output")
	return cmd
}

// archiveEntries lists every saved image followed by its metadata sidecar.
func archiveEntries(base string, results []dispatch.Result) []zip.Entry {
	var entries []zip.Entry
	for _, r := range results {
		for _, key := range r.Keys {
			entries = append(entries,
				zip.Entry{Name: key, Path: filepath.Join(base, filepath.FromSlash(key))},
				zip.Entry{Name: key + ".json", Path: filepath.Join(base, filepath.FromSlash(key)+".json")},
			)
		}
	}
	return entries
}

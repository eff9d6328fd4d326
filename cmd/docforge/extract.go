package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cuongbtq/docforge/internal/extraction"
	"github.com/cuongbtq/docforge/internal/storage"
	"github.com/spf13/cobra"
)

func newExtractCmd(opts *rootOptions) *cobra.Command {
	var (
		method string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "extract <file.pdf>",
		Short: "Extract text, tables and images from a PDF into a zip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			if !strings.EqualFold(filepath.Ext(input), ".pdf") {
				return fmt.Errorf("%s: only PDF files are supported", input)
			}

			kind, err := extraction.ParseEngineKind(method)
			if err != nil {
				return err
			}

			_, services, closeFn, err := opts.setup()
			if err != nil {
				return err
			}
			defer closeFn()

			id := services.Allocator.NewJobID()
			bundle, err := services.Pipeline.Extract(cmd.Context(), input, id, kind)
			if err != nil {
				return err
			}
			defer os.RemoveAll(bundle.Root)

			if out == "" {
				stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
				out = "extracted_" + stem + ".zip"
			}
			if err := storage.ZipDir(bundle.Root, out); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s -> %s (%s)\n", input, out, extraction.SummaryHeader(bundle))
			if bundle.Summary != nil {
				for _, note := range bundle.Summary.Notes {
					fmt.Fprintf(w, "note: %s\n", note)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&method, "method", "m", string(extraction.EngineDocling), "Extraction engine: docling or unstructured")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Zip file to write (default extracted_<name>.zip)")
	return cmd
}

package cmd

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/abhisek/campus/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Store a course document and index its text for the assistant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")

		e, err := openEnv(cmd, "")
		if err != nil {
			return err
		}
		defer e.Close()

		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		ctx := cmd.Context()
		svc, err := e.newIngest(ctx)
		if err != nil {
			return err
		}
		res, err := svc.Ingest(ctx, ingest.Request{
			File: ingest.File{
				Name: filepath.Base(path),
				Type: mimetype.Detect(data).String(),
				Size: int64(len(data)),
				Data: base64.StdEncoding.EncodeToString(data),
			},
			Category: category,
			UserID:   e.cfg.UserID,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	ingestCmd.Flags().String("category", "general", "Folder the document is filed under")
}

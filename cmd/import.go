package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/campus/internal/catalog"
)

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import formation documents",
	Long:  "Import validates each formation JSON document and replaces the stored content of that formation. Learner progress is kept.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, "")
		if err != nil {
			return err
		}
		defer e.Close()

		for _, path := range args {
			f, err := decodeFile(path)
			if err != nil {
				return err
			}
			if err := e.st.SaveFormation(cmd.Context(), f); err != nil {
				return fmt.Errorf("save %s: %w", f.ID, err)
			}
			e.log.Info("formation imported", "formation", f.ID, "file", path)
			fmt.Printf("Imported %s (%s): %d blocks\n", f.ID, f.Title, len(f.Blocks))
		}
		return nil
	},
}

func decodeFile(path string) (catalog.Formation, error) {
	fh, err := os.Open(path)
	if err != nil {
		return catalog.Formation{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()

	f, err := catalog.Decode(fh)
	if err != nil {
		return catalog.Formation{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

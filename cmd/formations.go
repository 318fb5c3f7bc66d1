package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var formationsCmd = &cobra.Command{
	Use:   "formations",
	Short: "List imported formations and your enrollment in each",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, "")
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		list, err := e.st.ListFormations(ctx)
		if err != nil {
			return fmt.Errorf("list formations: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No formations imported. Try `campus import <file>`.")
			return nil
		}

		enrolled, err := e.st.ListFormationEnrollments(ctx, e.cfg.UserID)
		if err != nil {
			return fmt.Errorf("list enrollments: %w", err)
		}
		status := make(map[string]string, len(enrolled))
		for _, fe := range enrolled {
			status[fe.FormationID] = fmt.Sprintf("%.2f%% %s", fe.Progress, fe.Status)
		}

		fmt.Printf("%-20s  %-32s  %6s  %-19s  %s\n", "ID", "Title", "Blocks", "Imported", "Enrollment")
		fmt.Println(strings.Repeat("─", 100))
		for _, f := range list {
			st, ok := status[f.ID]
			if !ok {
				st = "-"
			}
			fmt.Printf("%-20s  %-32s  %6d  %-19s  %s\n",
				f.ID, truncate(f.Title, 32), f.Blocks, f.ImportedAt.Local().Format("2006-01-02 15:04:05"), st)
		}
		return nil
	},
}

var enrollCmd = &cobra.Command{
	Use:   "enroll <formation>",
	Short: "Enroll in a formation and every block in it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, "")
		if err != nil {
			return err
		}
		defer e.Close()

		fe, err := e.writer.Enroll(cmd.Context(), e.cfg.UserID, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s enrolled in %s (%s, %.2f%%)\n", fe.UserID, fe.FormationID, fe.Status, fe.Progress)
		return nil
	},
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

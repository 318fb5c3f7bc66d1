package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset learner data",
	Long:  "Reset deletes the learner's enrollments, lesson progress, quiz attempts, skill scores and snapshots. Imported content and the event log are kept.",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		e, err := openEnv(cmd, "")
		if err != nil {
			return err
		}
		defer e.Close()

		if !yes {
			fmt.Printf("Delete all progress for %q? [y/N] ", e.cfg.UserID)
			line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(line)); a != "y" && a != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := e.st.ResetLearner(cmd.Context(), e.cfg.UserID); err != nil {
			return fmt.Errorf("reset %s: %w", e.cfg.UserID, err)
		}
		e.log.Info("learner reset", "user", e.cfg.UserID)
		fmt.Printf("Progress for %s deleted.\n", e.cfg.UserID)
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

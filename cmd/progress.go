package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/campus/internal/enrollment"
)

var progressCmd = &cobra.Command{
	Use:   "progress <formation>",
	Short: "Show progress through a formation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		refresh, _ := cmd.Flags().GetBool("refresh")

		e, err := openEnv(cmd, "")
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		if refresh {
			res, err := e.writer.RefreshFormation(ctx, e.cfg.UserID, args[0])
			if err != nil {
				return err
			}
			if !asJSON {
				fmt.Printf("Recomputed %s: %.2f%% (%s)\n\n", res.FormationID, res.Progress, res.Status)
			}
		}

		rep, err := e.reader.FormationReport(ctx, e.cfg.UserID, args[0])
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}
		printReport(rep)
		return nil
	},
}

func init() {
	progressCmd.Flags().Bool("json", false, "Print the report as JSON")
	progressCmd.Flags().Bool("refresh", false, "Recompute and store progress before reporting")
}

func printReport(rep *enrollment.Report) {
	status := "not enrolled"
	if rep.Enrolled {
		status = rep.Status
	}
	fmt.Printf("%s  %.2f%%  %s\n", rep.Title, rep.Progress, status)
	fmt.Println(strings.Repeat("─", 72))

	for _, b := range rep.Blocks {
		mark := " "
		if b.Passed {
			mark = "✓"
		}
		fmt.Printf("%s %-40s %7.2f%%  %s\n", mark, truncate(b.Name, 40), b.Progress, b.Kind)
		for _, sk := range b.Skills {
			fmt.Printf("    %-38s %7.2f%%  %d attempts\n", truncate(sk.Name, 38), sk.Score, sk.Attempts)
		}
		for _, ch := range b.Chapters {
			fmt.Printf("    %-38s %7.2f%%  %d/%d lessons\n",
				truncate(ch.Title, 38), ch.Progress, ch.CompletedLessons, ch.TotalLessons)
			if ch.Quiz != nil {
				fmt.Printf("      %s\n", quizLine(ch.Quiz))
			}
		}
		if b.Quiz != nil {
			fmt.Printf("    %s\n", quizLine(b.Quiz))
		}
	}
}

func quizLine(q *enrollment.QuizReport) string {
	if q.Best == nil {
		return fmt.Sprintf("quiz %s: not attempted", q.ID)
	}
	line := fmt.Sprintf("quiz %s: best %d", q.ID, *q.Best)
	if q.Latest != nil {
		line += fmt.Sprintf(", latest %d", *q.Latest)
	}
	line += fmt.Sprintf(", %d attempts", q.Attempts)
	if q.Passed {
		line += ", passed"
	}
	return line
}

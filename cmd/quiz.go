package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/campus/internal/catalog"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Inspect quiz results",
}

var quizAttemptsCmd = &cobra.Command{
	Use:   "attempts <quiz>",
	Short: "List your attempts at a quiz, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, "")
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		q, err := e.st.GetQuiz(ctx, e.cfg.UserID, args[0])
		if err != nil {
			return err
		}
		attempts, err := e.st.ListQuizAttempts(ctx, e.cfg.UserID, args[0])
		if err != nil {
			return fmt.Errorf("list attempts: %w", err)
		}

		fmt.Printf("%s (%d questions)\n", q.Title, len(q.Questions))
		if len(attempts) == 0 {
			fmt.Println("No attempts yet.")
			return nil
		}
		if q.BestScore != nil {
			verdict := fmt.Sprintf("below the pass mark of %d", catalog.PassThreshold)
			if q.Passed() {
				verdict = "passed"
			}
			fmt.Printf("Best score %d, %s\n", *q.BestScore, verdict)
		}

		fmt.Println(strings.Repeat("─", 56))
		fmt.Printf("%-36s  %-19s  %5s\n", "Attempt", "Taken", "Score")
		fmt.Println(strings.Repeat("─", 56))
		for _, a := range attempts {
			fmt.Printf("%-36s  %-19s  %5d\n", a.ID, a.CreatedAt.Local().Format("2006-01-02 15:04:05"), a.Score)
		}
		return nil
	},
}

func init() {
	quizCmd.AddCommand(quizAttemptsCmd)
}

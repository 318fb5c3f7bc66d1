package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lessonCmd = &cobra.Command{
	Use:   "lesson",
	Short: "Record lesson progress",
}

var lessonCompleteCmd = &cobra.Command{
	Use:   "complete <lesson>",
	Short: "Mark a lesson complete and recompute chapter and block progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chapterID, _ := cmd.Flags().GetString("chapter")
		blockID, _ := cmd.Flags().GetString("block")

		e, err := openEnv(cmd, "")
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := e.writer.ApplyLessonCompletion(cmd.Context(), e.cfg.UserID, args[0], chapterID, blockID)
		if err != nil {
			return err
		}
		if res.AlreadyCompleted {
			fmt.Printf("Lesson %s was already complete.\n", args[0])
		}
		fmt.Printf("Chapter %s: %.2f%%\n", chapterID, res.ChapterProgress)
		fmt.Printf("Block %s:   %.2f%%\n", blockID, res.BlockProgress)
		if res.BlockCompleted {
			fmt.Println("Block complete.")
		}
		return nil
	},
}

func init() {
	lessonCompleteCmd.Flags().String("chapter", "", "Chapter the lesson belongs to")
	lessonCompleteCmd.Flags().String("block", "", "Block the chapter belongs to")
	lessonCompleteCmd.MarkFlagRequired("chapter")
	lessonCompleteCmd.MarkFlagRequired("block")

	lessonCmd.AddCommand(lessonCompleteCmd)
}

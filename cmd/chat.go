package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/campus/internal/relay"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask the study assistant",
	Long: "With a message, chat sends one turn and prints the reply. Without one it reads " +
		"questions from stdin until EOF, keeping the same session.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		history, _ := cmd.Flags().GetBool("history")

		e, err := openEnv(cmd, "")
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		rl, err := e.newRelay(ctx)
		if err != nil {
			return err
		}

		send := func(req relay.Request) error {
			req.UserID = e.cfg.UserID
			req.SessionID = sessionID
			resp, err := rl.Chat(ctx, req)
			if err != nil {
				var upErr *relay.UpstreamError
				if errors.As(err, &upErr) {
					return errors.New(upErr.Message())
				}
				return err
			}
			if resp.SessionID != "" {
				sessionID = resp.SessionID
			}
			fmt.Println(resp.Response)
			return nil
		}

		if history {
			if sessionID == "" {
				return errors.New("--history needs --session")
			}
			return send(relay.Request{Action: relay.ActionLoadPreviousSession})
		}
		if len(args) == 1 {
			if err := send(relay.Request{Action: relay.ActionSendMessage, ChatInput: args[0]}); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "session:", sessionID)
			return nil
		}

		sc := bufio.NewScanner(os.Stdin)
		fmt.Fprint(os.Stderr, "› ")
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line != "" {
				if err := send(relay.Request{Action: relay.ActionSendMessage, ChatInput: line}); err != nil {
					fmt.Fprintln(os.Stderr, "error:", err)
				}
			}
			fmt.Fprint(os.Stderr, "› ")
		}
		fmt.Fprintln(os.Stderr)
		return sc.Err()
	},
}

func init() {
	chatCmd.Flags().String("session", "", "Continue an existing session")
	chatCmd.Flags().Bool("history", false, "Print the stored transcript of --session")
}

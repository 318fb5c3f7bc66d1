package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/campus/internal/llm"
	"github.com/abhisek/campus/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recent LLM, chat and ingestion events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		kind, _ := cmd.Flags().GetString("kind")

		e, err := openEnv(cmd, "")
		if err != nil {
			return err
		}
		defer e.Close()

		events, err := e.st.QueryEvents(cmd.Context(), store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No events found.")
			return nil
		}

		fmt.Printf("%-5s  %-19s  %-8s  %-28s  %-6s  %-6s  %-7s  %-9s  %s\n",
			"Seq", "Timestamp", "Kind", "Name", "In", "Out", "Ms", "Cost", "OK")
		fmt.Println(strings.Repeat("─", 108))

		var totalCost float64
		for _, ev := range events {
			if kind != "" && ev.Kind != kind {
				continue
			}
			ok := "✓"
			if !ev.Success {
				ok = "✗"
			}
			cost := "-"
			if c := llm.LookupCost(ev.Model); ev.Kind == "llm" && c != nil {
				usd := c.Cost(ev.InputTokens, ev.OutputTokens)
				totalCost += usd
				cost = fmt.Sprintf("$%.4f", usd)
			}
			fmt.Printf("%-5d  %-19s  %-8s  %-28s  %-6d  %-6d  %-7d  %-9s  %s\n",
				ev.Sequence,
				ev.Timestamp.Local().Format("2006-01-02 15:04:05"),
				ev.Kind,
				truncate(ev.Name, 28),
				ev.InputTokens,
				ev.OutputTokens,
				ev.LatencyMs,
				cost,
				ok,
			)
			if !ev.Success && ev.Error != "" {
				fmt.Printf("       %s\n", truncate(ev.Error, 100))
			}
		}

		if totalCost > 0 {
			fmt.Println(strings.Repeat("─", 108))
			fmt.Printf("Estimated LLM cost: $%.4f\n", totalCost)
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().Int("limit", 50, "Maximum number of events to show")
	eventsCmd.Flags().String("kind", "", "Only show events of this kind (llm or function)")
}

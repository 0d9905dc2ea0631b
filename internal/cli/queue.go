package cli

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

// NewQueueCmd создаёт группу команд для очереди.
func NewQueueCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the job queue",
	}

	cmd.AddCommand(newQueueStatsCmd(clientFn, outputFn))

	return cmd
}

func newQueueStatsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show job counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			stats, err := client.QueueStats(cmd.Context())
			if err != nil {
				return err
			}

			var rows [][]string
			rows = appendSection(rows, "datasets", stats.Datasets)
			rows = appendSection(rows, "splits", stats.Splits)

			out.Print([]string{"SECTION", "STATUS", "COUNT"}, rows, stats)
			if !out.IsJSON() {
				out.Success("as of " + stats.CreatedAt)
			}
			return nil
		},
	}
}

func appendSection(rows [][]string, section string, counts map[string]int) [][]string {
	statuses := make([]string, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)

	for _, s := range statuses {
		rows = append(rows, []string{section, s, strconv.Itoa(counts[s])})
	}
	return rows
}

package cli

import (
	"github.com/spf13/cobra"
)

// NewCacheCmd создаёт группу команд для чтения кэша.
func NewCacheCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Read cached responses",
	}

	cmd.AddCommand(
		newCacheSplitsCmd(clientFn, outputFn),
		newCacheFirstRowsCmd(clientFn, outputFn),
	)

	return cmd
}

func newCacheSplitsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "splits DATASET",
		Short: "Show the split list of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := clientFn().Splits(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			outputFn().Raw(body)
			return nil
		},
	}
}

func newCacheFirstRowsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "first-rows DATASET CONFIG SPLIT",
		Short: "Show the first rows of a split",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := clientFn().FirstRows(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			outputFn().Raw(body)
			return nil
		},
	}
}

// dspreview CLI — инструмент командной строки для очереди и кэша
// через HTTP API.
//
// Использование:
//
//	dspreview [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	queue  Статистика очереди
//	job    Управление задачами
//	cache  Чтение закэшированных ответов
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/dspreview/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	defaultURL := "http://localhost:8080"
	if v := os.Getenv("DSPREVIEW_API_URL"); v != "" {
		defaultURL = v
	}

	rootCmd := &cobra.Command{
		Use:           "dspreview",
		Short:         "dspreview CLI — dataset preview queue and cache",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewQueueCmd(clientFn, outputFn),
		cli.NewJobCmd(clientFn, outputFn),
		cli.NewCacheCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zoobzio/interceptz"
)

var (
	version = "0.1.0"
	rootCmd = &cobra.Command{
		Use:   "interceptz",
		Short: "Interceptor chain demos and benchmarks",
		Long: `interceptz is a CLI tool for exploring interceptor chains.

Watch the order interceptors run in for every operation shape, and
measure what chain caching buys on repeated dispatch.`,
		Version: version,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(benchmarkCmd)
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all operation shapes",
	Long:  "Display the operation shapes a pipeline can dispatch.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Operation shapes:")
		fmt.Println()
		for _, shape := range interceptz.Shapes() {
			kind := "sync"
			if shape.IsAsync() {
				kind = "async"
			}
			fmt.Printf("  %-24s %s\n", shape, kind)
		}
	},
}

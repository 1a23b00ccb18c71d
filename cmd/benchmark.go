package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"
	"github.com/zoobzio/interceptz"
)

var (
	benchCalls int
	benchDepth int
	benchGo    bool
	benchTime  string

	benchmarkCmd = &cobra.Command{
		Use:     "benchmark",
		Aliases: []string{"bench"},
		Short:   "Compare cold and warm dispatch",
		Long: `Measure dispatch through an interceptor chain when every call
builds its chain (cold) against calls served from the chain cache (warm).

Special options:
  --go        Run the package's go test benchmarks instead`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if benchGo {
				return runGoBenchmarks(benchTime)
			}
			return runBenchmark(cmd.Context(), benchCalls, benchDepth)
		},
	}
)

func init() {
	benchmarkCmd.Flags().IntVar(&benchCalls, "calls", 100000, "Number of calls per measurement")
	benchmarkCmd.Flags().IntVar(&benchDepth, "depth", 5, "Number of interceptors in the chain")
	benchmarkCmd.Flags().BoolVar(&benchGo, "go", false, "Run go test benchmarks")
	benchmarkCmd.Flags().StringVar(&benchTime, "time", "2s", "Benchmark duration per test with --go")
}

func benchInterceptors(depth int) []interceptz.Interceptor {
	out := make([]interceptz.Interceptor, 0, depth)
	for i := 0; i < depth; i++ {
		out = append(out, interceptz.Passthrough(fmt.Sprintf("p%d", i)))
	}
	return out
}

func benchTerminal() *interceptz.Terminal {
	term := interceptz.NewTerminal()
	interceptz.HandleAsyncValue(term, func(_ context.Context, _ interceptz.Request) (int, error) {
		return 1, nil
	})
	return term
}

func runBenchmark(ctx context.Context, calls, depth int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if calls <= 0 {
		return fmt.Errorf("calls must be positive")
	}
	interceptors := benchInterceptors(depth)
	term := benchTerminal()

	fmt.Println(colorCyan + "\n═══ DISPATCH BENCHMARK ═══" + colorReset)
	fmt.Printf("%d calls through %d interceptors\n\n", calls, depth)

	start := time.Now()
	for i := 0; i < calls; i++ {
		p, err := interceptz.NewPipeline("cold", term, interceptors...)
		if err != nil {
			return err
		}
		if _, err := interceptz.ExecuteAsync[int](ctx, p, nil); err != nil {
			return err
		}
	}
	cold := time.Since(start)

	p, err := interceptz.NewPipeline("warm", term, interceptors...)
	if err != nil {
		return err
	}
	start = time.Now()
	for i := 0; i < calls; i++ {
		if _, err := interceptz.ExecuteAsync[int](ctx, p, nil); err != nil {
			return err
		}
	}
	warm := time.Since(start)

	m := p.Metrics()
	fmt.Printf("  %-6s %12s  %10s/call\n", "cold", cold, cold/time.Duration(calls))
	fmt.Printf("  %-6s %12s  %10s/call\n", "warm", warm, warm/time.Duration(calls))
	fmt.Printf(colorGray+"\n  warm session: %.0f builds, %.0f cache hits"+colorReset+"\n",
		m.Counter(interceptz.PipelineChainBuilds).Value(),
		m.Counter(interceptz.PipelineCacheHits).Value())
	return nil
}

func runGoBenchmarks(duration string) error {
	fmt.Println(colorCyan + "\n═══ GO BENCHMARKS ═══" + colorReset)
	cmd := exec.Command("go", "test", "-bench", ".", "-benchtime", duration, "-run", "^$", "../", "../testing/benchmarks/...")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}
	return nil
}

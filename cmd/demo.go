package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/zoobzio/interceptz"
)

var (
	demoDepth int

	demoCmd = &cobra.Command{
		Use:   "demo [shape...]",
		Short: "Show interceptor ordering",
		Long: `Dispatch one call per operation shape through a chain of spy
interceptors and print the order they ran in.

When run without arguments, every shape is shown. Run 'interceptz list'
for the shape names.`,
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			var completions []string
			for _, shape := range interceptz.Shapes() {
				if strings.HasPrefix(shape.String(), toComplete) {
					completions = append(completions, shape.String())
				}
			}
			return completions, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			shapes, err := parseShapes(args)
			if err != nil {
				return err
			}
			return runDemo(cmd.Context(), shapes, demoDepth)
		},
	}
)

func init() {
	demoCmd.Flags().IntVar(&demoDepth, "depth", 3, "Number of interceptors in the chain")
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[37m"
)

func parseShapes(args []string) ([]interceptz.Shape, error) {
	if len(args) == 0 {
		return interceptz.Shapes(), nil
	}
	byName := make(map[string]interceptz.Shape)
	for _, shape := range interceptz.Shapes() {
		byName[shape.String()] = shape
	}
	out := make([]interceptz.Shape, 0, len(args))
	for _, arg := range args {
		shape, ok := byName[arg]
		if !ok {
			return nil, fmt.Errorf("unknown shape: %s\n\nRun 'interceptz list' to see available shapes", arg)
		}
		out = append(out, shape)
	}
	return out, nil
}

// steps records the order in which the chain ran.
type steps struct {
	mu  sync.Mutex
	log []string
}

func (s *steps) add(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, step)
}

func (s *steps) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = nil
}

func (s *steps) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.log, " -> ")
}

func spy(name string, rec *steps) interceptz.Interceptor {
	return interceptz.Around(name, func(_ context.Context, _ interceptz.Call, proceed func() error) error {
		rec.add(name)
		err := proceed()
		rec.add(name)
		return err
	})
}

func demoTerminal(rec *steps) *interceptz.Terminal {
	term := interceptz.NewTerminal()
	interceptz.HandleValue(term, func(interceptz.Request) (int, error) {
		rec.add("terminal")
		return 42, nil
	})
	interceptz.HandleSequence(term, func(interceptz.Request) (interceptz.Seq[int], error) {
		rec.add("terminal")
		return interceptz.SeqOf(1, 2, 3), nil
	})
	interceptz.HandleAsyncValue(term, func(ctx context.Context, _ interceptz.Request) (int, error) {
		rec.add("terminal")
		return 42, ctx.Err()
	})
	interceptz.HandleAsyncSequence(term, func(ctx context.Context, _ interceptz.Request) (*interceptz.Stream[int], error) {
		rec.add("terminal")
		return interceptz.StreamOf(1, 2, 3), ctx.Err()
	})
	return term
}

func runDemo(ctx context.Context, shapes []interceptz.Shape, depth int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if depth < 0 {
		return fmt.Errorf("depth must not be negative")
	}

	rec := &steps{}
	reg := interceptz.NewRegistry("demo")
	defer func() { _ = reg.Close() }()
	for i := 1; i <= depth; i++ {
		if err := reg.Register(spy(fmt.Sprintf("i%d", i), rec)); err != nil {
			return err
		}
	}
	p, err := reg.Session(demoTerminal(rec))
	if err != nil {
		return err
	}

	fmt.Println(colorCyan + "\n═══ INTERCEPTOR ORDERING ═══" + colorReset)
	for _, shape := range shapes {
		rec.reset()
		result, err := dispatchShape(ctx, p, shape)
		if err != nil {
			return fmt.Errorf("%s: %w", shape, err)
		}
		fmt.Printf("%s%-24s%s %s\n", colorYellow, shape, colorReset, rec)
		fmt.Printf("%s%-24s result: %v%s\n", colorGray, "", result, colorReset)
	}
	fmt.Printf(colorGreen+"\n%d chains cached"+colorReset+"\n", p.CachedChains())
	return nil
}

// dispatchShape drives one call of the given shape through the typed entry
// points, running compiled callables once so the terminal shows up.
func dispatchShape(ctx context.Context, p *interceptz.Pipeline, shape interceptz.Shape) (any, error) {
	params := interceptz.Params{"id": 1}
	switch shape {
	case interceptz.ShapeValue:
		return interceptz.Execute[int](p, nil)
	case interceptz.ShapeSequence:
		seq, err := interceptz.Execute[interceptz.Seq[int]](p, nil)
		if err != nil {
			return nil, err
		}
		return interceptz.Collect(seq)
	case interceptz.ShapeAsyncValue:
		return interceptz.ExecuteAsync[int](ctx, p, nil)
	case interceptz.ShapeAsyncSequence:
		s, err := interceptz.ExecuteAsync[*interceptz.Stream[int]](ctx, p, nil)
		if err != nil {
			return nil, err
		}
		return interceptz.CollectStream(ctx, s)
	case interceptz.ShapeCompiledValue:
		q, err := interceptz.Compile[int](p, nil)
		if err != nil {
			return nil, err
		}
		return q(params)
	case interceptz.ShapeCompiledSequence:
		q, err := interceptz.Compile[interceptz.Seq[int]](p, nil)
		if err != nil {
			return nil, err
		}
		seq, err := q(params)
		if err != nil {
			return nil, err
		}
		return interceptz.Collect(seq)
	case interceptz.ShapeCompiledAsyncValue:
		q, err := interceptz.CompileAsync[int](p, nil)
		if err != nil {
			return nil, err
		}
		return q(ctx, params)
	case interceptz.ShapeCompiledAsyncSequence:
		q, err := interceptz.CompileAsync[*interceptz.Stream[int]](p, nil)
		if err != nil {
			return nil, err
		}
		s, err := q(ctx, params)
		if err != nil {
			return nil, err
		}
		return interceptz.CollectStream(ctx, s)
	}
	return nil, fmt.Errorf("unknown shape %s", shape)
}

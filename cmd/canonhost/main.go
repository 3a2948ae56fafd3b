// Command canonhost is a manual/integration-testing harness that plays
// the "external collaborator" host embedder role described in the
// canonical ABI: it wires a CanonicalOptions (memory, realloc, string
// encoding) around JSON-described test vectors and drives them through
// canon.Runtime.Lift. It is explicitly not a core execution engine — it
// never parses or runs actual core wasm bytecode.
package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/component-model/canon-abi/canon"
	"github.com/component-model/canon-abi/internal/task"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "canonhost",
		Short: "host-embedder harness for the canonical ABI runtime",
	}
	root.AddCommand(vectorsCmd())
	return root
}

func vectorsCmd() *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "vectors <file.json>",
		Short: "run a JSON file of lift/lower test vectors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			vf, err := loadVectorFile(data)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			metrics := task.NewMetrics(reg)
			rt := canon.NewRuntime(metrics)
			inst := rt.NewInstance()

			// Each vector gets its own goroutine via errgroup, modeling the
			// "fake blocking host I/O" a real embedder's test harness would
			// run concurrently while the single-threaded-cooperative
			// scheduler drives each vector's own Task independently.
			var g errgroup.Group
			if concurrency > 0 {
				g.SetLimit(concurrency)
			}
			results := make([]string, len(vf.Vectors))
			for i, v := range vf.Vectors {
				i, v := i, v
				g.Go(func() error {
					out, err := runVector(rt, inst, v)
					if err != nil {
						results[i] = fmt.Sprintf("%s: TRAP: %v", v.Name, err)
						return nil
					}
					results[i] = out
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "max vectors run concurrently")
	return cmd
}

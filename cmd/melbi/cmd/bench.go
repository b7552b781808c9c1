package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	benchFile string
	benchIter int
)

var benchCmd = &cobra.Command{
	Use:   "bench [expression]",
	Short: "Repeatedly run a melbi expression and report timing",
	Long: `bench compiles an expression once, then runs it --iterations times
and reports wall-clock and (where the platform supports it) CPU time
per run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().StringVarP(&benchFile, "file", "f", "", "read the expression from a file instead of an argument")
	benchCmd.Flags().IntVarP(&benchIter, "iterations", "n", 1000, "number of runs")
}

func runBench(c *cobra.Command, args []string) error {
	source, err := readSource(args, benchFile)
	if err != nil {
		return err
	}
	if benchIter <= 0 {
		return fmt.Errorf("--iterations must be positive, got %d", benchIter)
	}

	e, err := newStdlibEngine()
	if err != nil {
		renderError(err)
		return errSilent
	}

	ce, err := e.Compile(source, nil)
	if err != nil {
		renderError(err)
		return errSilent
	}

	ro, err := runOptionsFromFlags()
	if err != nil {
		return err
	}

	cpuBefore, cpuSupported := readCPUTime()
	wallStart := time.Now()

	for i := 0; i < benchIter; i++ {
		if _, err := ce.Run(nil, ro); err != nil {
			renderError(err)
			return errSilent
		}
	}

	wall := time.Since(wallStart)
	fmt.Fprintf(os.Stdout, "runs:       %d\n", benchIter)
	fmt.Fprintf(os.Stdout, "wall total: %s\n", wall)
	fmt.Fprintf(os.Stdout, "wall/run:   %s\n", wall/time.Duration(benchIter))
	if cpuSupported {
		cpuAfter, _ := readCPUTime()
		cpu := cpuAfter - cpuBefore
		fmt.Fprintf(os.Stdout, "cpu total:  %s\n", cpu)
		fmt.Fprintf(os.Stdout, "cpu/run:    %s\n", cpu/time.Duration(benchIter))
	}
	return nil
}

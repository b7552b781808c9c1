package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// errSilent marks an error whose diagnostics were already rendered by
// renderError, so cobra's own "Error: ..." line and usage dump stay
// out of the way.
var errSilent = errors.New("melbi: diagnostics already rendered")

var (
	// Version info — set by ldflags during release builds.
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	maxDepth      int
	maxIterations uint64
	mode          string
	outputFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "melbi",
	Short: "melbi is an embeddable, statically typed expression language",
	Long: `melbi compiles and runs small typed expressions: arithmetic, records,
arrays, maps, pattern matching, and closures, with a bytecode VM and a
tree-walking evaluator that can cross-validate each other.`,
	Version: Version,
}

// Execute runs the root command. A returned error means the process
// should exit non-zero; errSilent means diagnostics were already
// printed by a subcommand and cobra must not print anything further.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errSilent) {
		fmt.Fprintln(rootCmd.ErrOrStderr(), err)
	}
	return err
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().IntVar(&maxDepth, "max-depth", 1000, "maximum call depth")
	rootCmd.PersistentFlags().Uint64Var(&maxIterations, "max-iterations", 0, "maximum instructions executed (0 = unbounded)")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", "both", "execution backend: vm, tree, or both")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "diagnostic output format: text or yaml")
}

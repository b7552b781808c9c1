package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var evalFile string

var evalCmd = &cobra.Command{
	Use:   "eval [expression]",
	Short: "Compile and run a melbi expression",
	Long: `eval compiles a melbi expression and runs it, printing the result.

The expression can be given inline as an argument, or read from a file
with --file. eval accepts no parameters: the compiled expression must
be a closed, zero-argument program.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().StringVarP(&evalFile, "file", "f", "", "read the expression from a file instead of an argument")
}

func runEval(c *cobra.Command, args []string) error {
	source, err := readSource(args, evalFile)
	if err != nil {
		return err
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

	result, err := ce.Run(nil, ro)
	if err != nil {
		renderError(err)
		return errSilent
	}

	fmt.Fprintln(os.Stdout, result.String())
	return nil
}

// readSource resolves eval/check's dual inline-argument/--file input,
// mirroring go-dws's run command's own "-e expr or file path" split.
func readSource(args []string, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", file, err)
		}
		return string(data), nil
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return "", fmt.Errorf("no expression given: pass one as an argument or use --file")
}

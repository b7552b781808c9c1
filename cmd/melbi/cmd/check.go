package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var checkFile string

var checkCmd = &cobra.Command{
	Use:   "check [expression]",
	Short: "Type-check a melbi expression without running it",
	Long: `check parses and type-checks an expression and reports diagnostics,
but never evaluates it. On success it prints the expression's inferred
return type.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "", "read the expression from a file instead of an argument")
}

func runCheck(c *cobra.Command, args []string) error {
	source, err := readSource(args, checkFile)
	if err != nil {
		return err
	}

	e, err := newStdlibEngine()
	if err != nil {
		renderError(err)
		return errSilent
	}

	ce, compileErr := e.Compile(source, nil)
	if compileErr != nil {
		renderError(compileErr)
		return errSilent
	}

	fmt.Fprintf(os.Stdout, "ok: %s\n", ce.ReturnType())
	return nil
}

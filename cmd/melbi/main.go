// Command melbi is the reference CLI over internal/engine: eval runs
// an expression, check type-checks without running it, and bench
// repeats a run to report timing (spec §1's "only their contracts are
// specified" line excludes a REPL/formatter/highlighter from core
// scope, so this binary carries neither).
//
// Grounded on go-dws's cmd/dwscript: a cobra root
// command with one subcommand file per verb, persistent flags on the
// root for cross-cutting options, diagnostic rendering kept entirely
// in the CLI layer rather than in the shared error package.
package main

import (
	"os"

	"github.com/melbi-lang/melbi/cmd/melbi/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

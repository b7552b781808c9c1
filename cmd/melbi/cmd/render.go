package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"

	"github.com/melbi-lang/melbi/internal/engine"
	"github.com/melbi-lang/melbi/internal/errors"
	"github.com/melbi-lang/melbi/internal/stdlib"
)

var (
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// newStdlibEngine builds an Engine with both of internal/stdlib's
// native packages bound, the Engine every subcommand compiles against
// (spec §6.1's embedding surface, exercised here rather than a CLI-
// specific one).
func newStdlibEngine() (*engine.Engine, error) {
	seed, err := engine.New(engine.DefaultEngineOptions, nil)
	if err != nil {
		return nil, err
	}
	reg := seed.Types()

	var bindings []engine.Binding
	bindings = append(bindings, stdlib.Math(reg)...)
	bindings = append(bindings, stdlib.String(reg)...)

	return engine.New(engine.DefaultEngineOptions, bindings)
}

// runOptionsFromFlags builds an engine.RunOptions from the root
// command's persistent --max-depth/--max-iterations/--mode flags.
func runOptionsFromFlags() (engine.RunOptions, error) {
	ro := engine.DefaultRunOptions
	ro.MaxDepth = maxDepth
	ro.MaxIterations = maxIterations
	switch mode {
	case "vm":
		ro.Mode = engine.ModeVM
	case "tree":
		ro.Mode = engine.ModeTree
	case "both":
		ro.Mode = engine.ModeBoth
	default:
		return ro, fmt.Errorf("unknown --mode %q (want vm, tree, or both)", mode)
	}
	return ro, nil
}

// renderError prints err to stderr in the format --format selects,
// deciding on the Error's concrete kind (spec §6.2) since
// internal/errors itself stays renderer-agnostic (spec §7's "rendering
// is outside the core" boundary).
func renderError(err error) {
	switch outputFormat {
	case "yaml":
		renderErrorYAML(err)
	default:
		renderErrorText(err)
	}
}

func renderErrorText(err error) {
	switch e := err.(type) {
	case *errors.ApiError:
		fmt.Fprintf(os.Stderr, "%s: %s\n", red("api error"), e.Message)
	case *errors.CompilationError:
		for _, d := range e.Diagnostics {
			fmt.Fprintln(os.Stderr, renderDiagnosticText(d))
		}
	case *errors.RuntimeError:
		fmt.Fprintln(os.Stderr, renderDiagnosticText(e.Diagnostic))
	case *errors.ResourceExceededError:
		fmt.Fprintf(os.Stderr, "%s: %s\n", yellow("resource exceeded"), e.Message)
	default:
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
	}
}

func renderDiagnosticText(d *errors.Diagnostic) string {
	var b strings.Builder
	severity := d.Severity.String()
	colored := severity
	switch d.Severity {
	case errors.SeverityError:
		colored = red(severity)
	case errors.SeverityWarning:
		colored = yellow(severity)
	default:
		colored = cyan(severity)
	}
	fmt.Fprintf(&b, "%s[%s]: %s at %d:%d", colored, bold(d.Code), d.Message, d.Span.StartLine, d.Span.StartCol)
	for _, h := range d.Help {
		fmt.Fprintf(&b, "\n  help: %s", h)
	}
	for _, r := range d.Related {
		fmt.Fprintf(&b, "\n  note: %s (%d:%d)", r.Message, r.Span.StartLine, r.Span.StartCol)
	}
	return b.String()
}

// yamlDiagnostic mirrors errors.Diagnostic's shape for the --format=yaml
// path: a plain, tag-free struct goccy/go-yaml can marshal directly,
// since errors.Diagnostic itself carries no yaml struct tags (it stays
// a renderer-agnostic data type, per spec §7).
type yamlDiagnostic struct {
	Severity string   `yaml:"severity"`
	Code     string   `yaml:"code"`
	Message  string   `yaml:"message"`
	Line     int      `yaml:"line"`
	Column   int      `yaml:"column"`
	Help     []string `yaml:"help,omitempty"`
}

func toYAMLDiagnostic(d *errors.Diagnostic) yamlDiagnostic {
	return yamlDiagnostic{
		Severity: d.Severity.String(),
		Code:     d.Code,
		Message:  d.Message,
		Line:     d.Span.StartLine,
		Column:   d.Span.StartCol,
		Help:     d.Help,
	}
}

func renderErrorYAML(err error) {
	var payload any
	switch e := err.(type) {
	case *errors.ApiError:
		payload = map[string]string{"kind": "api", "message": e.Message}
	case *errors.CompilationError:
		diags := make([]yamlDiagnostic, len(e.Diagnostics))
		for i, d := range e.Diagnostics {
			diags[i] = toYAMLDiagnostic(d)
		}
		payload = map[string]any{"kind": "compilation", "diagnostics": diags}
	case *errors.RuntimeError:
		payload = map[string]any{"kind": "runtime", "diagnostic": toYAMLDiagnostic(e.Diagnostic)}
	case *errors.ResourceExceededError:
		payload = map[string]string{"kind": "resource_exceeded", "message": e.Message}
	default:
		payload = map[string]string{"kind": "unknown", "message": err.Error()}
	}
	out, marshalErr := yaml.Marshal(payload)
	if marshalErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	os.Stderr.Write(out)
}

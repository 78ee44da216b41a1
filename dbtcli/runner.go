// Package dbtcli shells out to the dbt binary for build-and-run style
// operations on a local project.
package dbtcli

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	dbtmcp "github.com/sparkfiresmoke/dbt-mcp"
)

// Runner executes dbt commands in one project directory. Command output is
// returned verbatim, including failures: a non-zero dbt exit carries its
// diagnostics in the output, which is what the caller wants to see.
type Runner struct {
	dbtPath    string
	projectDir string
	globalArgs []string
	logger     dbtmcp.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithGlobalArgs sets arguments inserted between the dbt command and its
// own arguments, e.g. --quiet.
func WithGlobalArgs(args ...string) RunnerOption {
	return func(r *Runner) { r.globalArgs = args }
}

// WithLogger sets the logger.
func WithLogger(logger dbtmcp.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a Runner for the dbt binary at dbtPath operating on
// projectDir.
func NewRunner(dbtPath, projectDir string, options ...RunnerOption) *Runner {
	r := &Runner{
		dbtPath:    dbtPath,
		projectDir: projectDir,
		logger:     dbtmcp.GetDefaultLogger(),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Exec runs one dbt command and returns its combined output. The global
// args are inserted after the command name so flags like --quiet apply to
// every invocation.
func (r *Runner) Exec(ctx context.Context, command string, args ...string) (string, error) {
	full := make([]string, 0, 1+len(r.globalArgs)+len(args))
	full = append(full, command)
	full = append(full, r.globalArgs...)
	full = append(full, args...)

	r.logger.Debugf("running %s %v in %s", r.dbtPath, full, r.projectDir)
	cmd := exec.CommandContext(ctx, r.dbtPath, full...)
	cmd.Dir = r.projectDir

	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// dbt reports its problems in the output.
			return string(output), nil
		}
		return "", fmt.Errorf("failed to run dbt %s: %w", command, err)
	}
	return string(output), nil
}

// selectorArgs turns an optional node selector into dbt arguments.
func selectorArgs(selector string) []string {
	if selector == "" {
		return nil
	}
	return []string{"--select", selector}
}

// Build runs dbt build, optionally restricted to a selector.
func (r *Runner) Build(ctx context.Context, selector string) (string, error) {
	return r.Exec(ctx, "build", selectorArgs(selector)...)
}

// Compile runs dbt compile.
func (r *Runner) Compile(ctx context.Context) (string, error) {
	return r.Exec(ctx, "compile")
}

// Debug runs dbt debug to check the project and connection setup.
func (r *Runner) Debug(ctx context.Context) (string, error) {
	return r.Exec(ctx, "debug")
}

// Docs runs dbt docs generate.
func (r *Runner) Docs(ctx context.Context) (string, error) {
	return r.Exec(ctx, "docs", "generate")
}

// List runs dbt list, optionally restricted to a selector. The --quiet flag
// keeps timing noise out of the resource listing.
func (r *Runner) List(ctx context.Context, selector string) (string, error) {
	args := append([]string{"--quiet"}, selectorArgs(selector)...)
	return r.Exec(ctx, "list", args...)
}

// Parse runs dbt parse.
func (r *Runner) Parse(ctx context.Context) (string, error) {
	return r.Exec(ctx, "parse")
}

// Run runs dbt run, optionally restricted to a selector.
func (r *Runner) Run(ctx context.Context, selector string) (string, error) {
	return r.Exec(ctx, "run", selectorArgs(selector)...)
}

// Test runs dbt test, optionally restricted to a selector.
func (r *Runner) Test(ctx context.Context, selector string) (string, error) {
	return r.Exec(ctx, "test", selectorArgs(selector)...)
}

// Show runs an inline SQL query against the warehouse with JSON output.
func (r *Runner) Show(ctx context.Context, sqlQuery string, limit int) (string, error) {
	args := []string{"--inline", sqlQuery, "--favor-state"}
	if limit > 0 {
		args = append(args, "--limit", strconv.Itoa(limit))
	}
	args = append(args, "--output", "json")
	return r.Exec(ctx, "show", args...)
}

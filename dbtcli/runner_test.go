package dbtcli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkfiresmoke/dbt-mcp/log"
)

// The tests use /bin/echo as a stand-in binary so the argument assembly can
// be observed in the output.
func newEchoRunner(t *testing.T, options ...RunnerOption) *Runner {
	t.Helper()
	options = append([]RunnerOption{WithLogger(log.NewNullLogger())}, options...)
	return NewRunner("/bin/echo", t.TempDir(), options...)
}

func TestExecReturnsCommandOutput(t *testing.T) {
	runner := newEchoRunner(t)
	output, err := runner.Exec(context.Background(), "parse")
	require.NoError(t, err)
	assert.Equal(t, "parse\n", output)
}

func TestExecInsertsGlobalArgsAfterCommand(t *testing.T) {
	runner := newEchoRunner(t, WithGlobalArgs("--quiet"))
	output, err := runner.Exec(context.Background(), "run", "--select", "orders")
	require.NoError(t, err)
	assert.Equal(t, "run --quiet --select orders\n", output)
}

func TestExecNonZeroExitReturnsOutputNotError(t *testing.T) {
	runner := NewRunner("/bin/sh", t.TempDir(), WithLogger(log.NewNullLogger()))
	// sh -c exits non-zero after printing diagnostics, like dbt does.
	output, err := runner.Exec(context.Background(), "-c", "echo compilation error; exit 2")
	require.NoError(t, err)
	assert.Contains(t, output, "compilation error")
}

func TestExecMissingBinaryIsAnError(t *testing.T) {
	runner := NewRunner("/nonexistent/dbt", t.TempDir(), WithLogger(log.NewNullLogger()))
	_, err := runner.Exec(context.Background(), "parse")
	assert.Error(t, err)
}

func TestDocsRunsGenerate(t *testing.T) {
	runner := newEchoRunner(t)
	output, err := runner.Docs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "docs generate\n", output)
}

func TestRunPassesSelector(t *testing.T) {
	runner := newEchoRunner(t)
	output, err := runner.Run(context.Background(), "orders+")
	require.NoError(t, err)
	assert.Equal(t, "run --select orders+\n", output)

	output, err = runner.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "run\n", output)
}

func TestListIsQuiet(t *testing.T) {
	runner := newEchoRunner(t)
	output, err := runner.List(context.Background(), "tag:nightly")
	require.NoError(t, err)
	assert.Equal(t, "list --quiet --select tag:nightly\n", output)
}

func TestShowBuildsInlineQueryArgs(t *testing.T) {
	runner := newEchoRunner(t)
	output, err := runner.Show(context.Background(), "select 1", 5)
	require.NoError(t, err)
	assert.Equal(t, "show --inline select 1 --favor-state --limit 5 --output json\n", output)
}

func TestShowOmitsLimitWhenUnset(t *testing.T) {
	runner := newEchoRunner(t)
	output, err := runner.Show(context.Background(), "select 1", 0)
	require.NoError(t, err)
	assert.NotContains(t, output, "--limit")
}

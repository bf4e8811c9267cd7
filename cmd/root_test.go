package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"score", "rescore", "portfolio", "backtest", "benchmark", "consistency", "migrate"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "riskindex", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestScoreCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"scan", "previous", "output", "format", "save"} {
		flag := scoreCmd.Flags().Lookup(flagName)
		require.NotNil(t, flag, "score command should have --%s flag", flagName)
	}
	assert.Equal(t, "table", scoreCmd.Flags().Lookup("format").DefValue)
}

func TestRescoreCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"org", "concurrency", "rate", "dry-run"} {
		flag := rescoreCmd.Flags().Lookup(flagName)
		require.NotNil(t, flag, "rescore command should have --%s flag", flagName)
	}
}

func TestPortfolioCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"org", "format", "output", "backtest", "benchmark", "save"} {
		flag := portfolioCmd.Flags().Lookup(flagName)
		require.NotNil(t, flag, "portfolio command should have --%s flag", flagName)
	}
	assert.Equal(t, "table", portfolioCmd.Flags().Lookup("format").DefValue)
}

func TestBacktestCommand_Flags(t *testing.T) {
	require.NotNil(t, backtestCmd.Flags().Lookup("org"))
	flag := backtestCmd.Flags().Lookup("min-sample")
	require.NotNil(t, flag, "backtest command should have --min-sample flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestBenchmarkCommand_Flags(t *testing.T) {
	require.NotNil(t, benchmarkCmd.Flags().Lookup("org"))
}

func TestConsistencyCommand_Flags(t *testing.T) {
	require.NotNil(t, consistencyCmd.Flags().Lookup("org"))
}

package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "recall v")
	assert.Contains(t, out.String(), "Build:")
}

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"ingest", "query", "stats", "delete", "migrate", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestIngestRequiresFileArg(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"ingest"})
	require.NoError(t, err)
	assert.Error(t, cmd.Args(cmd, nil))
	assert.NoError(t, cmd.Args(cmd, []string{"notes.md"}))
}

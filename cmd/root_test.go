package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{
		"ingest", "process", "batch", "retries", "repair",
		"items", "leads", "directory", "status", "migrate", "serve",
	}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "signal-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestIngestCommand_RequiredFlags(t *testing.T) {
	flag := ingestCmd.Flags().Lookup("file")
	require.NotNil(t, flag, "ingest command should have --file flag")
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("max")
	require.NotNil(t, flag, "batch command should have --max flag")
	assert.Equal(t, "0", flag.DefValue)

	require.NotNil(t, batchCmd.Flags().Lookup("id"))
	require.NotNil(t, batchCmd.Flags().Lookup("wait"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestDirectoryCommand_HasSubcommands(t *testing.T) {
	cmds := directoryCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, name := range []string{"import", "sync", "list"} {
		assert.True(t, names[name], "expected directory subcommand %q not found", name)
	}
}

func TestParseOrgKind(t *testing.T) {
	kind, err := parseOrgKind("client")
	require.NoError(t, err)
	assert.Equal(t, "client", string(kind))

	kind, err = parseOrgKind("vendor")
	require.NoError(t, err)
	assert.Equal(t, "vendor", string(kind))

	_, err = parseOrgKind("partner")
	assert.Error(t, err)
}

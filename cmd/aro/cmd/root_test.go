package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_RegistersAllSubcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"compile", "validate", "serve", "inspect", "mcp", "version"} {
		found, _, err := root.Find([]string{name})
		require.NoError(t, err, "expected %q to be registered", name)
		assert.Equal(t, name, found.Name())
	}
}

func TestRootCmd_HelpWithNoArgsDoesNotError(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{})
	root.SetOut(new(nopWriter))

	err := root.Execute()
	require.NoError(t, err)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

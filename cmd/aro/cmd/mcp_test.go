package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arolang/aro/internal/ast"
)

func TestMCPCmd_RequiresProgramFlag(t *testing.T) {
	cmd := newMCPCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "program")
}

func TestMCPCmd_MissingProgramFileFails(t *testing.T) {
	cmd := newMCPCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--program", filepath.Join(t.TempDir(), "missing.json")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read program file")
}

func TestMCPCmd_UnreadableOpenAPIFails(t *testing.T) {
	programPath := writeProgramFile(t, ast.Program{FeatureSets: []ast.FeatureSet{
		{Name: "Boot", BusinessActivity: "Application-Start"},
	}})

	cmd := newMCPCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"--program", programPath,
		"--openapi", filepath.Join(t.TempDir(), "missing.yaml"),
	})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read openapi document")
}

func TestMCPCmd_UnknownTransportFails(t *testing.T) {
	programPath := writeProgramFile(t, ast.Program{FeatureSets: []ast.FeatureSet{
		{Name: "Boot", BusinessActivity: "Application-Start"},
	}})

	cmd := newMCPCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--program", programPath, "--transport", "sse"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport")
}

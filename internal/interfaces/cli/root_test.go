package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "molscore", cmd.Use)

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "score")
	assert.Contains(t, names, "run")
	assert.Contains(t, names, "validate")
}

func TestNewRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	pf := cmd.PersistentFlags()

	for _, name := range []string{"config", "log-level", "output", "verbose", "timeout"} {
		assert.NotNil(t, pf.Lookup(name), name)
	}
	assert.Equal(t, "info", pf.Lookup("log-level").DefValue)
	assert.Equal(t, "text", pf.Lookup("output").DefValue)
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := &cobra.Command{}

	_, err := GetCLIContext(cmd)
	require.Error(t, err)
}

func TestPrintSuccessAndError(t *testing.T) {
	cmd := &cobra.Command{}
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	PrintSuccess(cmd, "run finished")
	PrintError(cmd, assert.AnError)
	PrintError(cmd, nil)

	assert.Equal(t, "OK: run finished\n", out.String())
	assert.Contains(t, errOut.String(), "Error: ")
}

func TestFormatTable(t *testing.T) {
	out := FormatTable(
		[]string{"SMILES", "TOTAL"},
		[][]string{
			{"CCO", "0.8200"},
			{"c1ccccc1", "0.4100"},
		},
	)

	assert.Contains(t, out, "SMILES    TOTAL")
	assert.Contains(t, out, "--------  ------")
	assert.Contains(t, out, "CCO       0.8200")
	assert.Contains(t, out, "c1ccccc1  0.4100")
}

func TestFormatTable_Empty(t *testing.T) {
	assert.Empty(t, FormatTable(nil, nil))
}

//Personal.AI order the ending

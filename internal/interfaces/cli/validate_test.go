package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolScore/internal/config"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validRunDocument = `{
	"version": 3,
	"run_type": "reinforcement_learning",
	"logging": {"job_name": "demo"},
	"parameters": {
		"reinforcement_learning": {"n_steps": 50, "batch_size": 64},
		"scoring_function": {"name": "custom_sum", "parameters": [
			{"component_type": "qed_score", "name": "qed", "weight": 1}
		]}
	}
}`

func TestValidationSummary(t *testing.T) {
	path := writeTempFile(t, "run.json", validRunDocument)

	cfg, err := config.LoadRunConfig(path)
	require.NoError(t, err)

	s := newValidationSummary(cfg)
	assert.Equal(t, 3, s.Version)
	assert.Equal(t, "reinforcement_learning", s.RunType)
	assert.Equal(t, "demo", s.JobName)
	assert.Equal(t, "custom_sum", s.Function)
	assert.Equal(t, []string{"qed"}, s.Components)
	assert.Equal(t, 50, s.Steps)
	assert.Equal(t, 64, s.BatchSize)

	text := s.String()
	assert.Contains(t, text, "valid run configuration")
	assert.Contains(t, text, "50 × 64 molecules")
}

func TestValidateCmd_AcceptsGoodDocument(t *testing.T) {
	path := writeTempFile(t, "run.json", validRunDocument)

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"validate", path})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "valid run configuration")
}

func TestValidateCmd_RejectsBadDocument(t *testing.T) {
	path := writeTempFile(t, "bad.json", `{"version": 99, "run_type": "scoring", "parameters": {"scoring_function": {"name": "custom_sum", "parameters": [{"component_type": "qed_score", "name": "qed", "weight": 1}]}}}`)

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"validate", path})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported run configuration version")
}

//Personal.AI order the ending

package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Validate command tests flip the package-global color.NoColor flag, so
// they do not run in parallel.

func TestValidateCommand_ValidProgram(t *testing.T) {
	progPath := writeProgram(t, smokeProgram)

	var out bytes.Buffer

	cmd := NewValidateCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--no-color", progPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "program is valid")
}

func TestValidateCommand_SchemaViolation(t *testing.T) {
	// Missing the required ops list and carrying an unknown key.
	progPath := writeProgram(t, "name: broken\nvars: []\nretries: 12\n")

	var out bytes.Buffer

	cmd := NewValidateCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--no-color", progPath})

	err := cmd.Execute()
	require.ErrorIs(t, err, ErrProgramInvalid)

	output := out.String()
	assert.Contains(t, output, "program is invalid")
	assert.Contains(t, output, "Schema violations:")
}

func TestValidateCommand_SemanticViolation(t *testing.T) {
	// Schema-clean but scale reads a variable that is never declared.
	progPath := writeProgram(t, `name: dangling
vars:
  - name: y
    kind: dense
ops:
  - type: scale
    inputs:
      X: [ghost]
    outputs:
      Out: [y]
`)

	var out bytes.Buffer

	cmd := NewValidateCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--no-color", progPath})

	err := cmd.Execute()
	require.ErrorIs(t, err, ErrProgramInvalid)
	assert.Contains(t, out.String(), "program is invalid")
}

func TestValidateCommand_MissingFile(t *testing.T) {
	cmd := NewValidateCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--no-color", "no/such/program.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProgramInvalid)
	assert.Contains(t, err.Error(), "read program")
}

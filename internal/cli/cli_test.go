package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	root := NewRootCommand()
	for _, path := range [][]string{
		{"start"},
		{"run"},
		{"migrate", "up"},
		{"migrate", "down"},
		{"seed"},
		{"user", "create"},
		{"worker", "run"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.NotNil(t, cmd.RunE, path)
	}
}

func TestSeedDefaults(t *testing.T) {
	cmd, _, err := NewRootCommand().Find([]string{"seed"})
	require.NoError(t, err)

	samples, err := cmd.Flags().GetBool("samples")
	require.NoError(t, err)
	assert.True(t, samples)

	username, err := cmd.Flags().GetString("username")
	require.NoError(t, err)
	assert.Equal(t, "admin", username)
}

func TestUserCreateRequiresFlags(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"user", "create", "--username", "bob"})
	root.SilenceUsage = true
	root.SilenceErrors = true
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

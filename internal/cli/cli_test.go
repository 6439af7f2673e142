package cli

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("LOG_FORMAT", "console")
	configPath = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "create-user"} {
		assert.True(t, names[want], want)
	}
}

func TestRootDefaultsToServe(t *testing.T) {
	require.NotNil(t, rootCmd.RunE)
	assert.Equal(t,
		reflect.ValueOf(runServe).Pointer(),
		reflect.ValueOf(rootCmd.RunE).Pointer())

	// stray positional args are rejected instead of starting the server
	_, err := execute(t, "servce")
	assert.Error(t, err)
}

func TestCreateUser_Memory(t *testing.T) {
	out, err := execute(t, "create-user",
		"--name", "Ana", "--email", "Ana@Waffle.test", "--password", "secret-pass", "--role", "manager")
	require.NoError(t, err)
	assert.Contains(t, out, "created manager ana@waffle.test")
}

func TestCreateUser_RejectsUnknownRole(t *testing.T) {
	_, err := execute(t, "create-user",
		"--name", "Ana", "--email", "ana@waffle.test", "--password", "secret-pass", "--role", "owner")
	assert.Error(t, err)
}

func TestMigrate_NeedsPostgres(t *testing.T) {
	_, err := execute(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}

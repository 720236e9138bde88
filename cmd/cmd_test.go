// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCommand()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "login")
	assert.Contains(t, names, "scrape")
	assert.Contains(t, names, "version")
	assert.Equal(t, "loginforge", root.Name())
}

func TestVersionCommand(t *testing.T) {
	out := new(bytes.Buffer)
	root := NewRootCommand()
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"version"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), Version)
}

func TestLoginRequiresCredentials(t *testing.T) {
	t.Setenv("LOGINFORGE_LOGIN_IDENTIFIER", "")
	t.Setenv("LOGINFORGE_LOGIN_SECRET", "")

	root := NewRootCommand()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"login", "https://example.com/login"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOGINFORGE_LOGIN_IDENTIFIER")
}

func TestLoginRequiresTargetURL(t *testing.T) {
	t.Setenv("LOGINFORGE_LOGIN_IDENTIFIER", "user@example.com")
	t.Setenv("LOGINFORGE_LOGIN_SECRET", "s3cret")

	root := NewRootCommand()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"login"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target URL")
}

func TestScrapeRequiresExactlyOneArg(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"scrape"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/treasurehunt/internal/verify"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDigestCommand(t *testing.T) {
	t.Setenv("TREASURE_PEPPER", "cli-pepper")
	out, err := run(t, "digest", "--salt", "sA9!", "library", "fridge")
	require.NoError(t, err)
	lines := strings.Fields(out)
	require.Len(t, lines, 2)
	assert.Equal(t, verify.Digest("sA9!", "LIBRARY", "cli-pepper"), lines[0])
	assert.Equal(t, verify.Digest("sA9!", "FRIDGE", "cli-pepper"), lines[1])
}

func TestStagesCheckCommand(t *testing.T) {
	t.Setenv("TREASURE_PEPPER", "cli-pepper")
	path := filepath.Join(t.TempDir(), "hunt.yaml")
	catalog := "stages:\n" +
		"  - hint: first\n    salt: a\n    digest: " + verify.Digest("a", "one", "cli-pepper") + "\n" +
		"  - hint: second\n    salt: b\n    digest: " + verify.Digest("b", "two", "cli-pepper") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o600))

	out, err := run(t, "stages", "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2 stages OK")

	out, err = run(t, "stages", "check", path, "--code", "one", "--code", "TWO")
	require.NoError(t, err)
	assert.Contains(t, out, "stage 1: ok")

	out, err = run(t, "stages", "check", path, "--code", "one", "--code", "three")
	require.Error(t, err)
	assert.Contains(t, out, "stage 1: MISMATCH")
}

func TestStagesCheckEmbeddedSample(t *testing.T) {
	out, err := run(t, "stages", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "4 stages OK")
}

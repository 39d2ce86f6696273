package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearDatabaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "POSTGRESQL_URI", "PG_DSN", "PG_HOST", "PG_DATABASE"} {
		t.Setenv(key, "")
	}
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var ee *exitError
	require.ErrorAs(t, err, &ee)
	return ee.code
}

func TestRunBuild_ReturnsConfigError(t *testing.T) {
	clearDatabaseEnv(t)
	err := runBuild(buildCmd, nil)
	assert.Equal(t, ExitConfigError, exitCode(t, err))
}

func TestRunSeed_ReturnsErrors(t *testing.T) {
	clearDatabaseEnv(t)
	err := runSeed(seedCmd, nil)
	assert.Equal(t, ExitConfigError, exitCode(t, err))

	t.Setenv("DATABASE_URL", "file:"+filepath.Join(t.TempDir(), "seed.db"))
	seedFile = filepath.Join(t.TempDir(), "missing.yaml")
	t.Cleanup(func() { seedFile = "" })
	err = runSeed(seedCmd, nil)
	assert.Equal(t, ExitError, exitCode(t, err))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReportError(t *testing.T) {
	t.Cleanup(func() { humanOutput = false })

	tests := []struct {
		name   string
		human  bool
		err    error
		code   int
		stdout string
		stderr string
	}{
		{
			name:   "coded error as json",
			err:    fail(ExitConfigError, "loading configuration: %w", errors.New("bad port")),
			code:   ExitConfigError,
			stdout: "{\n  \"error\": \"loading configuration: bad port\"\n}\n",
		},
		{
			name:   "wrapped coded error keeps its code",
			human:  true,
			err:    fmt.Errorf("seed: %w", fail(ExitError, "duplicate listing id %q", "bk-101")),
			code:   ExitError,
			stderr: "error: seed: duplicate listing id \"bk-101\"\n",
		},
		{
			name:   "plain error",
			human:  true,
			err:    errors.New(`required flag(s) "file" not set`),
			code:   ExitError,
			stderr: "error: required flag(s) \"file\" not set\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			humanOutput = tt.human
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.code, reportError(&stdout, &stderr, tt.err))
			assert.Equal(t, tt.stdout, stdout.String())
			assert.Equal(t, tt.stderr, stderr.String())
		})
	}
}

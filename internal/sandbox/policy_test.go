package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := LoadPolicy(filepath.Join(t.TempDir(), "policy.yaml"))
	require.NoError(t, err)
	return p
}

func TestLoadPolicyCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	p, err := LoadPolicy(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, 1, p.Version())
	require.NotEmpty(t, p.AllowedModules())
}

func TestScreenAllowsSafeScript(t *testing.T) {
	p := testPolicy(t)
	script := `import os
import shutil

def main():
    shutil.move('/home/user/a.txt', '/home/user/archive/a.txt')

if __name__ == '__main__':
    main()
`
	require.Empty(t, p.Screen(script))
}

func TestScreenBlocksDeniedModules(t *testing.T) {
	p := testPolicy(t)
	for _, script := range []string{
		"import subprocess\nsubprocess.run(['ls'])",
		"from socket import socket",
		"import requests\nrequests.get('http://example.com')",
		"import Pickle",
	} {
		require.NotEmpty(t, p.Screen(script), "script should be blocked: %q", script)
	}
}

func TestScreenBlocksDeniedCalls(t *testing.T) {
	p := testPolicy(t)
	for _, script := range []string{
		"eval('2+2')",
		"exec(payload)",
		"__import__('os')",
		"os.system('rm -rf /')",
		"getattr(obj, name)",
		"compile(src, '<s>', 'exec')",
	} {
		require.NotEmpty(t, p.Screen(script), "script should be blocked: %q", script)
	}
}

func TestScreenIsCaseInsensitive(t *testing.T) {
	p := testPolicy(t)
	require.NotEmpty(t, p.Screen("IMPORT SUBPROCESS"))
	require.NotEmpty(t, p.Screen("os.SYSTEM('ls')"))
}

func TestReloadPicksUpEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	p, err := LoadPolicy(path)
	require.NoError(t, err)
	require.Empty(t, p.Screen("import glob"))

	custom := `version: 2
deny_modules:
  - glob
deny_calls:
  - print(
`
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o600))
	require.NoError(t, p.Reload())

	require.Equal(t, 2, p.Version())
	require.NotEmpty(t, p.Screen("import glob"))
	require.NotEmpty(t, p.Screen("print('hi')"))
}

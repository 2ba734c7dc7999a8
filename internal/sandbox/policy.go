// Package sandbox screens, prepares and executes generated automation
// scripts as isolated interpreter subprocesses with timeout and retry.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Policy holds the security configuration for the script screen: denied
// module imports, denied call substrings and the modules scripts are
// expected to use. Loaded from an editable YAML file with defaults
// auto-created on first run; Reload picks up edits at runtime.
//
// The screen fails closed: any denylist hit rejects the script outright.
type Policy struct {
	mu   sync.RWMutex
	path string
	file policyFile
}

type policyFile struct {
	Version      int      `yaml:"version"`
	DenyModules  []string `yaml:"deny_modules"`
	DenyCalls    []string `yaml:"deny_calls"`
	AllowModules []string `yaml:"allow_modules"`
}

// LoadPolicy reads the policy file at path, creating it with defaults when
// missing. An empty path resolves to ~/.flowpilot/policy.yaml.
func LoadPolicy(path string) (*Policy, error) {
	p := &Policy{path: resolvePolicyPath(path)}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads the policy file, writing defaults first when the file is
// absent.
func (p *Policy) Reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read policy: %w", err)
		}
		file := defaultPolicy()
		if err := writePolicy(p.path, file); err != nil {
			return err
		}
		p.mu.Lock()
		p.file = file
		p.mu.Unlock()
		return nil
	}

	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse policy: %w", err)
	}
	if len(file.DenyModules) == 0 && len(file.DenyCalls) == 0 {
		file = defaultPolicy()
	}
	p.mu.Lock()
	p.file = file
	p.mu.Unlock()
	return nil
}

// Screen checks a script against the policy. The returned reason is empty
// when the script passes. Matching is case-insensitive substring matching,
// mirroring what the denylist entries describe.
func (p *Policy) Screen(script string) (reason string) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	lower := strings.ToLower(script)
	for _, module := range p.file.DenyModules {
		m := strings.ToLower(module)
		if strings.Contains(lower, "import "+m) || strings.Contains(lower, "from "+m) {
			return fmt.Sprintf("disallowed module: %s", module)
		}
	}
	for _, call := range p.file.DenyCalls {
		if strings.Contains(lower, strings.ToLower(call)) {
			return fmt.Sprintf("disallowed call pattern: %s", call)
		}
	}
	return ""
}

// AllowedModules returns the modules scripts are expected to restrict
// themselves to. Informational; the deny lists are authoritative.
func (p *Policy) AllowedModules() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.file.AllowModules))
	copy(out, p.file.AllowModules)
	return out
}

// Version returns the policy file's version field.
func (p *Policy) Version() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.file.Version
}

// Path returns the on-disk policy location.
func (p *Policy) Path() string {
	return p.path
}

func resolvePolicyPath(path string) string {
	if path == "" {
		return filepath.Join(userHomeDir(), ".flowpilot", "policy.yaml")
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(userHomeDir(), path[2:])
	}
	return path
}

func writePolicy(path string, file policyFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create policy dir: %w", err)
	}
	raw, err := yaml.Marshal(file)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func defaultPolicy() policyFile {
	return policyFile{
		Version: 1,
		DenyModules: []string{
			"subprocess", "ctypes", "multiprocessing", "threading",
			"socket", "urllib", "requests", "http",
			"pickle", "marshal", "shelve", "dbm",
			"sqlite3", "psycopg2", "pymongo",
			"cryptography", "hashlib", "hmac",
			"tempfile", "shutil.rmtree",
		},
		DenyCalls: []string{
			"eval(", "exec(", "__import__",
			"getattr(", "setattr(", "delattr(",
			"globals()", "locals()", "vars(", "dir(", "compile(",
			"os.system", "os.popen",
		},
		AllowModules: []string{
			"os", "pathlib", "time", "shutil", "json", "csv",
			"datetime", "math", "random", "itertools",
			"collections", "functools", "operator",
			"re", "string", "textwrap",
		},
	}
}

func userHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// Package hostconfig holds the small piece of host configuration that
// spec.md leaves unspecified: which command prefixes need the GBK
// decode fallback described in spec.md §4.I. The original Rust source
// (original_source/src/builtin.rs) hardcodes this as two functions,
// is_system_gbk_output_command/is_system_gbk_err_command; here it is
// data, loaded from a YAML defaults file so a reference Host doesn't
// bake locale assumptions into code.
package hostconfig

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the Host's locale/decode configuration.
type Config struct {
	// GBKCommandPrefixes lists argv[0] prefixes whose stdout/stderr
	// lines are decoded as UTF-8 with a GBK fallback for lines that are
	// not valid UTF-8, matching the Windows console encoding used by
	// cmd.exe built-ins on the systems the original tool targeted.
	GBKCommandPrefixes []string `yaml:"gbk_command_prefixes"`

	// UsePTY allocates a pseudo-terminal for spawned commands instead of
	// plain pipes, so subprocess output preserves the color/TTY
	// behavior a real interactive shell would give it (grounded on
	// psexec/executor.go's runWithPTY). Off by default: spec.md's `cmd`
	// native only promises line callbacks, and most scripted commands
	// don't benefit from a TTY.
	UsePTY bool `yaml:"use_pty"`
}

// Default returns the built-in defaults: builtin.rs's hardcoded `ls`,
// `mkdir`, `move` prefix checks plus the cmd.exe built-ins `dir`,
// `copy`, `del` and `rd`.
func Default() *Config {
	return &Config{
		GBKCommandPrefixes: []string{"ls", "mkdir", "move", "dir", "copy", "del", "rd"},
		UsePTY:             false,
	}
}

// Load reads a YAML config file, falling back to Default() for any
// field left unset (a missing or empty file yields pure defaults).
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, err
	}
	if override.GBKCommandPrefixes != nil {
		cfg.GBKCommandPrefixes = override.GBKCommandPrefixes
	}
	cfg.UsePTY = override.UsePTY
	return cfg, nil
}

// MatchesGBKPrefix reports whether argv0 starts with one of cfg's
// configured GBK command prefixes.
func (c *Config) MatchesGBKPrefix(argv0 string) bool {
	for _, p := range c.GBKCommandPrefixes {
		if len(argv0) >= len(p) && argv0[:len(p)] == p {
			return true
		}
	}
	return false
}

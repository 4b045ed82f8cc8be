// Package config resolves compiler settings from defaults, an optional
// wayto.yaml file, WAYTO_* environment variables and command-line flags.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up next to the source file.
const FileName = "wayto.yaml"

// Output formats accepted by Emit.
const (
	EmitObject = "obj"
	EmitLLVM   = "llvm"
	EmitSSA    = "ssa"
)

// Config holds the settings of one compiler invocation.
type Config struct {
	Output  string `yaml:"output"`
	Entry   string `yaml:"entry"`
	Emit    string `yaml:"emit"`
	LLC     string `yaml:"llc"`
	Triple  string `yaml:"triple"`
	Verbose bool   `yaml:"verbose"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Output: "main.o",
		Entry:  "main",
		Emit:   EmitObject,
		LLC:    "llc",
	}
}

// ValidationError aggregates config validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "config: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Decode overlays the YAML document in r onto c. Unknown keys are
// rejected; an empty document leaves c unchanged.
func (c *Config) Decode(r io.Reader) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// LoadFile overlays the config file at path onto c.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "config")
	}
	defer f.Close()
	if err := c.Decode(f); err != nil {
		return errors.Wrapf(err, "config: parse %s", path)
	}
	return nil
}

// Find returns the wayto.yaml next to sourcePath, or "" if there is none.
func Find(sourcePath string) string {
	path := filepath.Join(filepath.Dir(sourcePath), FileName)
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path
	}
	return ""
}

// ApplyEnv overlays the WAYTO_* environment variables that are set.
func (c *Config) ApplyEnv() {
	env.Load()
	strs := []struct {
		name string
		dst  *string
	}{
		{"WAYTO_OUTPUT", &c.Output},
		{"WAYTO_ENTRY", &c.Entry},
		{"WAYTO_EMIT", &c.Emit},
		{"WAYTO_LLC", &c.LLC},
		{"WAYTO_TRIPLE", &c.Triple},
	}
	for _, s := range strs {
		if env.Has(s.name) {
			*s.dst = env.Str(s.name)
		}
	}
	if env.Has("WAYTO_VERBOSE") {
		c.Verbose = env.Bool("WAYTO_VERBOSE")
	}
}

// Load resolves defaults, then the config file (explicitPath, or the one
// found next to sourcePath), then the environment. Flags are applied by
// the caller before Validate.
func Load(explicitPath, sourcePath string) (Config, error) {
	cfg := Default()
	path := explicitPath
	if path == "" && sourcePath != "" {
		path = Find(sourcePath)
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs ValidationError
	switch c.Emit {
	case EmitObject, EmitLLVM, EmitSSA:
	default:
		errs.Issues = append(errs.Issues,
			fmt.Sprintf("emit must be one of %s, %s, %s; got %q", EmitObject, EmitLLVM, EmitSSA, c.Emit))
	}
	if c.Output == "" {
		errs.Issues = append(errs.Issues, "output must be provided")
	}
	if !isIdent(c.Entry) {
		errs.Issues = append(errs.Issues, fmt.Sprintf("entry %q is not a valid function name", c.Entry))
	}
	if c.Emit == EmitObject && c.LLC == "" {
		errs.Issues = append(errs.Issues, "llc must be provided when emitting objects")
	}
	if strings.ContainsAny(c.Triple, " \t\n") {
		errs.Issues = append(errs.Issues, fmt.Sprintf("triple %q must not contain whitespace", c.Triple))
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		letter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !letter && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}

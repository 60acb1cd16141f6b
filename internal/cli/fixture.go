package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"confkit/internal/dispatch"
	"confkit/internal/harness"
	"confkit/internal/platform"
)

// CommandSpec is the canned outcome a fixture assigns to one synthetic
// executable path. A marker entry exists without behavior.
type CommandSpec struct {
	Marker bool   `yaml:"marker"`
	Code   int    `yaml:"code"`
	Stdout string `yaml:"stdout"`
	Stderr string `yaml:"stderr"`
}

// handler converts the spec to a dispatch handler, or nil for markers.
func (s CommandSpec) handler() dispatch.Handler {
	if s.Marker {
		return nil
	}
	return func(string, []string) (int, string, string) {
		return s.Code, s.Stdout, s.Stderr
	}
}

// FixtureSpec is the on-disk description of a harness environment.
type FixtureSpec struct {
	Platform   string                 `yaml:"platform"`
	Script     string                 `yaml:"script"`
	Args       []string               `yaml:"args"`
	Environ    map[string]string      `yaml:"environ"`
	Config     map[string]any         `yaml:"config"`
	SourceRoot string                 `yaml:"source_root"`
	BuildRoot  string                 `yaml:"build_root"`
	UserConfig string                 `yaml:"user_config"`
	Paths      map[string]CommandSpec `yaml:"paths"`
}

// LoadFixture reads and parses a fixture file.
func LoadFixture(path string) (*FixtureSpec, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var spec FixtureSpec
	if err := yaml.Unmarshal(content, &spec); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &spec, nil
}

// Build assembles a harness from the fixture. The optional user-config
// text is materialized in a temporary file that is removed before Build
// returns.
func (spec *FixtureSpec) Build(log zerolog.Logger, out io.Writer) (*harness.Harness, error) {
	paths := make(map[string]dispatch.Handler, len(spec.Paths))
	for p, cmd := range spec.Paths {
		paths[p] = cmd.handler()
	}

	var userConfigPath string
	if spec.UserConfig != "" {
		tmp, err := os.CreateTemp("", "confkit-userconfig-*")
		if err != nil {
			return nil, err
		}
		userConfigPath = tmp.Name()
		defer os.Remove(userConfigPath)
		if _, err := tmp.WriteString(spec.UserConfig); err != nil {
			tmp.Close()
			return nil, err
		}
		if err := tmp.Close(); err != nil {
			return nil, err
		}
	}

	return harness.New(harness.Options{
		Paths:          paths,
		Config:         spec.Config,
		Args:           spec.Args,
		Environ:        spec.Environ,
		UserConfigPath: userConfigPath,
		Platform:       platform.Parse(spec.Platform),
		SourceRoot:     spec.SourceRoot,
		BuildRoot:      spec.BuildRoot,
		Out:            out,
		Logger:         log,
	})
}

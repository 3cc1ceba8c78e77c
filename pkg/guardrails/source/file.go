package source

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"mercator-hq/themis/pkg/governance"
)

// policyFile is the on-disk shape of a policy set.
type policyFile struct {
	Policies []*governance.Policy `yaml:"policies"`
}

// FileSource loads guardrail policies from a YAML file on disk.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a file-based policy source for the given path.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:   path,
		logger: logger.With("component", "guardrails.source"),
	}
}

// Path returns the watched file path.
func (s *FileSource) Path() string {
	return s.path
}

// Load reads and parses the policy file. It returns an error for a missing
// file, malformed YAML, or an empty policy list; validation of individual
// policies is left to the engine that installs them.
func (s *FileSource) Load() ([]*governance.Policy, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %q: %w", s.path, err)
	}

	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse policy file %q: %w", s.path, err)
	}

	if len(file.Policies) == 0 {
		return nil, fmt.Errorf("policy file %q contains no policies", s.path)
	}

	s.logger.Info("loaded policies from file",
		"path", s.path,
		"policy_count", len(file.Policies),
	)

	return file.Policies, nil
}

// Installer is the subset of the guardrails engine the source needs.
type Installer interface {
	ReplacePolicies(policies []*governance.Policy) error
}

// Apply loads the file and installs its policy set into the engine as one
// atomic replacement. On any error the engine keeps its current set.
func (s *FileSource) Apply(engine Installer) error {
	policies, err := s.Load()
	if err != nil {
		return err
	}
	return engine.ReplacePolicies(policies)
}

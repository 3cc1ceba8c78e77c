package source

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"mercator-hq/themis/pkg/governance"
)

const validPolicyYAML = `
policies:
  - id: strict_block
    name: Strict Block
    risk_threshold: 0.8
    action: block
    enabled: true
  - id: soft_rewrite
    name: Soft Rewrite
    risk_threshold: 0.2
    action: rewrite
    enabled: false
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writePolicyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policies.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write policy file: %v", err)
	}
	return path
}

func TestFileSource_Load(t *testing.T) {
	src := NewFileSource(writePolicyFile(t, validPolicyYAML), testLogger())

	policies, err := src.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(policies) != 2 {
		t.Fatalf("Expected 2 policies, got %d", len(policies))
	}

	first := policies[0]
	if first.ID != "strict_block" || first.Name != "Strict Block" {
		t.Errorf("Policy identity not parsed: %+v", first)
	}
	if first.RiskThreshold != 0.8 {
		t.Errorf("Expected threshold 0.8, got %f", first.RiskThreshold)
	}
	if first.Action != governance.ActionBlock {
		t.Errorf("Expected block action, got %s", first.Action)
	}
	if !first.Enabled {
		t.Error("Expected first policy enabled")
	}
	if policies[1].Enabled {
		t.Error("Expected second policy disabled")
	}
}

func TestFileSource_LoadMissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.yaml"), testLogger())
	if _, err := src.Load(); err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestFileSource_LoadMalformedYAML(t *testing.T) {
	src := NewFileSource(writePolicyFile(t, "policies: [oops\n"), testLogger())
	if _, err := src.Load(); err == nil {
		t.Fatal("Expected error for malformed YAML")
	}
}

func TestFileSource_LoadEmptyPolicyList(t *testing.T) {
	src := NewFileSource(writePolicyFile(t, "policies: []\n"), testLogger())
	if _, err := src.Load(); err == nil {
		t.Fatal("Expected error for empty policy list")
	}
}

// recordingInstaller captures ReplacePolicies calls.
type recordingInstaller struct {
	installed [][]*governance.Policy
	err       error
}

func (r *recordingInstaller) ReplacePolicies(policies []*governance.Policy) error {
	if r.err != nil {
		return r.err
	}
	r.installed = append(r.installed, policies)
	return nil
}

func TestFileSource_Apply(t *testing.T) {
	src := NewFileSource(writePolicyFile(t, validPolicyYAML), testLogger())
	installer := &recordingInstaller{}

	if err := src.Apply(installer); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(installer.installed) != 1 || len(installer.installed[0]) != 2 {
		t.Errorf("Expected one installation of 2 policies, got %v", installer.installed)
	}
}

func TestFileSource_ApplyLoadFailureSkipsInstall(t *testing.T) {
	src := NewFileSource(writePolicyFile(t, "policies: []\n"), testLogger())
	installer := &recordingInstaller{}

	if err := src.Apply(installer); err == nil {
		t.Fatal("Expected error")
	}
	if len(installer.installed) != 0 {
		t.Error("Expected no installation on load failure")
	}
}

func TestFileSource_ApplyPropagatesInstallError(t *testing.T) {
	src := NewFileSource(writePolicyFile(t, validPolicyYAML), testLogger())
	wantErr := errors.New("invalid threshold")
	installer := &recordingInstaller{err: wantErr}

	if err := src.Apply(installer); !errors.Is(err, wantErr) {
		t.Fatalf("Expected install error, got %v", err)
	}
}

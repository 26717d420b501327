package subagent

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ik-labs/route-pilot/pkg/apperrors"
)

// maxSpecFileSize bounds how large an agent spec YAML file may be, guarding
// against a misconfigured --agents-dir pointing at an unrelated large file.
const maxSpecFileSize = 1 << 20 // 1 MiB

// LoadSpecFile reads and parses the agent spec at path. The spec's Name is
// derived from the file's base name (without extension) unless the document
// sets `name:` explicitly. Unknown top-level keys are rejected, the same
// closed-schema discipline pkg/policy.LoadFile applies to policy files.
func LoadSpecFile(path string) (*AgentSpec, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.NewPolicyError(filepath.Base(path), []apperrors.Issue{
			{Path: "$", Message: fmt.Sprintf("cannot stat file: %v", err)},
		})
	}
	if info.Size() > maxSpecFileSize {
		return nil, apperrors.NewPolicyError(filepath.Base(path), []apperrors.Issue{
			{Path: "$", Message: fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), maxSpecFileSize)},
		})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewPolicyError(filepath.Base(path), []apperrors.Issue{
			{Path: "$", Message: fmt.Sprintf("cannot read file: %v", err)},
		})
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseSpec(data, name)
}

// ParseSpec decodes raw YAML into an AgentSpec. defaultName is used when the
// document has no top-level `name:` field.
func ParseSpec(data []byte, defaultName string) (*AgentSpec, error) {
	var spec AgentSpec

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, apperrors.NewPolicyError(defaultName, []apperrors.Issue{
			{Path: "$", Message: fmt.Sprintf("YAML parse error: %v", err)},
		})
	}

	if spec.Name == "" {
		spec.Name = defaultName
	}
	if spec.Policy == "" {
		return nil, apperrors.NewPolicyError(spec.Name, []apperrors.Issue{
			{Path: "$.policy", Message: "agent spec must name a policy"},
		})
	}

	return &spec, nil
}

// LoadSpecDir reads every .yaml/.yml file in dir and returns the resulting
// specs, keyed by name for direct use with NewRegistry. A single unparseable
// file fails the whole load; callers that want partial loads should call
// LoadSpecFile themselves.
func LoadSpecDir(dir string) ([]AgentSpec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.NewPolicyError(filepath.Base(dir), []apperrors.Issue{
			{Path: "$", Message: fmt.Sprintf("cannot read directory: %v", err)},
		})
	}

	var specs []AgentSpec
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		spec, err := LoadSpecFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}
	return specs, nil
}

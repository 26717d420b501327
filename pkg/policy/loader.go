package policy

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ik-labs/route-pilot/pkg/apperrors"
)

// maxFileSize bounds how large a policy YAML file may be, guarding against a
// misconfigured --policy pointing at an unrelated large file.
const maxFileSize = 1 << 20 // 1 MiB

// LoadFile reads, parses, default-fills, and validates the policy at path.
// The policy's Name is derived from the file's base name (without
// extension) unless the document sets `name:` explicitly. Unknown top-level
// keys are rejected: a closed schema catches typos in a policy file
// instead of silently ignoring them.
func LoadFile(path string) (*Policy, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.NewPolicyError(filepath.Base(path), []apperrors.Issue{
			{Path: "$", Message: fmt.Sprintf("cannot stat file: %v", err)},
		})
	}
	if info.Size() > maxFileSize {
		return nil, apperrors.NewPolicyError(filepath.Base(path), []apperrors.Issue{
			{Path: "$", Message: fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), maxFileSize)},
		})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewPolicyError(filepath.Base(path), []apperrors.Issue{
			{Path: "$", Message: fmt.Sprintf("cannot read file: %v", err)},
		})
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	p, err := Parse(data, name)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Parse decodes raw YAML into a Policy, applies defaults, and validates it.
// defaultName is used when the document has no top-level `name:` field.
func Parse(data []byte, defaultName string) (*Policy, error) {
	var doc struct {
		Name       string      `yaml:"name"`
		Objectives Objectives  `yaml:"objectives"`
		Routing    Routing     `yaml:"routing"`
		Strategy   Strategy    `yaml:"strategy"`
		Tenancy    Tenancy     `yaml:"tenancy"`
		Gen        *GenParams  `yaml:"gen"`
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, apperrors.NewPolicyError(defaultName, []apperrors.Issue{
			{Path: "$", Message: fmt.Sprintf("YAML parse error: %v", err)},
		})
	}

	name := doc.Name
	if name == "" {
		name = defaultName
	}

	p := &Policy{
		Name:       name,
		Objectives: doc.Objectives,
		Routing:    doc.Routing,
		Strategy:   doc.Strategy,
		Tenancy:    doc.Tenancy,
		Gen:        doc.Gen,
	}

	ApplyDefaults(p)
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

package authz

import (
	"bytes"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
)

// FixtureCase is one expected decision of a policy.
type FixtureCase struct {
	Role   string `yaml:"role"`
	Object string `yaml:"object"`
	Action string `yaml:"action"`
	Allow  bool   `yaml:"allow"`
	Note   string `yaml:"note,omitempty"`
}

type Mismatch struct {
	Case   FixtureCase `json:"case"`
	Got    bool        `json:"got"`
	Reason string      `json:"reason,omitempty"`
}

// LoadFixtures reads a YAML document of the form `cases: [...]`.
func LoadFixtures(path string) ([]FixtureCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configError("read fixtures: %v", err)
	}
	var doc struct {
		Cases []FixtureCase `yaml:"cases"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, configError("parse fixtures: %v", err)
	}
	return doc.Cases, nil
}

// Verify evaluates every case against the loaded policy, ignoring the
// rollout mode, and returns the cases whose outcome differs.
func (s *Service) Verify(cases []FixtureCase) ([]Mismatch, error) {
	var out []Mismatch
	for _, c := range cases {
		role, ok := tenancy.ParseRole(c.Role)
		if !ok {
			out = append(out, Mismatch{Case: c, Reason: "unknown role"})
			continue
		}
		got, err := s.Check(NewRequest(role, Permission{Object: c.Object, Action: c.Action}))
		if err != nil {
			return nil, err
		}
		if got != c.Allow {
			out = append(out, Mismatch{Case: c, Got: got})
		}
	}
	return out, nil
}

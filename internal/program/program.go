// Package program defines the declarative description of a tensor
// dataflow program: variable declarations, the operation list, and the
// one-time initialization blocks that set up fused storage. Programs
// load from YAML manifests checked against an embedded JSON schema.
package program

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/tensorfang/internal/scope"
)

var (
	// ErrDuplicateVar reports two declarations sharing one name.
	ErrDuplicateVar = errors.New("duplicate variable")

	// ErrUndeclaredVar reports a reference to a name no declaration or
	// fused-var entry introduces.
	ErrUndeclaredVar = errors.New("undeclared variable")
)

// VarInfo declares one program variable: its name, payload kind, and
// whether it outlives transient scope reclamation.
type VarInfo struct {
	Name        string
	Kind        scope.Kind
	Persistable bool
}

// UnmarshalYAML decodes a variable declaration, mapping the kind name
// to its scope.Kind.
func (vi *VarInfo) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name        string `yaml:"name"`
		Kind        string `yaml:"kind"`
		Persistable bool   `yaml:"persistable"`
	}

	if err := node.Decode(&raw); err != nil {
		return err
	}

	kind, err := scope.ParseKind(raw.Kind)
	if err != nil {
		return fmt.Errorf("var %q: %w", raw.Name, err)
	}

	*vi = VarInfo{Name: raw.Name, Kind: kind, Persistable: raw.Persistable}

	return nil
}

// Program is a complete dataflow description. Ops run every step;
// InitPrograms run at the start of every buffering cycle, after
// FusedVars are materialized as dense slots in every worker scope.
type Program struct {
	Name         string     `yaml:"name"`
	Vars         []VarInfo  `yaml:"vars"`
	Ops          []OpDesc   `yaml:"ops"`
	FusedVars    []string   `yaml:"fused_vars"`
	InitPrograms [][]OpDesc `yaml:"init_programs"`
	Fetches      []string   `yaml:"fetches"`
}

// Validate checks declarative consistency: unique variable names, and
// every name referenced by ops, init blocks or fetches resolving to a
// declared variable or fused-var entry.
func (p *Program) Validate() error {
	known := make(map[string]struct{}, len(p.Vars)+len(p.FusedVars))

	for _, vi := range p.Vars {
		if _, dup := known[vi.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateVar, vi.Name)
		}

		known[vi.Name] = struct{}{}
	}

	for _, name := range p.FusedVars {
		known[name] = struct{}{}
	}

	for i, op := range p.Ops {
		if err := checkOpNames(&op, known); err != nil {
			return fmt.Errorf("op %d (%s): %w", i, op.Type, err)
		}
	}

	for bi, block := range p.InitPrograms {
		for i, op := range block {
			if err := checkOpNames(&op, known); err != nil {
				return fmt.Errorf("init block %d op %d (%s): %w", bi, i, op.Type, err)
			}
		}
	}

	for _, name := range p.Fetches {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("fetch: %w: %q", ErrUndeclaredVar, name)
		}
	}

	return nil
}

func checkOpNames(op *OpDesc, known map[string]struct{}) error {
	for slot, names := range op.Inputs {
		for _, name := range names {
			if _, ok := known[name]; !ok {
				return fmt.Errorf("input %s: %w: %q", slot, ErrUndeclaredVar, name)
			}
		}
	}

	for slot, names := range op.Outputs {
		for _, name := range names {
			if _, ok := known[name]; !ok {
				return fmt.Errorf("output %s: %w: %q", slot, ErrUndeclaredVar, name)
			}
		}
	}

	return nil
}

// VarByName returns the declaration for name, or nil.
func (p *Program) VarByName(name string) *VarInfo {
	for i := range p.Vars {
		if p.Vars[i].Name == name {
			return &p.Vars[i]
		}
	}

	return nil
}

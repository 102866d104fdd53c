package scope

import "sort"

// Scope is one level of the variable namespace. Name resolution climbs
// toward the root; mutation always targets the receiver.
type Scope struct {
	parent *Scope
	vars   map[string]*Variable
	kids   []*Scope
}

// New creates an empty root scope.
func New() *Scope {
	return &Scope{vars: make(map[string]*Variable)}
}

// NewChild creates a child scope and registers it under the receiver.
func (s *Scope) NewChild() *Scope {
	kid := New()
	kid.parent = s
	s.kids = append(s.kids, kid)

	return kid
}

// Parent returns the enclosing scope, or nil for a root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Kids returns the child scopes.
func (s *Scope) Kids() []*Scope {
	return s.kids
}

// Var returns the local variable with the given name, creating an
// unset slot when absent. Parent scopes are never consulted.
func (s *Scope) Var(name string) *Variable {
	if v, ok := s.vars[name]; ok {
		return v
	}

	v := &Variable{}
	s.vars[name] = v

	return v
}

// FindVar returns the local variable with the given name, or nil.
func (s *Scope) FindVar(name string) *Variable {
	return s.vars[name]
}

// Resolve returns the variable with the given name, searching the
// receiver first and then each ancestor. Returns nil when no scope on
// the path defines it.
func (s *Scope) Resolve(name string) *Variable {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v
		}
	}

	return nil
}

// VarNames returns the local variable names in sorted order.
func (s *Scope) VarNames() []string {
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Len returns the number of local variables.
func (s *Scope) Len() int {
	return len(s.vars)
}

// EraseExcept removes every local variable whose slot is not in keep.
// Kept slots retain their payloads and identity.
func (s *Scope) EraseExcept(keep map[*Variable]struct{}) {
	for name, v := range s.vars {
		if _, ok := keep[v]; !ok {
			delete(s.vars, name)
		}
	}
}

// DropKids detaches all child scopes.
func (s *Scope) DropKids() {
	for _, kid := range s.kids {
		kid.parent = nil
	}

	s.kids = nil
}

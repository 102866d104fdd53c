// Package ops implements the operation kernels a program step runs and
// the registry that resolves op types to kernels. Kernels read and
// write variables through scope resolution, so transient scopes see
// persistent parameters in their parent.
package ops

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/tensorfang/internal/program"
	"github.com/Sumatoshi-tech/tensorfang/internal/scope"
)

var (
	// ErrUnknownOp reports an op type with no registered kernel.
	ErrUnknownOp = errors.New("unknown op")

	// ErrBadOp reports a malformed op description, such as a missing
	// slot binding or an unsupported attribute value.
	ErrBadOp = errors.New("bad op")

	// ErrVarNotFound reports an op referencing a variable that no
	// scope on the resolution path defines.
	ErrVarNotFound = errors.New("variable not in scope")

	// ErrShapeMismatch reports operands with incompatible shapes.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// Kernel executes one operation against a scope.
type Kernel func(op *program.OpDesc, s *scope.Scope) error

var kernels = make(map[string]Kernel)

// Register makes a kernel available under the given op type.
// Registering a type twice panics.
func Register(opType string, kernel Kernel) {
	if _, ok := kernels[opType]; ok {
		panic("ops: kernel already registered: " + opType)
	}

	kernels[opType] = kernel
}

// Lookup returns the kernel registered for an op type.
func Lookup(opType string) (Kernel, error) {
	kernel, ok := kernels[opType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, opType)
	}

	return kernel, nil
}

// Run resolves the kernel for op and executes it against the scope.
func Run(op *program.OpDesc, s *scope.Scope) error {
	kernel, err := Lookup(op.Type)
	if err != nil {
		return err
	}

	if err := kernel(op, s); err != nil {
		return fmt.Errorf("%s: %w", op.Type, err)
	}

	return nil
}

package checkpoint

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/Sumatoshi-tech/tensorfang/internal/scope"
	"github.com/Sumatoshi-tech/tensorfang/internal/tensor"
)

// Directory permissions for snapshot directories.
const dirPerm = 0o750

// ErrRecordSize reports a variable record whose payload does not match
// its declared shape.
var ErrRecordSize = errors.New("variable record size mismatch")

// VarRecord is one dense variable's serialized payload.
type VarRecord struct {
	DType string
	Dims  []int64
	Data  []byte
}

// Snapshot is a point-in-time copy of named dense variables.
type Snapshot struct {
	Vars map[string]VarRecord
}

// Capture copies the named variables out of the scope. Only allocated
// dense payloads are recorded; sparse and array payloads hold step
// intermediates and are skipped with a debug log, as are names the
// scope does not resolve.
func Capture(s *scope.Scope, names []string) *Snapshot {
	snap := &Snapshot{Vars: make(map[string]VarRecord, len(names))}

	for _, name := range names {
		v := s.FindVar(name)
		if v == nil {
			slog.Debug("snapshot skipping unknown variable", "var", name)

			continue
		}

		if v.Kind() != scope.KindDense {
			slog.Debug("snapshot skipping non-dense variable",
				"var", name, "kind", v.Kind().String())

			continue
		}

		dense, err := v.Dense()
		if err != nil || !dense.Initialized() {
			slog.Debug("snapshot skipping unallocated variable", "var", name)

			continue
		}

		snap.Vars[name] = VarRecord{
			DType: dense.DType().String(),
			Dims:  dense.Dims(),
			Data:  slices.Clone(dense.Bytes()),
		}
	}

	return snap
}

// Restore writes every snapshot record into the scope, creating and
// typing dense variables as needed. Existing payloads are resized and
// overwritten.
func Restore(s *scope.Scope, snap *Snapshot) error {
	for name, rec := range snap.Vars {
		dtype, err := tensor.ParseDType(rec.DType)
		if err != nil {
			return fmt.Errorf("variable %q: %w", name, err)
		}

		dense, err := s.Var(name).Dense()
		if err != nil {
			return fmt.Errorf("variable %q: %w", name, err)
		}

		dense.Resize(dtype, rec.Dims)

		if dense.SizeBytes() != uint64(len(rec.Data)) {
			return fmt.Errorf("%w: variable %q wants %d bytes, record has %d",
				ErrRecordSize, name, dense.SizeBytes(), len(rec.Data))
		}

		copy(dense.Bytes(), rec.Data)
	}

	return nil
}

// Save writes the snapshot to dir/name plus the codec's extension,
// creating the directory if needed.
func Save(dir, name string, codec Codec, snap *Snapshot) error {
	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, name+codec.Extension())

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer file.Close()

	err = codec.Encode(file, snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	return nil
}

// Load reads a snapshot from the given file path.
func Load(path string, codec Codec) (*Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer file.Close()

	snap := &Snapshot{}

	err = codec.Decode(file, snap)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return snap, nil
}

// Package checkpoint persists snapshots of a scope's persistable
// variables. A snapshot captures dense payloads by name and restores
// them into a fresh scope, so long-lived model state survives process
// restarts.
package checkpoint

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// File extensions for supported codecs.
const (
	gobExtension = ".gob"
	lz4Extension = ".gob.lz4"
)

// ErrUnknownExtension reports a snapshot path whose extension matches
// no known codec.
var ErrUnknownExtension = errors.New("unknown snapshot extension")

// Codec defines how a snapshot is serialized and deserialized.
type Codec interface {
	// Encode writes the state to the writer.
	Encode(w io.Writer, state any) error
	// Decode reads the state from the reader.
	Decode(r io.Reader, state any) error
	// Extension returns the file extension for this codec.
	Extension() string
}

// GobCodec implements Codec using gob encoding.
type GobCodec struct{}

// NewGobCodec creates a gob codec.
func NewGobCodec() *GobCodec {
	return &GobCodec{}
}

// Encode implements Codec.Encode using gob encoding.
func (c *GobCodec) Encode(w io.Writer, state any) error {
	err := gob.NewEncoder(w).Encode(state)
	if err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using gob decoding.
func (c *GobCodec) Decode(r io.Reader, state any) error {
	err := gob.NewDecoder(r).Decode(state)
	if err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for gob files.
func (c *GobCodec) Extension() string {
	return gobExtension
}

// LZ4Codec implements Codec using gob encoding inside an LZ4 frame.
// Dense tensor payloads are large and repetitive, so framing the gob
// stream typically shrinks snapshots by an order of magnitude.
type LZ4Codec struct{}

// NewLZ4Codec creates an LZ4-compressed gob codec.
func NewLZ4Codec() *LZ4Codec {
	return &LZ4Codec{}
}

// Encode implements Codec.Encode as an LZ4-framed gob stream.
func (c *LZ4Codec) Encode(w io.Writer, state any) error {
	zw := lz4.NewWriter(w)

	err := gob.NewEncoder(zw).Encode(state)
	if err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}

	// Close flushes the final frame; without it the stream is
	// truncated and undecodable.
	err = zw.Close()
	if err != nil {
		return fmt.Errorf("lz4 flush: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode for an LZ4-framed gob stream.
func (c *LZ4Codec) Decode(r io.Reader, state any) error {
	err := gob.NewDecoder(lz4.NewReader(r)).Decode(state)
	if err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for LZ4-compressed gob files.
func (c *LZ4Codec) Extension() string {
	return lz4Extension
}

// CodecFor selects a codec from a snapshot path's extension.
func CodecFor(path string) (Codec, error) {
	switch {
	case strings.HasSuffix(path, lz4Extension):
		return NewLZ4Codec(), nil
	case strings.HasSuffix(path, gobExtension):
		return NewGobCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, path)
	}
}

package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/openfroyo/rendercaps/pkg/caps"
)

// FileExtension is the conventional suffix of capability scripts.
const FileExtension = ".rendercaps"

// Encode writes a single block to w.
func Encode(w io.Writer, name string, set *caps.Set) error {
	return NewEncoder(w).Encode(name, set)
}

// Marshal returns the script text for set under name.
func Marshal(name string, set *caps.Set) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, name, set); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeAll reads every block in r. The document succeeds or fails as a
// whole: on error no blocks are returned.
func DecodeAll(r io.Reader, opts ...DecoderOption) ([]Block, error) {
	dec := NewDecoder(r, opts...)
	var blocks []Block
	for {
		b, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return blocks, nil
		}
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, *b)
	}
}

// Unmarshal decodes a document that holds exactly one block.
func Unmarshal(data []byte, opts ...DecoderOption) (string, *caps.Set, error) {
	blocks, err := DecodeAll(bytes.NewReader(data), opts...)
	if err != nil {
		return "", nil, err
	}
	if len(blocks) != 1 {
		return "", nil, NewStructuralError(0, fmt.Sprintf("expected one capability block, found %d", len(blocks)))
	}
	return blocks[0].Name, blocks[0].Set, nil
}

// ReadFile decodes every block in the file at path.
func ReadFile(path string, opts ...DecoderOption) ([]Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()

	opts = append([]DecoderOption{WithSource(path)}, opts...)
	return DecodeAll(f, opts...)
}

// WriteFile writes set under name to path. The file is replaced atomically
// so readers never observe a partial script.
func WriteFile(path, name string, set *caps.Set) error {
	data, err := Marshal(name, set)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".rendercaps-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write script: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close script: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move script into place: %w", err)
	}
	return nil
}

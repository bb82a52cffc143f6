package script

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/openfroyo/rendercaps/pkg/caps"
)

// Encoder writes capability scripts to an io.Writer.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder creates a new script encoder.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w: bufio.NewWriter(w),
	}
}

// Encode writes one block describing set under name. Every capability is
// written with its state; attributes follow in a fixed order and shader
// profiles come last, sorted.
func (e *Encoder) Encode(name string, set *caps.Set) error {
	if err := validateName(name); err != nil {
		return err
	}
	if set == nil {
		set = caps.New()
	}

	// Everything is checked before the header is buffered so a rejected set
	// leaves no partial block behind.
	scalars := make([]string, len(scalarFields))
	for i, f := range scalarFields {
		v := formatValue(f.value(set))
		if strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("value for %s contains a line break", f.key)
		}
		if f.omitEmpty && strings.TrimSpace(v) != v {
			return fmt.Errorf("value for %s %q has leading or trailing whitespace", f.key, v)
		}
		scalars[i] = v
	}
	profiles := set.ShaderProfiles()
	for _, p := range profiles {
		if strings.IndexFunc(p, unicode.IsSpace) >= 0 {
			return fmt.Errorf("shader profile %q contains whitespace", p)
		}
	}

	fmt.Fprintf(e.w, "%s \"%s\"\n{\n", headerKeyword, name)

	for _, f := range flagFields {
		e.writeLine(f.key, formatValue(f.value(set)))
	}

	for i, f := range scalarFields {
		if f.omitEmpty && scalars[i] == "" {
			continue
		}
		e.writeLine(f.key, scalars[i])
	}

	for _, p := range profiles {
		e.writeLine(shaderProfileKey, p)
	}

	if _, err := e.w.WriteString("}\n"); err != nil {
		return fmt.Errorf("failed to write block: %w", err)
	}

	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	return nil
}

// writeLine buffers one body line. Write errors surface on Flush.
func (e *Encoder) writeLine(key, value string) {
	e.w.WriteByte('\t')
	e.w.WriteString(key)
	e.w.WriteByte(' ')
	e.w.WriteString(value)
	e.w.WriteByte('\n')
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("capability set name is empty")
	}
	if strings.ContainsAny(name, "\r\n") {
		return fmt.Errorf("capability set name %q contains a line break", name)
	}
	return nil
}

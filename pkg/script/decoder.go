package script

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/openfroyo/rendercaps/pkg/caps"
)

// UnknownKeyPolicy decides what happens to body lines whose key is not in the
// key table.
type UnknownKeyPolicy int

const (
	// RejectUnknownKeys fails the document with an unknown-key error.
	RejectUnknownKeys UnknownKeyPolicy = iota

	// SkipUnknownKeys drops the line, logs a warning and keeps decoding.
	SkipUnknownKeys
)

// String returns the policy name used in configuration.
func (p UnknownKeyPolicy) String() string {
	if p == SkipUnknownKeys {
		return "skip"
	}
	return "reject"
}

// ParseUnknownKeyPolicy accepts "reject" (or "") and "skip".
func ParseUnknownKeyPolicy(s string) (UnknownKeyPolicy, error) {
	switch strings.ToLower(s) {
	case "", "reject", "strict":
		return RejectUnknownKeys, nil
	case "skip", "lenient":
		return SkipUnknownKeys, nil
	default:
		return RejectUnknownKeys, fmt.Errorf("unknown key policy %q (want reject or skip)", s)
	}
}

// Block is one decoded capability set and the name it was declared under.
type Block struct {
	Name string
	Set  *caps.Set

	// Line is the line of the block header.
	Line int
}

// Warning is a recoverable problem the decoder stepped over.
type Warning struct {
	Line    int
	Key     string
	Message string
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithUnknownKeyPolicy sets how unknown body keys are handled.
func WithUnknownKeyPolicy(p UnknownKeyPolicy) DecoderOption {
	return func(d *Decoder) { d.policy = p }
}

// WithLogger sets the logger warnings are reported to.
func WithLogger(logger zerolog.Logger) DecoderOption {
	return func(d *Decoder) { d.logger = logger }
}

// WithSource names the input in errors and log lines.
func WithSource(source string) DecoderOption {
	return func(d *Decoder) { d.source = source }
}

// Decoder reads capability scripts from an io.Reader.
type Decoder struct {
	r        *bufio.Scanner
	line     int
	policy   UnknownKeyPolicy
	logger   zerolog.Logger
	source   string
	warnings []Warning
	err      error
}

// NewDecoder creates a new script decoder. By default unknown keys are
// rejected.
func NewDecoder(r io.Reader, opts ...DecoderOption) *Decoder {
	scanner := bufio.NewScanner(r)
	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, 0, 64*1024), maxCapacity)

	d := &Decoder{
		r:      scanner,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Warnings returns the warnings collected so far.
func (d *Decoder) Warnings() []Warning {
	return d.warnings
}

// Decode reads the next block. It returns io.EOF when the input holds no
// further blocks. After a failure every later call returns the same error.
func (d *Decoder) Decode() (*Block, error) {
	if d.err != nil {
		return nil, d.err
	}
	b, err := d.decode()
	if err != nil {
		d.err = err
	}
	return b, err
}

func (d *Decoder) decode() (*Block, error) {
	header, ok, err := d.nextLine()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, io.EOF
	}

	name, err := d.parseHeader(header)
	if err != nil {
		return nil, err
	}
	block := &Block{Name: name, Set: caps.New(), Line: d.line}

	open, ok, err := d.nextLine()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, d.structural(fmt.Sprintf("unexpected end of input after header for %q", name))
	}
	if open != "{" {
		return nil, d.structural(fmt.Sprintf("expected '{' after header, got %q", open))
	}

	for {
		line, ok, err := d.nextLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, d.structural(fmt.Sprintf("unexpected end of input in block %q", name))
		}
		if line == "}" {
			return block, nil
		}
		if err := d.parseBody(block.Set, line); err != nil {
			return nil, err
		}
	}
}

// nextLine returns the next line that is neither blank nor a comment,
// with surrounding whitespace removed.
func (d *Decoder) nextLine() (string, bool, error) {
	for d.r.Scan() {
		d.line++
		line := strings.TrimSpace(d.r.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		return line, true, nil
	}
	if err := d.r.Err(); err != nil {
		return "", false, fmt.Errorf("scan error: %w", err)
	}
	return "", false, nil
}

func (d *Decoder) parseHeader(line string) (string, error) {
	rest, ok := strings.CutPrefix(line, headerKeyword)
	if !ok || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
		return "", d.structural(fmt.Sprintf("expected %s header, got %q", headerKeyword, line))
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 2 || rest[0] != '"' || rest[len(rest)-1] != '"' {
		return "", d.structural("header is missing a quoted name")
	}
	name := rest[1 : len(rest)-1]
	if name == "" {
		return "", d.structural("header has an empty name")
	}
	return name, nil
}

func (d *Decoder) parseBody(set *caps.Set, line string) error {
	if line == "{" {
		return d.structural("unexpected '{' inside block")
	}

	key, value := line, ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		key, value = line[:i], strings.TrimSpace(line[i+1:])
	}

	if !IsKnownKey(key) {
		if d.policy == SkipUnknownKeys {
			d.warn(key, fmt.Sprintf("skipping unknown key %q", key))
			return nil
		}
		return d.located(NewUnknownKeyError(d.line, key))
	}

	if value == "" {
		return d.located(NewValueError(d.line, key, fmt.Sprintf("missing value for %s", key), nil))
	}

	if err := Apply(set, key, value); err != nil {
		if se, ok := err.(*ScriptError); ok {
			se.Line = d.line
			return d.located(se)
		}
		return d.located(NewValueError(d.line, key, fmt.Sprintf("invalid value %q for %s", value, key), err))
	}
	return nil
}

func (d *Decoder) warn(key, message string) {
	d.warnings = append(d.warnings, Warning{Line: d.line, Key: key, Message: message})
	d.logger.Warn().
		Str("source", d.source).
		Int("line", d.line).
		Str("key", key).
		Msg(message)
}

func (d *Decoder) structural(message string) error {
	return d.located(NewStructuralError(d.line, message))
}

func (d *Decoder) located(e *ScriptError) error {
	if d.source != "" {
		e.WithSource(d.source)
	}
	return e
}

package script

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/openfroyo/rendercaps/pkg/caps"
)

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantErr  error
		wantLine int
	}{
		{
			name:     "header without name",
			src:      "render_system_capabilities\n{\n}\n",
			wantErr:  ErrStructural,
			wantLine: 1,
		},
		{
			name:     "header with unquoted name",
			src:      "render_system_capabilities Foo\n{\n}\n",
			wantErr:  ErrStructural,
			wantLine: 1,
		},
		{
			name:     "header with empty name",
			src:      "render_system_capabilities \"\"\n{\n}\n",
			wantErr:  ErrStructural,
			wantLine: 1,
		},
		{
			name:     "wrong keyword",
			src:      "render_system \"Foo\"\n{\n}\n",
			wantErr:  ErrStructural,
			wantLine: 1,
		},
		{
			name:     "keyword run into name",
			src:      "render_system_capabilitiesX \"Foo\"\n{\n}\n",
			wantErr:  ErrStructural,
			wantLine: 1,
		},
		{
			name:     "missing open brace",
			src:      "render_system_capabilities \"Foo\"\n\tautomipmap true\n}\n",
			wantErr:  ErrStructural,
			wantLine: 2,
		},
		{
			name:     "missing close brace",
			src:      "render_system_capabilities \"Foo\"\n{\n\tautomipmap true\n",
			wantErr:  ErrStructural,
			wantLine: 3,
		},
		{
			name:     "header only",
			src:      "render_system_capabilities \"Foo\"\n",
			wantErr:  ErrStructural,
			wantLine: 1,
		},
		{
			name:     "nested open brace",
			src:      "render_system_capabilities \"Foo\"\n{\n{\n}\n",
			wantErr:  ErrStructural,
			wantLine: 3,
		},
		{
			name:     "stray close brace",
			src:      "}\n",
			wantErr:  ErrStructural,
			wantLine: 1,
		},
		{
			name:     "non-numeric integer",
			src:      "render_system_capabilities \"Foo\"\n{\n\tnum_texture_units eight\n}\n",
			wantErr:  ErrValue,
			wantLine: 3,
		},
		{
			name:     "capitalised boolean",
			src:      "render_system_capabilities \"Foo\"\n{\n\tautomipmap True\n}\n",
			wantErr:  ErrValue,
			wantLine: 3,
		},
		{
			name:     "numeric boolean",
			src:      "render_system_capabilities \"Foo\"\n{\n\tvertex_texture_units_shared 1\n}\n",
			wantErr:  ErrValue,
			wantLine: 3,
		},
		{
			name:     "bad float",
			src:      "render_system_capabilities \"Foo\"\n{\n\tmax_point_size big\n}\n",
			wantErr:  ErrValue,
			wantLine: 3,
		},
		{
			name:     "bad driver version",
			src:      "render_system_capabilities \"Foo\"\n{\n\tdriver_version 1.2.x\n}\n",
			wantErr:  ErrValue,
			wantLine: 3,
		},
		{
			name:     "key without value",
			src:      "render_system_capabilities \"Foo\"\n{\n\tfbo\n}\n",
			wantErr:  ErrValue,
			wantLine: 3,
		},
		{
			name:     "profile with two tokens",
			src:      "render_system_capabilities \"Foo\"\n{\n\tshader_profile vs_1_1 ps_1_1\n}\n",
			wantErr:  ErrValue,
			wantLine: 3,
		},
		{
			name:     "unknown key",
			src:      "render_system_capabilities \"Foo\"\n{\n\tray_tracing true\n}\n",
			wantErr:  ErrUnknownKey,
			wantLine: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, set, err := Unmarshal([]byte(tt.src))
			if err == nil {
				t.Fatalf("Unmarshal() succeeded with %+v", set)
			}
			if set != nil {
				t.Error("Unmarshal() returned a partial set")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want class of %v", err, tt.wantErr)
			}
			var se *ScriptError
			if !errors.As(err, &se) {
				t.Fatalf("error %T is not a *ScriptError", err)
			}
			if se.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", se.Line, tt.wantLine)
			}
		})
	}
}

func TestDecodeEmptyBlock(t *testing.T) {
	for _, src := range []string{
		"render_system_capabilities \"Empty\"\n{\n}\n",
		"render_system_capabilities \"Empty\"\n{\n\n\n}",
		"  render_system_capabilities   \"Empty\"  \n  {  \n  }  \n",
	} {
		name, set, err := Unmarshal([]byte(src))
		if err != nil {
			t.Fatalf("Unmarshal(%q) error = %v", src, err)
		}
		if name != "Empty" {
			t.Errorf("name = %q", name)
		}
		if !set.Equal(caps.New()) {
			t.Errorf("empty block decoded to %v", caps.Diff(caps.New(), set))
		}
	}
}

func TestDecodeCommentsAndWhitespace(t *testing.T) {
	src := `// Capabilities of a reference device
render_system_capabilities "Reference Device"
{
	// flags
	automipmap    true
	fbo	true

	device_name   Reference  Rasterizer
	shader_profile arbvp1
	shader_profile arbvp1
}
`
	name, set, err := Unmarshal([]byte(src))
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if name != "Reference Device" {
		t.Errorf("name = %q", name)
	}
	if !set.HasCapability(caps.AutoMipmap) || !set.HasCapability(caps.FBO) {
		t.Error("flags not decoded")
	}
	if set.DeviceName() != "Reference  Rasterizer" {
		t.Errorf("DeviceName() = %q", set.DeviceName())
	}
	if got := set.ShaderProfiles(); len(got) != 1 || got[0] != "arbvp1" {
		t.Errorf("ShaderProfiles() = %v", got)
	}
}

func TestDecodeLaterLineWins(t *testing.T) {
	src := "render_system_capabilities \"Twice\"\n{\n\tfbo true\n\tfbo false\n\tnum_texture_units 4\n\tnum_texture_units 8\n}\n"
	_, set, err := Unmarshal([]byte(src))
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if set.HasCapability(caps.FBO) {
		t.Error("fbo should be false after the second line")
	}
	if set.NumTextureUnits() != 8 {
		t.Errorf("NumTextureUnits() = %d, want 8", set.NumTextureUnits())
	}
}

func TestDecodeSkipUnknownKeys(t *testing.T) {
	src := "render_system_capabilities \"Future\"\n{\n\tmesh_shaders true\n\tautomipmap true\n\tray_query\n}\n"

	dec := NewDecoder(strings.NewReader(src),
		WithUnknownKeyPolicy(SkipUnknownKeys),
		WithLogger(zerolog.New(io.Discard)),
		WithSource("future.rendercaps"),
	)
	b, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !b.Set.HasCapability(caps.AutoMipmap) {
		t.Error("known key after an unknown one was not applied")
	}

	warnings := dec.Warnings()
	if len(warnings) != 2 {
		t.Fatalf("got %d warnings, want 2: %+v", len(warnings), warnings)
	}
	if warnings[0].Key != "mesh_shaders" || warnings[0].Line != 3 {
		t.Errorf("first warning = %+v", warnings[0])
	}

	if _, err := dec.Decode(); !errors.Is(err, io.EOF) {
		t.Errorf("second Decode() error = %v, want io.EOF", err)
	}
}

func TestDecodeMultipleBlocksIsAtomic(t *testing.T) {
	good := "render_system_capabilities \"A\"\n{\n\tfbo true\n}\n"
	bad := "render_system_capabilities \"B\"\n{\n\tnum_texture_units x\n}\n"

	blocks, err := DecodeAll(strings.NewReader(good + good))
	if err != nil || len(blocks) != 2 {
		t.Fatalf("DecodeAll(good+good) = %d blocks, %v", len(blocks), err)
	}

	blocks, err = DecodeAll(strings.NewReader(good + bad))
	if err == nil {
		t.Fatal("DecodeAll(good+bad) succeeded")
	}
	if blocks != nil {
		t.Errorf("DecodeAll(good+bad) returned %d blocks", len(blocks))
	}
}

func TestDecoderStickyError(t *testing.T) {
	dec := NewDecoder(strings.NewReader("garbage\nrender_system_capabilities \"A\"\n{\n}\n"))
	_, err1 := dec.Decode()
	_, err2 := dec.Decode()
	if err1 == nil || err1 != err2 {
		t.Errorf("errors = %v, %v; want the same non-nil error twice", err1, err2)
	}
}

func TestUnmarshalRequiresOneBlock(t *testing.T) {
	if _, _, err := Unmarshal([]byte("// nothing here\n")); !errors.Is(err, ErrStructural) {
		t.Errorf("empty document error = %v, want structural", err)
	}
}

func TestScriptErrorFormat(t *testing.T) {
	err := NewValueError(7, "num_texture_units", "invalid value", errors.New("boom")).WithSource("a.rendercaps")
	want := "[value] a.rendercaps:7: invalid value: boom"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, &ScriptError{Class: ErrorClassValue, Key: "num_texture_units"}) {
		t.Error("errors.Is with matching key failed")
	}
	if errors.Is(err, &ScriptError{Class: ErrorClassValue, Key: "fbo"}) {
		t.Error("errors.Is with a different key matched")
	}
}

func TestParseUnknownKeyPolicy(t *testing.T) {
	tests := map[string]UnknownKeyPolicy{
		"":       RejectUnknownKeys,
		"reject": RejectUnknownKeys,
		"skip":   SkipUnknownKeys,
		"SKIP":   SkipUnknownKeys,
	}
	for in, want := range tests {
		got, err := ParseUnknownKeyPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseUnknownKeyPolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseUnknownKeyPolicy("maybe"); err == nil {
		t.Error("ParseUnknownKeyPolicy(maybe) succeeded")
	}
}

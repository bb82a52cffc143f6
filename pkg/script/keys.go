package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openfroyo/rendercaps/pkg/caps"
)

const (
	headerKeyword    = "render_system_capabilities"
	shaderProfileKey = "shader_profile"
)

// field binds one body key to a typed view of a caps.Set.
type field struct {
	key string

	// value returns the typed value held by the set: bool, int, float64,
	// string, caps.DriverVersion or caps.GPUVendor.
	value func(*caps.Set) any

	// apply converts a script value and stores it in the set.
	apply func(*caps.Set, string) error

	// omitEmpty skips the line on encode when the value is the empty string.
	omitEmpty bool
}

func flagField(c caps.Capability) *field {
	return &field{
		key:   c.String(),
		value: func(s *caps.Set) any { return s.HasCapability(c) },
		apply: func(s *caps.Set, v string) error {
			on, err := parseBool(v)
			if err != nil {
				return err
			}
			if on {
				s.SetCapability(c)
			} else {
				s.UnsetCapability(c)
			}
			return nil
		},
	}
}

func intField(key string, get func(*caps.Set) int, set func(*caps.Set, int)) *field {
	return &field{
		key:   key,
		value: func(s *caps.Set) any { return get(s) },
		apply: func(s *caps.Set, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			set(s, n)
			return nil
		},
	}
}

func floatField(key string, get func(*caps.Set) float64, set func(*caps.Set, float64)) *field {
	return &field{
		key:   key,
		value: func(s *caps.Set) any { return get(s) },
		apply: func(s *caps.Set, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			set(s, f)
			return nil
		},
	}
}

func boolField(key string, get func(*caps.Set) bool, set func(*caps.Set, bool)) *field {
	return &field{
		key:   key,
		value: func(s *caps.Set) any { return get(s) },
		apply: func(s *caps.Set, v string) error {
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			set(s, b)
			return nil
		},
	}
}

func stringField(key string, get func(*caps.Set) string, set func(*caps.Set, string)) *field {
	return &field{
		key:       key,
		value:     func(s *caps.Set) any { return get(s) },
		apply:     func(s *caps.Set, v string) error { set(s, v); return nil },
		omitEmpty: true,
	}
}

// flagFields lists every capability in enumeration order.
var flagFields = func() []*field {
	out := make([]*field, 0, caps.NumCapabilities)
	for _, c := range caps.Capabilities() {
		out = append(out, flagField(c))
	}
	return out
}()

// scalarFields lists the attribute keys in encode order.
var scalarFields = []*field{
	intField("num_world_matrices", (*caps.Set).NumWorldMatrices, (*caps.Set).SetNumWorldMatrices),
	intField("num_texture_units", (*caps.Set).NumTextureUnits, (*caps.Set).SetNumTextureUnits),
	intField("stencil_buffer_bit_depth", (*caps.Set).StencilBufferBitDepth, (*caps.Set).SetStencilBufferBitDepth),
	intField("num_vertex_blend_matrices", (*caps.Set).NumVertexBlendMatrices, (*caps.Set).SetNumVertexBlendMatrices),
	intField("num_multi_render_targets", (*caps.Set).NumMultiRenderTargets, (*caps.Set).SetNumMultiRenderTargets),
	intField("num_vertex_texture_units", (*caps.Set).NumVertexTextureUnits, (*caps.Set).SetNumVertexTextureUnits),
	intField("vertex_program_constant_float_count",
		(*caps.Set).VertexProgramConstantFloatCount, (*caps.Set).SetVertexProgramConstantFloatCount),
	intField("vertex_program_constant_int_count",
		(*caps.Set).VertexProgramConstantIntCount, (*caps.Set).SetVertexProgramConstantIntCount),
	intField("vertex_program_constant_bool_count",
		(*caps.Set).VertexProgramConstantBoolCount, (*caps.Set).SetVertexProgramConstantBoolCount),
	intField("fragment_program_constant_float_count",
		(*caps.Set).FragmentProgramConstantFloatCount, (*caps.Set).SetFragmentProgramConstantFloatCount),
	intField("fragment_program_constant_int_count",
		(*caps.Set).FragmentProgramConstantIntCount, (*caps.Set).SetFragmentProgramConstantIntCount),
	intField("fragment_program_constant_bool_count",
		(*caps.Set).FragmentProgramConstantBoolCount, (*caps.Set).SetFragmentProgramConstantBoolCount),
	floatField("max_point_size", (*caps.Set).MaxPointSize, (*caps.Set).SetMaxPointSize),
	boolField("non_pow2_textures_limited", (*caps.Set).NonPOW2TexturesLimited, (*caps.Set).SetNonPOW2TexturesLimited),
	boolField("vertex_texture_units_shared", (*caps.Set).VertexTextureUnitsShared, (*caps.Set).SetVertexTextureUnitsShared),
	{
		key:   "driver_version",
		value: func(s *caps.Set) any { return s.DriverVersion() },
		apply: func(s *caps.Set, v string) error {
			dv, err := caps.ParseDriverVersion(v)
			if err != nil {
				return err
			}
			s.SetDriverVersion(dv)
			return nil
		},
	},
	{
		key:   "vendor",
		value: func(s *caps.Set) any { return s.Vendor() },
		apply: func(s *caps.Set, v string) error { s.SetVendor(caps.ParseGPUVendor(v)); return nil },
	},
	stringField("device_name", (*caps.Set).DeviceName, (*caps.Set).SetDeviceName),
	stringField("render_system_name", (*caps.Set).RenderSystemName, (*caps.Set).SetRenderSystemName),
}

// keyTable maps every body key except shader_profile to its field.
// It is built once and never modified.
var keyTable = func() map[string]*field {
	m := make(map[string]*field, len(flagFields)+len(scalarFields))
	for _, f := range flagFields {
		m[f.key] = f
	}
	for _, f := range scalarFields {
		if _, dup := m[f.key]; dup {
			panic("script: duplicate key " + f.key)
		}
		m[f.key] = f
	}
	return m
}()

// Keys returns every body key the codec understands, in encode order.
func Keys() []string {
	out := make([]string, 0, len(flagFields)+len(scalarFields)+1)
	for _, f := range flagFields {
		out = append(out, f.key)
	}
	for _, f := range scalarFields {
		out = append(out, f.key)
	}
	return append(out, shaderProfileKey)
}

// IsKnownKey reports whether key may appear in a script body.
func IsKnownKey(key string) bool {
	if key == shaderProfileKey {
		return true
	}
	_, ok := keyTable[key]
	return ok
}

// Apply converts value and stores it under key, as the decoder would for a
// body line. shader_profile adds one profile.
func Apply(set *caps.Set, key, value string) error {
	if key == shaderProfileKey {
		return addProfile(set, value)
	}
	f, ok := keyTable[key]
	if !ok {
		return NewUnknownKeyError(0, key)
	}
	if err := f.apply(set, value); err != nil {
		return NewValueError(0, key, fmt.Sprintf("invalid value %q for %s", value, key), err)
	}
	return nil
}

// Fields returns the set as a map keyed by script key. Capabilities map to
// bool, counts to int, max_point_size to float64, driver_version and vendor
// to their string forms and shader_profile to a sorted []string.
func Fields(set *caps.Set) map[string]any {
	out := make(map[string]any, len(keyTable)+1)
	for _, f := range flagFields {
		out[f.key] = f.value(set)
	}
	for _, f := range scalarFields {
		v := f.value(set)
		switch tv := v.(type) {
		case caps.DriverVersion:
			v = tv.String()
		case caps.GPUVendor:
			v = tv.String()
		}
		out[f.key] = v
	}
	out[shaderProfileKey] = set.ShaderProfiles()
	return out
}

func formatValue(v any) string {
	switch tv := v.(type) {
	case bool:
		return strconv.FormatBool(tv)
	case int:
		return strconv.Itoa(tv)
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case string:
		return tv
	case fmt.Stringer:
		return tv.String()
	default:
		return fmt.Sprint(tv)
	}
}

// parseBool accepts only the literals true and false.
func parseBool(v string) (bool, error) {
	switch v {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("want true or false, got %q", v)
	}
}

func addProfile(set *caps.Set, token string) error {
	if token == "" || strings.ContainsAny(token, " \t") {
		return NewValueError(0, shaderProfileKey, fmt.Sprintf("invalid shader profile %q", token), nil)
	}
	set.AddShaderProfile(token)
	return nil
}

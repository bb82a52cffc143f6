package caps

import "math"

// Diff returns the names of the fields on which a and b disagree, in a fixed
// order: capability tokens first, then attributes, then "shader_profile" if
// the profile sets differ. A nil set compares as blank.
func Diff(a, b *Set) []string {
	if a == nil {
		a = New()
	}
	if b == nil {
		b = New()
	}

	var out []string
	for c := Capability(0); c < numCapabilities; c++ {
		if a.HasCapability(c) != b.HasCapability(c) {
			out = append(out, c.String())
		}
	}

	fields := []struct {
		name  string
		equal bool
	}{
		{"num_world_matrices", a.numWorldMatrices == b.numWorldMatrices},
		{"num_texture_units", a.numTextureUnits == b.numTextureUnits},
		{"stencil_buffer_bit_depth", a.stencilBufferBitDepth == b.stencilBufferBitDepth},
		{"num_vertex_blend_matrices", a.numVertexBlendMatrices == b.numVertexBlendMatrices},
		{"num_multi_render_targets", a.numMultiRenderTargets == b.numMultiRenderTargets},
		{"num_vertex_texture_units", a.numVertexTextureUnits == b.numVertexTextureUnits},
		{"vertex_program_constant_float_count", a.vertexProgramConstantFloatCount == b.vertexProgramConstantFloatCount},
		{"vertex_program_constant_int_count", a.vertexProgramConstantIntCount == b.vertexProgramConstantIntCount},
		{"vertex_program_constant_bool_count", a.vertexProgramConstantBoolCount == b.vertexProgramConstantBoolCount},
		{"fragment_program_constant_float_count", a.fragmentProgramConstantFloatCount == b.fragmentProgramConstantFloatCount},
		{"fragment_program_constant_int_count", a.fragmentProgramConstantIntCount == b.fragmentProgramConstantIntCount},
		{"fragment_program_constant_bool_count", a.fragmentProgramConstantBoolCount == b.fragmentProgramConstantBoolCount},
		{"max_point_size", sameFloat(a.maxPointSize, b.maxPointSize)},
		{"non_pow2_textures_limited", a.nonPOW2TexturesLimited == b.nonPOW2TexturesLimited},
		{"vertex_texture_units_shared", a.vertexTextureUnitsShared == b.vertexTextureUnitsShared},
		{"device_name", a.deviceName == b.deviceName},
		{"render_system_name", a.renderSystemName == b.renderSystemName},
		{"driver_version", a.driverVersion == b.driverVersion},
		{"vendor", a.vendor == b.vendor},
		{"shader_profile", sameProfiles(a, b)},
	}
	for _, f := range fields {
		if !f.equal {
			out = append(out, f.name)
		}
	}

	return out
}

func sameProfiles(a, b *Set) bool {
	if len(a.profiles) != len(b.profiles) {
		return false
	}
	for p := range a.profiles {
		if _, ok := b.profiles[p]; !ok {
			return false
		}
	}
	return true
}

// sameFloat treats two NaNs as equal so a set always equals its own copy.
func sameFloat(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

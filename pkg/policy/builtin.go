package policy

// BuiltinPolicies returns the consistency checks every engine starts with.
// They flag combinations of capabilities that a real driver never reports.
func BuiltinPolicies() []Policy {
	return []Policy{
		compressionFormatsPolicy(),
		shaderProfilesPolicy(),
		vertexTextureFetchPolicy(),
		framebufferObjectsPolicy(),
	}
}

// compressionFormatsPolicy requires the generic compression flag whenever a
// specific compressed format is claimed.
func compressionFormatsPolicy() Policy {
	return Policy{
		Name:        "compression-formats",
		Description: "Specific texture compression formats imply texture_compression",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"textures"},
		Rego: `package rendercaps.builtin.compression

import rego.v1

formats := [
	"texture_compression_dxt",
	"texture_compression_vtc",
	"texture_compression_pvrtc",
	"texture_compression_bc4_bc5",
	"texture_compression_bc6h_bc7",
]

deny contains violation if {
	not input.caps.texture_compression
	some format in formats
	input.caps[format]
	violation := {
		"message": sprintf("%s is set but texture_compression is not", [format]),
		"key": format,
	}
}
`,
	}
}

// shaderProfilesPolicy requires a programmable stage when shader profiles
// are listed.
func shaderProfilesPolicy() Policy {
	return Policy{
		Name:        "shader-profiles",
		Description: "Shader profiles require vertex_program or fragment_program",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"shaders"},
		Rego: `package rendercaps.builtin.shaders

import rego.v1

deny contains violation if {
	count(input.caps.shader_profile) > 0
	not input.caps.vertex_program
	not input.caps.fragment_program
	violation := {
		"message": sprintf("%d shader profiles listed without a programmable stage", [count(input.caps.shader_profile)]),
		"key": "shader_profile",
	}
}
`,
	}
}

func vertexTextureFetchPolicy() Policy {
	return Policy{
		Name:        "vertex-texture-fetch",
		Description: "vertex_texture_fetch needs at least one vertex texture unit",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"textures"},
		Rego: `package rendercaps.builtin.vtf

import rego.v1

deny contains violation if {
	input.caps.vertex_texture_fetch
	input.caps.num_vertex_texture_units < 1
	violation := {
		"message": "vertex_texture_fetch is set but num_vertex_texture_units is 0",
		"key": "num_vertex_texture_units",
	}
}
`,
	}
}

// framebufferObjectsPolicy notes vendor FBO extensions reported without
// core FBO support.
func framebufferObjectsPolicy() Policy {
	return Policy{
		Name:        "framebuffer-objects",
		Description: "Vendor FBO extensions are reported alongside fbo",
		Severity:    SeverityInfo,
		Enabled:     true,
		Tags:        []string{"framebuffers"},
		Rego: `package rendercaps.builtin.fbo

import rego.v1

deny contains violation if {
	not input.caps.fbo
	some ext in ["fbo_arb", "fbo_ati"]
	input.caps[ext]
	violation := {
		"message": sprintf("%s is set but fbo is not", [ext]),
		"key": ext,
	}
}
`,
	}
}

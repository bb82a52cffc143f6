package caps

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCapabilityTokens(t *testing.T) {
	tests := []struct {
		cap   Capability
		token string
	}{
		{AutoMipmap, "automipmap"},
		{Blending, "blending"},
		{Anisotropy, "anisotropy"},
		{Dot3, "dot3"},
		{CubeMapping, "cubemapping"},
		{HWStencil, "hwstencil"},
		{VBO, "vbo"},
		{VertexProgram, "vertex_program"},
		{FragmentProgram, "fragment_program"},
		{ScissorTest, "scissor_test"},
		{TwoSidedStencil, "two_sided_stencil"},
		{StencilWrap, "stencil_wrap"},
		{HWOcclusion, "hwocclusion"},
		{UserClipPlanes, "user_clip_planes"},
		{VertexFormatUByte4, "vertex_format_ubyte4"},
		{InfiniteFarPlane, "infinite_far_plane"},
		{HWRenderToTexture, "hwrender_to_texture"},
		{TextureFloat, "texture_float"},
		{NonPowerOf2Textures, "non_power_of_2_textures"},
		{Texture3D, "texture_3d"},
		{PointSprites, "point_sprites"},
		{PointExtendedParameters, "point_extended_parameters"},
		{VertexTextureFetch, "vertex_texture_fetch"},
		{MipmapLODBias, "mipmap_lod_bias"},
		{TextureCompression, "texture_compression"},
		{TextureCompressionDXT, "texture_compression_dxt"},
		{TextureCompressionVTC, "texture_compression_vtc"},
		{TextureCompressionPVRTC, "texture_compression_pvrtc"},
		{TextureCompressionBC4BC5, "texture_compression_bc4_bc5"},
		{TextureCompressionBC6HBC7, "texture_compression_bc6h_bc7"},
		{FBO, "fbo"},
		{FBOARB, "fbo_arb"},
		{FBOATI, "fbo_ati"},
		{PBuffer, "pbuffer"},
		{PerStageConstant, "perstageconstant"},
		{SeparateShaderObjects, "separate_shader_objects"},
		{VAO, "vao"},
	}

	if len(tests) != NumCapabilities {
		t.Fatalf("token table covers %d capabilities, enumeration has %d", len(tests), NumCapabilities)
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			if got := tt.cap.String(); got != tt.token {
				t.Errorf("String() = %q, want %q", got, tt.token)
			}
			got, ok := ParseCapability(tt.token)
			if !ok || got != tt.cap {
				t.Errorf("ParseCapability(%q) = %v, %v; want %v, true", tt.token, got, ok, tt.cap)
			}
		})
	}
}

func TestParseCapabilityUnknown(t *testing.T) {
	for _, token := range []string{"", "AUTOMIPMAP", "mipmap", "fbo "} {
		if _, ok := ParseCapability(token); ok {
			t.Errorf("ParseCapability(%q) succeeded, want failure", token)
		}
	}
}

func TestNewSetIsBlank(t *testing.T) {
	s := New()

	for _, c := range Capabilities() {
		if s.HasCapability(c) {
			t.Errorf("fresh set has %s", c)
		}
	}
	if len(s.ShaderProfiles()) != 0 {
		t.Errorf("fresh set has shader profiles %v", s.ShaderProfiles())
	}
	if s.NumWorldMatrices() != 0 || s.MaxPointSize() != 0 || s.VertexTextureUnitsShared() {
		t.Error("fresh set has non-zero attributes")
	}
	if s.DeviceName() != "" || s.RenderSystemName() != "" {
		t.Error("fresh set has names")
	}
	if !s.DriverVersion().IsZero() {
		t.Errorf("fresh set has driver version %s", s.DriverVersion())
	}
	if !s.Equal(&Set{}) {
		t.Error("New() differs from the zero value")
	}
}

func TestSetCapabilityIsIndependent(t *testing.T) {
	for _, c := range Capabilities() {
		t.Run(c.String(), func(t *testing.T) {
			s := New()
			s.SetCapability(c)

			for _, other := range Capabilities() {
				want := other == c
				if got := s.HasCapability(other); got != want {
					t.Errorf("HasCapability(%s) = %v, want %v", other, got, want)
				}
			}

			s.UnsetCapability(c)
			if s.HasCapability(c) {
				t.Errorf("%s still set after UnsetCapability", c)
			}
		})
	}
}

func TestSetCapabilityPanicsOnUnknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("SetCapability with an unknown value did not panic")
		}
	}()
	New().SetCapability(Capability(NumCapabilities))
}

func TestShaderProfiles(t *testing.T) {
	s := New()
	s.AddShaderProfile("vs99")
	s.AddShaderProfile("vs99")
	s.AddShaderProfile("")
	s.AddShaderProfile("..f(_)specialsymbolextravaganza!@#$%^&*_but_no_spaces")

	tests := []struct {
		token string
		want  bool
	}{
		{"vs99", true},
		{"VS99", false},
		{"ps_1_1", false},
		{"", false},
		{"..f(_)specialsymbolextravaganza!@#$%^&*_but_no_spaces", true},
	}
	for _, tt := range tests {
		if got := s.IsShaderProfileSupported(tt.token); got != tt.want {
			t.Errorf("IsShaderProfileSupported(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}

	want := []string{"..f(_)specialsymbolextravaganza!@#$%^&*_but_no_spaces", "vs99"}
	if diff := cmp.Diff(want, s.ShaderProfiles()); diff != "" {
		t.Errorf("ShaderProfiles() mismatch (-want +got):\n%s", diff)
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := New()
	s.SetCapability(FBO)
	s.AddShaderProfile("glsl")
	s.SetMaxPointSize(10.5)

	c := s.Clone()
	if !c.Equal(s) {
		t.Fatalf("clone differs: %v", Diff(s, c))
	}

	c.AddShaderProfile("hlsl")
	c.SetCapability(VAO)
	if s.IsShaderProfileSupported("hlsl") || s.HasCapability(VAO) {
		t.Error("mutating the clone changed the original")
	}
}

func TestDiff(t *testing.T) {
	a := New()
	b := New()
	if d := Diff(a, b); len(d) != 0 {
		t.Fatalf("Diff of blank sets = %v", d)
	}

	b.SetCapability(FBOARB)
	b.SetNumWorldMatrices(777)
	b.SetDriverVersion(DriverVersion{Major: 11, Minor: 13, Release: 17})
	b.AddShaderProfile("vs99")

	want := []string{"fbo_arb", "num_world_matrices", "driver_version", "shader_profile"}
	if diff := cmp.Diff(want, Diff(a, b)); diff != "" {
		t.Errorf("Diff mismatch (-want +got):\n%s", diff)
	}
	if a.Equal(b) {
		t.Error("Equal reported true for different sets")
	}
	if d := Diff(nil, New()); len(d) != 0 {
		t.Errorf("nil set should diff as blank, got %v", d)
	}
	if New().Equal(nil) {
		t.Error("Equal(nil) on a non-nil set reported true")
	}
}

func TestNaNPointSizeIsEqual(t *testing.T) {
	s := New()
	s.SetMaxPointSize(math.NaN())

	if !s.Equal(s.Clone()) {
		t.Errorf("set with NaN max_point_size differs from its clone: %v", Diff(s, s.Clone()))
	}
	if d := Diff(s, New()); len(d) != 1 || d[0] != "max_point_size" {
		t.Errorf("Diff(NaN, 0) = %v, want [max_point_size]", d)
	}
}

func TestSetVendorOutOfRange(t *testing.T) {
	s := New()
	s.SetVendor(GPUVendor(200))

	if got := s.Vendor(); got != VendorUnknown {
		t.Errorf("Vendor() = %d, want VendorUnknown", got)
	}
	if got := ParseGPUVendor(s.Vendor().String()); got != s.Vendor() {
		t.Errorf("vendor did not round trip: %d -> %q -> %d", s.Vendor(), s.Vendor().String(), got)
	}
	if !s.Equal(New()) {
		t.Errorf("out of range vendor left a difference: %v", Diff(s, New()))
	}
}

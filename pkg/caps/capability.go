package caps

import "fmt"

// Capability is a boolean render-system feature marker.
// The set of capabilities is closed; values outside the enumeration are
// programming errors.
type Capability uint8

const (
	AutoMipmap Capability = iota
	Blending
	Anisotropy
	Dot3
	CubeMapping
	HWStencil
	VBO
	VertexProgram
	FragmentProgram
	ScissorTest
	TwoSidedStencil
	StencilWrap
	HWOcclusion
	UserClipPlanes
	VertexFormatUByte4
	InfiniteFarPlane
	HWRenderToTexture
	TextureFloat
	NonPowerOf2Textures
	Texture3D
	PointSprites
	PointExtendedParameters
	VertexTextureFetch
	MipmapLODBias
	TextureCompression
	TextureCompressionDXT
	TextureCompressionVTC
	TextureCompressionPVRTC
	TextureCompressionBC4BC5
	TextureCompressionBC6HBC7
	FBO
	FBOARB
	FBOATI
	PBuffer
	PerStageConstant
	SeparateShaderObjects
	VAO

	numCapabilities
)

// tokens holds the script token of every capability, indexed by value.
var tokens = [numCapabilities]string{
	AutoMipmap:                "automipmap",
	Blending:                  "blending",
	Anisotropy:                "anisotropy",
	Dot3:                      "dot3",
	CubeMapping:               "cubemapping",
	HWStencil:                 "hwstencil",
	VBO:                       "vbo",
	VertexProgram:             "vertex_program",
	FragmentProgram:           "fragment_program",
	ScissorTest:               "scissor_test",
	TwoSidedStencil:           "two_sided_stencil",
	StencilWrap:               "stencil_wrap",
	HWOcclusion:               "hwocclusion",
	UserClipPlanes:            "user_clip_planes",
	VertexFormatUByte4:        "vertex_format_ubyte4",
	InfiniteFarPlane:          "infinite_far_plane",
	HWRenderToTexture:         "hwrender_to_texture",
	TextureFloat:              "texture_float",
	NonPowerOf2Textures:       "non_power_of_2_textures",
	Texture3D:                 "texture_3d",
	PointSprites:              "point_sprites",
	PointExtendedParameters:   "point_extended_parameters",
	VertexTextureFetch:        "vertex_texture_fetch",
	MipmapLODBias:             "mipmap_lod_bias",
	TextureCompression:        "texture_compression",
	TextureCompressionDXT:     "texture_compression_dxt",
	TextureCompressionVTC:     "texture_compression_vtc",
	TextureCompressionPVRTC:   "texture_compression_pvrtc",
	TextureCompressionBC4BC5:  "texture_compression_bc4_bc5",
	TextureCompressionBC6HBC7: "texture_compression_bc6h_bc7",
	FBO:                       "fbo",
	FBOARB:                    "fbo_arb",
	FBOATI:                    "fbo_ati",
	PBuffer:                   "pbuffer",
	PerStageConstant:          "perstageconstant",
	SeparateShaderObjects:     "separate_shader_objects",
	VAO:                       "vao",
}

var byToken = func() map[string]Capability {
	m := make(map[string]Capability, numCapabilities)
	for c := Capability(0); c < numCapabilities; c++ {
		m[tokens[c]] = c
	}
	return m
}()

// NumCapabilities is the size of the capability enumeration.
const NumCapabilities = int(numCapabilities)

// Capabilities returns every capability in enumeration order.
func Capabilities() []Capability {
	all := make([]Capability, numCapabilities)
	for i := range all {
		all[i] = Capability(i)
	}
	return all
}

// Valid reports whether c is a member of the enumeration.
func (c Capability) Valid() bool {
	return c < numCapabilities
}

// String returns the script token for c.
func (c Capability) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Capability(%d)", uint8(c))
	}
	return tokens[c]
}

// ParseCapability returns the capability whose script token is token.
func ParseCapability(token string) (Capability, bool) {
	c, ok := byToken[token]
	return c, ok
}

// mustValid panics on values outside the enumeration.
func (c Capability) mustValid() {
	if !c.Valid() {
		panic(fmt.Sprintf("caps: unknown capability %d", uint8(c)))
	}
}

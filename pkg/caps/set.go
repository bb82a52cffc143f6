package caps

import "sort"

// Set holds the capabilities and limits of one render-system profile.
// The name a set is registered under is carried alongside it, not inside it.
//
// The zero value is a blank set. A Set has a single writer until it is
// encoded or registered; after registration it is read-only.
type Set struct {
	flags    uint64
	profiles map[string]struct{}

	numWorldMatrices       int
	numTextureUnits        int
	stencilBufferBitDepth  int
	numVertexBlendMatrices int
	numMultiRenderTargets  int
	numVertexTextureUnits  int

	vertexProgramConstantFloatCount   int
	vertexProgramConstantIntCount     int
	vertexProgramConstantBoolCount    int
	fragmentProgramConstantFloatCount int
	fragmentProgramConstantIntCount   int
	fragmentProgramConstantBoolCount  int

	maxPointSize float64

	vertexTextureUnitsShared bool
	nonPOW2TexturesLimited   bool

	deviceName       string
	renderSystemName string
	driverVersion    DriverVersion
	vendor           GPUVendor
}

// New returns a blank capability set.
func New() *Set {
	return &Set{}
}

// SetCapability marks c as supported. It panics if c is not a known capability.
func (s *Set) SetCapability(c Capability) {
	c.mustValid()
	s.flags |= 1 << c
}

// UnsetCapability marks c as unsupported.
func (s *Set) UnsetCapability(c Capability) {
	c.mustValid()
	s.flags &^= 1 << c
}

// HasCapability reports whether c is supported.
func (s *Set) HasCapability(c Capability) bool {
	c.mustValid()
	return s.flags&(1<<c) != 0
}

// AddShaderProfile records token as a supported shader profile.
// Adding a token twice has no further effect and the empty token is ignored.
func (s *Set) AddShaderProfile(token string) {
	if token == "" {
		return
	}
	if s.profiles == nil {
		s.profiles = make(map[string]struct{})
	}
	s.profiles[token] = struct{}{}
}

// IsShaderProfileSupported reports exact, case-sensitive membership.
func (s *Set) IsShaderProfileSupported(token string) bool {
	_, ok := s.profiles[token]
	return ok
}

// ShaderProfiles returns the supported profiles in sorted order.
func (s *Set) ShaderProfiles() []string {
	out := make([]string, 0, len(s.profiles))
	for p := range s.profiles {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Scalar accessors. Setters overwrite and do not range check.

// NumWorldMatrices returns the number of world matrices the device supports.
func (s *Set) NumWorldMatrices() int { return s.numWorldMatrices }

// SetNumWorldMatrices sets the number of world matrices.
func (s *Set) SetNumWorldMatrices(n int) { s.numWorldMatrices = n }

// NumTextureUnits returns the number of fixed function texture units.
func (s *Set) NumTextureUnits() int { return s.numTextureUnits }

// SetNumTextureUnits sets the number of fixed function texture units.
func (s *Set) SetNumTextureUnits(n int) { s.numTextureUnits = n }

// StencilBufferBitDepth returns the stencil buffer depth in bits.
func (s *Set) StencilBufferBitDepth() int { return s.stencilBufferBitDepth }

// SetStencilBufferBitDepth sets the stencil buffer depth in bits.
func (s *Set) SetStencilBufferBitDepth(n int) { s.stencilBufferBitDepth = n }

// NumVertexBlendMatrices returns the number of matrices available for
// hardware vertex blending.
func (s *Set) NumVertexBlendMatrices() int { return s.numVertexBlendMatrices }

// SetNumVertexBlendMatrices sets the number of vertex blend matrices.
func (s *Set) SetNumVertexBlendMatrices(n int) { s.numVertexBlendMatrices = n }

// NumMultiRenderTargets returns how many render targets can be bound at once.
func (s *Set) NumMultiRenderTargets() int { return s.numMultiRenderTargets }

// SetNumMultiRenderTargets sets the multiple render target count.
func (s *Set) SetNumMultiRenderTargets(n int) { s.numMultiRenderTargets = n }

// NumVertexTextureUnits returns the number of texture units readable from
// vertex programs.
func (s *Set) NumVertexTextureUnits() int { return s.numVertexTextureUnits }

// SetNumVertexTextureUnits sets the vertex texture unit count.
func (s *Set) SetNumVertexTextureUnits(n int) { s.numVertexTextureUnits = n }

// VertexProgramConstantFloatCount returns the number of float constants
// available to vertex programs.
func (s *Set) VertexProgramConstantFloatCount() int { return s.vertexProgramConstantFloatCount }

// SetVertexProgramConstantFloatCount sets the vertex program float constant count.
func (s *Set) SetVertexProgramConstantFloatCount(n int) { s.vertexProgramConstantFloatCount = n }

// VertexProgramConstantIntCount returns the number of int constants
// available to vertex programs.
func (s *Set) VertexProgramConstantIntCount() int { return s.vertexProgramConstantIntCount }

// SetVertexProgramConstantIntCount sets the vertex program int constant count.
func (s *Set) SetVertexProgramConstantIntCount(n int) { s.vertexProgramConstantIntCount = n }

// VertexProgramConstantBoolCount returns the number of bool constants
// available to vertex programs.
func (s *Set) VertexProgramConstantBoolCount() int { return s.vertexProgramConstantBoolCount }

// SetVertexProgramConstantBoolCount sets the vertex program bool constant count.
func (s *Set) SetVertexProgramConstantBoolCount(n int) { s.vertexProgramConstantBoolCount = n }

// FragmentProgramConstantFloatCount returns the number of float constants
// available to fragment programs.
func (s *Set) FragmentProgramConstantFloatCount() int { return s.fragmentProgramConstantFloatCount }

// SetFragmentProgramConstantFloatCount sets the fragment program float constant count.
func (s *Set) SetFragmentProgramConstantFloatCount(n int) { s.fragmentProgramConstantFloatCount = n }

// FragmentProgramConstantIntCount returns the number of int constants
// available to fragment programs.
func (s *Set) FragmentProgramConstantIntCount() int { return s.fragmentProgramConstantIntCount }

// SetFragmentProgramConstantIntCount sets the fragment program int constant count.
func (s *Set) SetFragmentProgramConstantIntCount(n int) { s.fragmentProgramConstantIntCount = n }

// FragmentProgramConstantBoolCount returns the number of bool constants
// available to fragment programs.
func (s *Set) FragmentProgramConstantBoolCount() int { return s.fragmentProgramConstantBoolCount }

// SetFragmentProgramConstantBoolCount sets the fragment program bool constant count.
func (s *Set) SetFragmentProgramConstantBoolCount(n int) { s.fragmentProgramConstantBoolCount = n }

// MaxPointSize returns the largest supported point sprite size.
func (s *Set) MaxPointSize() float64 { return s.maxPointSize }

// SetMaxPointSize sets the largest point sprite size. NaN is stored as is
// and compares equal to NaN in Diff.
func (s *Set) SetMaxPointSize(v float64) { s.maxPointSize = v }

// VertexTextureUnitsShared reports whether vertex texture units are shared
// with the fragment pipeline.
func (s *Set) VertexTextureUnitsShared() bool { return s.vertexTextureUnitsShared }

// SetVertexTextureUnitsShared sets whether vertex texture units are shared.
func (s *Set) SetVertexTextureUnitsShared(v bool) { s.vertexTextureUnitsShared = v }

// NonPOW2TexturesLimited reports whether non power of two textures carry
// usage restrictions.
func (s *Set) NonPOW2TexturesLimited() bool { return s.nonPOW2TexturesLimited }

// SetNonPOW2TexturesLimited sets whether non power of two textures are limited.
func (s *Set) SetNonPOW2TexturesLimited(v bool) { s.nonPOW2TexturesLimited = v }

// DeviceName returns the device name, or "" when unset.
func (s *Set) DeviceName() string { return s.deviceName }

// SetDeviceName sets the device name.
func (s *Set) SetDeviceName(name string) { s.deviceName = name }

// RenderSystemName returns the name of the render system that produced the
// set, or "" when unset.
func (s *Set) RenderSystemName() string { return s.renderSystemName }

// SetRenderSystemName sets the render system name.
func (s *Set) SetRenderSystemName(name string) { s.renderSystemName = name }

// DriverVersion returns the driver version.
func (s *Set) DriverVersion() DriverVersion { return s.driverVersion }

// SetDriverVersion sets the driver version.
func (s *Set) SetDriverVersion(v DriverVersion) { s.driverVersion = v }

// Vendor returns the GPU vendor.
func (s *Set) Vendor() GPUVendor { return s.vendor }

// SetVendor sets the GPU vendor. Values outside the known vendors are stored
// as VendorUnknown so the set always encodes to what it holds.
func (s *Set) SetVendor(v GPUVendor) {
	if !v.Valid() {
		v = VendorUnknown
	}
	s.vendor = v
}

// Clone returns a deep copy of s.
func (s *Set) Clone() *Set {
	c := *s
	c.profiles = nil
	for p := range s.profiles {
		c.AddShaderProfile(p)
	}
	return &c
}

// Equal reports whether s and other agree on every flag, attribute and
// shader profile.
func (s *Set) Equal(other *Set) bool {
	if s == nil || other == nil {
		return s == other
	}
	return len(Diff(s, other)) == 0
}

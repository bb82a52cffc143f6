// Package caps describes what a render system can do.
//
// A Set records one profile: a closed enumeration of boolean capabilities
// stored as a bitset, the shader profiles the device accepts, and scalar
// limits such as texture unit counts, the maximum point size and the driver
// version. Sets carry no name; the name travels alongside a set through the
// script codec and the registry.
//
//	set := caps.New()
//	set.SetCapability(caps.AutoMipmap)
//	set.AddShaderProfile("vs_3_0")
//	set.SetMaxPointSize(64)
//
// Sets are built by a single writer and treated as read-only once they are
// registered.
package caps

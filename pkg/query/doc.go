// Package query selects capability profiles with Starlark predicates.
//
// A predicate is either a single expression evaluated once per profile, or
// a program that defines select(caps) and returns a truth value. In both
// forms caps is a struct whose attributes are the script keys of the
// profile, plus name:
//
//	caps.vbo and caps.num_texture_units >= 8
//	"glsl" in caps.shader_profile and version(caps.driver_version) >= version("4.6")
//
//	def select(caps):
//	    return caps.vendor == "nvidia" or caps.texture_compression_dxt
//
// version parses a dotted driver version into a tuple, so versions compare
// component by component. print output is discarded.
package query

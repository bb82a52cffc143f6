// Package script reads and writes .rendercaps capability scripts.
//
// A script holds one or more blocks of the form
//
//	render_system_capabilities "Some Device"
//	{
//		automipmap true
//		max_point_size 64
//		shader_profile vs_3_0
//	}
//
// The encoder always writes every capability with its state, then the
// attributes in a fixed order, then one shader_profile line per profile in
// sorted order, so output is deterministic and diffable. Booleans are the
// literals true and false, integers are base 10 and floats use the shortest
// representation that parses back to the same value.
//
// The decoder skips blank lines and lines starting with //. A body line is a
// key followed by the rest of the line as its value, so names may contain
// spaces. Keys are dispatched through a table built once at init.
//
// Decode failures are *ScriptError values classified as structural, value or
// unknown_key; use errors.Is with ErrStructural, ErrValue or ErrUnknownKey.
// Unknown keys are rejected unless the decoder is created with
// WithUnknownKeyPolicy(SkipUnknownKeys), in which case they are logged and
// reported through Decoder.Warnings.
package script

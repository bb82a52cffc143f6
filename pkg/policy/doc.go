// Package policy checks capability profiles against Open Policy Agent
// (OPA) requirement policies.
//
// A policy is a Rego module with a deny set. Each profile is evaluated with
// this input document:
//
//	{
//	  "profile": "GL",
//	  "caps": {"vbo": true, "num_texture_units": 16, "shader_profile": ["glsl"], ...},
//	  "context": {"timestamp": "...", "operation": "check"}
//	}
//
// caps holds every script key of the profile. A deny entry is either a
// string or an object with a message, an optional severity and any other
// details:
//
//	package rendercaps.requirements
//
//	import rego.v1
//
//	deny contains violation if {
//		input.caps.num_texture_units < 8
//		violation := {
//			"message": sprintf("%s has %d texture units", [input.profile, input.caps.num_texture_units]),
//			"severity": "error",
//		}
//	}
//
// Violations with error or critical severity make a profile fail the check.
// The severity of string results comes from the policy: a leading
// "# severity: error" comment in a .rego file, or the severity field of a
// .json or .yaml definition. A "# tags: a, b" comment tags .rego policies.
//
// Every engine starts with a few built-in consistency policies, such as
// compressed formats claimed without texture_compression. DisableBuiltins
// turns them off.
//
// Usage:
//
//	eng, err := policy.NewEngine(logger)
//	if err != nil {
//	    return err
//	}
//	if err := eng.LoadPolicies(ctx, []string{"policies/"}); err != nil {
//	    return err
//	}
//	results, err := eng.CheckAll(ctx, registry.Snapshot())
package policy

package policy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/openfroyo/rendercaps/pkg/caps"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := NewEngine(zerolog.New(nil).Level(zerolog.Disabled))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return eng
}

func TestNewEngine(t *testing.T) {
	eng := newTestEngine(t)

	var names []string
	for _, p := range eng.ListPolicies() {
		names = append(names, p.Name)
	}
	want := []string{
		"compression-formats",
		"framebuffer-objects",
		"shader-profiles",
		"vertex-texture-fetch",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("built-in policies mismatch (-want +got):\n%s", diff)
	}
}

func TestBuiltinPolicies(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		build func(*caps.Set)
		want  []string // violated policies
	}{
		{
			name:  "blank set",
			build: func(*caps.Set) {},
		},
		{
			name: "dxt without compression",
			build: func(s *caps.Set) {
				s.SetCapability(caps.TextureCompressionDXT)
				s.SetCapability(caps.TextureCompressionPVRTC)
			},
			want: []string{"compression-formats", "compression-formats"},
		},
		{
			name: "dxt with compression",
			build: func(s *caps.Set) {
				s.SetCapability(caps.TextureCompression)
				s.SetCapability(caps.TextureCompressionDXT)
			},
		},
		{
			name: "profiles without programs",
			build: func(s *caps.Set) {
				s.AddShaderProfile("glsl")
			},
			want: []string{"shader-profiles"},
		},
		{
			name: "profiles with fragment program",
			build: func(s *caps.Set) {
				s.AddShaderProfile("glsl")
				s.SetCapability(caps.FragmentProgram)
			},
		},
		{
			name: "vertex texture fetch without units",
			build: func(s *caps.Set) {
				s.SetCapability(caps.VertexTextureFetch)
			},
			want: []string{"vertex-texture-fetch"},
		},
		{
			name: "fbo extension only",
			build: func(s *caps.Set) {
				s.SetCapability(caps.FBOARB)
			},
			want: []string{"framebuffer-objects"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := caps.New()
			tt.build(set)

			res, err := eng.Check(ctx, "P", set)
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			var got []string
			for _, v := range res.Violations {
				got = append(got, v.Policy)
				if v.Profile != "P" || v.Message == "" {
					t.Errorf("violation = %+v", v)
				}
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("violations mismatch (-want +got):\n%s", diff)
			}
			// Built-ins never block.
			if !res.Allowed {
				t.Error("built-in violation blocked the profile")
			}
			if len(res.EvaluatedPolicies) != 4 {
				t.Errorf("evaluated %v", res.EvaluatedPolicies)
			}
		})
	}
}

const requirementsRego = `# Minimum texture units for the forward renderer.
# severity: error
package rendercaps.requirements

import rego.v1

deny contains msg if {
	input.caps.num_texture_units < 8
	msg := sprintf("%s has %d texture units", [input.profile, input.caps.num_texture_units])
}

deny contains violation if {
	not "glsl" in input.caps.shader_profile
	violation := {
		"message": "glsl is not supported",
		"severity": "warning",
		"key": "shader_profile",
	}
}
`

func TestCheckWithLoadedPolicies(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "requirements.rego"), []byte(requirementsRego), 0o644); err != nil {
		t.Fatal(err)
	}

	eng := newTestEngine(t)
	eng.DisableBuiltins()
	ctx := context.Background()

	if err := eng.LoadPolicies(ctx, []string{dir}); err != nil {
		t.Fatalf("LoadPolicies() error = %v", err)
	}
	p, err := eng.GetPolicy("requirements")
	if err != nil {
		t.Fatal(err)
	}
	if p.Severity != SeverityError || p.Description != "Minimum texture units for the forward renderer." {
		t.Errorf("policy = %+v", p)
	}

	good := caps.New()
	good.SetNumTextureUnits(16)
	good.AddShaderProfile("glsl")

	weak := caps.New()
	weak.SetNumTextureUnits(4)
	weak.AddShaderProfile("glsl")

	noGLSL := caps.New()
	noGLSL.SetNumTextureUnits(8)
	noGLSL.AddShaderProfile("hlsl")

	results, err := eng.CheckAll(ctx, map[string]*caps.Set{
		"Good":   good,
		"Weak":   weak,
		"NoGLSL": noGLSL,
	})
	if err != nil {
		t.Fatalf("CheckAll() error = %v", err)
	}

	got := map[string]*Result{}
	var order []string
	for _, r := range results {
		got[r.Profile] = r
		order = append(order, r.Profile)
	}
	if diff := cmp.Diff([]string{"Good", "NoGLSL", "Weak"}, order); diff != "" {
		t.Errorf("result order mismatch (-want +got):\n%s", diff)
	}

	if !got["Good"].Allowed || len(got["Good"].Violations) != 0 {
		t.Errorf("Good = %+v", got["Good"])
	}
	if diff := cmp.Diff([]string{"requirements"}, got["Good"].EvaluatedPolicies); diff != "" {
		t.Errorf("evaluated policies mismatch (-want +got):\n%s", diff)
	}

	weakRes := got["Weak"]
	if weakRes.Allowed || len(weakRes.Violations) != 1 {
		t.Fatalf("Weak = %+v", weakRes)
	}
	if v := weakRes.Violations[0]; v.Message != "Weak has 4 texture units" || v.Severity != SeverityError {
		t.Errorf("Weak violation = %+v", v)
	}

	noRes := got["NoGLSL"]
	if !noRes.Allowed || len(noRes.Violations) != 1 {
		t.Fatalf("NoGLSL = %+v", noRes)
	}
	v := noRes.Violations[0]
	if v.Severity != SeverityWarning || v.Details["key"] != "shader_profile" {
		t.Errorf("NoGLSL violation = %+v", v)
	}
}

func TestAddPolicyErrors(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	err := eng.AddPolicy(ctx, Policy{Name: "broken", Rego: "package x\n\ndeny contains if {", Enabled: true})
	if err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("AddPolicy(broken) error = %v", err)
	}

	if err := eng.AddPolicy(ctx, Policy{Name: "ok", Rego: "package x\n\nimport rego.v1\n\ndeny contains \"always\" if { true }\n", Enabled: true}); err != nil {
		t.Fatalf("AddPolicy(ok) error = %v", err)
	}
	p, _ := eng.GetPolicy("ok")
	if p.Severity != SeverityWarning {
		t.Errorf("default severity = %q", p.Severity)
	}

	if err := eng.DisablePolicy("ok"); err != nil {
		t.Fatal(err)
	}
	res, err := eng.Check(ctx, "P", caps.New())
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range res.Violations {
		if v.Policy == "ok" {
			t.Error("disabled policy was evaluated")
		}
	}
	if err := eng.EnablePolicy("ok"); err != nil {
		t.Fatal(err)
	}
	if err := eng.EnablePolicy("missing"); err == nil {
		t.Error("EnablePolicy(missing) succeeded")
	}
	if _, err := eng.GetPolicy("missing"); err == nil {
		t.Error("GetPolicy(missing) succeeded")
	}
}

func TestCheckCancelled(t *testing.T) {
	eng := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := eng.Check(ctx, "P", caps.New()); err == nil {
		t.Error("Check() with cancelled context succeeded")
	}
}

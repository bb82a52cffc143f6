package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/openfroyo/rendercaps/pkg/archive"
	"github.com/openfroyo/rendercaps/pkg/caps"
	"github.com/openfroyo/rendercaps/pkg/config"
	"github.com/openfroyo/rendercaps/pkg/script"
	"github.com/openfroyo/rendercaps/pkg/stores"
)

// run executes the CLI with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, verbose, jsonOutput = "", false, false

	var out, errOut bytes.Buffer
	root := newRootCommand("test", "none", "today")
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config=" + quietConfig(t)}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// quietConfig writes a configuration that keeps logs out of test output.
func quietConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rendercaps.yaml")
	content := "telemetry:\n  service_name: rendercaps-test\n  logging:\n    level: error\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// capsDir creates a directory with two valid scripts and one broken one.
func capsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "mobile"), 0o755); err != nil {
		t.Fatal(err)
	}

	mustRun := func(args ...string) {
		t.Helper()
		if _, err := run(t, args...); err != nil {
			t.Fatalf("rendercaps %v: %v", args, err)
		}
	}
	mustRun("new", "GL", "--cap", "vbo", "--cap", "fragment_program", "--shader-profile", "glsl",
		"--set", "num_texture_units=16", "--set", "driver_version=4.6", "-o", filepath.Join(dir, "gl.rendercaps"))
	mustRun("new", "GLES2", "--cap", "vbo", "--set", "num_texture_units=8",
		"--set", "device_name=Mali G78", "-o", filepath.Join(dir, "mobile", "gles2.rendercaps"))

	if err := os.WriteFile(filepath.Join(dir, "broken.rendercaps"), []byte("render_system_capabilities \"Broken\"\n{\n\tvbo maybe\n}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestNewWritesScript(t *testing.T) {
	out, err := run(t, "new", "GL", "--cap", "vbo", "--set", "max_point_size=64.5", "--shader-profile", "glsl")
	if err != nil {
		t.Fatalf("new error = %v", err)
	}
	name, set, err := script.Unmarshal([]byte(out))
	if err != nil {
		t.Fatalf("output does not decode: %v\n%s", err, out)
	}
	if name != "GL" || set.MaxPointSize() != 64.5 || !set.IsShaderProfileSupported("glsl") {
		t.Errorf("decoded %s %+v", name, script.Fields(set))
	}

	for _, args := range [][]string{
		{"new", "X", "--cap", "warp_drive"},
		{"new", "X", "--set", "num_texture_units"},
		{"new", "X", "--set", "num_texture_units=many"},
		{"new", "X", "--set", "mystery=1"},
	} {
		if _, err := run(t, args...); err == nil {
			t.Errorf("%v succeeded, want error", args)
		}
	}
}

func TestListAndShow(t *testing.T) {
	dir := capsDir(t)

	out, err := run(t, "list", dir)
	if err != nil {
		t.Fatal(err)
	}
	if out != "GL\n" {
		t.Errorf("non-recursive list = %q", out)
	}

	out, err = run(t, "list", "-r", "file://"+dir)
	if err != nil {
		t.Fatal(err)
	}
	if out != "GL\nGLES2\n" {
		t.Errorf("recursive list = %q", out)
	}

	out, err = run(t, "--json", "show", "GLES2", "-r", "-s", dir)
	if err != nil {
		t.Fatal(err)
	}
	var doc profileDoc
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("show --json: %v\n%s", err, out)
	}
	if doc.Name != "GLES2" || doc.Caps["device_name"] != "Mali G78" || doc.Caps["num_texture_units"] != float64(8) {
		t.Errorf("show --json = %+v", doc)
	}

	out, err = run(t, "show", "GL", "-s", dir, "--format", "yaml")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "name: GL\n") || !strings.Contains(out, "  vbo: true\n") {
		t.Errorf("show --format yaml =\n%s", out)
	}

	out, err = run(t, "show", "GL", "-s", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "render_system_capabilities \"GL\"\n{\n") {
		t.Errorf("show script =\n%s", out)
	}

	if _, err := run(t, "show", "Vulkan", "-s", dir); err == nil {
		t.Error("show of a missing profile succeeded")
	}
	if _, err := run(t, "show", "GL", "-s", dir, "--format", "xml"); err == nil {
		t.Error("show --format xml succeeded")
	}
	if _, err := run(t, "list"); err == nil {
		t.Error("list without sources succeeded")
	}
}

func TestValidate(t *testing.T) {
	dir := capsDir(t)

	out, err := run(t, "validate", "-r", dir)
	if err == nil {
		t.Fatal("validate accepted a broken script")
	}
	if !strings.Contains(out, "FAIL") || !strings.Contains(out, "broken.rendercaps:3") {
		t.Errorf("validate output =\n%s", out)
	}
	if !strings.Contains(out, "2 profiles, 1 failed scripts") {
		t.Errorf("validate summary =\n%s", out)
	}

	if err := os.Remove(filepath.Join(dir, "broken.rendercaps")); err != nil {
		t.Fatal(err)
	}
	future := "render_system_capabilities \"Future\"\n{\n\tvbo true\n\tray_tracing true\n}\n"
	if err := os.WriteFile(filepath.Join(dir, "future.rendercaps"), []byte(future), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "validate", dir); err == nil {
		t.Error("strict validate accepted an unknown key")
	}
	out, err = run(t, "validate", "--lenient", dir)
	if err != nil {
		t.Fatalf("lenient validate error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "ray_tracing") {
		t.Errorf("lenient validate output =\n%s", out)
	}
}

func TestDiffSelectCheck(t *testing.T) {
	dir := capsDir(t)

	out, err := run(t, "--json", "diff", "GL", "GLES2", "-r", "-s", dir)
	if err != nil {
		t.Fatal(err)
	}
	var diffs []fieldDiff
	if err := json.Unmarshal([]byte(out), &diffs); err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, d := range diffs {
		keys = append(keys, d.Key)
	}
	want := []string{"device_name", "driver_version", "fragment_program", "num_texture_units", "shader_profile"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("diff keys mismatch (-want +got):\n%s", diff)
	}

	out, err = run(t, "diff", "GL", "GL", "-s", dir)
	if err != nil || !strings.Contains(out, "identical") {
		t.Errorf("self diff = %q, %v", out, err)
	}

	out, err = run(t, "select", "-r", "-s", dir, "caps.num_texture_units > 8")
	if err != nil || out != "GL\n" {
		t.Errorf("select = %q, %v", out, err)
	}

	policyDir := t.TempDir()
	rego := `# severity: error
package rendercaps.test

import rego.v1

deny contains msg if {
	input.caps.num_texture_units < 16
	msg := sprintf("%s has too few texture units", [input.profile])
}
`
	if err := os.WriteFile(filepath.Join(policyDir, "units.rego"), []byte(rego), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err = run(t, "check", "GL", "-s", dir, "-p", policyDir)
	if err != nil || !strings.Contains(out, "PASS GL") {
		t.Errorf("check GL = %q, %v", out, err)
	}
	out, err = run(t, "check", "-r", "-s", dir, "-p", policyDir, "--no-builtins")
	if err == nil {
		t.Error("check passed a profile with too few texture units")
	}
	if !strings.Contains(out, "FAIL GLES2") || !strings.Contains(out, "GLES2 has too few texture units") {
		t.Errorf("check output =\n%s", out)
	}
}

func TestImportExport(t *testing.T) {
	dir := capsDir(t)
	db := filepath.Join(t.TempDir(), "profiles.db")

	out, err := run(t, "import", "-r", dir, "--db", db)
	if err != nil {
		t.Fatal(err)
	}
	if out != "imported 2 profiles\n" {
		t.Errorf("import = %q", out)
	}

	out, err = run(t, "list", "-r", "sqlite://"+db)
	if err != nil || out != "GL\nGLES2\n" {
		t.Errorf("list sqlite = %q, %v", out, err)
	}

	out, err = run(t, "--json", "imports", "--db", db)
	if err != nil {
		t.Fatal(err)
	}
	var imports []stores.Import
	if err := json.Unmarshal([]byte(out), &imports); err != nil {
		t.Fatal(err)
	}
	if len(imports) != 1 || imports[0].Loaded != 2 || imports[0].Failed != 1 || imports[0].Source != dir {
		t.Errorf("imports = %+v", imports)
	}

	exportDir := filepath.Join(t.TempDir(), "out")
	if _, err := run(t, "export", exportDir, "--db", db); err != nil {
		t.Fatal(err)
	}
	blocks, err := script.ReadFile(filepath.Join(exportDir, "GLES2.rendercaps"))
	if err != nil || len(blocks) != 1 || blocks[0].Name != "GLES2" {
		t.Errorf("exported GLES2 = %+v, %v", blocks, err)
	}
}

func TestExportNameCollisions(t *testing.T) {
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "profiles.db")

	store, err := openStore(ctx, stores.Config{Path: db})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"GL 4.6", "GL/4.6", "gl_4.6"} {
		set := caps.New()
		set.SetDeviceName(name)
		if _, err := store.SaveSet(ctx, name, "test", set); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	exportDir := filepath.Join(t.TempDir(), "out")
	out, err := run(t, "export", exportDir, "--db", db)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "exported 3 profiles") {
		t.Errorf("export = %q", out)
	}

	entries, err := os.ReadDir(exportDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("export wrote %d files, want 3", len(entries))
	}
	seen := map[string]bool{}
	for _, entry := range entries {
		blocks, err := script.ReadFile(filepath.Join(exportDir, entry.Name()))
		if err != nil || len(blocks) != 1 {
			t.Fatalf("%s = %+v, %v", entry.Name(), blocks, err)
		}
		if blocks[0].Set.DeviceName() != blocks[0].Name {
			t.Errorf("%s holds %q with device %q", entry.Name(), blocks[0].Name, blocks[0].Set.DeviceName())
		}
		seen[blocks[0].Name] = true
	}
	if diff := cmp.Diff(map[string]bool{"GL 4.6": true, "GL/4.6": true, "gl_4.6": true}, seen); diff != "" {
		t.Errorf("exported profiles mismatch (-want +got):\n%s", diff)
	}
}

func TestFileNamer(t *testing.T) {
	n := newFileNamer()
	got := []string{n.name("GL 4.6"), n.name("GL/4.6"), n.name("gl_4.6"), n.name("GL 4.6_2"), n.name("Vulkan")}
	want := []string{"GL_4.6.rendercaps", "GL_4.6_2.rendercaps", "gl_4.6_3.rendercaps", "GL_4.6_2_2.rendercaps", "Vulkan.rendercaps"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("file names mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenStoreFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "profiles.db")
	if store, err := openStore(context.Background(), stores.Config{Path: path}); err == nil {
		_ = store.Close()
		t.Fatal("openStore succeeded in a missing directory")
	}
	if _, err := openStore(context.Background(), stores.Config{}); err == nil {
		t.Error("openStore succeeded without a path")
	}
}

func TestResolveSource(t *testing.T) {
	cfg := config.DefaultConfig()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	ctx := context.Background()

	tests := []struct {
		uri         string
		wantType    string
		wantLocator string
	}{
		{"caps/desktop", "file", "caps/desktop"},
		{"file:///srv/caps", "file", "/srv/caps"},
		{"s3://gpu-profiles/desktop/gl", "s3", "desktop/gl"},
		{"s3://gpu-profiles", "s3", ""},
		{"sqlite://" + filepath.Join(t.TempDir(), "p.db") + "?source=caps", "sqlite", "caps"},
	}
	for _, tt := range tests {
		src, err := resolveSource(ctx, cfg, logger, tt.uri)
		if err != nil {
			t.Errorf("resolveSource(%q) error = %v", tt.uri, err)
			continue
		}
		if src.archive.Type() != tt.wantType || src.locator != tt.wantLocator {
			t.Errorf("resolveSource(%q) = %s %q", tt.uri, src.archive.Type(), src.locator)
		}
		_ = src.close()
	}

	for _, uri := range []string{"ftp://host/caps", "s3:///prefix", "sftp://user@host:port/caps"} {
		if _, err := resolveSource(ctx, cfg, logger, uri); err == nil {
			t.Errorf("resolveSource(%q) succeeded", uri)
		}
	}

	var _ archive.Archive = (*stores.SQLiteStore)(nil)
}

func TestProfileFileName(t *testing.T) {
	tests := map[string]string{
		"GL":                 "GL.rendercaps",
		"Direct3D 11":        "Direct3D_11.rendercaps",
		"../../etc/passwd":   ".._.._etc_passwd.rendercaps",
		"OpenGL ES 2.0 (GL)": "OpenGL_ES_2.0_GL_.rendercaps",
	}
	for in, want := range tests {
		if got := profileFileName(in); got != want {
			t.Errorf("profileFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

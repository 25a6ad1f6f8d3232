package eval

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runFile(t *testing.T, ip *Interpreter, path string) Object {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return ip.Interpret(string(data), path)
}

func TestImportSharesGlobalScope(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "mathx.sb", `
int64 double(int64 n) { return n * 2; }
const int64 BASE = 10;`)
	main := writeScript(t, dir, "main.sb", `
import "./mathx.sb";
print(double(BASE));`)

	ip := New()
	var buf bytes.Buffer
	ip.SetOutput(&buf)
	if r := runFile(t, ip, main); isError(r) {
		t.Fatalf("unexpected error: %s", r.Inspect())
	}
	if buf.String() != "20\n" {
		t.Errorf("output = %q, want %q", buf.String(), "20\n")
	}
}

func TestImportRunsEachFileOnce(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "shared.sb", `print("loaded");`)
	writeScript(t, dir, "a.sb", `import "./shared.sb";`)
	writeScript(t, dir, "b.sb", `import "./shared.sb";`)
	main := writeScript(t, dir, "main.sb", `
import "./a.sb";
import "./b.sb";
import "./shared.sb";`)

	ip := New()
	var buf bytes.Buffer
	ip.SetOutput(&buf)
	if r := runFile(t, ip, main); isError(r) {
		t.Fatalf("unexpected error: %s", r.Inspect())
	}
	if buf.String() != "loaded\n" {
		t.Errorf("side effects ran more than once: %q", buf.String())
	}
}

func TestCircularImportsDoNotRecurse(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.sb", `
import "./b.sb";
int64 fromA() { return 1; }`)
	writeScript(t, dir, "b.sb", `
import "./a.sb";
int64 fromB() { return 2; }`)
	main := writeScript(t, dir, "main.sb", `
import "./a.sb";
print(fromA() + fromB());`)

	ip := New()
	var buf bytes.Buffer
	ip.SetOutput(&buf)
	if r := runFile(t, ip, main); isError(r) {
		t.Fatalf("unexpected error: %s", r.Inspect())
	}
	if buf.String() != "3\n" {
		t.Errorf("output = %q, want %q", buf.String(), "3\n")
	}
}

func TestImportAppendsExtension(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "util.sb", `int64 one() { return 1; }`)
	main := writeScript(t, dir, "main.sb", `
import "./util";
print(one());`)

	ip := New()
	var buf bytes.Buffer
	ip.SetOutput(&buf)
	if r := runFile(t, ip, main); isError(r) {
		t.Fatalf("unexpected error: %s", r.Inspect())
	}
	if buf.String() != "1\n" {
		t.Errorf("output = %q, want %q", buf.String(), "1\n")
	}
}

func TestMissingImportReportsResolutionError(t *testing.T) {
	dir := t.TempDir()
	main := writeScript(t, dir, "main.sb", `import "./ghost.sb";`)

	ip := New()
	r := runFile(t, ip, main)
	err, ok := r.(*Error)
	if !ok {
		t.Fatalf("expected error, got %T", r)
	}
	if err.ErrKind != ErrModuleResolution {
		t.Errorf("kind = %s, want ModuleResolutionError", err.ErrKind)
	}
}

func TestImportedParseErrorNamesTheImportedFile(t *testing.T) {
	dir := t.TempDir()
	bad := writeScript(t, dir, "bad.sb", `int32 = ;`)
	main := writeScript(t, dir, "main.sb", `import "./bad.sb";`)

	ip := New()
	r := runFile(t, ip, main)
	err, ok := r.(*Error)
	if !ok {
		t.Fatalf("expected error, got %T", r)
	}
	if err.ErrKind != ErrParse {
		t.Errorf("kind = %s, want ParseError", err.ErrKind)
	}
	if err.Pos.File != bad {
		t.Errorf("error file = %q, want %q", err.Pos.File, bad)
	}
}

func TestThrowInImportedFilePropagates(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "panicky.sb", `throw "bad module";`)
	main := writeScript(t, dir, "main.sb", `import "./panicky.sb";`)

	ip := New()
	r := runFile(t, ip, main)
	ts, ok := r.(*ThrownSignal)
	if !ok {
		t.Fatalf("expected ThrownSignal, got %T", r)
	}
	if ts.Value.Inspect() != "bad module" {
		t.Errorf("thrown value = %s", ts.Value.Inspect())
	}
}

func TestLinkMissingLibraryFails(t *testing.T) {
	_, err := openNativeLibrary(filepath.Join(t.TempDir(), "libnothing.so"))
	if err == nil {
		t.Fatal("expected an error for a nonexistent library")
	}
}

func TestExternalWithoutLinkFails(t *testing.T) {
	expectErrKind(t, `external int32 f(int32 x);`, ErrNativeLink)
}

func TestRelativeImportResolvesAgainstImportingFile(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeScript(t, sub, "inner.sb", `string where() { return "nested"; }`)
	writeScript(t, dir, "mid.sb", `import "./nested/inner.sb";`)
	main := writeScript(t, dir, "main.sb", `
import "./mid.sb";
print(where());`)

	ip := New()
	var buf bytes.Buffer
	ip.SetOutput(&buf)
	if r := runFile(t, ip, main); isError(r) {
		t.Fatalf("unexpected error: %s", r.Inspect())
	}
	if buf.String() != "nested\n" {
		t.Errorf("output = %q, want %q", buf.String(), "nested\n")
	}
}

package eval

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sable-lang/sable/pkg/ast"
	"github.com/sable-lang/sable/pkg/lexer"
	"github.com/sable-lang/sable/pkg/parser"
)

// moduleExt is the script file extension tried when an import path has none.
const moduleExt = ".sb"

// stdLibDir is the subdirectory next to the executable searched for bare
// import paths.
const stdLibDir = "lib"

// evalImport resolves the path, then interprets the target file's top-level
// declarations into the global scope. Each file runs at most once per
// process; a file currently mid-load (an import cycle) is skipped rather
// than re-entered.
func (ip *Interpreter) evalImport(node *ast.ImportStatement, env *Environment) Object {
	path, found := ip.resolveModulePath(node.Path.Value)
	if !found {
		return ip.errorAt(ErrModuleResolution, node.Path.Token, "cannot resolve import %q", node.Path.Value)
	}

	switch ip.modules[path] {
	case modLoaded, modLoading:
		return NULL
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ip.errorAt(ErrModuleResolution, node.Path.Token, "cannot read %q: %v", path, err)
	}
	source := string(data)

	p := parser.New(lexer.New(source))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return &Error{
			ErrKind: ErrParse,
			Message: strings.Join(errs, "; "),
			Pos:     Position{File: path},
		}
	}

	ip.modules[path] = modLoading
	ip.sources[path] = source
	ip.fileStack = append(ip.fileStack, path)

	result := ip.evalStatements(program.Statements, ip.globals)

	ip.fileStack = ip.fileStack[:len(ip.fileStack)-1]
	ip.modules[path] = modLoaded

	if r := ip.checkTopLevel(result); isError(r) || r.Kind() == KindThrownSignal {
		return r
	}
	return NULL
}

// resolveModulePath turns a raw import string into an existing file path.
// Relative paths resolve against the importing file's directory; bare paths
// are tried against the executable's directory, its lib/ subdirectory, and
// the working directory.
func (ip *Interpreter) resolveModulePath(raw string) (string, bool) {
	var candidates []string
	switch {
	case filepath.IsAbs(raw):
		candidates = []string{raw}
	case strings.HasPrefix(raw, "./") || strings.HasPrefix(raw, "../"):
		base := filepath.Dir(ip.currentFile())
		candidates = []string{filepath.Join(base, raw)}
	default:
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			candidates = append(candidates, filepath.Join(exeDir, raw), filepath.Join(exeDir, stdLibDir, raw))
		}
		base := filepath.Dir(ip.currentFile())
		candidates = append(candidates, filepath.Join(base, raw), raw)
	}

	for _, c := range candidates {
		for _, full := range []string{c, c + moduleExt} {
			if info, err := os.Stat(full); err == nil && !info.IsDir() {
				abs, err := filepath.Abs(full)
				if err != nil {
					return full, true
				}
				return abs, true
			}
		}
	}
	return "", false
}

// evalLink loads a native shared library and makes it the binding target of
// the external declarations that follow. Handles are cached by resolved
// path, so linking the same library twice is free.
func (ip *Interpreter) evalLink(node *ast.LinkStatement) Object {
	path := ip.resolveNativePath(node.Path.Value)

	if lib, ok := ip.libs[path]; ok {
		ip.lastLib = lib
		return NULL
	}
	lib, err := openNativeLibrary(path)
	if err != nil {
		return ip.errorAt(ErrNativeLink, node.Path.Token, "cannot load library %q: %v", node.Path.Value, err)
	}
	ip.libs[path] = lib
	ip.lastLib = lib
	return NULL
}

// resolveNativePath appends the platform's shared-library extension when
// the raw path has none, and prefers a file next to the current script. A
// bare name with no local match passes through for the system loader's own
// search path.
func (ip *Interpreter) resolveNativePath(raw string) string {
	name := raw
	if filepath.Ext(name) == "" {
		switch runtime.GOOS {
		case "windows":
			name += ".dll"
		case "darwin":
			name += ".dylib"
		default:
			name += ".so"
		}
	}
	if filepath.IsAbs(name) {
		return name
	}
	base := filepath.Dir(ip.currentFile())
	local := filepath.Join(base, name)
	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		return local
	}
	return name
}

func (ip *Interpreter) evalExternalDecl(node *ast.ExternalDecl, env *Environment) Object {
	if ip.lastLib == nil {
		return ip.errorAt(ErrNativeLink, node.Name.Token, "external declaration of %q requires a preceding link statement", node.Name.Value)
	}
	ext := &External{
		Name:       node.Name.Value,
		ReturnType: node.ReturnType,
		Parameters: node.Parameters,
		Lib:        ip.lastLib,
	}
	if !env.Define(node.Name.Value, ext, false, node.ReturnType, false) {
		return ip.errorAt(ErrRedeclaration, node.Name.Token, "%q is already defined in this scope", node.Name.Value)
	}
	return NULL
}

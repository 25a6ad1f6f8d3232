package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sable-lang/sable/pkg/eval"
)

// runScript interprets a script file with the trailing arguments exposed as
// ARGS. Returns the process exit code.
func runScript(path string, scriptArgs []string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sable: cannot read %s: %v\n", path, err)
		return 1
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	ip := eval.New()
	ip.SetArgs(scriptArgs)
	return report(ip, ip.Interpret(string(data), abs))
}

func evalSource(code string) int {
	ip := eval.New()
	ip.SetArgs(nil)
	return report(ip, ip.Interpret(code, "<eval>"))
}

// report renders a terminal result and picks the exit code. Unhandled
// thrown values and runtime errors both exit non-zero.
func report(ip *eval.Interpreter, result eval.Object) int {
	switch r := result.(type) {
	case *eval.Error:
		fmt.Fprint(os.Stderr, r.Render(ip.Source(r.Pos.File)))
		return 1
	case *eval.ThrownSignal:
		fmt.Fprint(os.Stderr, ip.RenderThrown(r))
		return 1
	}
	return 0
}

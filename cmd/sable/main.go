package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sable-lang/sable/pkg/version"
)

const usage = `Sable programming language

Usage:
  sable run <script.sb> [args...]   run a script
  sable eval <code>                 evaluate a one-liner
  sable repl                        start an interactive session
  sable version                     print the version
  sable help                        show this help

Running sable with a script path is shorthand for "sable run"; with no
arguments it starts the REPL.`

func main() {
	// a .env next to the invocation shell feeds the env() builtin
	_ = godotenv.Load()

	args := os.Args[1:]
	if len(args) == 0 {
		runREPL()
		return
	}

	switch args[0] {
	case "run":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "sable run: missing script path")
			os.Exit(2)
		}
		os.Exit(runScript(args[1], args[2:]))
	case "eval":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "sable eval: missing code")
			os.Exit(2)
		}
		os.Exit(evalSource(strings.Join(args[1:], " ")))
	case "repl":
		runREPL()
	case "version", "--version", "-v":
		fmt.Println("sable " + version.Full())
	case "help", "--help", "-h":
		fmt.Println(usage)
	default:
		if strings.HasPrefix(args[0], "-") {
			fmt.Fprintf(os.Stderr, "sable: unknown flag %q\n\n%s\n", args[0], usage)
			os.Exit(2)
		}
		os.Exit(runScript(args[0], args[1:]))
	}
}

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sable-lang/sable/pkg/eval"
	"github.com/sable-lang/sable/pkg/version"
)

// runREPL starts an interactive session sharing one persistent global
// environment across lines.
func runREPL() {
	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".sable_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sable: cannot start repl: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Printf("sable %s (type :help for commands)\n", version.Full())

	ip := eval.New()
	ip.SetArgs(nil)

	var buffer strings.Builder
	lineNo := 0
	for {
		if buffer.Len() > 0 {
			rl.SetPrompt(".. ")
		} else {
			rl.SetPrompt(">> ")
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			buffer.Reset()
			continue
		}
		if err == io.EOF {
			return
		}

		if buffer.Len() == 0 && strings.HasPrefix(strings.TrimSpace(line), ":") {
			if handleCommand(ip, strings.TrimSpace(line)) {
				return
			}
			continue
		}

		buffer.WriteString(line)
		buffer.WriteByte('\n')
		if openDepth(buffer.String()) > 0 {
			continue
		}

		source := buffer.String()
		buffer.Reset()
		if strings.TrimSpace(source) == "" {
			continue
		}

		lineNo++
		result := ip.Interpret(source, fmt.Sprintf("<repl:%d>", lineNo))
		switch r := result.(type) {
		case *eval.Error:
			fmt.Fprint(os.Stderr, r.Render(source))
		case *eval.ThrownSignal:
			fmt.Fprint(os.Stderr, ip.RenderThrown(r))
		default:
			if r != nil && r.Kind() != eval.KindNull {
				fmt.Println(r.Inspect())
			}
		}
	}
}

// handleCommand runs a :command; returns true when the session should end.
func handleCommand(ip *eval.Interpreter, cmd string) bool {
	switch cmd {
	case ":quit", ":q", ":exit":
		return true
	case ":help", ":h":
		fmt.Println(`:help     show this help
:vars     list global names
:quit     leave the repl`)
	case ":vars":
		names := ip.Globals().Names()
		if len(names) == 0 {
			fmt.Println("(nothing defined)")
			return false
		}
		for _, n := range names {
			fmt.Println(n)
		}
	default:
		fmt.Printf("unknown command %s (try :help)\n", cmd)
	}
	return false
}

// openDepth counts unclosed braces, brackets and parens outside string
// literals, so multi-line constructs keep reading input.
func openDepth(src string) int {
	depth := 0
	inString := false
	inRaw := false
	escaped := false
	for i := 0; i < len(src); i++ {
		ch := src[i]
		switch {
		case inString:
			if escaped {
				escaped = false
			} else if ch == '\\' {
				escaped = true
			} else if ch == '"' || ch == '\n' {
				inString = false
			}
		case inRaw:
			if ch == '`' {
				inRaw = false
			}
		case ch == '"':
			inString = true
		case ch == '`':
			inRaw = true
		case ch == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case ch == '{' || ch == '(' || ch == '[':
			depth++
		case ch == '}' || ch == ')' || ch == ']':
			depth--
		}
	}
	return depth
}

package eval

import (
	"fmt"
	"strings"

	"github.com/sable-lang/sable/pkg/token"
)

// ErrorKind classifies runtime failures. Only user-thrown values travel
// through try/catch; every other kind is fatal to the current run or REPL
// line.
type ErrorKind uint8

const (
	ErrUndefinedReference ErrorKind = iota
	ErrRedeclaration
	ErrConstViolation
	ErrArityMismatch
	ErrTypeMismatch
	ErrArithmetic
	ErrCastOverflow
	ErrNativeLink
	ErrControlFlowMisuse
	ErrModuleResolution
	ErrStackOverflow
	ErrParse
)

var errorKindNames = [...]string{
	"UndefinedReference",
	"Redeclaration",
	"ConstViolation",
	"ArityMismatch",
	"TypeMismatch",
	"ArithmeticError",
	"CastOverflow",
	"NativeLinkError",
	"ControlFlowMisuse",
	"ModuleResolutionError",
	"StackOverflow",
	"ParseError",
}

func (k ErrorKind) String() string { return errorKindNames[k] }

// Position locates a diagnostic in a source file. Width is the token length
// used for the caret underline.
type Position struct {
	File   string
	Line   int
	Column int
	Width  int
}

// Frame is one logical call-stack entry, captured per source-level call.
type Frame struct {
	Function string
	File     string
	Line     int
}

func (f Frame) String() string {
	return fmt.Sprintf("at %s() in %s:line %d", f.Function, f.File, f.Line)
}

// Error is both a runtime Object (so it threads through Eval like any other
// result) and a Go error for the CLI boundary.
type Error struct {
	ErrKind ErrorKind
	Message string
	Pos     Position
	Trace   []Frame
}

func (e *Error) Kind() ObjectKind { return KindError }

func (e *Error) Inspect() string {
	return fmt.Sprintf("%s: %s", e.ErrKind, e.Message)
}

func (e *Error) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%s: %s (%s:%d)", e.ErrKind, e.Message, e.Pos.File, e.Pos.Line)
	}
	return e.Inspect()
}

// Render writes the full diagnostic: message, stack frames, and when the
// source text is available, the offending line with a caret underline.
func (e *Error) Render(source string) string {
	var out strings.Builder
	out.WriteString(e.Inspect())
	out.WriteByte('\n')
	for _, f := range e.Trace {
		out.WriteString("  " + f.String() + "\n")
	}
	if line := sourceLine(source, e.Pos.Line); line != "" {
		out.WriteString("  " + line + "\n")
		out.WriteString("  " + caretLine(line, e.Pos.Column, e.Pos.Width) + "\n")
	}
	return out.String()
}

func sourceLine(source string, line int) string {
	if source == "" || line < 1 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[line-1], "\r")
}

func caretLine(line string, column, width int) string {
	if column < 1 {
		column = 1
	}
	if width < 1 {
		width = 1
	}
	var out strings.Builder
	for i := 0; i < column-1 && i < len(line); i++ {
		if line[i] == '\t' {
			out.WriteByte('\t')
		} else {
			out.WriteByte(' ')
		}
	}
	for i := 0; i < width; i++ {
		out.WriteByte('^')
	}
	return out.String()
}

// posToken rebuilds a token-shaped position for evaluator paths that only
// have a Position, such as builtins invoking user code.
func posToken(pos Position) token.Token {
	return token.Token{Line: pos.Line, Column: pos.Column}
}

func isError(o Object) bool {
	return o != nil && o.Kind() == KindError
}

// isAbort reports a result that must unwind the enclosing expression: an
// internal error, or a thrown value travelling to its handler. Expression
// sites use this rather than isError so a throw surfacing through a call
// operand keeps propagating instead of being treated as a value.
func isAbort(o Object) bool {
	if o == nil {
		return false
	}
	switch o.Kind() {
	case KindError, KindThrownSignal:
		return true
	}
	return false
}

// isSignal reports any non-normal evaluation result that must stop the
// current statement sequence.
func isSignal(o Object) bool {
	if o == nil {
		return false
	}
	switch o.Kind() {
	case KindReturnSignal, KindBreakSignal, KindContinueSignal, KindThrownSignal, KindError:
		return true
	}
	return false
}

package eval

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sable-lang/sable/pkg/ast"
)

// Object is the closed set of runtime values. Inspect renders the value the
// way print and the REPL show it.
type Object interface {
	Kind() ObjectKind
	Inspect() string
}

type Null struct{}

func (n *Null) Kind() ObjectKind { return KindNull }
func (n *Null) Inspect() string  { return "null" }

type Bool struct {
	Value bool
}

func (b *Bool) Kind() ObjectKind { return KindBool }
func (b *Bool) Inspect() string  { return strconv.FormatBool(b.Value) }

// Shared singletons; the evaluator never allocates fresh null/bool values.
var (
	NULL  = &Null{}
	TRUE  = &Bool{Value: true}
	FALSE = &Bool{Value: false}

	BREAK    = &BreakSignal{}
	CONTINUE = &ContinueSignal{}
)

func nativeBool(v bool) *Bool {
	if v {
		return TRUE
	}
	return FALSE
}

// Int holds every signed width; Value is always sign-extended and in range
// for NK.
type Int struct {
	Value int64
	NK    NumKind
}

func (i *Int) Kind() ObjectKind { return KindInt }
func (i *Int) Inspect() string  { return strconv.FormatInt(i.Value, 10) }

// Uint holds every unsigned width; Value is always in range for NK.
type Uint struct {
	Value uint64
	NK    NumKind
}

func (u *Uint) Kind() ObjectKind { return KindUint }
func (u *Uint) Inspect() string  { return strconv.FormatUint(u.Value, 10) }

type Float struct {
	Value float64
	NK    NumKind
}

func (f *Float) Kind() ObjectKind { return KindFloat }
func (f *Float) Inspect() string {
	bits := 64
	if f.NK == NumFloat32 {
		bits = 32
	}
	s := strconv.FormatFloat(f.Value, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eE") && !strings.Contains(s, "Inf") && !strings.Contains(s, "NaN") {
		s += ".0"
	}
	return s
}

type String struct {
	Value string
}

func (s *String) Kind() ObjectKind { return KindString }
func (s *String) Inspect() string  { return s.Value }

type List struct {
	Elements []Object
}

func (l *List) Kind() ObjectKind { return KindList }
func (l *List) Inspect() string {
	parts := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		parts[i] = inspectQuoted(e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

type Map struct {
	Pairs map[string]Object
}

func (m *Map) Kind() ObjectKind { return KindMap }
func (m *Map) Inspect() string {
	keys := make([]string, 0, len(m.Pairs))
	for k := range m.Pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = strconv.Quote(k) + ": " + inspectQuoted(m.Pairs[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// inspectQuoted renders strings with quotes inside containers so nested
// output stays unambiguous.
func inspectQuoted(o Object) string {
	if s, ok := o.(*String); ok {
		return strconv.Quote(s.Value)
	}
	return o.Inspect()
}

// Function is a user closure: Env is the environment active at the
// definition site, reused as the parent scope of every call.
type Function struct {
	Name       string
	ReturnType string
	Parameters []*ast.Param
	Body       *ast.BlockStatement
	Env        *Environment
	Static     bool
}

func (f *Function) Kind() ObjectKind { return KindFunction }
func (f *Function) Inspect() string {
	params := make([]string, len(f.Parameters))
	for i, p := range f.Parameters {
		params[i] = p.String()
	}
	return fmt.Sprintf("%s %s(%s) { ... }", f.ReturnType, f.Name, strings.Join(params, ", "))
}

// BuiltinFn receives the interpreter so builtins can reach the output
// streams and raise positioned errors.
type BuiltinFn func(ip *Interpreter, pos Position, args []Object) Object

type Builtin struct {
	Name string
	Fn   BuiltinFn
}

func (b *Builtin) Kind() ObjectKind { return KindBuiltin }
func (b *Builtin) Inspect() string  { return "builtin " + b.Name }

// External is a native function bound by a link/external pair.
type External struct {
	Name       string
	ReturnType string
	Parameters []*ast.Param
	Lib        *NativeLibrary
}

func (e *External) Kind() ObjectKind { return KindExternal }
func (e *External) Inspect() string  { return "external " + e.Name }

// FieldSpec is a class field template; Init was evaluated once at class
// declaration time and is copied into each new instance.
type FieldSpec struct {
	Name    string
	Private bool
	Init    Object
}

type Class struct {
	Name        string
	Constructor *Function // nil when the class declares none
	Destructor  *Function
	Methods     map[string]*Function
	Fields      []FieldSpec
	Statics     *Environment
}

func (c *Class) Kind() ObjectKind { return KindClass }
func (c *Class) Inspect() string  { return "class " + c.Name }

type Instance struct {
	Class  *Class
	Fields *Environment
}

func (i *Instance) Kind() ObjectKind { return KindInstance }
func (i *Instance) Inspect() string  { return "<" + i.Class.Name + " instance>" }

// BoundMethod pairs a method with its receiver so obj.m can travel as a
// value before being called.
type BoundMethod struct {
	Receiver *Instance
	Method   *Function
}

func (bm *BoundMethod) Kind() ObjectKind { return KindBoundMethod }
func (bm *BoundMethod) Inspect() string {
	return fmt.Sprintf("<method %s.%s>", bm.Receiver.Class.Name, bm.Method.Name)
}

type EnumMember struct {
	EnumName string
	Name     string
	Value    int64
}

func (em *EnumMember) Kind() ObjectKind { return KindEnumMember }
func (em *EnumMember) Inspect() string  { return em.EnumName + "." + em.Name }

type Enum struct {
	Name    string
	Members map[string]*EnumMember
	Order   []string // declaration order, for foreach
}

func (e *Enum) Kind() ObjectKind { return KindEnum }
func (e *Enum) Inspect() string  { return "enum " + e.Name }

type Namespace struct {
	Name string
	Env  *Environment
}

func (ns *Namespace) Kind() ObjectKind { return KindNamespace }
func (ns *Namespace) Inspect() string  { return "namespace " + ns.Name }

// Handle wraps a native pointer without interpreting it.
type Handle struct {
	Ptr uintptr
}

func (h *Handle) Kind() ObjectKind { return KindHandle }
func (h *Handle) Inspect() string  { return fmt.Sprintf("handle(0x%x)", h.Ptr) }

// Signals

type ReturnSignal struct {
	Value Object
}

func (rs *ReturnSignal) Kind() ObjectKind { return KindReturnSignal }
func (rs *ReturnSignal) Inspect() string  { return "return " + rs.Value.Inspect() }

type BreakSignal struct{}

func (bs *BreakSignal) Kind() ObjectKind { return KindBreakSignal }
func (bs *BreakSignal) Inspect() string  { return "break" }

type ContinueSignal struct{}

func (cs *ContinueSignal) Kind() ObjectKind { return KindContinueSignal }
func (cs *ContinueSignal) Inspect() string  { return "continue" }

// ThrownSignal carries a user-thrown value plus the call stack captured at
// the throw site.
type ThrownSignal struct {
	Value Object
	Trace []Frame
}

func (ts *ThrownSignal) Kind() ObjectKind { return KindThrownSignal }
func (ts *ThrownSignal) Inspect() string  { return "thrown " + ts.Value.Inspect() }

// typeName names a value for diagnostics, with numeric widths spelled out.
func typeName(o Object) string {
	switch v := o.(type) {
	case *Int:
		return v.NK.String()
	case *Uint:
		return v.NK.String()
	case *Float:
		return v.NK.String()
	default:
		return o.Kind().String()
	}
}

package eval

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/sable-lang/sable/pkg/ast"
	"github.com/sable-lang/sable/pkg/lexer"
	"github.com/sable-lang/sable/pkg/parser"
	"github.com/sable-lang/sable/pkg/token"
)

// maxCallDepth bounds source-level call nesting so runaway recursion
// surfaces as a StackOverflow error instead of a host crash.
const maxCallDepth = 5000

type moduleState uint8

const (
	modLoading moduleState = iota + 1
	modLoaded
)

// Interpreter owns all per-run state: the global scope, the logical call
// stack, the module registry, and the linked native libraries. It is
// single-threaded; callers wanting concurrency must add their own locking.
type Interpreter struct {
	globals *Environment
	stdout  io.Writer
	stderr  io.Writer

	frames []Frame
	depth  int

	modules   map[string]moduleState
	fileStack []string
	sources   map[string]string

	libs    map[string]*NativeLibrary
	lastLib *NativeLibrary
}

func New() *Interpreter {
	return &Interpreter{
		globals: NewEnvironment(),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		modules: make(map[string]moduleState),
		sources: make(map[string]string),
		libs:    make(map[string]*NativeLibrary),
	}
}

func (ip *Interpreter) SetOutput(w io.Writer)    { ip.stdout = w }
func (ip *Interpreter) SetErrOutput(w io.Writer) { ip.stderr = w }

// Globals exposes the top-level scope; the REPL uses it for completion and
// to keep one session across lines.
func (ip *Interpreter) Globals() *Environment { return ip.globals }

// SetArgs binds the trailing CLI arguments as the constant list ARGS.
func (ip *Interpreter) SetArgs(args []string) {
	elems := make([]Object, len(args))
	for i, a := range args {
		elems[i] = &String{Value: a}
	}
	ip.globals.Define("ARGS", &List{Elements: elems}, true, "string", true)
}

// Interpret parses and evaluates one source unit against the persistent
// global scope. file is used for diagnostics and relative import paths.
func (ip *Interpreter) Interpret(source, file string) Object {
	p := parser.New(lexer.New(source))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return &Error{
			ErrKind: ErrParse,
			Message: strings.Join(errs, "; "),
			Pos:     Position{File: file},
		}
	}
	ip.sources[file] = source

	ip.fileStack = append(ip.fileStack, file)
	defer func() { ip.fileStack = ip.fileStack[:len(ip.fileStack)-1] }()

	result := ip.evalStatements(program.Statements, ip.globals)
	return ip.checkTopLevel(result)
}

// checkTopLevel converts signals that escaped every handler into errors.
func (ip *Interpreter) checkTopLevel(result Object) Object {
	switch result.(type) {
	case *BreakSignal:
		return &Error{ErrKind: ErrControlFlowMisuse, Message: "break outside of a loop"}
	case *ContinueSignal:
		return &Error{ErrKind: ErrControlFlowMisuse, Message: "continue outside of a loop"}
	case *ReturnSignal:
		return &Error{ErrKind: ErrControlFlowMisuse, Message: "return outside of a function"}
	}
	return result
}

func (ip *Interpreter) currentFile() string {
	if len(ip.fileStack) == 0 {
		return "<repl>"
	}
	return ip.fileStack[len(ip.fileStack)-1]
}

// Source returns the text of a loaded file, for diagnostic rendering.
func (ip *Interpreter) Source(file string) string { return ip.sources[file] }

func (ip *Interpreter) snapshotFrames() []Frame {
	trace := make([]Frame, len(ip.frames))
	copy(trace, ip.frames)
	return trace
}

func (ip *Interpreter) errorAt(kind ErrorKind, tok token.Token, format string, args ...interface{}) *Error {
	return &Error{
		ErrKind: kind,
		Message: fmt.Sprintf(format, args...),
		Pos: Position{
			File:   ip.currentFile(),
			Line:   tok.Line,
			Column: tok.Column,
			Width:  len(tok.Literal),
		},
		Trace: ip.snapshotFrames(),
	}
}

// Eval is the recursive walker. Statement cases return signals or NULL;
// expression cases return values or an error object.
func (ip *Interpreter) Eval(node ast.Node, env *Environment) Object {
	switch node := node.(type) {

	case *ast.Program:
		return ip.evalStatements(node.Statements, env)

	// Statements

	case *ast.VarDecl:
		return ip.evalVarDecl(node, env)

	case *ast.FunctionDecl:
		fn := &Function{
			Name:       node.Name.Value,
			ReturnType: node.ReturnType,
			Parameters: node.Parameters,
			Body:       node.Body,
			Env:        env,
		}
		if !env.Define(node.Name.Value, fn, false, node.ReturnType, false) {
			return ip.errorAt(ErrRedeclaration, node.Name.Token, "%q is already defined in this scope", node.Name.Value)
		}
		return NULL

	case *ast.ExpressionStatement:
		return ip.Eval(node.Expression, env)

	case *ast.BlockStatement:
		return ip.evalStatements(node.Statements, NewEnclosedEnvironment(env))

	case *ast.IfStatement:
		return ip.evalIfStatement(node, env)

	case *ast.WhileStatement:
		return ip.evalWhileStatement(node, env)

	case *ast.DoWhileStatement:
		return ip.evalDoWhileStatement(node, env)

	case *ast.ForStatement:
		return ip.evalForStatement(node, env)

	case *ast.ForeachStatement:
		return ip.evalForeachStatement(node, env)

	case *ast.SwitchStatement:
		return ip.evalSwitchStatement(node, env)

	case *ast.BreakStatement:
		return BREAK

	case *ast.ContinueStatement:
		return CONTINUE

	case *ast.ReturnStatement:
		value := Object(NULL)
		if node.ReturnValue != nil {
			value = ip.Eval(node.ReturnValue, env)
			if isAbort(value) {
				return value
			}
		}
		return &ReturnSignal{Value: value}

	case *ast.ThrowStatement:
		value := ip.Eval(node.Value, env)
		if isAbort(value) {
			return value
		}
		return &ThrownSignal{Value: value, Trace: ip.snapshotFrames()}

	case *ast.TryStatement:
		return ip.evalTryStatement(node, env)

	case *ast.ClassDecl:
		return ip.evalClassDecl(node, env)

	case *ast.EnumDecl:
		return ip.evalEnumDecl(node, env)

	case *ast.NamespaceDecl:
		return ip.evalNamespaceDecl(node, env)

	case *ast.ImportStatement:
		return ip.evalImport(node, env)

	case *ast.LinkStatement:
		return ip.evalLink(node)

	case *ast.ExternalDecl:
		return ip.evalExternalDecl(node, env)

	// Expressions

	case *ast.Identifier:
		return ip.evalIdentifier(node, env)

	case *ast.IntegerLiteral:
		if node.Unsigned {
			return &Uint{Value: node.UValue, NK: NumUInt64}
		}
		return &Int{Value: node.Value, NK: NumInt64}

	case *ast.FloatLiteral:
		return &Float{Value: node.Value, NK: NumFloat64}

	case *ast.StringLiteral:
		return &String{Value: node.Value}

	case *ast.BooleanLiteral:
		return nativeBool(node.Value)

	case *ast.NullLiteral:
		return NULL

	case *ast.ListLiteral:
		elems := make([]Object, 0, len(node.Elements))
		for _, e := range node.Elements {
			v := ip.Eval(e, env)
			if isAbort(v) {
				return v
			}
			elems = append(elems, v)
		}
		return &List{Elements: elems}

	case *ast.MapLiteral:
		pairs := make(map[string]Object, len(node.Pairs))
		for _, p := range node.Pairs {
			k := ip.Eval(p.Key, env)
			if isAbort(k) {
				return k
			}
			key, ok := k.(*String)
			if !ok {
				return ip.errorAt(ErrTypeMismatch, node.Token, "map keys must be strings, got %s", typeName(k))
			}
			v := ip.Eval(p.Value, env)
			if isAbort(v) {
				return v
			}
			pairs[key.Value] = v
		}
		return &Map{Pairs: pairs}

	case *ast.PrefixExpression:
		right := ip.Eval(node.Right, env)
		if isAbort(right) {
			return right
		}
		return ip.evalPrefixExpression(node, right)

	case *ast.InfixExpression:
		return ip.evalInfixExpression(node, env)

	case *ast.PostfixExpression:
		return ip.evalPostfixExpression(node, env)

	case *ast.AssignExpression:
		return ip.evalAssignExpression(node, env)

	case *ast.IndexExpression:
		return ip.evalIndexExpression(node, env)

	case *ast.MemberExpression:
		obj := ip.Eval(node.Object, env)
		if isAbort(obj) {
			return obj
		}
		return ip.readMember(obj, node.Property.Value, node.Property.Token)

	case *ast.CallExpression:
		return ip.evalCallExpression(node, env)

	case *ast.NewExpression:
		return ip.evalNewExpression(node, env)
	}

	return &Error{ErrKind: ErrTypeMismatch, Message: fmt.Sprintf("unhandled node %T", node)}
}

// evalStatements runs a statement list with function, class, enum and
// namespace declarations hoisted ahead of everything else; the remaining
// statements run in source order.
func (ip *Interpreter) evalStatements(stmts []ast.Statement, env *Environment) Object {
	var result Object = NULL

	for _, s := range stmts {
		if hoistable(s) {
			if r := ip.Eval(s, env); isSignal(r) {
				return r
			}
		}
	}
	for _, s := range stmts {
		if hoistable(s) {
			continue
		}
		result = ip.Eval(s, env)
		if isSignal(result) {
			return result
		}
	}
	return result
}

func hoistable(s ast.Statement) bool {
	switch s.(type) {
	case *ast.FunctionDecl, *ast.ClassDecl, *ast.EnumDecl, *ast.NamespaceDecl:
		return true
	}
	return false
}

func (ip *Interpreter) evalVarDecl(node *ast.VarDecl, env *Environment) Object {
	var value Object = NULL
	if node.Value != nil {
		value = ip.Eval(node.Value, env)
		if isSignal(value) {
			return value
		}
	}

	value, errObj := ip.coerceDeclared(value, node.TypeName, node.IsArray, node.Name.Token)
	if errObj != nil {
		return errObj
	}

	typeTag := node.TypeName
	if typeTag == "var" {
		typeTag = typeName(value)
	}
	if !env.Define(node.Name.Value, value, node.Const, typeTag, node.IsArray) {
		return ip.errorAt(ErrRedeclaration, node.Name.Token, "%q is already defined in this scope", node.Name.Value)
	}
	return NULL
}

// coerceDeclared narrows a numeric initializer to the declared width with a
// checked cast; non-numeric declarations and `var` keep the value as-is.
func (ip *Interpreter) coerceDeclared(value Object, typeName string, isArray bool, tok token.Token) (Object, *Error) {
	if isArray || value == NULL {
		return value, nil
	}
	if _, ok := numKindByName[typeName]; !ok {
		return value, nil
	}
	if !IsNumeric(value) {
		return nil, ip.errorAt(ErrTypeMismatch, tok, "cannot initialize %s from %s", typeName, value.Kind())
	}
	out, oe := Cast(value, typeName)
	if oe != nil {
		return nil, ip.errorAt(oe.kind, tok, "%s", oe.msg)
	}
	return out, nil
}

func (ip *Interpreter) evalIdentifier(node *ast.Identifier, env *Environment) Object {
	if v, ok := env.Get(node.Value); ok {
		return v
	}
	if b, ok := builtins[node.Value]; ok {
		return b
	}
	return ip.errorAt(ErrUndefinedReference, node.Token, "undefined name %q", node.Value)
}

func (ip *Interpreter) evalIfStatement(node *ast.IfStatement, env *Environment) Object {
	cond := ip.Eval(node.Condition, env)
	if isAbort(cond) {
		return cond
	}
	if Truthy(cond) {
		return ip.Eval(node.Consequence, env)
	}
	if node.Alternative != nil {
		return ip.Eval(node.Alternative, env)
	}
	return NULL
}

func (ip *Interpreter) evalWhileStatement(node *ast.WhileStatement, env *Environment) Object {
	for {
		cond := ip.Eval(node.Condition, env)
		if isAbort(cond) {
			return cond
		}
		if !Truthy(cond) {
			return NULL
		}
		result := ip.Eval(node.Body, env)
		switch result.Kind() {
		case KindBreakSignal:
			return NULL
		case KindContinueSignal:
			continue
		case KindReturnSignal, KindThrownSignal, KindError:
			return result
		}
	}
}

func (ip *Interpreter) evalDoWhileStatement(node *ast.DoWhileStatement, env *Environment) Object {
	for {
		result := ip.Eval(node.Body, env)
		switch result.Kind() {
		case KindBreakSignal:
			return NULL
		case KindReturnSignal, KindThrownSignal, KindError:
			return result
		}
		cond := ip.Eval(node.Condition, env)
		if isAbort(cond) {
			return cond
		}
		if !Truthy(cond) {
			return NULL
		}
	}
}

func (ip *Interpreter) evalForStatement(node *ast.ForStatement, env *Environment) Object {
	loopEnv := NewEnclosedEnvironment(env)
	if node.Init != nil {
		if r := ip.Eval(node.Init, loopEnv); isSignal(r) {
			return r
		}
	}
	for {
		if node.Cond != nil {
			cond := ip.Eval(node.Cond, loopEnv)
			if isAbort(cond) {
				return cond
			}
			if !Truthy(cond) {
				return NULL
			}
		}

		result := ip.Eval(node.Body, loopEnv)
		switch result.Kind() {
		case KindBreakSignal:
			return NULL
		case KindReturnSignal, KindThrownSignal, KindError:
			return result
		}

		// the increment clause runs even after continue
		if node.Post != nil {
			if r := ip.Eval(node.Post, loopEnv); isAbort(r) {
				return r
			}
		}
	}
}

func (ip *Interpreter) evalForeachStatement(node *ast.ForeachStatement, env *Environment) Object {
	iterable := ip.Eval(node.Iterable, env)
	if isAbort(iterable) {
		return iterable
	}

	var items []Object
	switch it := iterable.(type) {
	case *List:
		items = it.Elements
	case *Enum:
		items = make([]Object, len(it.Order))
		for i, name := range it.Order {
			items[i] = it.Members[name]
		}
	case *String:
		items = make([]Object, 0, len(it.Value))
		for _, r := range it.Value {
			items = append(items, &String{Value: string(r)})
		}
	default:
		return ip.errorAt(ErrTypeMismatch, node.Token, "cannot iterate over %s", typeName(iterable))
	}

	for _, item := range items {
		iterEnv := NewEnclosedEnvironment(env)
		iterEnv.Define(node.Name.Value, item, false, typeName(item), false)
		result := ip.Eval(node.Body, iterEnv)
		switch result.Kind() {
		case KindBreakSignal:
			return NULL
		case KindContinueSignal:
			continue
		case KindReturnSignal, KindThrownSignal, KindError:
			return result
		}
	}
	return NULL
}

func (ip *Interpreter) evalSwitchStatement(node *ast.SwitchStatement, env *Environment) Object {
	value := ip.Eval(node.Value, env)
	if isAbort(value) {
		return value
	}

	matched := -1
	defaultIdx := -1
	for i, clause := range node.Cases {
		if clause.Values == nil {
			defaultIdx = i
			continue
		}
		for _, v := range clause.Values {
			cv := ip.Eval(v, env)
			if isAbort(cv) {
				return cv
			}
			eq := ip.binaryOp("==", value, cv, node.Token)
			if isError(eq) {
				return eq
			}
			if Truthy(eq) {
				matched = i
				break
			}
		}
		if matched >= 0 {
			break
		}
	}
	if matched < 0 {
		matched = defaultIdx
	}
	if matched < 0 {
		return NULL
	}

	// fallthrough until a break; an explicit break is required at clause
	// boundaries
	switchEnv := NewEnclosedEnvironment(env)
	for _, clause := range node.Cases[matched:] {
		for _, s := range clause.Body {
			result := ip.Eval(s, switchEnv)
			switch result.Kind() {
			case KindBreakSignal:
				return NULL
			case KindContinueSignal, KindReturnSignal, KindThrownSignal, KindError:
				return result
			}
		}
	}
	return NULL
}

func (ip *Interpreter) evalTryStatement(node *ast.TryStatement, env *Environment) Object {
	result := ip.Eval(node.Try, env)

	if thrown, ok := result.(*ThrownSignal); ok && node.Catch != nil {
		catchEnv := NewEnclosedEnvironment(env)
		catchEnv.Define(node.CatchParam.Value, thrown.Value, false, typeName(thrown.Value), false)
		result = ip.evalStatements(node.Catch.Statements, catchEnv)
	}

	if node.Finally != nil {
		finResult := ip.Eval(node.Finally, env)
		switch finResult.Kind() {
		case KindReturnSignal, KindThrownSignal, KindError:
			// only return and throw override the try/catch outcome
			return finResult
		case KindBreakSignal, KindContinueSignal:
			// loop control from finally applies only when nothing is
			// already propagating
			if !isSignal(result) {
				return finResult
			}
		}
	}

	if isSignal(result) {
		return result
	}
	return NULL
}

func (ip *Interpreter) evalEnumDecl(node *ast.EnumDecl, env *Environment) Object {
	enum := &Enum{Name: node.Name.Value, Members: make(map[string]*EnumMember)}
	next := int64(0)
	for _, m := range node.Members {
		if m.Value != nil {
			v := ip.Eval(m.Value, env)
			if isAbort(v) {
				return v
			}
			if !IsInteger(v) {
				return ip.errorAt(ErrTypeMismatch, m.Name.Token, "enum member %q requires an integer value", m.Name.Value)
			}
			next = toInt64(v)
		}
		if _, exists := enum.Members[m.Name.Value]; exists {
			return ip.errorAt(ErrRedeclaration, m.Name.Token, "duplicate enum member %q", m.Name.Value)
		}
		enum.Members[m.Name.Value] = &EnumMember{EnumName: node.Name.Value, Name: m.Name.Value, Value: next}
		enum.Order = append(enum.Order, m.Name.Value)
		next++
	}
	if !env.Define(node.Name.Value, enum, true, "enum", false) {
		return ip.errorAt(ErrRedeclaration, node.Name.Token, "%q is already defined in this scope", node.Name.Value)
	}
	return NULL
}

// evalNamespaceDecl executes the body in the namespace's own environment.
// Re-declaring a namespace re-opens it and merges new declarations in.
func (ip *Interpreter) evalNamespaceDecl(node *ast.NamespaceDecl, env *Environment) Object {
	var ns *Namespace
	if existing, ok := env.Get(node.Name.Value); ok {
		var isNS bool
		ns, isNS = existing.(*Namespace)
		if !isNS {
			return ip.errorAt(ErrRedeclaration, node.Name.Token, "%q is already defined and is not a namespace", node.Name.Value)
		}
	} else {
		ns = &Namespace{Name: node.Name.Value, Env: NewEnclosedEnvironment(env)}
		env.Define(node.Name.Value, ns, true, "namespace", false)
	}
	if r := ip.evalStatements(node.Body.Statements, ns.Env); isSignal(r) {
		return r
	}
	return NULL
}

func (ip *Interpreter) evalPrefixExpression(node *ast.PrefixExpression, right Object) Object {
	switch node.Operator {
	case "!":
		return nativeBool(!Truthy(right))
	case "-":
		switch v := right.(type) {
		case *Int:
			return &Int{Value: signWrap(-v.Value, v.NK), NK: v.NK}
		case *Uint:
			// 1<<63 negates to exactly math.MinInt64, so the literal
			// -9223372036854775808 round-trips
			if v.Value == 1<<63 {
				return &Int{Value: math.MinInt64, NK: NumInt64}
			}
			if v.Value > 1<<63-1 {
				return ip.errorAt(ErrArithmetic, node.Token, "negation of %s overflows", v.Inspect())
			}
			return &Int{Value: -int64(v.Value), NK: NumInt64}
		case *Float:
			return &Float{Value: -v.Value, NK: v.NK}
		}
		return ip.errorAt(ErrTypeMismatch, node.Token, "cannot negate %s", typeName(right))
	}
	return ip.errorAt(ErrTypeMismatch, node.Token, "unknown prefix operator %q", node.Operator)
}

func (ip *Interpreter) evalInfixExpression(node *ast.InfixExpression, env *Environment) Object {
	// short-circuit forms evaluate the right side only when needed
	switch node.Operator {
	case "&&":
		left := ip.Eval(node.Left, env)
		if isAbort(left) {
			return left
		}
		if !Truthy(left) {
			return FALSE
		}
		right := ip.Eval(node.Right, env)
		if isAbort(right) {
			return right
		}
		return nativeBool(Truthy(right))
	case "||":
		left := ip.Eval(node.Left, env)
		if isAbort(left) {
			return left
		}
		if Truthy(left) {
			return TRUE
		}
		right := ip.Eval(node.Right, env)
		if isAbort(right) {
			return right
		}
		return nativeBool(Truthy(right))
	}

	left := ip.Eval(node.Left, env)
	if isAbort(left) {
		return left
	}
	right := ip.Eval(node.Right, env)
	if isAbort(right) {
		return right
	}
	return ip.binaryOp(node.Operator, left, right, node.Token)
}

func (ip *Interpreter) binaryOp(op string, left, right Object, tok token.Token) Object {
	// + with a string on either side concatenates
	if op == "+" && (left.Kind() == KindString || right.Kind() == KindString) {
		return &String{Value: stringify(left) + stringify(right)}
	}

	if left.Kind() == KindString && right.Kind() == KindString {
		ls, rs := left.(*String).Value, right.(*String).Value
		switch op {
		case "==":
			return nativeBool(ls == rs)
		case "!=":
			return nativeBool(ls != rs)
		case "<":
			return nativeBool(ls < rs)
		case ">":
			return nativeBool(ls > rs)
		case "<=":
			return nativeBool(ls <= rs)
		case ">=":
			return nativeBool(ls >= rs)
		}
		return ip.errorAt(ErrTypeMismatch, tok, "operator %q is not defined for strings", op)
	}

	// enum members compare by their underlying integer value
	if left.Kind() == KindEnumMember && right.Kind() == KindEnumMember {
		lm, rm := left.(*EnumMember), right.(*EnumMember)
		out, oe := compareNumeric(op, &Int{Value: lm.Value, NK: NumInt64}, &Int{Value: rm.Value, NK: NumInt64})
		if oe != nil {
			return ip.errorAt(oe.kind, tok, "%s", oe.msg)
		}
		return out
	}

	// null supports only equality
	if left.Kind() == KindNull || right.Kind() == KindNull {
		switch op {
		case "==":
			return nativeBool(left.Kind() == KindNull && right.Kind() == KindNull)
		case "!=":
			return nativeBool(left.Kind() != right.Kind() || left.Kind() != KindNull)
		}
		return ip.errorAt(ErrTypeMismatch, tok, "operator %q is not defined for null", op)
	}

	if left.Kind() == KindBool && right.Kind() == KindBool {
		lb, rb := left.(*Bool).Value, right.(*Bool).Value
		switch op {
		case "==":
			return nativeBool(lb == rb)
		case "!=":
			return nativeBool(lb != rb)
		}
		return ip.errorAt(ErrTypeMismatch, tok, "operator %q is not defined for bools", op)
	}

	if !IsNumeric(left) || !IsNumeric(right) {
		return ip.errorAt(ErrTypeMismatch, tok, "operator %q requires numeric operands, got %s and %s",
			op, typeName(left), typeName(right))
	}

	switch op {
	case "+", "-", "*", "/", "%":
		out, oe := binaryNumeric(op, left, right)
		if oe != nil {
			return ip.errorAt(oe.kind, tok, "%s", oe.msg)
		}
		return out
	default:
		out, oe := compareNumeric(op, left, right)
		if oe != nil {
			return ip.errorAt(oe.kind, tok, "%s", oe.msg)
		}
		return out
	}
}

func stringify(o Object) string { return o.Inspect() }

// evalPostfixExpression yields the pre-step value; the step is one unit at
// the operand's own numeric kind.
func (ip *Interpreter) evalPostfixExpression(node *ast.PostfixExpression, env *Environment) Object {
	current, ok := env.Get(node.Operand.Value)
	if !ok {
		return ip.errorAt(ErrUndefinedReference, node.Operand.Token, "undefined name %q", node.Operand.Value)
	}
	if !IsNumeric(current) {
		return ip.errorAt(ErrTypeMismatch, node.Token, "%s is not defined for %s", node.Operator, typeName(current))
	}

	op := "+"
	if node.Operator == "--" {
		op = "-"
	}
	one := makeNumber(numKindOf(current), 1, 1, 1)
	stepped, oe := binaryNumeric(op, current, one)
	if oe != nil {
		return ip.errorAt(oe.kind, node.Token, "%s", oe.msg)
	}

	switch env.Assign(node.Operand.Value, stepped) {
	case assignConst:
		return ip.errorAt(ErrConstViolation, node.Operand.Token, "cannot modify constant %q", node.Operand.Value)
	case assignUndefined:
		return ip.errorAt(ErrUndefinedReference, node.Operand.Token, "undefined name %q", node.Operand.Value)
	}
	return current
}

// evalAssignExpression resolves the target location exactly once, so a
// compound assignment's read-modify-write hits one location and target
// subexpression side effects run a single time.
func (ip *Interpreter) evalAssignExpression(node *ast.AssignExpression, env *Environment) Object {
	switch t := node.Target.(type) {
	case *ast.Identifier:
		value := ip.Eval(node.Value, env)
		if isAbort(value) {
			return value
		}
		if node.Operator != "=" {
			current := ip.evalIdentifier(t, env)
			if isAbort(current) {
				return current
			}
			value = ip.binaryOp(node.Operator[:1], current, value, node.Token)
			if isAbort(value) {
				return value
			}
		}
		switch env.Assign(t.Value, value) {
		case assignConst:
			return ip.errorAt(ErrConstViolation, t.Token, "cannot assign to constant %q", t.Value)
		case assignUndefined:
			return ip.errorAt(ErrUndefinedReference, t.Token, "undefined name %q", t.Value)
		}
		return value

	case *ast.MemberExpression:
		obj := ip.Eval(t.Object, env)
		if isAbort(obj) {
			return obj
		}
		value := ip.Eval(node.Value, env)
		if isAbort(value) {
			return value
		}
		if node.Operator != "=" {
			current := ip.readMember(obj, t.Property.Value, t.Property.Token)
			if isAbort(current) {
				return current
			}
			value = ip.binaryOp(node.Operator[:1], current, value, node.Token)
			if isAbort(value) {
				return value
			}
		}
		if errObj := ip.storeMember(obj, t.Property.Value, value, t.Property.Token); errObj != nil {
			return errObj
		}
		return value

	case *ast.IndexExpression:
		container := ip.Eval(t.Left, env)
		if isAbort(container) {
			return container
		}
		index := ip.Eval(t.Index, env)
		if isAbort(index) {
			return index
		}
		value := ip.Eval(node.Value, env)
		if isAbort(value) {
			return value
		}
		if node.Operator != "=" {
			current := ip.readIndex(container, index, t.Token)
			if isAbort(current) {
				return current
			}
			value = ip.binaryOp(node.Operator[:1], current, value, node.Token)
			if isAbort(value) {
				return value
			}
		}
		if errObj := ip.storeIndex(container, index, value, t.Token); errObj != nil {
			return errObj
		}
		return value
	}
	return &Error{ErrKind: ErrTypeMismatch, Message: fmt.Sprintf("invalid assignment target %T", node.Target)}
}

func (ip *Interpreter) storeMember(obj Object, name string, value Object, tok token.Token) *Error {
	switch o := obj.(type) {
	case *Instance:
		// assigning a fresh name (typically from the constructor) defines
		// the field
		if o.Fields.Has(name) {
			o.Fields.Assign(name, value)
		} else {
			o.Fields.Define(name, value, false, typeName(value), false)
		}
		return nil
	case *Class:
		switch o.Statics.Assign(name, value) {
		case assignConst:
			return ip.errorAt(ErrConstViolation, tok, "cannot assign to constant %s.%s", o.Name, name)
		case assignUndefined:
			return ip.errorAt(ErrUndefinedReference, tok, "class %s has no static member %q", o.Name, name)
		}
		return nil
	case *Namespace:
		switch o.Env.Assign(name, value) {
		case assignConst:
			return ip.errorAt(ErrConstViolation, tok, "cannot assign to constant %s.%s", o.Name, name)
		case assignUndefined:
			return ip.errorAt(ErrUndefinedReference, tok, "namespace %s has no member %q", o.Name, name)
		}
		return nil
	case *Map:
		o.Pairs[name] = value
		return nil
	}
	return ip.errorAt(ErrTypeMismatch, tok, "cannot assign member %q on %s", name, typeName(obj))
}

func (ip *Interpreter) storeIndex(container, index, value Object, tok token.Token) *Error {
	switch c := container.(type) {
	case *List:
		if !IsInteger(index) {
			return ip.errorAt(ErrTypeMismatch, tok, "list index must be an integer, got %s", typeName(index))
		}
		i := toInt64(index)
		if i < 0 || i >= int64(len(c.Elements)) {
			return ip.errorAt(ErrTypeMismatch, tok, "list index %d out of range (length %d)", i, len(c.Elements))
		}
		c.Elements[i] = value
		return nil
	case *Map:
		key, ok := index.(*String)
		if !ok {
			return ip.errorAt(ErrTypeMismatch, tok, "map key must be a string, got %s", typeName(index))
		}
		c.Pairs[key.Value] = value
		return nil
	}
	return ip.errorAt(ErrTypeMismatch, tok, "cannot index into %s", typeName(container))
}

func (ip *Interpreter) evalIndexExpression(node *ast.IndexExpression, env *Environment) Object {
	container := ip.Eval(node.Left, env)
	if isAbort(container) {
		return container
	}
	index := ip.Eval(node.Index, env)
	if isAbort(index) {
		return index
	}
	return ip.readIndex(container, index, node.Token)
}

func (ip *Interpreter) readIndex(container, index Object, tok token.Token) Object {
	switch c := container.(type) {
	case *List:
		if !IsInteger(index) {
			return ip.errorAt(ErrTypeMismatch, tok, "list index must be an integer, got %s", typeName(index))
		}
		i := toInt64(index)
		if i < 0 || i >= int64(len(c.Elements)) {
			return ip.errorAt(ErrTypeMismatch, tok, "list index %d out of range (length %d)", i, len(c.Elements))
		}
		return c.Elements[i]
	case *Map:
		key, ok := index.(*String)
		if !ok {
			return ip.errorAt(ErrTypeMismatch, tok, "map key must be a string, got %s", typeName(index))
		}
		v, found := c.Pairs[key.Value]
		if !found {
			return ip.errorAt(ErrUndefinedReference, tok, "map has no key %q", key.Value)
		}
		return v
	case *String:
		if !IsInteger(index) {
			return ip.errorAt(ErrTypeMismatch, tok, "string index must be an integer, got %s", typeName(index))
		}
		i := toInt64(index)
		if i < 0 || i >= int64(len(c.Value)) {
			return ip.errorAt(ErrTypeMismatch, tok, "string index %d out of range (length %d)", i, len(c.Value))
		}
		return &String{Value: string(c.Value[i])}
	}
	return ip.errorAt(ErrTypeMismatch, tok, "cannot index into %s", typeName(container))
}

// readMember dispatches a.b on the kind of a.
func (ip *Interpreter) readMember(obj Object, name string, tok token.Token) Object {
	switch o := obj.(type) {
	case *Instance:
		// a field shadows a method of the same name
		if v, ok := o.Fields.Get(name); ok {
			return v
		}
		if m, ok := o.Class.Methods[name]; ok {
			return &BoundMethod{Receiver: o, Method: m}
		}
		if v, ok := o.Class.Statics.Get(name); ok {
			return v
		}
		return ip.errorAt(ErrUndefinedReference, tok, "%s has no member %q", o.Class.Name, name)
	case *Class:
		if v, ok := o.Statics.Get(name); ok {
			return v
		}
		return ip.errorAt(ErrUndefinedReference, tok, "class %s has no static member %q", o.Name, name)
	case *Enum:
		if m, ok := o.Members[name]; ok {
			return m
		}
		return ip.errorAt(ErrUndefinedReference, tok, "enum %s has no member %q", o.Name, name)
	case *EnumMember:
		switch name {
		case "name":
			return &String{Value: o.Name}
		case "value":
			return &Int{Value: o.Value, NK: NumInt64}
		}
		return ip.errorAt(ErrUndefinedReference, tok, "enum member has no property %q", name)
	case *Namespace:
		if v, ok := o.Env.Get(name); ok {
			return v
		}
		return ip.errorAt(ErrUndefinedReference, tok, "namespace %s has no member %q", o.Name, name)
	case *Map:
		if v, ok := o.Pairs[name]; ok {
			return v
		}
		return ip.errorAt(ErrUndefinedReference, tok, "map has no key %q", name)
	}
	return ip.errorAt(ErrTypeMismatch, tok, "%s has no members", typeName(obj))
}

func (ip *Interpreter) evalCallExpression(node *ast.CallExpression, env *Environment) Object {
	callee := ip.Eval(node.Function, env)
	if isAbort(callee) {
		return callee
	}

	args := make([]Object, 0, len(node.Arguments))
	for _, a := range node.Arguments {
		v := ip.Eval(a, env)
		if isAbort(v) {
			return v
		}
		args = append(args, v)
	}

	pos := Position{
		File:   ip.currentFile(),
		Line:   node.Token.Line,
		Column: node.Token.Column,
		Width:  len(callExprName(node)),
	}

	switch fn := callee.(type) {
	case *Function:
		return ip.callFunction(fn, nil, args, node.Token)
	case *BoundMethod:
		return ip.callFunction(fn.Method, fn.Receiver, args, node.Token)
	case *Builtin:
		ip.pushFrame(fn.Name, node.Token)
		defer ip.popFrame()
		return fn.Fn(ip, pos, args)
	case *External:
		ip.pushFrame(fn.Name, node.Token)
		defer ip.popFrame()
		return ip.callExternal(fn, args, node.Token)
	}
	return ip.errorAt(ErrTypeMismatch, node.Token, "%s is not callable", typeName(callee))
}

func callExprName(node *ast.CallExpression) string {
	switch f := node.Function.(type) {
	case *ast.Identifier:
		return f.Value
	case *ast.MemberExpression:
		return f.Property.Value
	}
	return "<anonymous>"
}

func (ip *Interpreter) pushFrame(name string, tok token.Token) {
	ip.frames = append(ip.frames, Frame{Function: name, File: ip.currentFile(), Line: tok.Line})
}

func (ip *Interpreter) popFrame() {
	ip.frames = ip.frames[:len(ip.frames)-1]
}

// callFunction applies a user function: exact arity, a child of the closure
// environment, `this` bound as a constant for instance calls, parameters
// coerced to their declared widths.
func (ip *Interpreter) callFunction(fn *Function, recv *Instance, args []Object, tok token.Token) Object {
	if len(args) != len(fn.Parameters) {
		return ip.errorAt(ErrArityMismatch, tok, "%s expects %d argument(s), got %d",
			fn.Name, len(fn.Parameters), len(args))
	}
	if ip.depth >= maxCallDepth {
		return ip.errorAt(ErrStackOverflow, tok, "call depth exceeds %d", maxCallDepth)
	}
	ip.depth++
	ip.pushFrame(fn.Name, tok)
	defer func() {
		ip.depth--
		ip.popFrame()
	}()

	callEnv := NewEnclosedEnvironment(fn.Env)
	if recv != nil && !fn.Static {
		callEnv.Define("this", recv, true, recv.Class.Name, false)
	}
	for i, p := range fn.Parameters {
		arg, errObj := ip.coerceDeclared(args[i], p.TypeName, p.IsArray, tok)
		if errObj != nil {
			return errObj
		}
		if !callEnv.Define(p.Name.Value, arg, false, p.TypeName, p.IsArray) {
			return ip.errorAt(ErrRedeclaration, tok, "duplicate parameter %q", p.Name.Value)
		}
	}

	result := ip.evalStatements(fn.Body.Statements, callEnv)
	switch r := result.(type) {
	case *ReturnSignal:
		return r.Value
	case *ThrownSignal:
		return r
	case *Error:
		return r
	case *BreakSignal:
		return ip.errorAt(ErrControlFlowMisuse, tok, "break outside of a loop")
	case *ContinueSignal:
		return ip.errorAt(ErrControlFlowMisuse, tok, "continue outside of a loop")
	}
	return NULL
}

// RenderThrown formats an exception that escaped to top level: the thrown
// value's effective message plus one line per captured call frame. For
// instances the message comes from a getMessage() method or a message
// field, falling back to the plain string form.
func (ip *Interpreter) RenderThrown(ts *ThrownSignal) string {
	var out strings.Builder
	out.WriteString("Unhandled exception: " + ip.thrownMessage(ts.Value) + "\n")
	for i := len(ts.Trace) - 1; i >= 0; i-- {
		out.WriteString("  " + ts.Trace[i].String() + "\n")
	}
	return out.String()
}

func (ip *Interpreter) thrownMessage(v Object) string {
	inst, ok := v.(*Instance)
	if !ok {
		return v.Inspect()
	}
	if m, found := inst.Class.Methods["getMessage"]; found && len(m.Parameters) == 0 {
		result := ip.callFunction(m, inst, nil, token.Token{})
		if !isSignal(result) {
			return result.Inspect()
		}
	}
	if f, found := inst.Fields.Get("message"); found {
		return f.Inspect()
	}
	return v.Inspect()
}

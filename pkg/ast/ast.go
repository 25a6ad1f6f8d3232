package ast

import (
	"bytes"
	"strings"

	"github.com/sable-lang/sable/pkg/token"
)

type Node interface {
	TokenLiteral() string
	String() string
}

type Statement interface {
	Node
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
}

type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out bytes.Buffer
	for _, s := range p.Statements {
		out.WriteString(s.String())
	}
	return out.String()
}

// Statements

// VarDecl is `<type> name = expr;` with optional const and array markers.
// TypeName is the spelled declaration type ("var" requests inference); it is
// carried into the variable slot as an informational tag.
type VarDecl struct {
	Token    token.Token // the type token
	TypeName string
	IsArray  bool
	Const    bool
	Name     *Identifier
	Value    Expression // may be nil
}

func (vd *VarDecl) statementNode()       {}
func (vd *VarDecl) TokenLiteral() string { return vd.Token.Literal }
func (vd *VarDecl) String() string {
	var out bytes.Buffer
	if vd.Const {
		out.WriteString("const ")
	}
	out.WriteString(vd.TypeName)
	if vd.IsArray {
		out.WriteString("[]")
	}
	out.WriteString(" " + vd.Name.String())
	if vd.Value != nil {
		out.WriteString(" = " + vd.Value.String())
	}
	out.WriteString(";")
	return out.String()
}

type Param struct {
	TypeName string
	IsArray  bool
	Name     *Identifier
}

func (p *Param) String() string {
	s := p.TypeName
	if p.IsArray {
		s += "[]"
	}
	return s + " " + p.Name.String()
}

// FunctionDecl is `<ret-type> name(params) { body }`. Static is only set for
// class methods.
type FunctionDecl struct {
	Token      token.Token // the return type token
	ReturnType string
	Name       *Identifier
	Parameters []*Param
	Body       *BlockStatement
	Static     bool
}

func (fd *FunctionDecl) statementNode()       {}
func (fd *FunctionDecl) TokenLiteral() string { return fd.Token.Literal }
func (fd *FunctionDecl) String() string {
	var out bytes.Buffer
	if fd.Static {
		out.WriteString("static ")
	}
	out.WriteString(fd.ReturnType + " " + fd.Name.String() + "(")
	params := []string{}
	for _, p := range fd.Parameters {
		params = append(params, p.String())
	}
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(") ")
	out.WriteString(fd.Body.String())
	return out.String()
}

type BlockStatement struct {
	Token      token.Token // '{'
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for _, s := range bs.Statements {
		out.WriteString(s.String() + " ")
	}
	out.WriteString("}")
	return out.String()
}

type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String() + ";"
	}
	return ";"
}

type IfStatement struct {
	Token       token.Token // 'if'
	Condition   Expression
	Consequence *BlockStatement
	Alternative Statement // *BlockStatement or *IfStatement (else-if), may be nil
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Literal }
func (is *IfStatement) String() string {
	var out bytes.Buffer
	out.WriteString("if (" + is.Condition.String() + ") " + is.Consequence.String())
	if is.Alternative != nil {
		out.WriteString(" else " + is.Alternative.String())
	}
	return out.String()
}

type WhileStatement struct {
	Token     token.Token // 'while'
	Condition Expression
	Body      *BlockStatement
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Literal }
func (ws *WhileStatement) String() string {
	return "while (" + ws.Condition.String() + ") " + ws.Body.String()
}

type DoWhileStatement struct {
	Token     token.Token // 'do'
	Body      *BlockStatement
	Condition Expression
}

func (dw *DoWhileStatement) statementNode()       {}
func (dw *DoWhileStatement) TokenLiteral() string { return dw.Token.Literal }
func (dw *DoWhileStatement) String() string {
	return "do " + dw.Body.String() + " while (" + dw.Condition.String() + ");"
}

// ForStatement is the C-style loop. Init and Post may be nil; Cond defaults
// to true when nil.
type ForStatement struct {
	Token token.Token // 'for'
	Init  Statement
	Cond  Expression
	Post  Statement
	Body  *BlockStatement
}

func (fs *ForStatement) statementNode()       {}
func (fs *ForStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *ForStatement) String() string {
	var out bytes.Buffer
	out.WriteString("for (")
	if fs.Init != nil {
		out.WriteString(fs.Init.String())
	} else {
		out.WriteString(";")
	}
	out.WriteString(" ")
	if fs.Cond != nil {
		out.WriteString(fs.Cond.String())
	}
	out.WriteString("; ")
	if fs.Post != nil {
		out.WriteString(strings.TrimSuffix(fs.Post.String(), ";"))
	}
	out.WriteString(") " + fs.Body.String())
	return out.String()
}

type ForeachStatement struct {
	Token    token.Token // 'foreach'
	Name     *Identifier
	Iterable Expression
	Body     *BlockStatement
}

func (fe *ForeachStatement) statementNode()       {}
func (fe *ForeachStatement) TokenLiteral() string { return fe.Token.Literal }
func (fe *ForeachStatement) String() string {
	return "foreach (" + fe.Name.String() + " in " + fe.Iterable.String() + ") " + fe.Body.String()
}

// CaseClause with a nil Values slice is the default label.
type CaseClause struct {
	Token  token.Token // 'case' or 'default'
	Values []Expression
	Body   []Statement
}

type SwitchStatement struct {
	Token token.Token // 'switch'
	Value Expression
	Cases []*CaseClause
}

func (ss *SwitchStatement) statementNode()       {}
func (ss *SwitchStatement) TokenLiteral() string { return ss.Token.Literal }
func (ss *SwitchStatement) String() string {
	var out bytes.Buffer
	out.WriteString("switch (" + ss.Value.String() + ") { ")
	for _, c := range ss.Cases {
		if c.Values == nil {
			out.WriteString("default: ")
		} else {
			vals := []string{}
			for _, v := range c.Values {
				vals = append(vals, v.String())
			}
			out.WriteString("case " + strings.Join(vals, ", ") + ": ")
		}
		for _, s := range c.Body {
			out.WriteString(s.String() + " ")
		}
	}
	out.WriteString("}")
	return out.String()
}

type BreakStatement struct {
	Token token.Token
}

func (bs *BreakStatement) statementNode()       {}
func (bs *BreakStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BreakStatement) String() string       { return "break;" }

type ContinueStatement struct {
	Token token.Token
}

func (cs *ContinueStatement) statementNode()       {}
func (cs *ContinueStatement) TokenLiteral() string { return cs.Token.Literal }
func (cs *ContinueStatement) String() string       { return "continue;" }

type ReturnStatement struct {
	Token       token.Token // 'return'
	ReturnValue Expression  // may be nil
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReturnStatement) String() string {
	if rs.ReturnValue != nil {
		return "return " + rs.ReturnValue.String() + ";"
	}
	return "return;"
}

type ThrowStatement struct {
	Token token.Token // 'throw'
	Value Expression
}

func (ts *ThrowStatement) statementNode()       {}
func (ts *ThrowStatement) TokenLiteral() string { return ts.Token.Literal }
func (ts *ThrowStatement) String() string       { return "throw " + ts.Value.String() + ";" }

type TryStatement struct {
	Token      token.Token // 'try'
	Try        *BlockStatement
	CatchParam *Identifier     // nil when no catch clause
	Catch      *BlockStatement // nil when no catch clause
	Finally    *BlockStatement // nil when no finally clause
}

func (ts *TryStatement) statementNode()       {}
func (ts *TryStatement) TokenLiteral() string { return ts.Token.Literal }
func (ts *TryStatement) String() string {
	var out bytes.Buffer
	out.WriteString("try " + ts.Try.String())
	if ts.Catch != nil {
		out.WriteString(" catch (" + ts.CatchParam.String() + ") " + ts.Catch.String())
	}
	if ts.Finally != nil {
		out.WriteString(" finally " + ts.Finally.String())
	}
	return out.String()
}

// FieldDecl is one class field with its access modifier kept as metadata.
type FieldDecl struct {
	Token    token.Token
	Private  bool
	Static   bool
	TypeName string
	IsArray  bool
	Name     *Identifier
	Value    Expression // may be nil
}

func (fd *FieldDecl) String() string {
	var out bytes.Buffer
	if fd.Private {
		out.WriteString("private ")
	} else {
		out.WriteString("public ")
	}
	if fd.Static {
		out.WriteString("static ")
	}
	out.WriteString(fd.TypeName + " " + fd.Name.String())
	if fd.Value != nil {
		out.WriteString(" = " + fd.Value.String())
	}
	out.WriteString(";")
	return out.String()
}

type ClassDecl struct {
	Token       token.Token // 'class'
	Name        *Identifier
	Fields      []*FieldDecl
	Methods     []*FunctionDecl
	Constructor *FunctionDecl // may be nil
	Destructor  *FunctionDecl // may be nil
}

func (cd *ClassDecl) statementNode()       {}
func (cd *ClassDecl) TokenLiteral() string { return cd.Token.Literal }
func (cd *ClassDecl) String() string {
	var out bytes.Buffer
	out.WriteString("class " + cd.Name.String() + " { ")
	for _, f := range cd.Fields {
		out.WriteString(f.String() + " ")
	}
	if cd.Constructor != nil {
		out.WriteString(cd.Constructor.String() + " ")
	}
	if cd.Destructor != nil {
		out.WriteString("~" + cd.Destructor.String() + " ")
	}
	for _, m := range cd.Methods {
		out.WriteString(m.String() + " ")
	}
	out.WriteString("}")
	return out.String()
}

type EnumMemberDecl struct {
	Name  *Identifier
	Value Expression // may be nil; auto-increments from the previous member
}

type EnumDecl struct {
	Token   token.Token // 'enum'
	Name    *Identifier
	Members []*EnumMemberDecl
}

func (ed *EnumDecl) statementNode()       {}
func (ed *EnumDecl) TokenLiteral() string { return ed.Token.Literal }
func (ed *EnumDecl) String() string {
	var out bytes.Buffer
	out.WriteString("enum " + ed.Name.String() + " { ")
	for i, m := range ed.Members {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(m.Name.String())
		if m.Value != nil {
			out.WriteString(" = " + m.Value.String())
		}
	}
	out.WriteString(" }")
	return out.String()
}

type NamespaceDecl struct {
	Token token.Token // 'namespace'
	Name  *Identifier
	Body  *BlockStatement
}

func (nd *NamespaceDecl) statementNode()       {}
func (nd *NamespaceDecl) TokenLiteral() string { return nd.Token.Literal }
func (nd *NamespaceDecl) String() string {
	return "namespace " + nd.Name.String() + " " + nd.Body.String()
}

type ImportStatement struct {
	Token token.Token // 'import'
	Path  *StringLiteral
}

func (is *ImportStatement) statementNode()       {}
func (is *ImportStatement) TokenLiteral() string { return is.Token.Literal }
func (is *ImportStatement) String() string       { return "import " + is.Path.String() + ";" }

type LinkStatement struct {
	Token token.Token // 'link'
	Path  *StringLiteral
}

func (ls *LinkStatement) statementNode()       {}
func (ls *LinkStatement) TokenLiteral() string { return ls.Token.Literal }
func (ls *LinkStatement) String() string       { return "link " + ls.Path.String() + ";" }

// ExternalDecl binds a native symbol from the most recently linked library.
type ExternalDecl struct {
	Token      token.Token // 'external'
	ReturnType string
	Name       *Identifier
	Parameters []*Param
}

func (ed *ExternalDecl) statementNode()       {}
func (ed *ExternalDecl) TokenLiteral() string { return ed.Token.Literal }
func (ed *ExternalDecl) String() string {
	params := []string{}
	for _, p := range ed.Parameters {
		params = append(params, p.String())
	}
	return "external " + ed.ReturnType + " " + ed.Name.String() + "(" + strings.Join(params, ", ") + ");"
}

// Expressions

type Identifier struct {
	Token token.Token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Value }

// IntegerLiteral records the signed-64 parse or, when that overflowed, the
// unsigned-64 fallback.
type IntegerLiteral struct {
	Token    token.Token
	Value    int64
	UValue   uint64
	Unsigned bool
}

func (il *IntegerLiteral) expressionNode()      {}
func (il *IntegerLiteral) TokenLiteral() string { return il.Token.Literal }
func (il *IntegerLiteral) String() string       { return il.Token.Literal }

type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (fl *FloatLiteral) expressionNode()      {}
func (fl *FloatLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FloatLiteral) String() string       { return fl.Token.Literal }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) String() string       { return "\"" + sl.Value + "\"" }

type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()      {}
func (bl *BooleanLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BooleanLiteral) String() string       { return bl.Token.Literal }

type NullLiteral struct {
	Token token.Token
}

func (nl *NullLiteral) expressionNode()      {}
func (nl *NullLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NullLiteral) String() string       { return "null" }

type ListLiteral struct {
	Token    token.Token // '['
	Elements []Expression
}

func (ll *ListLiteral) expressionNode()      {}
func (ll *ListLiteral) TokenLiteral() string { return ll.Token.Literal }
func (ll *ListLiteral) String() string {
	elems := []string{}
	for _, e := range ll.Elements {
		elems = append(elems, e.String())
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

type MapPair struct {
	Key   Expression
	Value Expression
}

type MapLiteral struct {
	Token token.Token // '{'
	Pairs []MapPair
}

func (ml *MapLiteral) expressionNode()      {}
func (ml *MapLiteral) TokenLiteral() string { return ml.Token.Literal }
func (ml *MapLiteral) String() string {
	pairs := []string{}
	for _, p := range ml.Pairs {
		pairs = append(pairs, p.Key.String()+": "+p.Value.String())
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

type PrefixExpression struct {
	Token    token.Token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}

type InfixExpression struct {
	Token    token.Token // the operator token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// PostfixExpression is `name++` / `name--`; only simple variables are legal
// operands, which the parser already guarantees.
type PostfixExpression struct {
	Token    token.Token // the operator token
	Operand  *Identifier
	Operator string
}

func (pe *PostfixExpression) expressionNode()      {}
func (pe *PostfixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PostfixExpression) String() string {
	return "(" + pe.Operand.String() + pe.Operator + ")"
}

// AssignExpression covers `=` and the compound operators; Target is an
// identifier, member expression, or index expression.
type AssignExpression struct {
	Token    token.Token // the operator token
	Target   Expression
	Operator string
	Value    Expression
}

func (ae *AssignExpression) expressionNode()      {}
func (ae *AssignExpression) TokenLiteral() string { return ae.Token.Literal }
func (ae *AssignExpression) String() string {
	return ae.Target.String() + " " + ae.Operator + " " + ae.Value.String()
}

type IndexExpression struct {
	Token token.Token // '['
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IndexExpression) String() string {
	return "(" + ie.Left.String() + "[" + ie.Index.String() + "])"
}

type MemberExpression struct {
	Token    token.Token // '.'
	Object   Expression
	Property *Identifier
}

func (me *MemberExpression) expressionNode()      {}
func (me *MemberExpression) TokenLiteral() string { return me.Token.Literal }
func (me *MemberExpression) String() string {
	return me.Object.String() + "." + me.Property.String()
}

type CallExpression struct {
	Token     token.Token // the '(' marking the call site, used for stack traces
	Function  Expression
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) String() string {
	args := []string{}
	for _, a := range ce.Arguments {
		args = append(args, a.String())
	}
	return ce.Function.String() + "(" + strings.Join(args, ", ") + ")"
}

// NewExpression constructs a class instance; Class is an identifier or a
// namespace-qualified member expression.
type NewExpression struct {
	Token     token.Token // 'new'
	Class     Expression
	Arguments []Expression
}

func (ne *NewExpression) expressionNode()      {}
func (ne *NewExpression) TokenLiteral() string { return ne.Token.Literal }
func (ne *NewExpression) String() string {
	args := []string{}
	for _, a := range ne.Arguments {
		args = append(args, a.String())
	}
	return "new " + ne.Class.String() + "(" + strings.Join(args, ", ") + ")"
}

package token

import "fmt"

type TokenType string

const (
	// Special
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers & Literals
	IDENT     = "IDENT"
	INT       = "INT"
	FLOAT     = "FLOAT"
	STRING    = "STRING"
	RAWSTRING = "RAWSTRING" // backtick-delimited

	// Operators
	ASSIGN      = "="
	PLUS        = "+"
	MINUS       = "-"
	BANG        = "!"
	ASTERISK    = "*"
	SLASH       = "/"
	PERCENT     = "%"
	PLUS_EQ     = "+="
	MINUS_EQ    = "-="
	STAR_EQ     = "*="
	SLASH_EQ    = "/="
	PLUS_PLUS   = "++"
	MINUS_MINUS = "--"

	LT     = "<"
	GT     = ">"
	EQ     = "=="
	NOT_EQ = "!="
	LTE    = "<="
	GTE    = ">="
	AND    = "&&"
	OR     = "||"

	// Delimiters
	COMMA     = ","
	SEMICOLON = ";"
	COLON     = ":"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	LBRACKET  = "["
	RBRACKET  = "]"
	DOT       = "."
	TILDE     = "~"

	// Keywords
	IF        = "IF"
	ELSE      = "ELSE"
	WHILE     = "WHILE"
	DO        = "DO"
	FOR       = "FOR"
	FOREACH   = "FOREACH"
	IN        = "IN"
	SWITCH    = "SWITCH"
	CASE      = "CASE"
	DEFAULT   = "DEFAULT"
	BREAK     = "BREAK"
	CONTINUE  = "CONTINUE"
	RETURN    = "RETURN"
	TRY       = "TRY"
	CATCH     = "CATCH"
	FINALLY   = "FINALLY"
	THROW     = "THROW"
	CLASS     = "CLASS"
	NEW       = "NEW"
	ENUM      = "ENUM"
	NAMESPACE = "NAMESPACE"
	IMPORT    = "IMPORT"
	LINK      = "LINK"
	EXTERNAL  = "EXTERNAL"
	CONST     = "CONST"
	STATIC    = "STATIC"
	PUBLIC    = "PUBLIC"
	PRIVATE   = "PRIVATE"
	TRUE      = "TRUE"
	FALSE     = "FALSE"
	NULL      = "NULL"

	// Declaration type keywords lex as a single TYPE token; the spelled
	// name survives in the literal.
	TYPE = "TYPE"
)

// Token carries its source position so the evaluator can build call frames
// and caret-underlined diagnostics without consulting the lexer again.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q, %d:%d)", t.Type, t.Literal, t.Line, t.Column)
}

var keywords = map[string]TokenType{
	"if":        IF,
	"else":      ELSE,
	"while":     WHILE,
	"do":        DO,
	"for":       FOR,
	"foreach":   FOREACH,
	"in":        IN,
	"switch":    SWITCH,
	"case":      CASE,
	"default":   DEFAULT,
	"break":     BREAK,
	"continue":  CONTINUE,
	"return":    RETURN,
	"try":       TRY,
	"catch":     CATCH,
	"finally":   FINALLY,
	"throw":     THROW,
	"class":     CLASS,
	"new":       NEW,
	"enum":      ENUM,
	"namespace": NAMESPACE,
	"import":    IMPORT,
	"link":      LINK,
	"external":  EXTERNAL,
	"const":     CONST,
	"static":    STATIC,
	"public":    PUBLIC,
	"private":   PRIVATE,
	"true":      TRUE,
	"false":     FALSE,
	"null":      NULL,
}

// "void" is only meaningful as a function return type; "var" requests
// inference from the initializer.
var typeNames = map[string]bool{
	"int8": true, "int16": true, "int32": true, "int64": true,
	"uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"float32": true, "float64": true,
	"int": true, "uint": true, "float": true,
	"bool": true, "string": true, "handle": true, "var": true, "void": true,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	if typeNames[ident] {
		return TYPE
	}
	return IDENT
}

// IsTypeName reports whether a literal names a declaration type.
func IsTypeName(lit string) bool { return typeNames[lit] }

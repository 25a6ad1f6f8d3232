package lexer

import (
	"testing"

	"github.com/sable-lang/sable/pkg/token"
)

func TestNextToken(t *testing.T) {
	input := `const int32 x = 5;
float64 half = 0.5;
if (x >= 5 && x != 10) {
	x += 1;
	x++;
}
var mask = 0xFF;
// line comment
/* block
   comment */
class Point { ~Point() { } }
`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.CONST, "const"},
		{token.TYPE, "int32"},
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.INT, "5"},
		{token.SEMICOLON, ";"},
		{token.TYPE, "float64"},
		{token.IDENT, "half"},
		{token.ASSIGN, "="},
		{token.FLOAT, "0.5"},
		{token.SEMICOLON, ";"},
		{token.IF, "if"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.GTE, ">="},
		{token.INT, "5"},
		{token.AND, "&&"},
		{token.IDENT, "x"},
		{token.NOT_EQ, "!="},
		{token.INT, "10"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.IDENT, "x"},
		{token.PLUS_EQ, "+="},
		{token.INT, "1"},
		{token.SEMICOLON, ";"},
		{token.IDENT, "x"},
		{token.PLUS_PLUS, "++"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.TYPE, "var"},
		{token.IDENT, "mask"},
		{token.ASSIGN, "="},
		{token.INT, "0xFF"},
		{token.SEMICOLON, ";"},
		{token.CLASS, "class"},
		{token.IDENT, "Point"},
		{token.LBRACE, "{"},
		{token.TILDE, "~"},
		{token.IDENT, "Point"},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RBRACE, "}"},
		{token.RBRACE, "}"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - wrong type. expected=%q, got=%q (%q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - wrong literal. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"quote \" done"`, `quote " done`},
		{`"back\\slash"`, `back\slash`},
		{`"cr\r"`, "cr\r"},
	}
	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Type != token.STRING {
			t.Fatalf("%s: type = %q, want STRING", tt.input, tok.Type)
		}
		if tok.Literal != tt.want {
			t.Errorf("%s: literal = %q, want %q", tt.input, tok.Literal, tt.want)
		}
	}
}

func TestStringErrors(t *testing.T) {
	for _, input := range []string{`"unterminated`, `"bad \q escape"`, "\"newline\nin string\""} {
		tok := New(input).NextToken()
		if tok.Type != token.ILLEGAL {
			t.Errorf("%q: type = %q, want ILLEGAL", input, tok.Type)
		}
	}
}

func TestRawString(t *testing.T) {
	tok := New("`a``b`").NextToken()
	if tok.Type != token.RAWSTRING {
		t.Fatalf("type = %q, want RAWSTRING", tok.Type)
	}
	if tok.Literal != "a`b" {
		t.Errorf("literal = %q, want %q", tok.Literal, "a`b")
	}

	tok = New("`multi\nline`").NextToken()
	if tok.Type != token.RAWSTRING || tok.Literal != "multi\nline" {
		t.Errorf("multiline raw string lexed wrong: %q %q", tok.Type, tok.Literal)
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input   string
		typ     token.TokenType
		literal string
	}{
		{"42", token.INT, "42"},
		{"0xDEAD", token.INT, "0xDEAD"},
		{"3.14", token.FLOAT, "3.14"},
		{"1e9", token.FLOAT, "1e9"},
		{"2.5e-3", token.FLOAT, "2.5e-3"},
	}
	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Type != tt.typ || tok.Literal != tt.literal {
			t.Errorf("%q: got (%q, %q), want (%q, %q)", tt.input, tok.Type, tok.Literal, tt.typ, tt.literal)
		}
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	l := New("a\n  bb")
	first := l.NextToken()
	second := l.NextToken()
	if first.Line != 1 {
		t.Errorf("first token line = %d, want 1", first.Line)
	}
	if second.Line != 2 || second.Column != 3 {
		t.Errorf("second token at %d:%d, want 2:3", second.Line, second.Column)
	}
}

func TestLoneAmpersandIsIllegal(t *testing.T) {
	tok := New("&x").NextToken()
	if tok.Type != token.ILLEGAL {
		t.Errorf("lone & should be ILLEGAL, got %q", tok.Type)
	}
}

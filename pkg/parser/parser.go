package parser

import (
	"fmt"
	"strconv"

	"github.com/sable-lang/sable/pkg/ast"
	"github.com/sable-lang/sable/pkg/lexer"
	"github.com/sable-lang/sable/pkg/token"
)

const (
	_ int = iota
	LOWEST
	ASSIGNP     // = += -= *= /=
	LOGICOR     // ||
	LOGICAND    // &&
	EQUALS      // == !=
	LESSGREATER // < > <= >=
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -x !x
	POSTFIX     // x++ x--
	CALL        // fn(x) a[i] a.b
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:      ASSIGNP,
	token.PLUS_EQ:     ASSIGNP,
	token.MINUS_EQ:    ASSIGNP,
	token.STAR_EQ:     ASSIGNP,
	token.SLASH_EQ:    ASSIGNP,
	token.OR:          LOGICOR,
	token.AND:         LOGICAND,
	token.EQ:          EQUALS,
	token.NOT_EQ:      EQUALS,
	token.LT:          LESSGREATER,
	token.GT:          LESSGREATER,
	token.LTE:         LESSGREATER,
	token.GTE:         LESSGREATER,
	token.PLUS:        SUM,
	token.MINUS:       SUM,
	token.ASTERISK:    PRODUCT,
	token.SLASH:       PRODUCT,
	token.PERCENT:     PRODUCT,
	token.PLUS_PLUS:   POSTFIX,
	token.MINUS_MINUS: POSTFIX,
	token.LPAREN:      CALL,
	token.LBRACKET:    CALL,
	token.DOT:         CALL,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	l      *lexer.Lexer
	errors []string

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l, errors: []string{}}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.RAWSTRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBooleanLiteral)
	p.registerPrefix(token.FALSE, p.parseBooleanLiteral)
	p.registerPrefix(token.NULL, p.parseNullLiteral)
	p.registerPrefix(token.BANG, p.parsePrefixExpression)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.LBRACKET, p.parseListLiteral)
	p.registerPrefix(token.LBRACE, p.parseMapLiteral)
	p.registerPrefix(token.NEW, p.parseNewExpression)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for _, tt := range []token.TokenType{
		token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.PERCENT,
		token.EQ, token.NOT_EQ, token.LT, token.GT, token.LTE, token.GTE,
		token.AND, token.OR,
	} {
		p.registerInfix(tt, p.parseInfixExpression)
	}
	for _, tt := range []token.TokenType{
		token.ASSIGN, token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ,
	} {
		p.registerInfix(tt, p.parseAssignExpression)
	}
	p.registerInfix(token.PLUS_PLUS, p.parsePostfixExpression)
	p.registerInfix(token.MINUS_MINUS, p.parsePostfixExpression)
	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.LBRACKET, p.parseIndexExpression)
	p.registerInfix(token.DOT, p.parseMemberExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) registerPrefix(tt token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tt] = fn
}

func (p *Parser) registerInfix(tt token.TokenType, fn infixParseFn) {
	p.infixParseFns[tt] = fn
}

func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	p.errors = append(p.errors, fmt.Sprintf("line %d: %s", p.curToken.Line, msg))
}

func (p *Parser) peekError(tt token.TokenType) {
	p.errors = append(p.errors, fmt.Sprintf("line %d: expected next token to be %s, got %s (%q)",
		p.peekToken.Line, tt, p.peekToken.Type, p.peekToken.Literal))
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(tt token.TokenType) bool  { return p.curToken.Type == tt }
func (p *Parser) peekTokenIs(tt token.TokenType) bool { return p.peekToken.Type == tt }

func (p *Parser) expectPeek(tt token.TokenType) bool {
	if p.peekTokenIs(tt) {
		p.nextToken()
		return true
	}
	p.peekError(tt)
	return false
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{Statements: []ast.Statement{}}
	for !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}
	return program
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.CONST:
		return p.parseConstDecl()
	case token.TYPE:
		return p.parseTypedDecl(false, false)
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.DO:
		return p.parseDoWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.FOREACH:
		return p.parseForeachStatement()
	case token.SWITCH:
		return p.parseSwitchStatement()
	case token.BREAK:
		stmt := &ast.BreakStatement{Token: p.curToken}
		p.skipSemicolon()
		return stmt
	case token.CONTINUE:
		stmt := &ast.ContinueStatement{Token: p.curToken}
		p.skipSemicolon()
		return stmt
	case token.RETURN:
		return p.parseReturnStatement()
	case token.THROW:
		return p.parseThrowStatement()
	case token.TRY:
		return p.parseTryStatement()
	case token.CLASS:
		return p.parseClassDecl()
	case token.ENUM:
		return p.parseEnumDecl()
	case token.NAMESPACE:
		return p.parseNamespaceDecl()
	case token.IMPORT:
		return p.parseImportStatement()
	case token.LINK:
		return p.parseLinkStatement()
	case token.EXTERNAL:
		return p.parseExternalDecl()
	case token.SEMICOLON:
		return nil
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) skipSemicolon() {
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
}

func (p *Parser) parseConstDecl() ast.Statement {
	if !p.expectPeek(token.TYPE) {
		return nil
	}
	return p.parseTypedDecl(true, false)
}

// parseTypedDecl handles everything that starts with a type keyword:
// variable declarations, and function declarations when varOnly is false.
// curToken is the TYPE token on entry.
func (p *Parser) parseTypedDecl(isConst, varOnly bool) ast.Statement {
	typeTok := p.curToken
	typeName := p.curToken.Literal
	isArray := false

	if p.peekTokenIs(token.LBRACKET) {
		p.nextToken()
		if !p.expectPeek(token.RBRACKET) {
			return nil
		}
		isArray = true
	}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if !varOnly && !isArray && p.peekTokenIs(token.LPAREN) {
		if isConst {
			p.errorf("const cannot modify a function declaration")
			return nil
		}
		return p.parseFunctionRest(typeTok, typeName, name)
	}

	decl := &ast.VarDecl{
		Token:    typeTok,
		TypeName: typeName,
		IsArray:  isArray,
		Const:    isConst,
		Name:     name,
	}
	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		decl.Value = p.parseExpression(LOWEST)
	} else if isConst {
		p.errorf("const declaration of %q requires an initializer", name.Value)
	}
	p.skipSemicolon()
	return decl
}

// parseFunctionRest continues after `<type> name` once '(' is known to follow.
func (p *Parser) parseFunctionRest(typeTok token.Token, returnType string, name *ast.Identifier) ast.Statement {
	fn := &ast.FunctionDecl{Token: typeTok, ReturnType: returnType, Name: name}
	p.nextToken() // onto '('
	fn.Parameters = p.parseParams()
	if fn.Parameters == nil {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	fn.Body = p.parseBlockStatement()
	return fn
}

// parseParams parses a typed parameter list; curToken is '(' on entry and
// ')' on exit. Returns a non-nil (possibly empty) slice on success.
func (p *Parser) parseParams() []*ast.Param {
	params := []*ast.Param{}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}
	for {
		if !p.expectPeek(token.TYPE) {
			return nil
		}
		param := &ast.Param{TypeName: p.curToken.Literal}
		if param.TypeName == "void" {
			p.errorf("void is not a valid parameter type")
		}
		if p.peekTokenIs(token.LBRACKET) {
			p.nextToken()
			if !p.expectPeek(token.RBRACKET) {
				return nil
			}
			param.IsArray = true
		}
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		param.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
		params = append(params, param)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return params
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken, Statements: []ast.Statement{}}
	p.nextToken()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	if p.curTokenIs(token.EOF) {
		p.errors = append(p.errors, "unexpected end of input, expected }")
	}
	return block
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Consequence = p.parseBlockStatement()

	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		if p.peekTokenIs(token.IF) {
			p.nextToken()
			stmt.Alternative = p.parseIfStatement()
		} else {
			if !p.expectPeek(token.LBRACE) {
				return nil
			}
			stmt.Alternative = p.parseBlockStatement()
		}
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseDoWhileStatement() ast.Statement {
	stmt := &ast.DoWhileStatement{Token: p.curToken}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	if !p.expectPeek(token.WHILE) {
		return nil
	}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	stmt := &ast.ForStatement{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}

	p.nextToken()
	if !p.curTokenIs(token.SEMICOLON) {
		switch p.curToken.Type {
		case token.TYPE:
			stmt.Init = p.parseTypedDecl(false, true)
		case token.CONST:
			stmt.Init = p.parseConstDecl()
		default:
			stmt.Init = p.parseExpressionStatement()
		}
		if !p.curTokenIs(token.SEMICOLON) && !p.expectPeek(token.SEMICOLON) {
			return nil
		}
	}

	p.nextToken()
	if !p.curTokenIs(token.SEMICOLON) {
		stmt.Cond = p.parseExpression(LOWEST)
		if !p.expectPeek(token.SEMICOLON) {
			return nil
		}
	}

	if !p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		post := &ast.ExpressionStatement{Token: p.curToken}
		post.Expression = p.parseExpression(LOWEST)
		stmt.Post = post
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseForeachStatement() ast.Statement {
	stmt := &ast.ForeachStatement{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	// an optional element type annotation is accepted and ignored
	if p.peekTokenIs(token.TYPE) {
		p.nextToken()
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if !p.expectPeek(token.IN) {
		return nil
	}
	p.nextToken()
	stmt.Iterable = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseSwitchStatement() ast.Statement {
	stmt := &ast.SwitchStatement{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}

	sawDefault := false
	p.nextToken()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		clause := &ast.CaseClause{Token: p.curToken}
		switch p.curToken.Type {
		case token.CASE:
			p.nextToken()
			clause.Values = []ast.Expression{p.parseExpression(LOWEST)}
			if !p.expectPeek(token.COLON) {
				return nil
			}
		case token.DEFAULT:
			if sawDefault {
				p.errorf("duplicate default clause in switch")
			}
			sawDefault = true
			if !p.expectPeek(token.COLON) {
				return nil
			}
		default:
			p.errorf("expected case or default inside switch, got %q", p.curToken.Literal)
			return nil
		}

		p.nextToken()
		for !p.curTokenIs(token.CASE) && !p.curTokenIs(token.DEFAULT) &&
			!p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
			s := p.parseStatement()
			if s != nil {
				clause.Body = append(clause.Body, s)
			}
			p.nextToken()
		}
		stmt.Cases = append(stmt.Cases, clause)
	}
	if p.curTokenIs(token.EOF) {
		p.errors = append(p.errors, "unexpected end of input, expected }")
	}
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStatement{Token: p.curToken}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return stmt
	}
	if p.peekTokenIs(token.RBRACE) {
		return stmt
	}
	p.nextToken()
	stmt.ReturnValue = p.parseExpression(LOWEST)
	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseThrowStatement() ast.Statement {
	stmt := &ast.ThrowStatement{Token: p.curToken}
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseTryStatement() ast.Statement {
	stmt := &ast.TryStatement{Token: p.curToken}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Try = p.parseBlockStatement()

	if p.peekTokenIs(token.CATCH) {
		p.nextToken()
		if !p.expectPeek(token.LPAREN) {
			return nil
		}
		// an optional type annotation on the catch variable is accepted
		if p.peekTokenIs(token.TYPE) {
			p.nextToken()
		}
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		stmt.CatchParam = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		if !p.expectPeek(token.LBRACE) {
			return nil
		}
		stmt.Catch = p.parseBlockStatement()
	}

	if p.peekTokenIs(token.FINALLY) {
		p.nextToken()
		if !p.expectPeek(token.LBRACE) {
			return nil
		}
		stmt.Finally = p.parseBlockStatement()
	}

	if stmt.Catch == nil && stmt.Finally == nil {
		p.errorf("try requires a catch or finally clause")
	}
	return stmt
}

func (p *Parser) parseClassDecl() ast.Statement {
	decl := &ast.ClassDecl{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	decl.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}

	p.nextToken()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		if !p.parseClassMember(decl) {
			return nil
		}
		p.nextToken()
	}
	if p.curTokenIs(token.EOF) {
		p.errors = append(p.errors, "unexpected end of input, expected }")
	}
	return decl
}

func (p *Parser) parseClassMember(decl *ast.ClassDecl) bool {
	private := false
	static := false
	for {
		switch p.curToken.Type {
		case token.PUBLIC:
			p.nextToken()
			continue
		case token.PRIVATE:
			private = true
			p.nextToken()
			continue
		case token.STATIC:
			static = true
			p.nextToken()
			continue
		}
		break
	}

	switch {
	case p.curTokenIs(token.TILDE):
		// destructor: ~Name() { ... }
		tok := p.curToken
		if !p.expectPeek(token.IDENT) {
			return false
		}
		if p.curToken.Literal != decl.Name.Value {
			p.errorf("destructor name %q does not match class %q", p.curToken.Literal, decl.Name.Value)
		}
		name := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
		if !p.expectPeek(token.LPAREN) {
			return false
		}
		if !p.expectPeek(token.RPAREN) {
			p.errorf("destructor takes no parameters")
			return false
		}
		if !p.expectPeek(token.LBRACE) {
			return false
		}
		body := p.parseBlockStatement()
		if decl.Destructor != nil {
			p.errorf("class %q already has a destructor", decl.Name.Value)
		}
		decl.Destructor = &ast.FunctionDecl{Token: tok, ReturnType: "void", Name: name, Body: body}
		return true

	case p.curTokenIs(token.IDENT) && p.curToken.Literal == decl.Name.Value && p.peekTokenIs(token.LPAREN):
		// constructor: Name(args) { ... }
		tok := p.curToken
		name := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
		p.nextToken()
		params := p.parseParams()
		if params == nil {
			return false
		}
		if !p.expectPeek(token.LBRACE) {
			return false
		}
		body := p.parseBlockStatement()
		if decl.Constructor != nil {
			p.errorf("class %q already has a constructor", decl.Name.Value)
		}
		decl.Constructor = &ast.FunctionDecl{Token: tok, ReturnType: "void", Name: name, Parameters: params, Body: body}
		return true

	case p.curTokenIs(token.TYPE):
		typeTok := p.curToken
		typeName := p.curToken.Literal
		isArray := false
		if p.peekTokenIs(token.LBRACKET) {
			p.nextToken()
			if !p.expectPeek(token.RBRACKET) {
				return false
			}
			isArray = true
		}
		if !p.expectPeek(token.IDENT) {
			return false
		}
		name := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

		if !isArray && p.peekTokenIs(token.LPAREN) {
			p.nextToken()
			params := p.parseParams()
			if params == nil {
				return false
			}
			if !p.expectPeek(token.LBRACE) {
				return false
			}
			body := p.parseBlockStatement()
			decl.Methods = append(decl.Methods, &ast.FunctionDecl{
				Token: typeTok, ReturnType: typeName, Name: name,
				Parameters: params, Body: body, Static: static,
			})
			return true
		}

		field := &ast.FieldDecl{
			Token: typeTok, Private: private, Static: static,
			TypeName: typeName, IsArray: isArray, Name: name,
		}
		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			field.Value = p.parseExpression(LOWEST)
		}
		p.skipSemicolon()
		decl.Fields = append(decl.Fields, field)
		return true
	}

	p.errorf("unexpected %q inside class body", p.curToken.Literal)
	return false
}

func (p *Parser) parseEnumDecl() ast.Statement {
	decl := &ast.EnumDecl{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	decl.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	for !p.peekTokenIs(token.RBRACE) {
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		member := &ast.EnumMemberDecl{
			Name: &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal},
		}
		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			member.Value = p.parseExpression(LOWEST)
		}
		decl.Members = append(decl.Members, member)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
		} else {
			break
		}
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return decl
}

func (p *Parser) parseNamespaceDecl() ast.Statement {
	decl := &ast.NamespaceDecl{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	decl.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	decl.Body = p.parseBlockStatement()
	return decl
}

func (p *Parser) parseImportStatement() ast.Statement {
	stmt := &ast.ImportStatement{Token: p.curToken}
	if !p.expectPeek(token.STRING) {
		return nil
	}
	stmt.Path = &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseLinkStatement() ast.Statement {
	stmt := &ast.LinkStatement{Token: p.curToken}
	if !p.expectPeek(token.STRING) {
		return nil
	}
	stmt.Path = &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseExternalDecl() ast.Statement {
	decl := &ast.ExternalDecl{Token: p.curToken}
	if !p.expectPeek(token.TYPE) {
		return nil
	}
	decl.ReturnType = p.curToken.Literal
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	decl.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	decl.Parameters = p.parseParams()
	if decl.Parameters == nil {
		return nil
	}
	p.skipSemicolon()
	return decl
}

func (p *Parser) parseExpressionStatement() *ast.ExpressionStatement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}
	stmt.Expression = p.parseExpression(LOWEST)
	p.skipSemicolon()
	return stmt
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorf("no prefix parse function for %s (%q)", p.curToken.Type, p.curToken.Literal)
		return nil
	}
	left := prefix()

	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.curToken}
	v, err := strconv.ParseInt(p.curToken.Literal, 0, 64)
	if err == nil {
		lit.Value = v
		return lit
	}
	// fall back to an unsigned parse for literals above int64 range
	u, uerr := strconv.ParseUint(p.curToken.Literal, 0, 64)
	if uerr != nil {
		p.errorf("could not parse %q as integer", p.curToken.Literal)
		return nil
	}
	lit.UValue = u
	lit.Unsigned = true
	return lit
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	lit := &ast.FloatLiteral{Token: p.curToken}
	v, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorf("could not parse %q as float", p.curToken.Literal)
		return nil
	}
	lit.Value = v
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNullLiteral() ast.Expression {
	return &ast.NullLiteral{Token: p.curToken}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.PrefixExpression{Token: p.curToken, Operator: p.curToken.Literal}
	p.nextToken()
	expr.Right = p.parseExpression(PREFIX)
	return expr
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return expr
}

func (p *Parser) parseListLiteral() ast.Expression {
	lit := &ast.ListLiteral{Token: p.curToken}
	lit.Elements = p.parseExpressionList(token.RBRACKET)
	return lit
}

func (p *Parser) parseMapLiteral() ast.Expression {
	lit := &ast.MapLiteral{Token: p.curToken}
	for !p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		key := p.parseExpression(LOWEST)
		if !p.expectPeek(token.COLON) {
			return nil
		}
		p.nextToken()
		value := p.parseExpression(LOWEST)
		lit.Pairs = append(lit.Pairs, ast.MapPair{Key: key, Value: value})
		if !p.peekTokenIs(token.RBRACE) && !p.expectPeek(token.COMMA) {
			return nil
		}
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return lit
}

func (p *Parser) parseNewExpression() ast.Expression {
	expr := &ast.NewExpression{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	var class ast.Expression = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	for p.peekTokenIs(token.DOT) {
		p.nextToken()
		dotTok := p.curToken
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		class = &ast.MemberExpression{
			Token:    dotTok,
			Object:   class,
			Property: &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal},
		}
	}
	expr.Class = class
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	expr.Arguments = p.parseExpressionList(token.RPAREN)
	return expr
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{
		Token:    p.curToken,
		Left:     left,
		Operator: p.curToken.Literal,
	}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	return expr
}

func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	switch left.(type) {
	case *ast.Identifier, *ast.MemberExpression, *ast.IndexExpression:
	default:
		p.errorf("invalid assignment target %q", left.String())
		return nil
	}
	expr := &ast.AssignExpression{
		Token:    p.curToken,
		Target:   left,
		Operator: p.curToken.Literal,
	}
	p.nextToken()
	// right associative: a = b = c parses as a = (b = c)
	expr.Value = p.parseExpression(ASSIGNP - 1)
	return expr
}

func (p *Parser) parsePostfixExpression(left ast.Expression) ast.Expression {
	ident, ok := left.(*ast.Identifier)
	if !ok {
		p.errorf("%s operand must be a variable", p.curToken.Literal)
		return nil
	}
	return &ast.PostfixExpression{Token: p.curToken, Operand: ident, Operator: p.curToken.Literal}
}

func (p *Parser) parseCallExpression(fn ast.Expression) ast.Expression {
	expr := &ast.CallExpression{Token: p.curToken, Function: fn}
	expr.Arguments = p.parseExpressionList(token.RPAREN)
	return expr
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	expr := &ast.IndexExpression{Token: p.curToken, Left: left}
	p.nextToken()
	expr.Index = p.parseExpression(LOWEST)
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return expr
}

func (p *Parser) parseMemberExpression(obj ast.Expression) ast.Expression {
	expr := &ast.MemberExpression{Token: p.curToken, Object: obj}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	expr.Property = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	return expr
}

func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	list := []ast.Expression{}
	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}
	p.nextToken()
	list = append(list, p.parseExpression(LOWEST))
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
	}
	if !p.expectPeek(end) {
		return nil
	}
	return list
}

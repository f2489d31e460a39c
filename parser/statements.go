package parser

import (
	"github.com/gophjp/fjp/isa"
	"github.com/gophjp/fjp/lexer"
	"github.com/gophjp/fjp/symtab"
)

// stmt dispatches on the current token to the matching statement
// production (spec.md §4.3.1's stmt grammar).
func (p *Parser) stmt() error {
	switch p.cur().Kind {
	case lexer.SEMICOLON:
		p.advance()
		return nil
	case lexer.LBRACE:
		return p.scopeStmt()
	case lexer.IF:
		return p.ifStmt()
	case lexer.WHILE:
		return p.whileStmt()
	case lexer.DO:
		return p.doWhileStmt()
	case lexer.REPEAT:
		return p.repeatUntilStmt()
	case lexer.FOR:
		return p.forStmt()
	case lexer.FOREACH:
		return p.foreachStmt()
	case lexer.SWITCH:
		return p.switchStmt()
	case lexer.GOTO:
		return p.gotoStmt()
	case lexer.READ:
		return p.readStmt()
	case lexer.WRITE:
		return p.writeStmt()
	case lexer.CALL:
		return p.callStmt()
	case lexer.IDENTIFIER:
		return p.identStmt()
	default:
		return p.errf("stmt", "unexpected token %s", p.cur().Kind)
	}
}

func (p *Parser) scopeStmt() error {
	if _, err := p.expect("stmt", lexer.LBRACE); err != nil {
		return err
	}
	for !p.check(lexer.RBRACE) {
		if err := p.stmt(); err != nil {
			return err
		}
	}
	_, err := p.expect("stmt", lexer.RBRACE)
	return err
}

func (p *Parser) ifStmt() error {
	p.advance() // 'if'
	if _, err := p.expect("if", lexer.LPAREN); err != nil {
		return err
	}
	if err := p.condition(); err != nil {
		return err
	}
	if _, err := p.expect("if", lexer.RPAREN); err != nil {
		return err
	}
	jfalse := p.emit(isa.JPC, 0, 0)
	if err := p.stmt(); err != nil {
		return err
	}
	if p.check(lexer.ELSE) {
		p.advance()
		jend := p.emit(isa.JMP, 0, 0)
		p.patch(jfalse, p.here())
		if err := p.stmt(); err != nil {
			return err
		}
		p.patch(jend, p.here())
		return nil
	}
	p.patch(jfalse, p.here())
	return nil
}

func (p *Parser) whileStmt() error {
	p.advance() // 'while'
	if _, err := p.expect("while", lexer.LPAREN); err != nil {
		return err
	}
	ltop := p.here()
	if err := p.condition(); err != nil {
		return err
	}
	if _, err := p.expect("while", lexer.RPAREN); err != nil {
		return err
	}
	jend := p.emit(isa.JPC, 0, 0)
	if err := p.stmt(); err != nil {
		return err
	}
	p.emit(isa.JMP, 0, ltop)
	p.patch(jend, p.here())
	return nil
}

// doWhileStmt loops while the condition is true. The condition value is
// negated with EQ 0 before the JPC, which branches on zero, so that a
// true condition (nonzero) keeps the loop going — this double negation
// is intentional, not a mistake mirroring the while-loop's polarity.
func (p *Parser) doWhileStmt() error {
	p.advance() // 'do'
	if _, err := p.expect("do", lexer.LBRACE); err != nil {
		return err
	}
	ltop := p.here()
	for !p.check(lexer.RBRACE) {
		if err := p.stmt(); err != nil {
			return err
		}
	}
	if _, err := p.expect("do", lexer.RBRACE); err != nil {
		return err
	}
	if _, err := p.expect("do", lexer.WHILE); err != nil {
		return err
	}
	if _, err := p.expect("do", lexer.LPAREN); err != nil {
		return err
	}
	if err := p.condition(); err != nil {
		return err
	}
	if _, err := p.expect("do", lexer.RPAREN); err != nil {
		return err
	}
	if _, err := p.expect("do", lexer.SEMICOLON); err != nil {
		return err
	}
	p.emit(isa.LIT, 0, 0)
	p.emit(isa.OPR, 0, int(isa.EQ))
	p.emit(isa.JPC, 0, ltop)
	return nil
}

// repeatUntilStmt loops while the condition is false: JPC branches
// directly on the raw condition value, stopping once it becomes true.
func (p *Parser) repeatUntilStmt() error {
	p.advance() // 'repeat'
	if _, err := p.expect("repeat", lexer.LBRACE); err != nil {
		return err
	}
	ltop := p.here()
	for !p.check(lexer.RBRACE) {
		if err := p.stmt(); err != nil {
			return err
		}
	}
	if _, err := p.expect("repeat", lexer.RBRACE); err != nil {
		return err
	}
	if _, err := p.expect("repeat", lexer.UNTIL); err != nil {
		return err
	}
	if _, err := p.expect("repeat", lexer.LPAREN); err != nil {
		return err
	}
	if err := p.condition(); err != nil {
		return err
	}
	if _, err := p.expect("repeat", lexer.RPAREN); err != nil {
		return err
	}
	if _, err := p.expect("repeat", lexer.SEMICOLON); err != nil {
		return err
	}
	p.emit(isa.JPC, 0, ltop)
	return nil
}

// forStmt follows the instruction-emission order the reference compiler
// uses: the condition's exit jump is patched to the true end of the
// loop only after the body and its loop-back jump have been emitted,
// while the jump over the step code is patched to right before the body.
func (p *Parser) forStmt() error {
	p.advance() // 'for'
	if _, err := p.expect("for", lexer.LPAREN); err != nil {
		return err
	}
	if err := p.assignClause(true); err != nil {
		return err
	}

	lcond := p.here()
	if err := p.condition(); err != nil {
		return err
	}
	jend := p.emit(isa.JPC, 0, 0)
	jbody := p.emit(isa.JMP, 0, 0)
	if _, err := p.expect("for", lexer.SEMICOLON); err != nil {
		return err
	}

	lstep := p.here()
	if err := p.assignClause(false); err != nil {
		return err
	}
	p.emit(isa.JMP, 0, lcond)

	lbodyEnd := p.here()
	if _, err := p.expect("for", lexer.RPAREN); err != nil {
		return err
	}
	if err := p.stmt(); err != nil {
		return err
	}
	p.emit(isa.JMP, 0, lstep)

	p.patch(jend, p.here())
	p.patch(jbody, lbodyEnd)
	return nil
}

// foreachStmt binds iter to each element of arr in turn, using a
// compiler-allocated index slot that is deallocated at runtime once the
// loop exits (spec.md §4.3.5).
func (p *Parser) foreachStmt() error {
	p.advance() // 'foreach'
	if _, err := p.expect("foreach", lexer.LPAREN); err != nil {
		return err
	}
	iterTok, err := p.expect("foreach", lexer.IDENTIFIER)
	if err != nil {
		return err
	}
	iterSym := p.symbols.Lookup(iterTok.Lexeme)
	if iterSym.Kind != symtab.Int && iterSym.Kind != symtab.Bool {
		return p.errf("foreach", "%q is not a scalar variable", iterTok.Lexeme)
	}
	if _, err := p.expect("foreach", lexer.COLON); err != nil {
		return err
	}
	arrTok, err := p.expect("foreach", lexer.IDENTIFIER)
	if err != nil {
		return err
	}
	arrSym := p.symbols.Lookup(arrTok.Lexeme)
	switch {
	case iterSym.Kind == symtab.Int && arrSym.Kind == symtab.IntArray:
	case iterSym.Kind == symtab.Bool && arrSym.Kind == symtab.BoolArray:
	default:
		return p.errf("foreach", "%q is not an array of matching element type for %q", arrTok.Lexeme, iterTok.Lexeme)
	}
	if _, err := p.expect("foreach", lexer.RPAREN); err != nil {
		return err
	}

	indexAddr := p.alloc(1)
	p.emit(isa.INC, 0, 1)
	p.emit(isa.LIT, 0, 0)
	p.emit(isa.STO, 0, indexAddr)

	lhead := p.here()
	p.emit(isa.LOD, 0, indexAddr)
	p.emit(isa.LIT, 0, arrSym.Size)
	p.emit(isa.OPR, 0, int(isa.NEQ))
	jend := p.emit(isa.JPC, 0, 0)

	p.emit(isa.LOD, 0, indexAddr)
	p.emit(isa.LIT, 0, arrSym.Address)
	p.emit(isa.OPR, 0, int(isa.PLUS))
	p.emit(isa.LDA, p.deltaLevel(arrSym), 0)
	p.emit(isa.STO, p.deltaLevel(iterSym), iterSym.Address)

	p.emit(isa.LOD, 0, indexAddr)
	p.emit(isa.LIT, 0, 1)
	p.emit(isa.OPR, 0, int(isa.PLUS))
	p.emit(isa.STO, 0, indexAddr)

	if err := p.stmt(); err != nil {
		return err
	}
	p.emit(isa.JMP, 0, lhead)
	p.patch(jend, p.here())
	p.emit(isa.INC, 0, -1)
	return nil
}

// switchStmt compares the switch variable against each case's literal
// in turn; a matching case's own JPC is patched past a trailing break's
// JMP (if present) so the fallthrough check for the next case is
// skipped once a case body has actually run (spec.md §4.3.5).
func (p *Parser) switchStmt() error {
	p.advance() // 'switch'
	if _, err := p.expect("switch", lexer.LPAREN); err != nil {
		return err
	}
	varTok, err := p.expect("switch", lexer.IDENTIFIER)
	if err != nil {
		return err
	}
	sym := p.symbols.Lookup(varTok.Lexeme)
	if sym.Kind != symtab.Int && sym.Kind != symtab.Bool {
		return p.errf("switch", "%q is not a scalar variable", varTok.Lexeme)
	}
	if _, err := p.expect("switch", lexer.RPAREN); err != nil {
		return err
	}
	if _, err := p.expect("switch", lexer.LBRACE); err != nil {
		return err
	}

	var breaks []int
	for p.check(lexer.CASE) {
		if err := p.caseClause(sym, &breaks); err != nil {
			return err
		}
	}
	if _, err := p.expect("switch", lexer.RBRACE); err != nil {
		return err
	}
	end := p.here()
	for _, b := range breaks {
		p.patch(b, end)
	}
	return nil
}

func (p *Parser) caseClause(sym symtab.Symbol, breaks *[]int) error {
	p.advance() // 'case'
	var litVal int
	switch {
	case p.check(lexer.NUMBER) && sym.Kind == symtab.Int:
		tok := p.advance()
		v, err := parseInt(tok.Lexeme)
		if err != nil {
			return p.errf("case", "malformed integer literal %q", tok.Lexeme)
		}
		litVal = v
	case p.check(lexer.TRUE) && sym.Kind == symtab.Bool:
		p.advance()
		litVal = 1
	case p.check(lexer.FALSE) && sym.Kind == symtab.Bool:
		p.advance()
		litVal = 0
	default:
		return p.errf("case", "case literal does not match switch variable's type")
	}
	if _, err := p.expect("case", lexer.COLON); err != nil {
		return err
	}

	p.emit(isa.LOD, p.deltaLevel(sym), sym.Address)
	p.emit(isa.LIT, 0, litVal)
	p.emit(isa.OPR, 0, int(isa.EQ))
	jpc := p.emit(isa.JPC, 0, 0)
	if err := p.stmt(); err != nil {
		return err
	}
	p.patch(jpc, p.here())

	if p.check(lexer.BREAK) {
		p.advance()
		*breaks = append(*breaks, p.here())
		p.emit(isa.JMP, 0, 0)
		if _, err := p.expect("case", lexer.SEMICOLON); err != nil {
			return err
		}
		p.code[jpc].M++
	}
	return nil
}

func (p *Parser) gotoStmt() error {
	p.advance() // 'goto'
	nameTok, err := p.expect("goto", lexer.IDENTIFIER)
	if err != nil {
		return err
	}
	if _, err := p.expect("goto", lexer.SEMICOLON); err != nil {
		return err
	}
	sym := p.symbols.Lookup(nameTok.Lexeme)
	switch sym.Kind {
	case symtab.NotFound:
		addr := p.emit(isa.JMP, 0, 0)
		p.pending[nameTok.Lexeme] = append(p.pending[nameTok.Lexeme], addr)
	case symtab.Label:
		p.emit(isa.JMP, 0, sym.Address)
	default:
		return p.errf("goto", "%q is not a label", nameTok.Lexeme)
	}
	return nil
}

func (p *Parser) labelDecl(nameTok lexer.Token) error {
	p.advance() // ':'
	if p.symbols.ExistsInCurrentFrame(nameTok.Lexeme) {
		return p.errf("label", "%q is already declared in this scope", nameTok.Lexeme)
	}
	addr := p.here()
	if err := p.symbols.Add(symtab.Symbol{Kind: symtab.Label, Name: nameTok.Lexeme, Address: addr, Level: p.symbols.Depth()}); err != nil {
		return p.errf("label", "%v", err)
	}
	if fixups, ok := p.pending[nameTok.Lexeme]; ok {
		for _, a := range fixups {
			p.patch(a, addr)
		}
		delete(p.pending, nameTok.Lexeme)
	}
	return nil
}

func (p *Parser) readStmt() error {
	p.advance() // 'read'
	if _, err := p.expect("read", lexer.LPAREN); err != nil {
		return err
	}
	nameTok, err := p.expect("read", lexer.IDENTIFIER)
	if err != nil {
		return err
	}
	sym := p.symbols.Lookup(nameTok.Lexeme)
	if sym.Kind != symtab.Int && sym.Kind != symtab.Bool && sym.Kind != symtab.IntArray && sym.Kind != symtab.BoolArray {
		return p.errf("read", "%q is not a variable", nameTok.Lexeme)
	}

	if p.check(lexer.LBRACKET) {
		if !sym.IsArray() {
			return p.errf("read", "%q is not an array", nameTok.Lexeme)
		}
		p.advance()
		if err := p.expression(); err != nil {
			return err
		}
		if _, err := p.expect("read", lexer.RBRACKET); err != nil {
			return err
		}
		p.emit(isa.LIT, 0, sym.Address)
		p.emit(isa.OPR, 0, int(isa.PLUS))
		p.emit(isa.SIO, 0, int(isa.SIORead))
		if sym.Kind == symtab.BoolArray {
			p.normalize()
		}
		p.emit(isa.STA, p.deltaLevel(sym), 0)
	} else {
		if sym.IsArray() {
			return p.errf("read", "%q requires an index", nameTok.Lexeme)
		}
		p.emit(isa.SIO, 0, int(isa.SIORead))
		if sym.Kind == symtab.Bool {
			p.normalize()
		}
		p.emit(isa.STO, p.deltaLevel(sym), sym.Address)
	}

	if _, err := p.expect("read", lexer.RPAREN); err != nil {
		return err
	}
	_, err = p.expect("read", lexer.SEMICOLON)
	return err
}

// writeStmt accepts a deliberately narrower argument than a general
// expression (spec.md §4.3.1's write grammar): a bare identifier, an
// array element, a number literal, or a boolean literal — no arithmetic.
func (p *Parser) writeStmt() error {
	p.advance() // 'write'
	if _, err := p.expect("write", lexer.LPAREN); err != nil {
		return err
	}

	switch p.cur().Kind {
	case lexer.NUMBER:
		tok := p.advance()
		v, err := parseInt(tok.Lexeme)
		if err != nil {
			return p.errf("write", "malformed integer literal %q", tok.Lexeme)
		}
		p.emit(isa.LIT, 0, v)

	case lexer.TRUE:
		p.advance()
		p.emit(isa.LIT, 0, 1)

	case lexer.FALSE:
		p.advance()
		p.emit(isa.LIT, 0, 0)

	case lexer.IDENTIFIER:
		nameTok := p.advance()
		sym := p.symbols.Lookup(nameTok.Lexeme)
		if sym.Kind == symtab.NotFound {
			return p.errf("write", "undefined identifier %q", nameTok.Lexeme)
		}
		if p.check(lexer.LBRACKET) {
			if !sym.IsArray() {
				return p.errf("write", "%q is not an array", nameTok.Lexeme)
			}
			p.advance()
			if err := p.expression(); err != nil {
				return err
			}
			if _, err := p.expect("write", lexer.RBRACKET); err != nil {
				return err
			}
			p.emit(isa.LIT, 0, sym.Address)
			p.emit(isa.OPR, 0, int(isa.PLUS))
			p.emit(isa.LDA, p.deltaLevel(sym), 0)
		} else {
			switch sym.Kind {
			case symtab.Const:
				p.emit(isa.LIT, 0, sym.Value)
			case symtab.Int, symtab.Bool:
				p.emit(isa.LOD, p.deltaLevel(sym), sym.Address)
			default:
				return p.errf("write", "%q cannot be used as a value", nameTok.Lexeme)
			}
		}

	default:
		return p.errf("write", "expected a value to write, found %s", p.cur().Kind)
	}

	p.emit(isa.SIO, 0, int(isa.SIOWrite))
	if _, err := p.expect("write", lexer.RPAREN); err != nil {
		return err
	}
	_, err := p.expect("write", lexer.SEMICOLON)
	return err
}

func (p *Parser) callStmt() error {
	p.advance() // 'call'
	nameTok, err := p.expect("call", lexer.IDENTIFIER)
	if err != nil {
		return err
	}
	sym := p.symbols.Lookup(nameTok.Lexeme)
	if sym.Kind != symtab.Function {
		return p.errf("call", "%q is not a function", nameTok.Lexeme)
	}
	if _, err := p.expect("call", lexer.LPAREN); err != nil {
		return err
	}
	if _, err := p.expect("call", lexer.RPAREN); err != nil {
		return err
	}
	if _, err := p.expect("call", lexer.SEMICOLON); err != nil {
		return err
	}
	p.emit(isa.CAL, p.deltaLevel(sym), sym.Value)
	return nil
}

// identStmt handles the two statement forms that start with a bare
// identifier: a label declaration (`name:`) and an assignment.
func (p *Parser) identStmt() error {
	nameTok := p.advance()
	if p.check(lexer.COLON) {
		return p.labelDecl(nameTok)
	}
	return p.assignTail(nameTok, true)
}

// assignClause parses one assignment starting at the current token,
// used both for ordinary assignment statements and for the init/step
// clauses of a for loop, which omit the trailing semicolon.
func (p *Parser) assignClause(consumeSemicolon bool) error {
	nameTok, err := p.expect("assign", lexer.IDENTIFIER)
	if err != nil {
		return err
	}
	return p.assignTail(nameTok, consumeSemicolon)
}

// assignTail implements both the array-element assignment
// (`name[expr] := expr`) and the scalar/chained assignment
// (`name := name := ... expr`) forms, given the already-consumed
// leading identifier.
func (p *Parser) assignTail(nameTok lexer.Token, consumeSemicolon bool) error {
	if p.check(lexer.LBRACKET) {
		sym := p.symbols.Lookup(nameTok.Lexeme)
		if !sym.IsArray() {
			return p.errf("assign", "%q is not an array", nameTok.Lexeme)
		}
		p.advance()
		if err := p.expression(); err != nil {
			return err
		}
		if _, err := p.expect("assign", lexer.RBRACKET); err != nil {
			return err
		}
		p.emit(isa.LIT, 0, sym.Address)
		p.emit(isa.OPR, 0, int(isa.PLUS))
		if _, err := p.expect("assign", lexer.DEFINE); err != nil {
			return err
		}
		if err := p.expression(); err != nil {
			return err
		}
		if sym.Kind == symtab.BoolArray {
			p.normalize()
		}
		p.emit(isa.STA, p.deltaLevel(sym), 0)
		if consumeSemicolon {
			if _, err := p.expect("assign", lexer.SEMICOLON); err != nil {
				return err
			}
		}
		return nil
	}

	if _, err := p.expect("assign", lexer.DEFINE); err != nil {
		return err
	}
	targets := []lexer.Token{nameTok}
	for p.check(lexer.IDENTIFIER) && p.peekNext().Kind == lexer.DEFINE {
		targets = append(targets, p.advance())
		p.advance() // ':='
	}
	if err := p.expression(); err != nil {
		return err
	}

	last := targets[len(targets)-1]
	sym, err := p.assignableSymbol(last)
	if err != nil {
		return err
	}
	if sym.Kind == symtab.Bool {
		p.normalize()
	}
	p.emit(isa.STO, p.deltaLevel(sym), sym.Address)
	prev := sym
	for i := len(targets) - 2; i >= 0; i-- {
		t := targets[i]
		tsym, err := p.assignableSymbol(t)
		if err != nil {
			return err
		}
		p.emit(isa.LOD, p.deltaLevel(prev), prev.Address)
		if tsym.Kind == symtab.Bool {
			p.normalize()
		}
		p.emit(isa.STO, p.deltaLevel(tsym), tsym.Address)
		prev = tsym
	}

	if consumeSemicolon {
		if _, err := p.expect("assign", lexer.SEMICOLON); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) assignableSymbol(nameTok lexer.Token) (symtab.Symbol, error) {
	sym := p.symbols.Lookup(nameTok.Lexeme)
	if sym.Kind != symtab.Int && sym.Kind != symtab.Bool {
		return symtab.Symbol{}, p.errf("assign", "%q is not an assignable variable", nameTok.Lexeme)
	}
	return sym, nil
}

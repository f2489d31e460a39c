// Package parser implements the single-pass recursive-descent
// compiler: it interleaves grammar checking with code generation,
// emitting the (op, l, m) instruction vector the vm package executes
// directly as it walks the token stream (spec.md §4.3).
package parser

import (
	"strconv"

	"github.com/gophjp/fjp/compileerr"
	"github.com/gophjp/fjp/isa"
	"github.com/gophjp/fjp/lexer"
	"github.com/gophjp/fjp/symtab"
)

// Parser holds everything a single compilation pass needs: the token
// cursor, the instruction vector under construction, the symbol table,
// the pending-label map for forward gotos, and the per-frame next-free-
// slot counters (spec.md §4.3).
type Parser struct {
	tokens []lexer.Token
	pos    int

	code    []isa.Instruction
	symbols *symtab.Table
	pending map[string][]int

	frameSlots []int // next-free-slot counter (A) per open frame
}

// Compile runs the full program production over tokens and returns the
// emitted instruction vector together with the program's global symbol
// table (consts, vars, functions, labels — kept open rather than
// discarded the way a function body's frame is, so debugger.Debugger
// and tools.CrossReference have something to resolve addresses against
// after compilation finishes), or the first compile error encountered.
func Compile(tokens []lexer.Token) ([]isa.Instruction, *symtab.Table, error) {
	p := &Parser{
		tokens:  tokens,
		symbols: symtab.New(),
		pending: make(map[string][]int),
	}
	if _, err := p.expect("program", lexer.START); err != nil {
		return nil, nil, err
	}
	if err := p.block(lexer.END, true); err != nil {
		return nil, nil, err
	}
	if _, err := p.expect("program", lexer.END); err != nil {
		return nil, nil, err
	}
	for name := range p.pending {
		return nil, nil, p.errf("program", "undefined label %q referenced by goto", name)
	}
	return p.code, p.symbols, nil
}

func (p *Parser) cur() lexer.Token {
	return p.tokens[p.pos]
}

func (p *Parser) peekNext() lexer.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) check(k lexer.Kind) bool {
	return p.cur().Kind == k
}

func (p *Parser) advance() lexer.Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(production string, k lexer.Kind) (lexer.Token, error) {
	if !p.check(k) {
		return lexer.Token{}, p.errf(production, "expected %s, found %s", k, p.cur().Kind)
	}
	return p.advance(), nil
}

func (p *Parser) errf(production, format string, args ...any) error {
	return compileerr.New(production, compileerr.KindParse, p.cur().Line, format, args...)
}

func (p *Parser) here() int {
	return len(p.code)
}

func (p *Parser) emit(op isa.Opcode, l, m int) int {
	addr := len(p.code)
	p.code = append(p.code, isa.Instruction{Op: op, L: l, M: m})
	return addr
}

func (p *Parser) patch(addr, target int) {
	p.code[addr].M = target
}

func (p *Parser) pushFrame() {
	p.symbols.PushFrame()
	p.frameSlots = append(p.frameSlots, isa.ReservedFrameSlots)
}

// popFrame closes the innermost frame and returns its final slot count
// (k in spec.md §4.3.2, the value the block's INC placeholder needs).
// keepSymbols leaves the symbol table frame open, used only for the
// program's outermost block so its globals remain inspectable once
// Compile returns.
func (p *Parser) popFrame(keepSymbols bool) int {
	top := len(p.frameSlots) - 1
	k := p.frameSlots[top]
	p.frameSlots = p.frameSlots[:top]
	if !keepSymbols {
		p.symbols.PopFrame()
	}
	return k
}

// alloc reserves n consecutive slots in the current frame and returns
// the address of the first one.
func (p *Parser) alloc(n int) int {
	top := len(p.frameSlots) - 1
	addr := p.frameSlots[top]
	p.frameSlots[top] += n
	return addr
}

// deltaLevel computes how many static links a reference to sym must
// cross from the current lexical depth (spec.md §4.3.2).
func (p *Parser) deltaLevel(sym symtab.Symbol) int {
	return p.symbols.Depth() - sym.Level
}

// normalize collapses an arbitrary non-zero stack value to 1, used
// whenever a value is stored into a Bool-typed destination.
func (p *Parser) normalize() {
	p.emit(isa.LIT, 0, 0)
	p.emit(isa.OPR, 0, int(isa.NEQ))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// block implements the `block` production: declarations, function
// bodies, then a statement list running until terminator. It opens and
// closes its own lexical frame and back-patches its own prologue/function-skip
// jump (spec.md §4.3.2). The terminator token is left unconsumed for the
// caller (program or a function declaration) to check and consume.
func (p *Parser) block(terminator lexer.Kind, top bool) error {
	p.pushFrame()
	incAddr := p.emit(isa.INC, 0, 0)

	for p.check(lexer.CONST) {
		if err := p.constDecl(); err != nil {
			return err
		}
	}
	for p.check(lexer.INT) || p.check(lexer.BOOL) {
		if err := p.varDecl(); err != nil {
			return err
		}
	}

	skipAddr := p.emit(isa.JMP, 0, 0)
	for p.check(lexer.FUNCTION) {
		if err := p.functionDecl(); err != nil {
			return err
		}
	}
	p.patch(skipAddr, p.here())

	for !p.check(terminator) {
		if err := p.stmt(); err != nil {
			return err
		}
	}

	p.emit(isa.OPR, 0, int(isa.RET))
	k := p.popFrame(top)
	p.patch(incAddr, k)
	return nil
}

func (p *Parser) constDecl() error {
	if _, err := p.expect("const_decl", lexer.CONST); err != nil {
		return err
	}
	baseKind := p.cur().Kind
	if baseKind != lexer.INT && baseKind != lexer.BOOL {
		return p.errf("const_decl", "expected int or bool, found %s", baseKind)
	}
	p.advance()

	for {
		nameTok, err := p.expect("const_decl", lexer.IDENTIFIER)
		if err != nil {
			return err
		}
		if p.symbols.ExistsInCurrentFrame(nameTok.Lexeme) {
			return p.errf("const_decl", "%q is already declared in this scope", nameTok.Lexeme)
		}
		if _, err := p.expect("const_decl", lexer.ASSIGN); err != nil {
			return err
		}
		value, err := p.literalValue(baseKind)
		if err != nil {
			return err
		}
		if err := p.symbols.Add(symtab.Symbol{
			Kind:  symtab.Const,
			Name:  nameTok.Lexeme,
			Value: value,
			Level: p.symbols.Depth(),
		}); err != nil {
			return p.errf("const_decl", "%v", err)
		}
		if p.check(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	_, err := p.expect("const_decl", lexer.SEMICOLON)
	return err
}

func (p *Parser) literalValue(baseKind lexer.Kind) (int, error) {
	switch baseKind {
	case lexer.INT:
		tok, err := p.expect("const_decl", lexer.NUMBER)
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(tok.Lexeme)
		if err != nil {
			return 0, p.errf("const_decl", "malformed integer literal %q", tok.Lexeme)
		}
		return v, nil
	case lexer.BOOL:
		switch p.cur().Kind {
		case lexer.TRUE:
			p.advance()
			return 1, nil
		case lexer.FALSE:
			p.advance()
			return 0, nil
		default:
			return 0, p.errf("const_decl", "expected true or false, found %s", p.cur().Kind)
		}
	default:
		return 0, p.errf("const_decl", "unsupported const type")
	}
}

func (p *Parser) varDecl() error {
	baseKind := p.cur().Kind
	p.advance()
	for {
		if err := p.varItem(baseKind); err != nil {
			return err
		}
		if p.check(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	_, err := p.expect("var_decl", lexer.SEMICOLON)
	return err
}

func (p *Parser) varItem(baseKind lexer.Kind) error {
	nameTok, err := p.expect("var_decl", lexer.IDENTIFIER)
	if err != nil {
		return err
	}
	if p.symbols.ExistsInCurrentFrame(nameTok.Lexeme) {
		return p.errf("var_decl", "%q is already declared in this scope", nameTok.Lexeme)
	}

	if !p.check(lexer.LBRACKET) {
		kind := symtab.Int
		if baseKind == lexer.BOOL {
			kind = symtab.Bool
		}
		addr := p.alloc(1)
		return p.symbols.Add(symtab.Symbol{Kind: kind, Name: nameTok.Lexeme, Address: addr, Level: p.symbols.Depth()})
	}

	p.advance() // '['
	size, err := p.arraySize()
	if err != nil {
		return err
	}
	if _, err := p.expect("var_decl", lexer.RBRACKET); err != nil {
		return err
	}

	kind := symtab.IntArray
	if baseKind == lexer.BOOL {
		kind = symtab.BoolArray
	}
	addr := p.alloc(size)
	if err := p.symbols.Add(symtab.Symbol{Kind: kind, Name: nameTok.Lexeme, Address: addr, Size: size, Level: p.symbols.Depth()}); err != nil {
		return err
	}

	if p.check(lexer.ASSIGN) {
		p.advance()
		if _, err := p.expect("var_decl", lexer.LBRACE); err != nil {
			return err
		}
		idx := 0
		for !p.check(lexer.RBRACE) {
			if idx >= size {
				return p.errf("var_decl", "array initializer for %q has more than %d elements", nameTok.Lexeme, size)
			}
			val, err := p.literalValue(baseKind)
			if err != nil {
				return err
			}
			p.emit(isa.LIT, 0, val)
			p.emit(isa.STO, 0, addr+idx)
			idx++
			if p.check(lexer.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect("var_decl", lexer.RBRACE); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) arraySize() (int, error) {
	switch p.cur().Kind {
	case lexer.NUMBER:
		tok := p.advance()
		v, err := strconv.Atoi(tok.Lexeme)
		if err != nil || v < 1 {
			return 0, p.errf("var_decl", "array size must be a positive integer, found %q", tok.Lexeme)
		}
		return v, nil
	case lexer.IDENTIFIER:
		tok := p.advance()
		sym := p.symbols.Lookup(tok.Lexeme)
		if sym.Kind != symtab.Const || sym.Value < 1 {
			return 0, p.errf("var_decl", "%q is not a positive constant usable as an array size", tok.Lexeme)
		}
		return sym.Value, nil
	default:
		return 0, p.errf("var_decl", "expected array size, found %s", p.cur().Kind)
	}
}

func (p *Parser) functionDecl() error {
	if _, err := p.expect("function_decl", lexer.FUNCTION); err != nil {
		return err
	}
	nameTok, err := p.expect("function_decl", lexer.IDENTIFIER)
	if err != nil {
		return err
	}
	if p.symbols.ExistsInCurrentFrame(nameTok.Lexeme) {
		return p.errf("function_decl", "%q is already declared in this scope", nameTok.Lexeme)
	}
	if _, err := p.expect("function_decl", lexer.LPAREN); err != nil {
		return err
	}
	if _, err := p.expect("function_decl", lexer.RPAREN); err != nil {
		return err
	}
	if _, err := p.expect("function_decl", lexer.LBRACE); err != nil {
		return err
	}

	entry := p.here()
	if err := p.symbols.Add(symtab.Symbol{
		Kind:  symtab.Function,
		Name:  nameTok.Lexeme,
		Value: entry,
		Level: p.symbols.Depth(),
	}); err != nil {
		return err
	}

	if err := p.block(lexer.RBRACE, false); err != nil {
		return err
	}
	_, err = p.expect("function_decl", lexer.RBRACE)
	return err
}

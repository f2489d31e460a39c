package parser

import (
	"strconv"

	"github.com/gophjp/fjp/isa"
	"github.com/gophjp/fjp/lexer"
	"github.com/gophjp/fjp/symtab"
)

func parseInt(lexeme string) (int, error) {
	return strconv.Atoi(lexeme)
}

// condition compiles the flat (non-recursive) relational/logical forms
// the language allows directly inside `if`/`while`/`until` parentheses
// (spec.md §4.3.4). Conditions are not themselves composable beyond one
// relop or logop — nesting requires parentheses around expressions.
func (p *Parser) condition() error {
	if p.check(lexer.NOT) {
		p.advance()
		if err := p.expression(); err != nil {
			return err
		}
		p.emit(isa.LIT, 0, 0)
		p.emit(isa.OPR, 0, int(isa.EQ))
		return nil
	}

	if err := p.expression(); err != nil {
		return err
	}
	switch p.cur().Kind {
	case lexer.EQ:
		p.advance()
		if err := p.expression(); err != nil {
			return err
		}
		p.emit(isa.OPR, 0, int(isa.EQ))
	case lexer.NEQ:
		p.advance()
		if err := p.expression(); err != nil {
			return err
		}
		p.emit(isa.OPR, 0, int(isa.NEQ))
	case lexer.LT:
		p.advance()
		if err := p.expression(); err != nil {
			return err
		}
		p.emit(isa.OPR, 0, int(isa.LESS))
	case lexer.LE:
		p.advance()
		if err := p.expression(); err != nil {
			return err
		}
		p.emit(isa.OPR, 0, int(isa.LESS_EQ))
	case lexer.GT:
		p.advance()
		if err := p.expression(); err != nil {
			return err
		}
		p.emit(isa.OPR, 0, int(isa.GRT))
	case lexer.GE:
		p.advance()
		if err := p.expression(); err != nil {
			return err
		}
		p.emit(isa.OPR, 0, int(isa.GRT_EQ))
	case lexer.AND:
		p.advance()
		if err := p.expression(); err != nil {
			return err
		}
		p.emit(isa.OPR, 0, int(isa.MUL))
		p.emit(isa.LIT, 0, 0)
		p.emit(isa.OPR, 0, int(isa.NEQ))
	case lexer.OR:
		p.advance()
		if err := p.expression(); err != nil {
			return err
		}
		p.emit(isa.OPR, 0, int(isa.PLUS))
		p.emit(isa.LIT, 0, 0)
		p.emit(isa.OPR, 0, int(isa.NEQ))
	default:
		return p.errf("condition", "expected a comparison or logical operator, found %s", p.cur().Kind)
	}
	return nil
}

// expression compiles a ternary `# cond ? e1 : e2`, or a sum of terms
// with an optional leading unary sign (spec.md §4.3.3).
func (p *Parser) expression() error {
	if p.check(lexer.HASH) {
		return p.ternary()
	}

	negate := false
	switch p.cur().Kind {
	case lexer.PLUS:
		p.advance()
	case lexer.MINUS:
		p.advance()
		negate = true
	}
	if err := p.term(); err != nil {
		return err
	}
	if negate {
		p.emit(isa.OPR, 0, int(isa.INVERT))
	}

	for p.check(lexer.PLUS) || p.check(lexer.MINUS) {
		isPlus := p.check(lexer.PLUS)
		p.advance()
		if err := p.term(); err != nil {
			return err
		}
		if isPlus {
			p.emit(isa.OPR, 0, int(isa.PLUS))
		} else {
			p.emit(isa.OPR, 0, int(isa.MINUS))
		}
	}
	return nil
}

func (p *Parser) ternary() error {
	p.advance() // '#'
	if err := p.condition(); err != nil {
		return err
	}
	if _, err := p.expect("ternary", lexer.QUESTION); err != nil {
		return err
	}
	jfalse := p.emit(isa.JPC, 0, 0)
	if err := p.expression(); err != nil {
		return err
	}
	jend := p.emit(isa.JMP, 0, 0)
	p.patch(jfalse, p.here())
	if _, err := p.expect("ternary", lexer.COLON); err != nil {
		return err
	}
	if err := p.expression(); err != nil {
		return err
	}
	p.patch(jend, p.here())
	return nil
}

func (p *Parser) term() error {
	if err := p.factor(); err != nil {
		return err
	}
	for p.check(lexer.STAR) || p.check(lexer.SLASH) {
		isMul := p.check(lexer.STAR)
		p.advance()
		if err := p.factor(); err != nil {
			return err
		}
		if isMul {
			p.emit(isa.OPR, 0, int(isa.MUL))
		} else {
			p.emit(isa.OPR, 0, int(isa.DIV))
		}
	}
	return nil
}

func (p *Parser) factor() error {
	switch p.cur().Kind {
	case lexer.NUMBER:
		tok := p.advance()
		v, err := parseInt(tok.Lexeme)
		if err != nil {
			return p.errf("factor", "malformed integer literal %q", tok.Lexeme)
		}
		p.emit(isa.LIT, 0, v)
		return nil

	case lexer.TRUE:
		p.advance()
		p.emit(isa.LIT, 0, 1)
		return nil

	case lexer.FALSE:
		p.advance()
		p.emit(isa.LIT, 0, 0)
		return nil

	case lexer.LPAREN:
		p.advance()
		if err := p.expression(); err != nil {
			return err
		}
		_, err := p.expect("factor", lexer.RPAREN)
		return err

	case lexer.IDENTIFIER:
		return p.identFactor()

	default:
		return p.errf("factor", "unexpected token %s", p.cur().Kind)
	}
}

func (p *Parser) identFactor() error {
	nameTok := p.advance()
	sym := p.symbols.Lookup(nameTok.Lexeme)
	if sym.Kind == symtab.NotFound {
		return p.errf("factor", "undefined identifier %q", nameTok.Lexeme)
	}

	if p.check(lexer.INSTANCEOF) {
		p.advance()
		wantKind, err := p.parseType()
		if err != nil {
			return err
		}
		p.emit(isa.LIT, 0, boolToInt(sym.Kind == wantKind))
		return nil
	}

	if p.check(lexer.LBRACKET) {
		if !sym.IsArray() {
			return p.errf("factor", "%q is not an array", nameTok.Lexeme)
		}
		p.advance()
		if err := p.expression(); err != nil {
			return err
		}
		if _, err := p.expect("factor", lexer.RBRACKET); err != nil {
			return err
		}
		p.emit(isa.LIT, 0, sym.Address)
		p.emit(isa.OPR, 0, int(isa.PLUS))
		p.emit(isa.LDA, p.deltaLevel(sym), 0)
		return nil
	}

	switch sym.Kind {
	case symtab.Const:
		p.emit(isa.LIT, 0, sym.Value)
	case symtab.Int, symtab.Bool:
		p.emit(isa.LOD, p.deltaLevel(sym), sym.Address)
	default:
		return p.errf("factor", "%q cannot be used as a value", nameTok.Lexeme)
	}
	return nil
}

// parseType recognizes the type nonterminal used by `instanceof`
// (spec.md §6.2): the scalar keywords plus the dedicated array-type
// keywords "int[]"/"bool[]", which the lexer tokenizes as single units
// distinct from the bracketed array-declaration syntax.
func (p *Parser) parseType() (symtab.Kind, error) {
	switch p.cur().Kind {
	case lexer.INT:
		p.advance()
		return symtab.Int, nil
	case lexer.BOOL:
		p.advance()
		return symtab.Bool, nil
	case lexer.INT_ARRAY:
		p.advance()
		return symtab.IntArray, nil
	case lexer.BOOL_ARRAY:
		p.advance()
		return symtab.BoolArray, nil
	default:
		return 0, p.errf("factor", "expected a type after instanceof, found %s", p.cur().Kind)
	}
}

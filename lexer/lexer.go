package lexer

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/gophjp/fjp/compileerr"
)

// entry is one row of the keyword/punctuation table.
type entry struct {
	lexeme     string
	kind       Kind
	alphabetic bool
}

// table holds every keyword and operator/punctuation lexeme, sorted by
// descending lexeme length so that a longer lexeme always wins a prefix
// race against a shorter one sharing its prefix (":=" before ":", "<="
// before "<", "&&" before "&", "int[]" before "int" — spec.md §4.1).
var table []entry

func init() {
	raw := []struct {
		lexeme string
		kind   Kind
	}{
		{"START", START}, {"END", END},
		{"if", IF}, {"else", ELSE}, {"for", FOR}, {"foreach", FOREACH},
		{"while", WHILE}, {"do", DO}, {"repeat", REPEAT}, {"until", UNTIL},
		{"switch", SWITCH}, {"case", CASE}, {"break", BREAK},
		{"const", CONST}, {"int[]", INT_ARRAY}, {"bool[]", BOOL_ARRAY},
		{"int", INT}, {"bool", BOOL}, {"true", TRUE}, {"false", FALSE},
		{"function", FUNCTION}, {"call", CALL}, {"read", READ},
		{"write", WRITE}, {"goto", GOTO}, {"instanceof", INSTANCEOF},
		{"==", EQ}, {"!=", NEQ}, {"<=", LE}, {"<", LT}, {">=", GE}, {">", GT},
		{"&&", AND}, {"||", OR},
		{":=", DEFINE}, {"=", ASSIGN},
		{"!", NOT}, {"?", QUESTION},
		{"+", PLUS}, {"-", MINUS}, {"*", STAR}, {"/", SLASH},
		{"(", LPAREN}, {")", RPAREN}, {"{", LBRACE}, {"}", RBRACE},
		{"[", LBRACKET}, {"]", RBRACKET},
		{",", COMMA}, {";", SEMICOLON}, {":", COLON}, {".", PERIOD}, {"#", HASH},
	}
	for _, r := range raw {
		table = append(table, entry{lexeme: r.lexeme, kind: r.kind, alphabetic: isAllAlpha(r.lexeme)})
	}
	sort.SliceStable(table, func(i, j int) bool {
		return len(table[i].lexeme) > len(table[j].lexeme)
	})
}

func isAllAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentCont(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

const maxIdentifierLength = 16

// Lexer tokenizes the full source file eagerly at construction time and
// exposes a forward cursor over the resulting token slice with one-step
// rewind (spec.md §4.1).
type Lexer struct {
	tokens []Token
	pos    int
}

// New reads path, tokenizes it completely, and returns a Lexer positioned
// at the first token. It fails with a compileerr.KindIO error if the file
// cannot be opened, or a compileerr.KindLex error on the first malformed
// token.
func New(path string) (*Lexer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, compileerr.NewIO("lexer.New", "input file not found")
	}
	toks, err := tokenize(string(data))
	if err != nil {
		return nil, err
	}
	return &Lexer{tokens: toks}, nil
}

// Tokenize scans src directly, without going through a file on disk.
// Used by tooling (and tests) that already hold source text in memory —
// a REPL snippet in the debugger, or a program fetched over the API.
func Tokenize(src string) ([]Token, error) {
	return tokenize(src)
}

// Next returns the token at the cursor and advances past it.
func (l *Lexer) Next() (Token, error) {
	if l.pos >= len(l.tokens) {
		return Token{}, compileerr.New("lexer.Next", compileerr.KindLex, l.lastLine(), "program is incomplete")
	}
	t := l.tokens[l.pos]
	l.pos++
	return t, nil
}

// Back rewinds the cursor by one position. The grammar only ever rewinds
// immediately after a Next, never two positions deep.
func (l *Lexer) Back() error {
	if l.pos == 0 {
		return compileerr.New("lexer.Back", compileerr.KindLex, l.lastLine(), "no token to return to")
	}
	l.pos--
	return nil
}

// All returns every token produced at construction time, including the
// trailing EOF sentinel. Used by the program package to emit tokens.json.
func (l *Lexer) All() []Token {
	out := make([]Token, len(l.tokens))
	copy(out, l.tokens)
	return out
}

func (l *Lexer) lastLine() int {
	if l.pos > 0 && l.pos-1 < len(l.tokens) {
		return l.tokens[l.pos-1].Line
	}
	if len(l.tokens) > 0 {
		return l.tokens[len(l.tokens)-1].Line
	}
	return 0
}

// tokenize performs the whole-file scan described in spec.md §4.1.
func tokenize(src string) ([]Token, error) {
	runes := []rune(src)
	n := len(runes)
	pos := 0
	line := 1
	var toks []Token

	for pos < n {
		// 1. whitespace
		if runes[pos] == '\n' {
			line++
			pos++
			continue
		}
		if unicode.IsSpace(runes[pos]) {
			pos++
			continue
		}

		// 2. block comments, possibly nested
		if runes[pos] == '/' && pos+1 < n && runes[pos+1] == '*' {
			startLine := line
			depth := 1
			pos += 2
			for depth > 0 {
				if pos >= n {
					return nil, compileerr.New("lexer.tokenize", compileerr.KindLex, startLine, "end of file due to an unclosed comment")
				}
				if runes[pos] == '\n' {
					line++
					pos++
					continue
				}
				if runes[pos] == '/' && pos+1 < n && runes[pos+1] == '*' {
					depth++
					pos += 2
					continue
				}
				if runes[pos] == '*' && pos+1 < n && runes[pos+1] == '/' {
					depth--
					pos += 2
					continue
				}
				pos++
			}
			continue
		}

		// 3. keyword/punctuation table, longest lexeme first
		if tok, newPos, ok := matchTable(runes, pos, line); ok {
			toks = append(toks, tok)
			pos = newPos
			continue
		}

		// 4. number literal
		if unicode.IsDigit(runes[pos]) {
			start := pos
			for pos < n && unicode.IsDigit(runes[pos]) {
				pos++
			}
			lexeme := string(runes[start:pos])
			v, err := strconv.Atoi(lexeme)
			if err != nil || v < 0 {
				return nil, compileerr.New("lexer.tokenize", compileerr.KindLex, line, "number is too long")
			}
			toks = append(toks, Token{Kind: NUMBER, Lexeme: lexeme, Line: line})
			continue
		}

		// 5. identifier
		if isIdentStart(runes[pos]) {
			start := pos
			for pos < n && isIdentCont(runes[pos]) {
				pos++
			}
			lexeme := string(runes[start:pos])
			if len(lexeme) > maxIdentifierLength {
				return nil, compileerr.New("lexer.tokenize", compileerr.KindLex, line, "identifier is too long")
			}
			toks = append(toks, Token{Kind: IDENTIFIER, Lexeme: lexeme, Line: line})
			continue
		}

		// 6. nothing matched
		return nil, compileerr.New("lexer.tokenize", compileerr.KindLex, line, "unknown character %q", string(runes[pos]))
	}

	toks = append(toks, Token{Kind: EOF, Lexeme: "", Line: line})
	return toks, nil
}

// matchTable attempts every table entry at pos in order (already sorted
// longest-lexeme-first) and returns the first one that matches. An
// alphabetic entry only matches when not followed by an
// identifier-continuation character, so "iffy" is never split into the
// keyword "if" plus the identifier "fy" (spec.md §4.1 step 3).
func matchTable(runes []rune, pos, line int) (Token, int, bool) {
	remaining := len(runes) - pos
	for _, e := range table {
		lx := []rune(e.lexeme)
		if len(lx) > remaining {
			continue
		}
		if string(runes[pos:pos+len(lx)]) != e.lexeme {
			continue
		}
		if e.alphabetic {
			next := pos + len(lx)
			if next < len(runes) && isIdentCont(runes[next]) {
				continue
			}
		}
		return Token{Kind: e.kind, Lexeme: e.lexeme, Line: line}, pos + len(lx), true
	}
	return Token{}, pos, false
}

// DebugDump renders the token stream the way tokens.json does — callers
// that want the JSON artifact should instead use the program package,
// which has access to the raw token slice; this helper exists for
// quick diagnostics and tests.
func DebugDump(toks []Token) string {
	var sb strings.Builder
	for _, t := range toks {
		fmt.Fprintf(&sb, "%s\n", t)
	}
	return sb.String()
}

package scanner

import (
	"testing"

	"github.com/vellum-lang/vellum/lang/token"
)

func kinds(t *testing.T, src string) []token.Token {
	t.Helper()
	s := New(src)
	var got []token.Token
	for {
		tok := s.Scan()
		got = append(got, tok.Kind)
		if tok.Kind == token.EOF {
			return got
		}
	}
}

func TestScanPunctuationAndOperators(t *testing.T) {
	src := `( ) { } , . - + ; / * ! != = == > >= < <=`
	want := []token.Token{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.COMMA,
		token.DOT, token.MINUS, token.PLUS, token.SEMI, token.SLASH, token.STAR,
		token.BANG, token.BANGEQ, token.EQ, token.EQEQ, token.GT, token.GE,
		token.LT, token.LE, token.EOF,
	}
	got := kinds(t, src)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i, k := range want {
		if got[i] != k {
			t.Errorf("token %d: got %v, want %v", i, got[i], k)
		}
	}
}

func TestScanKeywordsVsIdentifiers(t *testing.T) {
	s := New("class fun classroom funny")
	want := []token.Token{token.CLASS, token.FUN, token.IDENT, token.IDENT, token.EOF}
	for _, k := range want {
		if tok := s.Scan(); tok.Kind != k {
			t.Errorf("got %v, want %v", tok.Kind, k)
		}
	}
}

func TestScanNumber(t *testing.T) {
	for _, src := range []string{"123", "1.5", "0.25"} {
		s := New(src)
		tok := s.Scan()
		if tok.Kind != token.NUMBER || tok.Lexeme != src {
			t.Errorf("Scan(%q) = %v %q, want NUMBER %q", src, tok.Kind, tok.Lexeme, src)
		}
	}
}

func TestScanStringLiteral(t *testing.T) {
	s := New(`"hello\nworld"`)
	tok := s.Scan()
	if tok.Kind != token.STRING {
		t.Fatalf("Kind = %v, want STRING", tok.Kind)
	}
	if tok.Lexeme != `"hello\nworld"` {
		t.Errorf("Lexeme = %q", tok.Lexeme)
	}
}

func TestScanStringSpansLines(t *testing.T) {
	s := New("\"a\nb\" 1")
	str := s.Scan()
	if str.Kind != token.STRING {
		t.Fatalf("Kind = %v, want STRING", str.Kind)
	}
	num := s.Scan()
	if num.Line != 2 {
		t.Errorf("Line = %d, want 2 (after embedded newline)", num.Line)
	}
}

func TestScanUnterminatedString(t *testing.T) {
	s := New(`"unterminated`)
	tok := s.Scan()
	if tok.Kind != token.ILLEGAL {
		t.Fatalf("Kind = %v, want ILLEGAL", tok.Kind)
	}
}

func TestScanLineComment(t *testing.T) {
	s := New("1 // comment\n2")
	first := s.Scan()
	second := s.Scan()
	if first.Line != 1 || second.Line != 2 {
		t.Errorf("lines = %d, %d, want 1, 2", first.Line, second.Line)
	}
}

func TestScanUnexpectedCharacter(t *testing.T) {
	s := New("@")
	tok := s.Scan()
	if tok.Kind != token.ILLEGAL {
		t.Fatalf("Kind = %v, want ILLEGAL", tok.Kind)
	}
}

func TestScanNonASCIIByteIsIllegal(t *testing.T) {
	// "é" encoded as UTF-8 (0xC3 0xA9). Identifiers are ASCII-only, so
	// neither byte may be treated as a letter: each byte produces its own
	// ILLEGAL token, never an identifier.
	s := New("\xc3\xa9")
	first := s.Scan()
	if first.Kind != token.ILLEGAL {
		t.Fatalf("Kind = %v, want ILLEGAL", first.Kind)
	}
	second := s.Scan()
	if second.Kind != token.ILLEGAL {
		t.Fatalf("second byte Kind = %v, want ILLEGAL", second.Kind)
	}
}

func TestScanEOFIsSticky(t *testing.T) {
	s := New("")
	if tok := s.Scan(); tok.Kind != token.EOF {
		t.Fatalf("Kind = %v, want EOF", tok.Kind)
	}
	if tok := s.Scan(); tok.Kind != token.EOF {
		t.Fatalf("second Scan Kind = %v, want EOF", tok.Kind)
	}
}

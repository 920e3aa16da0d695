package board

import (
	"fmt"
	"strings"
)

// Token identifies the kind of piece occupying a cell.
type Token uint8

// Empty marks a cell with no piece.
const Empty Token = 0

const (
	Red Token = iota + 1
	Blue
	Green
	Yellow
	Purple
	Orange
)

// layout letter per token; index == Token value
const tokenLetters = ".RBGYPO"

var tokenNames = [...]string{"empty", "red", "blue", "green", "yellow", "purple", "orange"}

// Kinds lists every non-empty token in declaration order.
func Kinds() []Token {
	return []Token{Red, Blue, Green, Yellow, Purple, Orange}
}

func (t Token) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("token(%d)", uint8(t))
}

// Letter returns the single-character layout code, '?' for unknown tokens.
func (t Token) Letter() byte {
	if int(t) < len(tokenLetters) {
		return tokenLetters[t]
	}
	return '?'
}

// IsEmpty reports whether the cell holds no piece.
func (t Token) IsEmpty() bool { return t == Empty }

// ParseToken accepts either the layout letter or the lowercase name.
func ParseToken(s string) (Token, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if len(v) == 1 {
		if i := strings.IndexByte(strings.ToLower(tokenLetters), v[0]); i >= 0 {
			return Token(i), nil
		}
	}
	for i, name := range tokenNames {
		if name == v {
			return Token(i), nil
		}
	}
	return Empty, fmt.Errorf("%w: unknown token %q", ErrInvalidArgument, s)
}

// MarshalText encodes the token as its name (used by yaml/json).
func (t Token) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Token) UnmarshalText(b []byte) error {
	v, err := ParseToken(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

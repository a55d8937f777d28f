package parser

import (
	"fmt"
	"strings"

	"github.com/dshills/apidl/internal/lexer"
)

// ParseError is a malformed construct together with the token that
// triggered it. Parsing continues after a ParseError.
type ParseError struct {
	Message string
	Token   lexer.Token
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Token.Line, e.Token.Column, e.Message)
}

// Span returns the source range of the offending token.
func (e *ParseError) Span() Span {
	return tokenSpan(e.Token)
}

// ErrorList collects every ParseError of one parse in source order.
type ErrorList []*ParseError

// Error implements the error interface
func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	var b strings.Builder
	b.WriteString(l[0].Error())
	fmt.Fprintf(&b, " (and %d more errors)", len(l)-1)
	return b.String()
}

// Err returns nil for an empty list so callers can return it directly.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

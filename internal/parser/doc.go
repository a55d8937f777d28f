// Package parser builds an AST from apidl source using recursive descent
// over the token stream produced by the lexer package.
//
// # Basic Usage
//
//	p := parser.New()
//	prog, err := p.ParseFile(ctx, "/path/to/service.api")
//	var errs parser.ErrorList
//	if errors.As(err, &errs) {
//	    for _, e := range errs {
//	        fmt.Printf("parse error: %v\n", e)
//	    }
//	}
//
//	for _, stmt := range prog.Statements {
//	    if td, ok := stmt.(*parser.TypedefStatement); ok {
//	        fmt.Println(td.Name.Name)
//	    }
//	}
//
// # Error Recovery
//
// Syntax errors never abort a parse. At the top level and inside every
// block an unrecognized token is recorded as a ParseError and skipped, so
// one malformed declaration does not hide the rest of the file. A block
// that runs into a top-level keyword (typedef, api, apilist, #include,
// #set) is closed with a "expected '}'" error and the keyword is parsed
// as the next statement.
//
// # Field Order
//
// Struct fields may be written "type name" or "name type". The type-first
// reading is tried first; when it fails the cursor is restored and the
// name-first reading is tried. When both fail exactly one token is skipped.
// Errors recorded by an abandoned attempt are discarded with it.
//
// # Comments
//
// Line and block comments directly above a typedef, api, apilist, field or
// enum value become its Doc. [[ ... ]] builtin comments above a field, or
// trailing it on the same line, become its Metadata.
//
// # Cancellation
//
// The context is polled once per statement and once per block member. A
// canceled parse returns the statements completed so far together with
// ctx.Err().
package parser

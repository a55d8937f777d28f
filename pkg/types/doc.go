// Package types provides shared type definitions for the apidl symbol index.
//
// This package defines domain types used across multiple components,
// including symbols, symbol keys, source ranges, diagnostics and indexer
// status notifications.
//
// # Core Types
//
// Symbol represents an apidl declaration (struct, field, enum, enum value,
// api, apilist) extracted from a parsed document:
//
//	symbol := &types.Symbol{
//	    Name:     "id",
//	    Kind:     types.KindField,
//	    Parent:   "User",
//	    TypeName: "int",
//	}
//
// # Symbol Keys
//
// Key is the identity used by the symbol table. Fields and enum values are
// scoped by their parent declaration, everything else by its bare name:
//
//	symbol.Key() // types.Key{Parent: "User", Name: "id"} -> "User.id"
//
// Two fields named "id" in different structs therefore never collide, while
// two "id" fields inside the same typedef struct share a key and are
// reported as duplicates.
//
// # Diagnostics
//
// Diagnostic carries a document range, a severity and a message. Duplicate
// definitions use DuplicateMessage so the wording is identical everywhere:
//
//	types.DuplicateMessage(types.Key{Parent: "Bad", Name: "id"}, 1)
//	// Duplicate definition of 'Bad.id'. First defined at line 1.
//
// # Validation
//
// Symbol implements validation to ensure data integrity before it is
// persisted or returned from the cache:
//
//	if err := symbol.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package types

// Package errors provides structured, actionable error messages for the
// vanilla-extract integration.
//
// Each error carries a unique code (e.g., "E202") that maps to a short
// message, a detailed explanation, and a documentation URL. Errors can be
// enriched with source locations and fix suggestions before being printed
// to the terminal.
//
// # Error Categories
//
//   - config: configuration loading and validation errors
//   - resolve: virtual module resolution errors (malformed ids, registry misses)
//   - compile: style compiler errors
//   - transform: finalization errors in the transform pipeline
//   - build: production build errors
//   - deploy: artifact upload errors
//
// # Usage
//
//	err := errors.New("E202").
//	    WithDetail("requested id: virtual:vanilla-extract:src/theme.css.ts.ts.css").
//	    WithSuggestion("Restart the dev server to clear stale module caches")
//
//	fmt.Println(err.Format())
//
// The two codes other packages branch on are exported as constants:
// CodeMalformedIdentifier (E201) and CodeUnregisteredScope (E202). Use
// IsCode to test for them across wrapping.
package errors

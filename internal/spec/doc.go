// Package spec defines the immutable descriptions of runnable work.
//
// It is intentionally split into:
//   - The Specification contract: pure data plus derivation logic (command
//     composition, argument escaping). No process interaction happens here.
//   - Validating factories: every Specification that leaves this package has
//     passed the static checks (required fields present, working directory
//     exists, is a directory, and is readable).
//
// A validated Specification is guaranteed runnable as far as static checks can
// determine. It does not guarantee the target executable exists or is
// executable; that failure surfaces at spawn time in package task.
package spec

package spec

import (
	"regexp"
	"strings"
)

// plainArg matches arguments that need no quoting. Anything outside this set
// (whitespace, quotes, globs, redirections, command separators, ...) gets the
// single-quote treatment.
var plainArg = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// Quote escapes a single argument so a POSIX shell treats it as one literal
// token, protecting the composed command line against injection from argument
// content.
//
// Strategy: wrap in single quotes; an embedded single quote closes the
// quoting, emits an escaped quote, and reopens it ('\'').
func Quote(arg string) string {
	if arg == "" {
		return "''"
	}
	if plainArg.MatchString(arg) {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// composeCommand joins a base command word with individually escaped
// arguments and trims surrounding whitespace. The result is deterministic for
// a given input.
func composeCommand(base string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, base)
	for _, a := range args {
		parts = append(parts, Quote(a))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

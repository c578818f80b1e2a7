package fpa

import "strings"

// Delimiter separates fields in an FP_A line.
const Delimiter = ","

// Tokenize splits a line into fields. Empty fields are preserved and nothing
// is trimmed: a terminator the transport failed to strip stays on the last
// token.
func Tokenize(line string) []string {
	return strings.Split(line, Delimiter)
}

// tokenizeN splits into at most n fields; the last one holds the remainder of
// the line, delimiters included.
func tokenizeN(line string, n int) []string {
	return strings.SplitN(line, Delimiter, n)
}

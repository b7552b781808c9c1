package lexer

import "golang.org/x/text/unicode/norm"

// normalizeIdent applies Unicode NFC normalization to identifier text
// so that visually identical identifiers typed with different
// combining-character sequences compare equal, generalizing the
// teacher's internal/lexer/normalize.go (which NFC-normalizes AILANG
// source identifiers the same way) to melbi's lexer.
func normalizeIdent(s string) string {
	return norm.NFC.String(s)
}

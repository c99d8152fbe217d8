package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	activeTokens   = []string{"ativo", "ativado", "disponivel", "vendendo", "on"}
	inactiveTokens = []string{"inativo", "pausado", "off", "indisponivel"}
)

// fold lowercases s and strips combining marks, so "Disponível" and
// "DISPONIVEL" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// IsActive reports whether a status text means "selling". Tokens match as
// substrings; any inactive token wins over every active one.
func IsActive(status string) bool {
	s := fold(status)
	for _, tok := range inactiveTokens {
		if strings.Contains(s, tok) {
			return false
		}
	}
	for _, tok := range activeTokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}

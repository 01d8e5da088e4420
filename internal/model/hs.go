// Package model defines the domain types shared across tariff resolution
// and USMCA qualification analysis.
package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// hsCodeLen is the canonical HS code length used for store lookups.
const hsCodeLen = 8

// NormalizeHS canonicalizes an HS code to exactly 8 digits. Separators
// (dots, dashes, spaces) are stripped, short codes are right-padded with
// zeros, and longer codes are truncated. Empty or non-numeric input is an
// error, never a fallback case.
func NormalizeHS(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '.', '-', ' ':
			return -1
		}
		return r
	}, raw)

	if cleaned == "" {
		return "", eris.Errorf("model: empty HS code %q", raw)
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", eris.Errorf("model: non-numeric HS code %q", raw)
		}
	}

	if len(cleaned) > hsCodeLen {
		return cleaned[:hsCodeLen], nil
	}
	return cleaned + strings.Repeat("0", hsCodeLen-len(cleaned)), nil
}

// HSChapter returns the 2-digit chapter prefix of a normalized code.
func HSChapter(code string) string {
	if len(code) < 2 {
		return code
	}
	return code[:2]
}

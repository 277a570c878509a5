// Package answer decides whether two student answers mean the same thing.
// Inputs arrive in wildly mixed shapes: "4", "4.0", "1/2", "50%", "четыре
// яблока", so comparison goes numeric-first with a literal fallback.
package answer

import (
	"math"
	"strconv"
	"strings"

	"ap-tutor/api/internal/tutor/types"
)

// Value is a normalized answer: either a number or a folded literal string.
type Value struct {
	Num       float64
	IsNumeric bool
	Text      string
}

// Normalize reduces a raw answer string to a comparable value.
// Order matters: fraction, then percentage, then generic numeric strip;
// anything non-numeric falls back to the trimmed, case-folded literal.
func Normalize(raw string) Value {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Value{Text: ""}
	}

	// a/b
	if i := strings.IndexByte(s, '/'); i > 0 && i < len(s)-1 {
		num, errN := parseNumber(s[:i])
		den, errD := parseNumber(s[i+1:])
		if errN == nil && errD == nil && den != 0 {
			return Value{Num: num / den, IsNumeric: true}
		}
	}

	// trailing %
	if strings.HasSuffix(s, "%") {
		if v, err := parseNumber(strings.TrimSuffix(s, "%")); err == nil {
			return Value{Num: v / 100, IsNumeric: true}
		}
	}

	if v, err := parseNumber(s); err == nil {
		return Value{Num: v, IsNumeric: true}
	}
	return Value{Text: s}
}

// parseNumber strips everything but digits, sign and decimal point, then
// parses. "$4.50" -> 4.5, "12 apples" -> 12, "apples" -> error.
func parseNumber(s string) (float64, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if r >= '0' && r <= '9' || r == '.' || r == '-' || r == '+' {
			b.WriteRune(r)
		}
	}
	return strconv.ParseFloat(b.String(), 64)
}

// Compare reports whether a and b are equivalent answers. Numeric values are
// equal within max(1e-6, 0.005*|b|): half-percent relative tolerance with an
// absolute floor so b≈0 does not collapse the band to nothing. Empty input on
// either side is never a match.
func Compare(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	va, vb := Normalize(a), Normalize(b)
	if va.IsNumeric && vb.IsNumeric {
		tol := math.Max(1e-6, 0.005*math.Abs(vb.Num))
		return math.Abs(va.Num-vb.Num) <= tol
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ExtractFinalAnswer reduces a simulation payload to a single checkable value:
// explicit final_answer, else answer, else the last solving step, else "".
func ExtractFinalAnswer(sim *types.StudentSimulation) string {
	if sim == nil {
		return ""
	}
	if s := strings.TrimSpace(sim.FinalAnswer); s != "" {
		return s
	}
	if s := strings.TrimSpace(sim.Answer); s != "" {
		return s
	}
	if n := len(sim.StepsToSolve); n > 0 {
		return strings.TrimSpace(sim.StepsToSolve[n-1])
	}
	return ""
}

package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ap-tutor/api/internal/tutor/types"
)

func TestNormalize(t *testing.T) {
	v := Normalize("3/4")
	assert.True(t, v.IsNumeric)
	assert.InDelta(t, 0.75, v.Num, 1e-9)

	v = Normalize("20%")
	assert.True(t, v.IsNumeric)
	assert.InDelta(t, 0.2, v.Num, 1e-9)

	v = Normalize("$4.50")
	assert.True(t, v.IsNumeric)
	assert.InDelta(t, 4.5, v.Num, 1e-9)

	v = Normalize("abc")
	assert.False(t, v.IsNumeric)
	assert.Equal(t, "abc", v.Text)

	// zero denominator is not a fraction: falls through to the generic
	// numeric parse, which strips the slash
	v = Normalize("3/0")
	assert.True(t, v.IsNumeric)
	assert.InDelta(t, 30, v.Num, 1e-9)

	// no digits at all: nothing left after the strip, stays literal
	v = Normalize("n/a")
	assert.False(t, v.IsNumeric)
	assert.Equal(t, "n/a", v.Text)
}

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"4", "4.0", true},
		{"1/2", "0.5", true},
		{"50%", "0.5", true},
		{"4", "5", false},
		{"", "4", false},
		{"4", "", false},
		{"  Seven apples ", "seven apples", true},
		{"seven", "7", false},
		{"100.4", "100", true}, // inside the half-percent band
		{"100.6", "100", false},
		{"0.5000001", "0.5", true},
	}
	for _, c := range cases {
		assert.Equalf(t, c.want, Compare(c.a, c.b), "Compare(%q, %q)", c.a, c.b)
	}
}

func TestExtractFinalAnswer(t *testing.T) {
	assert.Equal(t, "", ExtractFinalAnswer(nil))

	sim := &types.StudentSimulation{
		FinalAnswer:  " 42 ",
		Answer:       "41",
		StepsToSolve: []string{"step one", "so the answer is 40"},
	}
	assert.Equal(t, "42", ExtractFinalAnswer(sim))

	sim.FinalAnswer = ""
	assert.Equal(t, "41", ExtractFinalAnswer(sim))

	sim.Answer = ""
	assert.Equal(t, "so the answer is 40", ExtractFinalAnswer(sim))

	sim.StepsToSolve = nil
	assert.Equal(t, "", ExtractFinalAnswer(sim))
}

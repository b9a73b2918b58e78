package disasm

import (
	"regexp"
	"strconv"
)

var (
	hexLiteralRe     = regexp.MustCompile(`0[xX][0-9a-fA-F]+`)
	decimalLiteralRe = regexp.MustCompile(`[0-9]+`)
)

// extractTargetFromText implements the target-extraction fallback
// chain of spec.md §4.2 for architectures/operand forms whose decoder
// doesn't report a structured target: first hexadecimal literal in
// the operand text, else first decimal integer within
// [0x400000, 0x7fffffffffff]. Returns ok == false when neither
// matches.
func extractTargetFromText(operandText string) (uint64, bool) {
	if m := hexLiteralRe.FindString(operandText); m != "" {
		v, err := strconv.ParseUint(m[2:], 16, 64)
		if err == nil {
			return v, true
		}
	}

	for _, m := range decimalLiteralRe.FindAllString(operandText, -1) {
		v, err := strconv.ParseUint(m, 10, 64)
		if err == nil && v >= 0x400000 && v <= 0x7fffffffffff {
			return v, true
		}
	}

	return 0, false
}

package stackanalyzer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Manu343726/elfscope/pkg/image"
)

// archStackInfo is the per-architecture table of spec.md §4.5: word
// size and required frame alignment, used to round a recovered local
// frame up to what the ABI actually reserves.
type archStackInfo struct {
	WordSize  uint64
	Alignment uint64
	// PushMnemonics lists the mnemonics that push one word onto the
	// stack without being decoded as a ClassStackAlloc instruction
	// (x86's PUSH family) — counted separately in frame.go.
	PushMnemonics []string
}

var archStackTable = map[image.Architecture]archStackInfo{
	image.ArchX86_64:  {WordSize: 8, Alignment: 16, PushMnemonics: []string{"push"}},
	image.ArchX86:     {WordSize: 4, Alignment: 4, PushMnemonics: []string{"push"}},
	image.ArchAArch64: {WordSize: 8, Alignment: 16},
	image.ArchARM:     {WordSize: 4, Alignment: 8, PushMnemonics: []string{"push"}},
}

// lookupArchStackInfo returns the pattern table for arch, defaulting
// to the x86_64 table for anything not explicitly listed (mips, ppc,
// ppc64, riscv, unknown), per spec.md §4.5. pkg/disasm has no
// ClassStackAlloc rule for mips and riscv, so their recovered frame is
// always zero; for ppc/ppc64 it tags only addi instructions on r1, and
// no push mnemonic in the x86_64 table matches ppc code.
func lookupArchStackInfo(arch image.Architecture) archStackInfo {
	if info, ok := archStackTable[arch]; ok {
		return info
	}
	return archStackTable[image.ArchX86_64]
}

func alignUp(value, alignment uint64) uint64 {
	if alignment == 0 || value%alignment == 0 {
		return value
	}
	return ((value / alignment) + 1) * alignment
}

var (
	hexImmediateRe = regexp.MustCompile(`0[xX][0-9a-fA-F]+`)
	decImmediateRe = regexp.MustCompile(`-?[0-9]+`)
)

// extractImmediate pulls the first plausible immediate magnitude out
// of a decoded operand string, preferring a hexadecimal literal
// (x86/ARM disassembly listings render stack immediates in hex) and
// falling back to the first decimal integer otherwise.
func extractImmediate(operandText string) (uint64, bool) {
	if m := hexImmediateRe.FindString(operandText); m != "" {
		if v, err := strconv.ParseUint(m[2:], 16, 64); err == nil {
			return v, true
		}
	}
	if m := decImmediateRe.FindString(operandText); m != "" {
		v, err := strconv.ParseInt(m, 10, 64)
		if err == nil {
			if v < 0 {
				v = -v
			}
			return uint64(v), true
		}
	}
	return 0, false
}

func isPushMnemonic(mnemonic string, info archStackInfo) bool {
	m := strings.ToLower(mnemonic)
	for _, p := range info.PushMnemonics {
		if m == p {
			return true
		}
	}
	return false
}

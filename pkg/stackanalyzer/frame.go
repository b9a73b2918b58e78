package stackanalyzer

import (
	"github.com/Manu343726/elfscope/pkg/disasm"
	"github.com/Manu343726/elfscope/pkg/utils"
)

// maxPrologueScan bounds how far into a function body the simple
// frame-size scan looks, matching the original's "only the prologue
// matters" assumption — functions that keep adjusting rsp/sp deep
// into their body are not prologues, they're something else.
const maxPrologueScan = 100

// localFrame computes the local stack frame of fn's own body: the
// largest single stack-pointer decrement seen (ClassStackAlloc
// instructions, decoded structurally by pkg/disasm), plus one word per
// push-equivalent instruction, rounded up to the architecture's frame
// alignment. A loop that re-decrements the stack pointer on every
// iteration is recognized separately by detectLoopAllocation and takes
// precedence when found, since the simple scan would otherwise only
// see one iteration's decrement.
func (a *Analyzer) localFrame(name string) uint64 {
	a.mu.RLock()
	if v, ok := a.frameCache[name]; ok {
		a.mu.RUnlock()
		return v
	}
	a.mu.RUnlock()

	insts, ok := a.instructionsFor(name)
	if !ok {
		return 0
	}

	frame := a.detectLoopAllocation(insts)
	if frame == 0 {
		frame = a.scanPrologue(insts)
	}

	a.mu.Lock()
	a.frameCache[name] = frame
	a.mu.Unlock()
	return frame
}

func (a *Analyzer) scanPrologue(insts []disasm.Instruction) uint64 {
	limit := len(insts)
	if limit > maxPrologueScan {
		limit = maxPrologueScan
	}

	var maxDecrement uint64
	var pushCount uint64

	for _, inst := range insts[:limit] {
		if inst.Class == disasm.ClassStackAlloc {
			if imm, ok := extractImmediate(inst.OperandText); ok {
				maxDecrement = utils.Max([]uint64{maxDecrement, imm})
			}
			continue
		}
		if isPushMnemonic(inst.Mnemonic, a.archInfo) {
			pushCount++
		}
	}

	frame := maxDecrement + pushCount*a.archInfo.WordSize
	return alignUp(frame, a.archInfo.Alignment)
}

// detectLoopAllocation reproduces the original's
// _detect_loop_stack_allocation: a LEA computing a stack-relative
// address N bytes below the current frame, followed within a short
// window by a SUB that decrements the stack pointer by a smaller step
// K, followed by a branch back near the SUB — the classic
// "alloca-in-a-loop" shape emitted for variable-length-array or
// repeated push-like idioms the compiler unrolled into a counted loop.
// Total loop bytes are (N/K)*K, rounded to the nearest multiple of K
// from below, then any trailing one-shot decrement after the loop
// closes is added before the final alignment pass.
func (a *Analyzer) detectLoopAllocation(insts []disasm.Instruction) uint64 {
	const (
		stepWindow  = 50
		closeWindow = 10
		tailWindow  = 20
	)

	for i, inst := range insts {
		if inst.Class != disasm.ClassStackAlloc {
			continue
		}
		n, ok := extractImmediate(inst.OperandText)
		if !ok || n == 0 {
			continue
		}
		// This instruction itself must look like a frame-relative
		// address computation (LEA), not a direct decrement; a direct
		// SUB here is handled by scanPrologue instead.
		if inst.Mnemonic != "lea" {
			continue
		}

		stepIdx, k, ok := findStep(insts, i+1, min(len(insts), i+1+stepWindow))
		if !ok || k == 0 || k >= n {
			continue
		}

		closeIdx, ok := findLoopClose(insts, stepIdx+1, min(len(insts), stepIdx+1+closeWindow), insts[stepIdx].Address)
		if !ok {
			continue
		}

		loopBytes := (n / k) * k

		tail := findTrailingDecrement(insts, closeIdx+1, min(len(insts), closeIdx+1+tailWindow))
		total := loopBytes + tail
		return alignUp(total, a.archInfo.Alignment)
	}

	return 0
}

func findStep(insts []disasm.Instruction, from, to int) (idx int, amount uint64, ok bool) {
	for i := from; i < to; i++ {
		inst := insts[i]
		if inst.Class == disasm.ClassStackAlloc && inst.Mnemonic != "lea" {
			if imm, ok := extractImmediate(inst.OperandText); ok && imm > 0 {
				return i, imm, true
			}
		}
	}
	return 0, 0, false
}

func findLoopClose(insts []disasm.Instruction, from, to int, stepAddr uint64) (int, bool) {
	for i := from; i < to; i++ {
		inst := insts[i]
		if !isBranchMnemonic(inst.Mnemonic) || !inst.HasTarget {
			continue
		}
		var distance uint64
		if inst.Target >= stepAddr {
			distance = inst.Target - stepAddr
		} else {
			distance = stepAddr - inst.Target
		}
		if distance <= 0x100 {
			return i, true
		}
	}
	return 0, false
}

func findTrailingDecrement(insts []disasm.Instruction, from, to int) uint64 {
	for i := from; i < to; i++ {
		inst := insts[i]
		if inst.Class == disasm.ClassStackAlloc && inst.Mnemonic != "lea" {
			if imm, ok := extractImmediate(inst.OperandText); ok {
				return imm
			}
		}
	}
	return 0
}

func isBranchMnemonic(mnemonic string) bool {
	switch mnemonic {
	case "jmp", "jne", "jnz", "je", "jz", "jl", "jg", "jle", "jge", "b", "bne", "beq", "bnz":
		return true
	default:
		return false
	}
}

package callgraph

import (
	"fmt"
	"log/slog"

	"github.com/Manu343726/elfscope/pkg/disasm"
	"github.com/Manu343726/elfscope/pkg/image"
)

// Build implements spec.md §4.3: for every text section, for every
// function whose address lies in the section, decode the function
// body and scan call/tail-jump instructions, resolving each
// extractable target to a known function or minting an
// "external:<hex>" placeholder. A decode failure is logged and
// truncates that one function's instruction stream; every other
// function is still analyzed.
func Build(img *image.Image, logger *slog.Logger) (*Graph, error) {
	dis, err := disasm.New(img.Architecture())
	if err != nil {
		return nil, err
	}

	g := newGraph()

	// Every named function becomes a node up-front, before the edge
	// scan, per spec.md §4.3's "Node creation" rule.
	for _, fn := range img.Functions() {
		if fn.Name == "" {
			continue
		}
		g.ensureNode(fn.Name, fn, false)
	}

	for _, section := range img.TextSections() {
		data, ok := img.SectionBytes(section.Name)
		if !ok {
			continue
		}

		for _, fn := range img.Functions() {
			if fn.Name == "" || fn.Size == 0 {
				continue
			}
			if fn.Address < section.VirtualAddress || fn.Address >= section.VirtualAddress+section.Size {
				continue
			}

			body, err := disasm.FunctionBody(fn, data, section.VirtualAddress)
			if err != nil {
				if logger != nil {
					logger.Warn("skipping function: cannot slice body", slog.String("function", fn.Name), slog.Any("error", err))
				}
				continue
			}

			insts, decodeErr := dis.Stream(body, fn.Address)
			if decodeErr != nil && logger != nil {
				logger.Warn("decode error, using partial instruction stream",
					slog.String("function", fn.Name), slog.Any("error", decodeErr))
			}

			for _, inst := range insts {
				if inst.Class != disasm.ClassCall && inst.Class != disasm.ClassTailJump {
					continue
				}
				if !inst.HasTarget {
					// Register/memory-indirect calls yield no
					// resolvable target and are not linked to any
					// callee, per spec.md §4.2.
					continue
				}

				kind := EdgeCall
				if inst.Class == disasm.ClassTailJump {
					kind = EdgeTailJump
				}

				instructionText := inst.Mnemonic
				if inst.OperandText != "" {
					instructionText += " " + inst.OperandText
				}

				if target, ok := img.FunctionByAddress(inst.Target); ok && target.Name != "" {
					g.addEdge(Edge{
						From:            fn.Name,
						To:              target.Name,
						FromAddress:     inst.Address,
						ToAddress:       inst.Target,
						InstructionText: instructionText,
						Kind:            kind,
					})
				} else {
					externalName := fmt.Sprintf("external:0x%x", inst.Target)
					g.ensureNode(externalName, image.Function{}, true)
					g.addEdge(Edge{
						From:            fn.Name,
						To:              externalName,
						FromAddress:     inst.Address,
						ToAddress:       inst.Target,
						InstructionText: instructionText,
						Kind:            kind,
						External:        true,
					})
				}
			}
		}
	}

	return g, nil
}

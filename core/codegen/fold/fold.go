package fold

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/aquila-gpu/aquila/core/codegen/mir"
	"github.com/aquila-gpu/aquila/core/codegen/target"
)

type pass struct {
	f  *mir.Func
	st *target.Subtarget
	ii *target.InstrInfo
	ri *target.RegInfo

	changed bool
}

// Run folds operands across f for the given subtarget and reports whether
// anything changed. Blocks are visited in depth-first control-flow order so
// a materialized constant is seen before the blocks its uses live in.
func Run(f *mir.Func, st *target.Subtarget) bool {
	ii := target.NewInstrInfo(st)
	p := &pass{f: f, st: st, ii: ii, ri: ii.RI}
	p.run()
	return p.changed
}

func (p *pass) run() {
	// Output scaling is ignored by hardware in IEEE mode, and it flushes
	// signed zeros, so the fusion needs the no-signed-zeros guarantee from
	// either the function or the instruction.
	isIEEEMode := p.f.IEEEMode
	hasNSZ := p.f.NoSignedZeros

	for _, b := range p.f.DepthFirstBlocks() {
		// Last known value written to m0 within this block.
		var knownM0 *mir.Operand

		for i := 0; i < len(b.Instrs); {
			in := b.Instrs[i]
			var next *mir.Instr
			if i+1 < len(b.Instrs) {
				next = b.Instrs[i+1]
			}

			p.tryFoldSelect(in)

			if !p.ii.IsFoldableCopy(in) {
				if isIEEEMode || (!hasNSZ && !in.Nsz) || !p.tryFoldOMod(in) {
					p.tryFoldClamp(in)
				}

				if knownM0 != nil && in.ModifiesRegister(mir.RegM0) {
					knownM0 = nil
				}
				i = p.advance(b, next)
				continue
			}

			if in.Ops[0].Kind == mir.KindReg && in.Ops[0].Reg == mir.RegM0 {
				newM0 := &in.Ops[1]
				if knownM0 != nil && knownM0.Identical(newM0) {
					in.EraseFromParent()
					p.changed = true
					i = p.advance(b, next)
					continue
				}
				if newM0.IsReg() && newM0.Reg.IsPhysical() {
					// Another name may alias a physical source.
					knownM0 = nil
				} else {
					saved := *newM0
					knownM0 = &saved
				}
				i = p.advance(b, next)
				continue
			}

			opToFold := &in.Ops[1]
			foldingImm := opToFold.IsImmLike()

			if !foldingImm && !opToFold.IsReg() {
				i = p.advance(b, next)
				continue
			}
			if opToFold.IsReg() && !opToFold.Reg.IsVirtual() {
				i = p.advance(b, next)
				continue
			}

			// Never fold backwards through a physical register:
			//    %3 = COPY $vgpr0
			//    ...
			//    $vgpr0 = V_MOV_B32 1
			dst := &in.Ops[0]
			if dst.Kind != mir.KindReg || !dst.Reg.IsVirtual() {
				i = p.advance(b, next)
				continue
			}

			p.foldInstOperand(in, opToFold)
			i = p.advance(b, next)
		}
	}
}

// advance recomputes the iteration index from the instruction captured
// before processing. Folding only erases the current or earlier
// instructions and inserts before the current one, so the successor pointer
// stays valid.
func (p *pass) advance(b *mir.Block, next *mir.Instr) int {
	if next == nil {
		return len(b.Instrs)
	}
	if i := b.IndexOf(next); i >= 0 {
		return i
	}
	return len(b.Instrs)
}

// foldInstOperand propagates the value materialized by def into the uses of
// def's destination register.
func (p *pass) foldInstOperand(def *mir.Instr, opToFold *mir.Operand) {
	// New movs made from copies need their exec reads re-added, but doing
	// it during use iteration would disturb the scan; collect and defer.
	var copiesToReplace []*mir.Instr
	var foldList []foldCandidate

	dst := def.Ops[0].Reg

	if opToFold.IsImmLike() {
		// Inline-legal and frame-index-eligible uses all fold; of the
		// remaining literal uses only the first folds, since every literal
		// costs an extra dword per use site.
		var nonInlineUse *mir.Use

		uses := p.f.Uses(dst)
		for i := 0; i < len(uses); i++ {
			u := uses[i]

			// Folding may expose a constant expression; simplifying it can
			// invalidate the rest of the scan, so start over.
			if opToFold.IsImm() && p.tryConstantFoldOp(u.In, opToFold) {
				log.Debug("constant folded", "instr", u.In.String())
				uses = p.f.Uses(dst)
				i = -1
				foldList = foldList[:0]
				nonInlineUse = nil
				continue
			}

			// Inline legality is judged at the use position: a 32-bit mov
			// can materialize a constant consumed by a 16-bit operand, and
			// the bit patterns differ.
			if p.isInlineConstantIfFolded(u.In, u.Idx, opToFold) {
				p.foldOperand(opToFold, def, u.In, u.Idx, &foldList, &copiesToReplace)
			} else if p.frameIndexMayFold(u.In, u.Idx, opToFold) {
				p.foldOperand(opToFold, def, u.In, u.Idx, &foldList, &copiesToReplace)
			} else if nonInlineUse == nil {
				use := u
				nonInlineUse = &use
			}
		}

		if nonInlineUse != nil {
			p.foldOperand(opToFold, def, nonInlineUse.In, nonInlineUse.Idx, &foldList, &copiesToReplace)
		}
	} else {
		for _, u := range p.f.Uses(dst) {
			p.foldOperand(opToFold, def, u.In, u.Idx, &foldList, &copiesToReplace)
		}
	}

	for _, c := range copiesToReplace {
		c.AddImplicitOperands()
	}

	for i := range foldList {
		fc := &foldList[i]
		if fc.kind == foldReg && fc.reg.IsVirtual() && fc.src != nil {
			// A source computed under the current exec mask must not move
			// past a point where the mask may differ.
			if fc.src.ReadsRegister(mir.RegEXEC) &&
				execMayBeModifiedBeforeUse(fc.src, fc.use) {
				continue
			}
		}
		if p.updateOperand(fc) {
			p.changed = true
			if fc.kind == foldReg {
				p.f.ClearKillFlags(fc.reg)
			}
			log.Debug("folded source",
				"def", def.String(), "opNo", fc.opNo, "use", fc.use.String())
			p.tryFoldSelect(fc.use)
		} else if fc.commuted {
			// Fold failed; restore the original operand order.
			ci, cj, ok := p.ii.FindCommutedOpIndices(fc.use)
			if ok {
				p.ii.CommuteInstruction(p.f, fc.use, ci, cj)
			}
		}
	}
}

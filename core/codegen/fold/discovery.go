package fold

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/aquila-gpu/aquila/core/codegen/mir"
)

// execScanLimit bounds the walk when proving the execution mask unchanged
// between a definition and its use.
const execScanLimit = 20

// execMayBeModifiedBeforeUse conservatively reports whether the exec mask
// may change between def and use. Cross-block distances and long gaps are
// assumed unsafe.
func execMayBeModifiedBeforeUse(def, use *mir.Instr) bool {
	b := def.Parent
	if b == nil || use.Parent != b {
		return true
	}
	i := b.IndexOf(def)
	j := b.IndexOf(use)
	if i < 0 || j < i {
		return true
	}
	if j-i > execScanLimit {
		return true
	}
	for k := i + 1; k < j; k++ {
		if b.Instrs[k].ModifiesRegister(mir.RegEXEC) {
			return true
		}
	}
	return false
}

func (p *pass) useSafeToFold(use *mir.Instr, useOp *mir.Operand) bool {
	d := use.Desc()
	return !useOp.Undef && d != nil && !d.Has(mir.FlagPartialWrite)
}

// tryFoldAccumImm handles positions typed for the accumulator bank: a
// directly inline immediate folds immediately, and a register defined by a
// register-sequence whose every lane resolves through copy chains to the
// same inline immediate folds as a splat.
func (p *pass) tryFoldAccumImm(op *mir.Operand, use *mir.Instr, useOpIdx int, foldList *[]foldCandidate) bool {
	d := use.Desc()
	if d == nil || useOpIdx >= d.NumExplicit() {
		return false
	}
	if d.Ops[useOpIdx].Type != mir.TypeInlineAC32 {
		return false
	}

	if op.IsImm() && p.ii.IsInlineConstant(op.Imm, mir.TypeInlineAC32) &&
		p.ii.IsOperandLegal(p.f, use, useOpIdx, op) {
		use.Ops[useOpIdx].ChangeToImmediate(op.Imm)
		p.changed = true
		return true
	}

	if !op.IsReg() || !op.Reg.IsVirtual() {
		return false
	}
	if isUseInFoldList(*foldList, use) {
		return false
	}

	def := p.f.DefInstr(op.Reg)
	if def == nil || !def.IsRegSequence() {
		return false
	}

	// Lanes are (register, lane-index) pairs after the destination.
	var lanes []uint32
	var splatOp *mir.Operand
	var splatSrc *mir.Instr
	for i := 1; i+1 < len(def.Ops); i += 2 {
		sub := &def.Ops[i]
		if !sub.IsReg() || sub.Sub != mir.NoSubReg {
			return false
		}
		subDef := p.f.DefInstr(sub.Reg)
		for subDef != nil && !subDef.IsMoveImm() && p.ii.IsFoldableCopy(subDef) {
			if !subDef.Ops[1].IsReg() {
				break
			}
			subDef = p.f.DefInstr(subDef.Ops[1].Reg)
		}
		if subDef == nil || !subDef.IsMoveImm() || !subDef.Ops[1].IsImm() {
			return false
		}
		if i == 1 {
			if !p.ii.IsInlineConstant(subDef.Ops[1].Imm, mir.TypeInlineAC32) {
				return false
			}
			splatOp = &subDef.Ops[1]
			splatSrc = subDef
		}
		lanes = append(lanes, uint32(subDef.Ops[1].Imm))
	}
	if splatOp == nil || len(lanes)%2 != 0 {
		return false
	}

	// The tuple folds only when every 64-bit chunk splats the same value.
	wide := mir.ComposeWide(lanes)
	splat, ok := mir.IsSplat64(int64(wide[0]))
	if !ok {
		return false
	}
	for i := 1; i < len(lanes)/2; i++ {
		if wide[i] != wide[0] {
			return false // can only fold splat constants
		}
	}
	if !p.ii.IsOperandLegal(p.f, use, useOpIdx, splatOp) {
		return false
	}

	log.Debug("splat constant folds into accumulator operand",
		"imm", splat, "use", use.String())
	*foldList = append(*foldList, newFoldCandidate(use, useOpIdx, splatOp, splatSrc))
	return true
}

// foldOperand examines one use site of the value being propagated and either
// rewrites it immediately (frame index addressing, copy retargets, lane-read
// collapse) or records a fold candidate through the legality engine. src is
// the instruction defining the folded value.
func (p *pass) foldOperand(op *mir.Operand, src *mir.Instr, use *mir.Instr, useOpIdx int,
	foldList *[]foldCandidate, copiesToReplace *[]*mir.Instr) {

	useOp := &use.Ops[useOpIdx]
	if !p.useSafeToFold(use, useOp) {
		return
	}

	if useOp.IsReg() && op.IsReg() {
		if useOp.Implicit || useOp.Sub != mir.NoSubReg {
			return
		}
	}

	// A register sequence cannot hold a literal; fold into the uses of the
	// composed register instead.
	if use.IsRegSequence() {
		seqDst := use.Ops[0].Reg
		seqSub := mir.SubReg(use.Ops[useOpIdx+1].Imm)

		for _, u := range p.f.Uses(seqDst) {
			if p.tryFoldAccumImm(&use.Ops[0], u.In, u.Idx, foldList) {
				continue
			}
			if u.In.Ops[u.Idx].Sub != seqSub {
				continue
			}
			p.foldOperand(op, src, u.In, u.Idx, foldList, copiesToReplace)
		}
		return
	}

	if p.tryFoldAccumImm(op, use, useOpIdx, foldList) {
		return
	}

	if p.frameIndexMayFold(use, useOpIdx, op) {
		// Only a genuine stack access may absorb the frame index.
		soff := use.NamedOperand(mir.NameSOffset)
		if soff == nil || !soff.IsReg() ||
			(soff.Reg != p.f.ScratchOffsetReg && soff.Reg != p.f.StackPtrReg) {
			return
		}
		if srsrc := use.NamedOperand(mir.NameSRsrc); srsrc != nil && srsrc.Reg != p.f.ScratchRsrcReg {
			return
		}
		use.Ops[useOpIdx].ChangeToFrameIndex(op.Index)
		soff.Reg = p.f.StackPtrReg
		p.changed = true
		return
	}

	foldingImmLike := op.IsImmLike()

	if foldingImmLike && use.IsCopy() {
		dst := &use.Ops[0]
		// Folding into a copy of a physical register would hide an
		// initialization from the coalescer.
		if !dst.Reg.IsVirtual() {
			return
		}
		dstClass := p.f.RegClassOf(dst.Reg)

		// The scalar source behind a scalar-to-vector copy propagates
		// through to the copy's own uses.
		if srcOp := &use.Ops[1]; srcOp.IsReg() && srcOp.Reg.IsVirtual() {
			if p.f.RegClassOf(srcOp.Reg).IsScalar() && dstClass.IsVector() {
				copyUses := p.f.Uses(dst.Reg)
				for _, u := range copyUses {
					p.foldOperand(&use.Ops[1], use, u.In, u.Idx, foldList, copiesToReplace)
				}
			}
		}

		if dstClass == mir.AGPR32 && op.IsImm() &&
			p.ii.IsInlineConstant(op.Imm, mir.TypeInlineAC32) {
			use.SetOp(mir.OpV_ACCVGPR_WRITE_B32)
			use.Ops[1].ChangeToImmediate(op.Imm)
			*copiesToReplace = append(*copiesToReplace, use)
			p.changed = true
			return
		}

		// Rewrite the copy to the class mov so it can hold the constant.
		movOp, ok := p.ii.MovOpcodeFor(dstClass)
		if !ok {
			return
		}
		use.SetOp(movOp)
		for i := len(use.Ops) - 1; i > 0; i-- {
			if use.Ops[i].Implicit {
				use.RemoveOperand(i)
			}
		}
		*copiesToReplace = append(*copiesToReplace, use)
	} else {
		if use.IsCopy() && op.IsReg() && use.Ops[0].Reg.IsVirtual() &&
			(p.ri.IsVectorReg(p.f, use.Ops[0].Reg) || p.ri.IsAccumReg(p.f, use.Ops[0].Reg)) {
			if p.vectorCopyForward(op, use) {
				*copiesToReplace = append(*copiesToReplace, use)
				return
			}
		}

		if use.Op == mir.OpV_READFIRSTLANE_B32 && p.foldIntoLaneRead(op, src, use, useOpIdx) {
			return
		}

		// Never fold into variadic or implicit positions; they have no
		// declared register class.
		d := use.Desc()
		if d.Has(mir.FlagVariadic) || useOp.Implicit ||
			useOpIdx >= d.NumExplicit() || d.Ops[useOpIdx].Class == mir.ClassNone {
			return
		}
	}

	if !foldingImmLike {
		p.tryAddToFoldList(foldList, use, useOpIdx, op, src)
		return
	}

	// A 64-bit constant used through a lane selector folds as the selected
	// 32-bit half.
	srcDesc := src.Desc()
	if useOp.Sub != mir.NoSubReg && srcDesc != nil && len(srcDesc.Ops) > 0 &&
		srcDesc.Ops[0].Class.Bits() == 64 && op.IsImm() {
		if p.f.RegClassOf(useOp.Reg).Bits() != 64 {
			return
		}
		lo, hi := mir.SplitWide64(op.Imm)
		var half mir.Operand
		switch useOp.Sub {
		case mir.Sub0:
			half = mir.ImmOperand(int64(int32(lo)))
		case mir.Sub1:
			half = mir.ImmOperand(int64(int32(hi)))
		default:
			return
		}
		p.tryAddToFoldList(foldList, use, useOpIdx, &half, src)
		return
	}

	p.tryAddToFoldList(foldList, use, useOpIdx, op, src)
}

// vectorCopyForward redirects a vector-to-vector copy to read the folded
// source register directly, retargeting to the accumulator move forms when
// the copy crosses banks.
func (p *pass) vectorCopyForward(op *mir.Operand, use *mir.Instr) bool {
	srcOp := &use.Ops[1]
	if !srcOp.IsReg() || srcOp.Sub != mir.NoSubReg {
		return false
	}
	if !p.ri.IsVectorReg(p.f, srcOp.Reg) && !p.ri.IsAccumReg(p.f, srcOp.Reg) {
		return false
	}
	size := p.f.RegClassOf(srcOp.Reg).Bits()
	srcOp.SubstReg(op.Reg, op.Sub)
	srcOp.Kill = false
	p.changed = true
	if size != 32 {
		return true
	}
	dst := use.Ops[0].Reg
	switch {
	case p.ri.IsAccumReg(p.f, dst) && p.ri.IsVectorReg(p.f, srcOp.Reg):
		use.SetOp(mir.OpV_ACCVGPR_WRITE_B32)
	case p.ri.IsVectorReg(p.f, dst) && p.ri.IsAccumReg(p.f, srcOp.Reg):
		use.SetOp(mir.OpV_ACCVGPR_READ_B32)
	}
	return true
}

// foldIntoLaneRead collapses a lane read of a materialized constant to a
// scalar mov, or of a copied scalar register to a plain copy.
func (p *pass) foldIntoLaneRead(op *mir.Operand, src *mir.Instr, use *mir.Instr, useOpIdx int) bool {
	if useOpIdx != use.NamedIdx(mir.NameSrc0) {
		return false
	}
	if op.IsImmLike() {
		if !op.IsImm() && !op.IsFI() {
			return false
		}
		if execMayBeModifiedBeforeUse(src, use) {
			return false
		}
		use.SetOp(mir.OpS_MOV_B32)
		use.Ops[1].Sub = mir.NoSubReg
		if op.IsImm() {
			use.Ops[1].ChangeToImmediate(op.Imm)
		} else {
			use.Ops[1].ChangeToFrameIndex(op.Index)
		}
		// The scalar mov does not read exec.
		for i := len(use.Ops) - 1; i >= 2; i-- {
			use.RemoveOperand(i)
		}
		p.changed = true
		return true
	}

	if op.IsReg() && p.ri.IsScalarReg(p.f, op.Reg) {
		if execMayBeModifiedBeforeUse(src, use) {
			return false
		}
		use.SetOp(mir.OpCOPY)
		use.Ops[1].SubstReg(op.Reg, op.Sub)
		use.Ops[1].Kill = false
		for i := len(use.Ops) - 1; i >= 2; i-- {
			use.RemoveOperand(i)
		}
		p.changed = true
		return true
	}
	return false
}

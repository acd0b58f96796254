package fold

import (
	"github.com/aquila-gpu/aquila/core/codegen/mir"
)

// isInlineConstantIfFolded checks inline reach at a position, accounting for
// the opcode swap a fold into a mac's accumulate operand would trigger: the
// legality there depends on the mad/fma schema, not the mac one.
func (p *pass) isInlineConstantIfFolded(use *mir.Instr, opNo int, op *mir.Operand) bool {
	if p.ii.IsInlineConstantAt(use, opNo, op) {
		return true
	}
	madOp, ok := p.ii.MadEquivalent(use.Op)
	if !ok || opNo != use.NamedIdx(mir.NameSrc2) {
		return false
	}
	madDesc := mir.LookupDesc(madOp)
	if madDesc == nil || opNo >= madDesc.NumExplicit() || !op.IsImm() {
		return false
	}
	return p.ii.IsInlineConstant(op.Imm, madDesc.Ops[opNo].Type)
}

// frameIndexMayFold reports whether a frame index can land in the address
// base position of a scratch access.
func (p *pass) frameIndexMayFold(use *mir.Instr, opNo int, op *mir.Operand) bool {
	if !op.IsFI() {
		return false
	}
	d := use.Desc()
	return d != nil && d.Has(mir.FlagScratchAccess) && opNo == use.NamedIdx(mir.NameVAddr)
}

// tryAddToFoldList decides legality of op at position opNo of use and, when
// the position refuses it, searches for a legal rewriting: mac-to-mad
// retargeting, the immediate form of s_setreg, commutation, and the
// shrink-to-carry-e32 rescue. On success the candidate is appended.
func (p *pass) tryAddToFoldList(foldList *[]foldCandidate, use *mir.Instr, opNo int, op *mir.Operand, src *mir.Instr) bool {
	if p.ii.IsOperandLegal(p.f, use, opNo, op) {
		*foldList = append(*foldList, newFoldCandidate(use, opNo, op, src))
		return true
	}

	opc := use.Op

	// A fold into the accumulate operand may become legal once the mac is
	// its three-address equivalent.
	if madOp, ok := p.ii.MadEquivalent(opc); ok && opNo == use.NamedIdx(mir.NameSrc2) {
		use.SetOp(madOp)
		if p.tryAddToFoldList(foldList, use, opNo, op, src) {
			use.UntieOperand(opNo)
			return true
		}
		use.SetOp(opc)
	}

	if immOp, ok := p.ii.SetregImmForm(opc); ok && op.IsImm() {
		use.SetOp(immOp)
		*foldList = append(*foldList, newFoldCandidate(use, opNo, op, src))
		return true
	}

	// A second candidate on the same instruction must not commute it; that
	// would invalidate the operand index the first one recorded.
	if isUseInFoldList(*foldList, use) {
		return false
	}

	i, j, canCommute := p.ii.FindCommutedOpIndices(use)
	if !canCommute {
		return false
	}
	commuteOpNo := opNo
	if i == opNo {
		commuteOpNo = j
	} else if j == opNo {
		commuteOpNo = i
	}

	// The pivot must be a register on both sides; commuting an immediate
	// into the fold position would leave opNo pointing at the wrong value.
	if !use.Ops[i].IsReg() || !use.Ops[j].IsReg() {
		return false
	}

	if !p.ii.CommuteInstruction(p.f, use, i, j) {
		return false
	}

	if !p.ii.IsOperandLegal(p.f, use, commuteOpNo, op) {
		if p.ii.IsShrinkableCarryOp(opc) && op.IsImmLike() {
			// The constant bus only feeds one scalar source; the shrink is
			// sound only when the remaining source is a vector register.
			otherIdx := i
			if commuteOpNo == i {
				otherIdx = j
			}
			other := &use.Ops[otherIdx]
			if other.IsReg() && p.ri.IsVectorReg(p.f, other.Reg) {
				e32, _ := p.ii.E32FormOf(use.Op)
				fc := newFoldCandidate(use, commuteOpNo, op, src)
				fc.commuted = true
				fc.shrinkOp = e32
				*foldList = append(*foldList, fc)
				return true
			}
		}

		p.ii.CommuteInstruction(p.f, use, i, j)
		return false
	}

	fc := newFoldCandidate(use, commuteOpNo, op, src)
	fc.commuted = true
	*foldList = append(*foldList, fc)
	return true
}

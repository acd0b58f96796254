package fold

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/aquila-gpu/aquila/core/codegen/mir"
)

// vccLivenessWindow bounds the forward scan proving the carry register dead
// before a shrink.
const vccLivenessWindow = 16

// tryFoldPackedImm rewrites a literal bound for a packed two-lane position
// into a single 16-bit half plus operand-select bits, when the encoding
// allows it. Returns (applied, done): done means updateOperand is finished
// either way.
func (p *pass) tryFoldPackedImm(fc *foldCandidate) (bool, bool) {
	use := fc.use
	d := use.Desc()
	if d == nil || !d.Has(mir.FlagPacked) {
		return false, false
	}
	if !p.ii.IsInlineConstant(int64(int16(uint16(fc.imm))), mir.TypeInlineFP16) {
		return false, false
	}

	var modName mir.OpName
	switch fc.opNo {
	case use.NamedIdx(mir.NameSrc0):
		modName = mir.NameSrc0Mods
	case use.NamedIdx(mir.NameSrc1):
		modName = mir.NameSrc1Mods
	case use.NamedIdx(mir.NameSrc2):
		modName = mir.NameSrc2Mods
	default:
		return false, false
	}
	mod := use.NamedOperand(modName)
	if mod == nil {
		return false, false
	}
	if mod.Imm&mir.SrcModOpSel0 != 0 || mod.Imm&mir.SrcModOpSel1 == 0 {
		return false, true
	}
	if d.Ops[fc.opNo].Type != mir.TypeInlineV2FP16 {
		return false, false
	}

	imm := uint64(fc.imm)
	if imm <= 0xffff {
		// Fits the low half as is; the generic path handles it.
		return false, false
	}
	old := &use.Ops[fc.opNo]
	if imm&0xffff == 0 {
		// Only the high half is populated: select it into both lanes.
		mod.Imm |= mir.SrcModOpSel0
		mod.Imm &^= mir.SrcModOpSel1
		old.ChangeToImmediate(int64((imm >> 16) & 0xffff))
		return true, true
	}
	mod.Imm &^= mir.SrcModOpSel1
	old.ChangeToImmediate(int64(imm & 0xffff))
	return true, true
}

// applyShrink replaces the wide carry-out instruction with its e32 form.
// The carry moves to vcc, preserved through an explicit copy only when
// something reads it; the wide instruction is kept as a placeholder def so
// references into the use list stay valid.
func (p *pass) applyShrink(fc *foldCandidate) bool {
	use := fc.use
	b := use.Parent
	if b.RegLiveness(mir.RegVCC, use, vccLivenessWindow) != mir.LivenessDead {
		log.Debug("not shrinking due to vcc liveness", "instr", use.String())
		return false
	}

	dst0 := &use.Ops[0]
	dst1 := &use.Ops[1]

	var haveCarryUse bool
	for _, u := range p.f.Uses(dst1.Reg) {
		if !u.In.IsDebug() {
			haveCarryUse = true
			break
		}
	}

	newReg0 := p.f.NewVReg(p.f.RegClassOf(dst0.Reg))

	src0Idx := use.NamedIdx(mir.NameSrc0)
	src1Idx := use.NamedIdx(mir.NameSrc1)
	inst32 := mir.NewInstr(fc.shrinkOp,
		mir.RegOperand(dst0.Reg, true),
		use.Ops[src0Idx],
		use.Ops[src1Idx])
	b.InsertBefore(inst32, use)

	if haveCarryUse {
		carry := mir.NewInstr(mir.OpCOPY,
			mir.RegOperand(dst1.Reg, true),
			mir.RegOperand(mir.RegVCC, false))
		carry.Ops[1].Kill = true
		b.InsertBefore(carry, use)
	}

	// Neutralize the wide instruction instead of erasing it: candidates and
	// iterators may still reference it, and the placeholder def keeps the
	// register graph well formed.
	dst0.Reg = newReg0
	for i := len(use.Ops) - 1; i > 0; i-- {
		use.RemoveOperand(i)
	}
	use.SetOp(mir.OpIMPLICIT_DEF)

	if fc.commuted {
		i, j, ok := p.ii.FindCommutedOpIndices(inst32)
		if ok {
			p.ii.CommuteInstruction(p.f, inst32, i, j)
		}
	}
	return true
}

// updateOperand applies one accepted candidate to its use operand.
func (p *pass) updateOperand(fc *foldCandidate) bool {
	use := fc.use
	old := &use.Ops[fc.opNo]

	if fc.kind == foldImm {
		if applied, done := p.tryFoldPackedImm(fc); done {
			return applied
		}
	}

	if fc.isImmLike() && fc.needsShrink() {
		return p.applyShrink(fc)
	}

	switch fc.kind {
	case foldImm:
		old.ChangeToImmediate(fc.imm)
	case foldGlobal:
		old.ChangeToGlobal(fc.sym, fc.offset, fc.tflags)
	case foldFrameIndex:
		old.ChangeToFrameIndex(fc.fi)
	default:
		old.SubstReg(fc.reg, fc.sub)
		old.Undef = fc.undef
	}
	return true
}

package fold

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/aquila-gpu/aquila/core/codegen/mir"
)

// tryFoldSelect collapses a conditional select whose data operands are
// identical: the condition no longer matters, so the select becomes a copy
// or a move of the shared value.
func (p *pass) tryFoldSelect(in *mir.Instr) bool {
	if in.Op != mir.OpV_CNDMASK_B32_e32 && in.Op != mir.OpV_CNDMASK_B32_e64 {
		return false
	}
	src0Idx := in.NamedIdx(mir.NameSrc0)
	src1Idx := in.NamedIdx(mir.NameSrc1)
	src0 := &in.Ops[src0Idx]
	src1 := &in.Ops[src1Idx]
	if !src1.Identical(src0) {
		return false
	}
	src0ModIdx := in.NamedIdx(mir.NameSrc0Mods)
	src1ModIdx := in.NamedIdx(mir.NameSrc1Mods)
	if src0ModIdx >= 0 && in.Ops[src0ModIdx].Imm != 0 {
		return false
	}
	if src1ModIdx >= 0 && in.Ops[src1ModIdx].Imm != 0 {
		return false
	}

	newOp := mir.OpV_MOV_B32
	if src0.IsReg() {
		newOp = mir.OpCOPY
	}
	// Drop the condition, the duplicate source and the modifier slots, from
	// highest index down so the lower indexes stay valid.
	drop := []int{in.NamedIdx(mir.NameSrc2), src1Idx, src1ModIdx, src0ModIdx}
	for _, idx := range drop {
		if idx >= 0 {
			in.RemoveOperand(idx)
		}
	}
	mutateToCopyOp(in, newOp)
	log.Debug("select of identical values collapsed", "into", in.String())
	p.changed = true
	return true
}

// isClamp recognizes the canonical clamp shape: a max of a value with
// itself, clamp bit set, no output modifier, operand-select bits compatible
// with the lane width. Returns the shared source operand.
func (p *pass) isClamp(in *mir.Instr) *mir.Operand {
	switch in.Op {
	case mir.OpV_MAX_F32_e64, mir.OpV_MAX_F16_e64, mir.OpV_MAX_F64, mir.OpV_PK_MAX_F16:
	default:
		return nil
	}
	if clamp := in.NamedOperand(mir.NameClamp); clamp == nil || clamp.Imm == 0 {
		return nil
	}
	src0 := in.NamedOperand(mir.NameSrc0)
	src1 := in.NamedOperand(mir.NameSrc1)
	if !src0.IsReg() || !src1.IsReg() ||
		src0.Reg != src1.Reg || src0.Sub != src1.Sub ||
		src0.Sub != mir.NoSubReg {
		return nil
	}
	if omod := in.NamedOperand(mir.NameOMod); omod != nil && omod.Imm != 0 {
		return nil
	}
	src0Mods := in.NamedOperand(mir.NameSrc0Mods).Imm
	src1Mods := in.NamedOperand(mir.NameSrc1Mods).Imm

	// A cleared op_sel_hi on a packed max would need the producer to
	// swizzle its output, which it cannot.
	var unsetMods int64
	if in.Op == mir.OpV_PK_MAX_F16 {
		unsetMods = mir.SrcModOpSel1
	}
	if src0Mods != unsetMods && src1Mods != unsetMods {
		return nil
	}
	return src0
}

func (p *pass) tryFoldClamp(in *mir.Instr) bool {
	clampSrc := p.isClamp(in)
	if clampSrc == nil || !p.f.HasOneNonDebugUse(clampSrc.Reg) {
		return false
	}

	def := p.f.DefInstr(clampSrc.Reg)
	if def == nil {
		return false
	}

	// The clamp kinds must agree: a packed clamp cannot move onto a scalar
	// producer or vice versa.
	if !p.ii.HasFPClamp(def) || p.ii.ClampMask(def) != p.ii.ClampMask(in) {
		return false
	}

	defClamp := def.NamedOperand(mir.NameClamp)
	if defClamp == nil {
		return false
	}

	log.Debug("folding clamp", "into", def.String())

	// Clamp applies after omod, so an omod already on the producer is fine.
	defClamp.Imm = 1
	p.f.ReplaceRegWith(in.Ops[0].Reg, def.Ops[0].Reg)
	in.EraseFromParent()
	p.changed = true
	return true
}

// omodValue decodes a multiply constant into the output-modifier code for
// the multiply's width.
func omodValue(op mir.Opcode, val int64) int64 {
	switch op {
	case mir.OpV_MUL_F32_e64:
		switch uint32(val) {
		case 0x3f000000: // 0.5
			return mir.OModDiv2
		case 0x40000000: // 2.0
			return mir.OModMul2
		case 0x40800000: // 4.0
			return mir.OModMul4
		}
		return mir.OModNone
	case mir.OpV_MUL_F16_e64:
		switch uint16(val) {
		case 0x3800: // 0.5
			return mir.OModDiv2
		case 0x4000: // 2.0
			return mir.OModMul2
		case 0x4400: // 4.0
			return mir.OModMul4
		}
		return mir.OModNone
	}
	panic(fmt.Sprintf("omodValue: not a mul opcode: %v", op))
}

// isOMod recognizes an instruction expressible as a producer's output
// modifier: a multiply by 0.5/2/4, or a self-add standing in for a
// multiply by two. Output modifiers are ignored by hardware when denormal
// handling is enabled for the width, so those functions never match.
func (p *pass) isOMod(in *mir.Instr) (*mir.Operand, int64) {
	switch in.Op {
	case mir.OpV_MUL_F32_e64, mir.OpV_MUL_F16_e64:
		if (in.Op == mir.OpV_MUL_F32_e64 && p.f.FP32Denormals) ||
			(in.Op == mir.OpV_MUL_F16_e64 && p.f.FP16Denormals) {
			return nil, mir.OModNone
		}

		src0 := in.NamedOperand(mir.NameSrc0)
		src1 := in.NamedOperand(mir.NameSrc1)
		var regOp, immOp *mir.Operand
		switch {
		case src0.IsImm():
			immOp, regOp = src0, src1
		case src1.IsImm():
			immOp, regOp = src1, src0
		default:
			return nil, mir.OModNone
		}

		omod := omodValue(in.Op, immOp.Imm)
		if omod == mir.OModNone ||
			in.NamedOperand(mir.NameSrc0Mods).Imm != 0 ||
			in.NamedOperand(mir.NameSrc1Mods).Imm != 0 ||
			in.NamedOperand(mir.NameOMod).Imm != 0 ||
			in.NamedOperand(mir.NameClamp).Imm != 0 {
			return nil, mir.OModNone
		}
		return regOp, omod

	case mir.OpV_ADD_F32_e64, mir.OpV_ADD_F16_e64:
		if (in.Op == mir.OpV_ADD_F32_e64 && p.f.FP32Denormals) ||
			(in.Op == mir.OpV_ADD_F16_e64 && p.f.FP16Denormals) {
			return nil, mir.OModNone
		}

		// x + x doubles x, the canonical form of a multiply by two.
		src0 := in.NamedOperand(mir.NameSrc0)
		src1 := in.NamedOperand(mir.NameSrc1)
		if src0.IsReg() && src1.IsReg() && src0.Reg == src1.Reg &&
			src0.Sub == src1.Sub &&
			in.NamedOperand(mir.NameSrc0Mods).Imm == 0 &&
			in.NamedOperand(mir.NameSrc1Mods).Imm == 0 &&
			in.NamedOperand(mir.NameClamp).Imm == 0 &&
			in.NamedOperand(mir.NameOMod).Imm == 0 {
			return src0, mir.OModMul2
		}
		return nil, mir.OModNone
	}
	return nil, mir.OModNone
}

func (p *pass) tryFoldOMod(in *mir.Instr) bool {
	regOp, omod := p.isOMod(in)
	if omod == mir.OModNone || !regOp.IsReg() ||
		regOp.Sub != mir.NoSubReg ||
		!p.f.HasOneNonDebugUse(regOp.Reg) {
		return false
	}

	def := p.f.DefInstr(regOp.Reg)
	if def == nil {
		return false
	}
	defOMod := def.NamedOperand(mir.NameOMod)
	if defOMod == nil || defOMod.Imm != mir.OModNone {
		return false
	}

	// Clamp applies after omod; a clamp already on the producer would be
	// rescaled.
	if clamp := def.NamedOperand(mir.NameClamp); clamp != nil && clamp.Imm != 0 {
		return false
	}

	log.Debug("folding output modifier", "omod", omod, "into", def.String())

	defOMod.Imm = omod
	p.f.ReplaceRegWith(in.Ops[0].Reg, def.Ops[0].Reg)
	in.EraseFromParent()
	p.changed = true
	return true
}

package fold

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/aquila-gpu/aquila/core/codegen/mir"
)

// evalBinary computes the result of a two-source integer opcode. The
// hardware masks shift amounts to five bits.
func evalBinary(op mir.Opcode, lhs, rhs uint32) (int32, bool) {
	switch op {
	case mir.OpV_AND_B32_e64, mir.OpV_AND_B32_e32, mir.OpS_AND_B32:
		return int32(lhs & rhs), true
	case mir.OpV_OR_B32_e64, mir.OpV_OR_B32_e32, mir.OpS_OR_B32:
		return int32(lhs | rhs), true
	case mir.OpV_XOR_B32_e64, mir.OpV_XOR_B32_e32, mir.OpS_XOR_B32:
		return int32(lhs ^ rhs), true
	case mir.OpV_LSHL_B32_e64, mir.OpV_LSHL_B32_e32, mir.OpS_LSHL_B32:
		return int32(lhs << (rhs & 31)), true
	case mir.OpV_LSHLREV_B32_e64, mir.OpV_LSHLREV_B32_e32:
		return int32(rhs << (lhs & 31)), true
	case mir.OpV_LSHR_B32_e64, mir.OpV_LSHR_B32_e32, mir.OpS_LSHR_B32:
		return int32(lhs >> (rhs & 31)), true
	case mir.OpV_LSHRREV_B32_e64, mir.OpV_LSHRREV_B32_e32:
		return int32(rhs >> (lhs & 31)), true
	case mir.OpV_ASHR_I32_e64, mir.OpV_ASHR_I32_e32, mir.OpS_ASHR_I32:
		return int32(lhs) >> (rhs & 31), true
	case mir.OpV_ASHRREV_I32_e64, mir.OpV_ASHRREV_I32_e32:
		return int32(rhs) >> (lhs & 31), true
	}
	return 0, false
}

func movOpc(isScalar bool) mir.Opcode {
	if isScalar {
		return mir.OpS_MOV_B32
	}
	return mir.OpV_MOV_B32
}

// mutateToCopyOp retargets in and drops implicit operands the new schema no
// longer declares, e.g. the scc def an s_and_b32 loses when it becomes a
// move.
func mutateToCopyOp(in *mir.Instr, op mir.Opcode) {
	in.SetOp(op)
	in.StripImplicits()
	in.AddImplicitOperands()
}

// immOrMaterializedImm resolves op through a materializing move: a register
// whose single definition is a move-immediate reads as that immediate.
func (p *pass) immOrMaterializedImm(op *mir.Operand) *mir.Operand {
	if op.IsReg() && op.Sub == mir.NoSubReg && op.Reg.IsVirtual() {
		if def := p.f.DefInstr(op.Reg); def != nil && def.IsMoveImm() {
			if src := &def.Ops[1]; src.IsImm() {
				return src
			}
		}
	}
	return op
}

// tryConstantFoldOp simplifies use once immOp lands in it: fully-constant
// bitwise and shift ops collapse to a move of the computed value, and the
// identity/absorbing elements of and/or/xor collapse to copies or moves. The
// instruction is mutated in place.
func (p *pass) tryConstantFoldOp(use *mir.Instr, immOp *mir.Operand) bool {
	opc := use.Op
	if opc == mir.OpV_NOT_B32_e64 || opc == mir.OpV_NOT_B32_e32 || opc == mir.OpS_NOT_B32 {
		use.Ops[1].ChangeToImmediate(^immOp.Imm)
		mutateToCopyOp(use, movOpc(opc == mir.OpS_NOT_B32))
		p.changed = true
		return true
	}

	src1Idx := use.NamedIdx(mir.NameSrc1)
	if src1Idx < 0 {
		return false
	}
	src0Idx := use.NamedIdx(mir.NameSrc0)
	src0 := p.immOrMaterializedImm(&use.Ops[src0Idx])
	src1 := p.immOrMaterializedImm(&use.Ops[src1Idx])

	if !src0.IsImm() && !src1.IsImm() {
		return false
	}

	if use.Op == mir.OpV_LSHL_OR_B32 && src0.IsImm() && src0.Imm == 0 {
		// v_lshl_or_b32 0, X, Y reduces to its or operand.
		useCopy := use.NamedOperand(mir.NameSrc2).IsReg()
		use.RemoveOperand(src1Idx)
		use.RemoveOperand(src0Idx)
		if useCopy {
			mutateToCopyOp(use, mir.OpCOPY)
		} else {
			mutateToCopyOp(use, mir.OpV_MOV_B32)
		}
		p.changed = true
		return true
	}

	if src0.IsImm() && src1.IsImm() {
		newImm, ok := evalBinary(opc, uint32(src0.Imm), uint32(src1.Imm))
		if !ok {
			return false
		}
		isSGPR := p.ri.IsScalarReg(p.f, use.Ops[0].Reg)

		// src0 may belong to a different instruction; mutate the operand
		// inside use, not the resolved one.
		use.Ops[src0Idx].ChangeToImmediate(int64(newImm))
		use.RemoveOperand(src1Idx)
		mutateToCopyOp(use, movOpc(isSGPR))
		log.Debug("constant folded", "into", use.String())
		p.changed = true
		return true
	}

	if d := use.Desc(); d == nil || !d.Has(mir.FlagCommutable) {
		return false
	}

	if src0.IsImm() && !src1.IsImm() {
		src0, src1 = src1, src0
		src0Idx, src1Idx = src1Idx, src0Idx
	}

	src1Val := int32(src1.Imm)
	switch opc {
	case mir.OpV_OR_B32_e64, mir.OpV_OR_B32_e32, mir.OpS_OR_B32:
		switch src1Val {
		case 0:
			// y = or x, 0 => y = copy x
			use.RemoveOperand(src1Idx)
			mutateToCopyOp(use, mir.OpCOPY)
		case -1:
			// y = or x, -1 => y = mov -1
			use.RemoveOperand(src0Idx)
			if src0Idx < src1Idx {
				src1Idx--
			}
			use.Ops[src1Idx].ChangeToImmediate(-1)
			mutateToCopyOp(use, movOpc(opc == mir.OpS_OR_B32))
		default:
			return false
		}
		p.changed = true
		return true

	case mir.OpV_AND_B32_e64, mir.OpV_AND_B32_e32, mir.OpS_AND_B32:
		switch src1Val {
		case 0:
			// y = and x, 0 => y = mov 0
			use.RemoveOperand(src0Idx)
			if src0Idx < src1Idx {
				src1Idx--
			}
			use.Ops[src1Idx].ChangeToImmediate(0)
			mutateToCopyOp(use, movOpc(opc == mir.OpS_AND_B32))
		case -1:
			// y = and x, -1 => y = copy x
			use.RemoveOperand(src1Idx)
			mutateToCopyOp(use, mir.OpCOPY)
		default:
			return false
		}
		p.changed = true
		return true

	case mir.OpV_XOR_B32_e64, mir.OpV_XOR_B32_e32, mir.OpS_XOR_B32:
		if src1Val == 0 {
			// y = xor x, 0 => y = copy x
			use.RemoveOperand(src1Idx)
			mutateToCopyOp(use, mir.OpCOPY)
			p.changed = true
			return true
		}
	}

	return false
}

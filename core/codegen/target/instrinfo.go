package target

import (
	"github.com/aquila-gpu/aquila/core/codegen/mir"
)

// InstrInfo answers per-instruction legality and rewrite questions. It is
// stateless apart from the subtarget capability flags.
type InstrInfo struct {
	ST *Subtarget
	RI *RegInfo
}

func NewInstrInfo(st *Subtarget) *InstrInfo {
	return &InstrInfo{ST: st, RI: &RegInfo{}}
}

// Inline constant patterns. A 32-bit operand position encodes small signed
// integers and a fixed set of float values directly in the source field;
// anything else is a literal and costs an extra dword.
const inv2PiFP32 = 0x3e22f983
const inv2PiFP16 = 0x3118

func inlineInt(v int64) bool { return v >= -16 && v <= 64 }

func inlineFP32Pattern(bits uint32) bool {
	switch bits {
	case 0x00000000, // 0.0
		0x3f000000, 0xbf000000, // +-0.5
		0x3f800000, 0xbf800000, // +-1.0
		0x40000000, 0xc0000000, // +-2.0
		0x40800000, 0xc0800000: // +-4.0
		return true
	}
	return false
}

func inlineFP16Pattern(bits uint16) bool {
	switch bits {
	case 0x0000,
		0x3800, 0xb800,
		0x3c00, 0xbc00,
		0x4000, 0xc000,
		0x4400, 0xc400:
		return true
	}
	return false
}

func inlineFP64Pattern(bits uint64) bool {
	if uint32(bits) != 0 {
		return false
	}
	switch uint32(bits >> 32) {
	case 0x00000000,
		0x3fe00000, 0xbfe00000,
		0x3ff00000, 0xbff00000,
		0x40000000, 0xc0000000,
		0x40100000, 0xc0100000:
		return true
	}
	return false
}

// IsInlineConstant reports whether imm encodes inline at a position of the
// given operand type.
func (ii *InstrInfo) IsInlineConstant(imm int64, ty mir.OperandType) bool {
	switch ty {
	case mir.TypeImmInt32, mir.TypeInlineInt32, mir.TypeInlineAC32:
		if inlineInt(imm) {
			return true
		}
		if inlineFP32Pattern(uint32(imm)) {
			return true
		}
		return ii.ST.HasInv2PiInlineImm && uint32(imm) == inv2PiFP32
	case mir.TypeInlineFP32:
		if inlineInt(imm) || inlineFP32Pattern(uint32(imm)) {
			return true
		}
		return ii.ST.HasInv2PiInlineImm && uint32(imm) == inv2PiFP32
	case mir.TypeInlineFP16:
		if inlineInt(imm) || inlineFP16Pattern(uint16(imm)) {
			return true
		}
		return ii.ST.HasInv2PiInlineImm && uint16(imm) == inv2PiFP16
	case mir.TypeImmInt64, mir.TypeInlineFP64:
		return inlineInt(imm) || inlineFP64Pattern(uint64(imm))
	case mir.TypeInlineV2FP16:
		lo := uint16(imm)
		hi := uint16(uint32(imm) >> 16)
		if lo == hi && (inlineFP16Pattern(lo) || (ii.ST.HasInv2PiInlineImm && lo == inv2PiFP16)) {
			return true
		}
		return inlineInt(imm)
	}
	return false
}

// IsInlineConstantAt reports whether the immediate-like operand op encodes
// inline at position idx of in. Frame indexes and globals never do; their
// value is unknown until frame lowering or relocation.
func (ii *InstrInfo) IsInlineConstantAt(in *mir.Instr, idx int, op *mir.Operand) bool {
	if !op.IsImm() {
		return false
	}
	d := in.Desc()
	if d == nil || idx >= d.NumExplicit() {
		return false
	}
	return ii.IsInlineConstant(op.Imm, d.Ops[idx].Type)
}

// UsesConstantBus reports whether operand idx of in occupies the scalar
// constant bus: a scalar-bank register source or a literal on a vector ALU
// instruction.
func (ii *InstrInfo) UsesConstantBus(f *mir.Func, in *mir.Instr, idx int) bool {
	d := in.Desc()
	if d == nil || idx >= len(in.Ops) || idx >= d.NumExplicit() {
		return false
	}
	if !d.Has(mir.FlagVALU) {
		return false
	}
	o := &in.Ops[idx]
	switch {
	case o.IsReg():
		if o.Def {
			return false
		}
		return f.RegClassOf(o.Reg).IsScalar()
	case o.IsImmLike():
		if d.Ops[idx].Type == mir.TypeImmOnly {
			return false
		}
		return !ii.IsInlineConstantAt(in, idx, o)
	}
	return false
}

// constantBusInUse reports whether any source position other than except
// already occupies the constant bus.
func (ii *InstrInfo) constantBusInUse(f *mir.Func, in *mir.Instr, except int) bool {
	d := in.Desc()
	for i := 0; i < d.NumExplicit() && i < len(in.Ops); i++ {
		if i == except {
			continue
		}
		if ii.UsesConstantBus(f, in, i) {
			return true
		}
	}
	return false
}

// hasOtherLiteral reports whether a source position other than except holds
// a non-inline literal. At most one literal dword fits in any encoding.
func (ii *InstrInfo) hasOtherLiteral(f *mir.Func, in *mir.Instr, except int) bool {
	d := in.Desc()
	for i := 0; i < d.NumExplicit() && i < len(in.Ops); i++ {
		if i == except {
			continue
		}
		o := &in.Ops[i]
		if !o.IsImmLike() || d.Ops[i].Type == mir.TypeImmOnly {
			continue
		}
		if !ii.IsInlineConstantAt(in, i, o) {
			return true
		}
	}
	return false
}

// IsOperandLegal reports whether op could replace operand idx of in without
// breaking the encoding: register class compatibility, inline-constant
// reach, the one-literal-dword limit and the constant bus restriction.
func (ii *InstrInfo) IsOperandLegal(f *mir.Func, in *mir.Instr, idx int, op *mir.Operand) bool {
	d := in.Desc()
	if d == nil || idx >= d.NumExplicit() {
		return false
	}
	info := d.Ops[idx]

	if op.IsReg() {
		if info.Type == mir.TypeImmOnly {
			return false
		}
		rc := info.Class
		if rc == mir.ClassNone {
			return true
		}
		c := ii.RI.ClassOf(f, op.Reg, op.Sub)
		if c == mir.ClassNone || c.Bits() != rc.Bits() {
			return false
		}
		if rc.IsScalar() {
			return c.IsScalar()
		}
		if rc.IsAccum() {
			return c.IsAccum()
		}
		// Vector position: vector registers always fit; a scalar register
		// rides the constant bus and must be its only occupant.
		if c.IsScalar() {
			return !ii.constantBusInUse(f, in, idx) && !ii.hasOtherLiteral(f, in, idx)
		}
		return c.IsVector()
	}

	// Immediate-like operand. A position tied to a def must stay a
	// register.
	if info.TiedTo >= 0 {
		return false
	}
	switch info.Type {
	case mir.TypeReg:
		return false
	case mir.TypeImmOnly:
		return op.IsImm()
	case mir.TypeImmInt32, mir.TypeImmInt64:
		if ii.IsInlineConstantAt(in, idx, op) {
			return true
		}
		// A literal occupies both the literal dword and, on VALU, the
		// constant bus.
		if ii.hasOtherLiteral(f, in, idx) {
			return false
		}
		if d.Has(mir.FlagVALU) && ii.constantBusInUse(f, in, idx) {
			return false
		}
		return true
	default:
		// Inline-only position.
		if ii.IsInlineConstantAt(in, idx, op) {
			return true
		}
		if !ii.ST.HasVOP3Literal || !d.Has(mir.FlagVOP3) {
			return false
		}
		return !ii.hasOtherLiteral(f, in, idx) && !ii.constantBusInUse(f, in, idx)
	}
}

// FindCommutedOpIndices returns the swappable source positions of a
// commutable instruction.
func (ii *InstrInfo) FindCommutedOpIndices(in *mir.Instr) (int, int, bool) {
	d := in.Desc()
	if d == nil || !d.Has(mir.FlagCommutable) {
		return -1, -1, false
	}
	i := d.NamedIdx(mir.NameSrc0)
	j := d.NamedIdx(mir.NameSrc1)
	if i < 0 || j < 0 {
		return -1, -1, false
	}
	return i, j, true
}

// CommuteInstruction swaps the two source positions in place, along with
// their modifier slots when the encoding has them. It refuses when a
// swapped operand would not be accepted at its new position.
func (ii *InstrInfo) CommuteInstruction(f *mir.Func, in *mir.Instr, i, j int) bool {
	d := in.Desc()
	ci, cj, ok := ii.FindCommutedOpIndices(in)
	if !ok || !(i == ci && j == cj) && !(i == cj && j == ci) {
		return false
	}
	if i >= len(in.Ops) || j >= len(in.Ops) {
		return false
	}
	oi, oj := in.Ops[i], in.Ops[j]
	if oi.IsImmLike() && d.Ops[j].Type == mir.TypeReg {
		return false
	}
	if oj.IsImmLike() && d.Ops[i].Type == mir.TypeReg {
		return false
	}
	in.Ops[i], in.Ops[j] = oj, oi
	mi := d.NamedIdx(mir.NameSrc0Mods)
	mj := d.NamedIdx(mir.NameSrc1Mods)
	if mi >= 0 && mj >= 0 {
		in.Ops[mi], in.Ops[mj] = in.Ops[mj], in.Ops[mi]
	}
	return true
}

// MadEquivalent returns the three-address form of a two-address
// multiply-accumulate opcode.
func (ii *InstrInfo) MadEquivalent(op mir.Opcode) (mir.Opcode, bool) {
	switch op {
	case mir.OpV_MAC_F32_e64:
		return mir.OpV_MAD_F32, true
	case mir.OpV_FMAC_F32_e64:
		return mir.OpV_FMA_F32, true
	case mir.OpV_MAC_F16_e64:
		if !ii.ST.HasMadF16 {
			return mir.OpInvalid, false
		}
		return mir.OpV_MAD_F16, true
	case mir.OpV_FMAC_F16_e64:
		return mir.OpV_FMA_F16, true
	}
	return mir.OpInvalid, false
}

// E32FormOf returns the 32-bit encoding of a shrinkable 64-bit add/sub,
// which frees the explicit carry-out by writing vcc implicitly.
func (ii *InstrInfo) E32FormOf(op mir.Opcode) (mir.Opcode, bool) {
	switch op {
	case mir.OpV_ADD_I32_e64:
		return mir.OpV_ADD_I32_e32, true
	case mir.OpV_SUB_I32_e64:
		return mir.OpV_SUB_I32_e32, true
	case mir.OpV_SUBREV_I32_e64:
		return mir.OpV_SUBREV_I32_e32, true
	}
	return mir.OpInvalid, false
}

// IsShrinkableCarryOp reports whether op is an add/sub form with an
// explicit carry-out destination.
func (ii *InstrInfo) IsShrinkableCarryOp(op mir.Opcode) bool {
	_, ok := ii.E32FormOf(op)
	return ok
}

// SetregImmForm returns the immediate encoding of a hardware-register
// write.
func (ii *InstrInfo) SetregImmForm(op mir.Opcode) (mir.Opcode, bool) {
	if op == mir.OpS_SETREG_B32 {
		return mir.OpS_SETREG_IMM32_B32, true
	}
	return mir.OpInvalid, false
}

// MovOpcodeFor returns the materializing move for a destination class.
func (ii *InstrInfo) MovOpcodeFor(c mir.RegClass) (mir.Opcode, bool) {
	switch c {
	case mir.VGPR32:
		return mir.OpV_MOV_B32, true
	case mir.SGPR32:
		return mir.OpS_MOV_B32, true
	case mir.SGPR64:
		return mir.OpS_MOV_B64, true
	case mir.AGPR32:
		return mir.OpV_ACCVGPR_WRITE_B32, true
	}
	return mir.OpInvalid, false
}

// IsFoldableCopy reports whether in moves a value in a form the folder can
// propagate: a register-class move or a plain copy, of either a constant or
// a register.
func (ii *InstrInfo) IsFoldableCopy(in *mir.Instr) bool {
	switch in.Op {
	case mir.OpCOPY, mir.OpV_MOV_B32, mir.OpS_MOV_B32, mir.OpS_MOV_B64, mir.OpV_ACCVGPR_WRITE_B32:
	default:
		return false
	}
	if len(in.Ops) < 2 {
		return false
	}
	src := &in.Ops[1]
	if src.Implicit {
		return false
	}
	return src.IsImmLike() || src.IsReg()
}

// HasFPClamp reports whether the opcode carries a float clamp bit.
func (ii *InstrInfo) HasFPClamp(in *mir.Instr) bool {
	d := in.Desc()
	return d != nil && d.Has(mir.FlagVALU) && d.NamedIdx(mir.NameClamp) >= 0
}

// ClampMask returns which result lanes the clamp bit saturates: both halves
// of a packed op, otherwise the full value.
func (ii *InstrInfo) ClampMask(in *mir.Instr) int64 {
	d := in.Desc()
	if d != nil && d.Has(mir.FlagPacked) {
		return 3
	}
	return 1
}

// HasOMod reports whether the opcode carries an output-modifier field.
func (ii *InstrInfo) HasOMod(in *mir.Instr) bool {
	d := in.Desc()
	return d != nil && d.NamedIdx(mir.NameOMod) >= 0
}

// HasModifiers reports whether the encoding carries source-modifier fields.
func (ii *InstrInfo) HasModifiers(in *mir.Instr) bool {
	d := in.Desc()
	return d != nil && d.NamedIdx(mir.NameSrc0Mods) >= 0
}

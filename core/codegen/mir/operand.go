package mir

import "fmt"

// OperandKind discriminates the Operand union.
type OperandKind uint8

const (
	KindReg OperandKind = iota
	KindImm
	KindFrameIndex
	KindGlobal
)

// Source modifier bits carried by the *_mods immediate slots.
const (
	SrcModNeg    int64 = 1 << 0
	SrcModAbs    int64 = 1 << 1
	SrcModOpSel0 int64 = 1 << 2
	SrcModOpSel1 int64 = 1 << 3
)

// Output modifier codes carried by the omod immediate slot.
const (
	OModNone int64 = 0
	OModMul2 int64 = 1
	OModMul4 int64 = 2
	OModDiv2 int64 = 3
)

// Operand is one slot of an instruction: a register reference, an
// immediate, a stack frame slot, or a global symbol address. Exactly one
// variant is active, selected by Kind.
type Operand struct {
	Kind OperandKind

	// KindReg
	Reg      Reg
	Sub      SubReg
	Def      bool
	Implicit bool
	Undef    bool
	Kill     bool
	TiedTo   int8 // operand index this register is tied to, -1 if untied

	// KindImm
	Imm int64

	// KindFrameIndex
	Index int

	// KindGlobal
	Sym         string
	Offset      int64
	TargetFlags uint8
}

func RegOperand(r Reg, isDef bool) Operand {
	return Operand{Kind: KindReg, Reg: r, Def: isDef, TiedTo: -1}
}

func SubRegOperand(r Reg, sub SubReg) Operand {
	return Operand{Kind: KindReg, Reg: r, Sub: sub, TiedTo: -1}
}

func ImmOperand(v int64) Operand {
	return Operand{Kind: KindImm, Imm: v, TiedTo: -1}
}

func FrameIndexOperand(idx int) Operand {
	return Operand{Kind: KindFrameIndex, Index: idx, TiedTo: -1}
}

func GlobalOperand(sym string, off int64, flags uint8) Operand {
	return Operand{Kind: KindGlobal, Sym: sym, Offset: off, TargetFlags: flags, TiedTo: -1}
}

func (o *Operand) IsReg() bool    { return o.Kind == KindReg }
func (o *Operand) IsImm() bool    { return o.Kind == KindImm }
func (o *Operand) IsFI() bool     { return o.Kind == KindFrameIndex }
func (o *Operand) IsGlobal() bool { return o.Kind == KindGlobal }

// IsImmLike reports whether the operand is a compile-time-known literal:
// an immediate, a frame slot, or a global address.
func (o *Operand) IsImmLike() bool {
	return o.Kind == KindImm || o.Kind == KindFrameIndex || o.Kind == KindGlobal
}

// ChangeToImmediate rewrites the operand in place to an immediate,
// clearing the register payload.
func (o *Operand) ChangeToImmediate(v int64) {
	*o = Operand{Kind: KindImm, Imm: v, TiedTo: -1}
}

// ChangeToFrameIndex rewrites the operand in place to a frame slot.
func (o *Operand) ChangeToFrameIndex(idx int) {
	*o = Operand{Kind: KindFrameIndex, Index: idx, TiedTo: -1}
}

// ChangeToGlobal rewrites the operand in place to a global address.
func (o *Operand) ChangeToGlobal(sym string, off int64, flags uint8) {
	*o = Operand{Kind: KindGlobal, Sym: sym, Offset: off, TargetFlags: flags, TiedTo: -1}
}

// ChangeToRegister rewrites the operand in place to a register use or def.
func (o *Operand) ChangeToRegister(r Reg, isDef bool) {
	*o = Operand{Kind: KindReg, Reg: r, Def: isDef, TiedTo: -1}
}

// SubstReg redirects a register operand to a new register and sub-register.
func (o *Operand) SubstReg(r Reg, sub SubReg) {
	o.Reg = r
	o.Sub = sub
}

// Identical reports whether two operands denote the same value. Liveness
// flags (kill, undef) do not participate; they are bookkeeping, not value.
func (o *Operand) Identical(p *Operand) bool {
	if o.Kind != p.Kind {
		return false
	}
	switch o.Kind {
	case KindReg:
		return o.Reg == p.Reg && o.Sub == p.Sub && o.Def == p.Def
	case KindImm:
		return o.Imm == p.Imm
	case KindFrameIndex:
		return o.Index == p.Index
	case KindGlobal:
		return o.Sym == p.Sym && o.Offset == p.Offset && o.TargetFlags == p.TargetFlags
	}
	return false
}

func (o *Operand) String() string {
	switch o.Kind {
	case KindReg:
		s := o.Reg.String() + o.Sub.String()
		if o.Def {
			s = "def " + s
		}
		if o.Implicit {
			s = "implicit " + s
		}
		if o.Undef {
			s += ":undef"
		}
		if o.Kill {
			s += ":kill"
		}
		return s
	case KindImm:
		return fmt.Sprintf("%d", o.Imm)
	case KindFrameIndex:
		return fmt.Sprintf("fi#%d", o.Index)
	case KindGlobal:
		if o.Offset != 0 {
			return fmt.Sprintf("@%s+%d", o.Sym, o.Offset)
		}
		return "@" + o.Sym
	}
	return "?"
}

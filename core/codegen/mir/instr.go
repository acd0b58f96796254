package mir

import (
	"fmt"
	"strings"
)

// Instr is one machine instruction: an opcode tag plus an ordered operand
// list. Explicit operands follow the opcode's schema; implicit reads and
// writes from the descriptor are materialized at the tail of Ops when the
// instruction is created. Instructions are mutable in place: operands may be
// replaced, added or removed, and the opcode tag may be retargeted to a
// related opcode whose schema the current operand list still satisfies.
type Instr struct {
	Op     Opcode
	Ops    []Operand
	Parent *Block

	// Nsz marks the instruction as carrying the no-signed-zeros fast-math
	// flag.
	Nsz bool
}

// NewInstr builds a detached instruction: explicit operands as given, then
// the descriptor's implicit uses and defs, with tied-operand constraints
// applied from the schema.
func NewInstr(op Opcode, ops ...Operand) *Instr {
	in := &Instr{Op: op, Ops: append([]Operand(nil), ops...)}
	d := in.Desc()
	if d != nil {
		for i := range in.Ops {
			if i < len(d.Ops) {
				in.Ops[i].TiedTo = d.Ops[i].TiedTo
			}
		}
	}
	in.AddImplicitOperands()
	return in
}

func (in *Instr) Desc() *Desc {
	return LookupDesc(in.Op)
}

func (in *Instr) NumOperands() int { return len(in.Ops) }

func (in *Instr) Operand(i int) *Operand { return &in.Ops[i] }

// NamedIdx returns the operand index holding the named role for the current
// opcode, or -1.
func (in *Instr) NamedIdx(name OpName) int {
	d := in.Desc()
	if d == nil {
		return -1
	}
	return d.NamedIdx(name)
}

// NamedOperand returns the operand holding the named role, or nil.
func (in *Instr) NamedOperand(name OpName) *Operand {
	i := in.NamedIdx(name)
	if i < 0 || i >= len(in.Ops) {
		return nil
	}
	return &in.Ops[i]
}

// SetOp retargets the instruction to a related opcode. The operand list is
// left as is; the caller is responsible for reshaping it to the new schema
// (RemoveOperand, StripImplicits).
func (in *Instr) SetOp(op Opcode) {
	in.Op = op
}

func (in *Instr) AddOperand(o Operand) {
	in.Ops = append(in.Ops, o)
}

// RemoveOperand deletes the operand at index i, shifting later operands
// down.
func (in *Instr) RemoveOperand(i int) {
	in.Ops = append(in.Ops[:i], in.Ops[i+1:]...)
	for j := range in.Ops {
		if int(in.Ops[j].TiedTo) == i {
			in.Ops[j].TiedTo = -1
		} else if int(in.Ops[j].TiedTo) > i {
			in.Ops[j].TiedTo--
		}
	}
}

// AddImplicitOperands appends the descriptor's implicit uses and defs that
// are not already present.
func (in *Instr) AddImplicitOperands() {
	d := in.Desc()
	if d == nil {
		return
	}
	for _, r := range d.ImpUses {
		if !in.hasImplicit(r, false) {
			in.Ops = append(in.Ops, Operand{Kind: KindReg, Reg: r, Implicit: true, TiedTo: -1})
		}
	}
	for _, r := range d.ImpDefs {
		if !in.hasImplicit(r, true) {
			in.Ops = append(in.Ops, Operand{Kind: KindReg, Reg: r, Implicit: true, Def: true, TiedTo: -1})
		}
	}
}

func (in *Instr) hasImplicit(r Reg, isDef bool) bool {
	for i := range in.Ops {
		o := &in.Ops[i]
		if o.Implicit && o.Kind == KindReg && o.Reg == r && o.Def == isDef {
			return true
		}
	}
	return false
}

// StripImplicits removes any leftover operands beyond what the current
// descriptor declares. Used after retargeting the opcode, e.g. an s_and_b32
// rewritten to a move no longer produces its implicit scc def.
func (in *Instr) StripImplicits() {
	d := in.Desc()
	if d == nil {
		return
	}
	keep := d.NumExplicit() + len(d.ImpUses) + len(d.ImpDefs)
	for i := len(in.Ops) - 1; i >= keep; i-- {
		in.RemoveOperand(i)
	}
}

// UntieOperand releases the tied-register constraint on operand i.
func (in *Instr) UntieOperand(i int) {
	if i < 0 || i >= len(in.Ops) {
		return
	}
	in.Ops[i].TiedTo = -1
}

// ReadsRegister reports whether any use operand references r.
func (in *Instr) ReadsRegister(r Reg) bool {
	for i := range in.Ops {
		o := &in.Ops[i]
		if o.Kind == KindReg && !o.Def && o.Reg == r {
			return true
		}
	}
	return false
}

// ModifiesRegister reports whether any def operand references r.
func (in *Instr) ModifiesRegister(r Reg) bool {
	for i := range in.Ops {
		o := &in.Ops[i]
		if o.Kind == KindReg && o.Def && o.Reg == r {
			return true
		}
	}
	return false
}

func (in *Instr) IsCopy() bool { return in.Op == OpCOPY }

func (in *Instr) IsRegSequence() bool {
	d := in.Desc()
	return d != nil && d.Has(FlagRegSequence)
}

// IsMoveImm reports whether the instruction materializes a constant into a
// register (the opcode is a move and its source operand is an immediate).
func (in *Instr) IsMoveImm() bool {
	d := in.Desc()
	return d != nil && d.Has(FlagMoveImm) && len(in.Ops) > 1 && in.Ops[1].IsImm()
}

func (in *Instr) IsDebug() bool {
	d := in.Desc()
	return d != nil && d.Has(FlagDebug)
}

// EraseFromParent unlinks the instruction from its block.
func (in *Instr) EraseFromParent() {
	if in.Parent != nil {
		in.Parent.Remove(in)
	}
}

func (in *Instr) String() string {
	var sb strings.Builder
	sb.WriteString(in.Op.String())
	for i := range in.Ops {
		if i == 0 {
			sb.WriteString(" ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(in.Ops[i].String())
	}
	return sb.String()
}

// GoString aids test failure output.
func (in *Instr) GoString() string {
	return fmt.Sprintf("{%s}", in.String())
}

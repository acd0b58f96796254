package mir

import (
	"fmt"
)

// Verify checks structural sanity of the function: parent links, CFG edge
// symmetry, schema shape of explicit operands and single definition of each
// virtual register. It returns the first problem found.
func Verify(f *Func) error {
	defs := make(map[Reg]*Instr)
	for _, b := range f.Blocks {
		for _, s := range b.Succs {
			if !containsBlock(s.Preds, b) {
				return fmt.Errorf("bb%d -> bb%d edge missing back pointer", b.ID, s.ID)
			}
		}
		for _, in := range b.Instrs {
			if in.Parent != b {
				return fmt.Errorf("bb%d: %v has wrong parent link", b.ID, in)
			}
			d := in.Desc()
			if d == nil {
				return fmt.Errorf("bb%d: %v has unknown opcode", b.ID, in)
			}
			if !d.Has(FlagVariadic) && len(in.Ops) < d.NumExplicit() {
				return fmt.Errorf("bb%d: %v has %d operands, schema wants %d",
					b.ID, in, len(in.Ops), d.NumExplicit())
			}
			for i := range in.Ops {
				o := &in.Ops[i]
				if o.TiedTo >= 0 {
					t := int(o.TiedTo)
					if t >= len(in.Ops) {
						return fmt.Errorf("bb%d: %v operand %d tied out of range", b.ID, in, i)
					}
					if o.Kind != KindReg {
						return fmt.Errorf("bb%d: %v operand %d tied but not a register", b.ID, in, i)
					}
				}
				if o.Kind != KindReg || o.Implicit || !o.Def || !o.Reg.IsVirtual() {
					continue
				}
				if prev, ok := defs[o.Reg]; ok && !d.Has(FlagPartialWrite) && !prev.Desc().Has(FlagPartialWrite) {
					return fmt.Errorf("bb%d: %s defined by both %v and %v", b.ID, o.Reg, prev, in)
				}
				defs[o.Reg] = in
			}
		}
	}
	return nil
}

func containsBlock(bs []*Block, b *Block) bool {
	for _, other := range bs {
		if other == b {
			return true
		}
	}
	return false
}

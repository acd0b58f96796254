package target

import (
	"github.com/aquila-gpu/aquila/core/codegen/mir"
)

// RegInfo answers register class questions for the Aquila register file.
type RegInfo struct{}

// ClassOf resolves the class of a register within f, narrowing by
// sub-register when one is selected.
func (ri *RegInfo) ClassOf(f *mir.Func, r mir.Reg, sub mir.SubReg) mir.RegClass {
	c := f.RegClassOf(r)
	if sub != mir.NoSubReg {
		return ri.SubClass(c, sub)
	}
	return c
}

// SubClass returns the class of one 32-bit lane selection within a wider
// class, or ClassNone when the lane is out of range.
func (ri *RegInfo) SubClass(c mir.RegClass, sub mir.SubReg) mir.RegClass {
	if sub == mir.NoSubReg {
		return c
	}
	lanes := c.Bits() / 32
	if sub.Lane() >= lanes {
		return mir.ClassNone
	}
	switch {
	case c.IsScalar():
		return mir.SGPR32
	case c.IsAccum():
		return mir.AGPR32
	case c.IsVector():
		return mir.VGPR32
	}
	return mir.ClassNone
}

// IsScalarReg reports whether r lives in the scalar bank.
func (ri *RegInfo) IsScalarReg(f *mir.Func, r mir.Reg) bool {
	return f.RegClassOf(r).IsScalar()
}

// IsVectorReg reports whether r lives in the vector bank.
func (ri *RegInfo) IsVectorReg(f *mir.Func, r mir.Reg) bool {
	return f.RegClassOf(r).IsVector()
}

// IsAccumReg reports whether r lives in the accumulator bank.
func (ri *RegInfo) IsAccumReg(f *mir.Func, r mir.Reg) bool {
	return f.RegClassOf(r).IsAccum()
}

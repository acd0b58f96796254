package fold

import (
	"testing"

	"github.com/aquila-gpu/aquila/core/codegen/mir"
)

func TestEvalBinary(t *testing.T) {
	cases := []struct {
		op       mir.Opcode
		lhs, rhs uint32
		want     int32
	}{
		{mir.OpV_AND_B32_e32, 0xf0f, 0xff, 0x00f},
		{mir.OpV_OR_B32_e64, 0xf00, 0x00f, 0xf0f},
		{mir.OpS_XOR_B32, 0xff, 0x0f, 0xf0},
		// Shift amounts wrap at 32.
		{mir.OpV_LSHL_B32_e32, 2, 33, 4},
		{mir.OpV_LSHLREV_B32_e32, 33, 2, 4},
		{mir.OpV_LSHR_B32_e32, 0x80000000, 31, 1},
		{mir.OpV_LSHRREV_B32_e64, 31, 0x80000000, 1},
		{mir.OpV_ASHR_I32_e32, 0x80000000, 31, -1},
		{mir.OpV_ASHRREV_I32_e32, 33, 0x80000000, -0x40000000},
	}
	for _, c := range cases {
		got, ok := evalBinary(c.op, c.lhs, c.rhs)
		if !ok {
			t.Errorf("evalBinary(%v) not handled", c.op)
			continue
		}
		if got != c.want {
			t.Errorf("evalBinary(%v, %#x, %#x) = %#x, want %#x", c.op, c.lhs, c.rhs, got, c.want)
		}
	}
	if _, ok := evalBinary(mir.OpV_MOV_B32, 1, 2); ok {
		t.Errorf("mov is not a binary op")
	}
}

func TestFullyConstantBinaryFolds(t *testing.T) {
	f := mir.NewFunc("const_and")
	b := f.NewBlock()
	j := f.NewVReg(mir.VGPR32)
	k := f.NewVReg(mir.VGPR32)
	r := f.NewVReg(mir.VGPR32)

	b.Add(mir.OpV_MOV_B32, mir.RegOperand(j, true), mir.ImmOperand(0xf0f))
	b.Add(mir.OpV_MOV_B32, mir.RegOperand(k, true), mir.ImmOperand(0xff))
	and := b.Add(mir.OpV_AND_B32_e32,
		mir.RegOperand(r, true), mir.RegOperand(j, false), mir.RegOperand(k, false))
	b.Add(mir.OpS_ENDPGM)

	runPass(t, f)

	if and.Op != mir.OpV_MOV_B32 {
		t.Fatalf("constant and not collapsed, op = %v", and.Op)
	}
	if !and.Ops[1].IsImm() || and.Ops[1].Imm != 0xf {
		t.Errorf("wrong folded value: %v", and)
	}
}

func TestShiftAmountMasked(t *testing.T) {
	f := mir.NewFunc("shift_mask")
	b := f.NewBlock()
	j := f.NewVReg(mir.VGPR32)
	k := f.NewVReg(mir.VGPR32)
	r := f.NewVReg(mir.VGPR32)

	b.Add(mir.OpV_MOV_B32, mir.RegOperand(j, true), mir.ImmOperand(2))
	b.Add(mir.OpV_MOV_B32, mir.RegOperand(k, true), mir.ImmOperand(33))
	shl := b.Add(mir.OpV_LSHL_B32_e32,
		mir.RegOperand(r, true), mir.RegOperand(j, false), mir.RegOperand(k, false))
	b.Add(mir.OpS_ENDPGM)

	runPass(t, f)

	if shl.Op != mir.OpV_MOV_B32 || !shl.Ops[1].IsImm() || shl.Ops[1].Imm != 4 {
		t.Errorf("shift by 33 should fold as shift by 1: %v", shl)
	}
}

func TestAndWithZero(t *testing.T) {
	f := mir.NewFunc("and_zero")
	b := f.NewBlock()
	x := f.NewVReg(mir.VGPR32)
	k := f.NewVReg(mir.VGPR32)
	r := f.NewVReg(mir.VGPR32)

	b.Add(mir.OpIMPLICIT_DEF, mir.RegOperand(x, true))
	b.Add(mir.OpV_MOV_B32, mir.RegOperand(k, true), mir.ImmOperand(0))
	and := b.Add(mir.OpV_AND_B32_e32,
		mir.RegOperand(r, true), mir.RegOperand(x, false), mir.RegOperand(k, false))
	b.Add(mir.OpS_ENDPGM)

	runPass(t, f)

	if and.Op != mir.OpV_MOV_B32 {
		t.Fatalf("and with zero not collapsed, op = %v", and.Op)
	}
	if !and.Ops[1].IsImm() || and.Ops[1].Imm != 0 {
		t.Errorf("result must be a move of zero, not of the register: %v", and)
	}
}

func TestOrWithAllOnes(t *testing.T) {
	f := mir.NewFunc("or_ones")
	b := f.NewBlock()
	x := f.NewVReg(mir.VGPR32)
	k := f.NewVReg(mir.VGPR32)
	r := f.NewVReg(mir.VGPR32)

	b.Add(mir.OpIMPLICIT_DEF, mir.RegOperand(x, true))
	b.Add(mir.OpV_MOV_B32, mir.RegOperand(k, true), mir.ImmOperand(-1))
	or := b.Add(mir.OpV_OR_B32_e32,
		mir.RegOperand(r, true), mir.RegOperand(x, false), mir.RegOperand(k, false))
	b.Add(mir.OpS_ENDPGM)

	runPass(t, f)

	if or.Op != mir.OpV_MOV_B32 {
		t.Fatalf("or with all ones not collapsed, op = %v", or.Op)
	}
	if !or.Ops[1].IsImm() || or.Ops[1].Imm != -1 {
		t.Errorf("result must be a move of all ones: %v", or)
	}
}

func TestOrWithZeroBecomesCopy(t *testing.T) {
	f := mir.NewFunc("or_zero")
	b := f.NewBlock()
	x := f.NewVReg(mir.VGPR32)
	k := f.NewVReg(mir.VGPR32)
	r := f.NewVReg(mir.VGPR32)

	b.Add(mir.OpIMPLICIT_DEF, mir.RegOperand(x, true))
	b.Add(mir.OpV_MOV_B32, mir.RegOperand(k, true), mir.ImmOperand(0))
	or := b.Add(mir.OpV_OR_B32_e32,
		mir.RegOperand(r, true), mir.RegOperand(x, false), mir.RegOperand(k, false))
	b.Add(mir.OpS_ENDPGM)

	runPass(t, f)

	if or.Op != mir.OpCOPY {
		t.Fatalf("or with zero not collapsed to a copy, op = %v", or.Op)
	}
	if or.Ops[1].Reg != x || len(or.Ops) != 2 {
		t.Errorf("copy shape wrong: %v", or)
	}
}

func TestXorWithZeroBecomesCopy(t *testing.T) {
	f := mir.NewFunc("xor_zero")
	b := f.NewBlock()
	x := f.NewVReg(mir.VGPR32)
	k := f.NewVReg(mir.VGPR32)
	r := f.NewVReg(mir.VGPR32)

	b.Add(mir.OpIMPLICIT_DEF, mir.RegOperand(x, true))
	b.Add(mir.OpV_MOV_B32, mir.RegOperand(k, true), mir.ImmOperand(0))
	xor := b.Add(mir.OpV_XOR_B32_e32,
		mir.RegOperand(r, true), mir.RegOperand(x, false), mir.RegOperand(k, false))
	b.Add(mir.OpS_ENDPGM)

	runPass(t, f)

	if xor.Op != mir.OpCOPY || xor.Ops[1].Reg != x {
		t.Errorf("xor with zero not collapsed: %v", xor)
	}
}

func TestScalarFoldDropsSCC(t *testing.T) {
	f := mir.NewFunc("scalar_and")
	b := f.NewBlock()
	x := f.NewVReg(mir.SGPR32)
	k := f.NewVReg(mir.SGPR32)
	r := f.NewVReg(mir.SGPR32)

	b.Add(mir.OpIMPLICIT_DEF, mir.RegOperand(x, true))
	b.Add(mir.OpS_MOV_B32, mir.RegOperand(k, true), mir.ImmOperand(0))
	and := b.Add(mir.OpS_AND_B32,
		mir.RegOperand(r, true), mir.RegOperand(x, false), mir.RegOperand(k, false))
	b.Add(mir.OpS_ENDPGM)

	runPass(t, f)

	if and.Op != mir.OpS_MOV_B32 {
		t.Fatalf("scalar and with zero not collapsed, op = %v", and.Op)
	}
	if and.ModifiesRegister(mir.RegSCC) {
		t.Errorf("mov must not keep the scc def: %v", and)
	}
}

func TestNotOfConstant(t *testing.T) {
	f := mir.NewFunc("not_const")
	b := f.NewBlock()
	k := f.NewVReg(mir.VGPR32)
	r := f.NewVReg(mir.VGPR32)

	b.Add(mir.OpV_MOV_B32, mir.RegOperand(k, true), mir.ImmOperand(5))
	not := b.Add(mir.OpV_NOT_B32_e32, mir.RegOperand(r, true), mir.RegOperand(k, false))
	b.Add(mir.OpS_ENDPGM)

	runPass(t, f)

	if not.Op != mir.OpV_MOV_B32 || !not.Ops[1].IsImm() || not.Ops[1].Imm != ^int64(5) {
		t.Errorf("not of constant should fold: %v", not)
	}
}

func TestShiftOrWithZeroShiftValue(t *testing.T) {
	f := mir.NewFunc("lshl_or")
	b := f.NewBlock()
	z := f.NewVReg(mir.VGPR32)
	sh := f.NewVReg(mir.VGPR32)
	x := f.NewVReg(mir.VGPR32)
	r := f.NewVReg(mir.VGPR32)
	r2 := f.NewVReg(mir.VGPR32)

	b.Add(mir.OpIMPLICIT_DEF, mir.RegOperand(sh, true))
	b.Add(mir.OpIMPLICIT_DEF, mir.RegOperand(x, true))
	b.Add(mir.OpV_MOV_B32, mir.RegOperand(z, true), mir.ImmOperand(0))
	// (0 << sh) | x is x.
	reg := b.Add(mir.OpV_LSHL_OR_B32, mir.RegOperand(r, true),
		mir.RegOperand(z, false), mir.RegOperand(sh, false), mir.RegOperand(x, false))
	// (0 << sh) | 7 is 7.
	imm := b.Add(mir.OpV_LSHL_OR_B32, mir.RegOperand(r2, true),
		mir.RegOperand(z, false), mir.RegOperand(sh, false), mir.ImmOperand(7))
	b.Add(mir.OpS_ENDPGM)

	runPass(t, f)

	if reg.Op != mir.OpCOPY || reg.Ops[1].Reg != x {
		t.Errorf("register or-operand should survive as a copy: %v", reg)
	}
	if imm.Op != mir.OpV_MOV_B32 || !imm.Ops[1].IsImm() || imm.Ops[1].Imm != 7 {
		t.Errorf("immediate or-operand should survive as a mov: %v", imm)
	}
}

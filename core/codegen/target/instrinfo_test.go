package target

import (
	"testing"

	"github.com/aquila-gpu/aquila/core/codegen/mir"
)

func TestInlineConstantInts(t *testing.T) {
	ii := NewInstrInfo(DefaultSubtarget())
	for _, v := range []int64{-16, -1, 0, 1, 63, 64} {
		if !ii.IsInlineConstant(v, mir.TypeImmInt32) {
			t.Errorf("%d should be inline", v)
		}
	}
	for _, v := range []int64{-17, 65, 100, 0x12345} {
		if ii.IsInlineConstant(v, mir.TypeImmInt32) {
			t.Errorf("%d should not be inline", v)
		}
	}
}

func TestInlineConstantFP32(t *testing.T) {
	ii := NewInstrInfo(DefaultSubtarget())
	for _, bits := range []int64{0x3f000000, 0x3f800000, 0x40000000, 0x40800000, -0x40800000 & 0xffffffff} {
		if !ii.IsInlineConstant(bits, mir.TypeInlineFP32) {
			t.Errorf("%#x should be inline fp32", bits)
		}
	}
	if ii.IsInlineConstant(0x3e22f983, mir.TypeInlineFP32) {
		t.Errorf("inv2pi inline without the capability flag")
	}
	st := DefaultSubtarget()
	st.HasInv2PiInlineImm = true
	ii = NewInstrInfo(st)
	if !ii.IsInlineConstant(0x3e22f983, mir.TypeInlineFP32) {
		t.Errorf("inv2pi should be inline with the capability flag")
	}
}

func TestInlineConstantV2FP16(t *testing.T) {
	ii := NewInstrInfo(DefaultSubtarget())
	if !ii.IsInlineConstant(0x3c003c00, mir.TypeInlineV2FP16) {
		t.Errorf("splat 1.0h should be inline")
	}
	if ii.IsInlineConstant(0x3c004000, mir.TypeInlineV2FP16) {
		t.Errorf("mixed halves should not be inline")
	}
	if !ii.IsInlineConstant(8, mir.TypeInlineV2FP16) {
		t.Errorf("small int should be inline")
	}
}

func TestOperandLegalImmediate(t *testing.T) {
	ii := NewInstrInfo(DefaultSubtarget())
	f := mir.NewFunc("t")
	b := f.NewBlock()
	dst := f.NewVReg(mir.VGPR32)
	src := f.NewVReg(mir.VGPR32)

	// e32 src0 takes a literal, src1 is register-only.
	in := b.Add(mir.OpV_AND_B32_e32, mir.RegOperand(dst, true), mir.RegOperand(src, false), mir.RegOperand(src, false))
	lit := mir.ImmOperand(0x12345)
	if !ii.IsOperandLegal(f, in, 1, &lit) {
		t.Errorf("literal must be legal at e32 src0")
	}
	if ii.IsOperandLegal(f, in, 2, &lit) {
		t.Errorf("literal must be illegal at e32 src1")
	}

	// e64 integer sources are inline-only on the baseline generation.
	in64 := b.Add(mir.OpV_AND_B32_e64, mir.RegOperand(dst, true), mir.RegOperand(src, false), mir.RegOperand(src, false))
	inl := mir.ImmOperand(17)
	if !ii.IsOperandLegal(f, in64, 1, &inl) {
		t.Errorf("inline imm must be legal at e64 src0")
	}
	if ii.IsOperandLegal(f, in64, 1, &lit) {
		t.Errorf("literal must be illegal at e64 src0 without VOP3 literals")
	}

	st := DefaultSubtarget()
	st.HasVOP3Literal = true
	ii = NewInstrInfo(st)
	if !ii.IsOperandLegal(f, in64, 1, &lit) {
		t.Errorf("literal must be legal at e64 src0 with VOP3 literals")
	}
}

func TestOperandLegalConstantBus(t *testing.T) {
	ii := NewInstrInfo(DefaultSubtarget())
	f := mir.NewFunc("t")
	b := f.NewBlock()
	dst := f.NewVReg(mir.VGPR32)
	v := f.NewVReg(mir.VGPR32)
	s := f.NewVReg(mir.SGPR32)

	// One scalar source is fine; a second occupant of the bus is not.
	in := b.Add(mir.OpV_AND_B32_e64, mir.RegOperand(dst, true), mir.RegOperand(s, false), mir.RegOperand(v, false))
	sop := mir.RegOperand(s, false)
	if ii.IsOperandLegal(f, in, 2, &sop) {
		// src0 already rides the bus
		t.Errorf("second scalar source must be rejected")
	}
	in2 := b.Add(mir.OpV_AND_B32_e64, mir.RegOperand(dst, true), mir.RegOperand(v, false), mir.RegOperand(v, false))
	if !ii.IsOperandLegal(f, in2, 2, &sop) {
		t.Errorf("single scalar source must be accepted")
	}
}

func TestCommuteSwapsSourcesAndMods(t *testing.T) {
	ii := NewInstrInfo(DefaultSubtarget())
	f := mir.NewFunc("t")
	b := f.NewBlock()
	dst := f.NewVReg(mir.VGPR32)
	a := f.NewVReg(mir.VGPR32)
	c := f.NewVReg(mir.VGPR32)

	in := b.Add(mir.OpV_MUL_F32_e64,
		mir.RegOperand(dst, true),
		mir.ImmOperand(mir.SrcModNeg), mir.RegOperand(a, false),
		mir.ImmOperand(0), mir.RegOperand(c, false),
		mir.ImmOperand(0), mir.ImmOperand(0))
	i, j, ok := ii.FindCommutedOpIndices(in)
	if !ok {
		t.Fatalf("v_mul_f32_e64 is commutable")
	}
	if !ii.CommuteInstruction(f, in, i, j) {
		t.Fatalf("commute failed")
	}
	if in.Ops[i].Reg != c || in.Ops[j].Reg != a {
		t.Errorf("sources not swapped: %v", in)
	}
	if in.Ops[i-1].Imm != 0 || in.Ops[j-1].Imm != mir.SrcModNeg {
		t.Errorf("modifier slots not swapped: %v", in)
	}
}

func TestCommuteRefusesImmIntoRegOnlySlot(t *testing.T) {
	ii := NewInstrInfo(DefaultSubtarget())
	f := mir.NewFunc("t")
	b := f.NewBlock()
	dst := f.NewVReg(mir.VGPR32)
	v := f.NewVReg(mir.VGPR32)
	in := b.Add(mir.OpV_ADD_I32_e32, mir.RegOperand(dst, true), mir.ImmOperand(99), mir.RegOperand(v, false))
	i, j, ok := ii.FindCommutedOpIndices(in)
	if !ok {
		t.Fatalf("v_add_i32_e32 is commutable")
	}
	if ii.CommuteInstruction(f, in, i, j) {
		t.Errorf("immediate must not move into the register-only src1")
	}
}

func TestMadEquivalentGating(t *testing.T) {
	ii := NewInstrInfo(DefaultSubtarget())
	if op, ok := ii.MadEquivalent(mir.OpV_MAC_F32_e64); !ok || op != mir.OpV_MAD_F32 {
		t.Errorf("mac_f32 -> mad_f32, got %v %v", op, ok)
	}
	if op, ok := ii.MadEquivalent(mir.OpV_FMAC_F16_e64); !ok || op != mir.OpV_FMA_F16 {
		t.Errorf("fmac_f16 -> fma_f16, got %v %v", op, ok)
	}
	st := DefaultSubtarget()
	st.HasMadF16 = false
	ii = NewInstrInfo(st)
	if _, ok := ii.MadEquivalent(mir.OpV_MAC_F16_e64); ok {
		t.Errorf("mac_f16 rewrite must be gated on the subtarget")
	}
}

func TestE32FormOf(t *testing.T) {
	ii := NewInstrInfo(DefaultSubtarget())
	cases := map[mir.Opcode]mir.Opcode{
		mir.OpV_ADD_I32_e64:    mir.OpV_ADD_I32_e32,
		mir.OpV_SUB_I32_e64:    mir.OpV_SUB_I32_e32,
		mir.OpV_SUBREV_I32_e64: mir.OpV_SUBREV_I32_e32,
	}
	for from, want := range cases {
		got, ok := ii.E32FormOf(from)
		if !ok || got != want {
			t.Errorf("E32FormOf(%v) = %v, want %v", from, got, want)
		}
	}
	if _, ok := ii.E32FormOf(mir.OpV_AND_B32_e64); ok {
		t.Errorf("v_and has no carry form to shrink")
	}
}

func TestFoldableCopy(t *testing.T) {
	ii := NewInstrInfo(DefaultSubtarget())
	f := mir.NewFunc("t")
	b := f.NewBlock()
	r := f.NewVReg(mir.VGPR32)
	if !ii.IsFoldableCopy(b.Add(mir.OpV_MOV_B32, mir.RegOperand(r, true), mir.ImmOperand(7))) {
		t.Errorf("v_mov of imm is foldable")
	}
	s := f.NewVReg(mir.VGPR32)
	if !ii.IsFoldableCopy(b.Add(mir.OpV_MOV_B32, mir.RegOperand(r, true), mir.RegOperand(s, false))) {
		t.Errorf("v_mov of register is foldable")
	}
	if ii.IsFoldableCopy(b.Add(mir.OpV_NOT_B32_e32, mir.RegOperand(r, true), mir.ImmOperand(1))) {
		t.Errorf("v_not is not a copy")
	}
}

func TestSubClass(t *testing.T) {
	ri := &RegInfo{}
	if got := ri.SubClass(mir.VGPR64, mir.Sub1); got != mir.VGPR32 {
		t.Errorf("VGPR64 sub1 = %v", got)
	}
	if got := ri.SubClass(mir.SGPR128, mir.Sub3); got != mir.SGPR32 {
		t.Errorf("SGPR128 sub3 = %v", got)
	}
	if got := ri.SubClass(mir.VGPR64, mir.Sub2); got != mir.ClassNone {
		t.Errorf("out of range lane accepted: %v", got)
	}
}

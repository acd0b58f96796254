package mir

import (
	"strings"
	"testing"
)

func TestVirtRegRoundTrip(t *testing.T) {
	r := VirtReg(7)
	if !r.IsVirtual() {
		t.Fatalf("VirtReg(7) not virtual")
	}
	if r.IsPhysical() {
		t.Fatalf("VirtReg(7) claims physical")
	}
	if got := r.VirtIndex(); got != 7 {
		t.Fatalf("VirtIndex = %d, want 7", got)
	}
	if RegVCC.IsVirtual() {
		t.Fatalf("vcc claims virtual")
	}
	if PhysRegClass(RegVCC) != SGPR64 {
		t.Fatalf("vcc class = %v, want SGPR64", PhysRegClass(RegVCC))
	}
}

func TestRegClassBits(t *testing.T) {
	cases := []struct {
		c    RegClass
		bits int
	}{
		{SGPR32, 32},
		{SGPR64, 64},
		{SGPR128, 128},
		{VGPR32, 32},
		{VGPR64, 64},
		{VGPR128, 128},
		{AGPR32, 32},
	}
	for _, tc := range cases {
		if got := tc.c.Bits(); got != tc.bits {
			t.Errorf("%v.Bits() = %d, want %d", tc.c, got, tc.bits)
		}
	}
	if !SGPR64.IsScalar() || SGPR64.IsVector() {
		t.Errorf("SGPR64 classification wrong")
	}
	if !VGPR32.IsVector() || VGPR32.IsScalar() {
		t.Errorf("VGPR32 classification wrong")
	}
	if !AGPR32.IsAccum() {
		t.Errorf("AGPR32 not accum")
	}
}

func TestOperandMutators(t *testing.T) {
	f := NewFunc("t")
	r := f.NewVReg(VGPR32)
	o := RegOperand(r, false)
	o.ChangeToImmediate(42)
	if !o.IsImm() || o.Imm != 42 {
		t.Fatalf("ChangeToImmediate: %v", o)
	}
	o.ChangeToFrameIndex(3)
	if !o.IsFI() || o.Index != 3 {
		t.Fatalf("ChangeToFrameIndex: %v", o)
	}
	o.ChangeToRegister(r, true)
	if !o.IsReg() || !o.Def || o.Reg != r {
		t.Fatalf("ChangeToRegister: %v", o)
	}
}

func TestOperandIdenticalIgnoresKill(t *testing.T) {
	f := NewFunc("t")
	r := f.NewVReg(SGPR32)
	a := RegOperand(r, false)
	b := RegOperand(r, false)
	b.Kill = true
	if !a.Identical(&b) {
		t.Fatalf("kill flag should not affect identity")
	}
	b.Sub = Sub1
	if a.Identical(&b) {
		t.Fatalf("sub-register should affect identity")
	}
}

func TestImplicitOperandsFromDesc(t *testing.T) {
	f := NewFunc("t")
	b := f.NewBlock()
	dst := f.NewVReg(VGPR32)
	src := f.NewVReg(VGPR32)
	in := b.Add(OpV_ADD_I32_e32, RegOperand(dst, true), ImmOperand(1), RegOperand(src, false))
	if !in.ModifiesRegister(RegVCC) {
		t.Fatalf("v_add_i32_e32 must implicitly define vcc: %v", in)
	}
	cmp := b.Add(OpV_CNDMASK_B32_e32, RegOperand(dst, true), ImmOperand(0), RegOperand(src, false))
	if !cmp.ReadsRegister(RegVCC) {
		t.Fatalf("v_cndmask_b32_e32 must implicitly read vcc: %v", cmp)
	}
}

func TestTiedOperandFromDesc(t *testing.T) {
	f := NewFunc("t")
	b := f.NewBlock()
	dst := f.NewVReg(VGPR32)
	a := f.NewVReg(VGPR32)
	c := f.NewVReg(VGPR32)
	in := b.Add(OpV_MAC_F32_e64,
		RegOperand(dst, true),
		ImmOperand(0), RegOperand(a, false),
		ImmOperand(0), RegOperand(a, false),
		ImmOperand(0), RegOperand(c, false),
		ImmOperand(0), ImmOperand(0))
	src2 := in.NamedIdx(NameSrc2)
	if src2 < 0 {
		t.Fatalf("mac has no src2")
	}
	if in.Ops[src2].TiedTo != 0 {
		t.Fatalf("src2 not tied to def: TiedTo=%d", in.Ops[src2].TiedTo)
	}
	in.UntieOperand(src2)
	if in.Ops[src2].TiedTo != -1 {
		t.Fatalf("untie failed")
	}
}

func TestRemoveOperandRetargetsTies(t *testing.T) {
	f := NewFunc("t")
	b := f.NewBlock()
	dst := f.NewVReg(VGPR32)
	a := f.NewVReg(VGPR32)
	c := f.NewVReg(VGPR32)
	in := b.Add(OpV_MAC_F32_e64,
		RegOperand(dst, true),
		ImmOperand(0), RegOperand(a, false),
		ImmOperand(0), RegOperand(a, false),
		ImmOperand(0), RegOperand(c, false),
		ImmOperand(0), ImmOperand(0))
	in.RemoveOperand(1)
	src2 := 5 // shifted down by one
	if in.Ops[src2].TiedTo != 0 {
		t.Fatalf("tie to def must survive removal of a later-indexed peer: %d", in.Ops[src2].TiedTo)
	}
}

func TestBlockInsertRemove(t *testing.T) {
	f := NewFunc("t")
	b := f.NewBlock()
	r := f.NewVReg(VGPR32)
	first := b.Add(OpV_MOV_B32, RegOperand(r, true), ImmOperand(1))
	third := b.Add(OpS_ENDPGM)
	second := NewInstr(OpV_MOV_B32, RegOperand(f.NewVReg(VGPR32), true), ImmOperand(2))
	b.InsertBefore(second, third)
	if b.IndexOf(first) != 0 || b.IndexOf(second) != 1 || b.IndexOf(third) != 2 {
		t.Fatalf("insert order wrong: %v", b.Instrs)
	}
	second.EraseFromParent()
	if b.IndexOf(second) != -1 || len(b.Instrs) != 2 {
		t.Fatalf("erase failed")
	}
	if second.Parent != nil {
		t.Fatalf("erased instruction keeps parent")
	}
}

func TestDepthFirstBlocksFollowsSuccessorOrder(t *testing.T) {
	f := NewFunc("t")
	entry := f.NewBlock()
	left := f.NewBlock()
	right := f.NewBlock()
	exit := f.NewBlock()
	f.AddEdge(entry, left)
	f.AddEdge(entry, right)
	f.AddEdge(left, exit)
	f.AddEdge(right, exit)

	order := f.DepthFirstBlocks()
	want := []*Block{entry, left, exit, right}
	if len(order) != len(want) {
		t.Fatalf("order length %d, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order[%d] = bb%d, want bb%d", i, order[i].ID, want[i].ID)
		}
	}
}

func TestUsesAndDefInstr(t *testing.T) {
	f := NewFunc("t")
	b := f.NewBlock()
	r := f.NewVReg(VGPR32)
	s := f.NewVReg(VGPR32)
	def := b.Add(OpV_MOV_B32, RegOperand(r, true), ImmOperand(5))
	u1 := b.Add(OpV_ADD_F32_e64, RegOperand(s, true), ImmOperand(0), RegOperand(r, false), ImmOperand(0), RegOperand(r, false), ImmOperand(0), ImmOperand(0))

	if got := f.DefInstr(r); got != def {
		t.Fatalf("DefInstr wrong: %v", got)
	}
	uses := f.Uses(r)
	if len(uses) != 2 {
		t.Fatalf("Uses len = %d, want 2", len(uses))
	}
	for _, u := range uses {
		if u.In != u1 {
			t.Fatalf("use in wrong instruction: %v", u.In)
		}
	}
	if !f.HasOneNonDebugUse(r) {
		t.Fatalf("both uses are in one instruction, expected one-user")
	}
}

func TestRegLiveness(t *testing.T) {
	f := NewFunc("t")
	b := f.NewBlock()
	r := f.NewVReg(VGPR32)
	pos := b.Add(OpV_MOV_B32, RegOperand(f.NewVReg(VGPR32), true), ImmOperand(0))

	// No reader, no clobber, block falls off the end with no successors.
	if got := b.RegLiveness(RegVCC, pos, 16); got != LivenessDead {
		t.Fatalf("dead at end of terminal block, got %v", got)
	}

	read := b.Add(OpV_CNDMASK_B32_e32, RegOperand(r, true), ImmOperand(0), RegOperand(r, false))
	_ = read
	if got := b.RegLiveness(RegVCC, pos, 16); got != LivenessLive {
		t.Fatalf("vcc read downstream, got %v", got)
	}

	// A clobber before the window closes makes it dead again.
	b2 := f.NewBlock()
	pos2 := b2.Add(OpV_MOV_B32, RegOperand(f.NewVReg(VGPR32), true), ImmOperand(0))
	b2.Add(OpV_ADD_I32_e32, RegOperand(f.NewVReg(VGPR32), true), ImmOperand(1), RegOperand(r, false))
	if got := b2.RegLiveness(RegVCC, pos2, 16); got != LivenessDead {
		t.Fatalf("vcc clobbered first, got %v", got)
	}

	// Out of window.
	b3 := f.NewBlock()
	f.AddEdge(b2, b3)
	pos3 := b3.Add(OpV_MOV_B32, RegOperand(f.NewVReg(VGPR32), true), ImmOperand(0))
	for i := 0; i < 20; i++ {
		b3.Add(OpV_MOV_B32, RegOperand(f.NewVReg(VGPR32), true), ImmOperand(int64(i)))
	}
	if got := b3.RegLiveness(RegVCC, pos3, 16); got != LivenessUnknown {
		t.Fatalf("window exceeded, got %v", got)
	}
}

func TestReplaceRegAndClearKill(t *testing.T) {
	f := NewFunc("t")
	b := f.NewBlock()
	old := f.NewVReg(VGPR32)
	use := b.Add(OpV_NOT_B32_e32, RegOperand(f.NewVReg(VGPR32), true), RegOperand(old, false))
	use.Ops[1].Kill = true

	f.ClearKillFlags(old)
	if use.Ops[1].Kill {
		t.Fatalf("kill flag not cleared")
	}
	repl := f.NewVReg(VGPR32)
	f.ReplaceRegWith(old, repl)
	if use.Ops[1].Reg != repl {
		t.Fatalf("replace failed: %v", use)
	}
}

func TestVerifyCatchesDoubleDef(t *testing.T) {
	f := NewFunc("t")
	b := f.NewBlock()
	r := f.NewVReg(VGPR32)
	b.Add(OpV_MOV_B32, RegOperand(r, true), ImmOperand(1))
	if err := Verify(f); err != nil {
		t.Fatalf("clean function rejected: %v", err)
	}
	b.Add(OpV_MOV_B32, RegOperand(r, true), ImmOperand(2))
	if err := Verify(f); err == nil {
		t.Fatalf("double def not caught")
	}
}

func TestPrintAndDot(t *testing.T) {
	f := NewFunc("sample")
	b := f.NewBlock()
	r := f.NewVReg(VGPR32)
	b.Add(OpV_MOV_B32, RegOperand(r, true), ImmOperand(9))

	text := Sprint(f)
	if !strings.Contains(text, "func sample:") || !strings.Contains(text, "v_mov_b32") {
		t.Fatalf("listing missing content:\n%s", text)
	}
	dot := f.ToDot()
	if !strings.HasPrefix(dot, "digraph CFG {") || !strings.Contains(dot, "v_mov_b32") {
		t.Fatalf("dot output missing content:\n%s", dot)
	}
}

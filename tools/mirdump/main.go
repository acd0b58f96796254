// mirdump builds sample machine functions, runs operand folding over them
// and prints the IR before and after, either as a listing or as DOT for
// graphviz.
//
// Usage:
//
//	go run ./tools/mirdump -sample literal
//	go run ./tools/mirdump -dot -sample diamond | dot -Tsvg -o out.svg
package main

import (
	"flag"
	"fmt"
	"os"

	ethlog "github.com/ethereum/go-ethereum/log"
	"github.com/tebeka/atexit"

	"github.com/aquila-gpu/aquila/core/codegen/fold"
	"github.com/aquila-gpu/aquila/core/codegen/mir"
	"github.com/aquila-gpu/aquila/core/codegen/target"
)

var samples = []struct {
	name  string
	build func() *mir.Func
}{
	{"literal", sampleLiteral},
	{"shrink", sampleShrink},
	{"fusion", sampleFusion},
	{"constant", sampleConstant},
	{"accum", sampleAccum},
	{"diamond", sampleDiamond},
}

func main() {
	var (
		name    = flag.String("sample", "all", "sample function to dump, or 'all'")
		dot     = flag.Bool("dot", false, "emit DOT instead of a listing")
		skip    = flag.Bool("no-fold", false, "dump the input without running the pass")
		verbose = flag.Bool("v", false, "log fold decisions")
		vop3lit = flag.Bool("vop3-literal", false, "subtarget encodes literals in 64-bit forms")
		inv2pi  = flag.Bool("inv2pi", false, "subtarget has the 1/(2*pi) inline constant")
	)
	flag.Parse()

	lvl := ethlog.LevelInfo
	if *verbose {
		lvl = ethlog.LevelDebug
	}
	h := ethlog.NewTerminalHandlerWithLevel(os.Stderr, lvl, false)
	ethlog.SetDefault(ethlog.NewLogger(h))

	st := target.DefaultSubtarget()
	st.HasVOP3Literal = *vop3lit
	st.HasInv2PiInlineImm = *inv2pi

	found := false
	for _, s := range samples {
		if *name != "all" && *name != s.name {
			continue
		}
		found = true
		dump(s.build(), st, *dot, *skip)
	}
	if !found {
		fmt.Fprintf(os.Stderr, "unknown sample %q; have:", *name)
		for _, s := range samples {
			fmt.Fprintf(os.Stderr, " %s", s.name)
		}
		fmt.Fprintln(os.Stderr)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func dump(f *mir.Func, st *target.Subtarget, dot, skip bool) {
	if err := mir.Verify(f); err != nil {
		ethlog.Error("sample does not verify", "func", f.Name, "err", err)
		atexit.Exit(1)
	}
	if skip {
		emit(f, dot)
		return
	}

	fmt.Printf("=== %s: before ===\n", f.Name)
	emit(f, dot)

	changed := fold.Run(f, st)
	if err := mir.Verify(f); err != nil {
		ethlog.Error("pass output does not verify", "func", f.Name, "err", err)
		atexit.Exit(1)
	}

	fmt.Printf("=== %s: after (changed=%v) ===\n", f.Name, changed)
	emit(f, dot)
}

func emit(f *mir.Func, dot bool) {
	if dot {
		fmt.Println(f.ToDot())
		return
	}
	mir.Fprint(os.Stdout, f)
}

// sampleLiteral materializes one constant consumed by an inline-capable ALU
// source, a commutable register-only source and a scratch store address.
func sampleLiteral() *mir.Func {
	f := mir.NewFunc("literal_uses")
	b := f.NewBlock()
	v := f.NewVReg(mir.VGPR32)
	d := f.NewVReg(mir.VGPR32)
	x := f.NewVReg(mir.VGPR32)
	y := f.NewVReg(mir.VGPR32)
	p := f.NewVReg(mir.VGPR32)
	fi := f.NewFrameIndex()

	b.Add(mir.OpIMPLICIT_DEF, mir.RegOperand(v, true))
	b.Add(mir.OpV_MOV_B32, mir.RegOperand(d, true), mir.ImmOperand(5))
	b.Add(mir.OpV_AND_B32_e64, mir.RegOperand(x, true), mir.RegOperand(v, false), mir.RegOperand(d, false))
	b.Add(mir.OpV_OR_B32_e32, mir.RegOperand(y, true), mir.RegOperand(v, false), mir.RegOperand(d, false))
	b.Add(mir.OpCOPY, mir.RegOperand(p, true), mir.FrameIndexOperand(fi))
	b.Add(mir.OpBUFFER_STORE_DWORD,
		mir.RegOperand(y, false), mir.RegOperand(p, false),
		mir.RegOperand(mir.RegSRSRC, false), mir.RegOperand(mir.RegSOFF, false),
		mir.ImmOperand(0))
	b.Add(mir.OpS_ENDPGM)
	return f
}

// sampleShrink needs the commute-then-shrink rescue: the literal refuses
// every position of the wide add, but the e32 form with an implicit carry
// accepts the shape. The carry feeds a select, so it is copied out of vcc.
func sampleShrink() *mir.Func {
	f := mir.NewFunc("carry_shrink")
	b := f.NewBlock()
	v := f.NewVReg(mir.VGPR32)
	a := f.NewVReg(mir.VGPR32)
	d := f.NewVReg(mir.VGPR32)
	carry := f.NewVReg(mir.SGPR64)
	x := f.NewVReg(mir.VGPR32)
	y := f.NewVReg(mir.VGPR32)
	r := f.NewVReg(mir.VGPR32)

	b.Add(mir.OpIMPLICIT_DEF, mir.RegOperand(v, true))
	b.Add(mir.OpIMPLICIT_DEF, mir.RegOperand(x, true))
	b.Add(mir.OpIMPLICIT_DEF, mir.RegOperand(y, true))
	b.Add(mir.OpV_MOV_B32, mir.RegOperand(a, true), mir.ImmOperand(1000))
	b.Add(mir.OpV_ADD_I32_e64,
		mir.RegOperand(d, true), mir.RegOperand(carry, true),
		mir.RegOperand(a, false), mir.RegOperand(v, false))
	b.Add(mir.OpV_CNDMASK_B32_e64,
		mir.RegOperand(r, true),
		mir.ImmOperand(0), mir.RegOperand(x, false),
		mir.ImmOperand(0), mir.RegOperand(y, false),
		mir.RegOperand(carry, false))
	b.Add(mir.OpS_ENDPGM)
	return f
}

// sampleFusion carries one clamp idiom and one output-scale idiom.
func sampleFusion() *mir.Func {
	f := mir.NewFunc("clamp_omod")
	f.NoSignedZeros = true
	b := f.NewBlock()
	a := f.NewVReg(mir.VGPR32)
	c := f.NewVReg(mir.VGPR32)
	t0 := f.NewVReg(mir.VGPR32)
	t1 := f.NewVReg(mir.VGPR32)
	r0 := f.NewVReg(mir.VGPR32)
	r1 := f.NewVReg(mir.VGPR32)

	b.Add(mir.OpIMPLICIT_DEF, mir.RegOperand(a, true))
	b.Add(mir.OpIMPLICIT_DEF, mir.RegOperand(c, true))
	b.Add(mir.OpV_MUL_F32_e64,
		mir.RegOperand(t0, true),
		mir.ImmOperand(0), mir.RegOperand(a, false),
		mir.ImmOperand(0), mir.RegOperand(c, false),
		mir.ImmOperand(0), mir.ImmOperand(0))
	b.Add(mir.OpV_MAX_F32_e64,
		mir.RegOperand(r0, true),
		mir.ImmOperand(0), mir.RegOperand(t0, false),
		mir.ImmOperand(0), mir.RegOperand(t0, false),
		mir.ImmOperand(1), mir.ImmOperand(0))
	b.Add(mir.OpV_ADD_F32_e64,
		mir.RegOperand(t1, true),
		mir.ImmOperand(0), mir.RegOperand(a, false),
		mir.ImmOperand(0), mir.RegOperand(c, false),
		mir.ImmOperand(0), mir.ImmOperand(0))
	b.Add(mir.OpV_MUL_F32_e64,
		mir.RegOperand(r1, true),
		mir.ImmOperand(0), mir.RegOperand(t1, false),
		mir.ImmOperand(0), mir.ImmOperand(0x40000000),
		mir.ImmOperand(0), mir.ImmOperand(0))
	b.Add(mir.OpS_ENDPGM)
	return f
}

// sampleConstant chains fully-constant expressions through materializing
// moves.
func sampleConstant() *mir.Func {
	f := mir.NewFunc("const_chain")
	b := f.NewBlock()
	j := f.NewVReg(mir.VGPR32)
	k := f.NewVReg(mir.VGPR32)
	z := f.NewVReg(mir.VGPR32)
	sh := f.NewVReg(mir.VGPR32)
	x := f.NewVReg(mir.VGPR32)
	r0 := f.NewVReg(mir.VGPR32)
	r1 := f.NewVReg(mir.VGPR32)

	b.Add(mir.OpIMPLICIT_DEF, mir.RegOperand(sh, true))
	b.Add(mir.OpIMPLICIT_DEF, mir.RegOperand(x, true))
	b.Add(mir.OpV_MOV_B32, mir.RegOperand(j, true), mir.ImmOperand(0xf0f))
	b.Add(mir.OpV_MOV_B32, mir.RegOperand(k, true), mir.ImmOperand(33))
	b.Add(mir.OpV_LSHL_B32_e32, mir.RegOperand(r0, true), mir.RegOperand(j, false), mir.RegOperand(k, false))
	b.Add(mir.OpV_MOV_B32, mir.RegOperand(z, true), mir.ImmOperand(0))
	b.Add(mir.OpV_LSHL_OR_B32, mir.RegOperand(r1, true),
		mir.RegOperand(z, false), mir.RegOperand(sh, false), mir.RegOperand(x, false))
	b.Add(mir.OpS_ENDPGM)
	return f
}

// sampleAccum initializes an accumulator from a splatted register sequence.
func sampleAccum() *mir.Func {
	f := mir.NewFunc("accum_splat")
	b := f.NewBlock()
	s0 := f.NewVReg(mir.VGPR32)
	s1 := f.NewVReg(mir.VGPR32)
	seq := f.NewVReg(mir.VGPR64)
	ag := f.NewVReg(mir.AGPR32)

	b.Add(mir.OpV_MOV_B32, mir.RegOperand(s0, true), mir.ImmOperand(1))
	b.Add(mir.OpV_MOV_B32, mir.RegOperand(s1, true), mir.ImmOperand(1))
	b.Add(mir.OpREG_SEQUENCE, mir.RegOperand(seq, true),
		mir.RegOperand(s0, false), mir.ImmOperand(int64(mir.Sub0)),
		mir.RegOperand(s1, false), mir.ImmOperand(int64(mir.Sub1)))
	b.Add(mir.OpV_ACCVGPR_WRITE_B32, mir.RegOperand(ag, true), mir.RegOperand(seq, false))
	b.Add(mir.OpS_ENDPGM)
	return f
}

// sampleDiamond spreads a materialized constant across a diamond CFG and
// writes m0 redundantly on one arm.
func sampleDiamond() *mir.Func {
	f := mir.NewFunc("diamond")
	entry := f.NewBlock()
	left := f.NewBlock()
	right := f.NewBlock()
	exit := f.NewBlock()
	f.AddEdge(entry, left)
	f.AddEdge(entry, right)
	f.AddEdge(left, exit)
	f.AddEdge(right, exit)

	v := f.NewVReg(mir.VGPR32)
	d := f.NewVReg(mir.VGPR32)
	x := f.NewVReg(mir.VGPR32)
	y := f.NewVReg(mir.VGPR32)

	entry.Add(mir.OpIMPLICIT_DEF, mir.RegOperand(v, true))
	entry.Add(mir.OpV_MOV_B32, mir.RegOperand(d, true), mir.ImmOperand(8))
	entry.Add(mir.OpS_CBRANCH_VCCNZ, mir.ImmOperand(int64(right.ID)))

	left.Add(mir.OpS_MOV_B32, mir.RegOperand(mir.RegM0, true), mir.ImmOperand(0))
	left.Add(mir.OpS_MOV_B32, mir.RegOperand(mir.RegM0, true), mir.ImmOperand(0))
	left.Add(mir.OpV_XOR_B32_e64, mir.RegOperand(x, true), mir.RegOperand(v, false), mir.RegOperand(d, false))
	left.Add(mir.OpS_BRANCH, mir.ImmOperand(int64(exit.ID)))

	right.Add(mir.OpV_AND_B32_e64, mir.RegOperand(y, true), mir.RegOperand(v, false), mir.RegOperand(d, false))
	right.Add(mir.OpS_BRANCH, mir.ImmOperand(int64(exit.ID)))

	exit.Add(mir.OpS_ENDPGM)
	return f
}

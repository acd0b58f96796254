package mir

// Func is one machine function: a block list rooted at the entry block, a
// virtual register file and the per-function codegen mode bits the folding
// and fusion decisions consult.
type Func struct {
	Name   string
	Blocks []*Block
	Entry  *Block

	// IEEEMode and NoSignedZeros reflect the function's floating point
	// environment. Output-modifier fusion is only sound when IEEE mode is
	// off and signed zeros are known not to matter.
	IEEEMode      bool
	NoSignedZeros bool

	// FP32Denormals and FP16Denormals record whether denormal handling is
	// enabled for the respective widths.
	FP32Denormals bool
	FP16Denormals bool

	// Reserved physical registers for stack access. Frame index operands
	// may only fold into scratch instruction addresses when these are the
	// function's stack registers.
	StackPtrReg      Reg
	ScratchOffsetReg Reg
	ScratchRsrcReg   Reg

	vregClasses []RegClass

	frameObjects int
}

func NewFunc(name string) *Func {
	return &Func{
		Name:             name,
		StackPtrReg:      RegSP,
		ScratchOffsetReg: RegSOFF,
		ScratchRsrcReg:   RegSRSRC,
	}
}

// NewBlock appends an empty block; the first block created becomes the
// entry.
func (f *Func) NewBlock() *Block {
	b := &Block{ID: len(f.Blocks), Fn: f}
	f.Blocks = append(f.Blocks, b)
	if f.Entry == nil {
		f.Entry = b
	}
	return b
}

// AddEdge records a CFG edge. Successor order is traversal order.
func (f *Func) AddEdge(from, to *Block) {
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}

// NewVReg allocates a fresh virtual register of the given class.
func (f *Func) NewVReg(c RegClass) Reg {
	r := VirtReg(uint32(len(f.vregClasses)))
	f.vregClasses = append(f.vregClasses, c)
	return r
}

// NewFrameIndex allocates a stack object slot and returns its index.
func (f *Func) NewFrameIndex() int {
	i := f.frameObjects
	f.frameObjects++
	return i
}

// RegClassOf returns the register class of a virtual or physical register.
func (f *Func) RegClassOf(r Reg) RegClass {
	if r.IsVirtual() {
		i := int(r.VirtIndex())
		if i < len(f.vregClasses) {
			return f.vregClasses[i]
		}
		return ClassNone
	}
	return PhysRegClass(r)
}

// DepthFirstBlocks returns the blocks in depth-first preorder from the
// entry, following successor edges in order. Unreachable blocks are not
// visited.
func (f *Func) DepthFirstBlocks() []*Block {
	if f.Entry == nil {
		return nil
	}
	order := make([]*Block, 0, len(f.Blocks))
	seen := make(map[*Block]bool, len(f.Blocks))
	var visit func(b *Block)
	visit = func(b *Block) {
		if seen[b] {
			return
		}
		seen[b] = true
		order = append(order, b)
		for _, s := range b.Succs {
			visit(s)
		}
	}
	visit(f.Entry)
	return order
}

// Use is one register read: the instruction and the operand index within
// it.
type Use struct {
	In  *Instr
	Idx int
}

// DefInstr returns the unique defining instruction of a virtual register,
// scanning blocks in layout order. Virtual registers are in SSA-like form
// before this pass runs, so the first def found is the only one.
func (f *Func) DefInstr(r Reg) *Instr {
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			for i := range in.Ops {
				o := &in.Ops[i]
				if o.Kind == KindReg && o.Def && o.Reg == r {
					return in
				}
			}
		}
	}
	return nil
}

// Uses collects every explicit read of r in block layout order. The result
// is a snapshot: callers may mutate or erase instructions while walking it,
// and re-collect when the register graph has changed under them.
func (f *Func) Uses(r Reg) []Use {
	var uses []Use
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			for i := range in.Ops {
				o := &in.Ops[i]
				if o.Kind == KindReg && !o.Def && !o.Implicit && o.Reg == r {
					uses = append(uses, Use{In: in, Idx: i})
				}
			}
		}
	}
	return uses
}

// HasOneNonDebugUse reports whether exactly one non-debug instruction reads
// r.
func (f *Func) HasOneNonDebugUse(r Reg) bool {
	var only *Instr
	for _, u := range f.Uses(r) {
		if u.In.IsDebug() {
			continue
		}
		if only != nil && only != u.In {
			return false
		}
		only = u.In
	}
	return only != nil
}

// ReplaceRegWith rewrites every reference to old, defs included, to new.
func (f *Func) ReplaceRegWith(old, new Reg) {
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			for i := range in.Ops {
				o := &in.Ops[i]
				if o.Kind == KindReg && o.Reg == old {
					o.Reg = new
				}
			}
		}
	}
}

// ClearKillFlags drops kill markers on every read of r. Folding can extend
// a live range past the point that was its last use.
func (f *Func) ClearKillFlags(r Reg) {
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			for i := range in.Ops {
				o := &in.Ops[i]
				if o.Kind == KindReg && !o.Def && o.Reg == r {
					o.Kill = false
				}
			}
		}
	}
}

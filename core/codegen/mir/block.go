package mir

// Block is a basic block: a label, an instruction sequence and its CFG
// edges. Successor order is the order AddEdge was called in and is the
// traversal order for depth-first walks.
type Block struct {
	ID     int
	Fn     *Func
	Instrs []*Instr
	Preds  []*Block
	Succs  []*Block
}

// Add creates an instruction from the opcode schema and appends it.
func (b *Block) Add(op Opcode, ops ...Operand) *Instr {
	in := NewInstr(op, ops...)
	b.Append(in)
	return in
}

func (b *Block) Append(in *Instr) {
	in.Parent = b
	b.Instrs = append(b.Instrs, in)
}

// InsertBefore places in immediately before pos, which must belong to b.
func (b *Block) InsertBefore(in, pos *Instr) {
	i := b.IndexOf(pos)
	if i < 0 {
		b.Append(in)
		return
	}
	in.Parent = b
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[i+1:], b.Instrs[i:])
	b.Instrs[i] = in
}

// InsertAfter places in immediately after pos, which must belong to b.
func (b *Block) InsertAfter(in, pos *Instr) {
	i := b.IndexOf(pos)
	if i < 0 {
		b.Append(in)
		return
	}
	in.Parent = b
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[i+2:], b.Instrs[i+1:])
	b.Instrs[i+1] = in
}

func (b *Block) Remove(in *Instr) {
	for i, other := range b.Instrs {
		if other == in {
			b.Instrs = append(b.Instrs[:i], b.Instrs[i+1:]...)
			in.Parent = nil
			return
		}
	}
}

// IndexOf returns the position of in within the block, or -1.
func (b *Block) IndexOf(in *Instr) int {
	for i, other := range b.Instrs {
		if other == in {
			return i
		}
	}
	return -1
}

// Liveness is the answer to a bounded forward liveness query.
type Liveness int

const (
	LivenessUnknown Liveness = iota
	LivenessLive
	LivenessDead
)

// RegLiveness scans forward from the instruction after pos, up to window
// instructions, and classifies r: Live if read before any full clobber,
// Dead if clobbered first or the block ends with no successors, Unknown
// otherwise.
func (b *Block) RegLiveness(r Reg, pos *Instr, window int) Liveness {
	i := b.IndexOf(pos)
	if i < 0 {
		return LivenessUnknown
	}
	seen := 0
	for j := i + 1; j < len(b.Instrs); j++ {
		in := b.Instrs[j]
		if in.IsDebug() {
			continue
		}
		seen++
		if seen > window {
			return LivenessUnknown
		}
		if in.ReadsRegister(r) {
			return LivenessLive
		}
		if in.ModifiesRegister(r) {
			return LivenessDead
		}
	}
	if len(b.Succs) == 0 {
		return LivenessDead
	}
	return LivenessUnknown
}

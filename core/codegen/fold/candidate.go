// Package fold implements the operand folding pass: it propagates
// materialized constants and copied registers into their use sites, folds
// constant expressions revealed along the way, and fuses clamp and
// output-scale idioms into producing instructions.
package fold

import (
	"github.com/aquila-gpu/aquila/core/codegen/mir"
)

type foldKind uint8

const (
	foldReg foldKind = iota
	foldImm
	foldFrameIndex
	foldGlobal
)

// foldCandidate is one accepted (use instruction, operand index, value)
// triple waiting to be applied. The value payload is captured by copy so
// later mutations of the source instruction cannot corrupt it; src keeps
// the defining instruction for the exec safety check.
type foldCandidate struct {
	use  *mir.Instr
	opNo int
	kind foldKind

	imm int64

	fi int

	sym    string
	offset int64
	tflags uint8

	reg   mir.Reg
	sub   mir.SubReg
	undef bool
	src   *mir.Instr

	commuted bool
	shrinkOp mir.Opcode
}

func newFoldCandidate(use *mir.Instr, opNo int, op *mir.Operand, src *mir.Instr) foldCandidate {
	fc := foldCandidate{use: use, opNo: opNo, src: src, shrinkOp: mir.OpInvalid}
	switch op.Kind {
	case mir.KindImm:
		fc.kind = foldImm
		fc.imm = op.Imm
	case mir.KindFrameIndex:
		fc.kind = foldFrameIndex
		fc.fi = op.Index
	case mir.KindGlobal:
		fc.kind = foldGlobal
		fc.sym = op.Sym
		fc.offset = op.Offset
		fc.tflags = op.TargetFlags
	default:
		fc.kind = foldReg
		fc.reg = op.Reg
		fc.sub = op.Sub
		fc.undef = op.Undef
	}
	return fc
}

func (fc *foldCandidate) isImmLike() bool { return fc.kind != foldReg }

func (fc *foldCandidate) needsShrink() bool { return fc.shrinkOp != mir.OpInvalid }

func isUseInFoldList(foldList []foldCandidate, in *mir.Instr) bool {
	for i := range foldList {
		if foldList[i].use == in {
			return true
		}
	}
	return false
}

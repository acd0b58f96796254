package mir

// OpName identifies an operand position by its role, independent of where
// the position lands in a particular encoding's operand order.
type OpName uint8

const (
	NameNone OpName = iota
	NameVDst
	NameSDst // carry-out of the VOP3b add/sub forms
	NameVData
	NameSrc0Mods
	NameSrc0
	NameSrc1Mods
	NameSrc1
	NameSrc2Mods
	NameSrc2
	NameClamp
	NameOMod
	NameVAddr
	NameSRsrc
	NameSOffset
	NameOffset
	NameHwReg
	NameTarget
)

// OperandType describes what a schema position accepts. "Inline" positions
// take registers and inline constants but no literal; "Imm" positions take a
// literal as well. TypeImmOnly positions are encoding fields (modifier bits,
// offsets) that are always immediates.
type OperandType uint8

const (
	TypeNone OperandType = iota
	TypeReg
	TypeImmInt32
	TypeImmInt64
	TypeInlineInt32
	TypeInlineFP32
	TypeInlineFP16
	TypeInlineFP64
	TypeInlineV2FP16
	TypeInlineAC32
	TypeImmOnly
)

// OpInfo is the schema of one operand position.
type OpInfo struct {
	Name   OpName
	Type   OperandType
	Class  RegClass // canonical register class of the position
	Def    bool
	TiedTo int8 // operand index this position is tied to, -1 if untied
}

type DescFlags uint16

const (
	FlagMoveImm DescFlags = 1 << iota
	FlagRegSequence
	FlagPacked
	FlagScratchAccess // addresses the scratch (stack) aperture
	FlagCommutable
	FlagVariadic
	FlagPartialWrite // writes only part of the destination register
	FlagDebug
	FlagVALU
	FlagSALU
	FlagVOP3
	FlagTerminator
)

// Desc is the static description of an opcode: its operand schema, flags,
// and the implicit registers every instance reads or writes.
type Desc struct {
	Op      Opcode
	Name    string
	Ops     []OpInfo
	Flags   DescFlags
	ImpUses []Reg
	ImpDefs []Reg
}

func (d *Desc) Has(f DescFlags) bool { return d.Flags&f != 0 }

// NumExplicit returns the number of explicit operand positions.
func (d *Desc) NumExplicit() int { return len(d.Ops) }

// NamedIdx returns the operand index holding the given role, or -1.
func (d *Desc) NamedIdx(name OpName) int {
	for i := range d.Ops {
		if d.Ops[i].Name == name {
			return i
		}
	}
	return -1
}

// LookupDesc returns the descriptor for op, or nil for an unknown opcode.
func LookupDesc(op Opcode) *Desc {
	if int(op) >= len(descTable) || descTable[op].Name == "" {
		return nil
	}
	return &descTable[op]
}

// Schema shorthands used by the table below.
func def(name OpName, c RegClass) OpInfo {
	return OpInfo{Name: name, Type: TypeReg, Class: c, Def: true, TiedTo: -1}
}

func use(name OpName, t OperandType, c RegClass) OpInfo {
	return OpInfo{Name: name, Type: t, Class: c, TiedTo: -1}
}

func mods(name OpName) OpInfo {
	return OpInfo{Name: name, Type: TypeImmOnly, TiedTo: -1}
}

func imm(name OpName) OpInfo {
	return OpInfo{Name: name, Type: TypeImmOnly, TiedTo: -1}
}

func tied(name OpName, t OperandType, c RegClass, to int8) OpInfo {
	return OpInfo{Name: name, Type: t, Class: c, TiedTo: to}
}

// vop2 builds the common e32 shape: vdst, literal-capable src0, vector src1.
func vop2(name string, op Opcode, commutable bool, impDefs ...Reg) Desc {
	f := FlagVALU
	if commutable {
		f |= FlagCommutable
	}
	return Desc{
		Op:   op,
		Name: name,
		Ops: []OpInfo{
			def(NameVDst, VGPR32),
			use(NameSrc0, TypeImmInt32, VGPR32),
			use(NameSrc1, TypeReg, VGPR32),
		},
		Flags:   f,
		ImpUses: []Reg{RegEXEC},
		ImpDefs: impDefs,
	}
}

// vop3bin builds the common e64 shape for integer ops: vdst, two inline-only
// sources, no modifier slots.
func vop3bin(name string, op Opcode, commutable bool) Desc {
	f := FlagVALU | FlagVOP3
	if commutable {
		f |= FlagCommutable
	}
	return Desc{
		Op:   op,
		Name: name,
		Ops: []OpInfo{
			def(NameVDst, VGPR32),
			use(NameSrc0, TypeInlineInt32, VGPR32),
			use(NameSrc1, TypeInlineInt32, VGPR32),
		},
		Flags:   f,
		ImpUses: []Reg{RegEXEC},
	}
}

// sop2 builds the scalar two-source shape; scalar ALU writes scc.
func sop2(name string, op Opcode, commutable bool) Desc {
	f := FlagSALU
	if commutable {
		f |= FlagCommutable
	}
	return Desc{
		Op:   op,
		Name: name,
		Ops: []OpInfo{
			def(NameVDst, SGPR32),
			use(NameSrc0, TypeImmInt32, SGPR32),
			use(NameSrc1, TypeImmInt32, SGPR32),
		},
		Flags:   f,
		ImpDefs: []Reg{RegSCC},
	}
}

// vop3f builds the e64 floating point shape with source modifiers, clamp
// and output-modifier slots.
func vop3f(name string, op Opcode, srcTy OperandType, c RegClass, flags DescFlags) Desc {
	return Desc{
		Op:   op,
		Name: name,
		Ops: []OpInfo{
			def(NameVDst, c),
			mods(NameSrc0Mods),
			use(NameSrc0, srcTy, c),
			mods(NameSrc1Mods),
			use(NameSrc1, srcTy, c),
			imm(NameClamp),
			imm(NameOMod),
		},
		Flags:   FlagVALU | FlagVOP3 | FlagCommutable | flags,
		ImpUses: []Reg{RegEXEC},
	}
}

// mac builds the multiply-accumulate shape; src2 reads the previous value of
// vdst, so the two are tied.
func mac(name string, op Opcode, srcTy OperandType, tiedSrc2 bool) Desc {
	src2To := int8(-1)
	if tiedSrc2 {
		src2To = 0
	}
	return Desc{
		Op:   op,
		Name: name,
		Ops: []OpInfo{
			def(NameVDst, VGPR32),
			mods(NameSrc0Mods),
			use(NameSrc0, srcTy, VGPR32),
			mods(NameSrc1Mods),
			use(NameSrc1, srcTy, VGPR32),
			mods(NameSrc2Mods),
			tied(NameSrc2, srcTy, VGPR32, src2To),
			imm(NameClamp),
			imm(NameOMod),
		},
		Flags:   FlagVALU | FlagVOP3 | FlagCommutable,
		ImpUses: []Reg{RegEXEC},
	}
}

var descTable = func() [numOpcodes]Desc {
	var t [numOpcodes]Desc

	t[OpCOPY] = Desc{Op: OpCOPY, Name: "copy", Ops: []OpInfo{
		def(NameVDst, ClassNone),
		use(NameSrc0, TypeReg, ClassNone),
	}}
	t[OpREG_SEQUENCE] = Desc{Op: OpREG_SEQUENCE, Name: "reg_sequence",
		Ops:   []OpInfo{def(NameVDst, ClassNone)},
		Flags: FlagRegSequence | FlagVariadic,
	}
	t[OpIMPLICIT_DEF] = Desc{Op: OpIMPLICIT_DEF, Name: "implicit_def",
		Ops: []OpInfo{def(NameVDst, ClassNone)},
	}
	t[OpDBG_VALUE] = Desc{Op: OpDBG_VALUE, Name: "dbg_value",
		Flags: FlagVariadic | FlagDebug,
	}

	t[OpV_MOV_B32] = Desc{Op: OpV_MOV_B32, Name: "v_mov_b32",
		Ops: []OpInfo{
			def(NameVDst, VGPR32),
			use(NameSrc0, TypeImmInt32, VGPR32),
		},
		Flags:   FlagVALU | FlagMoveImm,
		ImpUses: []Reg{RegEXEC},
	}
	t[OpS_MOV_B32] = Desc{Op: OpS_MOV_B32, Name: "s_mov_b32",
		Ops: []OpInfo{
			def(NameVDst, SGPR32),
			use(NameSrc0, TypeImmInt32, SGPR32),
		},
		Flags: FlagSALU | FlagMoveImm,
	}
	t[OpS_MOV_B64] = Desc{Op: OpS_MOV_B64, Name: "s_mov_b64",
		Ops: []OpInfo{
			def(NameVDst, SGPR64),
			use(NameSrc0, TypeImmInt64, SGPR64),
		},
		Flags: FlagSALU | FlagMoveImm,
	}
	t[OpV_ACCVGPR_WRITE_B32] = Desc{Op: OpV_ACCVGPR_WRITE_B32, Name: "v_accvgpr_write_b32",
		Ops: []OpInfo{
			def(NameVDst, AGPR32),
			use(NameSrc0, TypeInlineAC32, VGPR32),
		},
		Flags:   FlagVALU,
		ImpUses: []Reg{RegEXEC},
	}
	t[OpV_ACCVGPR_READ_B32] = Desc{Op: OpV_ACCVGPR_READ_B32, Name: "v_accvgpr_read_b32",
		Ops: []OpInfo{
			def(NameVDst, VGPR32),
			use(NameSrc0, TypeReg, AGPR32),
		},
		Flags:   FlagVALU,
		ImpUses: []Reg{RegEXEC},
	}

	t[OpV_AND_B32_e32] = vop2("v_and_b32_e32", OpV_AND_B32_e32, true)
	t[OpV_AND_B32_e64] = vop3bin("v_and_b32_e64", OpV_AND_B32_e64, true)
	t[OpS_AND_B32] = sop2("s_and_b32", OpS_AND_B32, true)
	t[OpV_OR_B32_e32] = vop2("v_or_b32_e32", OpV_OR_B32_e32, true)
	t[OpV_OR_B32_e64] = vop3bin("v_or_b32_e64", OpV_OR_B32_e64, true)
	t[OpS_OR_B32] = sop2("s_or_b32", OpS_OR_B32, true)
	t[OpV_XOR_B32_e32] = vop2("v_xor_b32_e32", OpV_XOR_B32_e32, true)
	t[OpV_XOR_B32_e64] = vop3bin("v_xor_b32_e64", OpV_XOR_B32_e64, true)
	t[OpS_XOR_B32] = sop2("s_xor_b32", OpS_XOR_B32, true)

	t[OpV_NOT_B32_e32] = Desc{Op: OpV_NOT_B32_e32, Name: "v_not_b32_e32",
		Ops: []OpInfo{
			def(NameVDst, VGPR32),
			use(NameSrc0, TypeImmInt32, VGPR32),
		},
		Flags:   FlagVALU,
		ImpUses: []Reg{RegEXEC},
	}
	t[OpV_NOT_B32_e64] = Desc{Op: OpV_NOT_B32_e64, Name: "v_not_b32_e64",
		Ops: []OpInfo{
			def(NameVDst, VGPR32),
			use(NameSrc0, TypeInlineInt32, VGPR32),
		},
		Flags:   FlagVALU | FlagVOP3,
		ImpUses: []Reg{RegEXEC},
	}
	t[OpS_NOT_B32] = Desc{Op: OpS_NOT_B32, Name: "s_not_b32",
		Ops: []OpInfo{
			def(NameVDst, SGPR32),
			use(NameSrc0, TypeImmInt32, SGPR32),
		},
		Flags:   FlagSALU,
		ImpDefs: []Reg{RegSCC},
	}

	t[OpV_LSHL_B32_e32] = vop2("v_lshl_b32_e32", OpV_LSHL_B32_e32, false)
	t[OpV_LSHL_B32_e64] = vop3bin("v_lshl_b32_e64", OpV_LSHL_B32_e64, false)
	t[OpS_LSHL_B32] = sop2("s_lshl_b32", OpS_LSHL_B32, false)
	t[OpV_LSHLREV_B32_e32] = vop2("v_lshlrev_b32_e32", OpV_LSHLREV_B32_e32, false)
	t[OpV_LSHLREV_B32_e64] = vop3bin("v_lshlrev_b32_e64", OpV_LSHLREV_B32_e64, false)
	t[OpV_LSHR_B32_e32] = vop2("v_lshr_b32_e32", OpV_LSHR_B32_e32, false)
	t[OpV_LSHR_B32_e64] = vop3bin("v_lshr_b32_e64", OpV_LSHR_B32_e64, false)
	t[OpS_LSHR_B32] = sop2("s_lshr_b32", OpS_LSHR_B32, false)
	t[OpV_LSHRREV_B32_e32] = vop2("v_lshrrev_b32_e32", OpV_LSHRREV_B32_e32, false)
	t[OpV_LSHRREV_B32_e64] = vop3bin("v_lshrrev_b32_e64", OpV_LSHRREV_B32_e64, false)
	t[OpV_ASHR_I32_e32] = vop2("v_ashr_i32_e32", OpV_ASHR_I32_e32, false)
	t[OpV_ASHR_I32_e64] = vop3bin("v_ashr_i32_e64", OpV_ASHR_I32_e64, false)
	t[OpS_ASHR_I32] = sop2("s_ashr_i32", OpS_ASHR_I32, false)
	t[OpV_ASHRREV_I32_e32] = vop2("v_ashrrev_i32_e32", OpV_ASHRREV_I32_e32, false)
	t[OpV_ASHRREV_I32_e64] = vop3bin("v_ashrrev_i32_e64", OpV_ASHRREV_I32_e64, false)

	t[OpV_LSHL_OR_B32] = Desc{Op: OpV_LSHL_OR_B32, Name: "v_lshl_or_b32",
		Ops: []OpInfo{
			def(NameVDst, VGPR32),
			use(NameSrc0, TypeInlineInt32, VGPR32),
			use(NameSrc1, TypeInlineInt32, VGPR32),
			use(NameSrc2, TypeInlineInt32, VGPR32),
		},
		Flags:   FlagVALU | FlagVOP3,
		ImpUses: []Reg{RegEXEC},
	}

	t[OpV_ADD_I32_e32] = vop2("v_add_i32_e32", OpV_ADD_I32_e32, true, RegVCC)
	t[OpV_SUB_I32_e32] = vop2("v_sub_i32_e32", OpV_SUB_I32_e32, false, RegVCC)
	t[OpV_SUBREV_I32_e32] = vop2("v_subrev_i32_e32", OpV_SUBREV_I32_e32, false, RegVCC)
	t[OpV_ADD_I32_e64] = carryOut(vop3bin("v_add_i32_e64", OpV_ADD_I32_e64, true))
	t[OpV_SUB_I32_e64] = carryOut(vop3bin("v_sub_i32_e64", OpV_SUB_I32_e64, false))
	t[OpV_SUBREV_I32_e64] = carryOut(vop3bin("v_subrev_i32_e64", OpV_SUBREV_I32_e64, false))

	t[OpV_MAC_F32_e64] = mac("v_mac_f32_e64", OpV_MAC_F32_e64, TypeInlineFP32, true)
	t[OpV_MAC_F16_e64] = mac("v_mac_f16_e64", OpV_MAC_F16_e64, TypeInlineFP16, true)
	t[OpV_FMAC_F32_e64] = mac("v_fmac_f32_e64", OpV_FMAC_F32_e64, TypeInlineFP32, true)
	t[OpV_FMAC_F16_e64] = mac("v_fmac_f16_e64", OpV_FMAC_F16_e64, TypeInlineFP16, true)
	t[OpV_MAD_F32] = mac("v_mad_f32", OpV_MAD_F32, TypeInlineFP32, false)
	t[OpV_MAD_F16] = mac("v_mad_f16", OpV_MAD_F16, TypeInlineFP16, false)
	t[OpV_FMA_F32] = mac("v_fma_f32", OpV_FMA_F32, TypeInlineFP32, false)
	t[OpV_FMA_F16] = mac("v_fma_f16", OpV_FMA_F16, TypeInlineFP16, false)

	t[OpV_MAX_F32_e64] = vop3f("v_max_f32_e64", OpV_MAX_F32_e64, TypeInlineFP32, VGPR32, 0)
	t[OpV_MAX_F16_e64] = vop3f("v_max_f16_e64", OpV_MAX_F16_e64, TypeInlineFP16, VGPR32, 0)
	t[OpV_MAX_F64] = vop3f("v_max_f64", OpV_MAX_F64, TypeInlineFP64, VGPR64, 0)
	t[OpV_PK_MAX_F16] = Desc{Op: OpV_PK_MAX_F16, Name: "v_pk_max_f16",
		Ops: []OpInfo{
			def(NameVDst, VGPR32),
			mods(NameSrc0Mods),
			use(NameSrc0, TypeInlineV2FP16, VGPR32),
			mods(NameSrc1Mods),
			use(NameSrc1, TypeInlineV2FP16, VGPR32),
			imm(NameClamp),
		},
		Flags:   FlagVALU | FlagVOP3 | FlagPacked | FlagCommutable,
		ImpUses: []Reg{RegEXEC},
	}
	t[OpV_MUL_F32_e64] = vop3f("v_mul_f32_e64", OpV_MUL_F32_e64, TypeInlineFP32, VGPR32, 0)
	t[OpV_MUL_F16_e64] = vop3f("v_mul_f16_e64", OpV_MUL_F16_e64, TypeInlineFP16, VGPR32, 0)
	t[OpV_ADD_F32_e64] = vop3f("v_add_f32_e64", OpV_ADD_F32_e64, TypeInlineFP32, VGPR32, 0)
	t[OpV_ADD_F16_e64] = vop3f("v_add_f16_e64", OpV_ADD_F16_e64, TypeInlineFP16, VGPR32, 0)

	t[OpV_CNDMASK_B32_e32] = Desc{Op: OpV_CNDMASK_B32_e32, Name: "v_cndmask_b32_e32",
		Ops: []OpInfo{
			def(NameVDst, VGPR32),
			use(NameSrc0, TypeImmInt32, VGPR32),
			use(NameSrc1, TypeReg, VGPR32),
		},
		Flags:   FlagVALU,
		ImpUses: []Reg{RegVCC, RegEXEC},
	}
	t[OpV_CNDMASK_B32_e64] = Desc{Op: OpV_CNDMASK_B32_e64, Name: "v_cndmask_b32_e64",
		Ops: []OpInfo{
			def(NameVDst, VGPR32),
			mods(NameSrc0Mods),
			use(NameSrc0, TypeInlineInt32, VGPR32),
			mods(NameSrc1Mods),
			use(NameSrc1, TypeInlineInt32, VGPR32),
			use(NameSrc2, TypeReg, SGPR64),
		},
		Flags:   FlagVALU | FlagVOP3,
		ImpUses: []Reg{RegEXEC},
	}

	t[OpS_SETREG_B32] = Desc{Op: OpS_SETREG_B32, Name: "s_setreg_b32",
		Ops: []OpInfo{
			imm(NameHwReg),
			use(NameSrc0, TypeReg, SGPR32),
		},
		Flags: FlagSALU,
	}
	t[OpS_SETREG_IMM32_B32] = Desc{Op: OpS_SETREG_IMM32_B32, Name: "s_setreg_imm32_b32",
		Ops: []OpInfo{
			imm(NameHwReg),
			use(NameSrc0, TypeImmInt32, ClassNone),
		},
		Flags: FlagSALU,
	}

	t[OpV_READFIRSTLANE_B32] = Desc{Op: OpV_READFIRSTLANE_B32, Name: "v_readfirstlane_b32",
		Ops: []OpInfo{
			def(NameVDst, SGPR32),
			use(NameSrc0, TypeReg, VGPR32),
		},
		Flags:   FlagVALU,
		ImpUses: []Reg{RegEXEC},
	}

	t[OpBUFFER_LOAD_DWORD] = Desc{Op: OpBUFFER_LOAD_DWORD, Name: "buffer_load_dword",
		Ops: []OpInfo{
			def(NameVDst, VGPR32),
			use(NameVAddr, TypeReg, VGPR32),
			use(NameSRsrc, TypeReg, SGPR128),
			use(NameSOffset, TypeReg, SGPR32),
			imm(NameOffset),
		},
		Flags:   FlagScratchAccess,
		ImpUses: []Reg{RegEXEC},
	}
	t[OpBUFFER_STORE_DWORD] = Desc{Op: OpBUFFER_STORE_DWORD, Name: "buffer_store_dword",
		Ops: []OpInfo{
			use(NameVData, TypeReg, VGPR32),
			use(NameVAddr, TypeReg, VGPR32),
			use(NameSRsrc, TypeReg, SGPR128),
			use(NameSOffset, TypeReg, SGPR32),
			imm(NameOffset),
		},
		Flags:   FlagScratchAccess,
		ImpUses: []Reg{RegEXEC},
	}
	t[OpSCRATCH_LOAD_DWORD] = Desc{Op: OpSCRATCH_LOAD_DWORD, Name: "scratch_load_dword",
		Ops: []OpInfo{
			def(NameVDst, VGPR32),
			use(NameVAddr, TypeReg, VGPR32),
			use(NameSOffset, TypeReg, SGPR32),
			imm(NameOffset),
		},
		Flags:   FlagScratchAccess,
		ImpUses: []Reg{RegEXEC},
	}
	t[OpSCRATCH_STORE_DWORD] = Desc{Op: OpSCRATCH_STORE_DWORD, Name: "scratch_store_dword",
		Ops: []OpInfo{
			use(NameVData, TypeReg, VGPR32),
			use(NameVAddr, TypeReg, VGPR32),
			use(NameSOffset, TypeReg, SGPR32),
			imm(NameOffset),
		},
		Flags:   FlagScratchAccess,
		ImpUses: []Reg{RegEXEC},
	}

	t[OpS_BRANCH] = Desc{Op: OpS_BRANCH, Name: "s_branch",
		Ops:   []OpInfo{imm(NameTarget)},
		Flags: FlagSALU | FlagTerminator,
	}
	t[OpS_CBRANCH_VCCNZ] = Desc{Op: OpS_CBRANCH_VCCNZ, Name: "s_cbranch_vccnz",
		Ops:     []OpInfo{imm(NameTarget)},
		Flags:   FlagSALU | FlagTerminator,
		ImpUses: []Reg{RegVCC},
	}
	t[OpS_ENDPGM] = Desc{Op: OpS_ENDPGM, Name: "s_endpgm",
		Flags: FlagSALU | FlagTerminator,
	}

	return t
}()

// carryOut widens a VOP3 integer shape with the explicit carry-out def used
// by the 64-bit encodings of add/sub.
func carryOut(d Desc) Desc {
	ops := make([]OpInfo, 0, len(d.Ops)+1)
	ops = append(ops, d.Ops[0])
	ops = append(ops, def(NameSDst, SGPR64))
	ops = append(ops, d.Ops[1:]...)
	d.Ops = ops
	return d
}

package mir

// Opcode tags an instruction with its operation. The set below is the slice
// of the Aquila ISA this backend's local optimizations reason about; opcode
// naming follows the hardware manual (V_ = vector ALU, S_ = scalar ALU,
// _e32/_e64 = 32/64-bit encodings of the same operation).
type Opcode uint16

const (
	OpInvalid Opcode = iota

	// Target-independent pseudo instructions.
	OpCOPY
	OpREG_SEQUENCE
	OpIMPLICIT_DEF
	OpDBG_VALUE

	// Moves.
	OpV_MOV_B32
	OpS_MOV_B32
	OpS_MOV_B64
	OpV_ACCVGPR_WRITE_B32
	OpV_ACCVGPR_READ_B32

	// Bitwise.
	OpV_AND_B32_e32
	OpV_AND_B32_e64
	OpS_AND_B32
	OpV_OR_B32_e32
	OpV_OR_B32_e64
	OpS_OR_B32
	OpV_XOR_B32_e32
	OpV_XOR_B32_e64
	OpS_XOR_B32
	OpV_NOT_B32_e32
	OpV_NOT_B32_e64
	OpS_NOT_B32

	// Shifts. The REV forms take the shift amount in src0.
	OpV_LSHL_B32_e32
	OpV_LSHL_B32_e64
	OpS_LSHL_B32
	OpV_LSHLREV_B32_e32
	OpV_LSHLREV_B32_e64
	OpV_LSHR_B32_e32
	OpV_LSHR_B32_e64
	OpS_LSHR_B32
	OpV_LSHRREV_B32_e32
	OpV_LSHRREV_B32_e64
	OpV_ASHR_I32_e32
	OpV_ASHR_I32_e64
	OpS_ASHR_I32
	OpV_ASHRREV_I32_e32
	OpV_ASHRREV_I32_e64
	OpV_LSHL_OR_B32

	// Integer add/sub with carry out.
	OpV_ADD_I32_e32
	OpV_ADD_I32_e64
	OpV_SUB_I32_e32
	OpV_SUB_I32_e64
	OpV_SUBREV_I32_e32
	OpV_SUBREV_I32_e64

	// Floating point multiply-accumulate family.
	OpV_MAC_F32_e64
	OpV_MAC_F16_e64
	OpV_FMAC_F32_e64
	OpV_FMAC_F16_e64
	OpV_MAD_F32
	OpV_MAD_F16
	OpV_FMA_F32
	OpV_FMA_F16

	// Floating point binary ops.
	OpV_MAX_F32_e64
	OpV_MAX_F16_e64
	OpV_MAX_F64
	OpV_PK_MAX_F16
	OpV_MUL_F32_e64
	OpV_MUL_F16_e64
	OpV_ADD_F32_e64
	OpV_ADD_F16_e64

	// Conditional select.
	OpV_CNDMASK_B32_e32
	OpV_CNDMASK_B32_e64

	// Hardware-register writes.
	OpS_SETREG_B32
	OpS_SETREG_IMM32_B32

	// Cross-bank lane read.
	OpV_READFIRSTLANE_B32

	// Scratch memory access.
	OpBUFFER_LOAD_DWORD
	OpBUFFER_STORE_DWORD
	OpSCRATCH_LOAD_DWORD
	OpSCRATCH_STORE_DWORD

	// Control flow.
	OpS_BRANCH
	OpS_CBRANCH_VCCNZ
	OpS_ENDPGM

	numOpcodes
)

func (op Opcode) String() string {
	if d := LookupDesc(op); d != nil {
		return d.Name
	}
	return "op?"
}

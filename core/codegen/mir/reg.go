package mir

import "strconv"

// Reg names a register operand value. Zero is "no register". Physical
// registers occupy the low value range; virtual registers have the high bit
// set and an index allocated by the owning Func.
type Reg uint32

const NoReg Reg = 0

const virtualRegFlag Reg = 1 << 31

// Named physical registers. The pass only ever needs to reason about the
// handful of architectural registers with special roles; general-purpose
// physical registers appear after allocation, which runs later.
const (
	RegEXEC Reg = iota + 1 // execution mask
	RegVCC                 // vector condition code / carry
	RegSCC                 // scalar condition code
	RegM0                  // memory-indexing control register
	RegSP                  // ABI stack pointer
	RegSOFF                // scratch wave offset
	RegSRSRC               // scratch buffer resource descriptor
	RegS0                  // generic scalar register, used by tests
	RegV0                  // generic vector register, used by tests
	numPhysRegs
)

var physRegNames = [...]string{
	RegEXEC:  "exec",
	RegVCC:   "vcc",
	RegSCC:   "scc",
	RegM0:    "m0",
	RegSP:    "sp",
	RegSOFF:  "soff",
	RegSRSRC: "srsrc",
	RegS0:    "s0",
	RegV0:    "v0",
}

var physRegClasses = [...]RegClass{
	RegEXEC:  SGPR64,
	RegVCC:   SGPR64,
	RegSCC:   SGPR32,
	RegM0:    SGPR32,
	RegSP:    SGPR32,
	RegSOFF:  SGPR32,
	RegSRSRC: SGPR128,
	RegS0:    SGPR32,
	RegV0:    VGPR32,
}

// PhysRegClass returns the class of a physical register, or ClassNone.
func PhysRegClass(r Reg) RegClass {
	if int(r) < len(physRegClasses) {
		return physRegClasses[r]
	}
	return ClassNone
}

// VirtReg builds the Reg name for virtual register index i.
func VirtReg(i uint32) Reg {
	return Reg(i) | virtualRegFlag
}

func (r Reg) IsVirtual() bool {
	return r&virtualRegFlag != 0
}

func (r Reg) IsPhysical() bool {
	return r != NoReg && !r.IsVirtual()
}

// VirtIndex returns the allocation index of a virtual register.
func (r Reg) VirtIndex() uint32 {
	return uint32(r &^ virtualRegFlag)
}

func (r Reg) String() string {
	if r == NoReg {
		return "noreg"
	}
	if r.IsVirtual() {
		return "%" + strconv.Itoa(int(r.VirtIndex()))
	}
	if int(r) < len(physRegNames) && physRegNames[r] != "" {
		return physRegNames[r]
	}
	return "phys" + strconv.Itoa(int(r))
}

// RegClass is a width+bank category of registers. Three banks exist: scalar
// (SGPR), vector (VGPR) and accumulator (AGPR).
type RegClass uint8

const (
	ClassNone RegClass = iota
	SGPR32
	SGPR64
	SGPR128
	VGPR32
	VGPR64
	VGPR96
	VGPR128
	VGPR256
	AGPR32
)

var regClassNames = [...]string{
	ClassNone: "none",
	SGPR32:    "sgpr32",
	SGPR64:    "sgpr64",
	SGPR128:   "sgpr128",
	VGPR32:    "vgpr32",
	VGPR64:    "vgpr64",
	VGPR96:    "vgpr96",
	VGPR128:   "vgpr128",
	VGPR256:   "vgpr256",
	AGPR32:    "agpr32",
}

func (c RegClass) String() string {
	if int(c) < len(regClassNames) {
		return regClassNames[c]
	}
	return "class?"
}

// Bits returns the register width in bits.
func (c RegClass) Bits() int {
	switch c {
	case SGPR32, VGPR32, AGPR32:
		return 32
	case SGPR64, VGPR64:
		return 64
	case VGPR96:
		return 96
	case SGPR128, VGPR128:
		return 128
	case VGPR256:
		return 256
	}
	return 0
}

func (c RegClass) IsScalar() bool {
	return c == SGPR32 || c == SGPR64 || c == SGPR128
}

func (c RegClass) IsVector() bool {
	switch c {
	case VGPR32, VGPR64, VGPR96, VGPR128, VGPR256:
		return true
	}
	return false
}

func (c RegClass) IsAccum() bool {
	return c == AGPR32
}

// SubReg selects a 32-bit lane of a wider register. NoSubReg reads the whole
// register.
type SubReg uint8

const (
	NoSubReg SubReg = iota
	Sub0
	Sub1
	Sub2
	Sub3
	Sub4
	Sub5
	Sub6
	Sub7
)

func (s SubReg) String() string {
	if s == NoSubReg {
		return ""
	}
	return ".sub" + strconv.Itoa(int(s-Sub0))
}

// Lane returns the 32-bit lane index selected by s, -1 for NoSubReg.
func (s SubReg) Lane() int {
	if s == NoSubReg {
		return -1
	}
	return int(s - Sub0)
}


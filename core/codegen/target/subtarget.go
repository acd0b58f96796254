// Package target implements the concrete oracles the codegen passes consult:
// instruction legality, commutation, inline-constant encoding and register
// class queries for the Aquila ISA.
package target

// Subtarget captures the encoding capabilities that vary across Aquila
// hardware generations.
type Subtarget struct {
	// HasInv2PiInlineImm marks generations whose inline constant set
	// includes 1/(2*pi).
	HasInv2PiInlineImm bool

	// HasVOP3Literal marks generations whose 64-bit encodings can carry a
	// 32-bit literal.
	HasVOP3Literal bool

	// HasMadF16 gates the rewrite of v_mac_f16 to its three-address form.
	HasMadF16 bool
}

// DefaultSubtarget returns the baseline generation: no inv2pi inline, no
// VOP3 literals, mad_f16 available.
func DefaultSubtarget() *Subtarget {
	return &Subtarget{HasMadF16: true}
}

// Package protocol owns the tagged binary struct codec.
//
// Ownership boundary:
// - struct marshal/unmarshal and nested recursion
// - scalar and sequence payload layouts
// - size and depth limits, error kinds
//
// Field headers live in package tag, integer packing in package varint and
// field descriptors in package schema.
//
// Wire layout of one struct:
//
//	{tag payload}* 0x7f
//
// Only fields holding a non-default value are written, in ascending index
// order. A tag byte is the 7-bit field index plus a flag bit whose meaning
// depends on the declared type (compact form, sign, or wide form). All fixed
// width integers and floats are big-endian.
package protocol

// Package sortkey encodes integers into fixed-width hex strings whose
// lexicographic order matches numeric order. Range scans over derived
// collections depend on every writer and reader using these helpers.
package sortkey

import (
	"fmt"
	"strings"
)

const (
	width32 = 8
	width64 = 16
)

// EncodeUint32 returns v as 8 zero-padded lowercase hex characters.
func EncodeUint32(v uint32) string {
	return fmt.Sprintf("%0*x", width32, v)
}

// EncodeUint64 returns v as 16 zero-padded lowercase hex characters.
func EncodeUint64(v uint64) string {
	return fmt.Sprintf("%0*x", width64, v)
}

// EncodeHeight encodes a block height.
func EncodeHeight(height uint32) string {
	return EncodeUint32(height)
}

// HeightTxn is the composite sort key of a record created by the txnNo-th
// transaction of the block at height.
func HeightTxn(height, txnNo uint32) string {
	return Compose(EncodeHeight(height), EncodeUint32(txnNo))
}

// Compose concatenates encoded parts. Parts must come from the Encode helpers
// so that every position has a fixed width.
func Compose(parts ...string) string {
	return strings.Join(parts, "")
}

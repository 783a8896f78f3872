package dftx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"
)

const (
	maxScriptSize = 10_000
	maxStringSize = 1_024
	maxListSize   = 1_024
	amountExp     = -8
)

var errVarIntOverflow = errors.New("varint overflows uint32")

// reader decodes the node's serialization format.
type reader struct {
	r *bytes.Reader
}

func newReader(b []byte) *reader {
	return &reader{r: bytes.NewReader(b)}
}

func (r *reader) remaining() int {
	return r.r.Len()
}

// tokenID reads a DCT_ID, which the node serializes as an MSB base-128 VARINT.
func (r *reader) tokenID(field string) (uint32, error) {
	var n uint64
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", field, eof(err))
		}
		if n > math.MaxUint32>>7 {
			return 0, fmt.Errorf("%s: %w", field, errVarIntOverflow)
		}
		n = n<<7 | uint64(b&0x7f)
		if b&0x80 == 0 {
			return uint32(n), nil
		}
		if n == math.MaxUint32 {
			return 0, fmt.Errorf("%s: %w", field, errVarIntOverflow)
		}
		n++
	}
}

func (r *reader) compactSize(field string, max uint64) (uint64, error) {
	n, err := wire.ReadVarInt(r.r, 0)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, eof(err))
	}
	if n > max {
		return 0, fmt.Errorf("%s: length %d exceeds %d", field, n, max)
	}
	return n, nil
}

func (r *reader) script(field string) ([]byte, error) {
	b, err := wire.ReadVarBytes(r.r, 0, maxScriptSize, field)
	if err != nil {
		return nil, eof(err)
	}
	return b, nil
}

func (r *reader) string(field string) (string, error) {
	b, err := wire.ReadVarBytes(r.r, 0, maxStringSize, field)
	if err != nil {
		return "", eof(err)
	}
	return string(b), nil
}

func (r *reader) int64(field string) (int64, error) {
	var v int64
	if err := binary.Read(r.r, binary.LittleEndian, &v); err != nil {
		return 0, fmt.Errorf("%s: %w", field, eof(err))
	}
	return v, nil
}

func (r *reader) uint8(field string) (uint8, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, eof(err))
	}
	return b, nil
}

func (r *reader) bool(field string) (bool, error) {
	b, err := r.uint8(field)
	return b != 0, err
}

// amount reads a CAmount: satoshis as int64, eight implied decimals.
func (r *reader) amount(field string) (decimal.Decimal, error) {
	sats, err := r.int64(field)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.New(sats, amountExp), nil
}

// balances reads a CBalances map.
func (r *reader) balances(field string) ([]TokenBalance, error) {
	n, err := r.compactSize(field, maxListSize)
	if err != nil {
		return nil, err
	}
	out := make([]TokenBalance, 0, n)
	for i := uint64(0); i < n; i++ {
		id, err := r.tokenID(field)
		if err != nil {
			return nil, err
		}
		amount, err := r.amount(field)
		if err != nil {
			return nil, err
		}
		out = append(out, TokenBalance{TokenID: id, Amount: amount})
	}
	return out, nil
}

func eof(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

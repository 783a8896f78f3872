// Package dftxtest builds custom transaction fixtures for tests.
package dftxtest

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"

	"defiScope/internal/model"
)

const magic = "DfTx"

// Writer serializes payload fields the way the node does.
type Writer struct {
	buf bytes.Buffer
}

// TokenID writes a DCT_ID as an MSB base-128 VARINT.
func (w *Writer) TokenID(n uint32) *Writer {
	var tmp [5]byte
	i := 0
	v := uint64(n)
	for {
		tmp[i] = byte(v & 0x7f)
		if i > 0 {
			tmp[i] |= 0x80
		}
		if v <= 0x7f {
			break
		}
		v = (v >> 7) - 1
		i++
	}
	for ; i >= 0; i-- {
		w.buf.WriteByte(tmp[i])
	}
	return w
}

func (w *Writer) CompactSize(n uint64) *Writer {
	_ = wire.WriteVarInt(&w.buf, 0, n)
	return w
}

func (w *Writer) VarBytes(b []byte) *Writer {
	_ = wire.WriteVarBytes(&w.buf, 0, b)
	return w
}

func (w *Writer) VarString(s string) *Writer {
	return w.VarBytes([]byte(s))
}

func (w *Writer) Int64(v int64) *Writer {
	_ = binary.Write(&w.buf, binary.LittleEndian, v)
	return w
}

// Amount writes a decimal string as a CAmount.
func (w *Writer) Amount(s string) *Writer {
	return w.Int64(decimal.RequireFromString(s).Shift(8).IntPart())
}

func (w *Writer) Uint8(v uint8) *Writer {
	w.buf.WriteByte(v)
	return w
}

// Payload returns the bytes written so far.
func (w *Writer) Payload() []byte {
	return append([]byte(nil), w.buf.Bytes()...)
}

// PoolSwap writes a pool swap body.
func PoolSwap(fromToken uint32, amount string, toToken uint32) *Writer {
	w := &Writer{}
	return w.VarBytes([]byte{0x00, 0x14, 0xaa}).
		TokenID(fromToken).
		Amount(amount).
		VarBytes([]byte{0x00, 0x14, 0xbb}).
		TokenID(toToken).
		Int64(9223372036854775807).
		Int64(9223372036854775807)
}

// CompositeSwap writes a composite swap body routed through pools.
func CompositeSwap(fromToken uint32, amount string, toToken uint32, pools ...uint32) *Writer {
	w := PoolSwap(fromToken, amount, toToken)
	w.CompactSize(uint64(len(pools)))
	for _, pool := range pools {
		w.TokenID(pool)
	}
	return w
}

// CreatePoolPair writes a create pool pair body without custom rewards.
func CreatePoolPair(tokenA, tokenB uint32, commission string, symbol string) *Writer {
	w := &Writer{}
	return w.TokenID(tokenA).
		TokenID(tokenB).
		Amount(commission).
		VarBytes([]byte{0x00, 0x14, 0xcc}).
		Uint8(1).
		VarString(symbol)
}

// UpdatePoolPair writes an update pool pair body that leaves the owner unchanged.
func UpdatePoolPair(pool uint32, status bool, commission string) *Writer {
	w := &Writer{}
	var s uint8
	if status {
		s = 1
	}
	return w.TokenID(pool).Uint8(s).Amount(commission).VarBytes(nil)
}

// PoolAddLiquidity writes an add liquidity body with one contributing script.
func PoolAddLiquidity(tokenA uint32, amountA string, tokenB uint32, amountB string) *Writer {
	w := &Writer{}
	return w.CompactSize(1).
		VarBytes([]byte{0x00, 0x14, 0xdd}).
		CompactSize(2).
		TokenID(tokenA).Amount(amountA).
		TokenID(tokenB).Amount(amountB).
		VarBytes([]byte{0x00, 0x14, 0xee})
}

// PoolRemoveLiquidity writes a remove liquidity body burning amount of the
// pool's share token.
func PoolRemoveLiquidity(pool uint32, amount string) *Writer {
	w := &Writer{}
	return w.VarBytes([]byte{0x00, 0x14, 0xdd}).TokenID(pool).Amount(amount)
}

// CreateToken writes a create token body.
func CreateToken(symbol, name string, flags uint8) *Writer {
	w := &Writer{}
	return w.VarString(symbol).VarString(name).Uint8(8).Amount("0").Uint8(flags)
}

// Output wraps a typed body in an OP_RETURN DfTx output.
func Output(t testing.TB, n uint32, typ byte, body []byte) model.Vout {
	t.Helper()
	data := append([]byte(magic), typ)
	data = append(data, body...)
	script, err := txscript.NewScriptBuilder().AddOp(txscript.OP_RETURN).AddData(data).Script()
	if err != nil {
		t.Fatalf("build script: %v", err)
	}
	return model.Vout{
		N: n,
		ScriptPubKey: model.ScriptPubKey{
			Asm:  "OP_RETURN " + hex.EncodeToString(data),
			Hex:  hex.EncodeToString(script),
			Type: "nulldata",
		},
	}
}

// Tx returns a transaction whose only output carries the custom transaction.
func Tx(t testing.TB, txid string, typ byte, body *Writer) model.RawTransaction {
	t.Helper()
	return model.RawTransaction{Txid: txid, Vout: []model.Vout{Output(t, 0, typ, body.Payload())}}
}

// Coinbase returns a transaction without custom outputs.
func Coinbase(txid string) model.RawTransaction {
	return model.RawTransaction{Txid: txid, Vout: []model.Vout{{
		N:            0,
		Value:        200,
		ScriptPubKey: model.ScriptPubKey{Asm: "OP_DUP OP_HASH160 0014 OP_EQUALVERIFY OP_CHECKSIG", Type: "pubkeyhash"},
	}}}
}

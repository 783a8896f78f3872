package dftx

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/txscript"
	"go.uber.org/zap"

	"defiScope/internal/metrics"
	"defiScope/internal/model"
)

// Magic prefixes every custom transaction payload.
const Magic = "DfTx"

// candidatePrefix is how a DfTx output renders in the node's asm field.
const candidatePrefix = "OP_RETURN 44665478"

// Type is the one-byte custom transaction opcode.
type Type byte

const (
	TypeCreateToken         Type = 'T'
	TypeCreatePoolPair      Type = 'p'
	TypeUpdatePoolPair      Type = 'u'
	TypePoolSwap            Type = 's'
	TypeCompositeSwap       Type = 'i'
	TypePoolAddLiquidity    Type = 'l'
	TypePoolRemoveLiquidity Type = 'r'
)

var typeNames = map[Type]string{
	TypeCreateToken:         "CreateToken",
	TypeCreatePoolPair:      "CreatePoolPair",
	TypeUpdatePoolPair:      "UpdatePoolPair",
	TypePoolSwap:            "PoolSwap",
	TypeCompositeSwap:       "CompositeSwap",
	TypePoolAddLiquidity:    "PoolAddLiquidity",
	TypePoolRemoveLiquidity: "PoolRemoveLiquidity",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%02x)", byte(t))
}

var (
	// ErrNotDfTx is returned for scripts that are not custom transactions.
	ErrNotDfTx = errors.New("not a DfTx script")
	// ErrMalformed is returned for custom transactions that fail to parse.
	ErrMalformed = errors.New("malformed DfTx")
)

// Transaction is a decoded custom transaction output.
type Transaction struct {
	Txn     model.RawTransaction
	TxnNo   uint32
	Vout    uint32
	Type    Type
	Payload any
}

// DecodeError describes an output that looked like a custom transaction but
// could not be decoded.
type DecodeError struct {
	Txid string
	Vout uint32
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s:%d: %v", e.Txid, e.Vout, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsCandidate reports whether an output's asm marks it as a custom transaction.
func IsCandidate(asm string) bool {
	return strings.HasPrefix(asm, candidatePrefix)
}

// ParseScript decodes a raw output script.
func ParseScript(script []byte) (Type, any, error) {
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	if !tokenizer.Next() {
		if err := tokenizer.Err(); err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return 0, nil, fmt.Errorf("%w: empty script", ErrNotDfTx)
	}
	if tokenizer.Opcode() != txscript.OP_RETURN {
		return 0, nil, fmt.Errorf("%w: first opcode is not OP_RETURN", ErrNotDfTx)
	}
	if !tokenizer.Next() {
		if err := tokenizer.Err(); err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return 0, nil, fmt.Errorf("%w: missing data push", ErrNotDfTx)
	}

	data := tokenizer.Data()
	if !bytes.HasPrefix(data, []byte(Magic)) {
		return 0, nil, fmt.Errorf("%w: missing magic", ErrNotDfTx)
	}
	if len(data) < len(Magic)+1 {
		return 0, nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	t := Type(data[len(Magic)])
	payload, err := parsePayload(t, data[len(Magic)+1:])
	if err != nil {
		return t, nil, fmt.Errorf("%w: %s: %v", ErrMalformed, t, err)
	}
	return t, payload, nil
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used for decode failures.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics counts decoded transactions and failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Decoder) {
		d.metrics = m
	}
}

// WithErrorHandler is called for every output skipped by a decode failure.
func WithErrorHandler(fn func(model.DecodeError)) Option {
	return func(d *Decoder) {
		d.onError = fn
	}
}

// Decoder extracts custom transactions from raw blocks.
type Decoder struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
	onError func(model.DecodeError)
}

func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode returns every custom transaction in the block, in block order.
// Outputs that fail to decode are reported and skipped.
func (d *Decoder) Decode(block model.RawBlock) []Transaction {
	var out []Transaction
	for txnNo, txn := range block.Tx {
		for _, vout := range txn.Vout {
			if !IsCandidate(vout.ScriptPubKey.Asm) {
				continue
			}
			t, payload, err := d.decodeOutput(vout)
			if err != nil {
				d.fail(block, txn.Txid, vout.N, err)
				continue
			}
			if d.metrics != nil {
				d.metrics.CustomTxs.WithLabelValues(t.String()).Inc()
			}
			out = append(out, Transaction{
				Txn:     txn,
				TxnNo:   uint32(txnNo),
				Vout:    vout.N,
				Type:    t,
				Payload: payload,
			})
		}
	}
	return out
}

func (d *Decoder) decodeOutput(vout model.Vout) (Type, any, error) {
	script, err := hex.DecodeString(vout.ScriptPubKey.Hex)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: script hex: %v", ErrMalformed, err)
	}
	return ParseScript(script)
}

func (d *Decoder) fail(block model.RawBlock, txid string, vout uint32, err error) {
	decodeErr := &DecodeError{Txid: txid, Vout: vout, Err: err}
	d.logger.Error("decode custom transaction failed",
		zap.Uint32("height", block.Height),
		zap.String("block_hash", block.Hash),
		zap.String("txid", txid),
		zap.Uint32("vout", vout),
		zap.Error(decodeErr),
	)
	if d.metrics != nil {
		d.metrics.DecodeFailures.Inc()
	}
	if d.onError != nil {
		d.onError(model.DecodeError{
			Height:    block.Height,
			BlockHash: block.Hash,
			Txid:      txid,
			Vout:      vout,
			Error:     err.Error(),
		})
	}
}

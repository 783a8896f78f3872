package indexer

import (
	"errors"
	"fmt"

	"defiScope/internal/dftx"
)

// ErrIndexer matches every IndexerError with errors.Is.
var ErrIndexer = errors.New("indexer error")

// IndexerError means derived state the block depends on is missing or
// inconsistent. The block must not be committed.
type IndexerError struct {
	Type dftx.Type
	Txid string
	Msg  string
}

func (e *IndexerError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Type, e.Txid, e.Msg)
}

func (e *IndexerError) Is(target error) bool {
	return target == ErrIndexer
}

func indexerErrorf(t dftx.Type, txid, format string, args ...any) error {
	return &IndexerError{Type: t, Txid: txid, Msg: fmt.Sprintf(format, args...)}
}

package indexer

import (
	"time"

	"defiScope/internal/model"
	"defiScope/internal/sortkey"
)

func buildBlockRecord(block model.RawBlock, indexedAt time.Time) model.Block {
	return model.Block{
		Hash:              block.Hash,
		Height:            block.Height,
		PreviousBlockHash: block.PreviousBlockHash,
		Time:              block.Time,
		MedianTime:        block.MedianTime,
		TransactionCount:  len(block.Tx),
		Sort:              sortkey.EncodeHeight(block.Height),
		IndexedAt:         indexedAt.UTC().Format(time.RFC3339Nano),
	}
}

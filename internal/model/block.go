package model

// ScriptPubKey is the locking script of an output in both asm and hex form.
type ScriptPubKey struct {
	Asm  string `json:"asm"`
	Hex  string `json:"hex"`
	Type string `json:"type,omitempty"`
}

// Vout is a transaction output as returned by getblock verbosity 2.
type Vout struct {
	N            uint32       `json:"n"`
	Value        float64      `json:"value"`
	ScriptPubKey ScriptPubKey `json:"scriptPubKey"`
}

// RawTransaction is a transaction inside a RawBlock.
type RawTransaction struct {
	Txid string `json:"txid"`
	Hash string `json:"hash"`
	Vout []Vout `json:"vout"`
}

// RawBlock is a block as delivered by the node. It is never mutated after fetch.
type RawBlock struct {
	Hash              string           `json:"hash"`
	Height            uint32           `json:"height"`
	Time              int64            `json:"time"`
	MedianTime        int64            `json:"mediantime"`
	PreviousBlockHash string           `json:"previousblockhash,omitempty"`
	Tx                []RawTransaction `json:"tx"`
}

// Ref returns the denormalized reference stored alongside derived records.
func (b RawBlock) Ref() BlockRef {
	return BlockRef{
		Hash:       b.Hash,
		Height:     b.Height,
		Time:       b.Time,
		MedianTime: b.MedianTime,
	}
}

// BlockRef is a denormalized block reference.
type BlockRef struct {
	Hash       string `json:"hash"`
	Height     uint32 `json:"height"`
	Time       int64  `json:"time"`
	MedianTime int64  `json:"medianTime"`
}

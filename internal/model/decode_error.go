package model

// DecodeError records a custom transaction output that could not be decoded.
type DecodeError struct {
	Height    uint32 `json:"height"`
	BlockHash string `json:"block_hash"`
	Txid      string `json:"txid"`
	Vout      uint32 `json:"vout"`
	Error     string `json:"error"`
}

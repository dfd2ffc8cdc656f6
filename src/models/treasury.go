package models

import "time"

// MWallet is a configured wallet plus its computed balance snapshot.
type MWallet struct {
	Address       string   `json:"address"`
	Name          string   `json:"name"`
	Symbols       []string `json:"symbols"`
	NativeBalance float64  `json:"native_balance"`
	TokenBalance  float64  `json:"token_balance"`
	NativeFiat    float64  `json:"native_fiat"`
	TotalFiat     float64  `json:"total_fiat"`
}

// MPriceQuote is the spot price of the native asset.
type MPriceQuote struct {
	Asset     string    `json:"asset"`
	Currency  string    `json:"currency"`
	Price     float64   `json:"price"`
	FetchedAt time.Time `json:"fetched_at"`
	Stale     bool      `json:"stale"`
}

// MTreasuryAggregate is the merged, cached result of one aggregation cycle.
type MTreasuryAggregate struct {
	Wallets    []MWallet   `json:"wallets"`
	Price      MPriceQuote `json:"price"`
	TotalFiat  float64     `json:"total_fiat"`
	CapturedAt time.Time   `json:"captured_at"`
}

// MTransferDirection is relative to the queried address.
type MTransferDirection string

const (
	DirectionIn  MTransferDirection = "in"
	DirectionOut MTransferDirection = "out"
)

// MTransfer is a native or token transfer normalized to one shape.
type MTransfer struct {
	Hash      string             `json:"hash"`
	From      string             `json:"from"`
	To        string             `json:"to"`
	Value     float64            `json:"value"`
	Symbol    string             `json:"symbol"`
	Timestamp int64              `json:"timestamp"` // unix seconds
	Direction MTransferDirection `json:"direction"`
}

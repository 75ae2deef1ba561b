package model

import "github.com/shopspring/decimal"

// TokenPosition is a signed balance change of one token for a holder.
type TokenPosition struct {
	TokenAddress  string          `json:"token_address"`
	TokenSymbol   string          `json:"token_symbol"`
	TokenStandard Standard        `json:"token_standard"`
	Balance       decimal.Decimal `json:"balance"`
}

// BalanceEntry lists the token positions of a holder in first-seen order.
type BalanceEntry struct {
	Holder AddressRef      `json:"holder"`
	Tokens []TokenPosition `json:"tokens"`
}

// BalanceDelta is a single position change produced outside the transfer stream.
type BalanceDelta struct {
	Holder   AddressRef
	Position TokenPosition
}

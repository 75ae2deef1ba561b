package model

import "github.com/shopspring/decimal"

// Standard classifies the transfer semantics of a token contract.
type Standard string

const (
	StandardETH     Standard = "ETH"
	StandardERC20   Standard = "ERC20"
	StandardERC721  Standard = "ERC721"
	StandardERC1155 Standard = "ERC1155"
)

// NativeSymbol is the symbol reported for native value transfers.
const NativeSymbol = "ETH"

// NativeDecimals is the decimal exponent of the native currency.
const NativeDecimals = 18

// TransferRecord is the canonical form of a value or token movement.
type TransferRecord struct {
	From          AddressRef      `json:"from_address"`
	To            AddressRef      `json:"to_address"`
	TokenStandard Standard        `json:"token_standard"`
	TokenAddress  string          `json:"token_address"`
	TokenSymbol   string          `json:"token_symbol"`
	Value         decimal.Decimal `json:"value"`
}

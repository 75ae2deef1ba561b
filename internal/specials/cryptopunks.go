package specials

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"tokenflow/internal/model"
)

const (
	// CryptoPunksAddress is the mainnet CryptoPunksMarket contract.
	CryptoPunksAddress = "0xb47e3cd837ddf8e4c57f05d70ab865de6e193bbb"
	// PunkStandard tags punk transfers, which follow no ERC standard.
	PunkStandard model.Standard = "PUNK00"

	eventPunkTransfer = "PunkTransfer"
	eventPunkBought   = "PunkBought"
	eventTransfer     = "Transfer"
)

// RegisterCryptoPunks binds the punk market handler to r.
func RegisterCryptoPunks(r *Registry) {
	r.Register(CryptoPunksAddress, cryptoPunks{}, eventPunkTransfer, eventPunkBought)
}

// cryptoPunks covers the three ways a punk changes hands:
//
//	transferPunk:     PunkTransfer(from, to, punkIndex)
//	buyPunk:          PunkBought(punkIndex, value, from, to)
//	acceptBidForPunk: Transfer(from, to, 1) followed by PunkBought(punkIndex, value, from, 0x0)
type cryptoPunks struct{}

type punkTrade struct {
	from  string
	to    string
	index *big.Int
}

func (cryptoPunks) Transfers(group Group) ([]model.TransferRecord, error) {
	trade, err := readPunkTrade(group)
	if err != nil {
		return nil, err
	}
	return []model.TransferRecord{{
		From:          model.NewAddressRef(trade.from),
		To:            model.NewAddressRef(trade.to),
		TokenStandard: PunkStandard,
		TokenAddress:  trade.identity(),
		TokenSymbol:   trade.symbol(),
		Value:         decimal.NewFromInt(1),
	}}, nil
}

func (cryptoPunks) Balances(group Group) ([]model.BalanceDelta, error) {
	trade, err := readPunkTrade(group)
	if err != nil {
		return nil, err
	}
	position := model.TokenPosition{
		TokenAddress:  trade.identity(),
		TokenSymbol:   trade.symbol(),
		TokenStandard: PunkStandard,
	}
	seller, buyer := position, position
	seller.Balance = decimal.NewFromInt(-1)
	buyer.Balance = decimal.NewFromInt(1)
	return []model.BalanceDelta{
		{Holder: model.NewAddressRef(trade.from), Position: seller},
		{Holder: model.NewAddressRef(trade.to), Position: buyer},
	}, nil
}

func (t punkTrade) identity() string {
	return model.FormatTokenIdentity(CryptoPunksAddress, t.index)
}

func (t punkTrade) symbol() string {
	return "NFT " + t.index.String()
}

func readPunkTrade(group Group) (punkTrade, error) {
	event := group.Event
	switch {
	case event.EventName == eventPunkTransfer:
		return punkTradeFrom(group, event, 0, 1, event, 2)
	case group.Previous != nil && group.Previous.EventName == eventTransfer:
		return punkTradeFrom(group, *group.Previous, 0, 1, event, 0)
	default:
		return punkTradeFrom(group, event, 2, 3, event, 0)
	}
}

// punkTradeFrom reads from/to out of parties and the punk index out of indexed.
func punkTradeFrom(group Group, parties model.LogEvent, fromAt, toAt int, indexed model.LogEvent, indexAt int) (punkTrade, error) {
	malformed := func(format string, args ...interface{}) error {
		return &model.MalformedEventError{Index: group.Index, EventName: group.Event.EventName, Reason: fmt.Sprintf(format, args...)}
	}

	from, err := addressParam(parties, fromAt)
	if err != nil {
		return punkTrade{}, malformed("%s from: %v", parties.EventName, err)
	}
	to, err := addressParam(parties, toAt)
	if err != nil {
		return punkTrade{}, malformed("%s to: %v", parties.EventName, err)
	}
	param, ok := indexed.Param(indexAt)
	if !ok {
		return punkTrade{}, malformed("missing punk index")
	}
	index, err := param.BigInt()
	if err != nil {
		return punkTrade{}, malformed("punk index: %v", err)
	}
	return punkTrade{from: from, to: to, index: index}, nil
}

func addressParam(event model.LogEvent, i int) (string, error) {
	param, ok := event.Param(i)
	if !ok {
		return "", fmt.Errorf("missing parameter %d", i)
	}
	return param.Address()
}

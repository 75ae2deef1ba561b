package aggregate

import (
	"strings"

	"github.com/shopspring/decimal"

	"tokenflow/internal/model"
)

type positionKey struct {
	token    string
	standard model.Standard
}

// holderState accumulates the positions of one holder.
type holderState struct {
	holder    model.AddressRef
	positions []model.TokenPosition
	index     map[positionKey]int
}

func newHolderState(holder model.AddressRef) *holderState {
	return &holderState{holder: holder, index: make(map[positionKey]int)}
}

func (h *holderState) add(position model.TokenPosition) {
	key := positionKey{token: strings.ToLower(position.TokenAddress), standard: position.TokenStandard}
	if i, ok := h.index[key]; ok {
		h.positions[i].Balance = h.positions[i].Balance.Add(position.Balance)
		return
	}
	h.index[key] = len(h.positions)
	h.positions = append(h.positions, position)
}

// Table folds transfers and balance deltas into per-holder positions.
// Holders and their tokens keep first-appearance order.
type Table struct {
	holders []*holderState
	index   map[string]int
}

func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// ApplyTransfer debits the sender and credits the receiver.
func (t *Table) ApplyTransfer(transfer model.TransferRecord) {
	position := model.TokenPosition{
		TokenAddress:  transfer.TokenAddress,
		TokenSymbol:   transfer.TokenSymbol,
		TokenStandard: transfer.TokenStandard,
	}
	debit, credit := position, position
	debit.Balance = transfer.Value.Neg()
	credit.Balance = transfer.Value
	t.holderFor(transfer.From).add(debit)
	t.holderFor(transfer.To).add(credit)
}

// ApplyDelta adds a single position change.
func (t *Table) ApplyDelta(delta model.BalanceDelta) {
	t.holderFor(delta.Holder).add(delta.Position)
}

// Entries returns a snapshot of the table.
func (t *Table) Entries() []model.BalanceEntry {
	out := make([]model.BalanceEntry, 0, len(t.holders))
	for _, h := range t.holders {
		tokens := make([]model.TokenPosition, len(h.positions))
		copy(tokens, h.positions)
		out = append(out, model.BalanceEntry{Holder: h.holder, Tokens: tokens})
	}
	return out
}

func (t *Table) holderFor(holder model.AddressRef) *holderState {
	key := strings.ToLower(holder.Address)
	if i, ok := t.index[key]; ok {
		return t.holders[i]
	}
	h := newHolderState(holder)
	t.index[key] = len(t.holders)
	t.holders = append(t.holders, h)
	return h
}

// Fold builds balances from transfers first, then deltas.
func Fold(transfers []model.TransferRecord, deltas []model.BalanceDelta) []model.BalanceEntry {
	table := NewTable()
	for _, transfer := range transfers {
		table.ApplyTransfer(transfer)
	}
	for _, delta := range deltas {
		table.ApplyDelta(delta)
	}
	return table.Entries()
}

// balanceOf returns the summed balance of token for holder, zero when absent.
func (t *Table) balanceOf(holder, token string, standard model.Standard) decimal.Decimal {
	i, ok := t.index[strings.ToLower(holder)]
	if !ok {
		return decimal.Zero
	}
	h := t.holders[i]
	if j, ok := h.index[positionKey{token: strings.ToLower(token), standard: standard}]; ok {
		return h.positions[j].Balance
	}
	return decimal.Zero
}

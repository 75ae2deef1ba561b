package transfers

import (
	"context"
	"fmt"
	"math/big"

	"tokenflow/internal/model"
)

const (
	eventTransfer       = "Transfer"
	eventTransferSingle = "TransferSingle"
	eventTransferBatch  = "TransferBatch"
)

// eventShape is a recognised event with its parameters already type-checked.
// Implementations live in this file only.
type eventShape interface {
	normalize(ctx context.Context, n *Normalizer, event model.LogEvent, proxies model.ProxyMap) ([]model.TransferRecord, []model.Warning, error)
}

// transferShape is Transfer(from, to, amountOrTokenId) shared by ERC20 and ERC721.
type transferShape struct {
	from, to string
	amount   *big.Int
}

// transferSingleShape is ERC1155 TransferSingle(operator, from, to, id, value).
type transferSingleShape struct {
	from, to string
	id       *big.Int
	amount   *big.Int
}

// transferBatchShape is ERC1155 TransferBatch(operator, from, to, ids, values),
// cut to the shorter of the two arrays.
type transferBatchShape struct {
	index       int
	from, to    string
	ids         []*big.Int
	amounts     []*big.Int
	idCount     int
	amountCount int
}

func (s transferBatchShape) truncated() bool {
	return s.idCount != s.amountCount
}

type shapeParser func(p paramReader) (eventShape, error)

var shapeParsers = map[string]shapeParser{
	eventTransfer:       parseTransfer,
	eventTransferSingle: parseTransferSingle,
	eventTransferBatch:  parseTransferBatch,
}

// parseShape returns nil for events that carry no transfer semantics.
func parseShape(index int, event model.LogEvent) (eventShape, error) {
	parse, ok := shapeParsers[event.EventName]
	if !ok {
		return nil, nil
	}
	return parse(paramReader{index: index, event: event})
}

func parseTransfer(p paramReader) (eventShape, error) {
	if err := p.require(3); err != nil {
		return nil, err
	}
	from, err := p.address(0)
	if err != nil {
		return nil, err
	}
	to, err := p.address(1)
	if err != nil {
		return nil, err
	}
	amount, err := p.integer(2)
	if err != nil {
		return nil, err
	}
	return transferShape{from: from, to: to, amount: amount}, nil
}

func parseTransferSingle(p paramReader) (eventShape, error) {
	if err := p.require(5); err != nil {
		return nil, err
	}
	from, to, err := p.parties()
	if err != nil {
		return nil, err
	}
	id, err := p.integer(3)
	if err != nil {
		return nil, err
	}
	amount, err := p.integer(4)
	if err != nil {
		return nil, err
	}
	return transferSingleShape{from: from, to: to, id: id, amount: amount}, nil
}

func parseTransferBatch(p paramReader) (eventShape, error) {
	if err := p.require(5); err != nil {
		return nil, err
	}
	from, to, err := p.parties()
	if err != nil {
		return nil, err
	}
	ids, err := p.integers(3)
	if err != nil {
		return nil, err
	}
	amounts, err := p.integers(4)
	if err != nil {
		return nil, err
	}

	n := len(ids)
	if len(amounts) < n {
		n = len(amounts)
	}
	return transferBatchShape{
		index:       p.index,
		from:        from,
		to:          to,
		ids:         ids[:n],
		amounts:     amounts[:n],
		idCount:     len(ids),
		amountCount: len(amounts),
	}, nil
}

type paramReader struct {
	index int
	event model.LogEvent
}

func (p paramReader) malformed(format string, args ...interface{}) error {
	return &model.MalformedEventError{Index: p.index, EventName: p.event.EventName, Reason: fmt.Sprintf(format, args...)}
}

func (p paramReader) require(n int) error {
	if len(p.event.Parameters) < n {
		return p.malformed("expected %d parameters, got %d", n, len(p.event.Parameters))
	}
	return nil
}

func (p paramReader) address(i int) (string, error) {
	address, err := p.event.Parameters[i].Address()
	if err != nil {
		return "", p.malformed("parameter %d: %v", i, err)
	}
	return address, nil
}

// parties reads ERC1155 from/to, repairing addresses sent as 32-byte words.
func (p paramReader) parties() (string, string, error) {
	from, err := p.address(1)
	if err != nil {
		return "", "", err
	}
	to, err := p.address(2)
	if err != nil {
		return "", "", err
	}
	return model.NormalizeAddress(from), model.NormalizeAddress(to), nil
}

func (p paramReader) integer(i int) (*big.Int, error) {
	n, err := p.event.Parameters[i].BigInt()
	if err != nil {
		return nil, p.malformed("parameter %d: %v", i, err)
	}
	return n, nil
}

func (p paramReader) integers(i int) ([]*big.Int, error) {
	n, err := p.event.Parameters[i].BigInts()
	if err != nil {
		return nil, p.malformed("parameter %d: %v", i, err)
	}
	return n, nil
}

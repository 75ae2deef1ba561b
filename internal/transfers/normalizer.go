package transfers

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tokenflow/internal/model"
	"tokenflow/internal/semantics"
)

// Normalizer maps Transfer, TransferSingle and TransferBatch events to transfer records.
type Normalizer struct {
	repo   semantics.Repository
	logger *zap.Logger
}

func NewNormalizer(repo semantics.Repository, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{repo: repo, logger: logger}
}

// NormalizeEvent converts the event at index. Unrecognised events and events
// whose contract has no matching standard yield no records.
func (n *Normalizer) NormalizeEvent(ctx context.Context, index int, event model.LogEvent, proxies model.ProxyMap) ([]model.TransferRecord, []model.Warning, error) {
	shape, err := parseShape(index, event)
	if err != nil || shape == nil {
		return nil, nil, err
	}
	return shape.normalize(ctx, n, event, proxies)
}

func (s transferShape) normalize(ctx context.Context, n *Normalizer, event model.LogEvent, proxies model.ProxyMap) ([]model.TransferRecord, []model.Warning, error) {
	standard, err := ResolveStandard(ctx, n.repo, event, proxies)
	if err != nil {
		return nil, nil, err
	}

	record := model.TransferRecord{TokenStandard: standard}
	switch standard {
	case model.StandardERC20:
		meta, err := n.repo.GetTokenData(ctx, event.ChainID, event.ContractAddress, proxies)
		if err != nil {
			return nil, nil, fmt.Errorf("get token data %s: %w", event.ContractAddress, err)
		}
		record.TokenAddress = event.ContractAddress
		record.TokenSymbol = meta.Symbol
		record.Value = decimal.NewFromBigInt(s.amount, -int32(meta.Decimals))
	case model.StandardERC721:
		record.TokenAddress = model.FormatTokenIdentity(event.ContractAddress, s.amount)
		record.TokenSymbol = s.amount.String()
		record.Value = decimal.NewFromInt(1)
	default:
		n.logger.Debug("transfer dropped",
			zap.String("contract", event.ContractAddress),
			zap.String("standard", string(standard)),
		)
		return nil, nil, nil
	}

	record.From = n.addressRef(ctx, event.ChainID, s.from, proxies)
	record.To = n.addressRef(ctx, event.ChainID, s.to, proxies)
	return []model.TransferRecord{record}, nil, nil
}

func (s transferSingleShape) normalize(ctx context.Context, n *Normalizer, event model.LogEvent, proxies model.ProxyMap) ([]model.TransferRecord, []model.Warning, error) {
	ok, err := n.isMultiToken(ctx, event, proxies)
	if err != nil || !ok {
		return nil, nil, err
	}
	return []model.TransferRecord{{
		From:          n.addressRef(ctx, event.ChainID, s.from, proxies),
		To:            n.addressRef(ctx, event.ChainID, s.to, proxies),
		TokenStandard: model.StandardERC1155,
		TokenAddress:  model.FormatTokenIdentity(event.ContractAddress, s.id),
		TokenSymbol:   s.id.String(),
		Value:         decimal.NewFromBigInt(s.amount, 0),
	}}, nil, nil
}

func (s transferBatchShape) normalize(ctx context.Context, n *Normalizer, event model.LogEvent, proxies model.ProxyMap) ([]model.TransferRecord, []model.Warning, error) {
	ok, err := n.isMultiToken(ctx, event, proxies)
	if err != nil || !ok {
		return nil, nil, err
	}

	var warnings []model.Warning
	if s.truncated() {
		warning := model.Warning{
			Code:       model.WarnBatchLengthMismatch,
			EventIndex: s.index,
			Message:    fmt.Sprintf("%d ids and %d values, kept %d", s.idCount, s.amountCount, len(s.ids)),
		}
		n.logger.Warn("batch length mismatch",
			zap.String("contract", event.ContractAddress),
			zap.Int("event_index", s.index),
			zap.String("detail", warning.Message),
		)
		warnings = append(warnings, warning)
	}

	from := n.addressRef(ctx, event.ChainID, s.from, proxies)
	to := n.addressRef(ctx, event.ChainID, s.to, proxies)
	out := make([]model.TransferRecord, 0, len(s.ids))
	for i, id := range s.ids {
		out = append(out, model.TransferRecord{
			From:          from,
			To:            to,
			TokenStandard: model.StandardERC1155,
			TokenAddress:  model.FormatTokenIdentity(event.ContractAddress, id),
			TokenSymbol:   id.String(),
			Value:         decimal.NewFromBigInt(s.amounts[i], 0),
		})
	}
	return out, warnings, nil
}

func (n *Normalizer) isMultiToken(ctx context.Context, event model.LogEvent, proxies model.ProxyMap) (bool, error) {
	standard, err := ResolveStandard(ctx, n.repo, event, proxies)
	if err != nil {
		return false, err
	}
	if standard != model.StandardERC1155 {
		n.logger.Debug("multi-token transfer dropped",
			zap.String("contract", event.ContractAddress),
			zap.String("standard", string(standard)),
		)
		return false, nil
	}
	return true, nil
}

// addressRef labels address. Labels are cosmetic; a failed lookup keeps the address.
func (n *Normalizer) addressRef(ctx context.Context, chainID uint64, address string, proxies model.ProxyMap) model.AddressRef {
	ref := model.NewAddressRef(address)
	label, err := n.repo.GetAddressLabel(ctx, chainID, address, proxies)
	if err != nil {
		n.logger.Debug("address label lookup failed", zap.String("address", address), zap.Error(err))
		return ref
	}
	if label != "" {
		ref.Name = label
	}
	return ref
}

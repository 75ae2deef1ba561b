package transfers

import (
	"github.com/shopspring/decimal"

	"tokenflow/internal/model"
)

// DefaultDepthLimit bounds call-tree traversal.
const DefaultDepthLimit = 2000

// WalkCalls emits a native transfer for every successful call carrying value,
// parents before children and siblings in call order. A frame deeper than
// depthLimit stops the walk with a *model.RecursionDepthExceededError; the
// transfers collected up to that frame are returned with it.
func WalkCalls(root *model.CallNode, depthLimit int) ([]model.TransferRecord, error) {
	if root == nil {
		return nil, nil
	}
	if depthLimit <= 0 {
		depthLimit = DefaultDepthLimit
	}

	type frame struct {
		node  *model.CallNode
		depth int
	}

	var out []model.TransferRecord
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.node == nil {
			continue
		}
		if top.depth > depthLimit {
			return out, &model.RecursionDepthExceededError{Limit: depthLimit, Depth: top.depth}
		}

		if top.node.Status && top.node.HasValue() {
			out = append(out, nativeTransfer(top.node))
		}
		for i := len(top.node.Subcalls) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: top.node.Subcalls[i], depth: top.depth + 1})
		}
	}
	return out, nil
}

func nativeTransfer(node *model.CallNode) model.TransferRecord {
	return model.TransferRecord{
		From:          model.NewAddressRef(node.From),
		To:            model.NewAddressRef(node.To),
		TokenStandard: model.StandardETH,
		TokenAddress:  model.ZeroAddress,
		TokenSymbol:   model.NativeSymbol,
		Value:         decimal.NewFromBigInt(node.Value, -model.NativeDecimals),
	}
}

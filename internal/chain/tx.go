package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxHandle identifies a submitted transaction.
type TxHandle struct {
	Hash   common.Hash
	Method string
	gw     *Gateway
}

// Wait polls for the transaction receipt until it is mined, the context
// ends, or the gateway's confirm timeout passes. A mined transaction with a
// failed status is a RejectedError.
func (h *TxHandle) Wait(ctx context.Context) (*types.Receipt, error) {
	g := h.gw
	if g.confirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.confirmTimeout)
		defer cancel()
	}

	ticker := g.clock.NewTicker(g.pollInterval, "chain", "receipt")
	defer ticker.Stop()

	logger := g.logger.With("method", h.Method, "tx", h.Hash.Hex())
	for {
		receipt, err := g.chain.TransactionReceipt(ctx, h.Hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				logger.Warn("Transaction reverted", "block", receipt.BlockNumber)
				return receipt, &RejectedError{Op: h.Method, Err: ErrReverted}
			}
			logger.Info("Transaction confirmed", "block", receipt.BlockNumber)
			return receipt, nil

		case errors.Is(err, ethereum.NotFound):
			logger.Debug("Transaction pending")

		default:
			return nil, classify(h.Method, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", h.Method, ctx.Err())
		case <-ticker.C:
		}
	}
}

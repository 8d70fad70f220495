package chain

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Dial connects to a node and binds the poker contract at address. Event
// subscriptions need a websocket or IPC endpoint.
func Dial(ctx context.Context, rpcURL string, address common.Address, signer Signer, logger *log.Logger, opts ...Option) (*Gateway, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: fmt.Errorf("%s: %w", rpcURL, err)}
	}

	contract := bind.NewBoundContract(address, ContractABI, client, client, client)
	g := NewGateway(address, contract, client, signer, logger, opts...)
	g.closer = client.Close

	g.logger.Debug("Connected to node", "rpc", rpcURL, "contract", address.Hex())
	return g, nil
}

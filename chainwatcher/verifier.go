package chainwatcher

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"tossbot/domain/entities"
)

// txReceiptVerifier implements interfaces.TxVerifier by fetching the
// transaction's receipt and checking its status, sharing the chainWatcher's
// ethclient.Client rather than opening a second RPC connection.
type txReceiptVerifier struct {
	client *ethclient.Client
}

// NewTxVerifier constructs a TxVerifier over an already-dialed client; call
// (*chainWatcher).Client to share the watcher's own connection.
func NewTxVerifier(client *ethclient.Client) *txReceiptVerifier {
	return &txReceiptVerifier{client: client}
}

// Client exposes the watcher's underlying ethclient.Client so a
// txReceiptVerifier can be constructed without dialing a second connection.
func (w *chainWatcher) Client() *ethclient.Client {
	return w.client
}

// Verify reports success only for a receipt confirmed with a successful
// status. A receipt that isn't mined yet returns (false, nil) so the
// caller's retry loop keeps polling; a receipt confirmed with a failed
// status returns entities.ErrFailedTx so the caller can stop retrying
// immediately instead of waiting out its full budget on a transaction
// that will never succeed.
func (v *txReceiptVerifier) Verify(ctx context.Context, hash string) (bool, error) {
	receipt, err := v.client.TransactionReceipt(ctx, common.HexToHash(hash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return false, nil
		}
		return false, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return false, entities.ErrFailedTx
	}
	return true, nil
}

// Package wallet provides the WalletProvider implementations: httpwallet,
// a thin REST client over an external custodial wallet service, and
// inmemwallet, a deterministic in-process stand-in for tests and local
// runs without a real provider.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"tossbot/domain/entities"
	"tossbot/domain/interfaces"
	"tossbot/domain/services"
)

// erc20TransferSelector is the first four bytes of
// keccak256("transfer(address,uint256)"); go-ethereum's abi package
// derives the same value, hard-coded here since the wallet never needs a
// full contract ABI beyond this one method.
const erc20TransferSelector = "a9059cbb"

var (
	addressType, _ = abi.NewType("address", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	transferArgs   = abi.Arguments{{Type: addressType}, {Type: uint256Type}}
)

// httpWallet backs WalletProvider with a small JSON/HTTP client, following
// the same bounded-timeout http.Client shape the stack uses for its own
// outbound REST clients (see the platform clients wrapping Polymarket's
// CLOB API).
type httpWallet struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
}

// NewHTTPWallet constructs an httpWallet against a custodial wallet
// service's REST API.
func NewHTTPWallet(baseURL, apiKey string) *httpWallet {
	return &httpWallet{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey: apiKey,
	}
}

func (w *httpWallet) Create(ctx context.Context, userID string) (*entities.Wallet, error) {
	var resp struct {
		Address      string `json:"address"`
		ProviderBlob string `json:"providerBlob"`
	}
	if err := w.doJSON(ctx, http.MethodPost, "/wallets", map[string]string{"userId": userID}, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrProviderUnavailable, err)
	}
	return &entities.Wallet{UserID: userID, Address: resp.Address, ProviderBlob: resp.ProviderBlob}, nil
}

func (w *httpWallet) Load(ctx context.Context, userID string) (*entities.Wallet, error) {
	var resp struct {
		Address      string `json:"address"`
		ProviderBlob string `json:"providerBlob"`
	}
	if err := w.doJSON(ctx, http.MethodGet, "/wallets/"+userID, nil, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrProviderUnavailable, err)
	}
	return &entities.Wallet{UserID: userID, Address: resp.Address, ProviderBlob: resp.ProviderBlob}, nil
}

func (w *httpWallet) Balance(ctx context.Context, userID string) (float64, error) {
	var resp struct {
		Balance float64 `json:"balance"`
	}
	if err := w.doJSON(ctx, http.MethodGet, "/wallets/"+userID+"/balance", nil, &resp); err != nil {
		return 0, fmt.Errorf("%w: %v", entities.ErrProviderUnavailable, err)
	}
	return resp.Balance, nil
}

// Transfer submits a gasless (sponsored) stablecoin transfer where the
// underlying provider supports it. The call does not block for on-chain
// confirmation; the returned hash is the engine's sole evidence of
// success, matching the contract in the component design.
func (w *httpWallet) Transfer(ctx context.Context, fromUserID, toAddress string, amount float64) (interfaces.TransferResult, error) {
	if amount > services.MaxStake {
		return interfaces.TransferResult{}, entities.ErrAmountTooLarge
	}
	if !common.IsHexAddress(toAddress) {
		return interfaces.TransferResult{}, entities.ErrInvalidAddress
	}

	data, err := encodeTransferCalldata(toAddress, amount)
	if err != nil {
		return interfaces.TransferResult{}, fmt.Errorf("%w: %v", entities.ErrTransferFailed, err)
	}

	var resp struct {
		Hash string `json:"hash"`
		Link string `json:"link"`
	}
	body := map[string]string{"fromUserId": fromUserID, "to": toAddress, "data": data}
	if err := w.doJSON(ctx, http.MethodPost, "/transfers", body, &resp); err != nil {
		return interfaces.TransferResult{}, fmt.Errorf("%w: %v", entities.ErrTransferFailed, err)
	}
	if resp.Hash == "" {
		return interfaces.TransferResult{}, entities.ErrTransferFailed
	}
	return interfaces.TransferResult{Hash: resp.Hash, Link: resp.Link}, nil
}

func (w *httpWallet) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, w.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("wallet provider returned status %d: %s", resp.StatusCode, string(respBody))
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// encodeTransferCalldata builds the standard ERC-20 transfer(address,uint256)
// call data for a six-decimal stablecoin, selector 0xa9059cbb, matching
// the wire format the correlation layer and chain watcher both assume.
func encodeTransferCalldata(toAddress string, amount float64) (string, error) {
	minorUnits := new(big.Float).Mul(big.NewFloat(amount), big.NewFloat(services.MinorUnitsPerStablecoinUnit))
	value, _ := minorUnits.Int(nil)

	packed, err := transferArgs.Pack(common.HexToAddress(toAddress), value)
	if err != nil {
		return "", err
	}
	return "0x" + erc20TransferSelector + fmt.Sprintf("%x", packed), nil
}

// Package store provides the two Store implementations: jsonstore, the
// reference default, and pgstore, an optional Postgres-backed alternative
// for multi-instance deployments.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tossbot/domain/entities"
)

// jsonStore is the reference Store: one file per record under a data
// directory, guarded by an in-process mutex per collection, with an
// atomic rename-on-write so a crash mid-write never leaves a corrupt
// record behind.
type jsonStore struct {
	dir     string
	network string

	tossesMu  sync.RWMutex
	walletsMu sync.RWMutex
}

// NewJSONStore constructs a jsonStore rooted at dir (created if absent),
// tagging filenames with network so dev/production data never collide on
// disk.
func NewJSONStore(dir, network string) (*jsonStore, error) {
	for _, sub := range []string{"tosses", "wallets"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("jsonstore: creating %s: %w", sub, err)
		}
	}
	return &jsonStore{dir: dir, network: network}, nil
}

func (s *jsonStore) tossPath(id string) string {
	return filepath.Join(s.dir, "tosses", fmt.Sprintf("%s-%s.json", id, s.network))
}

func (s *jsonStore) walletPath(userID string) string {
	return filepath.Join(s.dir, "wallets", fmt.Sprintf("%s-%s.json", userID, s.network))
}

// tossRecord and walletRecord are the on-disk shapes; they exist
// separately from the domain entities so persisted field names don't
// silently drift with internal struct renames.
type tossRecord struct {
	ID                 string           `json:"id"`
	Creator            string           `json:"creator"`
	ConversationID     string           `json:"conversationId"`
	Stake              float64          `json:"stake"`
	Topic              string           `json:"topic"`
	Options            [2]string        `json:"options"`
	WalletAddress      string           `json:"walletAddress"`
	CreatedAt          int64            `json:"createdAt"`
	Status             string           `json:"status"`
	Participants       []string         `json:"participants"`
	ParticipantOptions []entities.Pick  `json:"participantOptions"`
	Result             string           `json:"result"`
	PaymentSuccess     bool             `json:"paymentSuccess"`
	TxHash             string           `json:"txHash"`
	TxLink             string           `json:"txLink"`
	FailedWinners      []string         `json:"failedWinners"`
	FailedRefunds      []string         `json:"failedRefunds"`
}

func tossToRecord(t *entities.Toss) tossRecord {
	return tossRecord{
		ID:                 t.ID,
		Creator:            t.Creator,
		ConversationID:     t.ConversationID,
		Stake:              t.Stake,
		Topic:              t.Topic,
		Options:            t.Options,
		WalletAddress:      t.WalletAddress,
		CreatedAt:          t.CreatedAt,
		Status:             string(t.Status),
		Participants:       t.Participants,
		ParticipantOptions: t.ParticipantOptions,
		Result:             t.Result,
		PaymentSuccess:     t.PaymentSuccess,
		TxHash:             t.TxHash,
		TxLink:             t.TxLink,
		FailedWinners:      t.FailedWinners,
		FailedRefunds:      t.FailedRefunds,
	}
}

func recordToToss(r tossRecord) *entities.Toss {
	return &entities.Toss{
		ID:                 r.ID,
		Creator:            r.Creator,
		ConversationID:     r.ConversationID,
		Stake:              r.Stake,
		Topic:              r.Topic,
		Options:            r.Options,
		WalletAddress:      r.WalletAddress,
		CreatedAt:          r.CreatedAt,
		Status:             entities.StatusFromString(r.Status),
		Participants:       r.Participants,
		ParticipantOptions: r.ParticipantOptions,
		Result:             r.Result,
		PaymentSuccess:     r.PaymentSuccess,
		TxHash:             r.TxHash,
		TxLink:             r.TxLink,
		FailedWinners:      r.FailedWinners,
		FailedRefunds:      r.FailedRefunds,
	}
}

// writeAtomic marshals v and writes it to path via a temp file plus
// rename, so readers never observe a half-written file.
func writeAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *jsonStore) PutToss(ctx context.Context, toss *entities.Toss) error {
	s.tossesMu.Lock()
	defer s.tossesMu.Unlock()
	return writeAtomic(s.tossPath(toss.ID), tossToRecord(toss))
}

func (s *jsonStore) GetToss(ctx context.Context, id string) (*entities.Toss, error) {
	s.tossesMu.RLock()
	defer s.tossesMu.RUnlock()

	data, err := os.ReadFile(s.tossPath(id))
	if os.IsNotExist(err) {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var r tossRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("jsonstore: decoding toss %s: %w", id, err)
	}
	return recordToToss(r), nil
}

func (s *jsonStore) DeleteToss(ctx context.Context, id string) error {
	s.tossesMu.Lock()
	defer s.tossesMu.Unlock()
	err := os.Remove(s.tossPath(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *jsonStore) ListTosses(ctx context.Context) ([]*entities.Toss, error) {
	s.tossesMu.RLock()
	defer s.tossesMu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, "tosses"))
	if err != nil {
		return nil, err
	}
	var out []*entities.Toss
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fmt.Sprintf("-%s.json", s.network)) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, "tosses", e.Name()))
		if err != nil {
			return nil, err
		}
		var r tossRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("jsonstore: decoding %s: %w", e.Name(), err)
		}
		out = append(out, recordToToss(r))
	}
	return out, nil
}

func (s *jsonStore) PutWallet(ctx context.Context, wallet *entities.Wallet) error {
	s.walletsMu.Lock()
	defer s.walletsMu.Unlock()
	return writeAtomic(s.walletPath(wallet.UserID), wallet)
}

func (s *jsonStore) GetWallet(ctx context.Context, userID string) (*entities.Wallet, error) {
	s.walletsMu.RLock()
	defer s.walletsMu.RUnlock()

	data, err := os.ReadFile(s.walletPath(userID))
	if os.IsNotExist(err) {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var w entities.Wallet
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("jsonstore: decoding wallet %s: %w", userID, err)
	}
	return &w, nil
}

// FindWalletByAddress scans the wallets directory case-insensitively. The
// reference store has no secondary index; this is acceptable at the scale
// the JSON backend targets (local runs, small deployments).
func (s *jsonStore) FindWalletByAddress(ctx context.Context, address string) (*entities.Wallet, error) {
	s.walletsMu.RLock()
	defer s.walletsMu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, "wallets"))
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fmt.Sprintf("-%s.json", s.network)) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, "wallets", e.Name()))
		if err != nil {
			return nil, err
		}
		var w entities.Wallet
		if err := json.Unmarshal(data, &w); err != nil {
			continue
		}
		if strings.EqualFold(w.Address, address) {
			return &w, nil
		}
	}
	return nil, entities.ErrNotFound
}

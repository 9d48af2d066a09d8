package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"tossbot/database"
	"tossbot/domain/entities"
)

// pgStore is the optional Postgres-backed Store, built the same way the
// teacher builds its repositories: a thin wrapper over a pgxpool.Pool
// issuing hand-written SQL, wrapping every error with the operation that
// failed.
type pgStore struct {
	db *database.DB
}

// NewPostgresStore constructs a pgStore over an already-connected DB.
// Schema is expected to have been applied (cmd/tossbot runs
// database.RunMigrationsWithURL) before this is called.
func NewPostgresStore(db *database.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) PutToss(ctx context.Context, toss *entities.Toss) error {
	participants, err := json.Marshal(toss.Participants)
	if err != nil {
		return fmt.Errorf("marshaling participants: %w", err)
	}
	failedWinners, err := json.Marshal(toss.FailedWinners)
	if err != nil {
		return fmt.Errorf("marshaling failed winners: %w", err)
	}
	failedRefunds, err := json.Marshal(toss.FailedRefunds)
	if err != nil {
		return fmt.Errorf("marshaling failed refunds: %w", err)
	}
	pickOptions, err := json.Marshal(toss.ParticipantOptions)
	if err != nil {
		return fmt.Errorf("marshaling participant options: %w", err)
	}

	query := `
		INSERT INTO tosses (id, creator, conversation_id, stake, topic, option_a, option_b,
			wallet_address, status, result, payment_success, tx_hash, tx_link, created_at,
			participants, failed_winners, failed_refunds, participant_options)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			creator = EXCLUDED.creator,
			conversation_id = EXCLUDED.conversation_id,
			stake = EXCLUDED.stake,
			topic = EXCLUDED.topic,
			option_a = EXCLUDED.option_a,
			option_b = EXCLUDED.option_b,
			wallet_address = EXCLUDED.wallet_address,
			status = EXCLUDED.status,
			result = EXCLUDED.result,
			payment_success = EXCLUDED.payment_success,
			tx_hash = EXCLUDED.tx_hash,
			tx_link = EXCLUDED.tx_link,
			participants = EXCLUDED.participants,
			failed_winners = EXCLUDED.failed_winners,
			failed_refunds = EXCLUDED.failed_refunds,
			participant_options = EXCLUDED.participant_options`

	_, err = s.db.Pool.Exec(ctx, query,
		toss.ID, toss.Creator, nullableString(toss.ConversationID), toss.Stake, toss.Topic,
		toss.Options[0], toss.Options[1], toss.WalletAddress, string(toss.Status),
		nullableString(toss.Result), toss.PaymentSuccess, nullableString(toss.TxHash),
		nullableString(toss.TxLink), toss.CreatedAt, participants, failedWinners, failedRefunds,
		pickOptions,
	)
	if err != nil {
		return fmt.Errorf("failed to put toss %s: %w", toss.ID, err)
	}
	return nil
}

func (s *pgStore) GetToss(ctx context.Context, id string) (*entities.Toss, error) {
	row := s.db.Pool.QueryRow(ctx, `
		SELECT id, creator, conversation_id, stake, topic, option_a, option_b, wallet_address,
			status, result, payment_success, tx_hash, tx_link, created_at, participants,
			failed_winners, failed_refunds, participant_options
		FROM tosses WHERE id = $1`, id)

	toss, err := scanToss(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get toss %s: %w", id, err)
	}
	return toss, nil
}

func (s *pgStore) DeleteToss(ctx context.Context, id string) error {
	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM tosses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete toss %s: %w", id, err)
	}
	return nil
}

func (s *pgStore) ListTosses(ctx context.Context) ([]*entities.Toss, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, creator, conversation_id, stake, topic, option_a, option_b, wallet_address,
			status, result, payment_success, tx_hash, tx_link, created_at, participants,
			failed_winners, failed_refunds, participant_options
		FROM tosses ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tosses: %w", err)
	}
	defer rows.Close()

	var out []*entities.Toss
	for rows.Next() {
		toss, err := scanToss(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan toss row: %w", err)
		}
		out = append(out, toss)
	}
	return out, rows.Err()
}

// rowScanner abstracts over pgx.Row and pgx.Rows, both of which expose
// Scan with the same signature.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanToss(row rowScanner) (*entities.Toss, error) {
	var (
		toss                                                       entities.Toss
		conversationID, result, txHash, txLink                     *string
		status                                                      string
		participants, failedWinners, failedRefunds, participantOptions []byte
	)
	if err := row.Scan(
		&toss.ID, &toss.Creator, &conversationID, &toss.Stake, &toss.Topic,
		&toss.Options[0], &toss.Options[1], &toss.WalletAddress, &status, &result,
		&toss.PaymentSuccess, &txHash, &txLink, &toss.CreatedAt, &participants,
		&failedWinners, &failedRefunds, &participantOptions,
	); err != nil {
		return nil, err
	}

	toss.Status = entities.StatusFromString(status)
	if conversationID != nil {
		toss.ConversationID = *conversationID
	}
	if result != nil {
		toss.Result = *result
	}
	if txHash != nil {
		toss.TxHash = *txHash
	}
	if txLink != nil {
		toss.TxLink = *txLink
	}
	if err := json.Unmarshal(participants, &toss.Participants); err != nil {
		return nil, fmt.Errorf("decoding participants: %w", err)
	}
	if err := json.Unmarshal(failedWinners, &toss.FailedWinners); err != nil {
		return nil, fmt.Errorf("decoding failed winners: %w", err)
	}
	if err := json.Unmarshal(failedRefunds, &toss.FailedRefunds); err != nil {
		return nil, fmt.Errorf("decoding failed refunds: %w", err)
	}

	if err := json.Unmarshal(participantOptions, &toss.ParticipantOptions); err != nil {
		return nil, fmt.Errorf("decoding participant options: %w", err)
	}

	return &toss, nil
}

func (s *pgStore) PutWallet(ctx context.Context, wallet *entities.Wallet) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO wallets (user_id, address, provider_blob)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET address = EXCLUDED.address, provider_blob = EXCLUDED.provider_blob`,
		wallet.UserID, wallet.Address, wallet.ProviderBlob)
	if err != nil {
		return fmt.Errorf("failed to put wallet for %s: %w", wallet.UserID, err)
	}
	return nil
}

func (s *pgStore) GetWallet(ctx context.Context, userID string) (*entities.Wallet, error) {
	var w entities.Wallet
	err := s.db.Pool.QueryRow(ctx, `SELECT user_id, address, provider_blob FROM wallets WHERE user_id = $1`, userID).
		Scan(&w.UserID, &w.Address, &w.ProviderBlob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet for %s: %w", userID, err)
	}
	return &w, nil
}

func (s *pgStore) FindWalletByAddress(ctx context.Context, address string) (*entities.Wallet, error) {
	var w entities.Wallet
	err := s.db.Pool.QueryRow(ctx, `SELECT user_id, address, provider_blob FROM wallets WHERE lower(address) = lower($1)`, address).
		Scan(&w.UserID, &w.Address, &w.ProviderBlob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entities.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find wallet by address %s: %w", address, err)
	}
	return &w, nil
}

func nullableString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

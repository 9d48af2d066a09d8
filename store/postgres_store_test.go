package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tossbot/domain/entities"
	"tossbot/store/testutil"
)

// TestPostgresStore_PutGetToss_RoundTrips spins up a real Postgres
// container, matching the teacher's repository test style. It is skipped
// only when SKIP_CONTAINER_TESTS is set; otherwise it needs a working
// Docker daemon.
func TestPostgresStore_PutGetToss_RoundTrips(t *testing.T) {
	if os.Getenv("SKIP_CONTAINER_TESTS") != "" {
		t.Skip("container tests disabled via SKIP_CONTAINER_TESTS")
	}

	testDB := testutil.SetupTestDatabase(t)
	s := NewPostgresStore(testDB.DB)

	toss := &entities.Toss{
		ID:            "1",
		Creator:       "alice",
		Stake:         0.1,
		Topic:         "rain tomorrow",
		Options:       [2]string{"yes", "no"},
		WalletAddress: "0xabc",
		Status:        entities.StatusWaitingForPlayer,
		Participants:  []string{"alice", "bob"},
	}
	require.NoError(t, s.PutToss(context.Background(), toss))

	got, err := s.GetToss(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, toss.Topic, got.Topic)
	assert.Equal(t, toss.Participants, got.Participants)
	assert.Equal(t, entities.StatusWaitingForPlayer, got.Status)
}

func TestPostgresStore_PutGetToss_RoundTripsParticipantOptions(t *testing.T) {
	if os.Getenv("SKIP_CONTAINER_TESTS") != "" {
		t.Skip("container tests disabled via SKIP_CONTAINER_TESTS")
	}

	testDB := testutil.SetupTestDatabase(t)
	s := NewPostgresStore(testDB.DB)

	toss := &entities.Toss{
		ID:            "2",
		Creator:       "alice",
		Stake:         0.1,
		Topic:         "rain tomorrow",
		Options:       [2]string{"yes", "no"},
		WalletAddress: "0xabc",
		Status:        entities.StatusWaitingForPlayer,
		Participants:  []string{"alice", "bob"},
		ParticipantOptions: []entities.Pick{
			{UserID: "alice", Option: "yes", Kind: entities.PickExplicit},
			{UserID: "bob", Option: "no", Kind: entities.PickUnknown},
		},
	}
	require.NoError(t, s.PutToss(context.Background(), toss))

	got, err := s.GetToss(context.Background(), "2")
	require.NoError(t, err)
	require.Equal(t, toss.ParticipantOptions, got.ParticipantOptions)
	assert.Equal(t, []string{"bob"}, got.WinnersFor("no"))
}

func TestPostgresStore_FindWalletByAddress_CaseInsensitive(t *testing.T) {
	if os.Getenv("SKIP_CONTAINER_TESTS") != "" {
		t.Skip("container tests disabled via SKIP_CONTAINER_TESTS")
	}

	testDB := testutil.SetupTestDatabase(t)
	s := NewPostgresStore(testDB.DB)

	wallet := &entities.Wallet{UserID: "7", Address: "0xAbCdEf"}
	require.NoError(t, s.PutWallet(context.Background(), wallet))

	got, err := s.FindWalletByAddress(context.Background(), "0xabcdef")
	require.NoError(t, err)
	assert.Equal(t, "7", got.UserID)
}

func TestPostgresStore_GetToss_NotFound(t *testing.T) {
	if os.Getenv("SKIP_CONTAINER_TESTS") != "" {
		t.Skip("container tests disabled via SKIP_CONTAINER_TESTS")
	}

	testDB := testutil.SetupTestDatabase(t)
	s := NewPostgresStore(testDB.DB)

	_, err := s.GetToss(context.Background(), "missing")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

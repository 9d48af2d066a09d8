package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tossbot/domain/entities"
)

func TestJSONStore_PutGetToss_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir, "dev")
	require.NoError(t, err)

	toss := &entities.Toss{
		ID:            "1",
		Creator:       "alice",
		Stake:         0.1,
		Topic:         "rain",
		Options:       [2]string{"yes", "no"},
		WalletAddress: "0xabc",
		Status:        entities.StatusWaitingForPlayer,
		Participants:  []string{"alice", "bob"},
		ParticipantOptions: []entities.Pick{
			{UserID: "alice", Option: "yes", Kind: entities.PickExplicit},
			{UserID: "bob", Option: "no", Kind: entities.PickExplicit},
		},
	}

	require.NoError(t, s.PutToss(context.Background(), toss))

	got, err := s.GetToss(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, toss.Topic, got.Topic)
	assert.Equal(t, toss.Participants, got.Participants)
	assert.Equal(t, toss.Status, got.Status)
}

func TestJSONStore_GetToss_NotFound(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir, "dev")
	require.NoError(t, err)

	_, err = s.GetToss(context.Background(), "missing")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestJSONStore_FindWalletByAddress_CaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir, "dev")
	require.NoError(t, err)

	wallet := &entities.Wallet{UserID: "7", Address: "0xAbCdEf"}
	require.NoError(t, s.PutWallet(context.Background(), wallet))

	got, err := s.FindWalletByAddress(context.Background(), "0xabcdef")
	require.NoError(t, err)
	assert.Equal(t, "7", got.UserID)
}

func TestJSONStore_ListTosses_ReturnsAllRecordsForNetwork(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir, "dev")
	require.NoError(t, err)

	require.NoError(t, s.PutToss(context.Background(), &entities.Toss{ID: "1", Topic: "a"}))
	require.NoError(t, s.PutToss(context.Background(), &entities.Toss{ID: "2", Topic: "b"}))

	all, err := s.ListTosses(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestJSONStore_DeleteToss_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s, err := NewJSONStore(dir, "dev")
	require.NoError(t, err)

	require.NoError(t, s.PutToss(context.Background(), &entities.Toss{ID: "1", Topic: "a"}))
	require.NoError(t, s.DeleteToss(context.Background(), "1"))
	require.NoError(t, s.DeleteToss(context.Background(), "1"))

	_, err = s.GetToss(context.Background(), "1")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

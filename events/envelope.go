// Package events fans TossEvents out to in-process subscribers and,
// optionally, to other processes over NATS JetStream.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"tossbot/domain/entities"
	"tossbot/domain/interfaces"
)

// Subject is the single NATS subject every toss event is published to;
// unlike the teacher's multi-event-type subject mapper, this domain has
// one event shape (TossStateChanged) so one subject suffices.
const Subject = "tosses.state_changed"

// Envelope is the wire format for a published toss event: a plain JSON
// envelope rather than the teacher's protobuf EventEnvelope, since no
// protobuf schema exists for this domain and none should be hand-authored
// for it.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// tossPayload is the JSON shape of the toss record inside an envelope's
// payload field.
type tossPayload struct {
	ID             string   `json:"id"`
	Creator        string   `json:"creator"`
	ConversationID string   `json:"conversationId"`
	Stake          float64  `json:"stake"`
	Topic          string   `json:"topic"`
	Options        []string `json:"options"`
	WalletAddress  string   `json:"walletAddress"`
	Status         string   `json:"status"`
	Participants   []string `json:"participants"`
	Result         string   `json:"result"`
	PaymentSuccess bool     `json:"paymentSuccess"`
}

// Encode marshals a TossEvent into its wire Envelope.
func Encode(evt interfaces.TossEvent) ([]byte, error) {
	payload, err := json.Marshal(tossPayload{
		ID:             evt.Toss.ID,
		Creator:        evt.Toss.Creator,
		ConversationID: evt.Toss.ConversationID,
		Stake:          evt.Toss.Stake,
		Topic:          evt.Toss.Topic,
		Options:        []string{evt.Toss.Options[0], evt.Toss.Options[1]},
		WalletAddress:  evt.Toss.WalletAddress,
		Status:         string(evt.Toss.Status),
		Participants:   evt.Toss.Participants,
		Result:         evt.Toss.Result,
		PaymentSuccess: evt.Toss.PaymentSuccess,
	})
	if err != nil {
		return nil, err
	}

	env := Envelope{
		ID:         uuid.NewString(),
		Type:       string(evt.Type),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	return json.Marshal(env)
}

// Decode unmarshals a wire Envelope back into an entities.Toss and its
// event type. Callers that only need the event type/id may skip the
// payload decode by inspecting Envelope directly.
func Decode(data []byte) (interfaces.TossEventType, *entities.Toss, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, err
	}
	var p tossPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return "", nil, err
	}

	toss := &entities.Toss{
		ID:             p.ID,
		Creator:        p.Creator,
		ConversationID: p.ConversationID,
		Stake:          p.Stake,
		Topic:          p.Topic,
		WalletAddress:  p.WalletAddress,
		Status:         entities.StatusFromString(p.Status),
		Participants:   p.Participants,
		Result:         p.Result,
		PaymentSuccess: p.PaymentSuccess,
	}
	if len(p.Options) == 2 {
		toss.Options = [2]string{p.Options[0], p.Options[1]}
	}
	return interfaces.TossEventType(env.Type), toss, nil
}

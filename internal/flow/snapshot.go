package flow

import (
	"encoding/json"
	"fmt"

	"github.com/ovenlight/pizzeria-bot/internal/engine"
)

// snapshotVersion guards the persisted encoding. Snapshots are only
// guaranteed readable by the engine version that wrote them.
const snapshotVersion = 1

// envelope is the persisted snapshot form: an explicit discriminant plus the
// variant's captured fields.
type envelope struct {
	Version int             `json:"v"`
	State   string          `json:"state"`
	Data    json.RawMessage `json:"data"`
}

// Codec translates the six workflow states to and from snapshot bytes.
// Decoding rebinds the states to the codec's services.
type Codec struct {
	svc *Services
}

var _ engine.Codec = (*Codec)(nil)

// NewCodec builds a Codec bound to the given services.
func NewCodec(svc *Services) *Codec {
	return &Codec{svc: svc}
}

// Encode serializes a state into a versioned tagged snapshot.
func (c *Codec) Encode(s engine.State) ([]byte, error) {
	switch s.(type) {
	case *Menu, *ProductDetail, *Cart, *DeliveryPrompt, *ConfirmAddress, *PaymentInquiry:
	default:
		return nil, fmt.Errorf("cannot encode unknown state %T", s)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode %s state: %w", s.Name(), err)
	}

	return json.Marshal(envelope{
		Version: snapshotVersion,
		State:   s.Name(),
		Data:    data,
	})
}

// Decode deserializes a snapshot back into a live state.
func (c *Codec) Decode(data []byte) (engine.State, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode snapshot envelope: %w", err)
	}
	if env.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", env.Version)
	}

	var state engine.State
	switch env.State {
	case "menu":
		state = &Menu{svc: c.svc}
	case "product_detail":
		state = &ProductDetail{svc: c.svc}
	case "cart":
		state = &Cart{svc: c.svc}
	case "delivery_prompt":
		state = &DeliveryPrompt{svc: c.svc}
	case "confirm_address":
		state = &ConfirmAddress{svc: c.svc}
	case "payment_inquiry":
		state = &PaymentInquiry{svc: c.svc}
	default:
		return nil, fmt.Errorf("unknown state discriminant %q", env.State)
	}

	if err := json.Unmarshal(env.Data, state); err != nil {
		return nil, fmt.Errorf("decode %s state: %w", env.State, err)
	}

	return state, nil
}

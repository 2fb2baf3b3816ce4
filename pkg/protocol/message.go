// Package protocol defines the wire message envelope and error type shared
// by every ceremony in this module: `Message` carries a round-tagged body
// plus an optional identity-authentication extension, and `Error` carries
// the offending party indices any augmentation-layer failure must report.
package protocol

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/wamu/pkg/party"
)

// Message is one transmitted unit of a ceremony, per §6's wire format:
// `{ sender, recipient, body: { base, extra } }`. Base and Extra are
// pre-encoded with cbor so that signatures computed over a Message's bytes
// are stable across implementations (§6 requires a canonical
// encoding).
type Message struct {
	// SSID binds this message to a single ceremony execution.
	SSID []byte
	// From is the sender's party ID.
	From party.ID
	// To is the intended recipient; empty for a broadcast message.
	To party.ID
	// Broadcast reports whether every party must receive this message.
	Broadcast bool
	// RoundNumber is the composite round counter described in §4.6:
	// identity-auth rounds first, then the underlying ceremony's rounds.
	RoundNumber int
	// Base is the cbor encoding of the underlying ceremony's round body.
	Base []byte
	// Extra is the cbor encoding of the round's IdentityAuthParams, or nil
	// if this round carries no additional identity-auth parameters.
	Extra []byte
}

// MarshalBase cbor-encodes v into m.Base.
func (m *Message) MarshalBase(v interface{}) error {
	data, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("protocol: failed to marshal message base: %w", err)
	}
	m.Base = data
	return nil
}

// UnmarshalBase cbor-decodes m.Base into v.
func (m *Message) UnmarshalBase(v interface{}) error {
	return cbor.Unmarshal(m.Base, v)
}

// MarshalExtra cbor-encodes v into m.Extra.
func (m *Message) MarshalExtra(v interface{}) error {
	data, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("protocol: failed to marshal message extra: %w", err)
	}
	m.Extra = data
	return nil
}

// UnmarshalExtra cbor-decodes m.Extra into v. It is an error to call this on
// a message with no Extra payload; callers should check HasExtra first.
func (m *Message) UnmarshalExtra(v interface{}) error {
	if len(m.Extra) == 0 {
		return fmt.Errorf("protocol: message has no additional parameters")
	}
	return cbor.Unmarshal(m.Extra, v)
}

// HasExtra reports whether the message carries additional parameters.
func (m *Message) HasExtra() bool {
	return len(m.Extra) > 0
}

// Error is the error type returned by an augmented ceremony on any
// authorization failure. It always names the offending parties, per the
// propagation policy in §7.
type Error struct {
	// Culprits lists the party IDs responsible for the failure.
	Culprits []party.ID
	// Err is the underlying error kind.
	Err error
}

func (e *Error) Error() string {
	names := make([]string, len(e.Culprits))
	for i, c := range e.Culprits {
		names[i] = string(c)
	}
	return fmt.Sprintf("protocol: %v (bad actors: %s)", e.Err, strings.Join(names, ", "))
}

func (e *Error) Unwrap() error { return e.Err }

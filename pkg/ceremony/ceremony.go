// Package ceremony implements the §4.6 identity-authenticated ceremony
// augmentation: it wraps an opaque underlying threshold-ECDSA state machine
// (keygen, signing, key-refresh, share-recovery-quorum) with the §4.5
// identity-authentication roll-call, attaching and verifying identity
// proofs on the rounds the protocol requires.
//
// Incoming messages are buffered per round and outgoing ones are drained
// through a synchronous push/drain form, better suited to wrapping an
// arbitrary caller-supplied underlying machine than a single concrete
// protocol family.
package ceremony

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/identityauth"
	"github.com/luxfi/wamu/pkg/party"
	"github.com/luxfi/wamu/pkg/protocol"
	"github.com/luxfi/wamu/pkg/wamucrypto"
)

// Kind names the underlying ceremony being augmented, since the
// round-1-identity-auth-attachment policy differs by kind (§4.6): only
// Signing's round 1 attaches IdentityAuthParams, carrying the party's
// signature over that round-1 message body (Base). That signature does not
// cover the application message being signed; the message is bound only
// through the roll-call purpose tag (SigningMessagePrefix plus the message).
// Keygen, KeyRefresh and ShareRecoveryQuorum rely solely on the §4.5
// roll-call that always precedes round 1.
type Kind int

const (
	Keygen Kind = iota
	Signing
	KeyRefresh
	ShareRecoveryQuorum
)

// SigningMessagePrefix is prepended to the message being signed when
// deriving the purpose tag for a Signing ceremony's identity-auth
// roll-call, so an identity's signature over a round-1 proof can never be
// replayed as a signature over unrelated application data.
const SigningMessagePrefix = "wamu-signing-v1:"

// Underlying is the opaque threshold-ECDSA state machine being augmented.
// This module never implements one: it is supplied by the host application
// (§1, scope boundary).
type Underlying interface {
	// Round reports the underlying machine's current round number, counted
	// independently of the identity-auth rounds that precede it.
	Round() int
	// HandleIncoming delivers one message to the underlying machine.
	HandleIncoming(msg protocol.Message) error
	// Outbox drains messages the underlying machine needs to send.
	Outbox() []protocol.Message
	// IsFinished reports whether the underlying machine has completed.
	IsFinished() bool
	// Err returns the underlying machine's terminal error, if any.
	Err() error
	// Result returns the underlying machine's output once finished.
	Result() (interface{}, error)
}

// IdentityAuthParams is the additional per-round payload a Signing
// ceremony's round 1 attaches to the underlying message, per §4.6.
type IdentityAuthParams struct {
	PurposeTag   string
	VerifyingKey wamucrypto.VerifyingKey
	Signature    wamucrypto.Signature
}

// Error kinds recorded on the three ways §4.6's incoming-augmentation check
// can reject a Signing ceremony's first underlying-round message.
var (
	ErrMissingParams     = errors.New("ceremony: round requires an identity-auth attachment but none was present")
	ErrUnauthorizedParty = errors.New("ceremony: carried verifying key is not in the verified roster")
	ErrInvalidSignature  = errors.New("ceremony: identity-auth signature failed to verify")
)

// State mirrors identityauth.State for the composite machine: either still
// authenticating, running the underlying ceremony, done, or failed.
type State int

const (
	Authenticating State = iota
	Running
	Done
	Failed
)

// ErrNotFinished is returned by Result before the ceremony has completed.
var ErrNotFinished = errors.New("ceremony: not finished")

// AugmentedHandler composes a §4.5 identity-authentication run with an
// arbitrary Underlying ceremony, per §4.6. Construct one, feed it incoming
// messages, drain its outbox, and poll IsFinished/Result exactly as with a
// bare Underlying machine.
type AugmentedHandler struct {
	kind Kind
	self identity.Provider

	auth            *identityauth.Machine
	underlying      Underlying
	verifiedParties []wamucrypto.VerifyingKey

	// signedMessage is not set by New and not read anywhere: a Signing
	// ceremony's purpose tag, which already carries the message, is passed
	// in by the caller.
	signedMessage []byte

	state     State
	err       *protocol.Error
	outbox    []protocol.Message
	roundBase int // composite round number of the underlying round 1: 3 once identity-auth's rounds 1 and 2 are done

	// pending holds underlying-ceremony messages that arrived before the
	// roll-call completed; they are replayed on the switch to Running.
	pending []protocol.Message
}

// New starts an augmented ceremony. purposeTag identifies the ceremony
// instance for the §4.5 roll-call (e.g. "keygen:<session>",
// "key-refresh:<session>", "share-recovery-quorum:<session>"); for Kind ==
// Signing, purposeTag must already include SigningMessagePrefix plus the
// message being signed, since that binding is what round 1 authenticates.
func New(kind Kind, purposeTag string, self identity.Provider, verifiedParties []wamucrypto.VerifyingKey, selfIndex, n int, isInitiator bool, underlying Underlying) (*AugmentedHandler, error) {
	auth, err := identityauth.New(purposeTag, self, verifiedParties, selfIndex, n, isInitiator)
	if err != nil {
		return nil, fmt.Errorf("ceremony: failed to start identity authentication: %w", err)
	}

	h := &AugmentedHandler{
		kind:            kind,
		self:            self,
		auth:            auth,
		underlying:      underlying,
		verifiedParties: verifiedParties,
		state:           Authenticating,
		roundBase:       1,
	}
	h.outbox = append(h.outbox, auth.Outbox()...)
	return h, nil
}

// Outbox drains messages this ceremony needs to send, across both the
// identity-auth and underlying layers.
func (h *AugmentedHandler) Outbox() []protocol.Message {
	out := h.outbox
	h.outbox = nil
	return out
}

// State reports the composite ceremony's current lifecycle state.
func (h *AugmentedHandler) State() State { return h.state }

// Round reports the composite round counter required by §4.6's
// state-machine surface: 1 while the identity-auth roll-call (rounds 1-2)
// is still in progress, and the underlying ceremony's own round number
// plus roundBase-1 once it is running (underlying round 1 is composite
// round 3).
func (h *AugmentedHandler) Round() int {
	if h.state == Authenticating {
		return 1
	}
	return h.underlying.Round() + h.roundBase - 1
}

// IsFinished reports whether the ceremony has reached a terminal state.
func (h *AugmentedHandler) IsFinished() bool { return h.state == Done || h.state == Failed }

// Result returns the underlying ceremony's output once Done, or the
// recorded failure once Failed.
func (h *AugmentedHandler) Result() (interface{}, error) {
	switch h.state {
	case Done:
		return h.underlying.Result()
	case Failed:
		return nil, h.err
	default:
		return nil, ErrNotFinished
	}
}

// HandleIncoming routes an incoming message to the identity-auth layer
// while h.state == Authenticating, and to the underlying ceremony
// afterward. A message's RoundNumber disambiguates the two layers: rounds
// RoundProof/RoundAck (1, 2) belong to identity-auth; anything higher
// belongs to the underlying ceremony, whose round number is the composite
// one minus h.roundBase-1. Underlying messages that arrive before the
// roll-call completes are held and replayed once it does.
func (h *AugmentedHandler) HandleIncoming(msg protocol.Message) error {
	if h.state == Failed || h.state == Done {
		return nil
	}

	if msg.RoundNumber == identityauth.RoundProof || msg.RoundNumber == identityauth.RoundAck {
		if h.state != Authenticating {
			return nil // late identity-auth message; roll-call already closed
		}
		if err := h.auth.HandleIncoming(msg); err != nil {
			return err
		}
		h.outbox = append(h.outbox, h.auth.Outbox()...)

		if h.auth.State() == identityauth.Failed {
			h.state = Failed
			h.err = h.auth.Err().(*protocol.Error)
			return nil
		}
		if h.auth.State() == identityauth.Success {
			h.state = Running
			h.roundBase = 3 // identity-auth consumed rounds 1 and 2
			// The underlying ceremony already queued its round-1 broadcast at
			// construction time; nothing else ever flushes it, so every party
			// would otherwise wait forever for a round-3 message nobody sends.
			h.outbox = append(h.outbox, h.augmentOutgoing(h.underlying.Outbox())...)

			pending := h.pending
			h.pending = nil
			for _, p := range pending {
				if err := h.HandleIncoming(p); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if h.state != Running {
		h.pending = append(h.pending, msg) // roll-call still in progress; replayed once Running
		return nil
	}

	underlyingMsg := msg
	underlyingMsg.RoundNumber -= h.roundBase - 1

	if h.kind == Signing && underlyingMsg.RoundNumber == 1 {
		if err := VerifyIdentityAuthParams(msg, h.verifiedParties); err != nil {
			h.state = Failed
			h.err = err.(*protocol.Error)
			return nil
		}
	}

	if err := h.underlying.HandleIncoming(underlyingMsg); err != nil {
		return err
	}
	h.outbox = append(h.outbox, h.augmentOutgoing(h.underlying.Outbox())...)

	if h.underlying.IsFinished() {
		if err := h.underlying.Err(); err != nil {
			h.state = Failed
			h.err = &protocol.Error{Err: err}
		} else {
			h.state = Done
		}
	}
	return nil
}

// augmentOutgoing rewrites round numbers to the composite counter and, for
// a Signing ceremony's first underlying round, attaches IdentityAuthParams
// per §4.6.
func (h *AugmentedHandler) augmentOutgoing(msgs []protocol.Message) []protocol.Message {
	out := make([]protocol.Message, 0, len(msgs))
	for _, m := range msgs {
		isFirstUnderlyingRound := m.RoundNumber == 1
		m.RoundNumber += h.roundBase - 1

		if h.kind == Signing && isFirstUnderlyingRound {
			sig, err := h.self.Sign(m.Base)
			if err == nil {
				_ = m.MarshalExtra(IdentityAuthParams{
					PurposeTag:   SigningMessagePrefix,
					VerifyingKey: h.self.VerifyingKey(),
					Signature:    sig,
				})
			}
		}
		out = append(out, m)
	}
	return out
}

// VerifyIdentityAuthParams checks a Signing ceremony's first underlying
// round for the IdentityAuthParams attachment required by §4.6, returning an
// error naming msg.From as the culprit in each of the three ways the
// check can fail:
//   - the attachment is absent entirely -> ErrMissingParams
//   - the carried verifying key is not in verifiedParties -> ErrUnauthorizedParty
//   - the carried signature fails to verify -> ErrInvalidSignature
func VerifyIdentityAuthParams(msg protocol.Message, verifiedParties []wamucrypto.VerifyingKey) error {
	if !msg.HasExtra() {
		return &protocol.Error{Culprits: []party.ID{msg.From}, Err: ErrMissingParams}
	}
	var params IdentityAuthParams
	if err := msg.UnmarshalExtra(&params); err != nil {
		return &protocol.Error{Culprits: []party.ID{msg.From}, Err: fmt.Errorf("%w: %v", ErrMissingParams, err)}
	}
	if !keyInRoster(params.VerifyingKey, verifiedParties) {
		return &protocol.Error{Culprits: []party.ID{msg.From}, Err: ErrUnauthorizedParty}
	}
	if err := wamucrypto.Verify(params.VerifyingKey, msg.Base, params.Signature); err != nil {
		return &protocol.Error{Culprits: []party.ID{msg.From}, Err: fmt.Errorf("%w: %v", ErrInvalidSignature, err)}
	}
	return nil
}

func keyInRoster(key wamucrypto.VerifyingKey, roster []wamucrypto.VerifyingKey) bool {
	for _, vk := range roster {
		if vk.Algo == key.Algo && vk.Curve == key.Curve && vk.Enc == key.Enc && bytes.Equal(vk.KeyBytes, key.KeyBytes) {
			return true
		}
	}
	return false
}

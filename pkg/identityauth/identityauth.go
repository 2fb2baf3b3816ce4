// Package identityauth implements the §4.5 identity authentication state
// machine: a two-round broadcast roll-call that every party must complete
// successfully before an augmented ceremony (§4.6) may proceed.
package identityauth

import (
	"fmt"

	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/party"
	"github.com/luxfi/wamu/pkg/protocol"
	"github.com/luxfi/wamu/pkg/wamucrypto"
)

// Round numbers, per the composite round counter described in §4.6.
const (
	RoundProof Message = 1
	RoundAck   Message = 2
)

// Message is a round discriminator. It is an alias of int, not a distinct
// type, so it names the role of a value without adding any type checking.
type Message = int

// State is the lifecycle of one party's identity-authentication run.
type State int

const (
	// AwaitingRound1 is the initial state: still waiting on proofs and acks
	// from other parties.
	AwaitingRound1 State = iota
	// Success is reached once every other party's proof has been verified
	// and every other party has acknowledged this party's own proof.
	Success
	// Failed is terminal: no retries, the surrounding ceremony must abort.
	Failed
)

type roundProofBody struct {
	PurposeTag string
	Index      uint16
	Sig        wamucrypto.Signature
}

type ackBody struct {
	// For names the party index whose round-1 proof this acknowledges.
	For uint16
}

// Machine runs the two-round identity authentication roll-call for one
// party. It is driven exactly like the underlying ceremonies it guards:
// push incoming messages, drain the outbox, check IsFinished.
type Machine struct {
	purposeTag      string
	provider        identity.Provider
	verifiedParties []wamucrypto.VerifyingKey
	selfIndex       int // 1-based
	n               int
	isInitiator     bool

	state     State
	badActors []party.ID

	verifiedFrom map[int]bool // proofs verified from other parties, by index
	ackedBySelf  map[int]bool
	ackedFromOthers map[int]bool // acks received from other parties for our own proof

	outbox []protocol.Message
}

// New initializes a party's identity-authentication run and immediately
// broadcasts its round-1 proof: I.sign(purpose_tag ‖ index), per §4.5.
func New(purposeTag string, provider identity.Provider, verifiedParties []wamucrypto.VerifyingKey, selfIndex, n int, isInitiator bool) (*Machine, error) {
	if selfIndex < 1 || selfIndex > n || len(verifiedParties) != n {
		return nil, fmt.Errorf("identityauth: invalid party configuration (index=%d, n=%d, verified=%d)", selfIndex, n, len(verifiedParties))
	}

	m := &Machine{
		purposeTag:      purposeTag,
		provider:        provider,
		verifiedParties: verifiedParties,
		selfIndex:       selfIndex,
		n:               n,
		isInitiator:     isInitiator,
		state:           AwaitingRound1,
		verifiedFrom:    make(map[int]bool, n-1),
		ackedBySelf:     make(map[int]bool, n-1),
		ackedFromOthers: make(map[int]bool, n-1),
	}

	proof, err := m.signProof()
	if err != nil {
		return nil, err
	}
	msg := protocol.Message{From: party.ID(fmt.Sprintf("%d", selfIndex)), Broadcast: true, RoundNumber: RoundProof}
	if err := msg.MarshalBase(roundProofBody{PurposeTag: purposeTag, Index: uint16(selfIndex), Sig: proof}); err != nil {
		return nil, err
	}
	m.outbox = append(m.outbox, msg)

	return m, nil
}

func (m *Machine) signProof() (wamucrypto.Signature, error) {
	return m.provider.Sign(proofPayload(m.purposeTag, m.selfIndex))
}

// proofPayload is the exact byte sequence signed in round 1:
// purpose_tag ‖ index, with index as a big-endian uint16.
func proofPayload(purposeTag string, index int) []byte {
	out := make([]byte, 0, len(purposeTag)+2)
	out = append(out, purposeTag...)
	out = append(out, byte(index>>8), byte(index))
	return out
}

// Outbox drains and returns any messages this machine needs to send.
func (m *Machine) Outbox() []protocol.Message {
	out := m.outbox
	m.outbox = nil
	return out
}

// State reports the machine's current lifecycle state.
func (m *Machine) State() State { return m.state }

// IsFinished reports whether the machine has reached a terminal state.
func (m *Machine) IsFinished() bool { return m.state == Success || m.state == Failed }

// Err returns the protocol error recorded on a Failed transition, or nil.
func (m *Machine) Err() error {
	if m.state != Failed {
		return nil
	}
	return &protocol.Error{Culprits: m.badActors, Err: ErrUnauthorizedParty}
}

// IsInitiator reports whether this party is the ceremony's initiator (the
// role the wrapping ceremony assigns to, e.g., the recovering party in
// share recovery with quorum — see §4.6).
func (m *Machine) IsInitiator() bool { return m.isInitiator }

func (m *Machine) senderIndex(from party.ID) (int, error) {
	var idx int
	if _, err := fmt.Sscanf(string(from), "%d", &idx); err != nil {
		return 0, fmt.Errorf("identityauth: malformed sender id %q", from)
	}
	return idx, nil
}

// HandleIncoming processes one message from another party, verifying its
// round-1 proof or recording a round-2 ack as appropriate. On any
// authorization failure the machine transitions to Failed and records the
// offending party's index; it never resumes afterward.
func (m *Machine) HandleIncoming(msg protocol.Message) error {
	if m.state == Failed {
		return nil
	}

	senderIdx, err := m.senderIndex(msg.From)
	if err != nil {
		return err
	}
	if senderIdx == m.selfIndex {
		return nil // ignore our own echoed broadcast, if the transport loops it back
	}

	switch msg.RoundNumber {
	case RoundProof:
		return m.handleProof(senderIdx, msg)
	case RoundAck:
		return m.handleAck(senderIdx, msg)
	default:
		return fmt.Errorf("identityauth: unexpected round %d", msg.RoundNumber)
	}
}

func (m *Machine) handleProof(senderIdx int, msg protocol.Message) error {
	if m.verifiedFrom[senderIdx] {
		return nil // duplicate
	}

	var body roundProofBody
	if err := msg.UnmarshalBase(&body); err != nil {
		return err
	}

	if body.PurposeTag != m.purposeTag || int(body.Index) != senderIdx {
		m.fail(senderIdx)
		return nil
	}

	verifyingKey := m.verifiedParties[senderIdx-1]
	if err := wamucrypto.Verify(verifyingKey, proofPayload(body.PurposeTag, int(body.Index)), body.Sig); err != nil {
		m.fail(senderIdx)
		return nil
	}

	m.verifiedFrom[senderIdx] = true

	if !m.ackedBySelf[senderIdx] {
		m.ackedBySelf[senderIdx] = true
		ack := protocol.Message{From: party.ID(fmt.Sprintf("%d", m.selfIndex)), Broadcast: true, RoundNumber: RoundAck}
		if err := ack.MarshalBase(ackBody{For: uint16(senderIdx)}); err != nil {
			return err
		}
		m.outbox = append(m.outbox, ack)
	}

	m.checkDone()
	return nil
}

func (m *Machine) handleAck(senderIdx int, msg protocol.Message) error {
	var body ackBody
	if err := msg.UnmarshalBase(&body); err != nil {
		return err
	}
	if int(body.For) != m.selfIndex {
		return nil // an ack for someone else's proof; not relevant to us
	}
	m.ackedFromOthers[senderIdx] = true
	m.checkDone()
	return nil
}

func (m *Machine) checkDone() {
	if m.state != AwaitingRound1 {
		return
	}
	if len(m.verifiedFrom) == m.n-1 && len(m.ackedFromOthers) == m.n-1 {
		m.state = Success
	}
}

func (m *Machine) fail(badActor int) {
	m.state = Failed
	m.badActors = []party.ID{party.ID(fmt.Sprintf("%d", badActor))}
}

// ErrUnauthorizedParty is the error kind recorded when a round-1 proof
// fails verification or its purpose tag/index doesn't match the sender.
var ErrUnauthorizedParty = fmt.Errorf("identityauth: unauthorized party")

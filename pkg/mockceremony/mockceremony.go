// Package mockceremony provides a toy in-memory (t, n)-threshold ECDSA
// keygen/signing ceremony implementing ceremony.Underlying, for exercising
// the identity-authentication augmentation layer end to end without a real
// threshold-ECDSA engine, which this core treats as an opaque, host-supplied
// collaborator. Its additive-sum keygen and Lagrange-weighted signing math
// is test-only, never used for a real key.
package mockceremony

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/luxfi/wamu/pkg/curve"
	"github.com/luxfi/wamu/pkg/party"
	"github.com/luxfi/wamu/pkg/protocol"
)

// ErrInsufficientSigners is returned when fewer than threshold signers
// contribute a partial signature.
var ErrInsufficientSigners = errors.New("mockceremony: insufficient signers")

// Signature is a toy ECDSA-shaped signature (r, s), not intended for
// verification against a real secp256k1 message digest scheme beyond the
// simplified form used here.
type Signature struct {
	R, S [32]byte
}

// KeygenResult is the output of a completed mock keygen ceremony: the toy
// secret itself (the sum of every party's broadcast scalar, so Share is the
// same for every party), and the shared public point.
type KeygenResult struct {
	Share     [32]byte
	PublicKey []byte // SEC1 compressed
}

type keygenShareMsg struct {
	Share [32]byte
}

// Keygen is a toy additive-sum keygen ceremony. Each party samples one
// random scalar locally and broadcasts it; once all n scalars have arrived,
// every party sums them into the same toy secret. The threshold is recorded
// but not used. This is NOT a real distributed-key-generation protocol (it trivially leaks the
// secret to an eavesdropper observing all n shares) and exists solely to
// give the identity-authentication augmentation layer a concrete
// underlying ceremony to drive in tests.
type Keygen struct {
	self      party.ID
	parties   party.IDSlice
	threshold int

	localShare curve.Scalar
	round      int
	received   map[party.ID]curve.Scalar
	outbox     []protocol.Message
	finished   bool
	err        error
	result     *KeygenResult
}

// NewKeygen starts a mock keygen ceremony for self among parties.
func NewKeygen(self party.ID, parties party.IDSlice, threshold int) (*Keygen, error) {
	localShare, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		return nil, err
	}

	k := &Keygen{
		self:       self,
		parties:    parties.Sort(),
		threshold:  threshold,
		localShare: localShare,
		round:      1,
		received:   make(map[party.ID]curve.Scalar),
	}
	k.received[self] = localShare

	msg := protocol.Message{From: self, Broadcast: true, RoundNumber: 1}
	if err := msg.MarshalBase(keygenShareMsg{Share: localShare.Bytes()}); err != nil {
		return nil, err
	}
	k.outbox = append(k.outbox, msg)
	return k, nil
}

func (k *Keygen) Round() int { return k.round }

func (k *Keygen) HandleIncoming(msg protocol.Message) error {
	if k.finished {
		return nil
	}
	if _, ok := k.received[msg.From]; ok {
		return nil
	}
	var body keygenShareMsg
	if err := msg.UnmarshalBase(&body); err != nil {
		return err
	}
	k.received[msg.From] = curve.NewScalarFromBytes(body.Share)

	if len(k.received) == len(k.parties) {
		k.finalize()
	}
	return nil
}

func (k *Keygen) finalize() {
	sum := curve.NewScalarFromBytes([32]byte{})
	for _, s := range k.received {
		sum = sum.Add(s)
	}
	point := sum.ActOnBase()
	pubBytes, _ := point.MarshalBinary()
	k.result = &KeygenResult{Share: sum.Bytes(), PublicKey: pubBytes}
	k.finished = true
}

func (k *Keygen) Outbox() []protocol.Message {
	out := k.outbox
	k.outbox = nil
	return out
}

func (k *Keygen) IsFinished() bool { return k.finished }
func (k *Keygen) Err() error       { return k.err }
func (k *Keygen) Result() (interface{}, error) {
	if k.result == nil {
		return nil, fmt.Errorf("mockceremony: keygen not finished")
	}
	return *k.result, nil
}

type signShareMsg struct {
	PartialS [32]byte
}

// Signing is a toy single-round threshold signing ceremony: every signer
// broadcasts a Lagrange-weighted partial s-value over a fixed, locally
// derived nonce commitment, and each party sums them once the partial of
// every listed signer has arrived. As with Keygen, this is a didactic stand-in, not a
// secure signing protocol (the nonce is not a per-session fresh one
// agreed via the underlying ceremony's own round 1).
type Signing struct {
	self      party.ID
	signers   party.IDSlice
	threshold int
	message   []byte

	k      curve.Scalar // shared toy nonce, same across signers for simplicity
	r      curve.Scalar
	share  curve.Scalar // this party's KeygenResult.Share

	round    int
	received map[party.ID]curve.Scalar
	outbox   []protocol.Message
	finished bool
	err      error
	result   *Signature
}

// NewSigning starts a mock signing ceremony. share is the party's keygen
// output (KeygenResult.Share). signers must list exactly the parties
// contributing a partial signature, and must number at least threshold.
//
// The per-signature nonce k is derived deterministically from the message
// and signer set (rather than sampled and agreed via an extra round), so
// every party computes the identical k and R locally: a shortcut a real
// threshold-ECDSA ceremony cannot take (it would leak the nonce relation
// to the key), acceptable here only because this ceremony exists to drive
// the augmentation layer's plumbing, not to produce a secure signature.
func NewSigning(self party.ID, signers party.IDSlice, threshold int, message string, share [32]byte) (*Signing, error) {
	sorted := signers.Sort()
	if len(sorted) < threshold {
		return nil, ErrInsufficientSigners
	}

	k := deriveNonce(message, sorted)
	r := k.ActOnBase()
	rBytes, err := r.MarshalBinary()
	if err != nil {
		return nil, err
	}
	rDigest := sha256.Sum256(rBytes)
	rScalar := curve.NewScalarFromWideBytes(rDigest[:])

	s := &Signing{
		self:      self,
		signers:   sorted,
		threshold: threshold,
		message:   []byte(message),
		k:         k,
		r:         rScalar,
		share:     curve.NewScalarFromBytes(share),
		round:     1,
		received:  make(map[party.ID]curve.Scalar),
	}

	partial := s.partial()
	s.received[self] = partial

	msg := protocol.Message{From: self, Broadcast: true, RoundNumber: 1}
	if err := msg.MarshalBase(signShareMsg{PartialS: partial.Bytes()}); err != nil {
		return nil, err
	}
	s.outbox = append(s.outbox, msg)
	return s, nil
}

// lagrangeCoefficient computes party self's Lagrange coefficient at x=0
// over the signer set.
func lagrangeCoefficient(self party.ID, signers party.IDSlice) curve.Scalar {
	selfX := idToScalar(self)
	num := curve.NewScalarFromUint32(1)
	den := curve.NewScalarFromUint32(1)
	for _, other := range signers {
		if other == self {
			continue
		}
		otherX := idToScalar(other)
		num = num.Mul(otherX.Negate())
		den = den.Mul(selfX.Sub(otherX))
	}
	return num.Mul(den.Invert())
}

func idToScalar(id party.ID) curve.Scalar {
	digest := sha256.Sum256([]byte(id))
	return curve.NewScalarFromBytes(digest)
}

// deriveNonce derives a deterministic per-signature scalar from the
// message and signer set, so every signer computes the same nonce without
// an extra agreement round.
func deriveNonce(message string, signers party.IDSlice) curve.Scalar {
	h := sha256.New()
	h.Write([]byte("wamu-mockceremony-nonce-v1"))
	h.Write([]byte(message))
	for _, id := range signers {
		h.Write([]byte(id))
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return curve.NewScalarFromBytes(sum)
}

// partial computes this signer's additive contribution to s = k^-1 * (m +
// r * x), using its Lagrange-weighted key share for the r*x term. The
// message digest term is added exactly once, by convention the
// lexicographically first signer in the set, so summing every partial
// yields the combined s without multiply-counting m.
func (s *Signing) partial() curve.Scalar {
	coeff := lagrangeCoefficient(s.self, s.signers)
	weightedShare := s.share.Mul(coeff)
	term := s.r.Mul(weightedShare)

	if s.self == s.signers[0] {
		digest := sha256.Sum256(s.message)
		term = term.Add(curve.NewScalarFromWideBytes(digest[:]))
	}

	kInv := s.k.Invert()
	return term.Mul(kInv)
}

func (s *Signing) Round() int { return s.round }

func (s *Signing) HandleIncoming(msg protocol.Message) error {
	if s.finished {
		return nil
	}
	if _, ok := s.received[msg.From]; ok {
		return nil
	}
	var body signShareMsg
	if err := msg.UnmarshalBase(&body); err != nil {
		return err
	}
	s.received[msg.From] = curve.NewScalarFromBytes(body.PartialS)

	if len(s.received) == len(s.signers) {
		s.finalize()
	}
	return nil
}

func (s *Signing) finalize() {
	sum := curve.NewScalarFromUint32(0)
	for _, p := range s.received {
		sum = sum.Add(p)
	}
	s.result = &Signature{R: s.r.Bytes(), S: sum.Bytes()}
	s.finished = true
}

func (s *Signing) Outbox() []protocol.Message {
	out := s.outbox
	s.outbox = nil
	return out
}

func (s *Signing) IsFinished() bool { return s.finished }
func (s *Signing) Err() error       { return s.err }
func (s *Signing) Result() (interface{}, error) {
	if s.result == nil {
		return nil, fmt.Errorf("mockceremony: signing not finished")
	}
	return *s.result, nil
}

// Package quorum implements the §4.8 quorum-approved request: a challenge
// circulated to the group, collected signer-distinct approvals, and a
// threshold check before a sensitive request (identity rotation, share
// recovery) is allowed to proceed.
package quorum

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/wamucrypto"
)

const nonceSize = 32

// ErrInsufficientApprovals is returned when fewer than threshold distinct
// valid approvals were collected.
var ErrInsufficientApprovals = errors.New("quorum: insufficient approvals")

// ErrUnauthorized is returned when an approval's signer is not among the
// expected verified parties.
var ErrUnauthorized = errors.New("quorum: signer is not a verified party")

// ErrDuplicateApprover is returned when Collect is given two approvals from
// the same signer; only the first counts toward quorum.
var ErrDuplicateApprover = errors.New("quorum: duplicate approver")

// Challenge is the object parties approve by signing. PayloadHash is the
// SHA-256 digest of the request payload (e.g. a RotationPayload), or the
// zero value if the request carries no payload of its own.
type Challenge struct {
	Nonce       [nonceSize]byte
	PurposeTag  string
	PayloadHash [32]byte
}

// NewChallenge generates a fresh challenge for purposeTag, binding payload
// (if any) by its SHA-256 digest.
func NewChallenge(purposeTag string, payload []byte) (Challenge, error) {
	var c Challenge
	c.PurposeTag = purposeTag
	if _, err := io.ReadFull(rand.Reader, c.Nonce[:]); err != nil {
		return Challenge{}, err
	}
	if len(payload) > 0 {
		c.PayloadHash = sha256.Sum256(payload)
	}
	return c, nil
}

// signedDigest is the exact byte sequence every approver signs:
// sha256(purpose_tag ‖ nonce ‖ payload_hash).
func (c Challenge) signedDigest() [32]byte {
	h := sha256.New()
	h.Write([]byte(c.PurposeTag))
	h.Write(c.Nonce[:])
	h.Write(c.PayloadHash[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Approve has approver sign the challenge, producing one Approval.
func Approve(approver identity.Provider, c Challenge) (Approval, error) {
	digest := c.signedDigest()
	sig, err := approver.Sign(digest[:])
	if err != nil {
		return Approval{}, err
	}
	return Approval{VerifyingKey: approver.VerifyingKey(), Signature: sig}, nil
}

// Approval is one party's signed approval of a Challenge.
type Approval struct {
	VerifyingKey wamucrypto.VerifyingKey
	Signature    wamucrypto.Signature
}

// Collector accumulates distinct-signer approvals for a single challenge
// and reports whether quorum has been reached.
type Collector struct {
	challenge       Challenge
	verifiedParties []wamucrypto.VerifyingKey
	threshold       int
	approved        []wamucrypto.VerifyingKey
}

// NewCollector starts a collector requiring threshold distinct valid
// approvals (i.e. t+1 for a (t, n) threshold scheme) out of
// verifiedParties.
func NewCollector(c Challenge, verifiedParties []wamucrypto.VerifyingKey, threshold int) *Collector {
	return &Collector{challenge: c, verifiedParties: verifiedParties, threshold: threshold}
}

func (c *Collector) isVerifiedParty(k wamucrypto.VerifyingKey) bool {
	for _, vp := range c.verifiedParties {
		if vp.Equal(k) {
			return true
		}
	}
	return false
}

func (c *Collector) alreadyApproved(k wamucrypto.VerifyingKey) bool {
	for _, a := range c.approved {
		if a.Equal(k) {
			return true
		}
	}
	return false
}

// Collect validates and records one approval. It returns
// ErrUnauthorized if the signer is not a verified party,
// ErrDuplicateApprover if the signer already approved, or a signature
// verification error if the approval is invalid.
func (c *Collector) Collect(a Approval) error {
	if !c.isVerifiedParty(a.VerifyingKey) {
		return ErrUnauthorized
	}
	if c.alreadyApproved(a.VerifyingKey) {
		return ErrDuplicateApprover
	}
	digest := c.challenge.signedDigest()
	if err := wamucrypto.Verify(a.VerifyingKey, digest[:], a.Signature); err != nil {
		return err
	}
	c.approved = append(c.approved, a.VerifyingKey)
	return nil
}

// Count reports the number of distinct valid approvals collected so far.
func (c *Collector) Count() int { return len(c.approved) }

// HasQuorum reports whether enough distinct approvals have been collected.
func (c *Collector) HasQuorum() bool { return len(c.approved) >= c.threshold }

// Finalize returns nil if quorum has been reached, or
// ErrInsufficientApprovals otherwise.
func (c *Collector) Finalize() error {
	if !c.HasQuorum() {
		return ErrInsufficientApprovals
	}
	return nil
}

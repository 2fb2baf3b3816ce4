// Package identityrotation implements §4.7: replacing a party's identity
// key pair while preserving its share of the wallet's secret key. The
// rotation payload is dual-signed by the old and new identities, carried
// to quorum via package quorum, and — once approved — used to re-split the
// party's reconstructed secret share under the new identity.
package identityrotation

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/share"
	"github.com/luxfi/wamu/pkg/wamucrypto"
)

// ErrInvalidOldSignature is returned when Verify's old-identity signature
// check fails.
var ErrInvalidOldSignature = errors.New("identityrotation: invalid signature from old identity")

// ErrInvalidNewSignature is returned when Verify's new-identity signature
// check fails.
var ErrInvalidNewSignature = errors.New("identityrotation: invalid signature from new identity")

// Payload is the dual-signed request to replace OldKey with NewKey, per
// §4.7. Timestamp is an application-defined monotonic or wall-clock value
// used to order and deduplicate rotation attempts; this package does not
// interpret it beyond including it in the signed digest.
type Payload struct {
	OldKey    wamucrypto.VerifyingKey
	NewKey    wamucrypto.VerifyingKey
	Timestamp int64
}

func (p Payload) digest() [32]byte {
	h := sha256.New()
	h.Write(p.OldKey.KeyBytes)
	h.Write(p.NewKey.KeyBytes)
	var ts [8]byte
	for i := 0; i < 8; i++ {
		ts[i] = byte(p.Timestamp >> (8 * (7 - i)))
	}
	h.Write(ts[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Request is a Payload together with the dual signatures required to act
// on it: one from the old identity, one from the new one, each proving
// control of the corresponding private key.
type Request struct {
	Payload      Payload
	OldSignature wamucrypto.Signature
	NewSignature wamucrypto.Signature
}

// Build constructs and dual-signs a rotation request. oldIdentity must be
// the party's current identity provider; newIdentity the one it is
// rotating to.
func Build(oldIdentity, newIdentity identity.Provider, timestamp int64) (Request, error) {
	payload := Payload{
		OldKey:    oldIdentity.VerifyingKey(),
		NewKey:    newIdentity.VerifyingKey(),
		Timestamp: timestamp,
	}
	digest := payload.digest()

	oldSig, err := oldIdentity.Sign(digest[:])
	if err != nil {
		return Request{}, fmt.Errorf("identityrotation: failed to sign with old identity: %w", err)
	}
	newSig, err := newIdentity.Sign(digest[:])
	if err != nil {
		return Request{}, fmt.Errorf("identityrotation: failed to sign with new identity: %w", err)
	}

	return Request{Payload: payload, OldSignature: oldSig, NewSignature: newSig}, nil
}

// Verify checks both signatures on req, confirming control of both the old
// and new identity's private keys.
func Verify(req Request) error {
	digest := req.Payload.digest()
	if err := wamucrypto.Verify(req.Payload.OldKey, digest[:], req.OldSignature); err != nil {
		return ErrInvalidOldSignature
	}
	if err := wamucrypto.Verify(req.Payload.NewKey, digest[:], req.NewSignature); err != nil {
		return ErrInvalidNewSignature
	}
	return nil
}

// PayloadBytes returns the canonical bytes a quorum challenge should hash
// as its payload when circulating this rotation request for approval
// (§4.8).
func PayloadBytes(req Request) []byte {
	var buf bytes.Buffer
	buf.Write(req.Payload.OldKey.KeyBytes)
	buf.Write(req.Payload.NewKey.KeyBytes)
	return buf.Bytes()
}

// Apply re-splits secretShare under newIdentity, producing a fresh
// (SigningShare, SubShare) pair for the party's new identity. Callers must
// discard (and ideally zeroize) the party's prior SigningShare/SubShare
// once this succeeds, and update their verified-parties roster to replace
// req.Payload.OldKey with req.Payload.NewKey at the rotating party's index.
func Apply(newIdentity identity.Provider, secretShare *share.SecretShare) (share.SigningShare, share.SubShare, error) {
	return share.Split(newIdentity, secretShare)
}

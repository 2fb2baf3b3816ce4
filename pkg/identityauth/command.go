package identityauth

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/wamucrypto"
)

// CommandApprovalPayload is a lighter-weight identity-authenticated request
// than the n-party §4.5 roll-call: a single signer authenticates one
// command with a freshness window, following the identity-authed-request
// pattern supplemented from `original_source`'s identity-authed-request
// module (its timestamp/replay fields are implied by the
// Expired/InvalidTimestamp error variants below, though the exact payload
// shape wasn't retrieved verbatim). §4.7's RotationPayload is the
// dual-signed special case of this general one.
type CommandApprovalPayload struct {
	Command   string
	Timestamp int64
	Signature wamucrypto.Signature
}

// IdentityAuthedRequestErrorKind enumerates why a CommandApprovalPayload
// was rejected.
type IdentityAuthedRequestErrorKind int

const (
	// CommandMismatch: the payload's Command does not match what the
	// verifier expected to authenticate.
	CommandMismatch IdentityAuthedRequestErrorKind = iota
	// Expired: the payload's Timestamp is older than the allowed window.
	Expired
	// InvalidTimestamp: the payload's Timestamp is in the future beyond any
	// allowed clock skew.
	InvalidTimestamp
	// Unauthorized: the signature does not verify under the expected key.
	Unauthorized
)

func (k IdentityAuthedRequestErrorKind) String() string {
	switch k {
	case CommandMismatch:
		return "command mismatch"
	case Expired:
		return "expired"
	case InvalidTimestamp:
		return "invalid timestamp"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// IdentityAuthedRequestError is returned by AuthenticateCommand.
type IdentityAuthedRequestError struct {
	Kind IdentityAuthedRequestErrorKind
}

func (e *IdentityAuthedRequestError) Error() string {
	return fmt.Sprintf("identityauth: identity-authed request rejected: %s", e.Kind)
}

var errMissingCommand = errors.New("identityauth: command must not be empty")

// BuildCommand signs command under signer together with the given
// timestamp, producing a CommandApprovalPayload.
func BuildCommand(signer identity.Provider, command string, timestamp int64) (CommandApprovalPayload, error) {
	if command == "" {
		return CommandApprovalPayload{}, errMissingCommand
	}
	digest := commandDigest(command, timestamp)
	sig, err := signer.Sign(digest[:])
	if err != nil {
		return CommandApprovalPayload{}, err
	}
	return CommandApprovalPayload{Command: command, Timestamp: timestamp, Signature: sig}, nil
}

func commandDigest(command string, timestamp int64) [32]byte {
	h := sha256.New()
	h.Write([]byte(command))
	var ts [8]byte
	for i := 0; i < 8; i++ {
		ts[i] = byte(timestamp >> (8 * (7 - i)))
	}
	h.Write(ts[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// AuthenticateCommand verifies payload against expectedCommand and
// signerKey, and checks that payload.Timestamp falls within
// [now-maxAge, now+maxSkew].
func AuthenticateCommand(payload CommandApprovalPayload, signerKey wamucrypto.VerifyingKey, expectedCommand string, now, maxAge, maxSkew int64) error {
	if payload.Command != expectedCommand {
		return &IdentityAuthedRequestError{Kind: CommandMismatch}
	}
	if payload.Timestamp > now+maxSkew {
		return &IdentityAuthedRequestError{Kind: InvalidTimestamp}
	}
	if payload.Timestamp < now-maxAge {
		return &IdentityAuthedRequestError{Kind: Expired}
	}
	digest := commandDigest(payload.Command, payload.Timestamp)
	if err := wamucrypto.Verify(signerKey, digest[:], payload.Signature); err != nil {
		return &IdentityAuthedRequestError{Kind: Unauthorized}
	}
	return nil
}

// Package backup implements §4.9: encrypting a party's (SigningShare,
// SubShare) pair at rest under a key derived from its identity provider, so
// that only a party able to re-derive the same identity signature can
// decrypt its own backup.
package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/share"
)

// backupPurposeTag is the fixed string signed by the identity provider to
// derive the backup encryption key, per §4.9.
const backupPurposeTag = "share-backup-v1"

const nonceSize = 12

// ErrInvalidSigningShare is returned when a decrypted plaintext's signing
// share component has the wrong length. A mismatched identity never reaches
// this check: it fails AEAD authentication first, as *ErrEncryption.
var ErrInvalidSigningShare = errors.New("backup: invalid signing share length")

// ErrInvalidSubShare is returned when a decrypted plaintext's sub-share
// component has the wrong length.
var ErrInvalidSubShare = errors.New("backup: invalid sub-share length")

// ErrEncryption wraps any AEAD seal/open failure, per §7's
// "EncryptionError" error kind.
type ErrEncryption struct{ Err error }

func (e *ErrEncryption) Error() string { return fmt.Sprintf("backup: encryption error: %v", e.Err) }
func (e *ErrEncryption) Unwrap() error { return e.Err }

// EncryptedShareBackup is the at-rest representation of a party's share
// pair.
type EncryptedShareBackup struct {
	Nonce          [nonceSize]byte
	Ciphertext     []byte
	AssociatedData []byte
}

func deriveKey(identityProvider identity.Provider) ([]byte, error) {
	sig, err := identityProvider.Sign([]byte(backupPurposeTag))
	if err != nil {
		return nil, fmt.Errorf("backup: failed to derive key: %w", err)
	}
	key := sha256.Sum256(sig.SigBytes)
	return key[:], nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals (signingShare, subShare) under a key derived from
// identityProvider's deterministic signature over backupPurposeTag.
// associatedData is authenticated but not encrypted (e.g. a party index or
// backup version tag).
func Encrypt(identityProvider identity.Provider, signingShare share.SigningShare, subShare share.SubShare, associatedData []byte) (EncryptedShareBackup, error) {
	key, err := deriveKey(identityProvider)
	if err != nil {
		return EncryptedShareBackup{}, err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return EncryptedShareBackup{}, &ErrEncryption{Err: err}
	}

	plaintext := marshalShares(signingShare, subShare)

	var out EncryptedShareBackup
	if _, err := io.ReadFull(rand.Reader, out.Nonce[:]); err != nil {
		return EncryptedShareBackup{}, err
	}
	out.AssociatedData = associatedData
	out.Ciphertext = aead.Seal(nil, out.Nonce[:], plaintext, associatedData)
	return out, nil
}

// Decrypt opens an EncryptedShareBackup under a key derived from
// identityProvider. A mismatched identity (wrong key) or corrupted
// ciphertext both surface as *ErrEncryption, since AEAD authentication
// failure cannot distinguish the two causes.
func Decrypt(identityProvider identity.Provider, backup EncryptedShareBackup) (share.SigningShare, share.SubShare, error) {
	key, err := deriveKey(identityProvider)
	if err != nil {
		return share.SigningShare{}, share.SubShare{}, err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return share.SigningShare{}, share.SubShare{}, &ErrEncryption{Err: err}
	}

	plaintext, err := aead.Open(nil, backup.Nonce[:], backup.Ciphertext, backup.AssociatedData)
	if err != nil {
		return share.SigningShare{}, share.SubShare{}, &ErrEncryption{Err: err}
	}

	return unmarshalShares(plaintext)
}

// marshalShares encodes (signingShare, subShare) as γ ‖ α ‖ β, each a
// 32-byte big-endian scalar.
func marshalShares(signingShare share.SigningShare, subShare share.SubShare) []byte {
	gamma := signingShare.Bytes()
	alpha, beta := subShare.AsTuple()
	out := make([]byte, 0, 96)
	out = append(out, gamma[:]...)
	out = append(out, alpha[:]...)
	out = append(out, beta[:]...)
	return out
}

func unmarshalShares(plaintext []byte) (share.SigningShare, share.SubShare, error) {
	if len(plaintext) < 32 {
		return share.SigningShare{}, share.SubShare{}, ErrInvalidSigningShare
	}
	if len(plaintext) != 96 {
		return share.SigningShare{}, share.SubShare{}, ErrInvalidSubShare
	}

	var gamma, alpha, beta [32]byte
	copy(gamma[:], plaintext[0:32])
	copy(alpha[:], plaintext[32:64])
	copy(beta[:], plaintext[64:96])

	signingShare := share.NewSigningShare(gamma)
	subShare := share.NewSubShare(alpha, beta)
	return signingShare, subShare, nil
}

package ceremony_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/wamu/pkg/ceremony"
	"github.com/luxfi/wamu/pkg/identity"
	"github.com/luxfi/wamu/pkg/mockceremony"
	"github.com/luxfi/wamu/pkg/party"
	"github.com/luxfi/wamu/pkg/protocol"
	"github.com/luxfi/wamu/pkg/wamucrypto"
)

type network struct {
	handlers map[party.ID]*ceremony.AugmentedHandler
}

func (n *network) drain(t *testing.T) {
	t.Helper()
	for round := 0; round < 20; round++ {
		progressed := false
		for from, h := range n.handlers {
			for _, msg := range h.Outbox() {
				progressed = true
				for to, other := range n.handlers {
					if to == from {
						continue
					}
					require.NoError(t, other.HandleIncoming(msg))
				}
			}
		}
		if !progressed {
			return
		}
	}
}

func buildRoster(t *testing.T, n int) ([]party.ID, []identity.Provider, []wamucrypto.VerifyingKey) {
	t.Helper()
	ids := make([]party.ID, n)
	providers := make([]identity.Provider, n)
	keys := make([]wamucrypto.VerifyingKey, n)
	for i := 0; i < n; i++ {
		ids[i] = party.ID(string(rune('1' + i)))
		p, err := identity.NewMockECDSAIdentityProvider()
		require.NoError(t, err)
		providers[i] = p
		keys[i] = p.VerifyingKey()
	}
	return ids, providers, keys
}

func TestAugmentedKeygenCompletesForAllParties(t *testing.T) {
	const n = 4
	ids, providers, keys := buildRoster(t, n)

	net := &network{handlers: make(map[party.ID]*ceremony.AugmentedHandler, n)}
	for i, id := range ids {
		underlying, err := mockceremony.NewKeygen(id, party.IDSlice(ids), 2)
		require.NoError(t, err)
		h, err := ceremony.New(ceremony.Keygen, "keygen:session-1", providers[i], keys, i+1, n, i == 0, underlying)
		require.NoError(t, err)
		net.handlers[id] = h
	}

	net.drain(t)

	var firstPub []byte
	for i, id := range ids {
		h := net.handlers[id]
		require.True(t, h.IsFinished(), "party %d", i+1)
		res, err := h.Result()
		require.NoError(t, err)
		kr := res.(mockceremony.KeygenResult)
		if firstPub == nil {
			firstPub = kr.PublicKey
		} else {
			require.Equal(t, firstPub, kr.PublicKey, "all parties must agree on the shared public key")
		}
	}
}

func TestAugmentedCeremonyFailsWhenIdentityAuthFails(t *testing.T) {
	const n = 3
	ids, providers, keys := buildRoster(t, n)

	net := &network{handlers: make(map[party.ID]*ceremony.AugmentedHandler, n)}
	for i, id := range ids {
		underlying, err := mockceremony.NewKeygen(id, party.IDSlice(ids), 2)
		require.NoError(t, err)
		tag := "keygen:session-1"
		if i == 2 {
			tag = "keygen:session-mismatched"
		}
		h, err := ceremony.New(ceremony.Keygen, tag, providers[i], keys, i+1, n, i == 0, underlying)
		require.NoError(t, err)
		net.handlers[id] = h
	}

	net.drain(t)

	h0 := net.handlers[ids[0]]
	require.Equal(t, ceremony.Failed, h0.State())
	_, err := h0.Result()
	require.Error(t, err)
}

func TestAugmentedSigningAttachesIdentityAuthParams(t *testing.T) {
	const n = 3
	ids, providers, keys := buildRoster(t, n)

	// First run a keygen to get real shares to sign with.
	keygenNet := &network{handlers: make(map[party.ID]*ceremony.AugmentedHandler, n)}
	for i, id := range ids {
		underlying, err := mockceremony.NewKeygen(id, party.IDSlice(ids), 2)
		require.NoError(t, err)
		h, err := ceremony.New(ceremony.Keygen, "keygen:session-2", providers[i], keys, i+1, n, i == 0, underlying)
		require.NoError(t, err)
		keygenNet.handlers[id] = h
	}
	keygenNet.drain(t)

	shares := make(map[party.ID][32]byte, n)
	for _, id := range ids {
		res, err := keygenNet.handlers[id].Result()
		require.NoError(t, err)
		shares[id] = res.(mockceremony.KeygenResult).Share
	}

	message := "Hello, world!"
	purpose := ceremony.SigningMessagePrefix + message

	signNet := &network{handlers: make(map[party.ID]*ceremony.AugmentedHandler, n)}
	for i, id := range ids {
		underlying, err := mockceremony.NewSigning(id, party.IDSlice(ids), 2, message, shares[id])
		require.NoError(t, err)
		h, err := ceremony.New(ceremony.Signing, purpose, providers[i], keys, i+1, n, i == 0, underlying)
		require.NoError(t, err)
		signNet.handlers[id] = h
	}
	signNet.drain(t)

	for i, id := range ids {
		h := signNet.handlers[id]
		require.True(t, h.IsFinished(), "party %d", i+1)
		_, err := h.Result()
		require.NoError(t, err)
	}
}

func TestVerifyIdentityAuthParamsRejectsMissingAttachment(t *testing.T) {
	msg := protocol.Message{From: party.ID("1"), Base: []byte("some round body")}
	_, _, keys := buildRoster(t, 1)
	err := ceremony.VerifyIdentityAuthParams(msg, keys)
	require.Error(t, err)
	require.ErrorIs(t, err, ceremony.ErrMissingParams)
}

func TestVerifyIdentityAuthParamsRejectsKeyOutsideRoster(t *testing.T) {
	_, providers, keys := buildRoster(t, 2)

	msg := protocol.Message{From: party.ID("1"), Base: []byte("round body")}
	sig, err := providers[1].Sign(msg.Base) // signed by party 2, a key outside the roster passed below
	require.NoError(t, err)
	require.NoError(t, msg.MarshalExtra(ceremony.IdentityAuthParams{
		PurposeTag:   ceremony.SigningMessagePrefix,
		VerifyingKey: providers[1].VerifyingKey(),
		Signature:    sig,
	}))

	err = ceremony.VerifyIdentityAuthParams(msg, keys[:1]) // roster only contains party 1's key
	require.ErrorIs(t, err, ceremony.ErrUnauthorizedParty)
}

func TestVerifyIdentityAuthParamsRejectsBadSignature(t *testing.T) {
	_, providers, keys := buildRoster(t, 1)

	msg := protocol.Message{From: party.ID("1"), Base: []byte("round body")}
	sig, err := providers[0].Sign([]byte("a different message"))
	require.NoError(t, err)
	require.NoError(t, msg.MarshalExtra(ceremony.IdentityAuthParams{
		PurposeTag:   ceremony.SigningMessagePrefix,
		VerifyingKey: providers[0].VerifyingKey(),
		Signature:    sig,
	}))

	err = ceremony.VerifyIdentityAuthParams(msg, keys)
	require.ErrorIs(t, err, ceremony.ErrInvalidSignature)
}

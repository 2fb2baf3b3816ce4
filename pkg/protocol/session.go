package protocol

import (
	"github.com/zeebo/blake3"

	"github.com/luxfi/wamu/pkg/party"
)

// DeriveSessionID computes a domain-separated session identifier binding a
// ceremony's purpose tag to its party roster, so that two ceremonies with
// the same purpose but different participants never share a session.
func DeriveSessionID(purposeTag string, parties party.IDSlice) []byte {
	sorted := parties.Sort()
	h := blake3.New()
	writeDomain(h, "wamu-session-v1/purpose", []byte(purposeTag))
	for _, id := range sorted {
		writeDomain(h, "wamu-session-v1/party", []byte(id))
	}
	return h.Sum(nil)
}

// writeDomain hashes a length-prefixed domain tag followed by the payload,
// preventing ambiguity between e.g. one long field and two short ones.
func writeDomain(h *blake3.Hasher, domain string, payload []byte) {
	_, _ = h.Write([]byte(domain))
	_, _ = h.Write([]byte{0})
	var lenBuf [8]byte
	putUint64(lenBuf[:], uint64(len(payload)))
	_, _ = h.Write(lenBuf[:])
	_, _ = h.Write(payload)
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * (7 - i)))
	}
}

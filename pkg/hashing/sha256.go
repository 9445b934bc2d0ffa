// Package hashing provides streaming SHA-256 digests for uploads.
//
// The engine hashes every object while it is being copied to disk, so the
// API is incremental: feed chunks with Update, then Finalize once the last
// byte is written.
package hashing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// DigestSize is the length of a finalized digest in bytes.
const DigestSize = sha256.Size

// defaultChunkSize is the read size used by ComputeReader.
const defaultChunkSize = 64 * 1024

// Hasher accumulates a SHA-256 digest incrementally.
type Hasher struct {
	h hash.Hash
}

// New creates a Hasher with empty state.
func New() *Hasher {
	return &Hasher{h: sha256.New()}
}

// Update feeds bytes into the digest state.
func (h *Hasher) Update(p []byte) {
	// hash.Hash.Write never returns an error.
	_, _ = h.h.Write(p)
}

// Finalize returns the 32-byte digest of everything fed so far.
func (h *Hasher) Finalize() []byte {
	return h.h.Sum(nil)
}

// Sum returns the digest as a lowercase hex string.
func (h *Hasher) Sum() string {
	return hex.EncodeToString(h.Finalize())
}

// Compute returns the SHA-256 digest of a full byte slice.
func Compute(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// ComputeReader streams r through a digest without materializing it,
// returning the digest and the number of bytes consumed. The context is
// checked between reads so a cancelled upload stops promptly.
func ComputeReader(ctx context.Context, r io.Reader) ([]byte, int64, error) {
	h := New()
	buf := make([]byte, defaultChunkSize)
	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return nil, total, err
		}

		n, err := r.Read(buf)
		if n > 0 {
			h.Update(buf[:n])
			total += int64(n)
		}
		if err == io.EOF {
			return h.Finalize(), total, nil
		}
		if err != nil {
			return nil, total, fmt.Errorf("read failed after %d bytes: %w", total, err)
		}
	}
}

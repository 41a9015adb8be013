package driver

import (
	"crypto/sha256"
	"encoding/hex"

	"regionck/internal/fixture"
	"regionck/internal/version"
)

// Digest is a SHA-256 sum used as a cache key.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports whether d was never computed.
func (d Digest) IsZero() bool { return d == Digest{} }

func digestOf(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

// combineDigest: H(content || dep1 || dep2 ...). deps уже в детерминированном порядке.
func combineDigest(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// toolDigest changes whenever a new build could solve the same fixture
// differently, so stale outcomes are never served.
func toolDigest() Digest {
	return digestOf([]byte(version.Version + "\x00" + version.GitCommit + "\x00" + fixture.SchemaConstraint))
}

// CacheKey is the cache key of a fixture with the given content.
func CacheKey(content []byte) Digest {
	return combineDigest(digestOf(content), toolDigest())
}

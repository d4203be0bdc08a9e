// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

// Package contenthash computes the digests Bold records about content
// it did not author: the repository document an evaluator produced and
// the artifacts the build orchestrator packs.
//
// Digests are BLAKE3 keyed hashes with a per-domain key, rendered in
// Nix base32 so they read like the hashes in package identities.
package contenthash

import (
	"fmt"
	"io"

	"github.com/zeebo/blake3"
	"zombiezen.com/go/nix/nixbase32"
)

// Digest is a 32-byte BLAKE3 digest.
type Digest [32]byte

type domainKey [32]byte

// Domain keys are the ASCII domain name zero-padded to 32 bytes.
// Changing one invalidates every digest recorded in that domain.
var (
	repositoryDomainKey = domainKey{
		'b', 'o', 'l', 'd', '.', 'r', 'e', 'p', 'o', 's', 'i', 't', 'o', 'r', 'y', 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	artifactDomainKey = domainKey{
		'b', 'o', 'l', 'd', '.', 'a', 'r', 't', 'i', 'f', 'a', 'c', 't', 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// Repository digests the raw evaluator output. Two evaluations of the
// same repository state produce the same digest; it is recorded as
// repoHash in generation metadata.
func Repository(document []byte) Digest {
	hasher := newHasher(repositoryDomainKey)
	hasher.Write(document)
	return sum(hasher)
}

// Artifact digests a packed artifact stream.
func Artifact(reader io.Reader) (Digest, int64, error) {
	hasher := newHasher(artifactDomainKey)
	written, err := io.Copy(hasher, reader)
	if err != nil {
		return Digest{}, written, fmt.Errorf("hashing artifact: %w", err)
	}
	return sum(hasher), written, nil
}

// String renders the digest in Nix base32.
func (d Digest) String() string {
	return nixbase32.EncodeToString(d[:])
}

func newHasher(key domainKey) *blake3.Hasher {
	// NewKeyed only fails for a key that is not 32 bytes.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("contenthash: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}

func sum(hasher *blake3.Hasher) Digest {
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

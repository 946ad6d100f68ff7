// # internal/data/stdlib/checksum.go
package stdlib

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apexerrors "apexls/internal/core/errors"
)

// ChecksumSuffix is appended to the artifact path to locate its digest
// file. The file holds one line in coreutils sha256sum format:
// "<hex-digest>  <filename>\n".
const ChecksumSuffix = ".sha256"

func checksumPath(artifactPath string) string {
	return artifactPath + ChecksumSuffix
}

// verifyChecksum compares the artifact against its digest file. A missing,
// malformed, or mismatched digest is a CACHE_INTEGRITY failure: the loader
// must abort rather than degrade to an empty registry.
func verifyChecksum(artifactPath string) error {
	raw, err := os.ReadFile(checksumPath(artifactPath))
	if err != nil {
		return apexerrors.Wrap(err, apexerrors.CodeCacheIntegrity,
			"stdlib cache checksum file missing or unreadable")
	}

	line := strings.TrimRight(string(raw), "\n")
	digest, name, ok := strings.Cut(line, "  ")
	if !ok || len(digest) != sha256.Size*2 {
		return apexerrors.New(apexerrors.CodeCacheIntegrity,
			"stdlib cache checksum file is malformed")
	}
	if name != filepath.Base(artifactPath) {
		return apexerrors.New(apexerrors.CodeCacheIntegrity,
			fmt.Sprintf("stdlib cache checksum names %q, expected %q", name, filepath.Base(artifactPath)))
	}

	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return apexerrors.Wrap(err, apexerrors.CodeCacheIntegrity,
			"stdlib cache artifact missing or unreadable")
	}
	actual := fmt.Sprintf("%x", sha256.Sum256(data))
	if actual != digest {
		return apexerrors.New(apexerrors.CodeCacheIntegrity,
			fmt.Sprintf("stdlib cache checksum mismatch: expected %s, got %s", digest, actual))
	}
	return nil
}

// writeChecksum writes the digest file next to a freshly built artifact.
func writeChecksum(artifactPath string) error {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("%x  %s\n", sha256.Sum256(data), filepath.Base(artifactPath))
	return os.WriteFile(checksumPath(artifactPath), []byte(line), 0o644)
}

package core

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"

	"github.com/smartystreets/keg/contracts"
)

type ChecksumVerifierFileSystem interface {
	contracts.FileOpener
	contracts.Deleter
}

// ChecksumVerifier compares the digest of a fetched artifact with the digest
// declared by its manifest. A mismatched artifact is deleted.
type ChecksumVerifier struct {
	hasher     func() hash.Hash
	fileSystem ChecksumVerifierFileSystem
}

func NewChecksumVerifier(hasher func() hash.Hash, fileSystem ChecksumVerifierFileSystem) *ChecksumVerifier {
	return &ChecksumVerifier{hasher: hasher, fileSystem: fileSystem}
}

func (this *ChecksumVerifier) Verify(localPath, expectedChecksum string) (contracts.VerifiedArtifact, error) {
	expected, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(expectedChecksum)))
	if err != nil {
		return contracts.VerifiedArtifact{}, &contracts.ManifestError{Field: "checksum", Reason: err.Error()}
	}

	actual, err := this.digest(localPath)
	if err != nil {
		return contracts.VerifiedArtifact{}, err
	}

	if subtle.ConstantTimeCompare(actual, expected) != 1 {
		deleteErr := this.fileSystem.Delete(localPath)
		mismatch := &contracts.ChecksumError{
			Path:     localPath,
			Expected: hex.EncodeToString(expected),
			Actual:   hex.EncodeToString(actual),
		}
		if deleteErr != nil {
			return contracts.VerifiedArtifact{}, fmt.Errorf("%w (removing artifact: %v)", mismatch, deleteErr)
		}
		return contracts.VerifiedArtifact{}, mismatch
	}
	return contracts.VerifiedArtifact{Path: localPath, Checksum: hex.EncodeToString(actual)}, nil
}

func (this *ChecksumVerifier) digest(localPath string) ([]byte, error) {
	reader, err := this.fileSystem.Open(localPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	hasher := this.hasher()
	_, err = io.Copy(io.Discard, NewHashReader(reader, hasher))
	if err != nil {
		return nil, err
	}
	return hasher.Sum(nil), nil
}

// Package hash computes the content hashes the ingest engine uses for
// dedup lookup and integrity verification, grounded on
// original_source/src-tauri/src/hash/mod.rs: BLAKE3 throughout, via
// lukechampine.com/blake3 (the teacher's pack does not use BLAKE3 anywhere,
// so this is adopted from the rest of the example corpus per SPEC_FULL.md's
// domain-stack wiring).
package hash

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/jmylchreest/camvault/internal/camerror"
	"lukechampine.com/blake3"
)

const (
	// ChunkSize is both the fast-hash first/last window size and the
	// streaming read buffer size for full hashing.
	ChunkSize = 1 << 20 // 1 MiB

	// FastScheme is the version tag embedded in fast-hash output.
	FastScheme = "first_last_size_v1"
)

// ComputeFast computes the dedup candidate hash: BLAKE3 over (first 1MiB ‖
// last 1MiB, if the file is larger than one chunk ‖ little-endian u64 size),
// emitted as "blake3:first_last_size_v1:<hex>".
func ComputeFast(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", camerror.Wrap(camerror.KindHash, "hash.fast.open", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", camerror.Wrap(camerror.KindHash, "hash.fast.stat", err)
	}
	size := info.Size()

	hasher := blake3.New(32, nil)

	firstLen := int64(ChunkSize)
	if size < firstLen {
		firstLen = size
	}
	if firstLen > 0 {
		if _, err := io.CopyN(hasher, f, firstLen); err != nil {
			return "", camerror.Wrap(camerror.KindHash, "hash.fast.readFirst", err)
		}
	}

	if size > ChunkSize {
		lastOffset := size - ChunkSize
		if _, err := f.Seek(lastOffset, io.SeekStart); err != nil {
			return "", camerror.Wrap(camerror.KindHash, "hash.fast.seek", err)
		}
		if _, err := io.CopyN(hasher, f, ChunkSize); err != nil {
			return "", camerror.Wrap(camerror.KindHash, "hash.fast.readLast", err)
		}
	}

	var sizeBuf [8]byte
	putUint64LE(sizeBuf[:], uint64(size))
	hasher.Write(sizeBuf[:])

	sum := hasher.Sum(nil)
	return fmt.Sprintf("blake3:%s:%s", FastScheme, hex.EncodeToString(sum)), nil
}

// ComputeFull computes the authoritative hash: BLAKE3 over the entire file
// content, streamed in ChunkSize reads, emitted as "blake3:full:<hex>".
func ComputeFull(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", camerror.Wrap(camerror.KindHash, "hash.full.open", err)
	}
	defer f.Close()

	sum, err := streamFull(f)
	if err != nil {
		return "", camerror.Wrap(camerror.KindHash, "hash.full.read", err)
	}
	return sum, nil
}

// StreamingHasher accumulates a full-content BLAKE3 hash incrementally,
// used during copy-verify so the same bytes streamed to the destination
// are hashed without a second pass over the source.
type StreamingHasher struct {
	h *blake3.Hasher
}

// NewStreamingHasher creates a fresh streaming hasher.
func NewStreamingHasher() *StreamingHasher {
	return &StreamingHasher{h: blake3.New(32, nil)}
}

// Write implements io.Writer, allowing the hasher to be used as the target
// of an io.MultiWriter alongside the destination file.
func (s *StreamingHasher) Write(p []byte) (int, error) {
	return s.h.Write(p)
}

// Sum returns the "blake3:full:<hex>" encoded hash of everything written so
// far.
func (s *StreamingHasher) Sum() string {
	sum := s.h.Sum(nil)
	return fmt.Sprintf("blake3:full:%s", hex.EncodeToString(sum))
}

// streamFull hashes r in ChunkSize-sized reads and returns the encoded sum.
func streamFull(r io.Reader) (string, error) {
	hasher := blake3.New(32, nil)
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(hasher, r, buf); err != nil {
		return "", err
	}
	sum := hasher.Sum(nil)
	return fmt.Sprintf("blake3:full:%s", hex.EncodeToString(sum)), nil
}

// ComputeFullFromBytes hashes an in-memory byte slice, used for the
// manifest/rescan hash over the serialized entry list rather than file
// content.
func ComputeFullFromBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return fmt.Sprintf("blake3:full:%s", hex.EncodeToString(sum[:]))
}

// ComputeSizeDurationFingerprint generates the relink fingerprint used when
// a clip's original asset cannot be found by content hash alone.
func ComputeSizeDurationFingerprint(sizeBytes int64, durationMs *int64) string {
	d := int64(0)
	if durationMs != nil {
		d = *durationMs
	}
	return fmt.Sprintf("size_duration:%d:%d", sizeBytes, d)
}

// Verify recomputes the hash named by expected's scheme token (the second
// colon-delimited field) and reports whether it matches.
func Verify(path, expected string) (bool, error) {
	scheme := schemeOf(expected)
	var actual string
	var err error
	if scheme == FastScheme {
		actual, err = ComputeFast(path)
	} else {
		actual, err = ComputeFull(path)
	}
	if err != nil {
		return false, err
	}
	return actual == expected, nil
}

// schemeOf extracts the middle colon-delimited token of a hash string,
// e.g. "blake3:first_last_size_v1:abcd" -> "first_last_size_v1".
func schemeOf(hash string) string {
	start := -1
	count := 0
	for i, c := range hash {
		if c == ':' {
			count++
			if count == 1 {
				start = i + 1
			} else if count == 2 {
				return hash[start:i]
			}
		}
	}
	return ""
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}

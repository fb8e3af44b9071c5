package store

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	decoderOnce sync.Once
	decoder     *zstd.Decoder
	decoderErr  error
)

func sharedDecoder() (*zstd.Decoder, error) {
	decoderOnce.Do(func() {
		decoder, decoderErr = zstd.NewReader(nil)
	})
	return decoder, decoderErr
}

// decompressPatch decodes a zstd-compressed patch blob back to its
// original unified-diff text. A single package-level decoder is reused
// across calls; zstd.Decoder is safe for concurrent DecodeAll use.
func decompressPatch(blob []byte) (string, error) {
	dec, err := sharedDecoder()
	if err != nil {
		return "", fmt.Errorf("initializing zstd decoder: %w", err)
	}
	out, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return "", fmt.Errorf("decoding patch: %w", err)
	}
	return string(out), nil
}

// CompressPatch encodes diff text with zstd level 3, the codec spec.md
// fixes for CommitPatch.Compressed.
func CompressPatch(diffText string) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("initializing zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll([]byte(diffText), nil), nil
}

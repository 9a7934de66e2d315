package content

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstd frame magic, used to recognise compressed blobs on read.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// CompressionOptions configures blob compression.
type CompressionOptions struct {
	// Minimum size in bytes before compressing
	MinSize int
	// Compression level (1=fastest, 3=best)
	Level int
}

// DefaultCompressionOptions provides sensible defaults.
func DefaultCompressionOptions() CompressionOptions {
	return CompressionOptions{
		MinSize: 1024,
		Level:   2,
	}
}

// compressor wraps a shared zstd encoder/decoder pair. EncodeAll and
// DecodeAll are safe for concurrent use, so one of each is enough.
type compressor struct {
	opts    CompressionOptions
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newCompressor(opts CompressionOptions) (*compressor, error) {
	if opts.MinSize == 0 {
		opts.MinSize = DefaultCompressionOptions().MinSize
	}
	if opts.Level == 0 {
		opts.Level = DefaultCompressionOptions().Level
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(opts.Level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
	)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	return &compressor{opts: opts, encoder: enc, decoder: dec}, nil
}

// compress returns the encoded payload and whether encoding was applied.
// Content below the size floor, or content that does not shrink, is kept raw.
func (c *compressor) compress(content []byte) ([]byte, bool) {
	if len(content) < c.opts.MinSize {
		return content, false
	}

	encoded := c.encoder.EncodeAll(content, make([]byte, 0, len(content)))
	if len(encoded) >= len(content) {
		return content, false
	}
	return encoded, true
}

// decompress decodes a blob previously returned by compress.
func (c *compressor) decompress(content []byte) ([]byte, error) {
	if len(content) < 4 || !bytes.Equal(content[:4], zstdMagic) {
		return nil, fmt.Errorf("blob marked compressed but missing zstd frame header")
	}
	decoded, err := c.decoder.DecodeAll(content, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing content: %w", err)
	}
	return decoded, nil
}

func (c *compressor) close() {
	c.encoder.Close()
	c.decoder.Close()
}

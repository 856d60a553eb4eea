package scheduler

import (
	"cftracker/internal/services/interfaces"
	"cftracker/internal/structures"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

const (
	defaultCompressionLevel = "better"
	// snapshots and archives of a few thousand students stay far below this
	maxDecodedSize = 512 << 20
)

// ZstdCompression encodes snapshots and sync-log archives. One encoder and
// decoder are shared by the FileManager and the archive; EncodeAll and
// DecodeAll are safe for concurrent use.
type ZstdCompression struct {
	level   zstd.EncoderLevel
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func (z *ZstdCompression) Compress(val []byte) ([]byte, error) {
	return z.encoder.EncodeAll(val, make([]byte, 0, len(val)/4)), nil
}

func (z *ZstdCompression) Decompress(val []byte) ([]byte, error) {
	out, err := z.decoder.DecodeAll(val, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}

func (z *ZstdCompression) Level() zstd.EncoderLevel {
	return z.level
}

// NewZstdCompressor builds the compressor at persistence.compressionLevel
// (fastest, default, better or best).
func NewZstdCompressor(conf *structures.Config) (interfaces.CompressorInterface, error) {
	name := conf.Persistence.CompressionLevel
	if name == "" {
		name = defaultCompressionLevel
	}
	ok, level := zstd.EncoderLevelFromString(name)
	if !ok {
		return nil, fmt.Errorf("unknown compression level %q", name)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0), zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &ZstdCompression{level: level, encoder: encoder, decoder: decoder}, nil
}

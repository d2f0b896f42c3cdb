package sqlblob

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// compressor frames values for SQL storage with optional zstd compression.
// Values below the threshold, or values zstd cannot shrink, are stored raw;
// the row records which form was stored so reads are exact.
type compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	enabled bool
}

// compressThreshold skips compression for values too small to benefit.
const compressThreshold = 128

func newCompressor(level int, enabled bool) (*compressor, error) {
	if !enabled {
		return &compressor{}, nil
	}

	var encoderLevel zstd.EncoderLevel
	switch level {
	case 1:
		encoderLevel = zstd.SpeedFastest
	case 2:
		encoderLevel = zstd.SpeedDefault
	case 3:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedDefault
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &compressor{encoder: encoder, decoder: decoder, enabled: true}, nil
}

// compress returns the stored form and whether it is compressed.
func (c *compressor) compress(data []byte) ([]byte, bool) {
	if !c.enabled || len(data) < compressThreshold {
		return data, false
	}
	compressed := c.encoder.EncodeAll(data, make([]byte, 0, len(data)))
	if len(compressed) >= len(data) {
		return data, false
	}
	return compressed, true
}

func (c *compressor) decompress(data []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return data, nil
	}
	if c.decoder == nil {
		return nil, fmt.Errorf("row is compressed but compression is disabled")
	}
	out, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress value: %w", err)
	}
	return out, nil
}

func (c *compressor) close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}

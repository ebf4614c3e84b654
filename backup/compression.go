package backup

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how backup snapshots are compressed inside the ring.
//
// Each ring entry records the algorithm it was written with, so the
// configured policy only affects new backups; old entries always decompress
// with their recorded algorithm.
type Compression string

const (
	// CompressionNone stores snapshots verbatim.
	CompressionNone Compression = "none"
	// CompressionZstd compresses snapshots with zstandard (the default).
	CompressionZstd Compression = "zstd"
	// CompressionLZ4 compresses snapshots with lz4 block compression.
	CompressionLZ4 Compression = "lz4"
)

// compressor holds reusable encoder state for the ring.
type compressor struct {
	zstdEnc *zstd.Encoder
	zstdDec *zstd.Decoder
	lz4Comp lz4.Compressor
}

func newCompressor() (*compressor, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &compressor{zstdEnc: enc, zstdDec: dec}, nil
}

// compress returns the compressed form of data and the algorithm actually
// used. Incompressible lz4 input falls back to CompressionNone for that
// entry rather than storing an expanded block.
func (c *compressor) compress(data []byte, alg Compression) ([]byte, Compression, error) {
	switch alg {
	case CompressionNone:
		return data, CompressionNone, nil
	case CompressionZstd:
		return c.zstdEnc.EncodeAll(data, nil), CompressionZstd, nil
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := c.lz4Comp.CompressBlock(data, buf)
		if err != nil {
			return nil, "", fmt.Errorf("lz4 compression failed: %w", err)
		}
		if n == 0 || n >= len(data) {
			return data, CompressionNone, nil
		}
		return buf[:n], CompressionLZ4, nil
	default:
		return nil, "", fmt.Errorf("unknown compression %q", alg)
	}
}

// decompress restores a snapshot using the algorithm recorded on its entry.
// size is the uncompressed byte length recorded at creation time.
func (c *compressor) decompress(data []byte, alg Compression, size int) ([]byte, error) {
	switch alg {
	case CompressionNone, "":
		return data, nil
	case CompressionZstd:
		out, err := c.zstdDec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompression failed: %w", err)
		}
		return out, nil
	case CompressionLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompression failed: %w", err)
		}
		return out[:n], nil
	default:
		return nil, fmt.Errorf("unknown compression %q", alg)
	}
}

package flash

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// CompressImage zstd-compresses a raw flash image. Erased flash is mostly
// 0xFF so images shrink to a fraction of their size.
func CompressImage(image []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, fmt.Errorf("flash: zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(image, nil), nil
}

// DecompressImage reverses CompressImage.
func DecompressImage(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("flash: zstd decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("flash: decompress image: %w", err)
	}
	return out, nil
}

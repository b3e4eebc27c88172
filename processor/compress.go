// processor/compress.go
package processor

import (
	"fmt"

	"github.com/golang/snappy"
)

// CompressMessage сжимает данные блочным форматом snappy
func CompressMessage(data []byte) []byte {
	return snappy.Encode(nil, data)
}

// DecompressMessage распаковывает данные, сжатые CompressMessage
func DecompressMessage(data []byte) ([]byte, error) {
	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки кадра: %w", err)
	}
	return decompressed, nil
}

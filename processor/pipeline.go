// processor/pipeline.go
package processor

import (
	"fmt"
	"strings"
)

// Encoding способ кодирования кадров WebSocket
type Encoding string

const (
	// EncodingJSON текстовые кадры с JSON как есть
	EncodingJSON Encoding = "json"
	// EncodingSnappy бинарные кадры с JSON, сжатым snappy
	EncodingSnappy Encoding = "snappy"
)

// ParseEncoding разбирает параметр encoding; пустое значение - JSON
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(s))) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingSnappy:
		return EncodingSnappy, nil
	default:
		return "", fmt.Errorf("неподдерживаемая кодировка %q", s)
	}
}

// Frame кадр, готовый к отправке
type Frame struct {
	Binary bool
	Data   []byte
}

// EncodeFrame готовит исходящий кадр
func EncodeFrame(enc Encoding, payload []byte) Frame {
	if enc == EncodingSnappy {
		return Frame{Binary: true, Data: CompressMessage(payload)}
	}
	return Frame{Data: payload}
}

// DecodeFrame возвращает JSON входящего кадра. Бинарные кадры
// считаются сжатыми snappy.
func DecodeFrame(binary bool, data []byte) ([]byte, error) {
	if !binary {
		return data, nil
	}
	return DecompressMessage(data)
}

package app

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

// decodeAudio decodes client-recorded audio sent as base64, tolerating an
// optional data-URL prefix ("data:audio/webm;base64,...").
func decodeAudio(encoded string) ([]byte, error) {
	if idx := strings.Index(encoded, ";base64,"); idx != -1 {
		encoded = encoded[idx+len(";base64,"):]
	}
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, errors.New("empty audio payload")
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	return audio, nil
}

// encodeAudioDataURL wraps synthesized audio in the data-URL form the client
// plays directly.
func encodeAudioDataURL(audio []byte) string {
	return "data:audio/mp3;base64," + base64.StdEncoding.EncodeToString(audio)
}

// parsePositiveInt parses a query parameter that must be a positive integer.
func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("not positive")
	}
	return n, nil
}

package commsutil

import json "github.com/goccy/go-json"

// EncodePayload serializes a value to JSON bytes.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload deserializes JSON bytes into the given target.
func DecodePayload(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// ValidPayload reports whether data is a single well-formed JSON document.
func ValidPayload(data []byte) bool {
	return json.Valid(data)
}

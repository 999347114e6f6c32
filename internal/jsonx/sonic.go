// Package jsonx provides JSON serialization using Sonic as a faster
// drop-in replacement for encoding/json on the webhook and cache paths.
package jsonx

import "github.com/bytedance/sonic"

// Marshal returns the JSON encoding of v using Sonic.
func Marshal(v interface{}) ([]byte, error) {
	return sonic.Marshal(v)
}

// Unmarshal parses the JSON-encoded data and stores the result
// in the value pointed to by v using Sonic.
func Unmarshal(data []byte, v interface{}) error {
	return sonic.Unmarshal(data, v)
}

package helpers

import (
	"encoding/hex"
	"strings"
)

// MustHex accepts spaces between bytes for readable test vectors.
func MustHex(s string) []byte {
	b, err := hex.DecodeString(strings.Replace(s, " ", "", -1))
	if err != nil {
		panic(err)
	}
	return b
}

package server

import (
	"math/big"

	"github.com/google/uuid"
)

const alphabetBase62 = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var bigZero big.Int

// NewShortID returns a random base62-encoded UUID. Connections are tagged
// with one in logs until a display name is known.
func NewShortID() string {
	value := uuid.New()

	return encodeBase62(value[:])
}

func encodeBase62(data []byte) string {
	var value big.Int
	value.SetBytes(data)

	var base big.Int

	result := []byte{}

	for value.Cmp(&bigZero) != 0 {
		base.SetInt64(int64(len(alphabetBase62)))
		_, remainder := value.DivMod(&value, &base, &base)
		result = append(result, alphabetBase62[remainder.Int64()])
	}

	return string(result)
}

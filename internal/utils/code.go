package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

// NewActivationCode returns a 4-digit code in the inclusive range
// 1000-9999, drawn from the secure random source. The code is what the
// candidate receives by mail and must echo back during activation.
func NewActivationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+1000, 10), nil
}

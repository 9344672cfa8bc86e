package joincode

import (
	"crypto/rand"
	"math/big"
)

// Length is the number of digits in a join code.
const Length = 6

// Generate returns a fixed-length numeric join code drawn uniformly from
// crypto/rand. Codes are not guaranteed unique; the registry must check the
// result against active sessions and re-roll on collision.
func Generate() (string, error) {
	code := make([]byte, Length)
	for i := 0; i < Length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		code[i] = '0' + byte(num.Int64())
	}
	return string(code), nil
}

package operation

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/randalmurphal/tripplan/pkg/tripplan/config"
)

// ShareCodeGenerator produces candidate trip share codes.
type ShareCodeGenerator func() (string, error)

// RandomShareCodes returns a generator drawing uniformly from the
// configured alphabet with crypto/rand.
func RandomShareCodes(s config.ShareCodeSettings) ShareCodeGenerator {
	alphabet := []rune(s.Alphabet)
	length := s.Length
	return func() (string, error) {
		if len(alphabet) == 0 || length <= 0 {
			return "", errors.New("share code: empty alphabet or length")
		}
		max := big.NewInt(int64(len(alphabet)))
		out := make([]rune, length)
		for i := range out {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", fmt.Errorf("share code: %w", err)
			}
			out[i] = alphabet[n.Int64()]
		}
		return string(out), nil
	}
}

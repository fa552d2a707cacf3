package backupcode

import (
	"crypto/rand"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Alphabet excludes 0/O and 1/I so codes read back unambiguously over
// the phone or from a printout.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	codeLength = 10
	groupSize  = 5
)

// Generate produces n plaintext backup codes formatted XXXXX-XXXXX.
func Generate(n int) ([]string, error) {
	codes := make([]string, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range codes {
		var b strings.Builder
		for j := 0; j < codeLength; j++ {
			if j > 0 && j%groupSize == 0 {
				b.WriteByte('-')
			}
			idx, err := rand.Int(rand.Reader, max)
			if err != nil {
				return nil, err
			}
			b.WriteByte(alphabet[idx.Int64()])
		}
		codes[i] = b.String()
	}
	return codes, nil
}

// HashAll bcrypt-hashes each code for storage. Plaintext codes are shown
// to the user exactly once and never persisted.
func HashAll(codes []string) ([]string, error) {
	hashes := make([]string, len(codes))
	for i, code := range codes {
		h, err := bcrypt.GenerateFromPassword([]byte(Normalize(code)), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hashes[i] = string(h)
	}
	return hashes, nil
}

// Normalize strips separators and whitespace and upcases, so user input
// like "abcde-23456" matches the stored hash.
func Normalize(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return code
}

// Match reports whether the candidate code matches the bcrypt hash.
func Match(code, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(Normalize(code))) == nil
}

// Consume finds the first hash the candidate matches and returns its
// index, or -1 when no hash matches.
func Consume(code string, hashes []string) int {
	for i, h := range hashes {
		if Match(code, h) {
			return i
		}
	}
	return -1
}

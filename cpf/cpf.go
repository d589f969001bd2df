// Package cpf implements the CPF (Cadastro de Pessoas Físicas) value
// object: Brazil's individual taxpayer registry number, validated with its
// two-digit checksum.
package cpf

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidFormat is returned when the input does not reduce to 11 digits
// with a valid checksum.
var ErrInvalidFormat = errors.New("cpf: invalid format or checksum")

// CPF is an immutable value object holding a validated, canonical 11-digit
// CPF. The zero value is not valid; always construct through Parse.
type CPF struct {
	digits string // exactly 11 decimal digits
}

// Parse strips all non-digit characters from raw, validates the checksum,
// and returns the canonical CPF. It never returns a CPF carrying an invalid
// checksum.
func Parse(raw string) (CPF, error) {
	digits := onlyDigits(raw)
	if !isValidChecksum(digits) {
		return CPF{}, ErrInvalidFormat
	}
	return CPF{digits: digits}, nil
}

// IsZero reports whether c is the unset zero value.
func (c CPF) IsZero() bool {
	return c.digits == ""
}

// Canonical returns the 11 raw digits.
func (c CPF) Canonical() string {
	return c.digits
}

// Formatted returns the CPF in NNN.NNN.NNN-NN form.
func (c CPF) Formatted() string {
	if c.IsZero() {
		return ""
	}
	d := c.digits
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
}

// Masked returns the CPF with the middle digits replaced by asterisks,
// suitable for logs, events, and error messages. Plaintext CPF must never
// appear in any of those per the masked-logging convention this method
// exists to enforce.
func (c CPF) Masked() string {
	if c.IsZero() {
		return ""
	}
	d := c.digits
	return d[0:3] + ".***.***-" + d[9:11]
}

// Hash returns a salted SHA-256 hex digest of the canonical CPF, for use as
// an index key where even the masked form shouldn't be persisted.
func (c CPF) Hash(salt string) string {
	sum := sha256.Sum256([]byte(salt + c.digits))
	return hex.EncodeToString(sum[:])
}

// Equal reports whether two CPFs share the same canonical digits.
func (c CPF) Equal(other CPF) bool {
	return c.digits == other.digits
}

// String implements fmt.Stringer with the masked form so that an accidental
// %s/%v in a log call never leaks plaintext.
func (c CPF) String() string {
	return c.Masked()
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isValidChecksum implements the standard CPF mod-11 check-digit algorithm.
func isValidChecksum(digits string) bool {
	if len(digits) != 11 {
		return false
	}
	if allSameDigit(digits) {
		return false
	}

	nums := make([]int, 11)
	for i, r := range digits {
		n, err := strconv.Atoi(string(r))
		if err != nil {
			return false
		}
		nums[i] = n
	}

	d1 := checkDigit(nums[:9], 10)
	if d1 != nums[9] {
		return false
	}
	d2 := checkDigit(nums[:10], 11)
	return d2 == nums[10]
}

// checkDigit computes one CPF verifier digit: each of the leading digits is
// weighted by a descending counter starting at weightStart, summed, taken
// mod 11, and folded to 0 when the remainder is less than 2.
func checkDigit(digits []int, weightStart int) int {
	sum := 0
	weight := weightStart
	for _, d := range digits {
		sum += d * weight
		weight--
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}

func allSameDigit(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

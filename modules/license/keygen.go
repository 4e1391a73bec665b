package license

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Keys look like QB-QBYT-1A2B-3C4D-5E6F: a fixed product prefix
// followed by three groups of four uppercase hex characters drawn from
// a CSPRNG. 48 bits of entropy keeps the keyspace sparse enough that
// guessing is impractical while keys stay typeable over the phone.
const (
	keyPrefix     = "QB-QBYT"
	keyGroups     = 3
	keyGroupLen   = 4
	keyRandomSize = keyGroups * keyGroupLen / 2
)

var keyPattern = regexp.MustCompile(`^QB-QBYT(-[0-9A-F]{4}){3}$`)

// GenerateKey produces a fresh license key. Uniqueness is enforced by
// the store, not here; callers retry on collision.
func GenerateKey() (string, error) {
	buf := make([]byte, keyRandomSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}

	chars := strings.ToUpper(hex.EncodeToString(buf))

	var b strings.Builder
	b.WriteString(keyPrefix)
	for i := 0; i < keyGroups; i++ {
		b.WriteByte('-')
		b.WriteString(chars[i*keyGroupLen : (i+1)*keyGroupLen])
	}
	return b.String(), nil
}

// ValidKeyFormat reports whether raw has the shape of a license key.
// Used to short-circuit lookups for garbage input.
func ValidKeyFormat(raw string) bool {
	return keyPattern.MatchString(raw)
}

// NormalizeKey trims whitespace and uppercases a key as typed by a
// user or pasted into a product install screen.
func NormalizeKey(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// MaskKey hides the middle groups of a key for listings that should
// identify a key without disclosing it. The full value is returned
// exactly once, at issuance.
func MaskKey(raw string) string {
	if !ValidKeyFormat(raw) {
		return raw
	}
	return keyPrefix + "-****-****-" + raw[len(raw)-keyGroupLen:]
}

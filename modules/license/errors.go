package license

import "errors"

var (
	ErrKeyNotFound           = errors.New("license: key not found")
	ErrKeyAlreadyIssued      = errors.New("license: owner already has a key")
	ErrDuplicateKey          = errors.New("license: generated key already exists")
	ErrKeyNotActive          = errors.New("license: key is not active")
	ErrKeyNotRevoked         = errors.New("license: key is not revoked")
	ErrInvalidSeatCount      = errors.New("license: invalid seat count")
	ErrSubscriptionNotUsable = errors.New("license: subscription does not permit a working key")
	ErrKeyGeneration         = errors.New("license: key generation failed")
)

package domain

import (
	"strconv"
	"strings"

	dErrors "veritasor/pkg/domain-errors"
)

// BondID identifies one issued bond. IDs are allocated from a monotonic
// counter at issuance and are never reused.
type BondID uint64

// ParseBondID validates and returns a BondID from its decimal string form.
// Used at trust boundaries (URL parameters); internal code passes BondID
// values directly.
func ParseBondID(s string) (BondID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, "bond id is required")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "bond id must be a non-negative integer")
	}
	return BondID(n), nil
}

// String returns the decimal representation of the bond ID.
func (id BondID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Identity is an opaque account subject: an issuer, a bond owner, the
// administrator, or a token account. Authorization checks compare the
// authenticated caller subject against stored identities by equality.
type Identity string

// ParseIdentity validates an identity from external input.
func ParseIdentity(s string) (Identity, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "identity is required")
	}
	return Identity(trimmed), nil
}

// IsNil reports whether the identity is unset.
func (i Identity) IsNil() bool {
	return i == ""
}

// String returns the raw subject string.
func (i Identity) String() string {
	return string(i)
}

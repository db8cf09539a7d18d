package auth

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Digest schemes accepted by NewDigester
const (
	SchemeMD5    = "md5"
	SchemeBcrypt = "bcrypt"
)

// Digester turns a plaintext password into the value sent to the backend
type Digester interface {
	Digest(password string) (string, error)
	Name() string
}

// MD5Digest is the unsalted MD5 (lowercase hex) the legacy backend compares
// against. It is a compatibility format, not password protection.
type MD5Digest struct{}

// Digest returns the lowercase hex MD5 of the UTF-8 password bytes
func (MD5Digest) Digest(password string) (string, error) {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

// Name returns the scheme name
func (MD5Digest) Name() string {
	return SchemeMD5
}

// BcryptDigest hashes with bcrypt. The legacy backend cannot verify these.
type BcryptDigest struct {
	Cost int
}

// Digest returns a bcrypt hash of the password
func (d BcryptDigest) Digest(password string) (string, error) {
	cost := d.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hash), nil
}

// Name returns the scheme name
func (BcryptDigest) Name() string {
	return SchemeBcrypt
}

// NewDigester returns the digester for a scheme name; empty means md5
func NewDigester(scheme string) (Digester, error) {
	switch scheme {
	case "", SchemeMD5:
		return MD5Digest{}, nil
	case SchemeBcrypt:
		return BcryptDigest{}, nil
	default:
		return nil, fmt.Errorf("unknown password digest: %s", scheme)
	}
}

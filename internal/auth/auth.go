// Package auth checks usernames and passwords against a fixed user table.
//
// Stored hashes are either hex SHA-256 digests or bcrypt hashes. Every
// failure yields ErrInvalidCredentials so callers cannot tell an unknown
// user from a wrong password.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// dummyHash is compared against when the user is unknown so both failure
// paths do the same work.
var dummyHash = HashSHA256("budget-unknown-user")

type Users struct {
	hashes map[string]string
}

// NewUsers validates every hash and builds the user table.
func NewUsers(hashes map[string]string) (*Users, error) {
	if len(hashes) == 0 {
		return nil, errors.New("no users configured")
	}
	u := &Users{hashes: make(map[string]string, len(hashes))}
	for name, hash := range hashes {
		name = strings.TrimSpace(name)
		hash = strings.TrimSpace(hash)
		if name == "" {
			return nil, errors.New("empty username")
		}
		if !isSHA256Hex(hash) && !isBcrypt(hash) {
			return nil, fmt.Errorf("user %q: hash must be hex sha256 or bcrypt", name)
		}
		u.hashes[name] = hash
	}
	return u, nil
}

// ParseUsers reads "name:hash,name:hash".
func ParseUsers(spec string) (*Users, error) {
	hashes := make(map[string]string)
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, hash, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("malformed user entry %q (want name:hash)", entry)
		}
		if _, dup := hashes[strings.TrimSpace(name)]; dup {
			return nil, fmt.Errorf("duplicate user %q", strings.TrimSpace(name))
		}
		hashes[strings.TrimSpace(name)] = hash
	}
	return NewUsers(hashes)
}

// Verify returns nil when password matches username's stored hash.
func (u *Users) Verify(username, password string) error {
	hash, ok := u.hashes[strings.TrimSpace(username)]
	if !ok {
		hash = dummyHash
	}
	match := matches(hash, password)
	if !ok || !match {
		return ErrInvalidCredentials
	}
	return nil
}

// Names returns the configured usernames, sorted.
func (u *Users) Names() []string {
	out := make([]string, 0, len(u.hashes))
	for n := range u.hashes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func matches(hash, password string) bool {
	if isBcrypt(hash) {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	want, err := hex.DecodeString(strings.ToLower(hash))
	if err != nil {
		return false
	}
	got := sha256.Sum256([]byte(password))
	return subtle.ConstantTimeCompare(want, got[:]) == 1
}

// HashSHA256 returns the hex SHA-256 digest of password.
func HashSHA256(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// HashBcrypt returns a bcrypt hash of password. A cost of 0 uses the
// library default.
func HashBcrypt(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

func isSHA256Hex(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

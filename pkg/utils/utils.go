package utils

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	NewLinkCode() (string, error)
}

type utils struct {
	linkCodeBytes int
}

func New() IUtils {
	return &utils{
		linkCodeBytes: 20,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// NewLinkCode returns the opaque token that addresses a scan session from
// the subject's device. It is pure entropy: unlike a ULID it leaks no
// creation time, so codes cannot be enumerated from a known one.
func (u *utils) NewLinkCode() (string, error) {
	buf := make([]byte, u.linkCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	code := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf)
	return strings.ToLower(code), nil
}

package coordinator

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const (
	placeholderPrefix = "temp-"
	undefinedIdentity = "undefined"
	defaultExtension  = "pdf"

	base36 = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewPlaceholderID mints a temp-<unix millis>-<9 base36 chars> identity.
func NewPlaceholderID(now time.Time) string {
	var suffix [9]byte
	for i := range suffix {
		suffix[i] = base36[rand.Intn(len(base36))]
	}
	return fmt.Sprintf("%s%d-%s", placeholderPrefix, now.UnixMilli(), suffix[:])
}

// IsPlaceholder reports whether id was minted at upload start and has no
// backend-retrievable content yet.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, placeholderPrefix)
}

// ValidIdentity rejects the empty string and the "undefined" sentinel.
func ValidIdentity(id string) bool {
	return id != "" && id != undefinedIdentity
}

// fileExtension returns the lowercased text after the last dot.
func fileExtension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return defaultExtension
	}
	return strings.ToLower(name[idx+1:])
}

func extensionOrDefault(ext string) string {
	if ext == "" {
		return defaultExtension
	}
	return ext
}

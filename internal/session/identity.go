package session

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// clientIDPattern is the accepted shape for broker client identifiers.
var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// defaultClientIDPrefix is used when no prefix is configured.
const defaultClientIDPrefix = "wsexplorer"

// ValidateClientID checks an identifier against [A-Za-z0-9_-]{1,128}.
func ValidateClientID(id string) error {
	if !clientIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidClientID, id)
	}
	return nil
}

// GenerateClientID builds an identifier from the prefix and a random
// 8-character suffix. The result is validated by the caller like any
// operator-supplied identifier.
func GenerateClientID(prefix string) string {
	if prefix == "" {
		prefix = defaultClientIDPrefix
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return prefix + "-" + suffix
}

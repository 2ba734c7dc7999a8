package detect

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/halcyon-dev/flowpilot/internal/domain"
)

// Fingerprint derives a content identifier from the ordered multiset of
// (event_type, file_extension) pairs in an action window. Timestamps are
// excluded so that two sightings of the same recurring workflow hash
// identically. Truncated to 16 hex characters.
func Fingerprint(actions []domain.UserAction) string {
	var b strings.Builder
	for _, a := range actions {
		b.WriteString(a.DetailString("event_type"))
		b.WriteByte(':')
		b.WriteString(a.DetailString("file_extension"))
		b.WriteByte(':')
	}
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:16]
}

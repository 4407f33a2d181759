package shipments

import (
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var trackingIDPattern = regexp.MustCompile(`^MVX-[0-9A-F]{8}$`)

// GenerateTrackingID produces an "MVX-" id with 8 uppercase hex digits of
// random uuid material. Collisions are negligible but not impossible;
// CreateShipment retries on duplicate.
func GenerateTrackingID() string {
	id := uuid.New()
	return "MVX-" + strings.ToUpper(hex.EncodeToString(id[:4]))
}

// ValidTrackingID reports whether the id matches the MVX-XXXXXXXX
// convention. The admin form pre-fills generated ids but accepts free-form
// ones, so this is advisory, not enforced on create.
func ValidTrackingID(id string) bool {
	return trackingIDPattern.MatchString(id)
}

package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewReference builds the display code of an order. It is not guaranteed unique; the
// numeric id stays the key.
func NewReference(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}

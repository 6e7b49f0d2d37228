package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// newOrderNumber builds an ORD-YYMMDD-XXXXXXXX identifier. The random part
// comes from a UUID; the unique index on order_number backstops collisions.
func newOrderNumber(now time.Time) string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("060102"), random)
}

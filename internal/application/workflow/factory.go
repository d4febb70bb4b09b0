package workflow

import (
	"strings"
	"time"

	"github.com/google/uuid"

	domainwf "github.com/garyjia/overtime-claims/internal/domain/workflow"
)

// TicketGenerator assigns human-readable ticket numbers
type TicketGenerator func(now time.Time) string

// NewTicketNumber returns OT-YYYYMMDD-XXXXXXXX with a random uppercase hex suffix
func NewTicketNumber(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "OT-" + now.Format("20060102") + "-" + strings.ToUpper(id[:8])
}

// BuildRequestStateMachine places a machine on the lifecycle graph at current
func BuildRequestStateMachine(current domainwf.State) *domainwf.Machine {
	return domainwf.NewRequestMachine(current)
}

package output

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/nodeward/nodeward/internal/logs"
	"github.com/nodeward/nodeward/internal/supervisor"
)

// StateString colors an observed lifecycle state for display.
func StateString(state supervisor.ObservedState) string {
	switch state {
	case supervisor.StateRunning:
		return color.GreenString(string(state))
	case supervisor.StateExternallyRunning:
		return color.CyanString(string(state))
	case supervisor.StateStarting, supervisor.StateStopping:
		return color.YellowString(string(state))
	case supervisor.StateCrashed:
		return color.RedString(string(state))
	case supervisor.StateUnknown:
		return color.HiBlackString(string(state))
	default:
		return string(state)
	}
}

// OwnershipString labels who controls the process.
func OwnershipString(kind supervisor.OwnershipKind) string {
	switch kind {
	case supervisor.OwnershipOwned:
		return "owned"
	case supervisor.OwnershipDetected:
		return "attached (read-only)"
	default:
		return "-"
	}
}

// PortString renders one probed port as role:port with reachability
// coloring.
func PortString(p supervisor.PortStatus) string {
	s := fmt.Sprintf("%s:%d", p.Role, p.Port)
	if p.Reachable {
		return color.GreenString(s)
	}
	return color.HiBlackString(s)
}

// RecordString colors a log record by severity, leaving the raw line
// intact.
func RecordString(r logs.Record) string {
	switch r.Level {
	case logs.LevelError:
		return color.RedString(r.Raw)
	case logs.LevelWarn:
		return color.YellowString(r.Raw)
	case logs.LevelDebug, logs.LevelTrace:
		return color.HiBlackString(r.Raw)
	default:
		return r.Raw
	}
}

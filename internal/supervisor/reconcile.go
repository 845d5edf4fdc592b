package supervisor

// ReconcileInput is the mutually consistent set of observations gathered
// in one poll tick. Reconciliation decides the next state from these
// alone; it performs no I/O of its own.
type ReconcileInput struct {
	Desired   DesiredState
	Observed  ObservedState
	Ownership OwnershipKind

	// AnyPortReachable is true when at least one enabled port answered.
	AnyPortReachable bool

	// ProbeFailed is true when the probe itself could not run (socket
	// setup failure), as opposed to ports simply being unreachable.
	ProbeFailed bool

	// OwnedExited / OwnedExitCode report the owned process's exit, when
	// ownership is Owned and the process has exited.
	OwnedExited   bool
	OwnedExitCode int

	// StartDeadlineExceeded is true when the instance has been Starting
	// longer than the startup timeout.
	StartDeadlineExceeded bool
}

// ReconcileOutcome is the decision of one reconciliation pass. The
// instance applies it; reconciliation itself never touches a handle.
type ReconcileOutcome struct {
	Next ObservedState

	// AttachDetected instructs the instance to adopt a Detected handle
	// for the reachable port.
	AttachDetected bool

	// ReleaseHandle instructs the instance to drop its current handle:
	// an owned process that exited, or a detected port that went away.
	ReleaseHandle bool

	// Failure annotates the snapshot's last error. Nil for healthy
	// transitions.
	Failure error
}

// Reconcile computes the next lifecycle state from one tick's
// observations. It is a pure function: identical inputs always yield
// identical outcomes, which keeps state transitions idempotent and
// testable.
func Reconcile(in ReconcileInput) ReconcileOutcome {
	// A failed probe means this tick's inputs are not trustworthy.
	// Degrade to Unknown and keep everything else as is.
	if in.ProbeFailed {
		return ReconcileOutcome{Next: StateUnknown}
	}

	switch in.Ownership {
	case OwnershipOwned:
		return reconcileOwned(in)
	case OwnershipDetected:
		return reconcileDetected(in)
	default:
		return reconcileUnowned(in)
	}
}

func reconcileOwned(in ReconcileInput) ReconcileOutcome {
	// A stop is in flight: the only interesting observation is exit.
	if in.Desired == DesiredStopped {
		if in.OwnedExited {
			return ReconcileOutcome{Next: StateStopped, ReleaseHandle: true}
		}
		return ReconcileOutcome{Next: StateStopping}
	}

	// Desired Running. An exit nobody asked for is a crash.
	if in.OwnedExited {
		return ReconcileOutcome{
			Next:          StateCrashed,
			ReleaseHandle: true,
			Failure:       &CrashError{ExitCode: in.OwnedExitCode},
		}
	}

	switch in.Observed {
	case StateStarting:
		if in.AnyPortReachable {
			return ReconcileOutcome{Next: StateRunning}
		}
		if in.StartDeadlineExceeded {
			return ReconcileOutcome{Next: StateCrashed, Failure: ErrStartupTimeout}
		}
		return ReconcileOutcome{Next: StateStarting}
	case StateCrashed:
		// A startup-timeout crash left the process alive; if a port
		// opens later the node has recovered.
		if in.AnyPortReachable {
			return ReconcileOutcome{Next: StateRunning}
		}
		return ReconcileOutcome{Next: StateCrashed}
	default:
		// Alive and owned: Running, even through transient port flaps.
		return ReconcileOutcome{Next: StateRunning}
	}
}

func reconcileDetected(in ReconcileInput) ReconcileOutcome {
	// ExternallyRunning leaves only via re-probe finding the port gone,
	// never via a terminate call.
	if in.AnyPortReachable {
		return ReconcileOutcome{Next: StateExternallyRunning}
	}
	return ReconcileOutcome{Next: StateStopped, ReleaseHandle: true}
}

func reconcileUnowned(in ReconcileInput) ReconcileOutcome {
	// No handle but something answers on a node port: attach read-only.
	if in.AnyPortReachable {
		return ReconcileOutcome{Next: StateExternallyRunning, AttachDetected: true}
	}
	// A crash whose handle was already released stays visible until a
	// restart or a recovery; it never decays into a clean stop.
	if in.Observed == StateCrashed {
		return ReconcileOutcome{Next: StateCrashed}
	}
	return ReconcileOutcome{Next: StateStopped}
}

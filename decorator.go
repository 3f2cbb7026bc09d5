package behaviortree

import "context"

// forceSuccessImpl ticks its child and converts a terminal Failure into
// Success; Running passes through unchanged.
type forceSuccessImpl struct{}

func (forceSuccessImpl) resetState() {}

func (forceSuccessImpl) tickStatus(ctx context.Context, proxy *DataProxy, inner *Node) (Status, error) {
	status, err := inner.Tick(ctx)
	if err != nil {
		return Failure, err
	}
	if status == Failure {
		return Success, nil
	}
	return status, nil
}

// forceFailureImpl ticks its child and converts a terminal Success into
// Failure; Running passes through unchanged.
type forceFailureImpl struct{}

func (forceFailureImpl) resetState() {}

func (forceFailureImpl) tickStatus(ctx context.Context, proxy *DataProxy, inner *Node) (Status, error) {
	status, err := inner.Tick(ctx)
	if err != nil {
		return Failure, err
	}
	if status == Success {
		return Failure, nil
	}
	return status, nil
}

// inverterImpl ticks its child and swaps Success and Failure; Running
// passes through unchanged.
type inverterImpl struct{}

func (inverterImpl) resetState() {}

func (inverterImpl) tickStatus(ctx context.Context, proxy *DataProxy, inner *Node) (Status, error) {
	status, err := inner.Tick(ctx)
	if err != nil {
		return Failure, err
	}
	switch status {
	case Success:
		return Failure, nil
	case Failure:
		return Success, nil
	default:
		return status, nil
	}
}

// repeatImpl ticks its child up to num_cycles times, restarting the child
// from Idle after each completed cycle, and returns the last inner
// completed status (Success or Failure) once num_cycles cycles have
// completed — a Failure cycle counts the same as a Success cycle and does
// not abort early. num_cycles defaults to 1 when unbound; num_cycles == 0
// returns Success without ticking the child at all.
type repeatImpl struct {
	completedCycles int
}

func (r *repeatImpl) resetState() { r.completedCycles = 0 }

func (r *repeatImpl) tickStatus(ctx context.Context, proxy *DataProxy, inner *Node) (Status, error) {
	numCycles, ok := GetInput[int](proxy, "num_cycles")
	if !ok {
		numCycles = 1
	}
	if numCycles == 0 {
		return Success, nil
	}

	for r.completedCycles < numCycles {
		status, err := inner.Tick(ctx)
		if err != nil {
			return Failure, err
		}
		switch status {
		case Success, Failure:
			r.completedCycles++
			if r.completedCycles >= numCycles {
				return status, nil
			}
			inner.ResetStatus()
			return Running, nil
		default: // Running
			return Running, nil
		}
	}
	return Success, nil
}

// retryImpl ticks its child; on a terminal Failure it re-ticks the child
// in place, within the same outer Tick call, ticking it at most
// num_attempts times in total before giving up, and returns Success as
// soon as any attempt succeeds.
// num_attempts defaults to 1 when unbound; num_attempts == 0 returns
// Failure immediately without ticking the child at all.
type retryImpl struct{}

func (retryImpl) resetState() {}

func (retryImpl) tickStatus(ctx context.Context, proxy *DataProxy, inner *Node) (Status, error) {
	numAttempts, ok := GetInput[int](proxy, "num_attempts")
	if !ok {
		numAttempts = 1
	}
	if numAttempts == 0 {
		return Failure, nil
	}

	for attempt := 0; attempt < numAttempts; attempt++ {
		status, err := inner.Tick(ctx)
		if err != nil {
			return Failure, err
		}
		switch status {
		case Success:
			return Success, nil
		case Running:
			return Running, nil
		default: // Failure: reset the child and retry in place
			inner.ResetStatus()
		}
	}
	return Failure, nil
}

// subTreeImpl is an identity decorator: it exists solely to give a SubTree
// reference its own UID, full_path, and DataProxy (with the subtree's
// blackboard remapping already installed by the builder); ticking and
// halting simply pass through to the imported tree's root.
type subTreeImpl struct{}

func (subTreeImpl) resetState() {}

func (subTreeImpl) tickStatus(ctx context.Context, proxy *DataProxy, inner *Node) (Status, error) {
	return inner.Tick(ctx)
}

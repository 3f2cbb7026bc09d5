package behaviortree

import "context"

// sequenceImpl ticks children left to right, stopping at the first child
// that does not return Success. It resumes a Running child on the next
// tick rather than restarting from the first child.
type sequenceImpl struct {
	cursor int
}

func (s *sequenceImpl) resetState() { s.cursor = 0 }

func (s *sequenceImpl) tickStatus(ctx context.Context, proxy *DataProxy, children []*Node) (Status, error) {
	for ; s.cursor < len(children); s.cursor++ {
		status, err := children[s.cursor].Tick(ctx)
		if err != nil {
			return Failure, err
		}
		switch status {
		case Success:
			continue
		case Running:
			return Running, nil
		default: // Failure
			return Failure, nil
		}
	}
	return Success, nil
}

// fallbackImpl ticks children left to right, stopping at the first child
// that does not return Failure.
type fallbackImpl struct {
	cursor int
}

func (f *fallbackImpl) resetState() { f.cursor = 0 }

func (f *fallbackImpl) tickStatus(ctx context.Context, proxy *DataProxy, children []*Node) (Status, error) {
	for ; f.cursor < len(children); f.cursor++ {
		status, err := children[f.cursor].Tick(ctx)
		if err != nil {
			return Failure, err
		}
		switch status {
		case Failure:
			continue
		case Running:
			return Running, nil
		default: // Success
			return Success, nil
		}
	}
	return Failure, nil
}

// parallelImpl ticks every child that has not yet completed in the current
// cycle (children already at Success or Failure are counted, not re-ticked,
// until the Parallel itself completes and resets them), succeeding once at least
// success_count children have returned Success and failing once at least
// failure_count children have returned Failure, whichever threshold is
// reached first in declaration order; both ports default to the child
// count when unbound or unparsable.
type parallelImpl struct{}

func (p *parallelImpl) resetState() {}

func (p *parallelImpl) tickStatus(ctx context.Context, proxy *DataProxy, children []*Node) (Status, error) {
	if len(children) == 0 {
		return Failure, nil
	}

	successCount, ok := GetInput[int](proxy, "success_count")
	if !ok {
		successCount = len(children)
	}
	failureCount, ok := GetInput[int](proxy, "failure_count")
	if !ok {
		failureCount = len(children)
	}

	var successes, failures int
	for _, c := range children {
		if c.Status().Completed() {
			if c.Status() == Success {
				successes++
			} else {
				failures++
			}
			continue
		}
		status, err := c.Tick(ctx)
		if err != nil {
			return Failure, err
		}
		switch status {
		case Success:
			successes++
		case Failure:
			failures++
		}
		if successes >= successCount {
			return Success, nil
		}
		if failures >= failureCount {
			return Failure, nil
		}
	}

	if successes >= successCount {
		return Success, nil
	}
	if failures >= failureCount {
		return Failure, nil
	}
	return Running, nil
}

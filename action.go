package behaviortree

import (
	"context"
	"fmt"
)

// ActionFunc adapts a plain function to the Action interface, for leaf
// behaviors simple enough not to need their own named type.
type ActionFunc func(ctx context.Context, proxy *DataProxy) (Status, error)

// Tick calls the underlying function.
func (f ActionFunc) Tick(ctx context.Context, proxy *DataProxy) (Status, error) {
	return f(ctx, proxy)
}

// setBlackboardAction is the built-in action backing the SetBlackboard
// element: it copies the literal or port-referenced "value" input, read as
// a string, into the blackboard key named by the "output_key" input, then
// returns Success.
type setBlackboardAction struct{}

func (setBlackboardAction) Tick(ctx context.Context, proxy *DataProxy) (Status, error) {
	outputKey, ok := GetInput[string](proxy, "output_key")
	if !ok || outputKey == "" {
		return Failure, fmt.Errorf("behaviortree: SetBlackboard requires a non-empty output_key")
	}

	value, ok := GetInput[string](proxy, "value")
	if !ok {
		return Failure, nil
	}

	proxy.Blackboard().Set(outputKey, value)
	return Success, nil
}

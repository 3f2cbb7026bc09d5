package behaviortree

import (
	"context"
	"fmt"

	"github.com/briarwood/behaviortree/internal/tracing"
)

// compositeImpl is the per-kind tick logic for a composite node (Sequence,
// Fallback, Parallel, ...). Children are ticked by the impl itself so each
// kind controls its own short-circuit and child-reset behavior.
type compositeImpl interface {
	tickStatus(ctx context.Context, proxy *DataProxy, children []*Node) (Status, error)
	resetState()
}

// decoratorImpl is the per-kind tick logic for a decorator node
// (ForceSuccess, Inverter, Repeat, Retry, SubTree, ...).
type decoratorImpl interface {
	tickStatus(ctx context.Context, proxy *DataProxy, inner *Node) (Status, error)
	resetState()
}

// Action is the contract user-defined leaf behaviors implement and register
// with a Factory via RegisterActionType.
type Action interface {
	Tick(ctx context.Context, proxy *DataProxy) (Status, error)
}

// Haltable is an optional extension an Action may implement to release
// in-flight work when its owning node is halted mid-Running.
type Haltable interface {
	Halt()
}

// Node is the uniform wrapper over the three node variants. Exactly one of
// composite/decorator/action is populated, selected by kind.
type Node struct {
	kind     Kind
	proxy    *DataProxy
	typeName string

	composite compositeImpl
	children  []*Node

	decorator decoratorImpl
	inner     *Node

	action Action
}

// Kind reports which of the three variants this node is.
func (n *Node) Kind() Kind { return n.kind }

// TypeName is the XML element name the node was built from (e.g.
// "Sequence", "Repeat", or a registered action's own element name).
func (n *Node) TypeName() string { return n.typeName }

func (n *Node) UID() uint16                        { return n.proxy.UID() }
func (n *Node) SetUID(uid uint16)                  { n.proxy.SetUID(uid) }
func (n *Node) FullPath() string                   { return n.proxy.FullPath() }
func (n *Node) Path() string                       { return n.proxy.Path() }
func (n *Node) Status() Status                     { return n.proxy.Status() }
func (n *Node) ResetStatus()                       { n.proxy.ResetStatus() }
func (n *Node) Subscribe() <-chan StateNotification { return n.proxy.Subscribe() }
func (n *Node) Children() []*Node                  { return n.children }
func (n *Node) Inner() *Node                       { return n.inner }
func (n *Node) Blackboard() *Blackboard            { return n.proxy.Blackboard() }

// Tick runs the common start/delegate/halt-on-completion/persist contract
// shared by every node kind, then dispatches to the kind-specific logic.
func (n *Node) Tick(ctx context.Context) (Status, error) {
	span, ctx := tracing.StartChildSpan(ctx, n.kind.String()+"::"+n.FullPath())
	defer span.Finish()

	if n.proxy.Status() == Idle {
		n.proxy.SetStatus(Running)
	}

	status, err := n.dispatchTick(ctx)
	if err != nil {
		return status, err
	}

	if status.Completed() {
		n.Halt()
	}

	n.proxy.SetStatus(status)
	return status, nil
}

func (n *Node) dispatchTick(ctx context.Context) (Status, error) {
	switch n.kind {
	case KindComposite:
		return n.composite.tickStatus(ctx, n.proxy, n.children)
	case KindDecorator:
		return n.decorator.tickStatus(ctx, n.proxy, n.inner)
	case KindAction:
		return n.action.Tick(ctx, n.proxy)
	default:
		return Failure, fmt.Errorf("behaviortree: node %q has unknown kind", n.FullPath())
	}
}

// Halt resets this node's own kind-specific state and, for composites and
// decorators, halts any child still Running and resets every child back to
// Idle. Calling Halt on an already-idle subtree is a harmless no-op: its
// internal state is already at the zero value and no child is Running.
func (n *Node) Halt() {
	switch n.kind {
	case KindComposite:
		n.composite.resetState()
		for _, c := range n.children {
			haltAndResetChild(c)
		}
	case KindDecorator:
		n.decorator.resetState()
		haltAndResetChild(n.inner)
	case KindAction:
		if h, ok := n.action.(Haltable); ok {
			h.Halt()
		}
	}
}

func haltAndResetChild(c *Node) {
	if c.Status() == Running {
		c.Halt()
	}
	c.ResetStatus()
}

// ApplyRecursiveVisitor walks the tree in pre-order, calling visit on every
// node with its depth below the receiver (the receiver itself is depth 0).
func (n *Node) ApplyRecursiveVisitor(visit func(node *Node, depth int)) {
	n.applyRecursiveVisitor(visit, 0)
}

func (n *Node) applyRecursiveVisitor(visit func(*Node, int), depth int) {
	visit(n, depth)
	switch n.kind {
	case KindComposite:
		for _, c := range n.children {
			c.applyRecursiveVisitor(visit, depth+1)
		}
	case KindDecorator:
		n.inner.applyRecursiveVisitor(visit, depth+1)
	}
}

package behaviortree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedAction returns results[i] on its i-th tick, then holds on the
// final entry for any further ticks. calls counts every invocation
// (including repeats past the end of results), so tests can assert exactly
// how many times an action was actually ticked.
type scriptedAction struct {
	results []Status
	calls   int
	halted  bool
}

func (s *scriptedAction) Tick(ctx context.Context, proxy *DataProxy) (Status, error) {
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	return s.results[idx], nil
}

func (s *scriptedAction) Halt() { s.halted = true }

func newActionNode(name string, a *scriptedAction) *Node {
	proxy := newDataProxy(NewBlackboard(), nil)
	proxy.SetUID(nextUID())
	proxy.SetFullPath(name)
	return &Node{kind: KindAction, proxy: proxy, typeName: name, action: a}
}

func newSequenceNode(children ...*Node) *Node {
	proxy := newDataProxy(NewBlackboard(), nil)
	proxy.SetUID(nextUID())
	proxy.SetFullPath("Sequence")
	return &Node{kind: KindComposite, proxy: proxy, typeName: "Sequence", composite: &sequenceImpl{}, children: children}
}

func Test_Node_Idle_To_Running_On_First_Tick(t *testing.T) {
	a := &scriptedAction{results: []Status{Running}}
	n := newActionNode("A", a)

	require.Equal(t, Idle, n.Status())
	status, err := n.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Running, status)
	assert.Equal(t, Running, n.Status())
}

func Test_Node_Halts_Action_On_Completion(t *testing.T) {
	a := &scriptedAction{results: []Status{Success}}
	n := newActionNode("A", a)

	status, err := n.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Success, status)
	assert.True(t, a.halted, "a completed Action should be halted immediately")
}

func Test_Node_Reset_Only_Via_Explicit_ResetStatus(t *testing.T) {
	a := &scriptedAction{results: []Status{Failure}}
	n := newActionNode("A", a)

	_, err := n.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, Failure, n.Status())

	n.ResetStatus()
	assert.Equal(t, Idle, n.Status())
}

func Test_Sequence_All_Succeed(t *testing.T) {
	success := func() *scriptedAction { return &scriptedAction{results: []Status{Success}} }
	seq := newSequenceNode(
		newActionNode("A", success()),
		newActionNode("B", success()),
		newActionNode("C", success()),
	)

	status, err := seq.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Success, status)
}

func Test_Sequence_Stops_At_First_Failure(t *testing.T) {
	touched := &scriptedAction{results: []Status{Success}}
	untouched := &scriptedAction{results: []Status{Success}}
	seq := newSequenceNode(
		newActionNode("A", touched),
		newActionNode("B", &scriptedAction{results: []Status{Failure}}),
		newActionNode("C", untouched),
	)

	status, err := seq.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Failure, status)
	assert.Equal(t, 1, touched.calls, "A ticks exactly once before B fails")
	assert.Equal(t, 0, untouched.calls, "C must never tick once B fails")
}

func Test_Sequence_Resumes_Running_Child_Without_Retick(t *testing.T) {
	first := &scriptedAction{results: []Status{Success}}
	second := &scriptedAction{results: []Status{Running, Success}}
	seq := newSequenceNode(newActionNode("A", first), newActionNode("B", second))

	status, err := seq.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, Running, status)
	assert.Equal(t, 1, first.calls)

	status, err = seq.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Success, status)
	assert.Equal(t, 1, first.calls, "A must not be re-ticked while resuming at B")
}

func Test_ApplyRecursiveVisitor_Visits_Every_Node(t *testing.T) {
	seq := newSequenceNode(
		newActionNode("A", &scriptedAction{results: []Status{Success}}),
		newActionNode("B", &scriptedAction{results: []Status{Success}}),
	)

	var visited []string
	seq.ApplyRecursiveVisitor(func(n *Node, depth int) {
		visited = append(visited, n.TypeName())
	})
	assert.Equal(t, []string{"Sequence", "A", "B"}, visited)
}

package behaviortree_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	behaviortree "github.com/briarwood/behaviortree"
)

type staticAction struct {
	result behaviortree.Status
	calls  int
}

func (a *staticAction) Tick(ctx context.Context, proxy *behaviortree.DataProxy) (behaviortree.Status, error) {
	a.calls++
	return a.result, nil
}

func registerStatic(t *testing.T, f *behaviortree.Factory, name string, result behaviortree.Status) *staticAction {
	t.Helper()
	a := &staticAction{result: result}
	require.NoError(t, f.RegisterActionType(name, func() behaviortree.Action { return a }))
	return a
}

func Test_BuildTree_Missing_Root_Element_Fails(t *testing.T) {
	f := behaviortree.NewFactory()
	_, err := f.BuildTree([]byte(`<NotRoot/>`), behaviortree.NewBlackboard())
	require.Error(t, err)
}

func Test_BuildTree_Unknown_Element_Fails(t *testing.T) {
	f := behaviortree.NewFactory()
	doc := []byte(`
	<root main_tree_to_execute="Main">
	  <BehaviorTree ID="Main">
	    <TotallyMadeUp/>
	  </BehaviorTree>
	</root>`)
	_, err := f.BuildTree(doc, behaviortree.NewBlackboard())
	require.Error(t, err)
}

func Test_BuildTree_SubTree_Unknown_Reference_Fails(t *testing.T) {
	f := behaviortree.NewFactory()
	doc := []byte(`
	<root main_tree_to_execute="Main">
	  <BehaviorTree ID="Main">
	    <SubTree ID="Nowhere"/>
	  </BehaviorTree>
	</root>`)
	_, err := f.BuildTree(doc, behaviortree.NewBlackboard())
	require.Error(t, err)
}

func Test_BuildTree_UID_Uniqueness_And_Path_Correctness(t *testing.T) {
	f := behaviortree.NewFactory()
	registerStatic(t, f, "Leaf", behaviortree.Success)

	doc := []byte(`
	<root main_tree_to_execute="Main">
	  <BehaviorTree ID="Main">
	    <Sequence>
	      <Leaf/>
	      <Fallback>
	        <Leaf/>
	        <Leaf/>
	      </Fallback>
	    </Sequence>
	  </BehaviorTree>
	</root>`)
	root, err := f.BuildTree(doc, behaviortree.NewBlackboard())
	require.NoError(t, err)

	seen := map[uint16]string{}
	root.ApplyRecursiveVisitor(func(n *behaviortree.Node, depth int) {
		prev, dup := seen[n.UID()]
		assert.Falsef(t, dup, "uid %d reused by %q and %q", n.UID(), prev, n.FullPath())
		seen[n.UID()] = n.FullPath()
	})

	assert.Equal(t, "Sequence", root.FullPath())
	assert.Equal(t, "Sequence/Leaf", root.Children()[0].FullPath())
	assert.Equal(t, "Sequence/Fallback", root.Children()[1].FullPath())
	assert.Equal(t, "Sequence/Fallback/Leaf", root.Children()[1].Children()[0].FullPath())
}

func Test_BuildTree_SubTree_Remapping(t *testing.T) {
	f := behaviortree.NewFactory()

	doc := []byte(`
	<root main_tree_to_execute="Main">
	  <BehaviorTree ID="Main">
	    <Sequence>
	      <SetBlackboard output_key="x" value="42"/>
	      <SubTree ID="Child" y="{x}"/>
	    </Sequence>
	  </BehaviorTree>
	  <BehaviorTree ID="Child">
	    <SetBlackboard output_key="captured" value="{y}"/>
	  </BehaviorTree>
	</root>`)

	root, err := f.BuildTree(doc, behaviortree.NewBlackboard())
	require.NoError(t, err)

	status := behaviortree.Running
	for status == behaviortree.Running {
		status, err = root.Tick(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, behaviortree.Success, status)

	// The imported Child tree's own SetBlackboard is the last action
	// ticked; its blackboard is the SubTree's fresh child scope, whose
	// remap routes its local "y" lookup to the parent's "x" (42).
	var captured *behaviortree.Node
	root.ApplyRecursiveVisitor(func(n *behaviortree.Node, depth int) {
		if n.Kind() == behaviortree.KindAction && n.FullPath() != "Sequence/SetBlackboard" {
			captured = n
		}
	})
	require.NotNil(t, captured)

	v, ok := captured.Blackboard().Get("captured")
	require.True(t, ok)
	assert.Equal(t, "42", v, "SetBlackboard reads its value port as a string")
}

func Test_BuildTree_Default_Main_Tree_Is_Lexicographically_First(t *testing.T) {
	f := behaviortree.NewFactory()
	registerStatic(t, f, "Leaf", behaviortree.Success)

	doc := []byte(`
	<root>
	  <BehaviorTree ID="Zeta">
	    <Leaf/>
	  </BehaviorTree>
	  <BehaviorTree ID="Alpha">
	    <Sequence>
	      <Leaf/>
	    </Sequence>
	  </BehaviorTree>
	</root>`)

	root, err := f.BuildTree(doc, behaviortree.NewBlackboard())
	require.NoError(t, err)
	assert.Equal(t, "Sequence", root.TypeName())
}

package behaviortree

import (
	"bytes"
	"encoding/xml"
	"io"
	"sort"
	"sync/atomic"
)

// elemInfo describes one top-level child element discovered while scanning
// a byte range: its name, its attributes, and the byte range of its body
// (the bytes strictly between its opening and closing tags), so the body
// can be rescanned independently for its own children.
type elemInfo struct {
	name  string
	attrs map[string]string
	body  []byte
}

// BuildTree parses doc as a BehaviorTree.CPP-style XML document and
// constructs the tree named by the <root main_tree_to_execute="..."/>
// attribute, or the lexicographically first declared <BehaviorTree> if the
// attribute is absent, against the receiver's registries. rootBB is used
// as the outermost Blackboard scope; pass NewBlackboard() for a fresh one.
func (f *Factory) BuildTree(doc []byte, rootBB *Blackboard) (*Node, error) {
	if err := f.validateNoUnknown(doc); err != nil {
		f.logger.Warn().Err(err).Msg("rejecting behavior tree document")
		return nil, err
	}

	rootBody, err := extractRootRange(doc)
	if err != nil {
		return nil, err
	}

	trees, err := parseTopLevelElements(rootBody)
	if err != nil {
		return nil, err
	}

	bodies := make(map[string][]byte, len(trees))
	var names []string
	for _, el := range trees {
		if el.name != "BehaviorTree" {
			continue
		}
		id := el.attrs["ID"]
		if id == "" {
			return nil, newBuildError(ErrSchema, "<BehaviorTree> missing required ID attribute")
		}
		bodies[id] = el.body
		names = append(names, id)
	}
	if len(names) == 0 {
		return nil, newBuildError(ErrSchema, "document declares no <BehaviorTree> elements")
	}

	mainID := rootAttr(doc, "main_tree_to_execute")
	if mainID == "" {
		sort.Strings(names)
		mainID = names[0]
	}
	mainBody, ok := bodies[mainID]
	if !ok {
		return nil, newBuildError(ErrSchema, "main_tree_to_execute %q is not a declared BehaviorTree", mainID)
	}

	b := &builder{factory: f, bodies: bodies}
	children, err := b.buildChildren(mainBody, rootBB, "")
	if err != nil {
		return nil, err
	}
	if len(children) != 1 {
		return nil, newBuildError(ErrSchema, "BehaviorTree %q must contain exactly one root child, found %d", mainID, len(children))
	}
	root := children[0]
	rewritePaths(root, root.typeName)
	return root, nil
}

// rewritePaths recomputes full_path under a new prefix for n and every
// descendant, used once on the built root: its paths were built under an
// empty parent path and so start with a slash, and the rewrite makes the
// returned root's own name the path root.
func rewritePaths(n *Node, prefix string) {
	n.proxy.SetFullPath(prefix)
	switch n.kind {
	case KindComposite:
		for _, c := range n.children {
			rewritePaths(c, prefix+"/"+c.typeName)
		}
	case KindDecorator:
		rewritePaths(n.inner, prefix+"/"+n.inner.typeName)
	}
}

var uidCounter uint32

func nextUID() uint16 {
	return uint16(atomic.AddUint32(&uidCounter, 1))
}

type builder struct {
	factory *Factory
	bodies  map[string][]byte // BehaviorTree ID -> body range, for SubTree expansion
}

// buildChildren scans body for top-level elements and builds a Node for
// each, in document order. path is the full_path of the parent composite
// or decorator; each child's own full_path is path + "/" + its type name.
func (b *builder) buildChildren(body []byte, bb *Blackboard, path string) ([]*Node, error) {
	elems, err := parseTopLevelElements(body)
	if err != nil {
		return nil, err
	}
	nodes := make([]*Node, 0, len(elems))
	for _, el := range elems {
		n, err := b.buildElement(el, bb, path)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (b *builder) buildElement(el elemInfo, bb *Blackboard, path string) (*Node, error) {
	childPath := path + "/" + el.name

	if el.name == "SubTree" {
		return b.buildSubTree(el, bb, childPath)
	}

	ports := portsFromAttrs(el.attrs)

	if newComposite, ok := b.factory.composites[el.name]; ok {
		// An empty composite (e.g. <Sequence/>) is accepted: Sequence
		// ticks to Success and Fallback to Failure on a zero-length
		// child loop, with no special-casing required.
		children, err := b.buildChildren(el.body, bb, childPath)
		if err != nil {
			return nil, err
		}
		return b.finishNode(KindComposite, el.name, childPath, bb, ports, newComposite(), children, nil, nil), nil
	}

	if newDecorator, ok := b.factory.decorators[el.name]; ok {
		children, err := b.buildChildren(el.body, bb, childPath)
		if err != nil {
			return nil, err
		}
		if len(children) != 1 {
			return nil, newBuildError(ErrSchema, "decorator %q at %q requires exactly one child, found %d", el.name, childPath, len(children))
		}
		return b.finishNode(KindDecorator, el.name, childPath, bb, ports, nil, nil, newDecorator(), children[0]), nil
	}

	if buildAction, ok := b.factory.lookupAction(el.name); ok {
		return b.finishNode(KindAction, el.name, childPath, bb, ports, nil, nil, nil, nil, buildAction()), nil
	}

	return nil, newBuildError(ErrRegistry, "unrecognized element %q at %q", el.name, childPath)
}

func (b *builder) buildSubTree(el elemInfo, bb *Blackboard, path string) (*Node, error) {
	id := el.attrs["ID"]
	if id == "" {
		return nil, newBuildError(ErrSchema, "<SubTree> at %q missing required ID attribute", path)
	}
	subBody, ok := b.bodies[id]
	if !ok {
		return nil, newBuildError(ErrSchema, "<SubTree ID=%q> at %q references an undeclared BehaviorTree", id, path)
	}

	childBB := NewChildBlackboard(bb)
	childBB.ExtendRemappings(remappingsFromAttrs(el.attrs))

	// The path stack continues through the SubTree boundary: the imported
	// tree's own root is named relative to this SubTree element's path,
	// not reset to empty, so full_path stays a single continuous chain
	// from the outermost tree down through every nested subtree.
	children, err := b.buildChildren(subBody, childBB, path)
	if err != nil {
		return nil, err
	}
	if len(children) != 1 {
		return nil, newBuildError(ErrSchema, "BehaviorTree %q imported at %q must contain exactly one root child, found %d", id, path, len(children))
	}

	return b.finishNode(KindDecorator, "SubTree", path, childBB, nil, nil, nil, subTreeImpl{}, children[0]), nil
}

func (b *builder) finishNode(
	kind Kind, typeName, fullPath string, bb *Blackboard, ports map[string]string,
	composite compositeImpl, children []*Node,
	decorator decoratorImpl, inner *Node,
	action ...Action,
) *Node {
	proxy := newDataProxy(bb, ports)
	proxy.SetUID(nextUID())
	proxy.SetFullPath(fullPath)

	n := &Node{kind: kind, proxy: proxy, typeName: typeName}
	switch kind {
	case KindComposite:
		n.composite, n.children = composite, children
	case KindDecorator:
		n.decorator, n.inner = decorator, inner
	case KindAction:
		n.action = action[0]
	}
	return n
}

func portsFromAttrs(attrs map[string]string) map[string]string {
	ports := make(map[string]string, len(attrs))
	for k, v := range attrs {
		switch k {
		case "ID", "name":
			continue
		}
		ports[k] = v
	}
	return ports
}

func remappingsFromAttrs(attrs map[string]string) map[string]string {
	remap := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if k == "ID" || k == "name" {
			continue
		}
		if ref, isRef := isPortRef(v); isRef {
			remap[k] = ref
		}
	}
	return remap
}

// extractRootRange finds the single top-level <root> element and returns
// the byte range of its body, mirroring the original's range-based
// streaming scan rather than materializing a full DOM.
func extractRootRange(doc []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, newBuildError(ErrXMLStructure, "document has no <root> element")
		}
		if err != nil {
			return nil, wrapBuildError(ErrXMLStructure, err, "scanning for <root>")
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "root" {
			if err := dec.Skip(); err != nil {
				return nil, wrapBuildError(ErrXMLStructure, err, "skipping unexpected top-level element %q", se.Name.Local)
			}
			continue
		}
		bodyStart := dec.InputOffset()
		if err := dec.Skip(); err != nil {
			return nil, wrapBuildError(ErrXMLStructure, err, "reading <root> body")
		}
		bodyEnd := findMatchingCloseOffset(doc, bodyStart, dec.InputOffset(), "root")
		return doc[bodyStart:bodyEnd], nil
	}
}

// findMatchingCloseOffset locates the byte offset of the "</name" that
// closes the element consumed by the Skip() call bounding [from, through):
// the decoder has already consumed past that close tag by the time Skip
// returns, so the offset is recovered by scanning backward from through.
// Bounding the search to this element's own consumed range (rather than
// scanning the whole document) is what keeps sibling elements sharing a
// name from being matched to the wrong closing tag.
func findMatchingCloseOffset(doc []byte, from, through int64, name string) int64 {
	closeTag := []byte("</" + name)
	idx := bytes.LastIndex(doc[from:through], closeTag)
	if idx < 0 {
		return through
	}
	return from + int64(idx)
}

func rootAttr(doc []byte, attr string) string {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "root" {
			for _, a := range se.Attr {
				if a.Name.Local == attr {
					return a.Value
				}
			}
			return ""
		}
	}
}

// parseTopLevelElements scans body (itself the inner byte range of some
// enclosing element) and returns one elemInfo per direct child element,
// with that child's own attributes and inner-body byte range. Elements
// are never allowed to be self-closing with content implied: an empty
// element yields an empty body, which the downstream decorator child-count
// check rejects and a composite accepts as zero children.
func parseTopLevelElements(body []byte) ([]elemInfo, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var elems []elemInfo
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapBuildError(ErrXMLStructure, err, "parsing element body")
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		attrs := make(map[string]string, len(se.Attr))
		for _, a := range se.Attr {
			attrs[a.Name.Local] = a.Value
		}

		// Skip consumes everything through this element's matching end
		// tag, so nested descendants never surface as tokens at this
		// loop's level: only direct children are ever seen here.
		innerStart := dec.InputOffset()
		if err := dec.Skip(); err != nil {
			return nil, wrapBuildError(ErrXMLStructure, err, "reading body of %q", se.Name.Local)
		}
		innerEnd := findMatchingCloseOffset(body, innerStart, dec.InputOffset(), se.Name.Local)

		elems = append(elems, elemInfo{
			name:  se.Name.Local,
			attrs: attrs,
			body:  body[innerStart:innerEnd],
		})
	}
	return elems, nil
}

// validateNoUnknown walks the document's elements and reports the first
// element name not present in any of the factory's registries, before
// BuildTree commits to constructing any nodes.
func (f *Factory) validateNoUnknown(doc []byte) error {
	rootBody, err := extractRootRange(doc)
	if err != nil {
		return err
	}
	elems, err := parseTopLevelElements(rootBody)
	if err != nil {
		return err
	}
	for _, el := range elems {
		if el.name != "BehaviorTree" {
			return newBuildError(ErrSchema, "unexpected top-level element %q, expected <BehaviorTree>", el.name)
		}
		if err := f.validateElementsKnown(el.body); err != nil {
			return err
		}
	}
	return nil
}

func (f *Factory) validateElementsKnown(body []byte) error {
	elems, err := parseTopLevelElements(body)
	if err != nil {
		return err
	}
	for _, el := range elems {
		switch el.name {
		case "SubTree":
			continue
		}
		_, isComposite := f.composites[el.name]
		_, isDecorator := f.decorators[el.name]
		_, isAction := f.lookupAction(el.name)
		if !isComposite && !isDecorator && !isAction {
			return newBuildError(ErrRegistry, "unrecognized element %q", el.name)
		}
		if err := f.validateElementsKnown(el.body); err != nil {
			return err
		}
	}
	return nil
}

// Copyright © 2024 The ELPS authors

package syntax

// Builder assembles trees by hand. Each leaf gets its own line so that
// spans are distinct and parents always cover their children. It is meant
// for hosts without a real parser and for tests.
type Builder struct {
	off  int
	line int
}

// Leaf returns a token node holding text.
func (b *Builder) Leaf(kind Kind, role Role, text string) *Node {
	b.line++
	n := &Node{
		Kind: kind,
		Role: role,
		Text: text,
		Span: Span{
			Start: Pos{Offset: b.off, Line: b.line, Col: 1},
			End:   Pos{Offset: b.off + len(text), Line: b.line, Col: 1 + len(text)},
		},
	}
	b.off += len(text) + 1
	return n
}

// Node returns an interior node spanning its children. Nil children are
// dropped.
func (b *Builder) Node(kind Kind, role Role, children ...*Node) *Node {
	n := &Node{Kind: kind, Role: role}
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	if len(n.Children) == 0 {
		b.line++
		p := Pos{Offset: b.off, Line: b.line, Col: 1}
		n.Span = Span{Start: p, End: p}
		b.off++
		return n
	}
	n.Span = Span{Start: n.Children[0].Span.Start, End: n.Children[0].Span.End}
	for _, c := range n.Children[1:] {
		if c.Span.Start.Offset < n.Span.Start.Offset {
			n.Span.Start = c.Span.Start
		}
		if c.Span.End.Offset > n.Span.End.Offset {
			n.Span.End = c.Span.End
		}
	}
	return n
}

// Ident is shorthand for an identifier leaf.
func (b *Builder) Ident(role Role, name string) *Node {
	return b.Leaf(KindIdentifier, role, name)
}

// Package traverse builds nested directory-structure documents from git
// working copies.
package traverse

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FileMarkerValue is the JSON value used for files whose content is not
// inlined.
const FileMarkerValue = "file"

// ReadErrorValue is the JSON placeholder recorded when a file's content
// could not be read.
const ReadErrorValue = "Error reading file"

// NodeKind discriminates the TreeNode variants.
type NodeKind int

const (
	// KindDirectory is a directory with named children
	KindDirectory NodeKind = iota
	// KindInlinedFile is a file whose content is carried in the node
	KindInlinedFile
	// KindFileMarker is a file represented only by the "file" sentinel
	KindFileMarker
	// KindReadError is a file whose content read failed
	KindReadError
)

// TreeNode is a tagged variant describing one entry of the traversal
// result: a directory of children, an inlined file, a plain file marker,
// or a read-error placeholder. The JSON form matches the service's wire
// format: directories are objects, inlined files are their content string,
// and the other two kinds are fixed sentinel strings.
type TreeNode struct {
	kind     NodeKind
	children map[string]*TreeNode
	content  string
}

// NewDirectory creates an empty directory node
func NewDirectory() *TreeNode {
	return &TreeNode{kind: KindDirectory, children: map[string]*TreeNode{}}
}

// NewInlinedFile creates a node carrying file content
func NewInlinedFile(content string) *TreeNode {
	return &TreeNode{kind: KindInlinedFile, content: content}
}

// NewFileMarker creates a plain file marker node
func NewFileMarker() *TreeNode {
	return &TreeNode{kind: KindFileMarker}
}

// NewReadError creates a read-error placeholder node
func NewReadError() *TreeNode {
	return &TreeNode{kind: KindReadError}
}

// Kind returns the node's variant tag
func (n *TreeNode) Kind() NodeKind {
	return n.kind
}

// Content returns the inlined content for KindInlinedFile nodes
func (n *TreeNode) Content() string {
	return n.content
}

// Child returns the named child of a directory node, or nil
func (n *TreeNode) Child(name string) *TreeNode {
	if n.kind != KindDirectory {
		return nil
	}
	return n.children[name]
}

// Len returns the number of children of a directory node
func (n *TreeNode) Len() int {
	return len(n.children)
}

// Names returns the sorted child names of a directory node
func (n *TreeNode) Names() []string {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Insert places a leaf node at the slash-separated relative path,
// synthesizing intermediate directory nodes as needed. Inserting through a
// non-directory node is an error; the tree listing of a git commit cannot
// produce that shape.
func (n *TreeNode) Insert(relPath string, leaf *TreeNode) error {
	if n.kind != KindDirectory {
		return fmt.Errorf("cannot insert into non-directory node")
	}

	parts := strings.Split(relPath, "/")
	current := n
	for _, part := range parts[:len(parts)-1] {
		next, ok := current.children[part]
		if !ok {
			next = NewDirectory()
			current.children[part] = next
		}
		if next.kind != KindDirectory {
			return fmt.Errorf("path %s crosses a non-directory entry %s", relPath, part)
		}
		current = next
	}

	current.children[parts[len(parts)-1]] = leaf
	return nil
}

// MarshalJSON emits the wire representation of the node
func (n *TreeNode) MarshalJSON() ([]byte, error) {
	switch n.kind {
	case KindDirectory:
		return json.Marshal(n.children)
	case KindInlinedFile:
		return json.Marshal(n.content)
	case KindFileMarker:
		return json.Marshal(FileMarkerValue)
	case KindReadError:
		return json.Marshal(ReadErrorValue)
	default:
		return nil, fmt.Errorf("unknown node kind %d", n.kind)
	}
}

// UnmarshalJSON parses the wire representation. String values equal to the
// sentinels decode to marker/error nodes; the format cannot distinguish a
// file whose literal content is one of the sentinel strings.
func (n *TreeNode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case FileMarkerValue:
			*n = *NewFileMarker()
		case ReadErrorValue:
			*n = *NewReadError()
		default:
			*n = *NewInlinedFile(s)
		}
		return nil
	}

	var children map[string]*TreeNode
	if err := json.Unmarshal(data, &children); err != nil {
		return fmt.Errorf("tree node must be a string or an object: %w", err)
	}
	if children == nil {
		children = map[string]*TreeNode{}
	}
	*n = TreeNode{kind: KindDirectory, children: children}
	return nil
}

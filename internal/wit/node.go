package wit

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Node is a parsed JSON response. Value holds the generic tree
// (map[string]any, []any, string, json.Number, bool or nil); path lookups
// use gjson syntax, e.g. "intents.0.name".
type Node struct {
	raw   []byte
	value any
}

// ParseNode parses a single JSON document.
func ParseNode(data []byte) (*Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty response body")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level JSON value")
	}

	raw := make([]byte, len(data))
	copy(raw, data)
	return &Node{raw: raw, value: value}, nil
}

func (n *Node) Raw() []byte {
	return n.raw
}

func (n *Node) Text() string {
	return string(n.raw)
}

func (n *Node) Value() any {
	return n.value
}

func (n *Node) Get(path string) gjson.Result {
	return gjson.GetBytes(n.raw, path)
}

func (n *Node) Exists(path string) bool {
	return n.Get(path).Exists()
}

func (n *Node) String(path string) string {
	return n.Get(path).String()
}

func (n *Node) Float(path string) float64 {
	return n.Get(path).Float()
}

func (n *Node) Bool(path string) bool {
	return n.Get(path).Bool()
}

func (n *Node) IsObject() bool {
	_, ok := n.value.(map[string]any)
	return ok
}

func (n *Node) IsArray() bool {
	_, ok := n.value.([]any)
	return ok
}

// Package policy interprets Policy Trees: recursive records mapping property
// names to the treatment the taming walker must give them.
package policy

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/blake3"

	domainerrors "github.com/drses/frozen-realms-shim/domain/errors"
)

// Kind tags the variant held by an Entry.
type Kind int

const (
	KindDeny                Kind = iota // Remove the property
	KindPermit                          // Keep a data property
	KindPermitAccessorAware             // Keep a data property, or freeze an accessor in place
	KindInheritPermit                   // Keep, and let delegators inherit this permission
	KindNested                          // Keep, and apply the nested record to the value
)

// Document spellings of the non-record entries.
const (
	TokenInheritPermit       = "*"
	TokenPermitAccessorAware = "maybeAccessor"
)

// String returns the document spelling of the kind.
func (k Kind) String() string {
	switch k {
	case KindDeny:
		return "deny"
	case KindPermit:
		return "permit"
	case KindPermitAccessorAware:
		return TokenPermitAccessorAware
	case KindInheritPermit:
		return TokenInheritPermit
	case KindNested:
		return "nested"
	default:
		return "unknown"
	}
}

// Entry is the policy for one property name.
type Entry struct {
	Node *Node
	Kind Kind
}

// Permits reports whether the entry keeps the property in some form.
func (e Entry) Permits() bool {
	return e.Kind != KindDeny
}

// Entry constructors.
var (
	Deny                = Entry{Kind: KindDeny}
	Permit              = Entry{Kind: KindPermit}
	PermitAccessorAware = Entry{Kind: KindPermitAccessorAware}
	InheritPermit       = Entry{Kind: KindInheritPermit}
)

// Nested returns an entry applying n to the property's value.
func Nested(n *Node) Entry {
	return Entry{Kind: KindNested, Node: n}
}

// Node is one record of the tree. Nodes are built once and then only read.
type Node struct {
	entries map[string]Entry
}

// NewNode returns an empty record.
func NewNode() *Node {
	return &Node{entries: make(map[string]Entry)}
}

// Set assigns the entry for name and returns the node for chaining.
func (n *Node) Set(name string, e Entry) *Node {
	n.entries[name] = e
	return n
}

// Lookup returns the entry for name.
func (n *Node) Lookup(name string) (Entry, bool) {
	if n == nil {
		return Entry{}, false
	}
	e, ok := n.entries[name]
	return e, ok
}

// Names returns the listed names in sorted order.
func (n *Node) Names() []string {
	if n == nil {
		return nil
	}
	names := make([]string, 0, len(n.entries))
	for name := range n.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of listed names.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.entries)
}

// Parse builds a tree from a decoded generic document (the output of a
// JSON, JSONC or YAML decoder). The root must be a record.
func Parse(raw any) (*Node, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &domainerrors.PolicyError{Err: fmt.Errorf("root must be a record, got %T", raw)}
	}
	return parseRecord(m, "")
}

func parseRecord(m map[string]any, path string) (*Node, error) {
	n := NewNode()
	for name, v := range m {
		at := join(path, name)
		if name == TokenInheritPermit {
			return nil, &domainerrors.PolicyError{
				Path: path,
				Err:  fmt.Errorf("a record cannot also be %q; inherit-permit and a nested record are exclusive", TokenInheritPermit),
			}
		}
		e, err := parseEntry(v, at)
		if err != nil {
			return nil, err
		}
		n.entries[name] = e
	}
	return n, nil
}

func parseEntry(v any, path string) (Entry, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return Permit, nil
		}
		return Deny, nil
	case string:
		switch x {
		case TokenInheritPermit:
			return InheritPermit, nil
		case TokenPermitAccessorAware:
			return PermitAccessorAware, nil
		}
		return Entry{}, &domainerrors.PolicyError{Path: path, Err: fmt.Errorf("unknown entry %q", x)}
	case map[string]any:
		child, err := parseRecord(x, path)
		if err != nil {
			return Entry{}, err
		}
		return Nested(child), nil
	default:
		return Entry{}, &domainerrors.PolicyError{Path: path, Err: fmt.Errorf("unsupported entry of type %T", v)}
	}
}

// Canonical converts the tree back into its generic document form.
func (n *Node) Canonical() map[string]any {
	out := make(map[string]any, n.Len())
	for name, e := range n.entries {
		switch e.Kind {
		case KindDeny:
			out[name] = false
		case KindPermit:
			out[name] = true
		case KindInheritPermit:
			out[name] = TokenInheritPermit
		case KindPermitAccessorAware:
			out[name] = TokenPermitAccessorAware
		case KindNested:
			out[name] = e.Node.Canonical()
		}
	}
	return out
}

// Digest returns the hex BLAKE3-256 of the tree's canonical JSON form.
// Equal trees have equal digests regardless of document key order.
func Digest(n *Node) string {
	data, err := json.Marshal(n.Canonical())
	if err != nil {
		// Canonical only holds strings, bools and maps.
		panic(fmt.Sprintf("policy: canonical form not encodable: %v", err))
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// JoinPath appends name to a dotted property path.
func JoinPath(path, name string) string {
	return join(path, name)
}

// SplitPath splits a dotted property path.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

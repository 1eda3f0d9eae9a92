package domain

// NodeDocument is the portable form of a set of nodes used by import/export
type NodeDocument struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
}

// NewNodeDocument creates an empty document
func NewNodeDocument() *NodeDocument {
	return &NodeDocument{
		Nodes: make([]Node, 0),
	}
}

// AddNode appends a node to the document
func (d *NodeDocument) AddNode(node Node) {
	d.Nodes = append(d.Nodes, node)
}

// Inputs converts the document into create inputs. Ids are dropped: the
// store assigns fresh ones on import.
func (d *NodeDocument) Inputs() []NodeInput {
	inputs := make([]NodeInput, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		inputs = append(inputs, NewNodeInput(n.Label, n.Attributes))
	}
	return inputs
}

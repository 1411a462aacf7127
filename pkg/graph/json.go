package graph

import (
	"encoding/json"
	"fmt"

	"github.com/cincinnati-project/graph-builder/pkg/release"
)

// jsonRelease is the wire shape of a single node: {version, payload, metadata}.
// Abstract nodes serialize with an empty payload and nil metadata.
type jsonRelease struct {
	Version  string            `json:"version"`
	Payload  string            `json:"payload,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type jsonGraph struct {
	Nodes []jsonRelease `json:"nodes"`
	Edges [][2]int      `json:"edges"`
}

// ToJSON renders g in the stable Cincinnati graph wire format: an
// object with "nodes" (one entry per release) and "edges" (array of
// [from_index, to_index] pairs into the nodes array).
func ToJSON(g *Graph) ([]byte, error) {
	out := jsonGraph{
		Nodes: make([]jsonRelease, 0, g.NodeCount()),
		Edges: g.Edges(),
	}

	for i := 0; i < g.NodeCount(); i++ {
		n := g.Node(i)
		if n == nil {
			return nil, fmt.Errorf("graph: cannot serialize with tombstoned node at index %d; call Compact first", i)
		}
		switch rel := n.(type) {
		case *release.ConcreteRelease:
			out.Nodes = append(out.Nodes, jsonRelease{
				Version:  rel.Version.String(),
				Payload:  rel.Payload,
				Metadata: rel.Metadata,
			})
		case *release.AbstractRelease:
			out.Nodes = append(out.Nodes, jsonRelease{
				Version: rel.Version.String(),
			})
		default:
			return nil, fmt.Errorf("graph: unknown release type %T", n)
		}
	}

	return json.Marshal(out)
}

// Package graph assembles a directed acyclic graph of release
// transitions from a set of Concrete releases, and renders it to the
// stable JSON wire format served over HTTP.
package graph

import (
	"fmt"
	"sort"

	"github.com/cincinnati-project/graph-builder/pkg/release"
)

// edgeKey identifies a directed edge by the version strings of its
// endpoints, used for edge deduplication.
type edgeKey struct {
	from string
	to   string
}

// Graph is a directed graph over Releases. Version is a primary key:
// at most one node exists per version.
type Graph struct {
	nodes     []release.Release
	byVersion map[string]int // version string -> index into nodes
	edges     map[edgeKey]struct{}
	edgeOrder []edgeKey // preserves first-insertion order for stable JSON
	weights   map[edgeKey]float64
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		byVersion: make(map[string]int),
		edges:     make(map[edgeKey]struct{}),
		weights:   make(map[edgeKey]float64),
	}
}

// ErrDuplicateVersion is returned when a Concrete release is inserted
// for a version that already has a Concrete node.
type ErrDuplicateVersion struct {
	Version string
}

func (e *ErrDuplicateVersion) Error() string {
	return fmt.Sprintf("graph: duplicate version %q", e.Version)
}

// FindByVersion returns the node index for v, or -1 if no node exists.
func (g *Graph) FindByVersion(v release.Version) int {
	idx, ok := g.byVersion[v.String()]
	if !ok {
		return -1
	}
	return idx
}

// Node returns the release stored at idx.
func (g *Graph) Node(idx int) release.Release {
	return g.nodes[idx]
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of distinct edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// AddConcrete inserts rel as a Concrete node. If a node for this
// version already exists and is Abstract, it is promoted to Concrete
// in place, keeping its existing edges. If a Concrete node for this
// version already exists, it fails with ErrDuplicateVersion.
func (g *Graph) AddConcrete(rel *release.ConcreteRelease) (int, error) {
	key := rel.Version.String()
	if idx, ok := g.byVersion[key]; ok {
		if _, isConcrete := g.nodes[idx].(*release.ConcreteRelease); isConcrete {
			return -1, &ErrDuplicateVersion{Version: key}
		}
		g.nodes[idx] = rel
		return idx, nil
	}

	idx := len(g.nodes)
	g.nodes = append(g.nodes, rel)
	g.byVersion[key] = idx
	return idx, nil
}

// addAbstractIfAbsent returns the index of the node for v, inserting
// an Abstract placeholder if none exists yet.
func (g *Graph) addAbstractIfAbsent(v release.Version) int {
	key := v.String()
	if idx, ok := g.byVersion[key]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, &release.AbstractRelease{Version: v})
	g.byVersion[key] = idx
	return idx
}

// AddAbstract inserts an Abstract placeholder for v if no node exists
// for that version yet, and returns its index either way. Unlike
// AddConcrete, this never fails: an existing Concrete node is left
// untouched and its index is returned.
func (g *Graph) AddAbstract(v release.Version) (int, error) {
	return g.addAbstractIfAbsent(v), nil
}

// AddTransition adds a directed edge from -> to. Re-adding an existing
// edge is a no-op, not an error. Self-edges are rejected.
func (g *Graph) AddTransition(from, to int) error {
	if from == to {
		return fmt.Errorf("graph: self-edge at node %d not allowed", from)
	}
	k := edgeKey{from: g.versionAt(from), to: g.versionAt(to)}
	if _, exists := g.edges[k]; exists {
		return nil
	}
	g.edges[k] = struct{}{}
	g.edgeOrder = append(g.edgeOrder, k)
	return nil
}

// RemoveTransition deletes the edge from -> to, if it exists. It is a
// no-op otherwise.
func (g *Graph) RemoveTransition(from, to int) {
	k := edgeKey{from: g.versionAt(from), to: g.versionAt(to)}
	if _, exists := g.edges[k]; !exists {
		return
	}
	delete(g.edges, k)
	delete(g.weights, k)
	for i, o := range g.edgeOrder {
		if o == k {
			g.edgeOrder = append(g.edgeOrder[:i], g.edgeOrder[i+1:]...)
			break
		}
	}
}

func (g *Graph) versionAt(idx int) string {
	return g.nodes[idx].GetVersion().String()
}

// SetEdgeWeight attaches a numerical weight ("wariness") to an
// existing edge. It is a no-op if the edge does not exist.
func (g *Graph) SetEdgeWeight(from, to int, weight float64) {
	k := edgeKey{from: g.versionAt(from), to: g.versionAt(to)}
	if _, exists := g.edges[k]; !exists {
		return
	}
	g.weights[k] = weight
}

// EdgeWeight returns the weight attached to an edge, defaulting to 0
// when none was set.
func (g *Graph) EdgeWeight(from, to int) float64 {
	k := edgeKey{from: g.versionAt(from), to: g.versionAt(to)}
	return g.weights[k]
}

// Edges returns the graph's edges as (fromIndex, toIndex) pairs, in
// the order they were first added.
func (g *Graph) Edges() [][2]int {
	out := make([][2]int, 0, len(g.edgeOrder))
	for _, k := range g.edgeOrder {
		out = append(out, [2]int{g.byVersion[k.from], g.byVersion[k.to]})
	}
	return out
}

// RemoveNode deletes the node at idx along with any edges touching it,
// rewiring each inbound neighbor directly to each outbound neighbor so
// transitive reachability through the removed node is preserved.
func (g *Graph) RemoveNode(idx int) {
	version := g.versionAt(idx)

	var inbound, outbound []edgeKey
	for _, k := range g.edgeOrder {
		if k.to == version {
			inbound = append(inbound, k)
		}
		if k.from == version {
			outbound = append(outbound, k)
		}
	}

	for _, in := range inbound {
		for _, out := range outbound {
			fromIdx := g.byVersion[in.from]
			toIdx := g.byVersion[out.to]
			if fromIdx != toIdx {
				_ = g.AddTransition(fromIdx, toIdx)
			}
		}
	}

	newOrder := g.edgeOrder[:0:0]
	for _, k := range g.edgeOrder {
		if k.from == version || k.to == version {
			delete(g.edges, k)
			delete(g.weights, k)
			continue
		}
		newOrder = append(newOrder, k)
	}
	g.edgeOrder = newOrder

	delete(g.byVersion, version)
	g.nodes[idx] = nil
}

// DeleteNode removes the node at idx along with any edges touching it,
// without rewiring its neighbors. Unlike RemoveNode, this severs any
// path that ran through the node.
func (g *Graph) DeleteNode(idx int) {
	version := g.versionAt(idx)

	newOrder := g.edgeOrder[:0:0]
	for _, k := range g.edgeOrder {
		if k.from == version || k.to == version {
			delete(g.edges, k)
			delete(g.weights, k)
			continue
		}
		newOrder = append(newOrder, k)
	}
	g.edgeOrder = newOrder

	delete(g.byVersion, version)
	g.nodes[idx] = nil
}

// Compact removes tombstoned (nil) nodes left behind by RemoveNode,
// renumbering indices and rewriting edges accordingly.
func (g *Graph) Compact() {
	newNodes := make([]release.Release, 0, len(g.nodes))
	remap := make(map[int]int, len(g.nodes))
	for oldIdx, n := range g.nodes {
		if n == nil {
			continue
		}
		remap[oldIdx] = len(newNodes)
		newNodes = append(newNodes, n)
	}

	newByVersion := make(map[string]int, len(newNodes))
	for version, oldIdx := range g.byVersion {
		if newIdx, ok := remap[oldIdx]; ok {
			newByVersion[version] = newIdx
		}
	}

	g.nodes = newNodes
	g.byVersion = newByVersion
}

// Versions returns every node's version string, sorted, for tests and
// for property assertions that should be insensitive to node order.
func (g *Graph) Versions() []string {
	out := make([]string, 0, len(g.nodes))
	for _, n := range g.nodes {
		if n != nil {
			out = append(out, n.GetVersion().String())
		}
	}
	sort.Strings(out)
	return out
}

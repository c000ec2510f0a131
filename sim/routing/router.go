// Package routing resolves next hops between hosts over weighted topologies.
package routing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/QoPMLProject/AQoPA-sub000/sim/model"
)

// Router answers shortest-path queries per topology. Link weights are link
// qualities; lower is shorter. Shortest-path trees are computed lazily, once
// per (topology, sender) pair, and reused for every receiver.
type Router struct {
	graphs map[string]*simple.WeightedDirectedGraph
	ids    map[string]int64
	names  map[int64]string
	trees  map[string]map[string]path.Shortest
}

// NewRouter creates a Router with no topologies.
func NewRouter() *Router {
	return &Router{
		graphs: make(map[string]*simple.WeightedDirectedGraph),
		ids:    make(map[string]int64),
		names:  make(map[int64]string),
		trees:  make(map[string]map[string]path.Shortest),
	}
}

func (r *Router) node(g *simple.WeightedDirectedGraph, host string) graph.Node {
	id, ok := r.ids[host]
	if !ok {
		id = int64(len(r.ids))
		r.ids[host] = id
		r.names[id] = host
	}
	if n := g.Node(id); n != nil {
		return n
	}
	n := simple.Node(id)
	g.AddNode(n)
	return n
}

// AddLink adds a directed link from -> to in topology. Adding a link
// invalidates the memoized trees of that topology.
func (r *Router) AddLink(topology, from, to string, quality float64) error {
	if quality < 0 || math.IsNaN(quality) {
		return fmt.Errorf("topology %s: link %s -> %s has invalid quality %v", topology, from, to, quality)
	}
	if from == to {
		return fmt.Errorf("topology %s: self link on %s", topology, from)
	}
	g, ok := r.graphs[topology]
	if !ok {
		g = simple.NewWeightedDirectedGraph(0, math.Inf(1))
		r.graphs[topology] = g
	}
	u, v := r.node(g, from), r.node(g, to)
	g.SetWeightedEdge(g.NewWeightedEdge(u, v, quality))
	delete(r.trees, topology)
	return nil
}

// HasTopology reports whether any link was added to topology.
func (r *Router) HasTopology(topology string) bool {
	_, ok := r.graphs[topology]
	return ok
}

func (r *Router) tree(topology, sender string) (path.Shortest, error) {
	g, ok := r.graphs[topology]
	if !ok {
		return path.Shortest{}, model.NewRuntimeError("topology %s is undefined", topology)
	}
	id, ok := r.ids[sender]
	if !ok || g.Node(id) == nil {
		return path.Shortest{}, model.NewRuntimeError("host %s is not part of topology %s", sender, topology)
	}
	bySender, ok := r.trees[topology]
	if !ok {
		bySender = make(map[string]path.Shortest)
		r.trees[topology] = bySender
	}
	if t, ok := bySender[sender]; ok {
		return t, nil
	}
	t := path.DijkstraFrom(g.Node(id), g)
	bySender[sender] = t
	return t, nil
}

// Path returns the cheapest host sequence from sender to receiver, both ends
// included.
func (r *Router) Path(topology, sender, receiver string) ([]string, error) {
	if sender == receiver {
		return []string{sender}, nil
	}
	t, err := r.tree(topology, sender)
	if err != nil {
		return nil, err
	}
	id, ok := r.ids[receiver]
	if !ok {
		return nil, model.NewRuntimeError("no path from %s to %s in topology %s", sender, receiver, topology)
	}
	nodes, weight := t.To(id)
	if len(nodes) == 0 || math.IsInf(weight, 1) {
		return nil, model.NewRuntimeError("no path from %s to %s in topology %s", sender, receiver, topology)
	}
	hops := make([]string, len(nodes))
	for i, n := range nodes {
		hops[i] = r.names[n.ID()]
	}
	return hops, nil
}

// NextHop returns the host right after sender on the cheapest path to receiver.
func (r *Router) NextHop(topology, sender, receiver string) (string, error) {
	hops, err := r.Path(topology, sender, receiver)
	if err != nil {
		return "", err
	}
	if len(hops) == 1 {
		return hops[0], nil
	}
	return hops[1], nil
}

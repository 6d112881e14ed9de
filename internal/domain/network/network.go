// Package network builds the association graph of persons linked by matches
// and finds connected groups of co-travelers.
package network

import (
	"context"
	"fmt"
	"sort"

	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
)

// Node is a person in the graph.
type Node struct {
	ID      string `json:"id" yaml:"id"`
	Degree  int    `json:"degree" yaml:"degree"`
	Matches int    `json:"matches" yaml:"matches"`
}

// Edge links two persons; counts are per result bucket.
type Edge struct {
	A        string `json:"a" yaml:"a"`
	B        string `json:"b" yaml:"b"`
	Entry    int    `json:"entry" yaml:"entry"`
	Exit     int    `json:"exit" yaml:"exit"`
	Complete int    `json:"complete" yaml:"complete"`
	Weight   int    `json:"weight" yaml:"weight"`
}

// Group is a connected component with at least two members.
type Group struct {
	Members []string `json:"members" yaml:"members"`
}

// Network is the exported association graph.
type Network struct {
	Nodes  []Node  `json:"nodes" yaml:"nodes"`
	Edges  []Edge  `json:"edges" yaml:"edges"`
	Groups []Group `json:"groups" yaml:"groups"`
}

type pair struct{ a, b string }

func newPair(a, b string) pair {
	if b < a {
		a, b = b, a
	}
	return pair{a, b}
}

// Build constructs the graph of rs. Edge weights count matches of the pair
// across all buckets.
func Build(ctx context.Context, rs model.ResultSet) (Network, error) {
	g := core.NewGraph()
	edges := make(map[pair]*Edge)
	matches := make(map[string]int)

	for _, c := range model.Categories {
		for _, m := range rs.Matches(c) {
			a, b := m.Pair()
			if a == b {
				continue
			}
			matches[a]++
			matches[b]++

			p := newPair(a, b)
			e, ok := edges[p]
			if !ok {
				if _, err := g.AddEdge(p.a, p.b, 0); err != nil {
					return Network{}, fmt.Errorf("add edge %s-%s: %w", p.a, p.b, err)
				}
				e = &Edge{A: p.a, B: p.b}
				edges[p] = e
			}
			switch c {
			case model.CategoryEntry:
				e.Entry++
			case model.CategoryExit:
				e.Exit++
			case model.CategoryComplete:
				e.Complete++
			}
			e.Weight++
		}
	}

	ids := g.Vertices()
	sort.Strings(ids)

	out := Network{
		Nodes:  make([]Node, 0, len(ids)),
		Edges:  make([]Edge, 0, len(edges)),
		Groups: []Group{},
	}
	for _, id := range ids {
		_, _, deg, err := g.Degree(id)
		if err != nil {
			return Network{}, fmt.Errorf("degree of %s: %w", id, err)
		}
		out.Nodes = append(out.Nodes, Node{ID: id, Degree: deg, Matches: matches[id]})
	}
	sort.SliceStable(out.Nodes, func(i, j int) bool {
		return out.Nodes[i].Matches > out.Nodes[j].Matches
	})

	for _, e := range edges {
		out.Edges = append(out.Edges, *e)
	}
	sort.Slice(out.Edges, func(i, j int) bool {
		x, y := out.Edges[i], out.Edges[j]
		if x.Weight != y.Weight {
			return x.Weight > y.Weight
		}
		if x.A != y.A {
			return x.A < y.A
		}
		return x.B < y.B
	})

	groups, err := components(ctx, g, ids)
	if err != nil {
		return Network{}, err
	}
	out.Groups = groups
	return out, nil
}

// components walks g from every unvisited vertex in ids order.
func components(ctx context.Context, g *core.Graph, ids []string) ([]Group, error) {
	visited := make(map[string]bool, len(ids))
	groups := []Group{}
	for _, id := range ids {
		if visited[id] {
			continue
		}
		res, err := bfs.BFS(g, id, bfs.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("walk from %s: %w", id, err)
		}
		members := make([]string, 0, len(res.Order))
		for _, v := range res.Order {
			visited[v] = true
			members = append(members, v)
		}
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		groups = append(groups, Group{Members: members})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Members) > len(groups[j].Members)
	})
	return groups, nil
}

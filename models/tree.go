package models

import "strings"

// Node is one element of a parent/child hierarchy (locations, categories).
type Node struct {
	ID       string
	ParentID *string
	Name     string
}

func index(nodes []Node) map[string]Node {
	m := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		m[n.ID] = n
	}
	return m
}

// CompleteName builds "Root / Child / Leaf" for id. A cycle stops the walk.
func CompleteName(nodes []Node, id string) string {
	byID := index(nodes)
	var parts []string
	seen := map[string]bool{}
	for cur, ok := byID[id]; ok && !seen[cur.ID]; {
		seen[cur.ID] = true
		parts = append(parts, cur.Name)
		if cur.ParentID == nil {
			break
		}
		cur, ok = byID[*cur.ParentID]
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " / ")
}

// CreatesCycle reports whether setting id's parent to parentID would make id
// its own ancestor.
func CreatesCycle(nodes []Node, id, parentID string) bool {
	byID := index(nodes)
	seen := map[string]bool{}
	for cur := parentID; cur != ""; {
		if cur == id || seen[cur] {
			return true
		}
		seen[cur] = true
		n, ok := byID[cur]
		if !ok || n.ParentID == nil {
			return false
		}
		cur = *n.ParentID
	}
	return false
}

// RollupCounts adds every node's direct count to all of its ancestors.
func RollupCounts(nodes []Node, direct map[string]int64) map[string]int64 {
	byID := index(nodes)
	total := make(map[string]int64, len(nodes))
	for _, n := range nodes {
		c := direct[n.ID]
		if c == 0 {
			continue
		}
		seen := map[string]bool{}
		for cur, ok := n, true; ok && !seen[cur.ID]; {
			seen[cur.ID] = true
			total[cur.ID] += c
			if cur.ParentID == nil {
				break
			}
			cur, ok = byID[*cur.ParentID]
		}
	}
	return total
}

package core

import "fmt"

// Group is an ordered collection of instances in the instance listing.
// Groups themselves are ordered too, via GroupManager.
type Group struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	InstanceIDs []int64 `json:"instanceIds"`
}

// GroupManager tracks the ordered list of groups and the ordered list of
// instances within each. It does not own persistence; callers wire Save/Load
// the same way InstanceManager does for instance.json.
type GroupManager struct {
	order  []string
	groups map[string]*Group
}

// NewGroupManager creates an empty group manager.
func NewGroupManager() *GroupManager {
	return &GroupManager{groups: make(map[string]*Group)}
}

// Groups returns groups in display order.
func (gm *GroupManager) Groups() []*Group {
	result := make([]*Group, 0, len(gm.order))
	for _, id := range gm.order {
		result = append(result, gm.groups[id])
	}
	return result
}

// EnsureGroup returns the group with the given id, creating it (appended to
// the end of the group order) if it doesn't exist.
func (gm *GroupManager) EnsureGroup(id, name string) *Group {
	if g, ok := gm.groups[id]; ok {
		return g
	}
	g := &Group{ID: id, Name: name}
	gm.groups[id] = g
	gm.order = append(gm.order, id)
	return g
}

// MoveGroup relocates the group currently at index i to index j, shifting
// the groups between them. Per spec.md §8: moving group i to position j
// (i<j) yields [0..i) ∪ [i+1..=j] ∪ {i} ∪ (j..n); the symmetric case holds
// for i>j. A sequence of valid moves preserves set membership.
func (gm *GroupManager) MoveGroup(i, j int) error {
	n := len(gm.order)
	if i < 0 || i >= n || j < 0 || j >= n {
		return fmt.Errorf("move group: index out of range (i=%d j=%d n=%d)", i, j, n)
	}
	if i == j {
		return nil
	}
	moved := gm.order[i]
	if i < j {
		copy(gm.order[i:j], gm.order[i+1:j+1])
		gm.order[j] = moved
	} else {
		copy(gm.order[j+1:i+1], gm.order[j:i])
		gm.order[j] = moved
	}
	return nil
}

// InsertBefore moves instanceID to just before targetID within its group's
// ordering. If targetID is empty the instance is appended to the end.
func (g *Group) InsertBefore(instanceID, targetID int64) error {
	g.remove(instanceID)
	if targetID == 0 {
		g.InstanceIDs = append(g.InstanceIDs, instanceID)
		return nil
	}
	idx := g.indexOf(targetID)
	if idx < 0 {
		return fmt.Errorf("insert before: target instance %d not in group %s", targetID, g.ID)
	}
	g.InstanceIDs = append(g.InstanceIDs[:idx], append([]int64{instanceID}, g.InstanceIDs[idx:]...)...)
	return nil
}

// MoveToBeginning moves instanceID to the start of the group.
func (g *Group) MoveToBeginning(instanceID int64) {
	g.remove(instanceID)
	g.InstanceIDs = append([]int64{instanceID}, g.InstanceIDs...)
}

// MoveToEnd moves instanceID to the end of the group.
func (g *Group) MoveToEnd(instanceID int64) {
	g.remove(instanceID)
	g.InstanceIDs = append(g.InstanceIDs, instanceID)
}

func (g *Group) indexOf(id int64) int {
	for i, v := range g.InstanceIDs {
		if v == id {
			return i
		}
	}
	return -1
}

func (g *Group) remove(id int64) {
	idx := g.indexOf(id)
	if idx < 0 {
		return
	}
	g.InstanceIDs = append(g.InstanceIDs[:idx], g.InstanceIDs[idx+1:]...)
}

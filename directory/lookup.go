package directory

import "github.com/taskdesk/taskdesk/client"

// Lookups are pure reads over the current state; none of them touch the
// network.

// WorkspaceByNumber returns a copy of the listed workspace with the given
// number.
func (d *Directory) WorkspaceByNumber(number client.Number) (*client.Workspace, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w := d.workspaceByNumberLocked(number)
	if w == nil {
		return nil, false
	}
	cp := w.Clone()
	return &cp, true
}

// WorkspaceIDByNumber returns the id of the workspace with the given number.
func (d *Directory) WorkspaceIDByNumber(number client.Number) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w := d.workspaceByNumberLocked(number); w != nil {
		return w.ID, true
	}
	return "", false
}

// SpaceByNumber resolves a space by workspace and space number. The loaded
// detail's spaces win when the detail is for that workspace; otherwise the
// list-level spaces are used.
func (d *Directory) SpaceByNumber(workspaceNumber, spaceNumber client.Number) (*client.Space, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.spaceByNumberLocked(workspaceNumber, spaceNumber)
	if !ok {
		return nil, false
	}
	return &s, true
}

// SpaceIDByNumber returns the id of the space SpaceByNumber would return.
func (d *Directory) SpaceIDByNumber(workspaceNumber, spaceNumber client.Number) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.spaceByNumberLocked(workspaceNumber, spaceNumber); ok {
		return s.ID, true
	}
	return "", false
}

func (d *Directory) workspaceByNumberLocked(number client.Number) *client.Workspace {
	if number == "" {
		return nil
	}
	for i := range d.workspaces {
		if d.workspaces[i].Number == number {
			return &d.workspaces[i]
		}
	}
	return nil
}

func (d *Directory) spaceByNumberLocked(workspaceNumber, spaceNumber client.Number) (client.Space, bool) {
	if spaceNumber == "" {
		return client.Space{}, false
	}
	if d.detail != nil && workspaceNumber != "" && d.detail.Number == workspaceNumber {
		return d.detail.SpaceByNumber(spaceNumber)
	}
	if w := d.workspaceByNumberLocked(workspaceNumber); w != nil {
		return w.SpaceByNumber(spaceNumber)
	}
	return client.Space{}, false
}

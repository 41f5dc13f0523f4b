package directory

// transition is what a selection change requires of the detail slot.
type transition struct {
	// invalidate drops the loaded detail and outdates in-flight detail fetches.
	invalidate bool
	// fetchID is the workspace whose detail must be fetched, or "".
	fetchID string
}

// selectionTransition maps a change of the selected workspace id to its
// effects on the detail. Rebinding the selection to a refreshed copy of the
// same workspace is not a change.
func selectionTransition(prevID, nextID string) transition {
	if prevID == nextID {
		return transition{}
	}
	return transition{invalidate: true, fetchID: nextID}
}

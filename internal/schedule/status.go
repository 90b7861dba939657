package schedule

import (
	"fmt"
	"strings"

	"contentboard/internal/model"
)

const (
	FieldStatus           = "status"
	FieldIndividualStatus = "individualStatus"
)

// FieldUpdate is a single-path write to a task document.
type FieldUpdate struct {
	Path  string
	Value interface{}
}

// EffectiveStatus returns the status viewerID sees. Group tasks and anonymous
// viewers see the shared status; otherwise the viewer's own entry, Planned
// when unset.
func EffectiveStatus(t *model.Task, viewerID string) model.Status {
	if t.IsGroupTask || viewerID == "" {
		return t.Status
	}
	if st, ok := t.IndividualStatus[viewerID]; ok && st != "" {
		return st
	}
	return model.StatusPlanned
}

// SetStatus applies status to t for actingUserID and returns the one field
// path the store must write. For individual tasks only the acting user's
// entry changes.
func SetStatus(t *model.Task, status model.Status, actingUserID string) (FieldUpdate, error) {
	if !status.Valid() {
		return FieldUpdate{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if t.IsGroupTask {
		t.Status = status
		return FieldUpdate{Path: FieldStatus, Value: string(status)}, nil
	}

	if actingUserID == "" {
		return FieldUpdate{}, fmt.Errorf("%w: individual task needs a user", ErrNotResponsible)
	}
	if strings.ContainsAny(actingUserID, ".$") {
		return FieldUpdate{}, fmt.Errorf("%w: user id %q is not a valid field name", ErrInvalidTask, actingUserID)
	}

	if t.IndividualStatus == nil {
		t.IndividualStatus = make(map[string]model.Status)
	}
	t.IndividualStatus[actingUserID] = status
	return FieldUpdate{Path: FieldIndividualStatus + "." + actingUserID, Value: string(status)}, nil
}

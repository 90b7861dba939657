package schedule

import (
	"errors"
	"testing"

	"contentboard/internal/model"
)

func TestEffectiveStatus(t *testing.T) {
	group := &model.Task{IsGroupTask: true, Status: model.StatusInProgress,
		IndividualStatus: map[string]model.Status{"u1": model.StatusPublished}}
	if got := EffectiveStatus(group, "u1"); got != model.StatusInProgress {
		t.Fatalf("group task must use shared status, got %q", got)
	}

	individual := &model.Task{Status: model.StatusReview,
		IndividualStatus: map[string]model.Status{"u1": model.StatusPublished}}
	if got := EffectiveStatus(individual, "u1"); got != model.StatusPublished {
		t.Fatalf("expected own entry, got %q", got)
	}
	if got := EffectiveStatus(individual, "u2"); got != model.StatusPlanned {
		t.Fatalf("missing entry must default to Planned, got %q", got)
	}
	if got := EffectiveStatus(individual, ""); got != model.StatusReview {
		t.Fatalf("anonymous viewer sees shared status, got %q", got)
	}
}

func TestSetStatusIndividualRoundTrip(t *testing.T) {
	task := &model.Task{
		ResponsibleIDs:   []string{"u1", "u2"},
		IndividualStatus: map[string]model.Status{"u2": model.StatusInProgress},
	}

	update, err := SetStatus(task, model.StatusPublished, "u1")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if update.Path != "individualStatus.u1" || update.Value != "Publicado" {
		t.Fatalf("unexpected update %+v", update)
	}
	if got := EffectiveStatus(task, "u1"); got != model.StatusPublished {
		t.Fatalf("round trip failed, got %q", got)
	}
	if task.IndividualStatus["u2"] != model.StatusInProgress {
		t.Fatalf("other user's entry changed: %v", task.IndividualStatus)
	}
	if task.Status != "" {
		t.Fatalf("shared status must not change for individual tasks")
	}
}

func TestSetStatusGroup(t *testing.T) {
	task := &model.Task{IsGroupTask: true, Status: model.StatusPlanned}
	update, err := SetStatus(task, model.StatusReview, "u1")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if update.Path != "status" || task.Status != model.StatusReview {
		t.Fatalf("unexpected group update %+v, status %q", update, task.Status)
	}
	if len(task.IndividualStatus) != 0 {
		t.Fatalf("group update must not touch individual entries")
	}
}

func TestSetStatusNilMap(t *testing.T) {
	task := &model.Task{}
	if _, err := SetStatus(task, model.StatusInProgress, "u1"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if task.IndividualStatus["u1"] != model.StatusInProgress {
		t.Fatalf("entry not written")
	}
}

func TestSetStatusErrors(t *testing.T) {
	task := &model.Task{}
	if _, err := SetStatus(task, model.Status("Done"), "u1"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := SetStatus(task, model.StatusPublished, ""); !errors.Is(err, ErrNotResponsible) {
		t.Fatalf("expected ErrNotResponsible, got %v", err)
	}
	if _, err := SetStatus(task, model.StatusPublished, "a.b"); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("expected ErrInvalidTask, got %v", err)
	}
}

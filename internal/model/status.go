package model

import (
	"fmt"
	"strings"
)

// Status is the publication state of a task, stored with its Portuguese label.
type Status string

const (
	StatusPlanned    Status = "Planejado"
	StatusInProgress Status = "Em andamento"
	StatusPublished  Status = "Publicado"
	StatusReview     Status = "Revisão"
)

var statusAliases = map[string]Status{
	"planejado":    StatusPlanned,
	"planned":      StatusPlanned,
	"em andamento": StatusInProgress,
	"in progress":  StatusInProgress,
	"in_progress":  StatusInProgress,
	"inprogress":   StatusInProgress,
	"publicado":    StatusPublished,
	"published":    StatusPublished,
	"revisão":      StatusReview,
	"revisao":      StatusReview,
	"review":       StatusReview,
}

// ParseStatus accepts the stored labels and their English names, case-insensitively.
func ParseStatus(s string) (Status, error) {
	if st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusPublished, StatusReview:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

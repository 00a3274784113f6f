package models

import (
	"errors"
	"strings"
)

type VisitStatus string

const (
	VisitStatusDone      VisitStatus = "done"
	VisitStatusPending   VisitStatus = "pending"
	VisitStatusCancelled VisitStatus = "cancelled"
)

// accepted spellings, including the back office's own status words
var visitStatuses = map[string]VisitStatus{
	"done":        VisitStatusDone,
	"pending":     VisitStatusPending,
	"cancelled":   VisitStatusCancelled,
	"canceled":    VisitStatusCancelled,
	"egina":       VisitStatusDone,
	"zain":        VisitStatusPending,
	"deuseztatua": VisitStatusCancelled,
}

func ParseVisitStatus(s string) (VisitStatus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return VisitStatusPending, nil
	}
	status, ok := visitStatuses[s]
	if !ok {
		return "", errors.New("invalid visit status")
	}
	return status, nil
}

func (s VisitStatus) IsValid() bool {
	switch s {
	case VisitStatusDone, VisitStatusPending, VisitStatusCancelled:
		return true
	}
	return false
}

// convert text input (json, form values) to enum type
func (s *VisitStatus) UnmarshalText(text []byte) error {
	status, err := ParseVisitStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}

type SyncRunStatus string

const (
	SyncRunStatusRunning SyncRunStatus = "running"
	SyncRunStatusSuccess SyncRunStatus = "success"
	SyncRunStatusPartial SyncRunStatus = "partial"
	SyncRunStatusFailed  SyncRunStatus = "failed"
)

type ExportMode string

const (
	ExportModeFull   ExportMode = "full"
	ExportModeDelta  ExportMode = "delta"
	ExportModePeriod ExportMode = "period"
)

func ParseExportMode(s string) (ExportMode, bool) {
	switch ExportMode(strings.ToLower(strings.TrimSpace(s))) {
	case ExportModeFull:
		return ExportModeFull, true
	case ExportModeDelta:
		return ExportModeDelta, true
	case ExportModePeriod:
		return ExportModePeriod, true
	}
	return "", false
}

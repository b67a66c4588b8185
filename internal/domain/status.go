package domain

import "strings"

// RecordStatus is the canonical status of a remote transactional record.
// The upstream API reports statuses as free-form names in either Indonesian
// or English; ParseRecordStatus folds all known spellings into one variant.
type RecordStatus int

const (
	StatusUnknown RecordStatus = iota
	StatusOpen
	StatusPartial
	StatusClosed
	StatusFinished
	StatusVoid
	StatusDraft
)

var statusNames = map[RecordStatus]string{
	StatusUnknown:  "Unknown",
	StatusOpen:     "Open",
	StatusPartial:  "Partial",
	StatusClosed:   "Closed",
	StatusFinished: "Finished",
	StatusVoid:     "Void",
	StatusDraft:    "Draft",
}

var statusAliases = map[string]RecordStatus{
	"open":              StatusOpen,
	"terbuka":           StatusOpen,
	"partial":           StatusPartial,
	"sebagian":          StatusPartial,
	"diproses sebagian": StatusPartial,
	"closed":            StatusClosed,
	"ditutup":           StatusClosed,
	"finished":          StatusFinished,
	"selesai":           StatusFinished,
	"done":              StatusFinished,
	"void":              StatusVoid,
	"cancel":            StatusVoid,
	"cancelled":         StatusVoid,
	"batal":             StatusVoid,
	"dibatalkan":        StatusVoid,
	"draft":             StatusDraft,
	"konsep":            StatusDraft,
}

func (s RecordStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// ParseRecordStatus maps a raw status name to its canonical variant.
// Unrecognized names become StatusUnknown, never StatusOpen.
func ParseRecordStatus(name string) RecordStatus {
	if status, ok := statusAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return status
	}
	return StatusUnknown
}

// Excluded reports whether records with this status must not contribute to
// outstanding-quantity aggregation.
func (s RecordStatus) Excluded() bool {
	switch s {
	case StatusClosed, StatusFinished, StatusVoid, StatusDraft:
		return true
	}
	return false
}

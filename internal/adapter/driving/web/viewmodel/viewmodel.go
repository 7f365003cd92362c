// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

import "strconv"

// RosterViewModel holds everything the roster page renders.
type RosterViewModel struct {
	Query     string
	Position  string
	Positions []string
	Rows      []ParticipantRowViewModel
	Total     int
}

// ParticipantRowViewModel is one table row. ProgramEventsHTML is already
// sanitized; the link fields are raw and must go through templ.URL.
type ParticipantRowViewModel struct {
	SerialNumber      string
	Name              string
	ProgramEventsHTML string
	IssueDate         string
	Position          string
	PhotoLink         string
	CertificateURL    string
}

// Empty reports whether no participant matched the filter.
func (v RosterViewModel) Empty() bool {
	return len(v.Rows) == 0
}

// Title includes the match count when a filter is active.
func (v RosterViewModel) Title() string {
	if v.Query == "" && v.Position == "" {
		return "Participants"
	}
	return "Participants (" + strconv.Itoa(len(v.Rows)) + " matching)"
}

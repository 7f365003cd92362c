package web

import (
	"slices"

	vm "github.com/ericfisherdev/certregistry/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/certregistry/internal/application"
	"github.com/ericfisherdev/certregistry/internal/domain/model"
)

// toRosterViewModel applies filter to all and builds the page model. The
// position dropdown lists every distinct non-empty position in all, so it
// does not shrink when a filter is active.
func toRosterViewModel(all []model.Participant, filter application.ListFilter) vm.RosterViewModel {
	rows := make([]vm.ParticipantRowViewModel, 0, len(all))
	for _, p := range all {
		if filter.Matches(p) {
			rows = append(rows, toParticipantRowViewModel(p))
		}
	}

	return vm.RosterViewModel{
		Query:     filter.Query,
		Position:  filter.Position,
		Positions: distinctPositions(all),
		Rows:      rows,
		Total:     len(all),
	}
}

func toParticipantRowViewModel(p model.Participant) vm.ParticipantRowViewModel {
	return vm.ParticipantRowViewModel{
		SerialNumber:      p.SerialNumber,
		Name:              p.Name,
		ProgramEventsHTML: RenderMarkdown(p.ProgramEvents),
		IssueDate:         p.IssueDate,
		Position:          p.Position,
		PhotoLink:         p.ProgramPhotoLink,
		CertificateURL:    p.CertificateURL,
	}
}

func distinctPositions(all []model.Participant) []string {
	positions := make([]string, 0)
	for _, p := range all {
		if p.Position != "" && !slices.Contains(positions, p.Position) {
			positions = append(positions, p.Position)
		}
	}
	slices.Sort(positions)
	return positions
}

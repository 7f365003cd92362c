package model

import (
	"errors"
	"fmt"
	"strings"
)

// Column indexes of the participant sheet layout. Row 1 of the sheet is a
// header row; data rows follow in this column order.
const (
	ColSerialNumber = iota
	ColName
	ColProgramEvents
	ColIssueDate
	ColPosition
	ColProgramPhotoLink
	ColCertificateURL

	// ColumnCount is the number of cells in a participant row (A through G).
	ColumnCount
)

// ErrHeaderMismatch indicates a header row that does not name the participant
// columns in order.
var ErrHeaderMismatch = errors.New("header row does not match participant columns")

// Header is the header row above the participant data rows.
// "Program\ Events" carries a literal backslash, matching the existing sheet.
var Header = []string{
	"Serial Number",
	"Name",
	`Program\ Events`,
	"Issue Date",
	"Position",
	"Program Photo Link",
	"Certificate URL",
}

// CheckHeader verifies that row names the participant columns in order.
// Surrounding whitespace in a cell is ignored; cells past the last column are
// not inspected.
func CheckHeader(row []string) error {
	for i, want := range Header {
		got := ""
		if i < len(row) {
			got = strings.TrimSpace(row[i])
		}
		if got != want {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrHeaderMismatch, i+1, got, want)
		}
	}
	return nil
}

// Participant is one certificate recipient, identified by its serial number.
type Participant struct {
	SerialNumber     string
	Name             string
	ProgramEvents    string
	IssueDate        string
	Position         string
	ProgramPhotoLink string
	CertificateURL   string
}

// HasSerial reports whether the participant carries a non-blank serial number.
func (p Participant) HasSerial() bool {
	return strings.TrimSpace(p.SerialNumber) != ""
}

// Row returns the participant as a sheet row in column order.
func (p Participant) Row() []string {
	return []string{
		p.SerialNumber,
		p.Name,
		p.ProgramEvents,
		p.IssueDate,
		p.Position,
		p.ProgramPhotoLink,
		p.CertificateURL,
	}
}

// ParticipantFromRow maps a sheet row to a Participant. Missing trailing
// cells read as empty strings and cells past the last column are ignored.
func ParticipantFromRow(row []string) Participant {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	return Participant{
		SerialNumber:     cell(ColSerialNumber),
		Name:             cell(ColName),
		ProgramEvents:    cell(ColProgramEvents),
		IssueDate:        cell(ColIssueDate),
		Position:         cell(ColPosition),
		ProgramPhotoLink: cell(ColProgramPhotoLink),
		CertificateURL:   cell(ColCertificateURL),
	}
}

package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/certregistry/internal/domain/model"
	"github.com/ericfisherdev/certregistry/internal/domain/port/driven"
	"github.com/ericfisherdev/certregistry/internal/metrics"
)

// Sentinel errors returned by RegistryService.
var (
	// ErrSerialRequired indicates a create payload without a serial number.
	ErrSerialRequired = errors.New("serialNumber is required")

	// ErrUnauthorized indicates the supplied admin password did not match.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrParticipantNotFound indicates no row carries the requested serial number.
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrDuplicateSerial indicates a participant with the serial number already exists.
	ErrDuplicateSerial = errors.New("participant already exists")
)

// ListFilter narrows List results. The zero value matches every participant.
type ListFilter struct {
	// Query matches name or serial number, case-insensitive substring.
	Query string
	// Position matches the position field exactly.
	Position string
}

// Matches reports whether p passes the filter.
func (f ListFilter) Matches(p model.Participant) bool {
	if f.Position != "" && p.Position != f.Position {
		return false
	}
	if f.Query == "" {
		return true
	}

	q := strings.ToLower(f.Query)
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.SerialNumber), q)
}

// RegistryService implements participant list/create/update/delete on top of
// a RowStore. Every call resolves serial numbers to row positions afresh;
// nothing about the store contents is remembered between calls.
//
// Mutations hold writeMu for their whole scan-then-write sequence so two
// writers in this process cannot both pass the same uniqueness or lookup
// check. Writers in other processes are not coordinated.
type RegistryService struct {
	store         driven.RowStore
	adminPassword string
	metrics       *metrics.Metrics

	writeMu sync.Mutex
}

// NewRegistryService creates a RegistryService. m may be nil.
func NewRegistryService(store driven.RowStore, adminPassword string, m *metrics.Metrics) *RegistryService {
	return &RegistryService{
		store:         store,
		adminPassword: adminPassword,
		metrics:       m,
	}
}

// VerifyPassword reports whether candidate equals the configured admin password.
func (s *RegistryService) VerifyPassword(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.adminPassword)) == 1
}

// List returns every participant matching filter, in store order.
func (s *RegistryService) List(ctx context.Context, filter ListFilter) ([]model.Participant, error) {
	rows, err := s.store.ReadAll(ctx)
	if err != nil {
		s.metrics.ObserveOperation("list", metrics.OutcomeError)
		return nil, fmt.Errorf("list participants: %w", err)
	}

	participants := make([]model.Participant, 0, len(rows))
	for _, row := range rows {
		p := model.ParticipantFromRow(row)
		if filter.Matches(p) {
			participants = append(participants, p)
		}
	}

	s.metrics.ObserveOperation("list", metrics.OutcomeOK)
	return participants, nil
}

// Create appends p as a new row. It returns ErrSerialRequired when p has no
// serial number and ErrDuplicateSerial when the serial number is taken.
func (s *RegistryService) Create(ctx context.Context, p model.Participant) error {
	err := s.create(ctx, p)
	s.metrics.ObserveOperation("create", outcomeOf(err))
	return err
}

func (s *RegistryService) create(ctx context.Context, p model.Participant) error {
	if !p.HasSerial() {
		return ErrSerialRequired
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	serials, err := s.store.ReadColumn(ctx, model.ColSerialNumber)
	if err != nil {
		return fmt.Errorf("create participant %s: %w", p.SerialNumber, err)
	}

	if slices.Contains(serials, p.SerialNumber) {
		return fmt.Errorf("create participant %s: %w", p.SerialNumber, ErrDuplicateSerial)
	}

	if err := s.store.AppendRow(ctx, p.Row()); err != nil {
		return fmt.Errorf("create participant %s: %w", p.SerialNumber, err)
	}

	return nil
}

// Update overwrites the row holding serial with the fields of p. The serial
// number column is always rewritten with serial, whatever p.SerialNumber holds.
func (s *RegistryService) Update(ctx context.Context, serial string, p model.Participant, password string) error {
	err := s.update(ctx, serial, p, password)
	s.metrics.ObserveOperation("update", outcomeOf(err))
	return err
}

func (s *RegistryService) update(ctx context.Context, serial string, p model.Participant, password string) error {
	if !s.VerifyPassword(password) {
		return ErrUnauthorized
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var (
		serials []string
		extent  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		serials, err = s.store.ReadColumn(gctx, model.ColSerialNumber)
		return err
	})
	g.Go(func() error {
		var err error
		extent, err = s.store.RowCount(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("update participant %s: %w", serial, err)
	}

	pos := slices.Index(serials, serial)
	if pos < 0 {
		return fmt.Errorf("update participant %s: %w", serial, ErrParticipantNotFound)
	}

	// The column read and the extent can disagree when the sheet changed
	// between the two calls. Grow the grid at its end until pos is
	// addressable; rows are never inserted in front of existing data, so the
	// matched row stays at pos.
	if pos >= extent {
		if err := s.store.AppendBlankRows(ctx, pos-extent+1); err != nil {
			return fmt.Errorf("update participant %s: grow sheet: %w", serial, err)
		}
	}

	p.SerialNumber = serial
	if err := s.store.UpdateRow(ctx, pos, p.Row()); err != nil {
		return fmt.Errorf("update participant %s: %w", serial, err)
	}

	return nil
}

// Delete removes the row holding serial. Rows after it move up by one.
func (s *RegistryService) Delete(ctx context.Context, serial, password string) error {
	err := s.delete(ctx, serial, password)
	s.metrics.ObserveOperation("delete", outcomeOf(err))
	return err
}

func (s *RegistryService) delete(ctx context.Context, serial, password string) error {
	if !s.VerifyPassword(password) {
		return ErrUnauthorized
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	serials, err := s.store.ReadColumn(ctx, model.ColSerialNumber)
	if err != nil {
		return fmt.Errorf("delete participant %s: %w", serial, err)
	}

	pos := slices.Index(serials, serial)
	if pos < 0 {
		return fmt.Errorf("delete participant %s: %w", serial, ErrParticipantNotFound)
	}

	if err := s.store.DeleteRow(ctx, pos); err != nil {
		return fmt.Errorf("delete participant %s: %w", serial, err)
	}

	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrSerialRequired):
		return metrics.OutcomeInvalid
	case errors.Is(err, ErrUnauthorized):
		return metrics.OutcomeUnauthorized
	case errors.Is(err, ErrParticipantNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrDuplicateSerial):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}

package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/certregistry/internal/domain/model"
	"github.com/ericfisherdev/certregistry/internal/domain/port/driven"
	"github.com/ericfisherdev/certregistry/internal/metrics"
)

const testPassword = "s3cret"

// --- Fake RowStore ---

// fakeRowStore is an in-memory RowStore. blankTail counts empty grid rows
// below the data which, like a real sheet, ReadAll and ReadColumn do not
// return. extentDelta shifts the value reported by RowCount to simulate a
// stale view of the sheet size.
type fakeRowStore struct {
	mu          sync.Mutex
	rows        [][]string
	blankTail   int
	extentDelta int
	err         error
	mutations   int
	inserted    []int
	appended    []int
}

var _ driven.RowStore = (*fakeRowStore)(nil)

func (f *fakeRowStore) ReadColumn(_ context.Context, col int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, 0, len(f.rows))
	for _, row := range f.rows {
		if col < len(row) {
			out = append(out, row[col])
		} else {
			out = append(out, "")
		}
	}
	return out, nil
}

func (f *fakeRowStore) ReadAll(_ context.Context) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]string, len(f.rows))
	for i, row := range f.rows {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

func (f *fakeRowStore) AppendRow(_ context.Context, row []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations++
	f.rows = append(f.rows, append([]string(nil), row...))
	return nil
}

func (f *fakeRowStore) UpdateRow(_ context.Context, pos int, row []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pos < 0 || pos >= len(f.rows)+f.blankTail {
		return driven.ErrPositionOutOfRange
	}
	f.mutations++
	for len(f.rows) <= pos {
		f.rows = append(f.rows, make([]string, model.ColumnCount))
		f.blankTail--
	}
	f.rows[pos] = append([]string(nil), row...)
	return nil
}

func (f *fakeRowStore) DeleteRow(_ context.Context, pos int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pos < 0 || pos >= len(f.rows) {
		return driven.ErrPositionOutOfRange
	}
	f.mutations++
	f.rows = append(f.rows[:pos], f.rows[pos+1:]...)
	return nil
}

func (f *fakeRowStore) InsertBlankRow(_ context.Context, pos int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations++
	f.inserted = append(f.inserted, pos)
	f.rows = append(f.rows[:pos], append([][]string{make([]string, model.ColumnCount)}, f.rows[pos:]...)...)
	return nil
}

func (f *fakeRowStore) AppendBlankRows(_ context.Context, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations++
	f.appended = append(f.appended, n)
	f.blankTail += n
	return nil
}

func (f *fakeRowStore) RowCount(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return len(f.rows) + f.blankTail + f.extentDelta, nil
}

// --- Helpers ---

func alice() model.Participant {
	return model.Participant{
		SerialNumber:     "S1",
		Name:             "Alice",
		ProgramEvents:    "Hackathon",
		IssueDate:        "2025-03-01",
		Position:         "Winner",
		ProgramPhotoLink: "https://example.com/photo.jpg",
		CertificateURL:   "https://example.com/cert.pdf",
	}
}

func newTestService(store *fakeRowStore) *RegistryService {
	return NewRegistryService(store, testPassword, nil)
}

// --- Tests ---

func TestRegistryService_VerifyPassword(t *testing.T) {
	svc := newTestService(&fakeRowStore{})

	assert.True(t, svc.VerifyPassword(testPassword))
	assert.False(t, svc.VerifyPassword("wrong"))
	assert.False(t, svc.VerifyPassword(""))
	assert.False(t, svc.VerifyPassword(testPassword+" "))
}

func TestRegistryService_CreateThenList(t *testing.T) {
	store := &fakeRowStore{}
	svc := newTestService(store)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, alice()))

	got, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, alice(), got[0])
}

func TestRegistryService_Create_MissingSerial(t *testing.T) {
	store := &fakeRowStore{}
	svc := newTestService(store)

	for _, serial := range []string{"", "  "} {
		p := alice()
		p.SerialNumber = serial
		err := svc.Create(context.Background(), p)
		assert.ErrorIs(t, err, ErrSerialRequired)
	}
	assert.Zero(t, store.mutations)
}

func TestRegistryService_Create_Duplicate(t *testing.T) {
	store := &fakeRowStore{rows: [][]string{alice().Row()}}
	svc := newTestService(store)

	dup := alice()
	dup.Name = "Mallory"
	err := svc.Create(context.Background(), dup)

	assert.ErrorIs(t, err, ErrDuplicateSerial)
	assert.Zero(t, store.mutations)
	assert.Equal(t, "Alice", store.rows[0][model.ColName])
}

func TestRegistryService_Create_StoreError(t *testing.T) {
	storeErr := errors.New("sheets unavailable")
	svc := newTestService(&fakeRowStore{err: storeErr})

	err := svc.Create(context.Background(), alice())

	assert.ErrorIs(t, err, storeErr)
}

func TestRegistryService_List_DefaultsMissingCells(t *testing.T) {
	store := &fakeRowStore{rows: [][]string{{"S9"}, {"S10", "Bob"}}}
	svc := newTestService(store)

	got, err := svc.List(context.Background(), ListFilter{})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.Participant{SerialNumber: "S9"}, got[0])
	assert.Equal(t, model.Participant{SerialNumber: "S10", Name: "Bob"}, got[1])
}

func TestRegistryService_List_Empty(t *testing.T) {
	got, err := newTestService(&fakeRowStore{}).List(context.Background(), ListFilter{})

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRegistryService_List_StoreError(t *testing.T) {
	_, err := newTestService(&fakeRowStore{err: errors.New("boom")}).List(context.Background(), ListFilter{})
	assert.Error(t, err)
}

func TestRegistryService_List_Filter(t *testing.T) {
	store := &fakeRowStore{rows: [][]string{
		{"IEEE-001", "Alice Smith", "", "", "Winner"},
		{"IEEE-002", "Bob Jones", "", "", "Participant"},
		{"XYZ-003", "Carol", "", "", "Winner"},
	}}
	svc := newTestService(store)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{name: "zero filter", filter: ListFilter{}, want: []string{"IEEE-001", "IEEE-002", "XYZ-003"}},
		{name: "query by name case-insensitive", filter: ListFilter{Query: "aLiCe"}, want: []string{"IEEE-001"}},
		{name: "query by serial", filter: ListFilter{Query: "ieee"}, want: []string{"IEEE-001", "IEEE-002"}},
		{name: "position exact", filter: ListFilter{Position: "Winner"}, want: []string{"IEEE-001", "XYZ-003"}},
		{name: "position is case-sensitive", filter: ListFilter{Position: "winner"}, want: []string{}},
		{name: "query and position", filter: ListFilter{Query: "ieee", Position: "Winner"}, want: []string{"IEEE-001"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(ctx, tt.filter)
			require.NoError(t, err)

			serials := make([]string, 0, len(got))
			for _, p := range got {
				serials = append(serials, p.SerialNumber)
			}
			assert.Equal(t, tt.want, serials)
		})
	}
}

func TestRegistryService_Update(t *testing.T) {
	bob := model.Participant{SerialNumber: "S2", Name: "Bob"}
	store := &fakeRowStore{rows: [][]string{alice().Row(), bob.Row()}}
	svc := newTestService(store)
	ctx := context.Background()

	changed := alice()
	changed.SerialNumber = "HIJACK"
	changed.Name = "Alice B."
	changed.Position = ""

	require.NoError(t, svc.Update(ctx, "S1", changed, testPassword))

	got, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "S1", got[0].SerialNumber, "serial number must never change")
	assert.Equal(t, "Alice B.", got[0].Name)
	assert.Equal(t, "", got[0].Position)
	assert.Equal(t, bob, got[1], "other rows must be untouched")
	assert.Empty(t, store.inserted)
	assert.Empty(t, store.appended)
}

func TestRegistryService_Update_FirstMatchWins(t *testing.T) {
	store := &fakeRowStore{rows: [][]string{{"S1", "first"}, {"S1", "second"}}}
	svc := newTestService(store)

	require.NoError(t, svc.Update(context.Background(), "S1", model.Participant{Name: "updated"}, testPassword))

	assert.Equal(t, "updated", store.rows[0][model.ColName])
	assert.Equal(t, "second", store.rows[1][model.ColName])
}

func TestRegistryService_Update_Unauthorized(t *testing.T) {
	store := &fakeRowStore{rows: [][]string{alice().Row()}}
	svc := newTestService(store)

	err := svc.Update(context.Background(), "S1", model.Participant{Name: "x"}, "wrong")

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, store.mutations)
	assert.Equal(t, alice().Row(), store.rows[0])
}

func TestRegistryService_Update_NotFound(t *testing.T) {
	store := &fakeRowStore{rows: [][]string{alice().Row()}}
	svc := newTestService(store)

	err := svc.Update(context.Background(), "S404", model.Participant{Name: "x"}, testPassword)

	assert.ErrorIs(t, err, ErrParticipantNotFound)
	assert.Zero(t, store.mutations)
}

func TestRegistryService_Update_ExactMatchOnly(t *testing.T) {
	store := &fakeRowStore{rows: [][]string{alice().Row()}}
	svc := newTestService(store)

	err := svc.Update(context.Background(), "s1", model.Participant{}, testPassword)

	assert.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestRegistryService_Update_StaleExtentKeepsSerialUnique(t *testing.T) {
	// RowCount reports one row fewer than the key column returned.
	store := &fakeRowStore{rows: [][]string{{"S0"}, alice().Row()}, extentDelta: -1}
	svc := newTestService(store)
	ctx := context.Background()

	require.NoError(t, svc.Update(ctx, "S1", model.Participant{Name: "Alice B."}, testPassword))

	assert.Empty(t, store.inserted, "no row may be inserted in front of existing data")
	assert.Equal(t, []int{1}, store.appended)

	list, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "S0", list[0].SerialNumber)

	var matches []model.Participant
	for _, p := range list {
		if p.SerialNumber == "S1" {
			matches = append(matches, p)
		}
	}
	require.Len(t, matches, 1)
	assert.Equal(t, "Alice B.", matches[0].Name)

	// Later mutations still reach the single S1 row.
	require.NoError(t, svc.Delete(ctx, "S1", testPassword))
	list, err = svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "S0", list[0].SerialNumber)
}

func TestRegistryService_Update_ExtentFarBehindGrowsToPosition(t *testing.T) {
	dana := model.Participant{SerialNumber: "S3", Name: "D."}
	store := &fakeRowStore{rows: [][]string{{"S0"}, {"S1"}, {"S2"}, dana.Row()}, extentDelta: -3}
	svc := newTestService(store)

	require.NoError(t, svc.Update(context.Background(), "S3", model.Participant{Name: "Dana"}, testPassword))

	assert.Equal(t, []int{3}, store.appended)
	assert.Empty(t, store.inserted)
	require.Len(t, store.rows, 4)
	assert.Equal(t, []string{"S0", "S1", "S2", "S3"}, []string{
		store.rows[0][0], store.rows[1][0], store.rows[2][0], store.rows[3][0],
	})
	assert.Equal(t, "Dana", store.rows[3][model.ColName])
}

func TestRegistryService_Update_StoreError(t *testing.T) {
	storeErr := errors.New("sheets unavailable")
	svc := newTestService(&fakeRowStore{err: storeErr})

	err := svc.Update(context.Background(), "S1", model.Participant{}, testPassword)

	assert.ErrorIs(t, err, storeErr)
}

func TestRegistryService_Delete(t *testing.T) {
	bob := model.Participant{SerialNumber: "S2", Name: "Bob"}
	carol := model.Participant{SerialNumber: "S3", Name: "Carol"}
	store := &fakeRowStore{rows: [][]string{bob.Row(), alice().Row(), carol.Row()}}
	svc := newTestService(store)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, "S1", testPassword))

	got, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []model.Participant{bob, carol}, got)
	assert.Equal(t, 1, store.mutations)
}

func TestRegistryService_Delete_Unauthorized(t *testing.T) {
	store := &fakeRowStore{rows: [][]string{alice().Row()}}
	svc := newTestService(store)

	err := svc.Delete(context.Background(), "S1", "nope")

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Len(t, store.rows, 1)
	assert.Zero(t, store.mutations)
}

func TestRegistryService_Delete_NotFound(t *testing.T) {
	store := &fakeRowStore{rows: [][]string{alice().Row()}}
	svc := newTestService(store)

	err := svc.Delete(context.Background(), "S2", testPassword)

	assert.ErrorIs(t, err, ErrParticipantNotFound)
	assert.Len(t, store.rows, 1)
}

func TestRegistryService_Scenario(t *testing.T) {
	svc := newTestService(&fakeRowStore{})
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, model.Participant{SerialNumber: "S1", Name: "Alice"}))

	got, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "S1", got[0].SerialNumber)
	assert.Equal(t, "Alice", got[0].Name)

	assert.ErrorIs(t, svc.Create(ctx, model.Participant{SerialNumber: "S1"}), ErrDuplicateSerial)

	require.NoError(t, svc.Update(ctx, "S1", model.Participant{Name: "Alice B."}, testPassword))
	got, err = svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alice B.", got[0].Name)
	assert.Equal(t, "S1", got[0].SerialNumber)

	require.NoError(t, svc.Delete(ctx, "S1", testPassword))
	got, err = svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRegistryService_ConcurrentCreateSameSerial(t *testing.T) {
	store := &fakeRowStore{}
	svc := newTestService(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Create(ctx, model.Participant{SerialNumber: "RACE"})
		}(i)
	}
	wg.Wait()

	var created int
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateSerial)
	}
	assert.Equal(t, 1, created)
	assert.Len(t, store.rows, 1)
}

func TestRegistryService_RecordsOperationOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := NewRegistryService(&fakeRowStore{}, testPassword, m)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, alice()))
	_ = svc.Create(ctx, alice())
	_ = svc.Delete(ctx, "S1", "wrong")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("create", metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("create", metrics.OutcomeConflict)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("delete", metrics.OutcomeUnauthorized)))
}

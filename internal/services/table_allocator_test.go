package services

import (
	"testing"

	"resto_order_backend/internal/models"
	"resto_order_backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTableRepo struct {
	tables map[int64]*models.Table
}

func (f *fakeTableRepo) GetTableByID(tableID int64) (*models.Table, error) {
	table, ok := f.tables[tableID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return table, nil
}

func (f *fakeTableRepo) ListAvailableForCapacity(_ repositories.SQLExecutor, minCapacity int) ([]models.Table, error) {
	var out []models.Table
	for _, table := range f.tables {
		if table.IsAvailable && table.Capacity >= minCapacity {
			out = append(out, *table)
		}
	}
	return out, nil
}

func (f *fakeTableRepo) MarkOccupied(_ repositories.SQLExecutor, tableID int64) (bool, error) {
	table, ok := f.tables[tableID]
	if !ok || !table.IsAvailable {
		return false, nil
	}
	table.IsAvailable = false
	return true, nil
}

func (f *fakeTableRepo) Release(_ repositories.SQLExecutor, tableID int64) error {
	if table, ok := f.tables[tableID]; ok {
		table.IsAvailable = true
	}
	return nil
}

func newTableFixture() *fakeTableRepo {
	return &fakeTableRepo{tables: map[int64]*models.Table{
		1: {ID: 1, Name: "T1", Capacity: 2, IsAvailable: true},
		2: {ID: 2, Name: "T2", Capacity: 4, IsAvailable: true},
		3: {ID: 3, Name: "T3", Capacity: 6, IsAvailable: false},
	}}
}

func TestAllocateRespectsCapacity(t *testing.T) {
	repo := newTableFixture()
	allocator := &tableAllocator{tableRepo: repo, pick: func(n int) int { return 0 }}

	table, err := allocator.Allocate(nil, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), table.ID)
	assert.False(t, table.IsAvailable)
	assert.False(t, repo.tables[2].IsAvailable)
}

func TestAllocateSkipsOccupiedTables(t *testing.T) {
	repo := newTableFixture()
	allocator := &tableAllocator{tableRepo: repo, pick: func(n int) int { return 0 }}

	_, err := allocator.Allocate(nil, 5)
	assert.ErrorIs(t, err, ErrNoTableAvailable)
}

func TestAllocateNoCandidates(t *testing.T) {
	repo := newTableFixture()
	allocator := &tableAllocator{tableRepo: repo, pick: func(n int) int { return 0 }}

	_, err := allocator.Allocate(nil, 100)
	assert.ErrorIs(t, err, ErrNoTableAvailable)
}

func TestAllocateRetriesAfterLostRace(t *testing.T) {
	repo := newTableFixture()
	// First occupy attempt loses the race, the loop must move on to
	// another candidate instead of failing.
	lost := false
	raceRepo := &racingTableRepo{fakeTableRepo: repo, loseFirst: &lost}
	allocator := &tableAllocator{tableRepo: raceRepo, pick: func(n int) int { return 0 }}

	table, err := allocator.Allocate(nil, 1)
	require.NoError(t, err)
	assert.True(t, lost)
	assert.NotNil(t, table)
}

func TestAllocateExhaustsCandidatesThenConflicts(t *testing.T) {
	repo := &fakeTableRepo{tables: map[int64]*models.Table{
		1: {ID: 1, Name: "T1", Capacity: 2, IsAvailable: true},
	}}
	allocator := &tableAllocator{tableRepo: &alwaysLosingTableRepo{repo}, pick: func(n int) int { return 0 }}

	_, err := allocator.Allocate(nil, 1)
	assert.ErrorIs(t, err, ErrNoTableAvailable)
}

func TestReleaseIsIdempotent(t *testing.T) {
	repo := newTableFixture()
	allocator := NewTableAllocator(repo)

	require.NoError(t, allocator.Release(nil, 3))
	assert.True(t, repo.tables[3].IsAvailable)
	require.NoError(t, allocator.Release(nil, 3))
	assert.True(t, repo.tables[3].IsAvailable)
}

// racingTableRepo makes the first MarkOccupied call fail as if another
// transaction claimed the table in between.
type racingTableRepo struct {
	*fakeTableRepo
	loseFirst *bool
}

func (r *racingTableRepo) MarkOccupied(executor repositories.SQLExecutor, tableID int64) (bool, error) {
	if !*r.loseFirst {
		*r.loseFirst = true
		return false, nil
	}
	return r.fakeTableRepo.MarkOccupied(executor, tableID)
}

// alwaysLosingTableRepo never lets an occupy attempt win.
type alwaysLosingTableRepo struct {
	*fakeTableRepo
}

func (r *alwaysLosingTableRepo) MarkOccupied(repositories.SQLExecutor, int64) (bool, error) {
	return false, nil
}

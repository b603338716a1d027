package services

import (
	"errors"
	"math/rand"

	"resto_order_backend/internal/models"
	"resto_order_backend/internal/repositories"
)

var (
	ErrNoTableAvailable = errors.New("no table available for the requested party size")
)

// TableAllocator assigns free dining tables to dine-in orders and releases
// them on payment.
type TableAllocator interface {
	// Allocate picks a random free table seating at least minCapacity and
	// marks it occupied. Must be called inside the caller's transaction.
	Allocate(executor repositories.SQLExecutor, minCapacity int) (*models.Table, error)
	Release(executor repositories.SQLExecutor, tableID int64) error
}

type tableAllocator struct {
	tableRepo repositories.TableRepository
	pick      func(n int) int
}

// NewTableAllocator creates a new instance of TableAllocator.
func NewTableAllocator(tr repositories.TableRepository) TableAllocator {
	return &tableAllocator{tableRepo: tr, pick: rand.Intn}
}

func (a *tableAllocator) Allocate(executor repositories.SQLExecutor, minCapacity int) (*models.Table, error) {
	candidates, err := a.tableRepo.ListAvailableForCapacity(executor, minCapacity)
	if err != nil {
		return nil, err
	}

	// Candidates are locked by the listing query, but the occupy update is
	// still guarded so a retry loop stays correct if locking semantics change.
	for len(candidates) > 0 {
		idx := a.pick(len(candidates))
		table := candidates[idx]

		occupied, err := a.tableRepo.MarkOccupied(executor, table.ID)
		if err != nil {
			return nil, err
		}
		if occupied {
			table.IsAvailable = false
			return &table, nil
		}
		candidates = append(candidates[:idx], candidates[idx+1:]...)
	}
	return nil, ErrNoTableAvailable
}

func (a *tableAllocator) Release(executor repositories.SQLExecutor, tableID int64) error {
	return a.tableRepo.Release(executor, tableID)
}

// Package restaurant implements the in-memory table store: a fixed set of
// independently lockable tables holding food orders.
package restaurant

import (
	"errors"
	"sync"

	"tableflow/pkg/order"
)

// ErrNoTable indicates the requested table id is outside the restaurant.
var ErrNoTable = errors.New("no such table")

// Handle is a shared reference to one table. Every method takes the table's
// lock for the duration of a single table operation and releases it before
// returning, so a lock is never held across response serialization or I/O.
type Handle struct {
	mu sync.Mutex
	t  *Table
}

// AddOrders places one order per item id, in the given order, under a single
// lock hold.
func (h *Handle) AddOrders(itemIDs []uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range itemIDs {
		h.t.AddOrder(id)
	}
}

// Order returns the order for an item, if present.
func (h *Handle) Order(itemID uint32) (order.Order, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.t.Order(itemID)
}

// Orders returns all current orders for the table.
func (h *Handle) Orders() []order.Order {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.t.Orders()
}

// RemoveOrder removes the order for an item and returns it, reporting
// whether it was present.
func (h *Handle) RemoveOrder(itemID uint32) (order.Order, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.t.RemoveOrder(itemID)
}

// Restaurant owns the fixed collection of tables. The slice is read-only
// after New, so the Restaurant itself may be shared freely across
// connections; contention only occurs at the per-table locks.
type Restaurant struct {
	tables []*Handle
}

// New creates a restaurant with numberOfTables tables, ids 0 through
// numberOfTables-1.
func New(numberOfTables uint32) *Restaurant {
	tables := make([]*Handle, numberOfTables)
	for i := range tables {
		tables[i] = &Handle{t: NewTable(uint32(i))}
	}
	return &Restaurant{tables: tables}
}

// Table returns a handle to the table with the given id, or ErrNoTable if
// the id is out of range. A bad id coming off the wire must never be able
// to crash the process, so the bounds check lives here rather than with
// the callers.
func (r *Restaurant) Table(tableID uint32) (*Handle, error) {
	if tableID >= uint32(len(r.tables)) {
		return nil, ErrNoTable
	}
	return r.tables[tableID], nil
}

// Len returns the number of tables.
func (r *Restaurant) Len() int {
	return len(r.tables)
}

package restaurant

import (
	"math/rand"

	"tableflow/pkg/order"
)

// Waiting time bounds in minutes for a freshly placed order.
const (
	minWaitingTime = 5
	maxWaitingTime = 16
)

// Table holds the active orders for one restaurant table, keyed by item id.
// Table does no locking of its own; concurrent callers go through the Handle
// returned by Restaurant.Table.
type Table struct {
	id     uint32
	orders map[uint32]order.Order
}

// NewTable creates an empty table with the given id.
func NewTable(id uint32) *Table {
	return &Table{id: id, orders: make(map[uint32]order.Order)}
}

// ID returns the table's id.
func (t *Table) ID() uint32 {
	return t.id
}

// AddOrder records an order for the given item with a waiting time drawn
// uniformly from [5,16) minutes. Re-adding an item replaces the previous
// order, waiting time included.
func (t *Table) AddOrder(itemID uint32) {
	wait := uint32(minWaitingTime + rand.Intn(maxWaitingTime-minWaitingTime))
	t.orders[itemID] = order.New(itemID, t.id, wait)
}

// Order looks up the order for an item. Absence is not an error.
func (t *Table) Order(itemID uint32) (order.Order, bool) {
	o, ok := t.orders[itemID]
	return o, ok
}

// Orders returns all current orders for the table. The result order follows
// map iteration and is unspecified; an empty table yields an empty slice.
func (t *Table) Orders() []order.Order {
	out := make([]order.Order, 0, len(t.orders))
	for _, o := range t.orders {
		out = append(out, o)
	}
	return out
}

// RemoveOrder deletes the order for an item and returns it, reporting
// whether it was present.
func (t *Table) RemoveOrder(itemID uint32) (order.Order, bool) {
	o, ok := t.orders[itemID]
	if ok {
		delete(t.orders, itemID)
	}
	return o, ok
}

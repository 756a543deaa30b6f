package order

// Order is one food item ordered at one table, with an estimated waiting
// time in minutes. Orders are immutable once created.
type Order struct {
	ItemID      uint32 `json:"item_id"`
	TableID     uint32 `json:"table_id"`
	WaitingTime uint32 `json:"waiting_time"`
}

// New constructs an Order. The waiting time is chosen by the table placing
// the order, not here.
func New(itemID, tableID, waitingTime uint32) Order {
	return Order{ItemID: itemID, TableID: tableID, WaitingTime: waitingTime}
}

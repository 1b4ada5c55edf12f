package stockrequest

// Status is the lifecycle state of a stock request. A request occupies
// exactly one status at a time; the legal transitions form a DAG.
type Status string

const (
	// StatusPurchase is a draft purchase order awaiting warehouse dispatch
	StatusPurchase Status = "PURCHASE"
	// StatusWarehouse is a request pending physical receipt at the warehouse
	StatusWarehouse Status = "WAREHOUSE"
	// StatusIncoming is a receipt confirmed: stock counted into the ledger
	StatusIncoming Status = "INCOMING"
	// StatusPackage is the pick/pack stage of an outgoing request
	StatusPackage Status = "PACKAGE"
	// StatusExtradition is the handoff to a courier or customer
	StatusExtradition Status = "EXTRADITION"
	// StatusMoving is an inter-warehouse transfer in flight
	StatusMoving Status = "MOVING"
	// StatusCompleted is a finished request
	StatusCompleted Status = "COMPLETED"
	// StatusCancel is an aborted request
	StatusCancel Status = "CANCEL"
)

// transitions is the closed set of legal (from, to) pairs.
// Completed -> Incoming is the reversal re-entry used when completed stock
// returns to the warehouse before a cancellation.
var transitions = map[Status][]Status{
	StatusPurchase:    {StatusWarehouse, StatusCancel},
	StatusWarehouse:   {StatusIncoming, StatusCancel},
	StatusIncoming:    {StatusPackage, StatusCancel},
	StatusPackage:     {StatusExtradition, StatusMoving, StatusCancel},
	StatusExtradition: {StatusCompleted, StatusCancel},
	StatusMoving:      {StatusIncoming, StatusCompleted, StatusCancel},
	StatusCompleted:   {StatusIncoming},
	StatusCancel:      {},
}

// IsValid checks if the status belongs to the closed set
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is legal
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether the (s, to) transition is legal
func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// AtOrPastPackage reports whether the status is Package or a later stage of
// an outgoing request. Order edits replace product lines only from this
// point on: earlier statuses are re-derived from the order anyway.
func (s Status) AtOrPastPackage() bool {
	switch s {
	case StatusPackage, StatusExtradition, StatusMoving, StatusCompleted:
		return true
	}
	return false
}

// AllStatuses returns every member of the closed status set
func AllStatuses() []Status {
	return []Status{
		StatusPurchase,
		StatusWarehouse,
		StatusIncoming,
		StatusPackage,
		StatusExtradition,
		StatusMoving,
		StatusCompleted,
		StatusCancel,
	}
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

// OrderStatus enumerates lifecycle states for orders.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// statusChain is the strict forward progression. Any status implies every
// earlier one already happened, which downstream reporting relies on.
var statusChain = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
}

// OrderItem captures a product line at order time; unit price is frozen at
// checkout.
type OrderItem struct {
	ProductID      string
	ProductName    string
	Quantity       int
	UnitPriceCents int64
	DiscountCents  int64
}

// Order is the aggregate for customer purchases.
type Order struct {
	ID                 string
	ExternalKey        string
	CustomerID         string
	Status             OrderStatus
	Items              []OrderItem
	TotalCents         int64
	DiscountCents      int64
	FinalCents         int64
	CancelledBy        *string
	CancellationReason string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeliveredAt        *time.Time
}

// NextStatus returns the immediate successor in the forward chain, or false
// when the status is terminal or not part of the chain.
func NextStatus(status OrderStatus) (OrderStatus, bool) {
	for i, s := range statusChain {
		if s == status && i+1 < len(statusChain) {
			return statusChain[i+1], true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transition is legal.
func (o Order) IsTerminal() bool {
	return o.Status == OrderStatusDelivered || o.Status == OrderStatusCancelled
}

func cancellableFrom(status OrderStatus) bool {
	return status == OrderStatusPending || status == OrderStatusConfirmed
}

// Advance moves the order one step forward in the fulfillment chain. Only
// admins administer fulfillment; skipping stages or moving backward is a
// StateError.
func (o Order) Advance(actor Account, target OrderStatus, now time.Time) (Order, error) {
	if !CanPerform(actor.Role, ActionUpdateOrderStatus, GateContext{ActorID: actor.ID}) {
		return o, NewAuthorizationError("only admins may update order status")
	}
	next, ok := NextStatus(o.Status)
	if !ok {
		return o, NewStateError(fmt.Sprintf("order is %s and cannot advance", strings.ToLower(string(o.Status))))
	}
	if target != next {
		return o, NewStateError(fmt.Sprintf("cannot advance from %s to %s", o.Status, target))
	}

	o.Status = target
	if target == OrderStatusDelivered {
		deliveredAt := now
		o.DeliveredAt = &deliveredAt
	}
	o.UpdatedAt = now
	return o, nil
}

// Cancel transitions the order to cancelled. Admins may cancel any
// still-early order; customers only their own. Orders past confirmation are
// not cancellable by anyone.
func (o Order) Cancel(actor Account, reason string, now time.Time) (Order, error) {
	gateCtx := GateContext{ActorID: actor.ID, OwnerID: o.CustomerID, OrderStatus: o.Status}
	if !CanPerform(actor.Role, ActionCancelOrder, gateCtx) {
		return o, NewAuthorizationError("not allowed to cancel this order")
	}
	if !cancellableFrom(o.Status) {
		return o, NewStateError(fmt.Sprintf("order is %s and cannot be cancelled", strings.ToLower(string(o.Status))))
	}

	cancelledBy := actor.ID
	o.Status = OrderStatusCancelled
	o.CancelledBy = &cancelledBy
	o.CancellationReason = reason
	o.UpdatedAt = now
	return o, nil
}

// ComputeTotals recalculates the money fields from the line items.
func (o Order) ComputeTotals() Order {
	var total, discount int64
	for _, item := range o.Items {
		total += item.UnitPriceCents * int64(item.Quantity)
		discount += item.DiscountCents * int64(item.Quantity)
	}
	o.TotalCents = total
	o.DiscountCents = discount
	o.FinalCents = total - discount
	return o
}

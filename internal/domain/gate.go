package domain

// Action enumerates gated transitions.
type Action string

const (
	ActionSubmitRequest     Action = "submit_request"
	ActionReviewRequest     Action = "review_request"
	ActionUpdateOrderStatus Action = "update_order_status"
	ActionCancelOrder       Action = "cancel_order"
)

// GateContext carries the minimal facts needed for ownership checks.
type GateContext struct {
	ActorID     string
	OwnerID     string
	OrderStatus OrderStatus
}

// CanPerform is the single point of truth for "who may do what". It is a
// total function: unknown role/action combinations return false rather than
// erroring.
func CanPerform(role Role, action Action, ctx GateContext) bool {
	switch action {
	case ActionSubmitRequest:
		return role == RoleAdmin || role == RoleStoreManager || role == RoleCustomer
	case ActionReviewRequest:
		return role == RoleAdmin
	case ActionUpdateOrderStatus:
		return role == RoleAdmin
	case ActionCancelOrder:
		if role == RoleAdmin {
			return true
		}
		// Customers may cancel only their own, still-early orders.
		return role == RoleCustomer &&
			ctx.ActorID != "" &&
			ctx.ActorID == ctx.OwnerID &&
			cancellableFrom(ctx.OrderStatus)
	}
	return false
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanPerformRoleMatrix(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		action  Action
		ctx     GateContext
		allowed bool
	}{
		{"admin reviews request", RoleAdmin, ActionReviewRequest, GateContext{}, true},
		{"store manager reviews request", RoleStoreManager, ActionReviewRequest, GateContext{}, false},
		{"customer reviews request", RoleCustomer, ActionReviewRequest, GateContext{}, false},

		{"admin updates order status", RoleAdmin, ActionUpdateOrderStatus, GateContext{}, true},
		{"store manager updates order status", RoleStoreManager, ActionUpdateOrderStatus, GateContext{}, false},
		{"customer updates order status", RoleCustomer, ActionUpdateOrderStatus, GateContext{}, false},

		{"admin submits request", RoleAdmin, ActionSubmitRequest, GateContext{}, true},
		{"store manager submits request", RoleStoreManager, ActionSubmitRequest, GateContext{}, true},
		{"customer submits request", RoleCustomer, ActionSubmitRequest, GateContext{}, true},

		{"admin cancels any order", RoleAdmin, ActionCancelOrder, GateContext{OrderStatus: OrderStatusShipped}, true},
		{
			"owner cancels pending order",
			RoleCustomer, ActionCancelOrder,
			GateContext{ActorID: "c1", OwnerID: "c1", OrderStatus: OrderStatusPending},
			true,
		},
		{
			"owner cancels confirmed order",
			RoleCustomer, ActionCancelOrder,
			GateContext{ActorID: "c1", OwnerID: "c1", OrderStatus: OrderStatusConfirmed},
			true,
		},
		{
			"owner cannot cancel shipped order",
			RoleCustomer, ActionCancelOrder,
			GateContext{ActorID: "c1", OwnerID: "c1", OrderStatus: OrderStatusShipped},
			false,
		},
		{
			"non-owner cannot cancel",
			RoleCustomer, ActionCancelOrder,
			GateContext{ActorID: "c2", OwnerID: "c1", OrderStatus: OrderStatusPending},
			false,
		},
		{
			"store manager cannot cancel customer orders",
			RoleStoreManager, ActionCancelOrder,
			GateContext{ActorID: "m1", OwnerID: "c1", OrderStatus: OrderStatusPending},
			false,
		},

		{"unknown action", RoleAdmin, Action("delete_everything"), GateContext{}, false},
		{"unknown role", Role("SUPERUSER"), ActionReviewRequest, GateContext{}, false},
		{"empty role and action", Role(""), Action(""), GateContext{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanPerform(tt.role, tt.action, tt.ctx))
		})
	}
}

func TestCanPerformNeverPanics(t *testing.T) {
	roles := []Role{RoleAdmin, RoleStoreManager, RoleCustomer, Role("BOGUS"), Role("")}
	actions := []Action{ActionSubmitRequest, ActionReviewRequest, ActionUpdateOrderStatus, ActionCancelOrder, Action("bogus"), Action("")}

	for _, role := range roles {
		for _, action := range actions {
			assert.NotPanics(t, func() {
				CanPerform(role, action, GateContext{})
			})
		}
	}
}

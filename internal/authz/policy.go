// Package authz holds the single role/ownership policy every mutating
// operation goes through. The decision is a pure function of
// (caller, resource, action); no state is kept between calls.
package authz

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/studiora/studiora-backend/internal/types"
)

type Action string

const (
	ActionRead       Action = "read"
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionArchive    Action = "archive"
	ActionPublish    Action = "publish"
	ActionChangeRole Action = "change_role"
	ActionBan        Action = "ban"
)

// Caller describes who is asking. A zero Caller is an unauthenticated request.
type Caller struct {
	ID            uuid.UUID
	Role          types.UserRole
	Authenticated bool
}

// Resource describes what is being acted on. OwnerID is the owning user for
// owned resources (uuid.Nil when ownership does not apply). TargetRole is set
// when the resource is itself a user row.
type Resource struct {
	Kind       string
	OwnerID    uuid.UUID
	Published  bool
	Free       bool
	TargetRole types.UserRole
}

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(format string, args ...any) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// Decide evaluates the rules in order:
//  1. ADMIN callers are allowed everything except mutating another ADMIN
//     (role change or ban).
//  2. The resource owner may update/delete/archive/publish it.
//  3. Unauthenticated callers may read published resources and free lessons.
//  4. Everything else is denied.
func Decide(caller Caller, resource Resource, action Action) Decision {
	if caller.Authenticated && caller.Role == types.RoleAdmin {
		if resource.TargetRole == types.RoleAdmin && (action == ActionChangeRole || action == ActionBan) {
			return deny("an admin cannot be %s", describeAdminMutation(action))
		}
		return allow()
	}

	if caller.Authenticated && resource.OwnerID != uuid.Nil && resource.OwnerID == caller.ID {
		switch action {
		case ActionRead, ActionUpdate, ActionDelete, ActionArchive, ActionPublish:
			return allow()
		}
	}

	if action == ActionRead && (resource.Published || resource.Free) {
		return allow()
	}

	if !caller.Authenticated {
		return deny("authentication required to %s %s", action, resource.Kind)
	}
	return deny("not allowed to %s this %s", action, resource.Kind)
}

func describeAdminMutation(action Action) string {
	if action == ActionBan {
		return "banned"
	}
	return "demoted"
}

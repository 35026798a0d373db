// Package policy decides whether an actor may perform an operation. It is
// pure: no I/O, no logging. Services call it before touching the store.
package policy

import (
	"fmt"

	"github.com/isdelr/recipehub-be/internal/apperrors"
	"github.com/isdelr/recipehub-be/internal/models"
)

// Operation names a guarded action.
type Operation int

const (
	ListRecipes Operation = iota
	ReadRecipe
	CreateRecipe
	UpdateRecipe
	DeleteRecipe
	ListRatings
	ReadRating
	CreateRating
	UpdateRating
	DeleteRating
	ReadActivity
)

var operationNames = map[Operation]string{
	ListRecipes:  "list recipes",
	ReadRecipe:   "read recipe",
	CreateRecipe: "create recipe",
	UpdateRecipe: "update recipe",
	DeleteRecipe: "delete recipe",
	ListRatings:  "list ratings",
	ReadRating:   "read rating",
	CreateRating: "create rating",
	UpdateRating: "update rating",
	DeleteRating: "delete rating",
	ReadActivity: "read activity",
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

// Actor is an authenticated account as seen by the policy.
type Actor struct {
	ID       string
	Username string
	Role     models.Role
}

// Owned is implemented by resources that belong to a single account.
type Owned interface {
	OwnerID() string
}

// capabilities is what a role brings to the table.
type capabilities interface {
	allows(op Operation) bool
}

// Every authenticated role may browse the catalog and the activity feed.
func commonAllows(op Operation) bool {
	switch op {
	case ListRecipes, ReadRecipe, ReadActivity:
		return true
	}
	return false
}

type sellerCapabilities struct{}

func (sellerCapabilities) allows(op Operation) bool {
	switch op {
	case CreateRecipe, UpdateRecipe, DeleteRecipe:
		return true
	}
	return commonAllows(op)
}

type customerCapabilities struct{}

func (customerCapabilities) allows(op Operation) bool {
	switch op {
	case ListRatings, ReadRating, CreateRating, UpdateRating, DeleteRating:
		return true
	}
	return commonAllows(op)
}

var roleCapabilities = map[models.Role]capabilities{
	models.RoleSeller:   sellerCapabilities{},
	models.RoleCustomer: customerCapabilities{},
}

// Policy holds the tunable parts of access control.
type Policy struct {
	// EnforceRatingOwnership restricts rating update/delete to the rating's
	// author. When false any customer may mutate any rating.
	EnforceRatingOwnership bool
}

// New returns a Policy.
func New(enforceRatingOwnership bool) *Policy {
	return &Policy{EnforceRatingOwnership: enforceRatingOwnership}
}

// Authorize performs the role check for op. A nil actor is anonymous and
// fails with ErrAuthentication; a role lacking the capability fails with
// ErrAuthorization.
func (p *Policy) Authorize(actor *Actor, op Operation) error {
	if actor == nil || actor.ID == "" {
		return apperrors.ErrAuthentication
	}
	caps, ok := roleCapabilities[actor.Role]
	if !ok || !caps.allows(op) {
		return fmt.Errorf("%w: %s may not %s", apperrors.ErrAuthorization, actor.Role, op)
	}
	return nil
}

// AuthorizeResource runs Authorize and then, for operations that mutate an
// owned resource, the ownership guard.
func (p *Policy) AuthorizeResource(actor *Actor, op Operation, target Owned) error {
	if err := p.Authorize(actor, op); err != nil {
		return err
	}
	if p.requiresOwnership(op) {
		return RequireOwner(actor, target)
	}
	return nil
}

func (p *Policy) requiresOwnership(op Operation) bool {
	switch op {
	case UpdateRecipe, DeleteRecipe:
		return true
	case UpdateRating, DeleteRating:
		return p.EnforceRatingOwnership
	}
	return false
}

// RequireOwner fails with ErrAuthorization unless actor owns resource.
func RequireOwner(actor *Actor, resource Owned) error {
	if actor == nil || actor.ID == "" {
		return apperrors.ErrAuthentication
	}
	if resource == nil || resource.OwnerID() != actor.ID {
		return fmt.Errorf("%w: not the owner", apperrors.ErrAuthorization)
	}
	return nil
}

package policy

import (
	"errors"
	"testing"

	"github.com/isdelr/recipehub-be/internal/apperrors"
	"github.com/isdelr/recipehub-be/internal/models"
	"github.com/stretchr/testify/assert"
)

var (
	seller   = &Actor{ID: "s1", Username: "sam", Role: models.RoleSeller}
	seller2  = &Actor{ID: "s2", Username: "sue", Role: models.RoleSeller}
	customer = &Actor{ID: "c1", Username: "cal", Role: models.RoleCustomer}
	other    = &Actor{ID: "c2", Username: "cat", Role: models.RoleCustomer}
)

func TestAuthorizeRoleTable(t *testing.T) {
	p := New(true)
	allowed := map[models.Role][]Operation{
		models.RoleSeller:   {ListRecipes, ReadRecipe, CreateRecipe, UpdateRecipe, DeleteRecipe, ReadActivity},
		models.RoleCustomer: {ListRecipes, ReadRecipe, ListRatings, ReadRating, CreateRating, UpdateRating, DeleteRating, ReadActivity},
	}
	actors := map[models.Role]*Actor{models.RoleSeller: seller, models.RoleCustomer: customer}

	for role, actor := range actors {
		for op := ListRecipes; op <= ReadActivity; op++ {
			want := false
			for _, a := range allowed[role] {
				if a == op {
					want = true
				}
			}
			err := p.Authorize(actor, op)
			if want {
				assert.NoError(t, err, "%s %s", role, op)
			} else {
				assert.True(t, errors.Is(err, apperrors.ErrAuthorization), "%s %s: %v", role, op, err)
			}
		}
	}
}

func TestAnonymousIsDeniedEverything(t *testing.T) {
	p := New(true)
	for op := ListRecipes; op <= ReadActivity; op++ {
		assert.ErrorIs(t, p.Authorize(nil, op), apperrors.ErrAuthentication, op.String())
		assert.ErrorIs(t, p.Authorize(&Actor{}, op), apperrors.ErrAuthentication, op.String())
	}
}

func TestUnknownRoleIsForbidden(t *testing.T) {
	p := New(true)
	err := p.Authorize(&Actor{ID: "x", Role: models.Role("admin")}, ListRecipes)
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
}

func TestRecipeOwnershipGuard(t *testing.T) {
	p := New(true)
	recipe := models.Recipe{ID: "r1", SellerID: seller.ID}

	assert.NoError(t, p.AuthorizeResource(seller, UpdateRecipe, recipe))
	assert.NoError(t, p.AuthorizeResource(seller, DeleteRecipe, recipe))
	assert.ErrorIs(t, p.AuthorizeResource(seller2, UpdateRecipe, recipe), apperrors.ErrAuthorization)
	assert.ErrorIs(t, p.AuthorizeResource(seller2, DeleteRecipe, recipe), apperrors.ErrAuthorization)
	assert.ErrorIs(t, p.AuthorizeResource(customer, UpdateRecipe, recipe), apperrors.ErrAuthorization)

	// reads never need ownership
	assert.NoError(t, p.AuthorizeResource(seller2, ReadRecipe, recipe))
	assert.NoError(t, p.AuthorizeResource(customer, ReadRecipe, recipe))
}

func TestRatingOwnershipSwitch(t *testing.T) {
	rating := models.Rating{ID: "x1", UserID: customer.ID}

	strict := New(true)
	assert.NoError(t, strict.AuthorizeResource(customer, UpdateRating, rating))
	assert.ErrorIs(t, strict.AuthorizeResource(other, UpdateRating, rating), apperrors.ErrAuthorization)
	assert.ErrorIs(t, strict.AuthorizeResource(other, DeleteRating, rating), apperrors.ErrAuthorization)

	permissive := New(false)
	assert.NoError(t, permissive.AuthorizeResource(other, UpdateRating, rating))
	assert.NoError(t, permissive.AuthorizeResource(other, DeleteRating, rating))
	// role check still applies
	assert.ErrorIs(t, permissive.AuthorizeResource(seller, DeleteRating, rating), apperrors.ErrAuthorization)
}

func TestRequireOwner(t *testing.T) {
	assert.ErrorIs(t, RequireOwner(nil, models.Recipe{SellerID: "s1"}), apperrors.ErrAuthentication)
	assert.ErrorIs(t, RequireOwner(seller, nil), apperrors.ErrAuthorization)
	assert.NoError(t, RequireOwner(seller, models.Recipe{SellerID: "s1"}))
	assert.NoError(t, RequireOwner(customer, models.Rating{UserID: "c1"}))
}

package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyznetsovserega/hopbarley-shop/internal/owner"
)

func TestMergeGuestCart_CoalescesAndReassigns(t *testing.T) {
	db := setupTestDB(t)
	conf, err := NewConf(db)
	require.NoError(t, err)

	ctx := context.Background()
	userID := "52a1f7a8-7a2e-49a4-94d9-0f6a9b3f21cd"
	sessionToken := "guest-sess"

	p1 := insertProduct(t, db, "Pale Ale", "5.99", 50)
	p2 := insertProduct(t, db, "Stout", "4.50", 50)

	// guest cart {P1:2, P2:1}, user cart {P1:3}
	_, err = conf.Add(ctx, owner.Guest(sessionToken), p1, 2)
	require.NoError(t, err)
	_, err = conf.Add(ctx, owner.Guest(sessionToken), p2, 1)
	require.NoError(t, err)
	_, err = conf.Add(ctx, owner.User(userID), p1, 3)
	require.NoError(t, err)

	require.NoError(t, conf.MergeGuestCart(ctx, sessionToken, userID))

	userItems, err := conf.List(ctx, owner.User(userID))
	require.NoError(t, err)
	require.Len(t, userItems, 2)

	byProduct := map[int64]int{}
	for _, it := range userItems {
		byProduct[it.ProductID] = it.Quantity
	}
	assert.Equal(t, 5, byProduct[p1])
	assert.Equal(t, 1, byProduct[p2])

	guestItems, err := conf.List(ctx, owner.Guest(sessionToken))
	require.NoError(t, err)
	assert.Empty(t, guestItems)
}

func TestMergeGuestCart_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	conf, err := NewConf(db)
	require.NoError(t, err)

	ctx := context.Background()
	userID := "52a1f7a8-7a2e-49a4-94d9-0f6a9b3f21cd"
	sessionToken := "guest-sess"

	p1 := insertProduct(t, db, "Pale Ale", "5.99", 50)
	_, err = conf.Add(ctx, owner.Guest(sessionToken), p1, 2)
	require.NoError(t, err)

	require.NoError(t, conf.MergeGuestCart(ctx, sessionToken, userID))
	// no guest lines remain, a second merge changes nothing
	require.NoError(t, conf.MergeGuestCart(ctx, sessionToken, userID))

	userItems, err := conf.List(ctx, owner.User(userID))
	require.NoError(t, err)
	require.Len(t, userItems, 1)
	assert.Equal(t, 2, userItems[0].Quantity)
}

func TestMergeGuestCart_NoStockValidation(t *testing.T) {
	db := setupTestDB(t)
	conf, err := NewConf(db)
	require.NoError(t, err)

	ctx := context.Background()
	userID := "52a1f7a8-7a2e-49a4-94d9-0f6a9b3f21cd"
	sessionToken := "guest-sess"

	// stock 5; user holds 4 and the guest 3, merged cart holds 7.
	// over-subscription is only checked at checkout.
	p1 := insertProduct(t, db, "Pale Ale", "5.99", 5)
	_, err = conf.Add(ctx, owner.User(userID), p1, 4)
	require.NoError(t, err)
	_, err = conf.Add(ctx, owner.Guest(sessionToken), p1, 3)
	require.NoError(t, err)

	require.NoError(t, conf.MergeGuestCart(ctx, sessionToken, userID))

	userItems, err := conf.List(ctx, owner.User(userID))
	require.NoError(t, err)
	require.Len(t, userItems, 1)
	assert.Equal(t, 7, userItems[0].Quantity)
}

func TestMergeGuestCart_EmptySessionTokenIsNoop(t *testing.T) {
	db := setupTestDB(t)
	conf, err := NewConf(db)
	require.NoError(t, err)

	require.NoError(t, conf.MergeGuestCart(context.Background(), "", "52a1f7a8-7a2e-49a4-94d9-0f6a9b3f21cd"))
}

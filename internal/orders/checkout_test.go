package orders

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kyznetsovserega/hopbarley-shop/internal/cart"
	"github.com/kyznetsovserega/hopbarley-shop/internal/owner"
	"github.com/kyznetsovserega/hopbarley-shop/internal/products"
	"github.com/kyznetsovserega/hopbarley-shop/migrations"
	"github.com/kyznetsovserega/hopbarley-shop/pkg/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := database.Open(ctx, database.Config{
		Host:     host,
		Port:     port.Port(),
		User:     "testuser",
		Password: "testpass",
		Name:     "testdb",
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db, migrations.FS))
	return db
}

func insertProduct(t *testing.T, db *sql.DB, name string, price string, stock int) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(
		`INSERT INTO products (name, price, stock) VALUES ($1, $2, $3) RETURNING id`,
		name, price, stock,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func productStock(t *testing.T, db *sql.DB, productID int64) int {
	t.Helper()
	var stock int
	require.NoError(t, db.QueryRow(`SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock))
	return stock
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func validForm() CheckoutForm {
	return CheckoutForm{
		FullName:        "John Smith",
		ShippingAddress: "New York, Madison St. 12",
		Phone:           "+123456789",
		Email:           "john@example.com",
	}
}

// Scenario: an existing line of 2 plus an add of 3 checks out as 5 units,
// stock drops from 10 to 5 and the order totals 5 x 5.99.
func TestCheckout_Success(t *testing.T) {
	db := setupTestDB(t)
	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	orderConf, err := NewConf(db)
	require.NoError(t, err)

	ctx := context.Background()
	userID := "4b8c7a42-3f36-4b63-b0d7-52f4a9e61c20"
	id := owner.User(userID)
	productID := insertProduct(t, db, "Pale Ale", "5.99", 10)

	_, err = cartConf.Add(ctx, id, productID, 2)
	require.NoError(t, err)
	_, err = cartConf.Add(ctx, id, productID, 3)
	require.NoError(t, err)

	order, err := orderConf.CreateOrderFromCart(ctx, id, validForm())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, PaymentCash, order.PaymentMethod)
	require.NotNil(t, order.UserID)
	assert.Equal(t, userID, *order.UserID)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("29.95")), "got %s", order.TotalPrice)

	require.Len(t, order.Lines, 1)
	assert.Equal(t, productID, order.Lines[0].ProductID)
	assert.Equal(t, 5, order.Lines[0].Quantity)
	assert.True(t, order.Lines[0].UnitPrice.Equal(decimal.RequireFromString("5.99")))

	assert.Equal(t, 5, productStock(t, db, productID))

	// the cart is cleared inside the same transaction
	items, err := cartConf.List(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCheckout_EmptyCart(t *testing.T) {
	db := setupTestDB(t)
	orderConf, err := NewConf(db)
	require.NoError(t, err)

	_, err = orderConf.CreateOrderFromCart(context.Background(), owner.Guest("empty-sess"), validForm())
	assert.ErrorIs(t, err, ErrEmptyCart)

	// the empty cart check precedes form validation
	_, err = orderConf.CreateOrderFromCart(context.Background(), owner.Guest("empty-sess"), CheckoutForm{})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

// Scenario: a blank required field fails checkout and writes nothing.
func TestCheckout_MissingField(t *testing.T) {
	db := setupTestDB(t)
	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	orderConf, err := NewConf(db)
	require.NoError(t, err)

	ctx := context.Background()
	id := owner.Guest("sess-1")
	productID := insertProduct(t, db, "Pale Ale", "5.99", 10)
	_, err = cartConf.Add(ctx, id, productID, 2)
	require.NoError(t, err)

	form := validForm()
	form.ShippingAddress = ""

	_, err = orderConf.CreateOrderFromCart(ctx, id, form)
	var missingErr *MissingFieldError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, "shipping_address", missingErr.Field)

	assert.Equal(t, 0, countRows(t, db, "orders"))
	assert.Equal(t, 0, countRows(t, db, "order_lines"))
	assert.Equal(t, 10, productStock(t, db, productID))

	items, err := cartConf.List(ctx, id)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestCheckout_InsufficientStockRollsBackEverything(t *testing.T) {
	db := setupTestDB(t)
	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	orderConf, err := NewConf(db)
	require.NoError(t, err)

	ctx := context.Background()
	id := owner.Guest("sess-1")
	p1 := insertProduct(t, db, "Pale Ale", "5.99", 10)
	p2 := insertProduct(t, db, "Stout", "4.50", 5)

	_, err = cartConf.Add(ctx, id, p1, 2)
	require.NoError(t, err)
	_, err = cartConf.Add(ctx, id, p2, 5)
	require.NoError(t, err)

	// stock shrank between carting and checkout
	_, err = db.Exec(`UPDATE products SET stock = 3 WHERE id = $1`, p2)
	require.NoError(t, err)

	_, err = orderConf.CreateOrderFromCart(ctx, id, validForm())
	var stockErr *products.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, p2, stockErr.ProductID)
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 5, stockErr.Requested)

	// nothing moved: no order, no lines, stock untouched, cart intact
	assert.Equal(t, 0, countRows(t, db, "orders"))
	assert.Equal(t, 0, countRows(t, db, "order_lines"))
	assert.Equal(t, 10, productStock(t, db, p1))
	assert.Equal(t, 3, productStock(t, db, p2))

	items, err := cartConf.List(ctx, id)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

// Scenario: two owners race for the last unit; exactly one order exists
// afterwards and the loser keeps their cart.
func TestCheckout_ConcurrentLastUnit(t *testing.T) {
	db := setupTestDB(t)
	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	orderConf, err := NewConf(db)
	require.NoError(t, err)

	ctx := context.Background()
	productID := insertProduct(t, db, "Rare Vintage", "99.00", 1)

	first := owner.Guest("sess-a")
	second := owner.Guest("sess-b")
	_, err = cartConf.Add(ctx, first, productID, 1)
	require.NoError(t, err)
	_, err = cartConf.Add(ctx, second, productID, 1)
	require.NoError(t, err)

	results := make([]error, 2)
	var wg sync.WaitGroup
	for i, id := range []owner.Identity{first, second} {
		wg.Add(1)
		go func(i int, id owner.Identity) {
			defer wg.Done()
			_, results[i] = orderConf.CreateOrderFromCart(ctx, id, validForm())
		}(i, id)
	}
	wg.Wait()

	var successes, stockFailures int
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		var stockErr *products.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 0, stockErr.Available)
		assert.Equal(t, 1, stockErr.Requested)
		stockFailures++
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, stockFailures)

	assert.Equal(t, 1, countRows(t, db, "orders"))
	assert.Equal(t, 0, productStock(t, db, productID))

	// the losing cart is intact for retry
	assert.Equal(t, 1, countRows(t, db, "cart_lines"))
}

func TestCheckout_CardMethodStartsPendingPayment(t *testing.T) {
	db := setupTestDB(t)
	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	orderConf, err := NewConf(db)
	require.NoError(t, err)

	ctx := context.Background()
	id := owner.Guest("sess-1")
	productID := insertProduct(t, db, "Pale Ale", "5.99", 10)
	_, err = cartConf.Add(ctx, id, productID, 1)
	require.NoError(t, err)

	form := validForm()
	form.PaymentMethod = "card"

	order, err := orderConf.CreateOrderFromCart(ctx, id, form)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingPayment, order.Status)
	assert.Equal(t, PaymentCard, order.PaymentMethod)
}

func TestCheckout_UnknownPaymentMethodDefaultsToCash(t *testing.T) {
	db := setupTestDB(t)
	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	orderConf, err := NewConf(db)
	require.NoError(t, err)

	ctx := context.Background()
	id := owner.Guest("sess-1")
	productID := insertProduct(t, db, "Pale Ale", "5.99", 10)
	_, err = cartConf.Add(ctx, id, productID, 1)
	require.NoError(t, err)

	form := validForm()
	form.PaymentMethod = "wire-pigeon"

	order, err := orderConf.CreateOrderFromCart(ctx, id, form)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, order.Status)
	assert.Equal(t, PaymentCash, order.PaymentMethod)
}

func TestCheckout_GuestOrderKeepsNoOwner(t *testing.T) {
	db := setupTestDB(t)
	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	orderConf, err := NewConf(db)
	require.NoError(t, err)

	ctx := context.Background()
	id := owner.Guest("sess-1")
	productID := insertProduct(t, db, "Pale Ale", "5.99", 10)
	_, err = cartConf.Add(ctx, id, productID, 1)
	require.NoError(t, err)

	order, err := orderConf.CreateOrderFromCart(ctx, id, validForm())
	require.NoError(t, err)
	assert.Nil(t, order.UserID)
}

func TestCheckout_DoubleSubmitFindsEmptyCart(t *testing.T) {
	db := setupTestDB(t)
	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	orderConf, err := NewConf(db)
	require.NoError(t, err)

	ctx := context.Background()
	id := owner.Guest("sess-1")
	productID := insertProduct(t, db, "Pale Ale", "5.99", 10)
	_, err = cartConf.Add(ctx, id, productID, 2)
	require.NoError(t, err)

	_, err = orderConf.CreateOrderFromCart(ctx, id, validForm())
	require.NoError(t, err)

	// the same submit again cannot create a second order
	_, err = orderConf.CreateOrderFromCart(ctx, id, validForm())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, 1, countRows(t, db, "orders"))
}

func TestCheckout_SnapshotPriceSurvivesCatalogChanges(t *testing.T) {
	db := setupTestDB(t)
	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	orderConf, err := NewConf(db)
	require.NoError(t, err)

	ctx := context.Background()
	userID := "4b8c7a42-3f36-4b63-b0d7-52f4a9e61c20"
	id := owner.User(userID)
	productID := insertProduct(t, db, "Pale Ale", "5.99", 10)
	_, err = cartConf.Add(ctx, id, productID, 5)
	require.NoError(t, err)

	order, err := orderConf.CreateOrderFromCart(ctx, id, validForm())
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE products SET price = '19.99' WHERE id = $1`, productID)
	require.NoError(t, err)

	reloaded, err := orderConf.GetOrder(ctx, id, order.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.TotalPrice.Equal(decimal.RequireFromString("29.95")), "got %s", reloaded.TotalPrice)
	require.Len(t, reloaded.Lines, 1)
	assert.True(t, reloaded.Lines[0].UnitPrice.Equal(decimal.RequireFromString("5.99")))
}

func TestGetOrder_Permissions(t *testing.T) {
	db := setupTestDB(t)
	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	orderConf, err := NewConf(db)
	require.NoError(t, err)

	ctx := context.Background()
	ownerID := "4b8c7a42-3f36-4b63-b0d7-52f4a9e61c20"
	strangerID := "93c0f8c1-67f4-4b2a-8f4f-b3d5c2a7e915"

	productID := insertProduct(t, db, "Pale Ale", "5.99", 10)
	_, err = cartConf.Add(ctx, owner.User(ownerID), productID, 1)
	require.NoError(t, err)

	order, err := orderConf.CreateOrderFromCart(ctx, owner.User(ownerID), validForm())
	require.NoError(t, err)

	_, err = orderConf.GetOrder(ctx, owner.User(ownerID), order.ID)
	assert.NoError(t, err)

	_, err = orderConf.GetOrder(ctx, owner.User(strangerID), order.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = orderConf.GetOrder(ctx, owner.Guest("some-sess"), order.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = orderConf.GetOrder(ctx, owner.User(ownerID), order.ID+1000)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrders(t *testing.T) {
	db := setupTestDB(t)
	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	orderConf, err := NewConf(db)
	require.NoError(t, err)

	ctx := context.Background()
	userID := "4b8c7a42-3f36-4b63-b0d7-52f4a9e61c20"
	id := owner.User(userID)
	productID := insertProduct(t, db, "Pale Ale", "5.99", 100)

	for i := 0; i < 3; i++ {
		_, err = cartConf.Add(ctx, id, productID, 1)
		require.NoError(t, err)
		_, err = orderConf.CreateOrderFromCart(ctx, id, validForm())
		require.NoError(t, err)
	}

	list, err := orderConf.ListOrders(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	other, err := orderConf.ListOrders(ctx, "93c0f8c1-67f4-4b2a-8f4f-b3d5c2a7e915")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMarkPaid(t *testing.T) {
	db := setupTestDB(t)
	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	orderConf, err := NewConf(db)
	require.NoError(t, err)

	ctx := context.Background()
	userID := "4b8c7a42-3f36-4b63-b0d7-52f4a9e61c20"
	id := owner.User(userID)
	productID := insertProduct(t, db, "Pale Ale", "5.99", 10)
	_, err = cartConf.Add(ctx, id, productID, 1)
	require.NoError(t, err)

	form := validForm()
	form.PaymentMethod = "card"
	order, err := orderConf.CreateOrderFromCart(ctx, id, form)
	require.NoError(t, err)

	require.NoError(t, orderConf.MarkPaid(ctx, order.ID))

	reloaded, err := orderConf.GetOrder(ctx, id, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, reloaded.Status)

	// a second confirmation is a no-op, not a second transition
	require.NoError(t, orderConf.MarkPaid(ctx, order.ID))
	reloaded, err = orderConf.GetOrder(ctx, id, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, reloaded.Status)

	assert.ErrorIs(t, orderConf.MarkPaid(ctx, order.ID+1000), ErrOrderNotFound)
}

func TestMarkPaid_IllegalFromTerminalState(t *testing.T) {
	db := setupTestDB(t)
	cartConf, err := cart.NewConf(db)
	require.NoError(t, err)
	orderConf, err := NewConf(db)
	require.NoError(t, err)

	ctx := context.Background()
	id := owner.Guest("sess-1")
	productID := insertProduct(t, db, "Pale Ale", "5.99", 10)
	_, err = cartConf.Add(ctx, id, productID, 1)
	require.NoError(t, err)

	order, err := orderConf.CreateOrderFromCart(ctx, id, validForm())
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE orders SET status = 'cancelled' WHERE id = $1`, order.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, orderConf.MarkPaid(ctx, order.ID), ErrIllegalTransition)
}

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/internal/app/repository"
	"github.com/jwkim/storefront-backend/internal/db"
)

type stubPublisher struct {
	created       []*model.Order
	statusChanged []*model.Order
}

func (p *stubPublisher) PublishOrderCreated(order *model.Order) {
	p.created = append(p.created, order)
}

func (p *stubPublisher) PublishOrderStatusChanged(order *model.Order) {
	p.statusChanged = append(p.statusChanged, order)
}

type orderTestEnv struct {
	db           *gorm.DB
	orderService OrderService
	cartService  CartService
	publisher    *stubPublisher
	user         *model.User
	productA     *model.Product
	productB     *model.Product
}

func setupOrderServiceTest(t *testing.T) *orderTestEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)
	publisher := &stubPublisher{}

	env := &orderTestEnv{
		db:           testDB,
		orderService: NewOrderService(orderRepo, cartRepo, productRepo, testDB, publisher),
		cartService:  NewCartService(cartRepo, productRepo),
		publisher:    publisher,
	}

	env.user = &model.User{
		Email:        "buyer@example.com",
		PasswordHash: "hash",
		Name:         "Buyer",
		Role:         model.RoleUser,
	}
	testDB.Create(env.user)

	env.productA = &model.Product{Name: "Product A", Price: 10.00, Stock: 10}
	env.productB = &model.Product{Name: "Product B", Price: 3.50, Stock: 5}
	testDB.Create(env.productA)
	testDB.Create(env.productB)

	return env
}

var testOrderInput = CreateOrderInput{
	ShippingAddress: "123 Main St",
	Phone:           "010-1234-5678",
	PaymentMethod:   "card",
	ShippingMethod:  "standard",
}

func TestOrderService_CreateOrderFromCart(t *testing.T) {
	env := setupOrderServiceTest(t)
	actor := model.UserActor(env.user.ID)

	_, err := env.cartService.AddItem(actor, env.productA.ID, 2)
	require.NoError(t, err)
	_, err = env.cartService.AddItem(actor, env.productB.ID, 1)
	require.NoError(t, err)

	order, err := env.orderService.CreateOrderFromCart(actor, testOrderInput)
	require.NoError(t, err)

	// 2 x 10.00 + 1 x 3.50
	assert.Equal(t, 23.50, order.Total)
	assert.Equal(t, model.OrderStatusProcessing, order.Status)
	require.NotNil(t, order.UserID)
	assert.Equal(t, env.user.ID, *order.UserID)
	require.Len(t, order.OrderItems, 2)

	prices := map[uint]float64{}
	for _, item := range order.OrderItems {
		prices[item.ProductID] = item.Price
	}
	assert.Equal(t, 10.00, prices[env.productA.ID])
	assert.Equal(t, 3.50, prices[env.productB.ID])

	// Stock is decremented by the ordered quantities.
	var productA, productB model.Product
	env.db.First(&productA, env.productA.ID)
	env.db.First(&productB, env.productB.ID)
	assert.Equal(t, 8, productA.Stock)
	assert.Equal(t, 4, productB.Stock)

	// The cart is emptied.
	cart, err := env.cartService.GetCart(actor)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	require.Len(t, env.publisher.created, 1)
	assert.Equal(t, order.ID, env.publisher.created[0].ID)
}

func TestOrderService_CreateOrderFromCart_PriceSnapshot(t *testing.T) {
	env := setupOrderServiceTest(t)
	actor := model.UserActor(env.user.ID)

	_, err := env.cartService.AddItem(actor, env.productA.ID, 1)
	require.NoError(t, err)

	order, err := env.orderService.CreateOrderFromCart(actor, testOrderInput)
	require.NoError(t, err)

	// A later price change must not affect the recorded order.
	env.db.Model(&model.Product{}).Where("id = ?", env.productA.ID).Update("price", 99.00)

	fetched, err := env.orderService.GetOrderByID(order.ID)
	require.NoError(t, err)
	require.Len(t, fetched.OrderItems, 1)
	assert.Equal(t, 10.00, fetched.OrderItems[0].Price)
	assert.Equal(t, 10.00, fetched.Total)
}

func TestOrderService_CreateOrderFromCart_EmptyCart(t *testing.T) {
	env := setupOrderServiceTest(t)
	actor := model.UserActor(env.user.ID)

	// No cart at all.
	_, err := env.orderService.CreateOrderFromCart(actor, testOrderInput)
	assert.ErrorIs(t, err, ErrEmptyCart)

	// A cart that exists but holds nothing behaves the same.
	cart, err := env.cartService.AddItem(actor, env.productA.ID, 1)
	require.NoError(t, err)
	_, err = env.cartService.RemoveItem(actor, cart.Items[0].ID)
	require.NoError(t, err)

	_, err = env.orderService.CreateOrderFromCart(actor, testOrderInput)
	assert.ErrorIs(t, err, ErrEmptyCart)

	var count int64
	env.db.Model(&model.Order{}).Count(&count)
	assert.Zero(t, count)
	assert.Empty(t, env.publisher.created)
}

func TestOrderService_CreateOrderFromCart_InsufficientStockRollsBack(t *testing.T) {
	env := setupOrderServiceTest(t)
	actor := model.UserActor(env.user.ID)

	_, err := env.cartService.AddItem(actor, env.productA.ID, 2)
	require.NoError(t, err)
	_, err = env.cartService.AddItem(actor, env.productB.ID, 5)
	require.NoError(t, err)

	// Stock of B drops below the cart quantity between add and checkout.
	env.db.Model(&model.Product{}).Where("id = ?", env.productB.ID).Update("stock", 3)

	_, err = env.orderService.CreateOrderFromCart(actor, testOrderInput)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// Nothing changed: no order, no stock movement, cart intact.
	var orderCount int64
	env.db.Model(&model.Order{}).Count(&orderCount)
	assert.Zero(t, orderCount)

	var productA model.Product
	env.db.First(&productA, env.productA.ID)
	assert.Equal(t, 10, productA.Stock)

	cart, err := env.cartService.GetCart(actor)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.Empty(t, env.publisher.created)
}

func TestOrderService_CreateOrderFromCart_SecondCheckoutFindsEmptyCart(t *testing.T) {
	env := setupOrderServiceTest(t)
	actor := model.UserActor(env.user.ID)

	_, err := env.cartService.AddItem(actor, env.productA.ID, 2)
	require.NoError(t, err)

	_, err = env.orderService.CreateOrderFromCart(actor, testOrderInput)
	require.NoError(t, err)

	// Checking out the same cart again must not produce a second order:
	// the cart is re-read inside the transaction and found empty.
	_, err = env.orderService.CreateOrderFromCart(actor, testOrderInput)
	assert.ErrorIs(t, err, ErrEmptyCart)

	var orderCount int64
	env.db.Model(&model.Order{}).Count(&orderCount)
	assert.Equal(t, int64(1), orderCount)

	var productA model.Product
	env.db.First(&productA, env.productA.ID)
	assert.Equal(t, 8, productA.Stock)
	assert.Len(t, env.publisher.created, 1)
}

func TestOrderService_CreateOrderFromCart_GuestCartConsumed(t *testing.T) {
	env := setupOrderServiceTest(t)
	actor := model.GuestActor("guest-token")

	_, err := env.cartService.AddItem(actor, env.productA.ID, 1)
	require.NoError(t, err)

	order, err := env.orderService.CreateOrderFromCart(actor, testOrderInput)
	require.NoError(t, err)
	assert.Nil(t, order.UserID)
	require.NotNil(t, order.GuestID)
	assert.Equal(t, "guest-token", *order.GuestID)

	// The guest cart row is gone, so the same cookie can start over.
	var count int64
	env.db.Model(&model.Cart{}).Where("guest_id = ?", "guest-token").Count(&count)
	assert.Zero(t, count)

	_, err = env.cartService.AddItem(actor, env.productB.ID, 1)
	assert.NoError(t, err)
}

type panickingPublisher struct{}

func (panickingPublisher) PublishOrderCreated(*model.Order)       { panic("publish blew up") }
func (panickingPublisher) PublishOrderStatusChanged(*model.Order) { panic("publish blew up") }

func TestOrderService_CreateOrderFromCart_PanicPropagates(t *testing.T) {
	env := setupOrderServiceTest(t)
	actor := model.UserActor(env.user.ID)

	svc := NewOrderService(
		repository.NewOrderRepository(env.db),
		repository.NewCartRepository(env.db),
		repository.NewProductRepository(env.db),
		env.db,
		panickingPublisher{},
	)

	_, err := env.cartService.AddItem(actor, env.productA.ID, 1)
	require.NoError(t, err)

	// A panic during order creation must reach the caller rather than
	// surface as a nil order with a nil error.
	require.Panics(t, func() {
		svc.CreateOrderFromCart(actor, testOrderInput)
	})
}

func TestOrderService_GetUserOrders(t *testing.T) {
	env := setupOrderServiceTest(t)
	actor := model.UserActor(env.user.ID)

	for i := 0; i < 2; i++ {
		_, err := env.cartService.AddItem(actor, env.productA.ID, 1)
		require.NoError(t, err)
		_, err = env.orderService.CreateOrderFromCart(actor, testOrderInput)
		require.NoError(t, err)
	}

	orders, err := env.orderService.GetUserOrders(env.user.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestOrderService_GetOrderForActor_Ownership(t *testing.T) {
	env := setupOrderServiceTest(t)
	userActor := model.UserActor(env.user.ID)
	guestActor := model.GuestActor("guest-token")

	_, err := env.cartService.AddItem(userActor, env.productA.ID, 1)
	require.NoError(t, err)
	userOrder, err := env.orderService.CreateOrderFromCart(userActor, testOrderInput)
	require.NoError(t, err)

	_, err = env.cartService.AddItem(guestActor, env.productB.ID, 1)
	require.NoError(t, err)
	guestOrder, err := env.orderService.CreateOrderFromCart(guestActor, testOrderInput)
	require.NoError(t, err)

	// Owners see their own orders.
	got, err := env.orderService.GetOrderForActor(userActor, userOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, userOrder.ID, got.ID)

	got, err = env.orderService.GetOrderForActor(guestActor, guestOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, guestOrder.ID, got.ID)

	// Foreign orders read as not-found, same as missing ones.
	_, err = env.orderService.GetOrderForActor(userActor, guestOrder.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = env.orderService.GetOrderForActor(guestActor, userOrder.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = env.orderService.GetOrderForActor(userActor, userOrder.ID+999)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	env := setupOrderServiceTest(t)
	actor := model.UserActor(env.user.ID)

	_, err := env.cartService.AddItem(actor, env.productA.ID, 1)
	require.NoError(t, err)
	order, err := env.orderService.CreateOrderFromCart(actor, testOrderInput)
	require.NoError(t, err)

	updated, err := env.orderService.UpdateOrderStatus(order.ID, model.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, updated.Status)
	require.Len(t, env.publisher.statusChanged, 1)
	assert.Equal(t, order.ID, env.publisher.statusChanged[0].ID)

	_, err = env.orderService.UpdateOrderStatus(order.ID, model.OrderStatus("teleported"))
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)

	_, err = env.orderService.UpdateOrderStatus(order.ID+999, model.OrderStatusDelivered)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

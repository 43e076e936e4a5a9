package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/internal/db"
)

func setupOrderTest(t *testing.T) (*gorm.DB, OrderRepository, *model.User, *model.Product) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	repo := NewOrderRepository(testDB)

	user := &model.User{
		Email:        "buyer@example.com",
		PasswordHash: "hash",
		Name:         "Buyer",
		Role:         model.RoleUser,
	}
	testDB.Create(user)

	product := &model.Product{
		Name:  "Test Product",
		Price: 10.00,
		Stock: 100,
	}
	testDB.Create(product)

	return testDB, repo, user, product
}

func TestOrderRepository_Create(t *testing.T) {
	_, repo, user, product := setupOrderTest(t)

	order := &model.Order{
		UserID: &user.ID,
		Total:  20.00,
		Status: model.OrderStatusProcessing,
		OrderItems: []model.OrderItem{
			{ProductID: product.ID, Quantity: 2, Price: 10.00},
		},
	}

	err := repo.Create(order)
	require.NoError(t, err)
	assert.NotZero(t, order.ID)

	found, err := repo.FindByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.00, found.Total)
	require.Len(t, found.OrderItems, 1)
	assert.Equal(t, product.Name, found.OrderItems[0].Product.Name)
}

func TestOrderRepository_FindByUserID(t *testing.T) {
	_, repo, user, product := setupOrderTest(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(&model.Order{
			UserID: &user.ID,
			Total:  10.00,
			Status: model.OrderStatusProcessing,
			OrderItems: []model.OrderItem{
				{ProductID: product.ID, Quantity: 1, Price: 10.00},
			},
		}))
	}

	guestID := "guest-token"
	require.NoError(t, repo.Create(&model.Order{
		GuestID: &guestID,
		Total:   10.00,
		Status:  model.OrderStatusProcessing,
		OrderItems: []model.OrderItem{
			{ProductID: product.ID, Quantity: 1, Price: 10.00},
		},
	}))

	orders, err := repo.FindByUserID(user.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 3)
}

func TestOrderRepository_FindAllPaginated(t *testing.T) {
	_, repo, user, product := setupOrderTest(t)

	for i := 0; i < 5; i++ {
		status := model.OrderStatusProcessing
		if i >= 3 {
			status = model.OrderStatusDelivered
		}
		require.NoError(t, repo.Create(&model.Order{
			UserID: &user.ID,
			Total:  float64(i+1) * 10.00,
			Status: status,
			OrderItems: []model.OrderItem{
				{ProductID: product.ID, Quantity: 1, Price: 10.00},
			},
		}))
	}

	orders, total, err := repo.FindAllPaginated(OrderFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, orders, 2)

	orders, total, err = repo.FindAllPaginated(OrderFilter{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, orders, 1)

	delivered := model.OrderStatusDelivered
	orders, total, err = repo.FindAllPaginated(OrderFilter{
		Status: &delivered,
		Page:   1,
		Limit:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, model.OrderStatusDelivered, o.Status)
	}
}

func TestOrderRepository_FindAllPaginated_SortByTotal(t *testing.T) {
	_, repo, user, product := setupOrderTest(t)

	totals := []float64{30.00, 10.00, 20.00}
	for i, total := range totals {
		require.NoError(t, repo.Create(&model.Order{
			UserID: &user.ID,
			Total:  total,
			Status: model.OrderStatusProcessing,
			OrderItems: []model.OrderItem{
				{ProductID: product.ID, Quantity: 1, Price: 10.00},
			},
		}), fmt.Sprintf("order %d", i))
	}

	orders, _, err := repo.FindAllPaginated(OrderFilter{
		SortBy:        OrderSortTotal,
		SortAscending: true,
		Page:          1,
		Limit:         10,
	})
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, 10.00, orders[0].Total)
	assert.Equal(t, 30.00, orders[2].Total)
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	_, repo, user, product := setupOrderTest(t)

	order := &model.Order{
		UserID: &user.ID,
		Total:  10.00,
		Status: model.OrderStatusProcessing,
		OrderItems: []model.OrderItem{
			{ProductID: product.ID, Quantity: 1, Price: 10.00},
		},
	}
	require.NoError(t, repo.Create(order))

	require.NoError(t, repo.UpdateStatus(order.ID, model.OrderStatusDelivered))

	found, err := repo.FindByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, found.Status)

	err = repo.UpdateStatus(order.ID+999, model.OrderStatusCompleted)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

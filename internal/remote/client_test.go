package remote_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tappinpay/internal/domain"
	"tappinpay/internal/remote"
	"tappinpay/internal/remote/remotetest"
)

var apple = domain.Product{ID: "FOOD001", Name: "Apple", Price: 10, Description: "Red apple", Image: "apple.jpg"}

func TestGetProductByID(t *testing.T) {
	api := remotetest.New(t, apple)
	c := remote.NewClient(api.URL, time.Second)

	p, ok := c.GetProductByID(context.Background(), "FOOD001")
	require.True(t, ok)
	assert.Equal(t, apple, p)

	_, ok = c.GetProductByID(context.Background(), "ZZZZ999")
	assert.False(t, ok)
	assert.Equal(t, []string{"FOOD001", "ZZZZ999"}, api.Lookups())
}

func TestGetProductByID_TransportFailureIsNotFound(t *testing.T) {
	api := remotetest.New(t, apple)
	c := remote.NewClient(api.URL, time.Second)
	api.Close()

	_, ok := c.GetProductByID(context.Background(), "FOOD001")
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok = remote.NewClient("http://127.0.0.1:1", time.Second).GetProductByID(ctx, "FOOD001")
	assert.False(t, ok)
}

func TestGetAllProducts(t *testing.T) {
	api := remotetest.New(t, apple, domain.Product{ID: "ELEC002", Name: "Radio", Price: 250})
	c := remote.NewClient(api.URL+"/", time.Second)

	all := c.GetAllProducts(context.Background())
	assert.Len(t, all, 2)
	assert.Equal(t, "Radio", all["ELEC002"].Name)

	api.SetDown(true)
	assert.Empty(t, c.GetAllProducts(context.Background()))
}

func TestCreateOrder(t *testing.T) {
	api := remotetest.New(t)
	c := remote.NewClient(api.URL, time.Second)
	o := domain.Order{ID: "DEMO1", Items: []domain.CartItem{{Product: apple, Quantity: 1}},
		Total: 10, Tax: 2, FinalTotal: 12, PaymentMethod: "Demo Payment", Status: "completed", TransactionID: "TXN1"}

	require.NoError(t, c.CreateOrder(context.Background(), o))
	got := c.GetOrderByID(context.Background(), "DEMO1")
	require.NotNil(t, got)
	assert.Equal(t, 12.0, got.FinalTotal)
	assert.Nil(t, c.GetOrderByID(context.Background(), "NOPE"))

	api.SetFailOrders(true)
	err := c.CreateOrder(context.Background(), o)
	assert.True(t, errors.Is(err, remote.ErrRejected), "got %v", err)

	api.Close()
	err = c.CreateOrder(context.Background(), o)
	assert.True(t, errors.Is(err, remote.ErrRequestFailed), "got %v", err)
}

func TestAddProductAndStock(t *testing.T) {
	api := remotetest.New(t)
	c := remote.NewClient(api.URL, time.Second)

	created, err := c.AddProduct(context.Background(), apple)
	require.NoError(t, err)
	assert.Equal(t, apple.ID, created.ID)

	updated, err := c.UpdateProductStock(context.Background(), "FOOD001", 12)
	require.NoError(t, err)
	require.NotNil(t, updated.Stock)
	assert.Equal(t, 12, *updated.Stock)

	_, err = c.UpdateProductStock(context.Background(), "BOOK404", 1)
	assert.ErrorIs(t, err, remote.ErrRejected)
}

func TestHealth(t *testing.T) {
	api := remotetest.New(t)
	c := remote.NewClient(api.URL, time.Second)
	assert.True(t, c.Health(context.Background()))
	api.SetDown(true)
	assert.False(t, c.Health(context.Background()))
}

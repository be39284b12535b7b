package handler

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func newGRPCClient(t *testing.T, f *fixture) *CartServiceClient {
	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	RegisterCartServiceServer(server, NewGRPCHandler(f.carts, f.checkout, zap.NewNop()))
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewCartServiceClient(conn)
}

func TestGRPC_CartFlow(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "50.00", 5)
	b := f.product(t, "25.00", 5)
	client := newGRPCClient(t, f)
	ctx := context.Background()

	added, err := client.AddToCart(ctx, &AddToCartRequest{UserID: 1, ProductID: a.ID, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, added.Item.Quantity)

	updated, err := client.UpdateQuantity(ctx, &UpdateQuantityRequest{UserID: 1, CartItemID: added.Item.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Item.Quantity)

	_, err = client.AddToCart(ctx, &AddToCartRequest{UserID: 1, ProductID: b.ID, Quantity: 1})
	require.NoError(t, err)

	checkout, err := client.Checkout(ctx, &UserRequest{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, "125.00", checkout.Total)

	orders, err := client.ListOrders(ctx, &UserRequest{UserID: 1})
	require.NoError(t, err)
	require.Len(t, orders.Orders, 2)

	ack, err := client.CancelOrder(ctx, &CancelOrderRequest{UserID: 1, SaleID: orders.Orders[0].ID})
	require.NoError(t, err)
	assert.True(t, ack.Success)
}

func TestGRPC_RemoveAndClear(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "10.00", 5)
	client := newGRPCClient(t, f)
	ctx := context.Background()

	added, err := client.AddToCart(ctx, &AddToCartRequest{UserID: 1, ProductID: p.ID, Quantity: 3})
	require.NoError(t, err)

	ack, err := client.RemoveItem(ctx, &RemoveItemRequest{UserID: 1, CartItemID: added.Item.ID})
	require.NoError(t, err)
	assert.True(t, ack.Success)

	ack, err = client.ClearCart(ctx, &UserRequest{UserID: 1})
	require.NoError(t, err)
	assert.True(t, ack.Success)
}

func TestGRPC_ErrorCodes(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "10.00", 1)
	client := newGRPCClient(t, f)
	ctx := context.Background()

	added, err := client.AddToCart(ctx, &AddToCartRequest{UserID: 1, ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = client.AddToCart(ctx, &AddToCartRequest{UserID: 2, ProductID: p.ID, Quantity: 0})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.AddToCart(ctx, &AddToCartRequest{UserID: 2, ProductID: p.ID, Quantity: 1})
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	_, err = client.UpdateQuantity(ctx, &UpdateQuantityRequest{UserID: 2, CartItemID: added.Item.ID, Quantity: 1})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = client.RemoveItem(ctx, &RemoveItemRequest{UserID: 1, CartItemID: 999})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.Checkout(ctx, &UserRequest{UserID: 2})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestGRPC_RequiresUser(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "10.00", 5)
	client := newGRPCClient(t, f)
	ctx := context.Background()

	calls := map[string]func(userID int64) error{
		"AddToCart": func(id int64) error {
			_, err := client.AddToCart(ctx, &AddToCartRequest{UserID: id, ProductID: p.ID, Quantity: 1})
			return err
		},
		"UpdateQuantity": func(id int64) error {
			_, err := client.UpdateQuantity(ctx, &UpdateQuantityRequest{UserID: id, CartItemID: 1, Quantity: 1})
			return err
		},
		"RemoveItem": func(id int64) error {
			_, err := client.RemoveItem(ctx, &RemoveItemRequest{UserID: id, CartItemID: 1})
			return err
		},
		"ClearCart": func(id int64) error {
			_, err := client.ClearCart(ctx, &UserRequest{UserID: id})
			return err
		},
		"Checkout": func(id int64) error {
			_, err := client.Checkout(ctx, &UserRequest{UserID: id})
			return err
		},
		"CancelOrder": func(id int64) error {
			_, err := client.CancelOrder(ctx, &CancelOrderRequest{UserID: id, SaleID: 1})
			return err
		},
		"ListOrders": func(id int64) error {
			_, err := client.ListOrders(ctx, &UserRequest{UserID: id})
			return err
		},
	}

	for name, call := range calls {
		for _, id := range []int64{0, -3} {
			assert.Equal(t, codes.Unauthenticated, status.Code(call(id)), "%s user %d", name, id)
		}
	}

	got, err := f.store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StockQuantity)
}

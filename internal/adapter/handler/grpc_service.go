package handler

import (
	"context"

	"google.golang.org/grpc"
)

const cartServiceName = "stockcart.v1.CartService"

type AddToCartRequest struct {
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequest struct {
	UserID     int64 `json:"user_id"`
	CartItemID int64 `json:"cart_item_id"`
	Quantity   int   `json:"quantity"`
}

type RemoveItemRequest struct {
	UserID     int64 `json:"user_id"`
	CartItemID int64 `json:"cart_item_id"`
}

type UserRequest struct {
	UserID int64 `json:"user_id"`
}

type CancelOrderRequest struct {
	UserID int64 `json:"user_id"`
	SaleID int64 `json:"sale_id"`
}

type CartItemReply struct {
	Item *CartItemDTO `json:"item"`
}

type AckReply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type CheckoutReply struct {
	Total string `json:"total"`
}

type ListOrdersReply struct {
	Orders []SaleDTO `json:"orders"`
}

// CartServiceServer is the server API for stockcart.v1.CartService.
type CartServiceServer interface {
	AddToCart(context.Context, *AddToCartRequest) (*CartItemReply, error)
	UpdateQuantity(context.Context, *UpdateQuantityRequest) (*CartItemReply, error)
	RemoveItem(context.Context, *RemoveItemRequest) (*AckReply, error)
	ClearCart(context.Context, *UserRequest) (*AckReply, error)
	Checkout(context.Context, *UserRequest) (*CheckoutReply, error)
	CancelOrder(context.Context, *CancelOrderRequest) (*AckReply, error)
	ListOrders(context.Context, *UserRequest) (*ListOrdersReply, error)
}

func RegisterCartServiceServer(s grpc.ServiceRegistrar, srv CartServiceServer) {
	s.RegisterService(&cartServiceDesc, srv)
}

var cartServiceDesc = grpc.ServiceDesc{
	ServiceName: cartServiceName,
	HandlerType: (*CartServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("AddToCart", CartServiceServer.AddToCart),
		unaryMethod("UpdateQuantity", CartServiceServer.UpdateQuantity),
		unaryMethod("RemoveItem", CartServiceServer.RemoveItem),
		unaryMethod("ClearCart", CartServiceServer.ClearCart),
		unaryMethod("Checkout", CartServiceServer.Checkout),
		unaryMethod("CancelOrder", CartServiceServer.CancelOrder),
		unaryMethod("ListOrders", CartServiceServer.ListOrders),
	},
	Streams: []grpc.StreamDesc{},
}

func unaryMethod[Req, Resp any](name string, call func(CartServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + cartServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CartServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CartServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// CartServiceClient calls stockcart.v1.CartService with the JSON codec.
type CartServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCartServiceClient(cc grpc.ClientConnInterface) *CartServiceClient {
	return &CartServiceClient{cc: cc}
}

func (c *CartServiceClient) AddToCart(ctx context.Context, in *AddToCartRequest, opts ...grpc.CallOption) (*CartItemReply, error) {
	return invoke[CartItemReply](ctx, c.cc, "AddToCart", in, opts)
}

func (c *CartServiceClient) UpdateQuantity(ctx context.Context, in *UpdateQuantityRequest, opts ...grpc.CallOption) (*CartItemReply, error) {
	return invoke[CartItemReply](ctx, c.cc, "UpdateQuantity", in, opts)
}

func (c *CartServiceClient) RemoveItem(ctx context.Context, in *RemoveItemRequest, opts ...grpc.CallOption) (*AckReply, error) {
	return invoke[AckReply](ctx, c.cc, "RemoveItem", in, opts)
}

func (c *CartServiceClient) ClearCart(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*AckReply, error) {
	return invoke[AckReply](ctx, c.cc, "ClearCart", in, opts)
}

func (c *CartServiceClient) Checkout(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*CheckoutReply, error) {
	return invoke[CheckoutReply](ctx, c.cc, "Checkout", in, opts)
}

func (c *CartServiceClient) CancelOrder(ctx context.Context, in *CancelOrderRequest, opts ...grpc.CallOption) (*AckReply, error) {
	return invoke[AckReply](ctx, c.cc, "CancelOrder", in, opts)
}

func (c *CartServiceClient) ListOrders(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*ListOrdersReply, error) {
	return invoke[ListOrdersReply](ctx, c.cc, "ListOrders", in, opts)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+cartServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

package handler

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/stockcart/internal/core/service"
)

type GRPCHandler struct {
	carts    *service.CartService
	checkout *service.CheckoutService
	logger   *zap.Logger
}

func NewGRPCHandler(carts *service.CartService, checkout *service.CheckoutService, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{
		carts:    carts,
		checkout: checkout,
		logger:   logger,
	}
}

func (h *GRPCHandler) AddToCart(ctx context.Context, req *AddToCartRequest) (*CartItemReply, error) {
	if err := requireUserID(req.UserID); err != nil {
		return nil, err
	}
	item, err := h.carts.AddToCart(ctx, req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &CartItemReply{Item: toCartItemDTO(item)}, nil
}

func (h *GRPCHandler) UpdateQuantity(ctx context.Context, req *UpdateQuantityRequest) (*CartItemReply, error) {
	if err := requireUserID(req.UserID); err != nil {
		return nil, err
	}
	item, err := h.carts.UpdateQuantity(ctx, req.CartItemID, req.Quantity, req.UserID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &CartItemReply{Item: toCartItemDTO(item)}, nil
}

func (h *GRPCHandler) RemoveItem(ctx context.Context, req *RemoveItemRequest) (*AckReply, error) {
	if err := requireUserID(req.UserID); err != nil {
		return nil, err
	}
	if err := h.carts.RemoveItem(ctx, req.CartItemID, req.UserID); err != nil {
		return nil, h.toStatus(err)
	}
	return &AckReply{Success: true, Message: "item removed"}, nil
}

func (h *GRPCHandler) ClearCart(ctx context.Context, req *UserRequest) (*AckReply, error) {
	if err := requireUserID(req.UserID); err != nil {
		return nil, err
	}
	if err := h.carts.ClearCart(ctx, req.UserID); err != nil {
		return nil, h.toStatus(err)
	}
	return &AckReply{Success: true, Message: "cart cleared"}, nil
}

func (h *GRPCHandler) Checkout(ctx context.Context, req *UserRequest) (*CheckoutReply, error) {
	if err := requireUserID(req.UserID); err != nil {
		return nil, err
	}
	total, err := h.checkout.ProcessCheckout(ctx, req.UserID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &CheckoutReply{Total: total.StringFixed(2)}, nil
}

func (h *GRPCHandler) CancelOrder(ctx context.Context, req *CancelOrderRequest) (*AckReply, error) {
	if err := requireUserID(req.UserID); err != nil {
		return nil, err
	}
	if err := h.checkout.CancelOrder(ctx, req.SaleID, req.UserID); err != nil {
		return nil, h.toStatus(err)
	}
	return &AckReply{Success: true, Message: "order cancelled"}, nil
}

func (h *GRPCHandler) ListOrders(ctx context.Context, req *UserRequest) (*ListOrdersReply, error) {
	if err := requireUserID(req.UserID); err != nil {
		return nil, err
	}
	sales, err := h.checkout.GetUserOrders(ctx, req.UserID)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &ListOrdersReply{Orders: toSaleDTOs(sales)}, nil
}

// requireUserID rejects calls that carry no resolved caller identity.
func requireUserID(userID int64) error {
	if userID <= 0 {
		return status.Error(codes.Unauthenticated, "missing user")
	}
	return nil
}

func (h *GRPCHandler) toStatus(err error) error {
	code := grpcCode(err)
	if code == codes.Internal {
		h.logger.Error("rpc failed", zap.Error(err))
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}

func grpcCode(err error) codes.Code {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return codes.InvalidArgument
	case errors.Is(err, service.ErrUnauthorized):
		return codes.PermissionDenied
	case errors.Is(err, service.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, service.ErrInsufficientStock):
		return codes.ResourceExhausted
	case errors.Is(err, service.ErrProductUnavailable):
		return codes.Aborted
	case errors.Is(err, service.ErrEmptyCart), errors.Is(err, service.ErrExpired):
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

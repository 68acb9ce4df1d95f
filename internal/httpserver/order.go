package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/radiant_bloom/internal/service"
	"github.com/Skotchmaster/radiant_bloom/internal/transport"
	"github.com/Skotchmaster/radiant_bloom/pkg/logging"
	authmw "github.com/Skotchmaster/radiant_bloom/pkg/middleware/auth"
	"github.com/Skotchmaster/radiant_bloom/pkg/response"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	var req transport.CreateOrderRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "create_order_error", err)
	}

	order, err := h.Svc.CreateOrder(ctx, authmw.CurrentAccount(c), req)
	if err != nil {
		return fail(l, "create_order_error", err)
	}

	l.Info("create_order_success", "order_number", order.OrderNumber)
	return response.Created(c, order, "Order created successfully")
}

func (h *OrderHTTP) ListMyOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_mine")

	pg := pageFrom(c)
	total, orders, err := h.Svc.ListMyOrders(ctx, authmw.CurrentAccount(c), c.QueryParam("status"), pg.Offset, pg.Limit)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return paginated(c, orders, pg, total)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "get_order_error", err)
	}

	order, err := h.Svc.GetOrder(ctx, authmw.CurrentAccount(c), id)
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	return response.OK(c, order, "")
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel_order")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "cancel_order_error", err)
	}

	order, err := h.Svc.CancelOrder(ctx, authmw.CurrentAccount(c), id)
	if err != nil {
		return fail(l, "cancel_order_error", err)
	}

	l.Info("cancel_order_success", "order_id", id)
	return response.OK(c, order, "Order cancelled successfully")
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_all")

	from, err := queryDate(c, "startDate", false)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	to, err := queryDate(c, "endDate", true)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}

	pg := pageFrom(c)
	total, orders, err := h.Svc.ListOrders(ctx, transport.OrderListFilter{
		Status:        c.QueryParam("status"),
		PaymentStatus: c.QueryParam("paymentStatus"),
		From:          from,
		To:            to,
		Search:        c.QueryParam("search"),
	}, pg.Offset, pg.Limit)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return paginated(c, orders, pg, total)
}

func (h *OrderHTTP) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.stats")

	from, err := queryDate(c, "startDate", false)
	if err != nil {
		return fail(l, "order_stats_error", err)
	}
	to, err := queryDate(c, "endDate", true)
	if err != nil {
		return fail(l, "order_stats_error", err)
	}

	stats, err := h.Svc.Stats(ctx, from, to)
	if err != nil {
		return fail(l, "order_stats_error", err)
	}
	return response.OK(c, stats, "")
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "update_status_error", err)
	}
	var req transport.UpdateOrderStatusRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_status_error", err)
	}

	order, err := h.Svc.UpdateStatus(ctx, id, req)
	if err != nil {
		return fail(l, "update_status_error", err)
	}

	l.Info("update_status_success", "order_id", id, "order_status", order.Status)
	return response.OK(c, order, "Order status updated successfully")
}

func (h *OrderHTTP) UpdatePaymentStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_payment")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "update_payment_error", err)
	}
	var req transport.UpdatePaymentStatusRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_payment_error", err)
	}

	order, err := h.Svc.UpdatePaymentStatus(ctx, id, req.PaymentStatus)
	if err != nil {
		return fail(l, "update_payment_error", err)
	}
	return response.OK(c, order, "Payment status updated successfully")
}

func (h *OrderHTTP) AcceptOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.accept")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "accept_order_error", err)
	}

	res, err := h.Svc.AcceptOrder(ctx, id)
	if err != nil {
		return fail(l, "accept_order_error", err)
	}

	l.Info("accept_order_success", "order_id", id)
	return response.OK(c, res, "Order accepted successfully")
}

func (h *OrderHTTP) DeclineOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.decline")

	id, err := pathID(c, "id")
	if err != nil {
		return fail(l, "decline_order_error", err)
	}
	var req transport.DeclineOrderRequest
	if c.Request().ContentLength != 0 {
		if err := bind(c, &req); err != nil {
			return fail(l, "decline_order_error", err)
		}
	}

	res, err := h.Svc.DeclineOrder(ctx, id, req.Reason)
	if err != nil {
		return fail(l, "decline_order_error", err)
	}

	l.Info("decline_order_success", "order_id", id)
	return response.OK(c, res, "Order declined successfully")
}

package handler

import (
	"errors"
	"net/http"

	"go-raffle-engine/internal/model"
	"go-raffle-engine/internal/service"
	apperrors "go-raffle-engine/pkg/app_errors"
	"go-raffle-engine/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(service service.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

func (h *OrderHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("orders", h.CreateOrder)
		router.GET("orders/:id", h.GetOrder)
		router.GET("users/:id/orders", h.GetUserOrders)
		router.PUT("orders/:id/cancel", h.CancelOrder)
	}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var orderReq model.CreateOrderRequest

	if err := BindJson(c, &orderReq); err != nil {
		return
	}

	created, err := h.service.PlaceOrder(c, orderReq)
	if err != nil {
		h.handleOrderError(c, err, "CreateOrder")
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "order")
	if !ok {
		return
	}

	order, err := h.service.GetOrder(c, id)
	if err != nil {
		h.handleOrderError(c, err, "GetOrder")
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetUserOrders(c *gin.Context) {
	userID, ok := parseIDParam(c, "id", "user")
	if !ok {
		return
	}

	orders, err := h.service.ListUserOrders(c, userID)
	if err != nil {
		h.handleOrderError(c, err, "GetUserOrders")
		return
	}

	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "order")
	if !ok {
		return
	}

	if err := h.service.CancelOrder(c, id); err != nil {
		h.handleOrderError(c, err, "CancelOrder")
		return
	}

	c.Status(http.StatusOK)
}

func (h *OrderHandler) handleOrderError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrInsufficientInventory):
		log.Warn("Insufficient inventory")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Insufficient inventory",
		})
	case errors.Is(err, apperrors.ErrRaffleNotActive):
		log.Warn("Raffle not active")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Raffle not active",
		})
	case errors.Is(err, apperrors.ErrInvalidOrderStatus):
		log.Warn("Invalid order status")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Invalid order status",
		})
	case errors.Is(err, apperrors.ErrRaffleNotFound):
		log.Warn("Raffle not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Raffle not found",
		})
	case errors.Is(err, apperrors.ErrOrderNotFound):
		log.Warn("Order not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Order not found",
		})
	case errors.Is(err, apperrors.ErrUserNotFound):
		log.Warn("User not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "User not found",
		})
	case errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid input",
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}

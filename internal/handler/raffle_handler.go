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

type RaffleHandler struct {
	service service.RaffleService
	prizes  service.PrizeService
}

func NewRaffleHandler(service service.RaffleService, prizes service.PrizeService) *RaffleHandler {
	return &RaffleHandler{service: service, prizes: prizes}
}

func (h *RaffleHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("raffles", h.List)
		router.GET("raffles/:id", h.GetByID)
		router.GET("raffles/:id/counts", h.GetCounts)
		router.GET("raffles/:id/users/:user_id/numbers", h.GetUserNumbers)
		router.POST("raffles", h.Create)
		router.PUT("raffles/:id/activate", h.Activate)
		router.PUT("raffles/:id/expand", h.Expand)
		router.DELETE("raffles/:id", h.Delete)

		router.GET("raffles/:id/prize-numbers", h.ListPrizeNumbers)
		router.POST("raffles/:id/prize-numbers", h.AddPrizeNumber)
	}
}

func (h *RaffleHandler) List(c *gin.Context) {
	raffles, err := h.service.ListActive(c)
	if err != nil {
		h.handleError(c, err, "List")
		return
	}
	c.JSON(http.StatusOK, raffles)
}

func (h *RaffleHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "raffle")
	if !ok {
		return
	}
	raffle, err := h.service.GetByID(c, id)
	if err != nil {
		h.handleError(c, err, "GetByID")
		return
	}
	c.JSON(http.StatusOK, raffle)
}

func (h *RaffleHandler) GetCounts(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "raffle")
	if !ok {
		return
	}
	counts, err := h.service.GetCounts(c, id)
	if err != nil {
		h.handleError(c, err, "GetCounts")
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *RaffleHandler) GetUserNumbers(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "raffle")
	if !ok {
		return
	}
	userID, ok := parseIDParam(c, "user_id", "user")
	if !ok {
		return
	}
	numbers, err := h.service.GetUserNumbers(c, id, userID)
	if err != nil {
		h.handleError(c, err, "GetUserNumbers")
		return
	}
	c.JSON(http.StatusOK, numbers)
}

func (h *RaffleHandler) Create(c *gin.Context) {
	var req model.CreateRaffleRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	created, err := h.service.Create(c, req)
	if err != nil {
		h.handleError(c, err, "Create")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *RaffleHandler) Activate(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "raffle")
	if !ok {
		return
	}
	if err := h.service.Activate(c, id); err != nil {
		h.handleError(c, err, "Activate")
		return
	}
	c.Status(http.StatusOK)
}

func (h *RaffleHandler) Expand(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "raffle")
	if !ok {
		return
	}
	var req model.ExpandRaffleRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	expanded, err := h.service.Expand(c, id, req.AdditionalNumbers)
	if err != nil {
		h.handleError(c, err, "Expand")
		return
	}
	c.JSON(http.StatusOK, expanded)
}

func (h *RaffleHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "raffle")
	if !ok {
		return
	}
	if err := h.service.Delete(c, id); err != nil {
		h.handleError(c, err, "Delete")
		return
	}
	c.Status(http.StatusOK)
}

func (h *RaffleHandler) ListPrizeNumbers(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "raffle")
	if !ok {
		return
	}
	prizeNumbers, err := h.prizes.ListByRaffle(c, id)
	if err != nil {
		h.handleError(c, err, "ListPrizeNumbers")
		return
	}
	c.JSON(http.StatusOK, prizeNumbers)
}

func (h *RaffleHandler) AddPrizeNumber(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "raffle")
	if !ok {
		return
	}
	var req model.CreatePrizeNumberRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	created, err := h.prizes.AddPrizeNumber(c, id, req)
	if err != nil {
		h.handleError(c, err, "AddPrizeNumber")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *RaffleHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrRaffleNotFound):
		log.Warn("Raffle not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Raffle not found"})
	case errors.Is(err, apperrors.ErrRaffleNotActive):
		log.Warn("Raffle not active")
		c.JSON(http.StatusConflict, gin.H{"error": "Raffle not active"})
	case errors.Is(err, apperrors.ErrRaffleHasOrders):
		log.Warn("Raffle has orders")
		c.JSON(http.StatusConflict, gin.H{"error": "Raffle has orders"})
	case errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

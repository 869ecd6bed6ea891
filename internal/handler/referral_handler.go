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

type ReferralHandler struct {
	service service.ReferralService
}

func NewReferralHandler(service service.ReferralService) *ReferralHandler {
	return &ReferralHandler{service: service}
}

func (h *ReferralHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("referrals/:code", h.GetByCode)
		router.POST("referrals/:code/click", h.RegisterClick)
		router.POST("referrals/:code/redeem", h.Redeem)
		router.GET("users/:id/referrals", h.ListByInviter)
	}
}

func (h *ReferralHandler) GetByCode(c *gin.Context) {
	referral, err := h.service.GetByCode(c, c.Param("code"))
	if err != nil {
		h.handleError(c, err, "GetByCode")
		return
	}
	c.JSON(http.StatusOK, referral)
}

func (h *ReferralHandler) RegisterClick(c *gin.Context) {
	referral, err := h.service.RegisterClick(c, c.Param("code"))
	if err != nil {
		h.handleError(c, err, "RegisterClick")
		return
	}
	c.JSON(http.StatusOK, referral)
}

func (h *ReferralHandler) Redeem(c *gin.Context) {
	var req model.RedeemReferralRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	referral, err := h.service.Redeem(c, c.Param("code"), req.UserID)
	if err != nil {
		h.handleError(c, err, "Redeem")
		return
	}
	c.JSON(http.StatusOK, referral)
}

func (h *ReferralHandler) ListByInviter(c *gin.Context) {
	inviterID, ok := parseIDParam(c, "id", "user")
	if !ok {
		return
	}
	referrals, err := h.service.ListByInviter(c, inviterID)
	if err != nil {
		h.handleError(c, err, "ListByInviter")
		return
	}
	c.JSON(http.StatusOK, referrals)
}

func (h *ReferralHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrReferralNotFound):
		log.Warn("Referral not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Referral not found"})
	case errors.Is(err, apperrors.ErrInvalidReferralState):
		log.Warn("Referral cannot be redeemed")
		c.JSON(http.StatusConflict, gin.H{"error": "Referral cannot be redeemed"})
	case errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

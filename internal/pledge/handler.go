package pledge

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sunny18-max/crowdfunding-sub001/internal/api"
	"github.com/sunny18-max/crowdfunding-sub001/internal/auth"
	"github.com/sunny18-max/crowdfunding-sub001/internal/db"
	"github.com/sunny18-max/crowdfunding-sub001/internal/wallet"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// @Summary      Pledge to a campaign
// @Description  Debits the wallet and credits the campaign atomically
// @Tags         pledges
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body pledge.CreatePledgeRequest true "Pledge payload"
// @Success      201 {object} pledge.Result
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Failure      422 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /pledges [post]
func (h *Handler) Create(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req CreatePledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Code: api.CodeInvalidAmount, Error: err.Error()})
		return
	}

	result, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Code: api.CodeInvalidAmount, Error: "amount_cents must be positive"})
		case errors.Is(err, ErrInsufficientFunds):
			c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Code: api.CodeInsufficientFunds, Error: "insufficient wallet balance"})
		case errors.Is(err, ErrCampaignNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "campaign not found"})
		case errors.Is(err, ErrCampaignNotActive):
			c.JSON(http.StatusConflict, api.ErrorResponse{Code: api.CodeCampaignNotActive, Error: "campaign is not accepting pledges"})
		case errors.Is(err, db.ErrTxConflict):
			c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Code: api.CodeTxConflict, Error: "conflicting update, retry the pledge"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Code: api.CodeStoreUnavailable, Error: "failed to create pledge"})
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

// @Summary      List my pledges
// @Tags         pledges
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} pledge.PledgeWithCampaign
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /pledges [get]
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	pledges, err := h.service.ListMine(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Code: api.CodeStoreUnavailable, Error: "failed to load pledges"})
		return
	}

	c.JSON(http.StatusOK, pledges)
}

// @Summary      List pledges for a campaign
// @Tags         admin,pledges
// @Produce      json
// @Security     BearerAuth
// @Param        campaignID path int true "Campaign ID"
// @Success      200 {array} pledge.Pledge
// @Failure      400 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /admin/campaigns/{campaignID}/pledges [get]
func (h *Handler) ListByCampaign(c *gin.Context) {
	campaignID, err := strconv.Atoi(c.Param("campaignID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid campaign ID"})
		return
	}

	pledges, err := h.service.ListByCampaign(c.Request.Context(), campaignID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Code: api.CodeStoreUnavailable, Error: "failed to load pledges"})
		return
	}

	c.JSON(http.StatusOK, pledges)
}

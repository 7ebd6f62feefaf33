package campaign

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sunny18-max/crowdfunding-sub001/internal/api"
	"github.com/sunny18-max/crowdfunding-sub001/internal/auth"
	"github.com/sunny18-max/crowdfunding-sub001/internal/ledger"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// @Summary      Create a campaign
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body campaign.CreateCampaignRequest true "Campaign payload"
// @Success      201 {object} campaign.Campaign
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /campaigns [post]
func (h *Handler) Create(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	campaign, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidGoal), errors.Is(err, ErrInvalidDeadline):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Code: api.CodeStoreUnavailable, Error: "failed to create campaign"})
		}
		return
	}

	c.JSON(http.StatusCreated, campaign)
}

// @Summary      List campaigns
// @Tags         campaigns
// @Produce      json
// @Security     BearerAuth
// @Param        status query string false "Filter by status"
// @Success      200 {array} campaign.Campaign
// @Failure      500 {object} api.ErrorResponse
// @Router       /campaigns [get]
func (h *Handler) List(c *gin.Context) {
	campaigns, err := h.service.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Code: api.CodeStoreUnavailable, Error: "failed to fetch campaigns"})
		return
	}

	c.JSON(http.StatusOK, campaigns)
}

// @Summary      Get a campaign
// @Tags         campaigns
// @Produce      json
// @Security     BearerAuth
// @Param        campaignID path int true "Campaign ID"
// @Success      200 {object} campaign.Campaign
// @Failure      404 {object} api.ErrorResponse
// @Router       /campaigns/{campaignID} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("campaignID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid campaign ID"})
		return
	}

	campaign, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "campaign not found"})
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// @Summary      Campaign funding stats
// @Description  Read-model recomputed from pledges; eventually consistent
// @Tags         campaigns
// @Produce      json
// @Security     BearerAuth
// @Param        campaignID path int true "Campaign ID"
// @Success      200 {object} campaign.Stats
// @Failure      404 {object} api.ErrorResponse
// @Router       /campaigns/{campaignID}/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("campaignID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid campaign ID"})
		return
	}

	stats, err := h.service.GetStats(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "campaign not found"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// @Summary      Mark a campaign failed and refund backers
// @Tags         admin,campaigns
// @Produce      json
// @Security     BearerAuth
// @Param        campaignID path int true "Campaign ID"
// @Success      200 {object} ledger.SettlementSummary
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /admin/campaigns/{campaignID}/fail [post]
func (h *Handler) Fail(c *gin.Context) {
	h.transition(c, h.service.Fail)
}

// @Summary      Cancel a campaign and refund backers
// @Tags         admin,campaigns
// @Produce      json
// @Security     BearerAuth
// @Param        campaignID path int true "Campaign ID"
// @Success      200 {object} ledger.SettlementSummary
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /admin/campaigns/{campaignID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, id int) (*ledger.SettlementSummary, error)) {
	id, err := strconv.Atoi(c.Param("campaignID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid campaign ID"})
		return
	}

	summary, err := fn(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrCampaignNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "campaign not found"})
		case errors.Is(err, ErrNotActive):
			c.JSON(http.StatusConflict, api.ErrorResponse{Code: api.CodeCampaignNotActive, Error: "campaign is not active"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Code: api.CodeStoreUnavailable, Error: "settlement failed"})
		}
		return
	}

	c.JSON(http.StatusOK, summary)
}

// @Summary      Mark a campaign successful and release funds
// @Tags         admin,campaigns
// @Produce      json
// @Security     BearerAuth
// @Param        campaignID path int true "Campaign ID"
// @Success      200 {object} ledger.FundRelease
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /admin/campaigns/{campaignID}/complete [post]
func (h *Handler) Complete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("campaignID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid campaign ID"})
		return
	}

	release, err := h.service.Complete(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrCampaignNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "campaign not found"})
		case errors.Is(err, ErrNotActive):
			c.JSON(http.StatusConflict, api.ErrorResponse{Code: api.CodeCampaignNotActive, Error: "campaign is not active"})
		case errors.Is(err, ledger.ErrAlreadyReleased):
			c.JSON(http.StatusConflict, api.ErrorResponse{Code: api.CodeAlreadyReleased, Error: "campaign funds already released"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Code: api.CodeStoreUnavailable, Error: "fund release failed"})
		}
		return
	}

	c.JSON(http.StatusOK, release)
}

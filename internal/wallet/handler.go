package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sunny18-max/crowdfunding-sub001/internal/api"
	"github.com/sunny18-max/crowdfunding-sub001/internal/auth"
	"github.com/sunny18-max/crowdfunding-sub001/internal/metrics"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// @Summary      Get wallet balance
// @Tags         wallet
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} wallet.Wallet
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /wallet [get]
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	w, err := h.repo.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Code: api.CodeStoreUnavailable, Error: "failed to load wallet"})
		return
	}

	c.JSON(http.StatusOK, w)
}

// @Summary      Top up wallet
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body wallet.TopUpRequest true "Top-up payload"
// @Success      200 {object} wallet.Wallet
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /wallet/topup [post]
func (h *Handler) TopUp(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Code: api.CodeInvalidAmount, Error: "amount_cents must be positive"})
		return
	}

	w, err := h.repo.TopUp(c.Request.Context(), userID, req.AmountCents)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Code: api.CodeInvalidAmount, Error: "amount_cents must be positive"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Code: api.CodeStoreUnavailable, Error: "failed to top up wallet"})
		return
	}

	metrics.WalletTopUpsTotal.Inc()

	c.JSON(http.StatusOK, w)
}

// @Summary      Withdraw from wallet
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body wallet.WithdrawRequest true "Withdrawal payload"
// @Success      200 {object} wallet.Wallet
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      422 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /wallet/withdraw [post]
func (h *Handler) Withdraw(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Code: api.CodeInvalidAmount, Error: "amount_cents must be positive"})
		return
	}

	w, err := h.repo.Withdraw(c.Request.Context(), userID, req.AmountCents)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Code: api.CodeInvalidAmount, Error: "amount_cents must be positive"})
		case errors.Is(err, ErrInsufficientFunds):
			c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Code: api.CodeInsufficientFunds, Error: "insufficient wallet balance"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Code: api.CodeStoreUnavailable, Error: "failed to withdraw"})
		}
		return
	}

	c.JSON(http.StatusOK, w)
}

// @Summary      Verify a user's wallet against its ledger
// @Description  Admin-only: cross-check the stored balance with the transaction log
// @Tags         admin,wallet
// @Produce      json
// @Security     BearerAuth
// @Param        userID path int true "User ID"
// @Success      200 {object} api.MessageResponse
// @Failure      400 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /admin/wallets/{userID}/verify [get]
func (h *Handler) Verify(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid user ID"})
		return
	}

	if err := h.repo.VerifyBalance(c.Request.Context(), userID); err != nil {
		if errors.Is(err, ErrInvariantViolation) {
			metrics.RecordInvariantViolation("wallet")
			c.JSON(http.StatusConflict, api.ErrorResponse{Code: api.CodeInvariantViolation, Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Code: api.CodeStoreUnavailable, Error: "failed to verify wallet"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "wallet balance matches ledger"})
}

// @Summary      List wallet transactions
// @Tags         wallet
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Page size"
// @Param        offset query int false "Offset"
// @Success      200 {array} wallet.Transaction
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /wallet/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	txs, err := h.repo.GetTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Code: api.CodeStoreUnavailable, Error: "failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, txs)
}

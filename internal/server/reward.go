package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	rewarddomain "github.com/smallbiznis/perks/internal/reward/domain"
	"github.com/smallbiznis/perks/pkg/db/pagination"
)

type mutatePointsRequest struct {
	AccountID        string         `json:"account_id"`
	Amount           int64          `json:"amount"`
	Source           string         `json:"source"`
	Description      string         `json:"description"`
	Metadata         map[string]any `json:"metadata"`
	RelatedEventID   string         `json:"related_event_id"`
	RelatedPaymentID string         `json:"related_payment_id"`
}

func (s *Server) GetRewardDashboard(c *gin.Context) {
	accountID := strings.TrimSpace(c.Param("accountId"))
	resp, err := s.rewardSvc.Dashboard(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRewardHistory(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.rewardSvc.History(c.Request.Context(), rewarddomain.HistoryRequest{
		AccountID: strings.TrimSpace(c.Param("accountId")),
		Limit:     query.Limit,
		Offset:    query.Offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRewardStats(c *gin.Context) {
	accountID := strings.TrimSpace(c.Param("accountId"))
	resp, err := s.rewardSvc.Stats(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddPoints(c *gin.Context) {
	req, err := s.bindMutation(c, rewarddomain.SourceAdminAdjustment)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.rewardSvc.AddPoints(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeductPoints(c *gin.Context) {
	req, err := s.bindMutation(c, rewarddomain.SourceAdminAdjustment)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.rewardSvc.DeductPoints(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// RedeemPoints is the manual redemption path. The source is always partner
// redemption regardless of what the body says.
func (s *Server) RedeemPoints(c *gin.Context) {
	req, err := s.bindMutation(c, rewarddomain.SourcePartnerRedemption)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	req.Source = rewarddomain.SourcePartnerRedemption

	resp, err := s.rewardSvc.DeductPoints(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) bindMutation(c *gin.Context, defaultSource rewarddomain.Source) (rewarddomain.MutationRequest, error) {
	var req mutatePointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return rewarddomain.MutationRequest{}, invalidRequestError()
	}

	source := rewarddomain.Source(strings.TrimSpace(req.Source))
	if source == "" {
		source = defaultSource
	}

	relatedEventID, err := parseOptionalSnowflakeID(req.RelatedEventID)
	if err != nil {
		return rewarddomain.MutationRequest{}, newValidationError("related_event_id", "invalid_related_event_id", "invalid related_event_id")
	}
	relatedPaymentID, err := parseOptionalSnowflakeID(req.RelatedPaymentID)
	if err != nil {
		return rewarddomain.MutationRequest{}, newValidationError("related_payment_id", "invalid_related_payment_id", "invalid related_payment_id")
	}

	return rewarddomain.MutationRequest{
		AccountID:        strings.TrimSpace(req.AccountID),
		Amount:           req.Amount,
		Source:           source,
		Description:      strings.TrimSpace(req.Description),
		Metadata:         req.Metadata,
		RelatedEventID:   relatedEventID,
		RelatedPaymentID: relatedPaymentID,
	}, nil
}

func isRewardValidationError(err error) bool {
	switch err {
	case rewarddomain.ErrInvalidAccountID,
		rewarddomain.ErrInvalidAmount,
		rewarddomain.ErrInvalidSource,
		rewarddomain.ErrInvalidDescription:
		return true
	default:
		return false
	}
}

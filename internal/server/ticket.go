package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	rewarddomain "github.com/smallbiznis/perks/internal/reward/domain"
)

type confirmTicketRequest struct {
	AccountID    string `json:"account_id"`
	TicketAmount int64  `json:"ticket_amount"`
	TicketCount  int    `json:"ticket_count"`
	TierLabel    string `json:"tier_label"`
	EventID      string `json:"event_id"`
	PaymentID    string `json:"payment_id"`
}

// ConfirmTicketPurchase is called after a ticket payment settles. It credits
// the earn-policy points; a computed zero is a success with no entry.
func (s *Server) ConfirmTicketPurchase(c *gin.Context) {
	var req confirmTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	eventID, err := parseOptionalSnowflakeID(req.EventID)
	if err != nil {
		AbortWithError(c, newValidationError("event_id", "invalid_event_id", "invalid event_id"))
		return
	}
	paymentID, err := parseOptionalSnowflakeID(req.PaymentID)
	if err != nil {
		AbortWithError(c, newValidationError("payment_id", "invalid_payment_id", "invalid payment_id"))
		return
	}

	resp, err := s.rewardSvc.ConfirmTicketPurchase(c.Request.Context(), rewarddomain.TicketPurchaseRequest{
		AccountID:    strings.TrimSpace(req.AccountID),
		TicketAmount: req.TicketAmount,
		TicketCount:  req.TicketCount,
		TierLabel:    strings.TrimSpace(req.TierLabel),
		EventID:      eventID,
		PaymentID:    paymentID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

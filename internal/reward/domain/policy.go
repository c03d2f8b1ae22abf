package domain

import "math"

// TicketPoints computes reward points for a ticket purchase: floor of
// ticketAmount * rate. With the default 0.005 rate, purchases under 200
// currency units earn nothing, which is intentional.
func TicketPoints(ticketAmount int64, rate float64) int64 {
	if ticketAmount <= 0 || rate <= 0 {
		return 0
	}
	return int64(math.Floor(float64(ticketAmount) * rate))
}

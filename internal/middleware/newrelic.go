package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicAttributes tags the nrgin transaction with the resolved actor and the ride being
// touched, and reports handler errors on it. It is a no-op when New Relic is disabled.
func NewRelicAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		if actor := ActorFrom(c); actor.ID != "" {
			txn.AddAttribute("actor.id", actor.ID)
			txn.AddAttribute("actor.role", string(actor.Role))
		}
		if rideID := c.Param("id"); rideID != "" {
			txn.AddAttribute("ride.id", rideID)
		}

		c.Next()

		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}

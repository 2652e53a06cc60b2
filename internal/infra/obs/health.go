package obs

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandlers serves liveness and readiness probes. Readiness delegates
// to whatever check the composition root wires in (storage ping, broker
// reachability); liveness only proves the process is serving.
type HealthHandlers struct {
	Ready func() error
}

func (h HealthHandlers) Livez(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (h HealthHandlers) Readyz(c *gin.Context) {
	if h.Ready != nil {
		if err := h.Ready(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

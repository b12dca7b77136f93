package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
)

// monitorOffer answers a browser's SDP offer with a stream of the monitor mix
func (s *Server) monitorOffer(c *gin.Context) {
	if s.monitor == nil {
		s.writeError(c, ErrUnavailable)
		return
	}
	var offer webrtc.SessionDescription
	if err := c.ShouldBindJSON(&offer); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid SDP offer"})
		return
	}
	answer, err := s.monitor.Answer(c.Request.Context(), offer)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

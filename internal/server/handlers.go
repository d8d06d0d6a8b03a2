package server

import (
	"errors"
	"net/http"

	"tempgen/internal/session"

	"github.com/gin-gonic/gin"
)

// generateEmailHandler provisions a disposable mailbox and starts polling it.
func (s *Server) generateEmailHandler(c *gin.Context) {
	address, err := s.mail.CreateMailbox(c.Request.Context())
	if err != nil {
		s.logger.Error("Email provisioning failed", "error", err,
			"request_id", c.GetString("request_id"))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create temporary email",
		})
		return
	}

	s.sessions.StartEmail(address)
	c.JSON(http.StatusOK, gin.H{"temp_email": address})
}

// getMessagesHandler returns the current state of an email session.
func (s *Server) getMessagesHandler(c *gin.Context) {
	view, err := s.sessions.Status(c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Email not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

// generateNumberHandler provisions a virtual number and starts polling it
// for inbound SMS. country_id defaults to 7.
func (s *Server) generateNumberHandler(c *gin.Context) {
	countryID := c.DefaultQuery("country_id", "7")

	number, err := s.numbers.CountryNumber(c.Request.Context(), countryID)
	if err != nil {
		s.logger.Error("Number provisioning failed", "country_id", countryID,
			"error", err, "request_id", c.GetString("request_id"))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Could not generate virtual phone number",
		})
		return
	}

	sessionID := s.sessions.StartSMS(countryID, number)
	c.JSON(http.StatusOK, gin.H{
		"virtual_phone": number,
		"country_id":    countryID,
		"session_id":    sessionID,
	})
}

// checkSMSHandler returns the current state of an SMS session.
func (s *Server) checkSMSHandler(c *gin.Context) {
	view, err := s.sessions.Status(c.Param("session_id"))
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

// cancelHandler cancels an in-flight session. Idempotent for sessions that
// already reached a terminal state.
func (s *Server) cancelHandler(c *gin.Context) {
	id := c.Param("id")
	if err := s.sessions.Cancel(id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Operation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

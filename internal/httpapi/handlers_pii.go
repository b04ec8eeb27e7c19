package httpapi

import (
	"github.com/gin-gonic/gin"

	"schoolorbit/backend/internal/pii"
)

// nationalID returns the masked national id of a user, and the plaintext as
// well when ?full=1 and the caller holds pii:view. A decrypt failure is a
// hard 500: it means key or data corruption, never bad input.
func (s *Server) nationalID(c *gin.Context) {
	userID := c.Param("userId")
	wantFull := c.Query("full") == "1"

	if wantFull && !s.authorize(c, "pii:view") {
		return
	}

	envelope, err := s.piiRepo.GetNationalIDEnvelope(c.Request.Context(), userID)
	if err != nil {
		respondError(c, 500, "internal error")
		return
	}
	if envelope == "" {
		respondData(c, 200, gin.H{"masked": nil, "full": nil})
		return
	}

	plain, err := s.cipher.Decrypt(envelope)
	if err != nil {
		respondError(c, 500, "decryption failed")
		return
	}

	payload := gin.H{"masked": pii.Mask(plain), "full": nil}
	if wantFull {
		payload["full"] = plain
	}
	respondData(c, 200, payload)
}

package httpapi

import (
	"errors"

	"github.com/gin-gonic/gin"

	"schoolorbit/backend/internal/identity"
	identitydomain "schoolorbit/backend/internal/identity/domain"
	"schoolorbit/backend/internal/session"
)

type loginRequest struct {
	ActorType string `json:"actorType"`
	ID        string `json:"id"`
	Password  string `json:"password"`
}

type authPayload struct {
	UserID string   `json:"userId"`
	Roles  []string `json:"roles"`
	Perms  []string `json:"perms"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, 400, "invalid JSON")
		return
	}
	if req.ActorType == "" || req.ID == "" {
		respondError(c, 400, "missing required fields")
		return
	}
	if req.Password == "" {
		respondError(c, 400, "password is required")
		return
	}
	if !identitydomain.ActorType(req.ActorType).Valid() {
		respondError(c, 400, "invalid actor type")
		return
	}

	res, err := s.identity.Login(c.Request.Context(), identity.LoginInput{
		Actor:    identitydomain.ActorType(req.ActorType),
		ID:       req.ID,
		Password: req.Password,
		Meta: session.ClientMeta{
			UserAgent: c.GetHeader("User-Agent"),
			IP:        c.ClientIP(),
		},
	})
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			respondError(c, 401, "invalid credentials")
			return
		}
		respondError(c, 500, "internal error")
		return
	}

	s.cookies.SetAuth(c, res.AccessToken, res.RefreshCredential, res.CSRFToken)
	respondData(c, 200, authPayload{
		UserID: res.UserID,
		Roles:  emptyIfNil(res.Roles),
		Perms:  emptyIfNil(res.Perms),
	})
}

func (s *Server) refresh(c *gin.Context) {
	credential, err := c.Cookie(cookieRefresh)
	if err != nil || credential == "" {
		respondError(c, 401, "unauthorized")
		return
	}

	res, err := s.identity.Refresh(c.Request.Context(), credential)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredential) {
			s.cookies.Clear(c)
			respondError(c, 401, "unauthorized")
			return
		}
		respondError(c, 500, "internal error")
		return
	}

	s.cookies.SetAuth(c, res.AccessToken, res.RefreshCredential, res.CSRFToken)
	c.Status(204)
}

func (s *Server) logout(c *gin.Context) {
	credential, _ := c.Cookie(cookieRefresh)

	userID := ""
	if cookie, err := c.Cookie(cookieAccess); err == nil {
		if cl, err := s.tokens.Verify(cookie); err == nil {
			userID = cl.Subject
		}
	}

	if credential != "" || userID != "" {
		if err := s.identity.Logout(c.Request.Context(), credential, userID); err != nil {
			respondError(c, 500, "internal error")
			return
		}
	}
	s.cookies.Clear(c)
	c.Status(204)
}

func (s *Server) me(c *gin.Context) {
	cl := claims(c)
	user, err := s.identity.Me(c.Request.Context(), cl.Subject)
	if err != nil {
		respondError(c, 500, "internal error")
		return
	}
	if user == nil {
		respondError(c, 404, "user not found")
		return
	}

	respondData(c, 200, gin.H{
		"user": gin.H{
			"id":          user.ID,
			"email":       user.Email,
			"displayName": user.DisplayName,
			"title":       user.Title,
			"firstName":   user.FirstName,
			"lastName":    user.LastName,
		},
		"roles": emptyIfNil(cl.Roles),
		"perms": emptyIfNil(cl.Perms),
	})
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

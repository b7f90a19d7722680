package server

import (
	"time"

	"bolify/internal/middleware"
	"bolify/internal/models"
	"bolify/internal/service"

	"github.com/gofiber/fiber/v2"
)

// sessionUser is the user summary returned on login.
type sessionUser struct {
	ID           string      `json:"id"`
	FullName     string      `json:"fullName"`
	Email        string      `json:"email"`
	MobileNumber string      `json:"mobileNumber"`
	Role         models.Role `json:"role"`
	ProfileImage string      `json:"profileImage"`
}

func newSessionUser(u *models.User) sessionUser {
	return sessionUser{
		ID:           u.ID,
		FullName:     u.FullName,
		Email:        u.Email,
		MobileNumber: u.MobileNumber,
		Role:         u.Role,
		ProfileImage: u.ProfileImage,
	}
}

// setAuthCookie stores the credential the way browsers on another origin
// accept it in production.
func (s *Server) setAuthCookie(c *fiber.Ctx, token string, ttl time.Duration) {
	cookie := &fiber.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		MaxAge:   int(ttl.Seconds()),
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if s.config.IsProduction() {
		cookie.Secure = true
		cookie.SameSite = fiber.CookieSameSiteNoneMode
	}
	c.Cookie(cookie)
}

func (s *Server) clearAuthCookie(c *fiber.Ctx) {
	cookie := &fiber.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if s.config.IsProduction() {
		cookie.Secure = true
		cookie.SameSite = fiber.CookieSameSiteNoneMode
	}
	c.Cookie(cookie)
}

func (s *Server) respondWithSession(c *fiber.Ctx, session *service.Session) error {
	s.setAuthCookie(c, session.Token, s.tokens.TTL())
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"user":    newSessionUser(session.User),
	})
}

// Signup handles POST /api/users/signup
// @Summary Register a user
// @Description Creates a local account. Accepts JSON or multipart with an optional profileImage file.
// @Tags users
// @Accept json,mpfd
// @Produce json
// @Param request body service.SignupInput true "Signup request"
// @Success 201 {object} object{success=bool,message=string,userId=string,profileImage=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /users/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var in service.SignupInput
	if err := parseBody(c, &in); err != nil {
		return respondWithError(c, err)
	}

	upload, err := s.readUpload(c, "profileImage")
	if err != nil {
		return respondWithError(c, err)
	}
	in.ProfileImage = upload

	result, err := s.userService.Signup(c.UserContext(), in)
	if err != nil {
		return respondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":      true,
		"message":      "User registered successfully",
		"userId":       result.UserID,
		"profileImage": result.ProfileImage,
	})
}

// Login handles POST /api/users/login
// @Summary Log in with email and password
// @Tags users
// @Accept json
// @Produce json
// @Param request body service.LoginInput true "Credentials"
// @Success 200 {object} object{success=bool,message=string,user=sessionUser}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var in service.LoginInput
	if err := parseBody(c, &in); err != nil {
		return respondWithError(c, err)
	}

	session, err := s.userService.Login(c.UserContext(), in)
	if err != nil {
		return respondWithError(c, err)
	}
	return s.respondWithSession(c, session)
}

// GoogleLogin handles POST /api/auth/google-login
// @Summary Log in with a Google id token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{token=string} true "Google id token"
// @Success 200 {object} object{success=bool,message=string,user=sessionUser}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/google-login [post]
func (s *Server) GoogleLogin(c *fiber.Ctx) error {
	var req struct {
		Token interface{} `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, models.NewValidationError("Invalid token"))
	}
	token, ok := req.Token.(string)
	if !ok {
		return respondWithError(c, models.NewValidationError("Invalid token"))
	}

	session, err := s.userService.GoogleLogin(c.UserContext(), token)
	if err != nil {
		return respondWithError(c, err)
	}
	return s.respondWithSession(c, session)
}

// Logout handles POST /api/users/logout
// @Summary Log out
// @Description Clears the auth cookie and revokes the credential until it expires.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,message=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /users/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	s.userService.Logout(c.UserContext(), middleware.CurrentClaims(c))
	s.clearAuthCookie(c)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logout successful",
	})
}

// GetMe handles GET /api/users/me
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,user=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.Me(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// ListAdmins handles GET /api/admin/admins
// @Summary List administrators
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,count=int,data=[]models.User}
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/admins [get]
func (s *Server) ListAdmins(c *fiber.Ctx) error {
	admins, err := s.userService.ListAdmins(c.UserContext())
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(admins),
		"data":    admins,
	})
}

// SetUserRole handles PATCH /api/admin/users/:id/role
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body object{role=string} true "New role"
// @Success 200 {object} object{success=bool,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id}/role [patch]
func (s *Server) SetUserRole(c *fiber.Ctx) error {
	var req struct {
		Role string `json:"role"`
	}
	if err := parseBody(c, &req); err != nil {
		return respondWithError(c, err)
	}

	user, err := s.userService.SetRole(c.UserContext(), c.Params("id"), models.Role(req.Role))
	if err != nil {
		return respondWithError(c, err)
	}

	middleware.Logger.InfoContext(c.UserContext(), "user role changed",
		"admin_id", middleware.UserID(c),
		"user_id", user.ID,
		"role", user.Role,
	)
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

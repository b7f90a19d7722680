package server

import (
	"bolify/internal/middleware"
	"bolify/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RecordView handles PATCH /api/blog/:id/views
// @Summary Record a view
// @Description Counts each viewer once. Anonymous viewers are keyed by client address.
// @Tags interactions
// @Produce json
// @Param id path string true "Blog ID"
// @Success 200 {object} object{success=bool,message=string,data=models.Blog}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /blog/{id}/views [patch]
func (s *Server) RecordView(c *fiber.Ctx) error {
	key := service.ViewerKey(middleware.UserID(c), c.IP())
	blog, recorded, err := s.interactionService.RecordView(c.UserContext(), c.Params("id"), key)
	if err != nil {
		return respondWithError(c, err)
	}

	message := "Already viewed"
	if recorded {
		message = "View recorded"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    blog,
	})
}

// ToggleLike handles PATCH /api/blog/:id/likes
// @Summary Like or unlike a blog
// @Tags interactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Blog ID"
// @Success 200 {object} object{success=bool,message=string,data=models.Blog}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /blog/{id}/likes [patch]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	blog, liked, err := s.interactionService.ToggleLike(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return respondWithError(c, err)
	}

	message := "Unliked"
	if liked {
		message = "Liked"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    blog,
	})
}

// AddComment handles POST /api/blog/:id/comments
// @Summary Comment on a blog
// @Tags interactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Blog ID"
// @Param request body object{text=string} true "Comment"
// @Success 201 {object} object{success=bool,data=models.Comment}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /blog/{id}/comments [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text" form:"text"`
	}
	if err := parseBody(c, &req); err != nil {
		return respondWithError(c, err)
	}

	comment, err := s.interactionService.AddComment(c.UserContext(), service.AddCommentInput{
		BlogID: c.Params("id"),
		UserID: middleware.UserID(c),
		Text:   req.Text,
	})
	if err != nil {
		return respondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    comment,
	})
}

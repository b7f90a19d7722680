package server

import (
	"bolify/internal/middleware"
	"bolify/internal/models"
	"bolify/internal/service"

	"github.com/gofiber/fiber/v2"
)

func respondWithPage(c *fiber.Ctx, page *models.BlogPage) error {
	return c.JSON(fiber.Map{
		"success":     true,
		"count":       len(page.Blogs),
		"total":       page.Total,
		"currentPage": page.Page,
		"totalPages":  page.TotalPages,
		"data":        page.Blogs,
	})
}

// CreateBlog handles POST /api/blog/create
// @Summary Create a blog
// @Description Accepts JSON or multipart with an optional coverImage file. Tags may be repeated or comma separated.
// @Tags blogs
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateBlogInput true "Blog"
// @Success 201 {object} object{success=bool,message=string,data=models.Blog}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /blog/create [post]
func (s *Server) CreateBlog(c *fiber.Ctx) error {
	var in service.CreateBlogInput
	if err := parseBody(c, &in); err != nil {
		return respondWithError(c, err)
	}
	if !c.Is("json") {
		in.Tags = splitTags(formValues(c, "tags"))
	}
	in.AuthorID = middleware.UserID(c)

	cover, err := s.readUpload(c, "coverImage")
	if err != nil {
		return respondWithError(c, err)
	}
	in.CoverImage = cover

	blog, err := s.blogService.Create(c.UserContext(), in)
	if err != nil {
		return respondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Blog created successfully",
		"data":    blog,
	})
}

// ListBlogs handles GET /api/blog/blogs
// @Summary List blogs
// @Tags blogs
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Success 200 {object} object{success=bool,count=int,total=int,currentPage=int,totalPages=int,data=[]models.Blog}
// @Router /blog/blogs [get]
func (s *Server) ListBlogs(c *fiber.Ctx) error {
	page, limit := parsePage(c)
	result, err := s.blogService.List(c.UserContext(), service.ListBlogsInput{Page: page, Limit: limit})
	if err != nil {
		return respondWithError(c, err)
	}
	return respondWithPage(c, result)
}

// SearchBlogs handles GET /api/blog/search
// @Summary Search blogs by title and body
// @Tags blogs
// @Produce json
// @Param q query string true "Search text"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Success 200 {object} object{success=bool,count=int,total=int,currentPage=int,totalPages=int,data=[]models.Blog}
// @Failure 400 {object} models.ErrorResponse
// @Router /blog/search [get]
func (s *Server) SearchBlogs(c *fiber.Ctx) error {
	page, limit := parsePage(c)
	result, err := s.blogService.Search(c.UserContext(), c.Query("q"), page, limit)
	if err != nil {
		return respondWithError(c, err)
	}
	return respondWithPage(c, result)
}

// ListMyBlogs handles GET /api/blog/user/blogs
// @Summary List the caller's blogs
// @Tags blogs
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Success 200 {object} object{success=bool,count=int,total=int,currentPage=int,totalPages=int,data=[]models.Blog}
// @Failure 401 {object} models.ErrorResponse
// @Router /blog/user/blogs [get]
func (s *Server) ListMyBlogs(c *fiber.Ctx) error {
	page, limit := parsePage(c)
	result, err := s.blogService.ListByAuthor(c.UserContext(), middleware.UserID(c), page, limit)
	if err != nil {
		return respondWithError(c, err)
	}
	return respondWithPage(c, result)
}

// GetBlog handles GET /api/blog/:id
// @Summary Get a blog
// @Tags blogs
// @Produce json
// @Param id path string true "Blog ID"
// @Success 200 {object} object{success=bool,data=models.Blog}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /blog/{id} [get]
func (s *Server) GetBlog(c *fiber.Ctx) error {
	blog, err := s.blogService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    blog,
	})
}

// DeleteBlog handles DELETE /api/blog/:id
// @Summary Delete a blog
// @Description Only the author may delete a blog.
// @Tags blogs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Blog ID"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /blog/{id} [delete]
func (s *Server) DeleteBlog(c *fiber.Ctx) error {
	err := s.blogService.Delete(c.UserContext(), service.DeleteBlogInput{
		BlogID:   c.Params("id"),
		CallerID: middleware.UserID(c),
	})
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Blog deleted successfully",
	})
}

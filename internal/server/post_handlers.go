package server

import (
	"strings"

	"rau/internal/models"
	"rau/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	CommunityID      uint    `json:"community_id"`
	CommunityIDCamel uint    `json:"communityId"`
	Title            string  `json:"title"`
	Content          string  `json:"content"`
	Body             string  `json:"body"`
	Tag              *string `json:"tag"`
}

// GetPosts handles GET /api/posts
// @Summary List posts
// @Description Active posts, newest first. Hidden and deleted posts are excluded.
// @Tags posts
// @Produce json
// @Param community_id query int false "Community filter (alias communityId)"
// @Param q query string false "Case-insensitive title/content search"
// @Param limit query int false "Max results"
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	communityID, err := queryUint(c, "community_id", "communityId")
	if err != nil {
		return nil
	}
	posts, err := s.postService.List(c.UserContext(), service.ListPostsInput{
		CommunityID: communityID,
		Query:       c.Query("q"),
		Limit:       queryLimit(c),
		CallerID:    callerID(c),
	})
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts
// @Summary Create post
// @Tags posts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{community_id=int,title=string,content=string,tag=string} true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	communityID := req.CommunityID
	if communityID == 0 {
		communityID = req.CommunityIDCamel
	}
	if communityID == 0 {
		return respond(c, models.NewValidationError("community_id is required"))
	}
	content := req.Content
	if strings.TrimSpace(content) == "" {
		content = req.Body
	}

	post, err := s.postService.Create(c.UserContext(), service.CreatePostInput{
		AuthorID:    callerID(c),
		CommunityID: communityID,
		Title:       req.Title,
		Content:     content,
		Tag:         req.Tag,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:id. Hidden and deleted posts remain readable by id.
// @Summary Get post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.Get(c.UserContext(), id, callerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id (soft delete)
// @Summary Delete post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{status=string}
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.Delete(c.UserContext(), id, callerID(c)); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"status": string(models.PostStatusDeleted)})
}

// ChangePostStatus handles PATCH /api/posts/:id/status for instructors.
// @Summary Moderate post
// @Description Moves a post along active -> hidden|deleted. Instructors only.
// @Tags posts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body object{status=string} true "Target status"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/status [patch]
func (s *Server) ChangePostStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Status models.PostStatus `json:"status"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	post, err := s.postService.ChangeStatus(c.UserContext(), id, callerID(c), req.Status)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

// VotePost handles POST /api/posts/:id/vote
// @Summary Vote on post
// @Description Upserts the caller's vote. Value must be 1 or -1.
// @Tags posts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body object{value=int} true "Vote"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/vote [post]
func (s *Server) VotePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Value int `json:"value"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	post, err := s.postService.Vote(c.UserContext(), id, callerID(c), req.Value)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

// ToggleBookmark handles POST /api/posts/:id/bookmark
// @Summary Toggle bookmark
// @Tags posts
// @Security BearerAuth
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{status=string,action=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/bookmark [post]
func (s *Server) ToggleBookmark(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	action, err := s.postService.ToggleBookmark(c.UserContext(), id, callerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok", "action": action})
}

// SetBestComment handles POST /api/posts/:id/best-comment
// @Summary Mark best comment
// @Description The post author or an instructor picks one of the post's comments.
// @Tags posts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body object{comment_id=int} true "Comment"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/best-comment [post]
func (s *Server) SetBestComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		CommentID uint `json:"comment_id"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.CommentID == 0 {
		return respond(c, models.NewValidationError("comment_id is required"))
	}
	post, err := s.postService.SetBestComment(c.UserContext(), id, req.CommentID, callerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(post)
}

package handler

import (
	"errors"
	"strconv"

	"feedback-app/internal/consts"
	"feedback-app/internal/models"
	"feedback-app/internal/services"

	"github.com/gin-gonic/gin"
)

type FeedbackHandler struct {
	feedbacks *services.FeedbackService
}

func NewFeedbackHandler(feedbacks *services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbacks: feedbacks}
}

func (h *FeedbackHandler) Create(c *gin.Context) {
	var req models.CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request parameters: "+err.Error())
		return
	}
	if len(req.Title) > consts.MaxTitleLength || len(req.Content) > consts.MaxMessageLength {
		BadRequest(c, "title or content too long")
		return
	}

	actor := currentUser(c)
	if actor == nil {
		Unauthorized(c, "not authenticated")
		return
	}

	feedback := &models.Feedback{
		Title:       req.Title,
		Content:     req.Content,
		Contact:     req.Contact,
		CreatorID:   models.ID(actor.ID),
		CreatorType: consts.RoleNumber(actor.Role),
		TargetID:    req.TargetID,
		TargetType:  req.TargetType,
		Images:      req.Images,
	}
	if err := h.feedbacks.Create(c.Request.Context(), feedback); err != nil {
		ServerError(c, "failed to create feedback: "+err.Error())
		return
	}
	Success(c, feedback)
}

func (h *FeedbackHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid feedback id")
		return
	}

	feedback, err := h.feedbacks.GetByID(c.Request.Context(), id)
	if err != nil {
		NotFound(c, "feedback not found")
		return
	}
	Success(c, feedback)
}

func (h *FeedbackHandler) GetByCreator(c *gin.Context) {
	creatorID, err := strconv.ParseUint(c.Query("creator_id"), 10, 64)
	if err != nil || creatorID == 0 {
		BadRequest(c, "invalid creator id")
		return
	}
	creatorType, err := strconv.ParseUint(c.Query("creator_type"), 10, 8)
	if err != nil || creatorType < 1 || creatorType > 3 {
		BadRequest(c, "invalid creator type")
		return
	}

	feedbacks, err := h.feedbacks.GetByCreator(c.Request.Context(), creatorID, uint8(creatorType))
	if err != nil {
		ServerError(c, "failed to get feedbacks: "+err.Error())
		return
	}
	Success(c, feedbacks)
}

func (h *FeedbackHandler) GetByTarget(c *gin.Context) {
	targetID, err := strconv.ParseUint(c.Query("target_id"), 10, 64)
	if err != nil || targetID == 0 {
		BadRequest(c, "invalid target id")
		return
	}
	targetType, err := strconv.ParseUint(c.Query("target_type"), 10, 8)
	if err != nil || targetType < 1 || targetType > 2 {
		BadRequest(c, "invalid target type")
		return
	}

	feedbacks, err := h.feedbacks.GetByTarget(c.Request.Context(), targetID, uint8(targetType))
	if err != nil {
		ServerError(c, "failed to get feedbacks: "+err.Error())
		return
	}
	Success(c, feedbacks)
}

func (h *FeedbackHandler) GetAll(c *gin.Context) {
	actor := currentUser(c)
	if actor == nil || actor.Role != consts.RoleNameAdmin {
		Forbidden(c, "admin only")
		return
	}

	feedbacks, err := h.feedbacks.GetAll(c.Request.Context())
	if err != nil {
		ServerError(c, "failed to get feedbacks: "+err.Error())
		return
	}
	Success(c, feedbacks)
}

func (h *FeedbackHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid feedback id")
		return
	}

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request parameters: "+err.Error())
		return
	}

	actor := currentUser(c)
	if actor == nil {
		Unauthorized(c, "not authenticated")
		return
	}

	if err := h.feedbacks.UpdateStatus(c.Request.Context(), id, req.Status, actor); err != nil {
		if errors.Is(err, services.ErrForbidden) {
			Forbidden(c, err.Error())
			return
		}
		ServerError(c, "failed to update status: "+err.Error())
		return
	}
	Success(c, gin.H{"id": id, "status": req.Status})
}

func (h *FeedbackHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid feedback id")
		return
	}

	actor := currentUser(c)
	if actor == nil {
		Unauthorized(c, "not authenticated")
		return
	}

	if err := h.feedbacks.Delete(c.Request.Context(), id, actor); err != nil {
		if errors.Is(err, services.ErrForbidden) {
			Forbidden(c, err.Error())
			return
		}
		ServerError(c, "failed to delete feedback: "+err.Error())
		return
	}
	Success(c, gin.H{"id": id})
}

func (h *FeedbackHandler) RegisterRoutes(router *gin.RouterGroup) {
	feedbackRouter := router.Group("/feedback")
	{
		feedbackRouter.POST("", h.Create)
		feedbackRouter.GET("/:id", h.GetByID)
		feedbackRouter.GET("/creator", h.GetByCreator)
		feedbackRouter.GET("/target", h.GetByTarget)
		feedbackRouter.GET("", h.GetAll)
		feedbackRouter.PUT("/:id/status", h.UpdateStatus)
		feedbackRouter.DELETE("/:id", h.Delete)
	}
}

func currentUser(c *gin.Context) *models.User {
	v, exists := c.Get("user")
	if !exists {
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return user
}

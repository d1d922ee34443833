package handler

import (
	"errors"
	"strconv"

	"feedback-app/internal/consts"
	"feedback-app/internal/models"
	"feedback-app/internal/services"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

func (h *MessageHandler) Create(c *gin.Context) {
	var req models.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request parameters: "+err.Error())
		return
	}

	actor := currentUser(c)
	if actor == nil {
		Unauthorized(c, "not authenticated")
		return
	}

	contentType := req.ContentType
	if contentType == consts.SystemMessage {
		contentType = consts.TextMessage
	}

	msg := &models.FeedbackMessage{
		FeedbackID:  req.FeedbackID,
		SenderID:    models.ID(actor.ID),
		SenderType:  consts.RoleNumber(actor.Role),
		SenderName:  actor.Username,
		ContentType: contentType,
		Content:     req.Content,
	}
	if err := h.messages.Create(c.Request.Context(), msg); err != nil {
		if errors.Is(err, services.ErrFeedbackResolved) {
			BadRequest(c, err.Error())
			return
		}
		ServerError(c, "failed to create message: "+err.Error())
		return
	}
	Success(c, msg)
}

func (h *MessageHandler) GetByFeedbackID(c *gin.Context) {
	feedbackID, err := strconv.ParseUint(c.Param("feedback_id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid feedback id")
		return
	}

	messages, err := h.messages.GetByFeedbackID(c.Request.Context(), feedbackID)
	if err != nil {
		ServerError(c, "failed to get messages: "+err.Error())
		return
	}
	Success(c, messages)
}

func (h *MessageHandler) MarkAsRead(c *gin.Context) {
	messageID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid message id")
		return
	}

	if err := h.messages.MarkAsRead(c.Request.Context(), messageID); err != nil {
		NotFound(c, "message not found")
		return
	}
	Success(c, gin.H{"id": messageID})
}

func (h *MessageHandler) RegisterRoutes(router *gin.RouterGroup) {
	messageRouter := router.Group("/message")
	{
		messageRouter.POST("", h.Create)
		messageRouter.GET("/feedback/:feedback_id", h.GetByFeedbackID)
		messageRouter.PUT("/:id/read", h.MarkAsRead)
	}
}

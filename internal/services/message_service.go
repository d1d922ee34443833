package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"feedback-app/internal/consts"
	"feedback-app/internal/models"
	"feedback-app/internal/repository"
)

var ErrFeedbackResolved = errors.New("feedback is resolved, no new messages accepted")

type MessageService struct {
	messages  repository.MessageRepository
	feedbacks repository.FeedbackRepository
	users     repository.UserRepository
	pusher    Pusher
}

func NewMessageService(messages repository.MessageRepository, feedbacks repository.FeedbackRepository, users repository.UserRepository, pusher Pusher) *MessageService {
	return &MessageService{
		messages:  messages,
		feedbacks: feedbacks,
		users:     users,
		pusher:    pusher,
	}
}

// Create persists a message and pushes it to the thread participants. The
// composer lock is enforced here as well, a resolved item takes no new
// messages regardless of what the client shows.
func (s *MessageService) Create(ctx context.Context, msg *models.FeedbackMessage) error {
	feedback, err := s.feedbacks.GetByID(ctx, msg.FeedbackID.Uint64())
	if err != nil {
		return err
	}
	if feedback.Status == consts.StatusResolved {
		return ErrFeedbackResolved
	}
	if msg.Content == "" || len(msg.Content) > consts.MaxMessageLength {
		return errors.New("message content empty or too long")
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return err
	}

	// First reply from the target side moves an open item to in-progress.
	if feedback.Status == consts.StatusOpen && consts.TargetToRole(feedback.TargetType) == msg.SenderType {
		s.autoProgress(ctx, feedback, msg)
	}

	s.pushMessage(ctx, feedback, msg)
	return nil
}

func (s *MessageService) autoProgress(ctx context.Context, feedback *models.Feedback, msg *models.FeedbackMessage) {
	if err := s.feedbacks.UpdateStatus(ctx, feedback.ID.Uint64(), consts.StatusInProgress); err != nil {
		log.Printf("auto-progress feedback %d: %v", feedback.ID, err)
		return
	}

	if s.pusher != nil {
		event := models.NewEvent(consts.EventStatusChange,
			&models.Peer{ID: msg.SenderID, Type: msg.SenderType, Name: msg.SenderName},
			nil,
			&models.StatusChangeData{
				FeedbackID: feedback.ID,
				OldStatus:  consts.StatusOpen,
				NewStatus:  consts.StatusInProgress,
			})
		if frame, err := json.Marshal(event); err == nil {
			s.pusher.Broadcast(frame)
		}
	}
}

func (s *MessageService) pushMessage(ctx context.Context, feedback *models.Feedback, msg *models.FeedbackMessage) {
	if s.pusher == nil {
		return
	}

	senderName := msg.SenderName
	if senderName == "" {
		if sender, err := s.users.GetByID(ctx, msg.SenderID.Uint64()); err == nil {
			senderName = sender.Username
		}
	}

	event := models.NewEvent(consts.EventMessage,
		&models.Peer{ID: msg.SenderID, Type: msg.SenderType, Name: senderName},
		nil,
		&models.MessageData{
			FeedbackID:  msg.FeedbackID,
			MessageID:   msg.ID,
			ContentType: msg.ContentType,
			Content:     msg.Content,
		})
	frame, err := json.Marshal(event)
	if err != nil {
		log.Printf("marshal message event: %v", err)
		return
	}

	if feedback.CreatorID != msg.SenderID {
		s.pusher.SendToUser(feedback.CreatorID.Uint64(), feedback.CreatorType, frame)
	}

	targetRole := consts.TargetToRole(feedback.TargetType)
	if feedback.TargetID != msg.SenderID {
		s.pusher.SendToUser(feedback.TargetID.Uint64(), targetRole, frame)
	}

	// Admins watch every thread. Skip when the target already is an admin,
	// otherwise they would receive the frame twice.
	if msg.SenderType != consts.RoleAdmin && feedback.TargetType != consts.TargetAdmin {
		admins, err := s.users.GetByRole(ctx, consts.RoleNameAdmin)
		if err == nil {
			for _, admin := range admins {
				if models.ID(admin.ID) != feedback.TargetID {
					s.pusher.SendToUser(admin.ID, consts.RoleAdmin, frame)
				}
			}
		}
	}

	// Echo to the sender so its other sessions converge too.
	s.pusher.SendToUser(msg.SenderID.Uint64(), msg.SenderType, frame)
}

func (s *MessageService) GetByFeedbackID(ctx context.Context, feedbackID uint64) ([]models.FeedbackMessage, error) {
	messages, err := s.messages.GetByFeedbackID(ctx, feedbackID)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		if sender, err := s.users.GetByID(ctx, messages[i].SenderID.Uint64()); err == nil {
			messages[i].SenderName = sender.Username
		}
	}
	return messages, nil
}

// MarkAsRead flips the read flag. Advisory, an unknown message id is not an
// error worth surfacing to the caller's user.
func (s *MessageService) MarkAsRead(ctx context.Context, messageID uint64) error {
	return s.messages.MarkAsRead(ctx, messageID)
}

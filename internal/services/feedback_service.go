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

var ErrForbidden = errors.New("operation not permitted for this role")

type FeedbackService struct {
	feedbacks repository.FeedbackRepository
	messages  repository.MessageRepository
	users     repository.UserRepository
	pusher    Pusher
	mailer    EmailService
}

// NewFeedbackService builds the feedback service. pusher and mailer may be
// nil, then the corresponding notifications are skipped.
func NewFeedbackService(feedbacks repository.FeedbackRepository, messages repository.MessageRepository, users repository.UserRepository, pusher Pusher, mailer EmailService) *FeedbackService {
	return &FeedbackService{
		feedbacks: feedbacks,
		messages:  messages,
		users:     users,
		pusher:    pusher,
		mailer:    mailer,
	}
}

// Create stores the item, records its content as the opening message of the
// thread, and notifies the target (and admins) about the new feedback.
func (s *FeedbackService) Create(ctx context.Context, feedback *models.Feedback) error {
	if err := s.feedbacks.Create(ctx, feedback); err != nil {
		return err
	}

	opening := &models.FeedbackMessage{
		FeedbackID:  feedback.ID,
		SenderID:    feedback.CreatorID,
		SenderType:  feedback.CreatorType,
		ContentType: consts.TextMessage,
		Content:     feedback.Content,
	}
	if err := s.messages.Create(ctx, opening); err != nil {
		log.Printf("store opening message for feedback %d: %v", feedback.ID, err)
	}

	s.resolveNames(ctx, feedback)
	s.notifyNewFeedback(ctx, feedback)
	return nil
}

func (s *FeedbackService) notifyNewFeedback(ctx context.Context, feedback *models.Feedback) {
	targetRole := consts.TargetToRole(feedback.TargetType)

	if s.pusher != nil {
		event := models.NewEvent(consts.EventNewFeedback,
			&models.Peer{ID: feedback.CreatorID, Type: feedback.CreatorType, Name: feedback.CreatorName},
			&models.Peer{ID: feedback.TargetID, Type: targetRole, Name: feedback.TargetName},
			&models.NewFeedbackData{
				FeedbackID: feedback.ID,
				Title:      feedback.Title,
				CreatorID:  feedback.CreatorID,
				TargetID:   feedback.TargetID,
				TargetType: feedback.TargetType,
			})
		frame, err := json.Marshal(event)
		if err != nil {
			log.Printf("marshal new_feedback event: %v", err)
			return
		}

		// The creator refetches its own list off this echo as well.
		s.pusher.SendToUser(feedback.CreatorID.Uint64(), feedback.CreatorType, frame)
		s.pusher.SendToUser(feedback.TargetID.Uint64(), targetRole, frame)

		// Admins see every item, tell them too unless the target already is one.
		if feedback.TargetType != consts.TargetAdmin {
			admins, err := s.users.GetByRole(ctx, consts.RoleNameAdmin)
			if err == nil {
				for _, admin := range admins {
					s.pusher.SendToUser(admin.ID, consts.RoleAdmin, frame)
				}
			}
		}
	}

	if s.mailer != nil {
		if target, err := s.users.GetByID(ctx, feedback.TargetID.Uint64()); err == nil && target.Email != "" {
			go s.mailer.SendFeedbackNotification(target.Email, feedback.Title, feedback.CreatorName)
		}
	}
}

func (s *FeedbackService) GetByID(ctx context.Context, id uint64) (*models.Feedback, error) {
	feedback, err := s.feedbacks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.resolveNames(ctx, feedback)
	return feedback, nil
}

func (s *FeedbackService) GetByCreator(ctx context.Context, creatorID uint64, creatorType uint8) ([]models.Feedback, error) {
	feedbacks, err := s.feedbacks.GetByCreator(ctx, creatorID, creatorType)
	if err != nil {
		return nil, err
	}
	for i := range feedbacks {
		s.resolveNames(ctx, &feedbacks[i])
	}
	return feedbacks, nil
}

func (s *FeedbackService) GetByTarget(ctx context.Context, targetID uint64, targetType uint8) ([]models.Feedback, error) {
	feedbacks, err := s.feedbacks.GetByTarget(ctx, targetID, targetType)
	if err != nil {
		return nil, err
	}
	for i := range feedbacks {
		s.resolveNames(ctx, &feedbacks[i])
	}
	return feedbacks, nil
}

func (s *FeedbackService) GetAll(ctx context.Context) ([]models.Feedback, error) {
	feedbacks, err := s.feedbacks.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range feedbacks {
		s.resolveNames(ctx, &feedbacks[i])
	}
	return feedbacks, nil
}

// UpdateStatus persists a status transition and broadcasts it so every
// connected client converges on the same state.
func (s *FeedbackService) UpdateStatus(ctx context.Context, id uint64, status uint8, actor *models.User) error {
	if status < consts.StatusOpen || status > consts.StatusResolved {
		return errors.New("invalid status")
	}
	if actor.Role == consts.RoleNameUser {
		return ErrForbidden
	}

	feedback, err := s.feedbacks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	oldStatus := feedback.Status
	if err := s.feedbacks.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	if s.pusher != nil {
		event := models.NewEvent(consts.EventStatusChange,
			&models.Peer{ID: models.ID(actor.ID), Type: consts.RoleNumber(actor.Role), Name: actor.Username},
			nil,
			&models.StatusChangeData{FeedbackID: models.ID(id), OldStatus: oldStatus, NewStatus: status})
		frame, err := json.Marshal(event)
		if err != nil {
			return err
		}
		s.pusher.Broadcast(frame)
	}
	return nil
}

// Delete removes the item and its thread, then broadcasts the deletion.
func (s *FeedbackService) Delete(ctx context.Context, id uint64, actor *models.User) error {
	feedback, err := s.feedbacks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if actor.Role != consts.RoleNameAdmin && feedback.CreatorID.Uint64() != actor.ID {
		return ErrForbidden
	}

	if err := s.messages.DeleteByFeedbackID(ctx, id); err != nil {
		return err
	}
	if err := s.feedbacks.Delete(ctx, id); err != nil {
		return err
	}

	if s.pusher != nil {
		event := models.NewEvent(consts.EventFeedbackDelete,
			&models.Peer{ID: models.ID(actor.ID), Type: consts.RoleNumber(actor.Role), Name: actor.Username},
			nil,
			&models.FeedbackDeleteData{FeedbackID: models.ID(id)})
		frame, err := json.Marshal(event)
		if err != nil {
			return err
		}
		s.pusher.Broadcast(frame)
	}
	return nil
}

func (s *FeedbackService) resolveNames(ctx context.Context, feedback *models.Feedback) {
	if creator, err := s.users.GetByID(ctx, feedback.CreatorID.Uint64()); err == nil {
		feedback.CreatorName = creator.Username
	}
	if target, err := s.users.GetByID(ctx, feedback.TargetID.Uint64()); err == nil {
		feedback.TargetName = target.Username
	}
}

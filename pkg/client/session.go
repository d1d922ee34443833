package client

import (
	"feedback-app/internal/consts"
	"feedback-app/internal/models"
)

// Session is the identity a reconciler acts under. Created on successful
// login, held for the lifetime of the connection, discarded on logout or
// authentication failure.
type Session struct {
	UserID      models.ID
	Role        string
	DisplayName string
	Token       string
}

// RoleNumber is the wire value of the session role.
func (s *Session) RoleNumber() uint8 {
	return consts.RoleNumber(s.Role)
}

// Peer describes the session as a push-event sender.
func (s *Session) Peer() *models.Peer {
	return &models.Peer{ID: s.UserID, Type: s.RoleNumber(), Name: s.DisplayName}
}

// VisibilityPredicate reports whether a feedback item with the given
// creator/target belongs in a session's list. The same rule governs the
// bulk load and the reaction to new-feedback events, keeping the local list
// consistent with server-side authorization.
type VisibilityPredicate func(s *Session, creatorID, targetID models.ID, targetType uint8) bool

// VisibilityForRole returns the standard predicate for a role: a user sees
// what it created, a merchant what it created or is targeted by, an admin
// everything.
func VisibilityForRole(role string) VisibilityPredicate {
	switch role {
	case consts.RoleNameMerchant:
		return func(s *Session, creatorID, targetID models.ID, targetType uint8) bool {
			return creatorID == s.UserID || (targetID == s.UserID && targetType == consts.TargetMerchant)
		}
	case consts.RoleNameAdmin:
		return func(s *Session, creatorID, targetID models.ID, targetType uint8) bool {
			return true
		}
	default:
		return func(s *Session, creatorID, targetID models.ID, targetType uint8) bool {
			return creatorID == s.UserID
		}
	}
}

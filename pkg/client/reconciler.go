package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"feedback-app/internal/consts"
	"feedback-app/internal/models"
)

var (
	ErrNoSession        = errors.New("no live session")
	ErrNoActiveFeedback = errors.New("no feedback selected")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrMessageTooLong   = fmt.Errorf("message longer than %d characters", consts.MaxMessageLength)
	ErrComposerLocked   = errors.New("feedback is resolved, composer is locked")
)

const (
	defaultTypingTimeout  = 3 * time.Second
	defaultTypingCooldown = 1 * time.Second
)

// Callbacks are the rendering surface of a reconciler. All fields are
// optional, a nil callback is skipped.
type Callbacks struct {
	// ListChanged fires with the full feedback list whenever items, their
	// status or their unread counters change.
	ListChanged func(items []models.Feedback)
	// ThreadChanged fires with the active thread's messages. An empty slice
	// means no thread is selected.
	ThreadChanged func(messages []models.FeedbackMessage)
	// Typing fires with active=true when the counterpart types in the
	// active thread, and active=false when the indicator expires.
	Typing func(name string, active bool)
	// ComposerLock fires when the active item's composer locks or unlocks.
	ComposerLock func(locked bool)
	// Notice surfaces non-blocking notifications.
	Notice func(text string)
	// AuthExpired fires once when the session is no longer valid.
	AuthExpired func()
}

// Reconciler is the single entry point for inbound push events and outbound
// user intents, and the sole owner of the local projection: feedback list,
// active thread, unread counters, typing indicator and composer lock. One
// instance per session.
type Reconciler struct {
	api     *Client
	session *Session
	visible VisibilityPredicate
	sender  EventSender
	cb      Callbacks

	typingTimeout  time.Duration
	typingCooldown time.Duration

	mu          sync.Mutex
	feedbacks   []models.Feedback
	activeID    models.ID
	thread      []models.FeedbackMessage
	typingTimer *time.Timer
	lastTyping  time.Time
	closed      bool
}

// Option adjusts a reconciler at construction time.
type Option func(*Reconciler)

// WithVisibility overrides the role-derived visibility predicate.
func WithVisibility(pred VisibilityPredicate) Option {
	return func(r *Reconciler) { r.visible = pred }
}

// WithTypingTimeout overrides how long the typing indicator stays up.
func WithTypingTimeout(d time.Duration) Option {
	return func(r *Reconciler) { r.typingTimeout = d }
}

func NewReconciler(api *Client, session *Session, cb Callbacks, opts ...Option) *Reconciler {
	r := &Reconciler{
		api:            api,
		session:        session,
		visible:        VisibilityForRole(session.Role),
		cb:             cb,
		typingTimeout:  defaultTypingTimeout,
		typingCooldown: defaultTypingCooldown,
	}
	for _, opt := range opts {
		opt(r)
	}

	api.OnAuthExpired = r.HandleAuthFailure
	return r
}

// AttachChannel installs the outbound half of the push channel.
func (r *Reconciler) AttachChannel(sender EventSender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sender = sender
}

// HandlePushEvent consumes one raw frame from the push channel. A corrupt
// frame is logged and dropped, one bad frame must not end the session.
// Unknown event kinds are logged and ignored.
func (r *Reconciler) HandlePushEvent(raw []byte) {
	var event models.WSEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		log.Printf("drop malformed push frame: %v", err)
		return
	}

	if r.dead() {
		return
	}

	switch event.Event {
	case consts.EventConnect, consts.EventDisconnect:
		// informational only
	case consts.EventMessage:
		r.onMessage(&event)
	case consts.EventTyping:
		r.onTyping(&event)
	case consts.EventRead:
		r.onRead(&event)
	case consts.EventStatusChange:
		r.onStatusChange(&event)
	case consts.EventFeedbackDelete:
		r.onFeedbackDelete(&event)
	case consts.EventNewFeedback:
		r.onNewFeedback(&event)
	default:
		log.Printf("ignore unknown push event kind %q", event.Event)
	}
}

func (r *Reconciler) onMessage(event *models.WSEvent) {
	var data models.MessageData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		log.Printf("drop malformed message payload: %v", err)
		return
	}

	self := event.Sender != nil && event.Sender.ID == r.session.UserID

	r.mu.Lock()
	if r.activeID != 0 && data.FeedbackID == r.activeID {
		if self {
			// Already rendered optimistically when it was submitted.
			r.mu.Unlock()
			return
		}

		msg := models.FeedbackMessage{
			ID:          data.MessageID,
			FeedbackID:  data.FeedbackID,
			ContentType: data.ContentType,
			Content:     data.Content,
			CreatedAt:   event.Timestamp,
		}
		if event.Sender != nil {
			msg.SenderID = event.Sender.ID
			msg.SenderType = event.Sender.Type
			msg.SenderName = event.Sender.Name
		}
		r.thread = append(r.thread, msg)
		thread := r.threadSnapshot()
		r.mu.Unlock()

		r.fireThreadChanged(thread)
		r.sendReadReceipt(data.MessageID, data.FeedbackID)
		return
	}

	if self {
		r.mu.Unlock()
		return
	}

	// Not the active thread: bump the unread counter, leave the rendered
	// thread alone.
	var title string
	for i := range r.feedbacks {
		if r.feedbacks[i].ID == data.FeedbackID {
			r.feedbacks[i].UnreadCount++
			title = r.feedbacks[i].Title
			break
		}
	}
	list := r.listSnapshot()
	r.mu.Unlock()

	r.fireListChanged(list)
	if title != "" {
		r.notice("New message in " + title)
	}
}

func (r *Reconciler) onTyping(event *models.WSEvent) {
	var data models.TypingData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		log.Printf("drop malformed typing payload: %v", err)
		return
	}

	if event.Sender == nil || event.Sender.ID == r.session.UserID {
		return
	}

	r.mu.Lock()
	if r.activeID == 0 || data.FeedbackID != r.activeID {
		r.mu.Unlock()
		return
	}
	name := event.Sender.Name

	// There is no "stopped typing" event, the indicator expires on its own.
	if r.typingTimer != nil {
		r.typingTimer.Stop()
	}
	r.typingTimer = time.AfterFunc(r.typingTimeout, func() {
		if r.cb.Typing != nil {
			r.cb.Typing("", false)
		}
	})
	r.mu.Unlock()

	if r.cb.Typing != nil {
		r.cb.Typing(name, true)
	}
}

// onRead is advisory, it updates read-state display and never fails.
func (r *Reconciler) onRead(event *models.WSEvent) {
	var data models.ReadData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		log.Printf("drop malformed read payload: %v", err)
		return
	}

	r.mu.Lock()
	changed := false
	for i := range r.thread {
		if r.thread[i].ID == data.MessageID && r.thread[i].IsRead != consts.Read {
			r.thread[i].IsRead = consts.Read
			changed = true
		}
	}
	thread := r.threadSnapshot()
	r.mu.Unlock()

	if changed {
		r.fireThreadChanged(thread)
	}
}

func (r *Reconciler) onStatusChange(event *models.WSEvent) {
	var data models.StatusChangeData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		log.Printf("drop malformed status_change payload: %v", err)
		return
	}
	r.applyStatusChange(data.FeedbackID, data.NewStatus)
}

func (r *Reconciler) onFeedbackDelete(event *models.WSEvent) {
	var data models.FeedbackDeleteData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		log.Printf("drop malformed feedback_delete payload: %v", err)
		return
	}

	// The local delete action already applied this change.
	if event.Sender != nil && event.Sender.ID == r.session.UserID {
		return
	}

	if r.applyDelete(data.FeedbackID) {
		r.notice("Feedback was deleted")
	}
}

func (r *Reconciler) onNewFeedback(event *models.WSEvent) {
	var data models.NewFeedbackData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		log.Printf("drop malformed new_feedback payload: %v", err)
		return
	}

	// The push payload is not trusted to carry the authoritative item, a
	// relevant event triggers a full refetch instead of an insertion.
	if !r.visible(r.session, data.CreatorID, data.TargetID, data.TargetType) {
		return
	}

	if err := r.LoadFeedbacks(context.Background()); err != nil {
		log.Printf("refetch after new_feedback: %v", err)
		return
	}

	if event.Sender != nil && event.Sender.ID != r.session.UserID {
		r.notice("New feedback: " + data.Title)
	}
}

// LoadFeedbacks performs the role-appropriate bulk load: a user fetches
// what it created, a merchant the union of created-by and targeted-at, an
// admin everything. Unread counters and the active selection survive the
// reload when the items still exist.
func (r *Reconciler) LoadFeedbacks(ctx context.Context) error {
	if r.dead() {
		return ErrNoSession
	}

	var fresh []models.Feedback
	var err error
	switch r.session.Role {
	case consts.RoleNameAdmin:
		fresh, err = r.api.AllFeedback(ctx)
	case consts.RoleNameMerchant:
		var created, targeted []models.Feedback
		created, err = r.api.FeedbackByCreator(ctx, r.session.UserID, consts.RoleMerchant)
		if err == nil {
			targeted, err = r.api.FeedbackByTarget(ctx, r.session.UserID, consts.TargetMerchant)
		}
		fresh = mergeFeedback(targeted, created)
	default:
		fresh, err = r.api.FeedbackByCreator(ctx, r.session.UserID, consts.RoleUser)
	}
	if err != nil {
		r.notice("Failed to load feedback list: " + err.Error())
		return err
	}

	if r.dead() {
		return ErrNoSession
	}

	r.mu.Lock()
	unread := make(map[models.ID]int, len(r.feedbacks))
	for _, f := range r.feedbacks {
		unread[f.ID] = f.UnreadCount
	}
	for i := range fresh {
		if fresh[i].ID != r.activeID {
			fresh[i].UnreadCount = unread[fresh[i].ID]
		}
	}
	r.feedbacks = fresh

	activeGone := r.activeID != 0 && r.findFeedback(r.activeID) == nil
	if activeGone {
		r.activeID = 0
		r.thread = nil
	}
	list := r.listSnapshot()
	thread := r.threadSnapshot()
	r.mu.Unlock()

	r.fireListChanged(list)
	if activeGone {
		r.fireThreadChanged(thread)
	}
	return nil
}

// SelectFeedback makes one item active, zeroes its unread counter, loads
// its thread and evaluates the composer lock.
func (r *Reconciler) SelectFeedback(ctx context.Context, id models.ID) error {
	if r.dead() {
		return ErrNoSession
	}

	r.mu.Lock()
	if r.activeID == id {
		r.mu.Unlock()
		return nil
	}
	item := r.findFeedback(id)
	if item == nil {
		r.mu.Unlock()
		return fmt.Errorf("feedback %s not in list", id)
	}
	r.activeID = id
	item.UnreadCount = 0
	status := item.Status
	list := r.listSnapshot()
	r.mu.Unlock()

	messages, err := r.api.MessagesByFeedback(ctx, id)
	if err != nil {
		r.notice("Failed to load messages: " + err.Error())
		messages = nil
	}

	r.mu.Lock()
	if r.activeID != id {
		// Selection moved on while the thread was loading.
		r.mu.Unlock()
		return nil
	}
	r.thread = messages
	thread := r.threadSnapshot()
	r.mu.Unlock()

	r.fireListChanged(list)
	r.fireThreadChanged(thread)
	r.fireComposerLock(status == consts.StatusResolved)
	return nil
}

// SubmitMessage validates, renders the message optimistically under a
// client-generated temporary id, then persists it. When persistence fails
// the optimistic entry stays visible and the failure is surfaced, there is
// no rollback path.
func (r *Reconciler) SubmitMessage(ctx context.Context, content string) error {
	if r.dead() {
		return ErrNoSession
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}
	if len(content) > consts.MaxMessageLength {
		return ErrMessageTooLong
	}

	r.mu.Lock()
	if r.activeID == 0 {
		r.mu.Unlock()
		return ErrNoActiveFeedback
	}
	item := r.findFeedback(r.activeID)
	if item != nil && item.Status == consts.StatusResolved {
		r.mu.Unlock()
		return ErrComposerLocked
	}
	feedbackID := r.activeID

	msg := models.FeedbackMessage{
		ID:          models.ID(time.Now().UnixMilli()),
		FeedbackID:  feedbackID,
		SenderID:    r.session.UserID,
		SenderType:  r.session.RoleNumber(),
		SenderName:  r.session.DisplayName,
		ContentType: consts.TextMessage,
		Content:     content,
		CreatedAt:   time.Now(),
	}
	r.thread = append(r.thread, msg)
	thread := r.threadSnapshot()
	r.mu.Unlock()

	r.fireThreadChanged(thread)

	_, err := r.api.CreateMessage(ctx, &models.CreateMessageRequest{
		FeedbackID:  feedbackID,
		Content:     content,
		ContentType: consts.TextMessage,
	})
	if err != nil {
		r.notice("Failed to save message: " + err.Error())
		return err
	}
	return nil
}

// SubmitImage sends an already-uploaded image URL as an image message.
// Same preconditions and optimistic rendering as SubmitMessage.
func (r *Reconciler) SubmitImage(ctx context.Context, url string) error {
	if r.dead() {
		return ErrNoSession
	}
	if url == "" {
		return ErrEmptyMessage
	}

	r.mu.Lock()
	if r.activeID == 0 {
		r.mu.Unlock()
		return ErrNoActiveFeedback
	}
	item := r.findFeedback(r.activeID)
	if item != nil && item.Status == consts.StatusResolved {
		r.mu.Unlock()
		return ErrComposerLocked
	}
	feedbackID := r.activeID

	r.thread = append(r.thread, models.FeedbackMessage{
		ID:          models.ID(time.Now().UnixMilli()),
		FeedbackID:  feedbackID,
		SenderID:    r.session.UserID,
		SenderType:  r.session.RoleNumber(),
		SenderName:  r.session.DisplayName,
		ContentType: consts.ImageMessage,
		Content:     url,
		CreatedAt:   time.Now(),
	})
	thread := r.threadSnapshot()
	r.mu.Unlock()

	r.fireThreadChanged(thread)

	_, err := r.api.CreateMessage(ctx, &models.CreateMessageRequest{
		FeedbackID:  feedbackID,
		Content:     url,
		ContentType: consts.ImageMessage,
	})
	if err != nil {
		r.notice("Failed to save image message: " + err.Error())
		return err
	}
	return nil
}

// UpdateStatus persists a status transition, then mutates local state
// through the same path the status_change push handler takes, so this
// client and its peers converge on the same rendering.
func (r *Reconciler) UpdateStatus(ctx context.Context, id models.ID, status uint8) error {
	if r.dead() {
		return ErrNoSession
	}

	if err := r.api.UpdateFeedbackStatus(ctx, id, status); err != nil {
		r.notice("Failed to update status: " + err.Error())
		return err
	}
	if r.dead() {
		return ErrNoSession
	}
	r.applyStatusChange(id, status)
	return nil
}

// DeleteFeedback persists the deletion, then applies the same removal the
// feedback_delete push handler applies.
func (r *Reconciler) DeleteFeedback(ctx context.Context, id models.ID) error {
	if r.dead() {
		return ErrNoSession
	}

	if err := r.api.DeleteFeedback(ctx, id); err != nil {
		r.notice("Failed to delete feedback: " + err.Error())
		return err
	}
	if r.dead() {
		return ErrNoSession
	}
	r.applyDelete(id)
	return nil
}

// CreateFeedback submits a new item, refetches the list and selects the
// created item.
func (r *Reconciler) CreateFeedback(ctx context.Context, req *models.CreateFeedbackRequest) (*models.Feedback, error) {
	if r.dead() {
		return nil, ErrNoSession
	}
	if req.Title == "" || len(req.Title) > consts.MaxTitleLength {
		return nil, errors.New("title empty or too long")
	}
	if req.Content == "" || len(req.Content) > consts.MaxMessageLength {
		return nil, errors.New("content empty or too long")
	}

	feedback, err := r.api.CreateFeedback(ctx, req)
	if err != nil {
		r.notice("Failed to create feedback: " + err.Error())
		return nil, err
	}

	if err := r.LoadFeedbacks(ctx); err != nil {
		return feedback, nil
	}
	_ = r.SelectFeedback(ctx, feedback.ID)
	return feedback, nil
}

// NotifyTyping emits a typing event for the active thread, rate-limited by
// a fixed cooldown so per-keystroke calls do not flood the channel.
func (r *Reconciler) NotifyTyping() {
	if r.dead() {
		return
	}

	r.mu.Lock()
	if r.activeID == 0 || r.sender == nil {
		r.mu.Unlock()
		return
	}
	if time.Since(r.lastTyping) < r.typingCooldown {
		r.mu.Unlock()
		return
	}
	r.lastTyping = time.Now()
	feedbackID := r.activeID
	sender := r.sender
	r.mu.Unlock()

	event := models.NewEvent(consts.EventTyping, r.session.Peer(), nil,
		&models.TypingData{FeedbackID: feedbackID, IsTyping: true})
	if err := sender.SendEvent(event); err != nil {
		log.Printf("send typing event: %v", err)
	}
}

// HandleAuthFailure funnels both auth-expiry paths (HTTP 401 and the push
// channel's policy-violation close) into a single forced logout.
func (r *Reconciler) HandleAuthFailure() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.feedbacks = nil
	r.activeID = 0
	r.thread = nil
	r.mu.Unlock()

	if r.cb.AuthExpired != nil {
		r.cb.AuthExpired()
	}
}

// Logout discards the session. In-flight responses arriving afterwards are
// dropped because every handler checks for a live session first.
func (r *Reconciler) Logout(ctx context.Context) {
	if err := r.api.Logout(ctx); err != nil {
		log.Printf("logout: %v", err)
	}

	r.mu.Lock()
	r.closed = true
	r.feedbacks = nil
	r.activeID = 0
	r.thread = nil
	r.mu.Unlock()
}

// --- projection accessors ---

func (r *Reconciler) Feedbacks() []models.Feedback {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listSnapshot()
}

func (r *Reconciler) ActiveID() models.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

func (r *Reconciler) Thread() []models.FeedbackMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threadSnapshot()
}

func (r *Reconciler) ComposerLocked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeID == 0 {
		return true
	}
	item := r.findFeedback(r.activeID)
	return item == nil || item.Status == consts.StatusResolved
}

// --- shared mutation paths ---

func (r *Reconciler) applyStatusChange(feedbackID models.ID, newStatus uint8) {
	r.mu.Lock()
	item := r.findFeedback(feedbackID)
	if item == nil {
		r.mu.Unlock()
		return
	}
	item.Status = newStatus

	active := r.activeID == feedbackID
	if active {
		r.thread = append(r.thread, models.FeedbackMessage{
			FeedbackID:  feedbackID,
			ContentType: consts.SystemMessage,
			Content:     "Feedback status changed to " + StatusText(newStatus),
			CreatedAt:   time.Now(),
		})
	}
	list := r.listSnapshot()
	thread := r.threadSnapshot()
	r.mu.Unlock()

	r.fireListChanged(list)
	if active {
		r.fireThreadChanged(thread)
		r.fireComposerLock(newStatus == consts.StatusResolved)
	}
}

func (r *Reconciler) applyDelete(feedbackID models.ID) bool {
	r.mu.Lock()
	idx := -1
	for i := range r.feedbacks {
		if r.feedbacks[i].ID == feedbackID {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return false
	}
	r.feedbacks = append(r.feedbacks[:idx], r.feedbacks[idx+1:]...)

	wasActive := r.activeID == feedbackID
	if wasActive {
		r.activeID = 0
		r.thread = nil
	}
	list := r.listSnapshot()
	thread := r.threadSnapshot()
	r.mu.Unlock()

	r.fireListChanged(list)
	if wasActive {
		r.fireThreadChanged(thread)
	}
	return true
}

func (r *Reconciler) sendReadReceipt(messageID, feedbackID models.ID) {
	r.mu.Lock()
	sender := r.sender
	r.mu.Unlock()

	if sender != nil {
		event := models.NewEvent(consts.EventRead, r.session.Peer(), nil,
			&models.ReadData{MessageID: messageID, FeedbackID: feedbackID})
		if err := sender.SendEvent(event); err != nil {
			log.Printf("send read event: %v", err)
		}
	}

	go func() {
		if err := r.api.MarkMessageRead(context.Background(), messageID); err != nil {
			log.Printf("mark message %s read: %v", messageID, err)
		}
	}()
}

// --- helpers ---

func (r *Reconciler) dead() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Reconciler) findFeedback(id models.ID) *models.Feedback {
	for i := range r.feedbacks {
		if r.feedbacks[i].ID == id {
			return &r.feedbacks[i]
		}
	}
	return nil
}

func (r *Reconciler) listSnapshot() []models.Feedback {
	list := make([]models.Feedback, len(r.feedbacks))
	copy(list, r.feedbacks)
	return list
}

func (r *Reconciler) threadSnapshot() []models.FeedbackMessage {
	thread := make([]models.FeedbackMessage, len(r.thread))
	copy(thread, r.thread)
	return thread
}

func (r *Reconciler) fireListChanged(list []models.Feedback) {
	if r.cb.ListChanged != nil {
		r.cb.ListChanged(list)
	}
}

func (r *Reconciler) fireThreadChanged(thread []models.FeedbackMessage) {
	if r.cb.ThreadChanged != nil {
		r.cb.ThreadChanged(thread)
	}
}

func (r *Reconciler) fireComposerLock(locked bool) {
	if r.cb.ComposerLock != nil {
		r.cb.ComposerLock(locked)
	}
}

func (r *Reconciler) notice(text string) {
	if r.cb.Notice != nil {
		r.cb.Notice(text)
	}
}

// StatusText names a feedback status for display.
func StatusText(status uint8) string {
	switch status {
	case consts.StatusOpen:
		return "Open"
	case consts.StatusInProgress:
		return "In Progress"
	case consts.StatusResolved:
		return "Resolved"
	}
	return "Unknown"
}

func mergeFeedback(lists ...[]models.Feedback) []models.Feedback {
	var merged []models.Feedback
	seen := make(map[models.ID]bool)
	for _, list := range lists {
		for _, f := range list {
			if !seen[f.ID] {
				seen[f.ID] = true
				merged = append(merged, f)
			}
		}
	}
	return merged
}

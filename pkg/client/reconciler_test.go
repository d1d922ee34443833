package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"feedback-app/internal/consts"
	"feedback-app/internal/models"
)

func respond(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    consts.CodeSuccess,
		"message": "success",
		"data":    data,
	})
}

type recorder struct {
	mu         sync.Mutex
	lastList   []models.Feedback
	lastThread []models.FeedbackMessage
	notices    []string
	locks      []bool
	expired    bool
}

func (rec *recorder) callbacks() Callbacks {
	return Callbacks{
		ListChanged: func(items []models.Feedback) {
			rec.mu.Lock()
			rec.lastList = items
			rec.mu.Unlock()
		},
		ThreadChanged: func(messages []models.FeedbackMessage) {
			rec.mu.Lock()
			rec.lastThread = messages
			rec.mu.Unlock()
		},
		ComposerLock: func(locked bool) {
			rec.mu.Lock()
			rec.locks = append(rec.locks, locked)
			rec.mu.Unlock()
		},
		Notice: func(text string) {
			rec.mu.Lock()
			rec.notices = append(rec.notices, text)
			rec.mu.Unlock()
		},
		AuthExpired: func() {
			rec.mu.Lock()
			rec.expired = true
			rec.mu.Unlock()
		},
	}
}

type fakeSender struct {
	mu     sync.Mutex
	events []models.WSEvent
}

func (s *fakeSender) SendEvent(event models.WSEvent) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

func (s *fakeSender) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kinds []string
	for _, e := range s.events {
		kinds = append(kinds, e.Event)
	}
	return kinds
}

var (
	userSession = Session{UserID: 5, Role: consts.RoleNameUser, DisplayName: "alice", Token: "t"}
	merchant    = &models.Peer{ID: 9, Type: consts.RoleMerchant, Name: "bob"}
)

func userFixtures() []models.Feedback {
	return []models.Feedback{
		{ID: 42, Title: "Broken scales", CreatorID: 5, TargetID: 9,
			TargetType: consts.TargetMerchant, Status: consts.StatusOpen},
		{ID: 43, Title: "Late delivery", CreatorID: 5, TargetID: 9,
			TargetType: consts.TargetMerchant, Status: consts.StatusOpen},
	}
}

// newUserReconciler serves the user fixtures over an httptest server and
// returns a reconciler that has loaded them. Overrides replace the default
// handler for a path.
func newUserReconciler(t *testing.T, overrides map[string]http.HandlerFunc) (*Reconciler, *recorder, *fakeSender) {
	t.Helper()

	handlers := map[string]http.HandlerFunc{
		"/feedback/creator": func(w http.ResponseWriter, r *http.Request) {
			respond(w, userFixtures())
		},
		"/message/feedback/": func(w http.ResponseWriter, r *http.Request) {
			respond(w, []models.FeedbackMessage{})
		},
		"/": func(w http.ResponseWriter, r *http.Request) {
			respond(w, nil)
		},
	}
	for path, h := range overrides {
		handlers[path] = h
	}
	mux := http.NewServeMux()
	for path, h := range handlers {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	api := New(srv.URL)
	api.SetToken("t")
	session := userSession
	rec := &recorder{}
	sender := &fakeSender{}

	r := NewReconciler(api, &session, rec.callbacks())
	r.AttachChannel(sender)
	if err := r.LoadFeedbacks(context.Background()); err != nil {
		t.Fatalf("LoadFeedbacks: %v", err)
	}
	return r, rec, sender
}

func pushEvent(t *testing.T, r *Reconciler, kind string, sender *models.Peer, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(models.NewEvent(kind, sender, nil, payload))
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	r.HandlePushEvent(raw)
}

func TestMessageOnActiveThread_AppendsAndKeepsUnreadZero(t *testing.T) {
	r, _, sender := newUserReconciler(t, nil)

	if err := r.SelectFeedback(context.Background(), 42); err != nil {
		t.Fatalf("SelectFeedback: %v", err)
	}

	pushEvent(t, r, consts.EventMessage, merchant, &models.MessageData{
		FeedbackID: 42, MessageID: 101, ContentType: consts.TextMessage, Content: "on my way",
	})

	thread := r.Thread()
	if len(thread) != 1 || thread[0].Content != "on my way" || thread[0].SenderID != 9 {
		t.Fatalf("thread = %+v, want the pushed message", thread)
	}
	for _, f := range r.Feedbacks() {
		if f.ID == 42 && f.UnreadCount != 0 {
			t.Errorf("active item unread = %d, want 0", f.UnreadCount)
		}
	}

	// Receiving a counterpart message in the open thread acknowledges it.
	kinds := sender.kinds()
	if len(kinds) == 0 || kinds[len(kinds)-1] != consts.EventRead {
		t.Errorf("sent events = %v, want a trailing read receipt", kinds)
	}
}

func TestMessageOnInactiveThread_IncrementsUnread(t *testing.T) {
	r, rec, _ := newUserReconciler(t, nil)

	if err := r.SelectFeedback(context.Background(), 42); err != nil {
		t.Fatalf("SelectFeedback: %v", err)
	}

	pushEvent(t, r, consts.EventMessage, merchant, &models.MessageData{
		FeedbackID: 43, MessageID: 102, ContentType: consts.TextMessage, Content: "hello",
	})

	for _, f := range r.Feedbacks() {
		if f.ID == 43 && f.UnreadCount != 1 {
			t.Errorf("inactive item unread = %d, want 1", f.UnreadCount)
		}
	}
	if len(r.Thread()) != 0 {
		t.Errorf("thread = %v, want untouched", r.Thread())
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.notices) == 0 {
		t.Error("want a notice for the background message")
	}
}

func TestSelfEcho_NeverDuplicatesOrCounts(t *testing.T) {
	r, _, _ := newUserReconciler(t, nil)

	if err := r.SelectFeedback(context.Background(), 42); err != nil {
		t.Fatalf("SelectFeedback: %v", err)
	}
	if err := r.SubmitMessage(context.Background(), "please fix it"); err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}
	if len(r.Thread()) != 1 {
		t.Fatalf("thread = %v, want the optimistic entry", r.Thread())
	}

	self := userSession.Peer()

	// The server echoes the message back to its sender.
	pushEvent(t, r, consts.EventMessage, self, &models.MessageData{
		FeedbackID: 42, MessageID: 103, ContentType: consts.TextMessage, Content: "please fix it",
	})
	if len(r.Thread()) != 1 {
		t.Errorf("thread = %v, self echo must not duplicate", r.Thread())
	}

	// Echo for an inactive item never bumps the unread counter.
	pushEvent(t, r, consts.EventMessage, self, &models.MessageData{
		FeedbackID: 43, MessageID: 104, ContentType: consts.TextMessage, Content: "other",
	})
	for _, f := range r.Feedbacks() {
		if f.UnreadCount != 0 {
			t.Errorf("item %s unread = %d, want 0 for self echoes", f.ID, f.UnreadCount)
		}
	}
}

func TestSelectFeedback_ZeroesUnread(t *testing.T) {
	r, _, _ := newUserReconciler(t, nil)

	pushEvent(t, r, consts.EventMessage, merchant, &models.MessageData{
		FeedbackID: 43, MessageID: 105, ContentType: consts.TextMessage, Content: "ping",
	})
	if err := r.SelectFeedback(context.Background(), 43); err != nil {
		t.Fatalf("SelectFeedback: %v", err)
	}
	for _, f := range r.Feedbacks() {
		if f.ID == 43 && f.UnreadCount != 0 {
			t.Errorf("selected item unread = %d, want 0", f.UnreadCount)
		}
	}
}

func TestResolvedFeedback_BlocksSubmitWithoutRequest(t *testing.T) {
	var posts int32
	r, rec, _ := newUserReconciler(t, map[string]http.HandlerFunc{
		"/message": func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&posts, 1)
			respond(w, nil)
		},
	})

	if err := r.SelectFeedback(context.Background(), 42); err != nil {
		t.Fatalf("SelectFeedback: %v", err)
	}
	pushEvent(t, r, consts.EventStatusChange, merchant, &models.StatusChangeData{
		FeedbackID: 42, OldStatus: consts.StatusOpen, NewStatus: consts.StatusResolved,
	})

	if err := r.SubmitMessage(context.Background(), "one more thing"); err != ErrComposerLocked {
		t.Fatalf("SubmitMessage = %v, want ErrComposerLocked", err)
	}
	if n := atomic.LoadInt32(&posts); n != 0 {
		t.Errorf("message POSTs = %d, want 0, rejection happens before the network", n)
	}
	if !r.ComposerLocked() {
		t.Error("ComposerLocked() = false, want true")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.locks) == 0 || !rec.locks[len(rec.locks)-1] {
		t.Errorf("ComposerLock callbacks = %v, want trailing true", rec.locks)
	}
}

func TestStatusChangeOnActive_AppendsSystemMessage(t *testing.T) {
	r, _, _ := newUserReconciler(t, nil)

	if err := r.SelectFeedback(context.Background(), 42); err != nil {
		t.Fatalf("SelectFeedback: %v", err)
	}
	pushEvent(t, r, consts.EventStatusChange, merchant, &models.StatusChangeData{
		FeedbackID: 42, OldStatus: consts.StatusOpen, NewStatus: consts.StatusInProgress,
	})

	thread := r.Thread()
	if len(thread) != 1 {
		t.Fatalf("thread = %v, want one system message", thread)
	}
	if thread[0].ContentType != consts.SystemMessage {
		t.Errorf("content type = %d, want system", thread[0].ContentType)
	}
	if thread[0].Content != "Feedback status changed to In Progress" {
		t.Errorf("content = %q", thread[0].Content)
	}
	if r.ComposerLocked() {
		t.Error("composer locked after In Progress, want unlocked")
	}
}

func TestStatusChange_IdempotentOnItem(t *testing.T) {
	r, _, _ := newUserReconciler(t, nil)

	change := &models.StatusChangeData{FeedbackID: 43, OldStatus: consts.StatusOpen, NewStatus: consts.StatusResolved}
	pushEvent(t, r, consts.EventStatusChange, merchant, change)
	first := r.Feedbacks()
	pushEvent(t, r, consts.EventStatusChange, merchant, change)
	second := r.Feedbacks()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("second application changed the list: %+v vs %+v", first, second)
	}
	for _, f := range second {
		if f.ID == 43 && f.Status != consts.StatusResolved {
			t.Errorf("status = %d, want resolved", f.Status)
		}
	}
}

func TestStatusChangeForUnknownItem_Ignored(t *testing.T) {
	r, _, _ := newUserReconciler(t, nil)

	pushEvent(t, r, consts.EventStatusChange, merchant, &models.StatusChangeData{
		FeedbackID: 777, OldStatus: consts.StatusOpen, NewStatus: consts.StatusResolved,
	})
	if len(r.Feedbacks()) != 2 {
		t.Errorf("list = %v, want untouched", r.Feedbacks())
	}
}

func TestDeleteOfActive_ClearsSelection(t *testing.T) {
	r, rec, _ := newUserReconciler(t, nil)

	if err := r.SelectFeedback(context.Background(), 42); err != nil {
		t.Fatalf("SelectFeedback: %v", err)
	}
	pushEvent(t, r, consts.EventFeedbackDelete, merchant, &models.FeedbackDeleteData{FeedbackID: 42})

	if r.ActiveID() != 0 {
		t.Errorf("ActiveID = %s, want 0", r.ActiveID())
	}
	if len(r.Thread()) != 0 {
		t.Errorf("thread = %v, want cleared", r.Thread())
	}
	if list := r.Feedbacks(); len(list) != 1 || list[0].ID != 43 {
		t.Errorf("list = %+v, want only 43", list)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.notices) == 0 {
		t.Error("want a deletion notice")
	}
}

func TestDeleteSelfEcho_Ignored(t *testing.T) {
	r, _, _ := newUserReconciler(t, nil)

	// The local delete already removed the item, the echo must not
	// touch what remains.
	pushEvent(t, r, consts.EventFeedbackDelete, userSession.Peer(),
		&models.FeedbackDeleteData{FeedbackID: 43})
	if len(r.Feedbacks()) != 2 {
		t.Errorf("list = %v, self echo must be a no-op", r.Feedbacks())
	}
}

func TestNewFeedback_RefetchesOnlyWhenVisible(t *testing.T) {
	var loads int32
	r, _, _ := newUserReconciler(t, map[string]http.HandlerFunc{
		"/feedback/creator": func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&loads, 1)
			respond(w, userFixtures())
		},
	})
	base := atomic.LoadInt32(&loads)

	// Someone else's feedback for someone else, invisible to a user role.
	pushEvent(t, r, consts.EventNewFeedback, merchant, &models.NewFeedbackData{
		FeedbackID: 90, Title: "Noise", CreatorID: 77, TargetID: 9, TargetType: consts.TargetMerchant,
	})
	if n := atomic.LoadInt32(&loads); n != base {
		t.Errorf("loads = %d, want %d, invisible item must not refetch", n, base)
	}

	// Created by this user (e.g. from another device), visible.
	pushEvent(t, r, consts.EventNewFeedback, userSession.Peer(), &models.NewFeedbackData{
		FeedbackID: 91, Title: "Mine", CreatorID: 5, TargetID: 9, TargetType: consts.TargetMerchant,
	})
	if n := atomic.LoadInt32(&loads); n != base+1 {
		t.Errorf("loads = %d, want %d after a visible new_feedback", n, base+1)
	}
}

func TestTypingIndicator_ShowsAndExpires(t *testing.T) {
	typing := make(chan string, 4)
	mux := http.NewServeMux()
	mux.HandleFunc("/feedback/creator", func(w http.ResponseWriter, r *http.Request) {
		respond(w, userFixtures())
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { respond(w, nil) })
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	api := New(srv.URL)
	session := userSession
	cb := Callbacks{
		Typing: func(name string, active bool) {
			if active {
				typing <- name
			} else {
				typing <- ""
			}
		},
	}
	r := NewReconciler(api, &session, cb, WithTypingTimeout(30*time.Millisecond))
	if err := r.LoadFeedbacks(context.Background()); err != nil {
		t.Fatalf("LoadFeedbacks: %v", err)
	}
	if err := r.SelectFeedback(context.Background(), 42); err != nil {
		t.Fatalf("SelectFeedback: %v", err)
	}

	pushEvent(t, r, consts.EventTyping, merchant, &models.TypingData{FeedbackID: 42, IsTyping: true})

	select {
	case name := <-typing:
		if name != "bob" {
			t.Errorf("typing name = %q, want bob", name)
		}
	case <-time.After(time.Second):
		t.Fatal("no typing callback")
	}
	select {
	case name := <-typing:
		if name != "" {
			t.Errorf("second typing callback = %q, want expiry", name)
		}
	case <-time.After(time.Second):
		t.Fatal("typing indicator never expired")
	}
}

func TestTypingForInactiveThread_Ignored(t *testing.T) {
	r, _, _ := newUserReconciler(t, nil)

	fired := false
	r.cb.Typing = func(string, bool) { fired = true }

	if err := r.SelectFeedback(context.Background(), 42); err != nil {
		t.Fatalf("SelectFeedback: %v", err)
	}
	pushEvent(t, r, consts.EventTyping, merchant, &models.TypingData{FeedbackID: 43, IsTyping: true})
	if fired {
		t.Error("typing callback fired for an inactive thread")
	}
}

func TestNotifyTyping_Cooldown(t *testing.T) {
	r, _, sender := newUserReconciler(t, nil)

	if err := r.SelectFeedback(context.Background(), 42); err != nil {
		t.Fatalf("SelectFeedback: %v", err)
	}
	r.NotifyTyping()
	r.NotifyTyping()
	r.NotifyTyping()

	var typings int
	for _, kind := range sender.kinds() {
		if kind == consts.EventTyping {
			typings++
		}
	}
	if typings != 1 {
		t.Errorf("typing events sent = %d, want 1 within the cooldown", typings)
	}
}

func TestReadEvent_MarksThreadMessage(t *testing.T) {
	r, _, _ := newUserReconciler(t, map[string]http.HandlerFunc{
		"/message/feedback/": func(w http.ResponseWriter, r *http.Request) {
			respond(w, []models.FeedbackMessage{
				{ID: 201, FeedbackID: 42, SenderID: 5, Content: "hi", IsRead: consts.Unread},
			})
		},
	})

	if err := r.SelectFeedback(context.Background(), 42); err != nil {
		t.Fatalf("SelectFeedback: %v", err)
	}
	pushEvent(t, r, consts.EventRead, merchant, &models.ReadData{MessageID: 201, FeedbackID: 42})

	thread := r.Thread()
	if len(thread) != 1 || thread[0].IsRead != consts.Read {
		t.Errorf("thread = %+v, want message 201 marked read", thread)
	}
}

func TestSubmitMessage_Validation(t *testing.T) {
	r, _, _ := newUserReconciler(t, nil)

	if err := r.SubmitMessage(context.Background(), "hi"); err != ErrNoActiveFeedback {
		t.Errorf("submit without selection = %v, want ErrNoActiveFeedback", err)
	}
	if err := r.SelectFeedback(context.Background(), 42); err != nil {
		t.Fatalf("SelectFeedback: %v", err)
	}
	if err := r.SubmitMessage(context.Background(), "   "); err != ErrEmptyMessage {
		t.Errorf("submit blank = %v, want ErrEmptyMessage", err)
	}
	long := strings.Repeat("x", consts.MaxMessageLength+1)
	if err := r.SubmitMessage(context.Background(), long); err != ErrMessageTooLong {
		t.Errorf("submit long = %v, want ErrMessageTooLong", err)
	}
}

func TestSubmitMessage_OptimisticEntrySurvivesFailure(t *testing.T) {
	r, rec, _ := newUserReconciler(t, map[string]http.HandlerFunc{
		"/message": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"code": 500, "message": "boom"})
		},
	})

	if err := r.SelectFeedback(context.Background(), 42); err != nil {
		t.Fatalf("SelectFeedback: %v", err)
	}
	if err := r.SubmitMessage(context.Background(), "lost?"); err == nil {
		t.Fatal("SubmitMessage = nil, want the persistence error")
	}

	// Optimistic rendering is kept even when persistence fails.
	if len(r.Thread()) != 1 {
		t.Errorf("thread = %v, want the optimistic entry kept", r.Thread())
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.notices) == 0 {
		t.Error("want a failure notice")
	}
}

func TestMalformedAndUnknownFrames_Dropped(t *testing.T) {
	r, _, _ := newUserReconciler(t, nil)

	r.HandlePushEvent([]byte("{not json"))
	r.HandlePushEvent([]byte(`{"event":"rebalance","data":{}}`))
	pushEvent(t, r, consts.EventMessage, merchant, json.RawMessage(`"scalar"`))

	if len(r.Feedbacks()) != 2 || r.ActiveID() != 0 {
		t.Errorf("projection changed by junk frames: %+v", r.Feedbacks())
	}
}

func TestAuthFailure_KillsSession(t *testing.T) {
	r, rec, _ := newUserReconciler(t, nil)

	r.HandleAuthFailure()

	rec.mu.Lock()
	expired := rec.expired
	rec.mu.Unlock()
	if !expired {
		t.Error("AuthExpired callback did not fire")
	}
	if err := r.LoadFeedbacks(context.Background()); err != ErrNoSession {
		t.Errorf("LoadFeedbacks after auth failure = %v, want ErrNoSession", err)
	}
	if err := r.SubmitMessage(context.Background(), "hi"); err != ErrNoSession {
		t.Errorf("SubmitMessage after auth failure = %v, want ErrNoSession", err)
	}

	// A second failure signal must not fire the callback twice.
	rec.mu.Lock()
	rec.expired = false
	rec.mu.Unlock()
	r.HandleAuthFailure()
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.expired {
		t.Error("AuthExpired fired twice")
	}
}

func TestMerchantLoad_MergesCreatedAndTargeted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/feedback/creator", func(w http.ResponseWriter, r *http.Request) {
		respond(w, []models.Feedback{
			{ID: 50, Title: "Mine", CreatorID: 9, TargetID: 1, TargetType: consts.TargetAdmin},
			{ID: 42, Title: "Broken scales", CreatorID: 5, TargetID: 9, TargetType: consts.TargetMerchant},
		})
	})
	mux.HandleFunc("/feedback/target", func(w http.ResponseWriter, r *http.Request) {
		respond(w, []models.Feedback{
			{ID: 42, Title: "Broken scales", CreatorID: 5, TargetID: 9, TargetType: consts.TargetMerchant},
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { respond(w, nil) })
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	api := New(srv.URL)
	session := Session{UserID: 9, Role: consts.RoleNameMerchant, DisplayName: "bob", Token: "t"}
	r := NewReconciler(api, &session, Callbacks{})
	if err := r.LoadFeedbacks(context.Background()); err != nil {
		t.Fatalf("LoadFeedbacks: %v", err)
	}

	list := r.Feedbacks()
	if len(list) != 2 {
		t.Fatalf("list = %+v, want union of 2 without duplicates", list)
	}
	seen := map[models.ID]bool{}
	for _, f := range list {
		seen[f.ID] = true
	}
	if !seen[42] || !seen[50] {
		t.Errorf("list = %+v, want ids 42 and 50", list)
	}
}

func TestVisibilityPredicates(t *testing.T) {
	user := &Session{UserID: 5, Role: consts.RoleNameUser}
	merch := &Session{UserID: 9, Role: consts.RoleNameMerchant}
	admin := &Session{UserID: 1, Role: consts.RoleNameAdmin}

	cases := []struct {
		name            string
		session         *Session
		creator, target models.ID
		targetType      uint8
		want            bool
	}{
		{"user sees own", user, 5, 9, consts.TargetMerchant, true},
		{"user blind to others", user, 7, 9, consts.TargetMerchant, false},
		{"user blind to targeted", user, 9, 5, consts.TargetMerchant, false},
		{"merchant sees created", merch, 9, 1, consts.TargetAdmin, true},
		{"merchant sees targeted", merch, 5, 9, consts.TargetMerchant, true},
		{"merchant blind to admin-targeted", merch, 5, 9, consts.TargetAdmin, false},
		{"admin sees all", admin, 5, 9, consts.TargetMerchant, true},
	}
	for _, tc := range cases {
		pred := VisibilityForRole(tc.session.Role)
		if got := pred(tc.session, tc.creator, tc.target, tc.targetType); got != tc.want {
			t.Errorf("%s: visible = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestLoadFeedbacks_PreservesUnreadAcrossRefetch(t *testing.T) {
	r, _, _ := newUserReconciler(t, nil)

	pushEvent(t, r, consts.EventMessage, merchant, &models.MessageData{
		FeedbackID: 43, MessageID: 301, ContentType: consts.TextMessage, Content: "ping",
	})
	if err := r.LoadFeedbacks(context.Background()); err != nil {
		t.Fatalf("LoadFeedbacks: %v", err)
	}
	for _, f := range r.Feedbacks() {
		if f.ID == 43 && f.UnreadCount != 1 {
			t.Errorf("unread after refetch = %d, want 1", f.UnreadCount)
		}
	}
}

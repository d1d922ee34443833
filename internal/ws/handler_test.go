package ws

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"feedback-app/internal/consts"
	"feedback-app/internal/models"
	"feedback-app/pkg/client"

	"github.com/gin-gonic/gin"
)

func newPushServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	validate := func(token string) (uint64, string, string, error) {
		switch token {
		case "alice-token":
			return 5, "alice", consts.RoleNameUser, nil
		case "bob-token":
			return 9, "bob", consts.RoleNameMerchant, nil
		}
		return 0, "", "", errors.New("bad token")
	}

	h := NewHandler(validate)
	router := gin.New()
	h.RegisterRoutes(router.Group("/api"))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
}

func dialPush(t *testing.T, wsURL string, session *client.Session) (*client.Channel, <-chan []byte, <-chan string) {
	t.Helper()

	ch, err := client.Dial(wsURL, session)
	if err != nil {
		t.Fatalf("dial push channel: %v", err)
	}
	t.Cleanup(ch.Close)

	frames := make(chan []byte, 16)
	closes := make(chan string, 2)
	go ch.Listen(
		func(raw []byte) { frames <- raw },
		func() { closes <- "auth" },
		func() { closes <- "disconnect" },
	)
	return ch, frames, closes
}

func waitEvent(t *testing.T, frames <-chan []byte, kind string) models.WSEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case raw := <-frames:
			var event models.WSEvent
			if err := json.Unmarshal(raw, &event); err != nil {
				t.Fatalf("unmarshal frame %s: %v", raw, err)
			}
			if event.Event == kind {
				return event
			}
		case <-deadline:
			t.Fatalf("no %q event arrived", kind)
		}
	}
}

var (
	alice = client.Session{UserID: 5, Role: consts.RoleNameUser, DisplayName: "alice", Token: "alice-token"}
	bob   = client.Session{UserID: 9, Role: consts.RoleNameMerchant, DisplayName: "bob", Token: "bob-token"}
)

func TestBadToken_ClosedAsAuthFailure(t *testing.T) {
	wsURL := newPushServer(t)

	session := alice
	session.Token = "forged"
	_, _, closes := dialPush(t, wsURL, &session)

	select {
	case reason := <-closes:
		if reason != "auth" {
			t.Errorf("close reason = %q, want auth", reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("connection with a bad token was not closed")
	}
}

func TestRegister_DeliversConnectEvent(t *testing.T) {
	wsURL := newPushServer(t)

	session := alice
	_, frames, _ := dialPush(t, wsURL, &session)

	event := waitEvent(t, frames, consts.EventConnect)
	if event.Sender == nil || event.Sender.ID != 5 || event.Sender.Name != "alice" {
		t.Errorf("connect sender = %+v, want alice", event.Sender)
	}
}

func TestDirectedMessage_ReachesReceiverWithStampedSender(t *testing.T) {
	wsURL := newPushServer(t)

	aliceSession, bobSession := alice, bob
	aliceCh, aliceFrames, _ := dialPush(t, wsURL, &aliceSession)
	_, bobFrames, _ := dialPush(t, wsURL, &bobSession)
	waitEvent(t, aliceFrames, consts.EventConnect)
	waitEvent(t, bobFrames, consts.EventConnect)

	// The sender field is forged, the server must stamp the real identity.
	event := models.NewEvent(consts.EventMessage,
		&models.Peer{ID: 99, Type: consts.RoleAdmin, Name: "mallory"},
		&models.Peer{ID: 9, Type: consts.RoleMerchant},
		&models.MessageData{FeedbackID: 42, MessageID: 7, ContentType: consts.TextMessage, Content: "hi"})
	if err := aliceCh.SendEvent(event); err != nil {
		t.Fatalf("send event: %v", err)
	}

	got := waitEvent(t, bobFrames, consts.EventMessage)
	if got.Sender == nil || got.Sender.ID != 5 || got.Sender.Name != "alice" {
		t.Errorf("sender = %+v, want the stamped alice identity", got.Sender)
	}
	var data models.MessageData
	if err := json.Unmarshal(got.Data, &data); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if data.FeedbackID != 42 || data.Content != "hi" {
		t.Errorf("payload = %+v", data)
	}
}

func TestStatusChange_BroadcastToEveryone(t *testing.T) {
	wsURL := newPushServer(t)

	aliceSession, bobSession := alice, bob
	aliceCh, aliceFrames, _ := dialPush(t, wsURL, &aliceSession)
	_, bobFrames, _ := dialPush(t, wsURL, &bobSession)
	waitEvent(t, aliceFrames, consts.EventConnect)
	waitEvent(t, bobFrames, consts.EventConnect)

	event := models.NewEvent(consts.EventStatusChange, nil, nil,
		&models.StatusChangeData{FeedbackID: 42, OldStatus: consts.StatusOpen, NewStatus: consts.StatusResolved})
	if err := aliceCh.SendEvent(event); err != nil {
		t.Fatalf("send event: %v", err)
	}

	for name, frames := range map[string]<-chan []byte{"alice": aliceFrames, "bob": bobFrames} {
		got := waitEvent(t, frames, consts.EventStatusChange)
		var data models.StatusChangeData
		if err := json.Unmarshal(got.Data, &data); err != nil {
			t.Fatalf("%s: unmarshal payload: %v", name, err)
		}
		if data.NewStatus != consts.StatusResolved {
			t.Errorf("%s: new status = %d, want resolved", name, data.NewStatus)
		}
	}
}

func TestTypingWithoutReceiver_Broadcast(t *testing.T) {
	wsURL := newPushServer(t)

	aliceSession, bobSession := alice, bob
	aliceCh, aliceFrames, _ := dialPush(t, wsURL, &aliceSession)
	_, bobFrames, _ := dialPush(t, wsURL, &bobSession)
	waitEvent(t, aliceFrames, consts.EventConnect)
	waitEvent(t, bobFrames, consts.EventConnect)

	event := models.NewEvent(consts.EventTyping, aliceSession.Peer(), nil,
		&models.TypingData{FeedbackID: 42, IsTyping: true})
	if err := aliceCh.SendEvent(event); err != nil {
		t.Fatalf("send event: %v", err)
	}

	got := waitEvent(t, bobFrames, consts.EventTyping)
	if got.Sender == nil || got.Sender.ID != 5 {
		t.Errorf("sender = %+v, want alice", got.Sender)
	}
}

func TestReconnect_ReplacesPreviousConnection(t *testing.T) {
	wsURL := newPushServer(t)

	first := alice
	_, firstFrames, firstCloses := dialPush(t, wsURL, &first)
	waitEvent(t, firstFrames, consts.EventConnect)

	second := alice
	_, secondFrames, _ := dialPush(t, wsURL, &second)
	waitEvent(t, secondFrames, consts.EventConnect)

	select {
	case reason := <-firstCloses:
		if reason != "disconnect" {
			t.Errorf("first connection close reason = %q, want disconnect", reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first connection survived a reconnect")
	}
}

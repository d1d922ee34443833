package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"feedback-app/internal/consts"
	"feedback-app/internal/models"
	"feedback-app/pkg/client"
)

// Terminal front-end for the feedback client. It wires the REST client, the
// push channel and the reconciler together and renders the projection as
// plain text.
func main() {
	server := flag.String("server", "http://localhost:8080", "feedback server base URL")
	username := flag.String("user", "", "username")
	password := flag.String("pass", "", "password")
	role := flag.String("role", consts.RoleNameUser, "role: user, merchant or admin")
	flag.Parse()

	ctx := context.Background()
	stdin := bufio.NewScanner(os.Stdin)

	if *username == "" {
		*username = prompt(stdin, "username: ")
	}
	if *password == "" {
		*password = prompt(stdin, "password: ")
	}

	api := client.New(strings.TrimRight(*server, "/") + "/api")
	session, err := api.Login(ctx, *username, *password, *role)
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	fmt.Printf("logged in as %s (%s)\n", session.DisplayName, session.Role)

	expired := make(chan struct{})
	reconciler := client.NewReconciler(api, session, client.Callbacks{
		ListChanged:   renderList,
		ThreadChanged: renderThread,
		Typing: func(name string, active bool) {
			if active {
				fmt.Printf("  %s is typing...\n", name)
			}
		},
		ComposerLock: func(locked bool) {
			if locked {
				fmt.Println("  [thread resolved, composer locked]")
			}
		},
		Notice: func(text string) {
			fmt.Println("  *", text)
		},
		AuthExpired: func() {
			fmt.Println("session expired, please log in again")
			close(expired)
		},
	})

	wsURL := "ws" + strings.TrimPrefix(strings.TrimRight(*server, "/"), "http") + "/api/ws"
	channel, err := client.Dial(wsURL, session)
	if err != nil {
		log.Fatalf("connect push channel: %v", err)
	}
	defer channel.Close()
	reconciler.AttachChannel(channel)

	go channel.Listen(
		reconciler.HandlePushEvent,
		reconciler.HandleAuthFailure,
		func() { fmt.Println("push channel disconnected") },
	)

	if err := reconciler.LoadFeedbacks(ctx); err != nil {
		log.Fatalf("load feedback list: %v", err)
	}

	done := make(chan struct{})
	go repl(ctx, stdin, reconciler, done)

	select {
	case <-done:
	case <-expired:
	}
}

func repl(ctx context.Context, stdin *bufio.Scanner, r *client.Reconciler, done chan struct{}) {
	defer close(done)

	fmt.Println("commands: ls | open <id> | say <text> | new | status <id> <1-3> | rm <id> | quit")
	for {
		fmt.Print("> ")
		if !stdin.Scan() {
			return
		}
		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")

		var err error
		switch cmd {
		case "ls":
			renderList(r.Feedbacks())
		case "open":
			var id uint64
			if id, err = strconv.ParseUint(rest, 10, 64); err == nil {
				err = r.SelectFeedback(ctx, models.ID(id))
			}
		case "say":
			r.NotifyTyping()
			err = r.SubmitMessage(ctx, rest)
		case "new":
			err = createFeedback(ctx, stdin, r)
		case "status":
			err = updateStatus(ctx, r, rest)
		case "rm":
			var id uint64
			if id, err = strconv.ParseUint(rest, 10, 64); err == nil {
				err = r.DeleteFeedback(ctx, models.ID(id))
			}
		case "quit":
			r.Logout(ctx)
			return
		default:
			fmt.Println("unknown command:", cmd)
		}
		if err != nil {
			fmt.Println("  !", err)
		}
	}
}

func createFeedback(ctx context.Context, stdin *bufio.Scanner, r *client.Reconciler) error {
	title := prompt(stdin, "title: ")
	content := prompt(stdin, "content: ")
	target := prompt(stdin, "target (merchant id, or 'admin'): ")

	req := &models.CreateFeedbackRequest{Title: title, Content: content}
	if target == "admin" {
		req.TargetType = consts.TargetAdmin
		req.TargetID = 1
	} else {
		id, err := strconv.ParseUint(target, 10, 64)
		if err != nil {
			return fmt.Errorf("bad target %q", target)
		}
		req.TargetType = consts.TargetMerchant
		req.TargetID = models.ID(id)
	}

	_, err := r.CreateFeedback(ctx, req)
	return err
}

func updateStatus(ctx context.Context, r *client.Reconciler, rest string) error {
	idArg, statusArg, ok := strings.Cut(rest, " ")
	if !ok {
		return fmt.Errorf("usage: status <id> <1-3>")
	}
	id, err := strconv.ParseUint(idArg, 10, 64)
	if err != nil {
		return err
	}
	status, err := strconv.ParseUint(statusArg, 10, 8)
	if err != nil {
		return err
	}
	return r.UpdateStatus(ctx, models.ID(id), uint8(status))
}

func renderList(items []models.Feedback) {
	if len(items) == 0 {
		fmt.Println("  (no feedback)")
		return
	}
	for _, f := range items {
		unread := ""
		if f.UnreadCount > 0 {
			unread = fmt.Sprintf(" [%d unread]", f.UnreadCount)
		}
		fmt.Printf("  #%s %-30s %-12s %s -> %s%s\n",
			f.ID, f.Title, client.StatusText(f.Status), f.CreatorName, f.TargetName, unread)
	}
}

func renderThread(messages []models.FeedbackMessage) {
	for _, m := range messages {
		if m.ContentType == consts.SystemMessage {
			fmt.Printf("  -- %s --\n", m.Content)
			continue
		}
		read := ""
		if m.IsRead == consts.Read {
			read = " (read)"
		}
		fmt.Printf("  %s: %s%s\n", m.SenderName, m.Content, read)
	}
}

func prompt(stdin *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !stdin.Scan() {
		os.Exit(0)
	}
	return strings.TrimSpace(stdin.Text())
}

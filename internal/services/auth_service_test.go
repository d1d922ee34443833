package services

import (
	"context"
	"testing"

	"feedback-app/internal/consts"
	"feedback-app/internal/models"
	"feedback-app/internal/utils"
)

func newAuthFixture() (*AuthService, *memUsers) {
	users := &memUsers{users: map[uint64]*models.User{}}
	jwt := utils.NewJWTUtil("test-secret")
	return NewAuthService(users, jwt, nil), users
}

func TestRegisterLoginValidate_RoundTrip(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	user, err := svc.Register(ctx, &models.RegisterRequest{
		Username: "alice", Password: "secret123", Role: consts.RoleNameUser,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == 0 || user.Password != "" {
		t.Errorf("registered user = %+v, want id assigned and password cleared", user)
	}

	resp, err := svc.Login(ctx, &models.LoginRequest{
		Username: "alice", Password: "secret123", Role: consts.RoleNameUser,
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login returned no token")
	}

	resolved, err := svc.ValidateToken(ctx, resp.Token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if resolved.ID != user.ID || resolved.Username != "alice" || resolved.Role != consts.RoleNameUser {
		t.Errorf("resolved identity = %+v, want alice", resolved)
	}
}

func TestLogin_WrongCredentials(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	if _, err := svc.Register(ctx, &models.RegisterRequest{
		Username: "alice", Password: "secret123", Role: consts.RoleNameUser,
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Login(ctx, &models.LoginRequest{
		Username: "alice", Password: "wrong", Role: consts.RoleNameUser,
	}); err != ErrInvalidCredentials {
		t.Errorf("wrong password Login = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, &models.LoginRequest{
		Username: "alice", Password: "secret123", Role: consts.RoleNameMerchant,
	}); err != ErrInvalidCredentials {
		t.Errorf("wrong role Login = %v, want ErrInvalidCredentials", err)
	}
}

// The same username may exist once per role, they are distinct accounts.
func TestRegister_UsernameScopedByRole(t *testing.T) {
	svc, _ := newAuthFixture()
	ctx := context.Background()

	if _, err := svc.Register(ctx, &models.RegisterRequest{
		Username: "alice", Password: "secret123", Role: consts.RoleNameUser,
	}); err != nil {
		t.Fatalf("Register user: %v", err)
	}
	if _, err := svc.Register(ctx, &models.RegisterRequest{
		Username: "alice", Password: "secret123", Role: consts.RoleNameUser,
	}); err == nil {
		t.Error("duplicate username within a role accepted")
	}
	if _, err := svc.Register(ctx, &models.RegisterRequest{
		Username: "alice", Password: "secret123", Role: consts.RoleNameMerchant,
	}); err != nil {
		t.Errorf("same username in another role rejected: %v", err)
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	svc, _ := newAuthFixture()

	if _, err := svc.ValidateToken(context.Background(), "not-a-token"); err == nil {
		t.Error("garbage token accepted")
	}
}

func TestMerchants_PasswordsStripped(t *testing.T) {
	svc, users := newAuthFixture()
	users.users[9] = &models.User{ID: 9, Username: "bob", Password: "hash", Role: consts.RoleNameMerchant}

	merchants, err := svc.Merchants(context.Background())
	if err != nil {
		t.Fatalf("Merchants: %v", err)
	}
	if len(merchants) != 1 || merchants[0].Password != "" {
		t.Errorf("merchants = %+v, want bob with password stripped", merchants)
	}
}

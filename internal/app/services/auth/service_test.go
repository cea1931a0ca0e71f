package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domainuser "esocial/internal/domain/user"
	"esocial/internal/infra/storage/memory"
)

type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) { return "hash:" + password, nil }

func (stubHasher) Compare(hash, password string) error {
	if hash != "hash:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type stubTokens struct {
	n int
}

func (g *stubTokens) NewToken() (string, error) {
	g.n++
	return fmt.Sprintf("token-%d", g.n), nil
}

type sentMail struct {
	kind  string
	to    string
	token string
}

type stubMailer struct {
	sent []sentMail
}

func (m *stubMailer) SendVerification(_ context.Context, to, token string) error {
	m.sent = append(m.sent, sentMail{kind: "verification", to: to, token: token})
	return nil
}

func (m *stubMailer) SendPasswordReset(_ context.Context, to, token string) error {
	m.sent = append(m.sent, sentMail{kind: "reset", to: to, token: token})
	return nil
}

func (m *stubMailer) last(t *testing.T, kind string) sentMail {
	t.Helper()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind {
			return m.sent[i]
		}
	}
	t.Fatalf("no %s mail sent", kind)
	return sentMail{}
}

type authFixture struct {
	svc   *Service
	users *memory.UserRepository
	mail  *stubMailer
	clock *time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	// The session store compares expiry against the wall clock, so the
	// injected clock starts at real time instead of a fixed date.
	start := time.Now().UTC().Truncate(time.Second)
	clock := &start
	mail := &stubMailer{}
	users := memory.NewUserRepository()
	svc := &Service{
		Users:           users,
		Sessions:        memory.NewSessionStore(),
		Passwords:       stubHasher{},
		Tokens:          &stubTokens{},
		Mail:            mail,
		RequireEduEmail: true,
		RequireVerified: true,
		Now:             func() time.Time { return *clock },
	}
	return &authFixture{svc: svc, users: users, mail: mail, clock: clock}
}

func (f *authFixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func (f *authFixture) register(t *testing.T, email string) *AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterParams{
		Email:      email,
		FirstName:  "Leyla",
		LastName:   "Aliyeva",
		Password:   "correct horse",
		Role:       domainuser.RoleStudent,
		University: "Baku State University",
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return res
}

func (f *authFixture) verify(t *testing.T) {
	t.Helper()
	token := f.mail.last(t, "verification").token
	if _, err := f.svc.VerifyEmail(context.Background(), token); err != nil {
		t.Fatalf("verify email: %v", err)
	}
}

func TestRegisterOpensSessionAndMailsVerification(t *testing.T) {
	f := newAuthFixture(t)
	res := f.register(t, "leyla@bsu.edu.az")

	if res.Token == "" {
		t.Fatal("expected a session token")
	}
	if res.User.Verified {
		t.Fatal("new accounts must start unverified")
	}

	resolved, err := f.svc.ResolveToken(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("resolve token: %v", err)
	}
	if resolved.User.ID != res.User.ID {
		t.Fatalf("token resolved to %s, want %s", resolved.User.ID, res.User.ID)
	}

	mail := f.mail.last(t, "verification")
	if mail.to != "leyla@bsu.edu.az" || mail.token == "" {
		t.Fatalf("unexpected verification mail %+v", mail)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterParams{
		Email:      "leyla@gmail.com",
		FirstName:  "Leyla",
		LastName:   "Aliyeva",
		Password:   "correct horse",
		Role:       domainuser.RoleStudent,
		University: "Baku State University",
	})
	if !errors.Is(err, domainuser.ErrEmailNotEducational) {
		t.Fatalf("non academic email: got %v", err)
	}

	_, err = f.svc.Register(context.Background(), RegisterParams{
		Email:      "leyla@bsu.edu.az",
		FirstName:  "Leyla",
		LastName:   "Aliyeva",
		Password:   "short",
		Role:       domainuser.RoleStudent,
		University: "Baku State University",
	})
	if !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("short password: got %v", err)
	}

	f.register(t, "leyla@bsu.edu.az")
	_, err = f.svc.Register(context.Background(), RegisterParams{
		Email:      "leyla@bsu.edu.az",
		FirstName:  "Leyla",
		LastName:   "Aliyeva",
		Password:   "correct horse",
		Role:       domainuser.RoleStudent,
		University: "Baku State University",
	})
	if !errors.Is(err, domainuser.ErrEmailAlreadyUsed) {
		t.Fatalf("duplicate email: got %v", err)
	}
}

func TestVerifyEmailConsumesToken(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "leyla@bsu.edu.az")
	token := f.mail.last(t, "verification").token

	user, err := f.svc.VerifyEmail(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !user.Verified {
		t.Fatal("user should be verified")
	}

	// MarkVerified consumed the grant, so the token no longer resolves.
	if _, err := f.svc.VerifyEmail(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("second verify: got %v", err)
	}
	if _, err := f.svc.VerifyEmail(context.Background(), "no-such-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("unknown token: got %v", err)
	}
}

func TestVerifyEmailRejectsExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "leyla@bsu.edu.az")
	token := f.mail.last(t, "verification").token

	f.advance(25 * time.Hour)
	if _, err := f.svc.VerifyEmail(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expired token: got %v", err)
	}
}

func TestLoginChecksCredentials(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "leyla@bsu.edu.az")
	f.verify(t)

	res, err := f.svc.Login(context.Background(), LoginParams{Email: "Leyla@BSU.edu.az", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.User.Online {
		t.Fatal("login should flip the user online")
	}

	if _, err := f.svc.Login(context.Background(), LoginParams{Email: "leyla@bsu.edu.az", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := f.svc.Login(context.Background(), LoginParams{Email: "nobody@bsu.edu.az", Password: "correct horse"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", err)
	}
}

func TestLoginRequiresVerifiedAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "leyla@bsu.edu.az")

	_, err := f.svc.Login(context.Background(), LoginParams{Email: "leyla@bsu.edu.az", Password: "correct horse"})
	if !errors.Is(err, ErrNotVerified) {
		t.Fatalf("unverified login: got %v", err)
	}

	f.verify(t)
	if _, err := f.svc.Login(context.Background(), LoginParams{Email: "leyla@bsu.edu.az", Password: "correct horse"}); err != nil {
		t.Fatalf("verified login: %v", err)
	}
}

func TestRegisterAutoVerifiesWhenVerificationOff(t *testing.T) {
	f := newAuthFixture(t)
	f.svc.RequireVerified = false

	res := f.register(t, "leyla@bsu.edu.az")
	if !res.User.Verified {
		t.Fatal("account should be verified at registration")
	}
	if len(f.mail.sent) != 0 {
		t.Fatalf("no verification mail expected, got %d", len(f.mail.sent))
	}
	if _, err := f.svc.Login(context.Background(), LoginParams{Email: "leyla@bsu.edu.az", Password: "correct horse"}); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestLogoutDropsSessionAndPresence(t *testing.T) {
	f := newAuthFixture(t)
	res := f.register(t, "leyla@bsu.edu.az")

	if err := f.svc.Logout(context.Background(), res.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.svc.ResolveToken(context.Background(), res.Token); err == nil {
		t.Fatal("token should be revoked after logout")
	}
	user, err := f.users.ByID(context.Background(), res.User.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if user.Online {
		t.Fatal("logout should flip the user offline")
	}

	// Repeat and unknown tokens are a no-op.
	if err := f.svc.Logout(context.Background(), res.Token); err != nil {
		t.Fatalf("repeat logout: %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	res := f.register(t, "leyla@bsu.edu.az")
	f.verify(t)

	if err := f.svc.ForgotPassword(context.Background(), "leyla@bsu.edu.az"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	token := f.mail.last(t, "reset").token

	if err := f.svc.ResetPassword(context.Background(), token, "brand new pass"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	// Existing sessions are revoked and the token is single use.
	if _, err := f.svc.ResolveToken(context.Background(), res.Token); err == nil {
		t.Fatal("sessions should be revoked after a password reset")
	}
	if err := f.svc.ResetPassword(context.Background(), token, "another pass"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("token reuse: got %v", err)
	}

	if _, err := f.svc.Login(context.Background(), LoginParams{Email: "leyla@bsu.edu.az", Password: "correct horse"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password: got %v", err)
	}
	if _, err := f.svc.Login(context.Background(), LoginParams{Email: "leyla@bsu.edu.az", Password: "brand new pass"}); err != nil {
		t.Fatalf("new password: %v", err)
	}
}

func TestForgotPasswordDoesNotRevealAccounts(t *testing.T) {
	f := newAuthFixture(t)
	if err := f.svc.ForgotPassword(context.Background(), "unknown@bsu.edu.az"); err != nil {
		t.Fatalf("unknown address must look like success, got %v", err)
	}
	if len(f.mail.sent) != 0 {
		t.Fatalf("no mail expected, got %d", len(f.mail.sent))
	}
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "leyla@bsu.edu.az")
	if err := f.svc.ForgotPassword(context.Background(), "leyla@bsu.edu.az"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	token := f.mail.last(t, "reset").token

	f.advance(2 * time.Hour)
	if err := f.svc.ResetPassword(context.Background(), token, "brand new pass"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expired token: got %v", err)
	}
}

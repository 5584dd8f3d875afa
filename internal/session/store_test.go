package session

import (
	"errors"
	"testing"

	"github.com/chetan-code/tasktracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() RegisterRequest {
	return RegisterRequest{
		Name:            "Ada",
		Email:           "a@b.com",
		Password:        "123456",
		ConfirmPassword: "123456",
	}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	return verr.Fields
}

func TestStore_LoginReplacesSession(t *testing.T) {
	s := New()

	_, ok := s.Current()
	assert.False(t, ok)

	first := s.Login(models.Identity{Email: "one@example.com", Name: "One"})
	second := s.Login(models.Identity{Email: "Two@Example.com ", Name: "Two"})

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "two@example.com", cur.Email)
	assert.Equal(t, "Two", cur.Name)

	assert.False(t, s.Valid(first))
	assert.True(t, s.Valid(second))
}

func TestStore_LoginAndLogoutRunResetHooks(t *testing.T) {
	s := New()
	resets := 0
	s.OnReset(func() { resets++ })

	s.Login(models.Identity{Email: "a@b.com"})
	s.Login(models.Identity{Email: "c@d.com"})
	s.Logout()
	assert.Equal(t, 3, resets)

	_, ok := s.Current()
	assert.False(t, ok)
}

func TestStore_LogoutWhenAnonymousIsNoop(t *testing.T) {
	s := New()
	resets := 0
	s.OnReset(func() { resets++ })

	s.Logout()
	s.Logout()

	assert.Equal(t, 0, resets)
	_, ok := s.Ticket()
	assert.False(t, ok)
}

func TestStore_EnrichAppliesToLiveSession(t *testing.T) {
	s := New()
	tk := s.Login(DemoIdentity("a@b.com"))

	err := s.Enrich(tk, &models.Profile{Name: "Leanne Graham", Phone: "1-770-736-8031"})
	require.NoError(t, err)

	cur, _ := s.Current()
	assert.Equal(t, "Leanne Graham", cur.Name)
	assert.Equal(t, "1-770-736-8031", cur.Phone)
	assert.Equal(t, "https://i.pravatar.cc/150?u=a%40b.com", cur.Avatar)
}

func TestStore_EnrichNilProfileKeepsIdentity(t *testing.T) {
	s := New()
	tk := s.Login(DemoIdentity("a@b.com"))

	require.NoError(t, s.Enrich(tk, nil))

	cur, _ := s.Current()
	assert.Equal(t, "Demo User", cur.Name)
}

func TestStore_EnrichAfterLogoutIsStale(t *testing.T) {
	s := New()
	tk := s.Login(DemoIdentity("a@b.com"))
	s.Logout()

	err := s.Enrich(tk, &models.Profile{Name: "late"})
	assert.ErrorIs(t, err, ErrStaleResult)
}

func TestStore_EnrichAfterReloginIsStale(t *testing.T) {
	s := New()
	tk := s.Login(DemoIdentity("a@b.com"))
	s.Login(DemoIdentity("a@b.com"))

	err := s.Enrich(tk, &models.Profile{Name: "late"})
	assert.ErrorIs(t, err, ErrStaleResult)

	cur, _ := s.Current()
	assert.Equal(t, "Demo User", cur.Name)
}

func TestStore_Register(t *testing.T) {
	s := New()

	acc, err := s.Register(validRequest())
	require.NoError(t, err)
	assert.Equal(t, "Ada", acc.Name)
	assert.Equal(t, "a@b.com", acc.Email)
	assert.NotEqual(t, []byte("123456"), acc.PasswordHash)

	_, ok := s.Current()
	assert.False(t, ok, "register must not log in")
	assert.Len(t, s.Accounts(), 1)
}

func TestStore_RegisterValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(r *RegisterRequest)
		field string
	}{
		{"empty name", func(r *RegisterRequest) { r.Name = "" }, "name"},
		{"blank name", func(r *RegisterRequest) { r.Name = "   " }, "name"},
		{"malformed email", func(r *RegisterRequest) { r.Email = "not-an-email" }, "email"},
		{"empty email", func(r *RegisterRequest) { r.Email = "" }, "email"},
		{"short password", func(r *RegisterRequest) { r.Password, r.ConfirmPassword = "12345", "12345" }, "password"},
		{"mismatched confirmation", func(r *RegisterRequest) { r.ConfirmPassword = "654321" }, "confirmPassword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			req := validRequest()
			tt.edit(&req)

			_, err := s.Register(req)
			fields := fieldErrors(t, err)
			assert.Contains(t, fields, tt.field)
			assert.Empty(t, s.Accounts())
		})
	}
}

func TestStore_RegisterReportsEveryBadField(t *testing.T) {
	s := New()
	_, err := s.Register(RegisterRequest{Email: "x", Password: "1", ConfirmPassword: "2"})

	fields := fieldErrors(t, err)
	assert.Len(t, fields, 4)
	assert.Equal(t, "Passwords do not match.", fields["confirmPassword"])
}

func TestStore_RegisterDuplicateEmail(t *testing.T) {
	s := New()
	_, err := s.Register(validRequest())
	require.NoError(t, err)

	dup := validRequest()
	dup.Email = " A@B.com"
	_, err = s.Register(dup)

	fields := fieldErrors(t, err)
	assert.Equal(t, "Email already registered.", fields["email"])
	assert.Len(t, s.Accounts(), 1)
}

func TestStore_Authenticate(t *testing.T) {
	s := New()
	_, err := s.Register(validRequest())
	require.NoError(t, err)

	id, err := s.Authenticate("a@b.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "Ada", id.Name)

	_, err = s.Authenticate("a@b.com", "wrong!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Authenticate("nobody@b.com", "123456")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateLogin(t *testing.T) {
	assert.NoError(t, ValidateLogin("a@b.com", "123456"))

	err := ValidateLogin("a@b", "123")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Field("email"))
	assert.NotEmpty(t, verr.Field("password"))
	assert.Contains(t, err.Error(), "email: ")
}

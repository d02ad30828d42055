package service

import (
	"errors"
	"testing"
	"time"

	"go-brokerage-crm/internal/authz"
	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	svc       AuthService
	employees *memEmployees
	otps      *memOTPs
	mail      *fakeMailer
	signer    *jwt.Signer
	now       time.Time
}

func newAuthFixture(t *testing.T, es ...*model.Employee) *authFixture {
	t.Helper()
	f := &authFixture{
		employees: newMemEmployees(es...),
		otps:      &memOTPs{},
		mail:      &fakeMailer{},
		now:       time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC),
	}
	signer, err := jwt.NewSigner("test-secret", 0)
	require.NoError(t, err)
	f.signer = signer.WithClock(func() time.Time { return f.now })
	f.svc = NewAuthService(f.employees, f.otps, f.signer, f.mail)
	return f
}

func TestLogin_Success(t *testing.T) {
	dealer := employee("Ravi", "ravi@example.com", model.RoleEquityDealer, model.RoleAdmin)
	f := newAuthFixture(t, dealer)

	res, err := f.svc.Login("  RAVI@example.com ", "correct-horse", "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, f.now.Add(jwt.DefaultTTL), res.ExpiresAt)
	assert.Equal(t, model.RoleAdmin, res.ActiveRole)
	assert.Equal(t, "/dashboard", res.Dashboard)
	assert.Equal(t, f.now, f.employees.lastLoginAt[dealer.ID])

	id, ok := f.svc.VerifySession(res.Token)
	require.True(t, ok)
	assert.Equal(t, dealer.ID, id.ID)
	assert.Equal(t, model.RoleEquityDealer, id.PrimaryRole)
	require.NotNil(t, id.SecondaryRole)
	assert.Equal(t, model.RoleAdmin, *id.SecondaryRole)
	assert.Equal(t, model.RoleAdmin, model.EffectiveRole(*id))
}

func TestLogin_RequestedRole(t *testing.T) {
	dual := employee("Meera", "meera@example.com", model.RoleEquityDealer, model.RoleMFDealer)
	f := newAuthFixture(t, dual)

	res, err := f.svc.Login("meera@example.com", "correct-horse", model.RoleMFDealer)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMFDealer, res.ActiveRole)
	assert.Equal(t, "/mf/dashboard", res.Dashboard)

	// a role the employee does not hold is ignored
	res, err = f.svc.Login("meera@example.com", "correct-horse", model.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleEquityDealer, res.ActiveRole)
}

// Without a pick, login lands on the page a signed-in visit to /login redirects to.
func TestLogin_DefaultLandingMatchesGate(t *testing.T) {
	es := []*model.Employee{
		employee("Asha", "asha@example.com", model.RoleBackOffice, model.RoleAdmin),
		employee("Meera", "meera@example.com", model.RoleEquityDealer, model.RoleMFDealer),
		employee("Root", "root@example.com", model.RoleSuperAdmin, model.RoleBackOffice),
		employee("Ravi", "ravi@example.com", model.RoleMFDealer),
	}
	f := newAuthFixture(t, es...)

	for _, e := range es {
		res, err := f.svc.Login(e.Email, "correct-horse", "")
		require.NoError(t, err, e.Email)
		d := authz.Decide(model.LoginPath, &res.Identity)
		assert.Equal(t, d.Location, res.Dashboard, e.Email)
		assert.Equal(t, model.EffectiveRole(res.Identity), res.ActiveRole, e.Email)
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	active := employee("Asha", "asha@example.com", model.RoleBackOffice)
	inactive := employee("Old", "old@example.com", model.RoleBackOffice)
	inactive.IsActive = false
	f := newAuthFixture(t, active, inactive)

	cases := []struct{ name, email, password string }{
		{"unknown account", "ghost@example.com", "correct-horse"},
		{"wrong password", "asha@example.com", "wrong"},
		{"deactivated", "old@example.com", "correct-horse"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := f.svc.Login(tc.email, tc.password, "")
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Equal(t, ErrInvalidCredentials.Error(), err.Error())
		})
	}
}

func TestVerifySession_FailsClosed(t *testing.T) {
	e := employee("Asha", "asha@example.com", model.RoleBackOffice)
	f := newAuthFixture(t, e)

	token, _, err := f.svc.IssueSession(e.Identity())
	require.NoError(t, err)

	t.Run("tampered", func(t *testing.T) {
		_, ok := f.svc.VerifySession(token + "x")
		assert.False(t, ok)
	})
	t.Run("garbage", func(t *testing.T) {
		_, ok := f.svc.VerifySession("not.a.token")
		assert.False(t, ok)
	})
	t.Run("empty", func(t *testing.T) {
		_, ok := f.svc.VerifySession("")
		assert.False(t, ok)
	})
	t.Run("unknown role", func(t *testing.T) {
		bad, _, err := f.signer.IssueSession(e.ID.String(), jwt.SessionClaims{Role: "ROOT"})
		require.NoError(t, err)
		_, ok := f.svc.VerifySession(bad)
		assert.False(t, ok)
	})
	t.Run("unknown secondary role", func(t *testing.T) {
		bad, _, err := f.signer.IssueSession(e.ID.String(), jwt.SessionClaims{Role: "ADMIN", SecondaryRole: "GOD"})
		require.NoError(t, err)
		_, ok := f.svc.VerifySession(bad)
		assert.False(t, ok)
	})
	t.Run("subject not a uuid", func(t *testing.T) {
		bad, _, err := f.signer.IssueSession("admin", jwt.SessionClaims{Role: "ADMIN"})
		require.NoError(t, err)
		_, ok := f.svc.VerifySession(bad)
		assert.False(t, ok)
	})
	t.Run("expired", func(t *testing.T) {
		f.now = f.now.Add(jwt.DefaultTTL + time.Minute)
		defer func() { f.now = f.now.Add(-jwt.DefaultTTL - time.Minute) }()
		_, ok := f.svc.VerifySession(token)
		assert.False(t, ok)
	})
}

func TestRenew_PicksUpRoleChangesAndDeactivation(t *testing.T) {
	e := employee("Asha", "asha@example.com", model.RoleBackOffice)
	f := newAuthFixture(t, e)

	token, _, err := f.svc.IssueSession(e.Identity())
	require.NoError(t, err)
	sess, ok := f.svc.Inspect(token)
	require.True(t, ok)
	assert.True(t, f.now.Equal(sess.IssuedAt))

	f.employees.byID[e.ID].Role = model.RoleAdmin
	f.now = f.now.Add(25 * time.Hour)
	renewed, exp, err := f.svc.Renew(sess)
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(jwt.DefaultTTL), exp)
	id, ok := f.svc.VerifySession(renewed)
	require.True(t, ok)
	assert.Equal(t, model.RoleAdmin, id.PrimaryRole)

	f.employees.byID[e.ID].IsActive = false
	_, _, err = f.svc.Renew(sess)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordReset_Flow(t *testing.T) {
	e := employee("Asha", "asha@example.com", model.RoleBackOffice)
	f := newAuthFixture(t, e)

	require.NoError(t, f.svc.RequestPasswordReset("Asha@Example.com"))
	require.Len(t, f.mail.sent, 1)
	mail := f.mail.sent[0]
	assert.Equal(t, "asha@example.com", mail.to)
	assert.Len(t, mail.code, OTPLength)
	assert.Equal(t, f.now.Add(OTPTTL), mail.expires)

	// the stored code is a hash, never the code itself
	require.Len(t, f.otps.rows, 1)
	assert.NotEqual(t, mail.code, f.otps.rows[0].CodeHash)

	wrong := "000000"
	if mail.code == wrong {
		wrong = "111111"
	}
	assert.ErrorIs(t, f.svc.ResetPassword("asha@example.com", wrong, "new-password-1"), ErrInvalidOTP)
	assert.Equal(t, 1, f.otps.rows[0].Attempts)

	require.NoError(t, f.svc.ResetPassword("asha@example.com", mail.code, "new-password-1"))
	_, err := f.svc.Authenticate("asha@example.com", "new-password-1")
	assert.NoError(t, err)

	// single use
	assert.ErrorIs(t, f.svc.ResetPassword("asha@example.com", mail.code, "another-pass-2"), ErrInvalidOTP)
}

func TestPasswordReset_UnknownAccountLooksTheSame(t *testing.T) {
	f := newAuthFixture(t)
	assert.NoError(t, f.svc.RequestPasswordReset("ghost@example.com"))
	assert.Empty(t, f.mail.sent)
	assert.ErrorIs(t, f.svc.ResetPassword("ghost@example.com", "123456", "new-password-1"), ErrInvalidOTP)
}

func TestPasswordReset_StoreFailureLooksTheSame(t *testing.T) {
	e := employee("Asha", "asha@example.com", model.RoleBackOffice)
	f := newAuthFixture(t, e)
	f.otps.replaceErr = errors.New("connection reset")

	assert.NoError(t, f.svc.RequestPasswordReset("asha@example.com"))
	assert.NoError(t, f.svc.RequestPasswordReset("ghost@example.com"))
	assert.Empty(t, f.mail.sent)
	assert.Empty(t, f.otps.rows)
}

func TestPasswordReset_ExpiryAndAttemptLimit(t *testing.T) {
	e := employee("Asha", "asha@example.com", model.RoleBackOffice)
	f := newAuthFixture(t, e)

	require.NoError(t, f.svc.RequestPasswordReset("asha@example.com"))
	code := f.mail.sent[0].code

	f.now = f.now.Add(OTPTTL + time.Second)
	assert.ErrorIs(t, f.svc.ResetPassword("asha@example.com", code, "new-password-1"), ErrInvalidOTP)

	require.NoError(t, f.svc.RequestPasswordReset("asha@example.com"))
	code = f.mail.sent[1].code
	f.otps.rows[len(f.otps.rows)-1].Attempts = OTPMaxAttempts
	assert.ErrorIs(t, f.svc.ResetPassword("asha@example.com", code, "new-password-1"), ErrInvalidOTP)
}

func TestChangePassword(t *testing.T) {
	e := employee("Asha", "asha@example.com", model.RoleBackOffice)
	f := newAuthFixture(t, e)

	assert.ErrorIs(t, f.svc.ChangePassword(e.ID, "wrong", "new-password-1"), ErrWrongPassword)
	assert.ErrorIs(t, f.svc.ChangePassword(e.ID, "correct-horse", "short"), ErrWeakPassword)
	require.NoError(t, f.svc.ChangePassword(e.ID, "correct-horse", "new-password-1"))

	_, err := f.svc.Authenticate("asha@example.com", "new-password-1")
	assert.NoError(t, err)
}

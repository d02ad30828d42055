package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"go-brokerage-crm/internal/mailer"
	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/repository"
	"go-brokerage-crm/pkg/jwt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	OTPLength      = 6
	OTPTTL         = 10 * time.Minute
	OTPMaxAttempts = 5
	MinPasswordLen = 8
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidOTP         = errors.New("invalid or expired code")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLen)
)

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// compareDummy burns one bcrypt comparison so a missing account costs the
// same time as a wrong password.
func compareDummy(password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// Session is a verified session token.
type Session struct {
	Identity  model.Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type LoginResult struct {
	Token      string                 `json:"-"`
	ExpiresAt  time.Time              `json:"expires_at"`
	Employee   model.EmployeeResponse `json:"employee"`
	Identity   model.Identity         `json:"identity"`
	ActiveRole model.Role             `json:"active_role"`
	Dashboard  string                 `json:"dashboard"`
}

type AuthService interface {
	Authenticate(email, password string) (*model.Employee, error)
	Login(email, password string, requestedRole model.Role) (*LoginResult, error)
	IssueSession(id model.Identity) (string, time.Time, error)
	VerifySession(token string) (*model.Identity, bool)
	Inspect(token string) (*Session, bool)
	Renew(s *Session) (string, time.Time, error)
	RequestPasswordReset(email string) error
	ResetPassword(email, code, newPassword string) error
	ChangePassword(employeeID uuid.UUID, current, next string) error
}

type authService struct {
	employeeRepo repository.EmployeeRepository
	otpRepo      repository.OTPRepository
	signer       *jwt.Signer
	mail         mailer.Mailer
}

func NewAuthService(employeeRepo repository.EmployeeRepository, otpRepo repository.OTPRepository, signer *jwt.Signer, mail mailer.Mailer) AuthService {
	return &authService{
		employeeRepo: employeeRepo,
		otpRepo:      otpRepo,
		signer:       signer,
		mail:         mail,
	}
}

// Authenticate checks credentials. Missing, deactivated and wrong-password
// accounts all fail with ErrInvalidCredentials.
func (s *authService) Authenticate(email, password string) (*model.Employee, error) {
	// 1. Look up by normalized email
	employee, err := s.employeeRepo.FindByEmail(model.NormalizeEmail(email))
	if err != nil {
		compareDummy(password)
		return nil, ErrInvalidCredentials
	}

	// 2. Verify password before revealing anything about the account state
	if !employee.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// 3. Deactivated accounts and unknown stored roles cannot sign in
	if !employee.IsActive || !employee.Role.Valid() {
		return nil, ErrInvalidCredentials
	}
	return employee, nil
}

func (s *authService) Login(email, password string, requestedRole model.Role) (*LoginResult, error) {
	employee, err := s.Authenticate(email, password)
	if err != nil {
		log.Printf("auth login failed email=%s", maskEmail(email))
		return nil, err
	}

	identity := employee.Identity()
	token, exp, err := s.IssueSession(identity)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	now := s.signer.Now()
	if err := s.employeeRepo.UpdateLastLogin(employee.ID, now); err != nil {
		log.Printf("auth update last_login_at user=%s: %v", employee.ID, err)
	}
	employee.LastLoginAt = &now

	// The role picker may only choose a held role. Without a valid pick the
	// session lands where the gate sends a signed-in /login.
	active := model.EffectiveRole(identity)
	if requestedRole != "" && identity.Holds(requestedRole) {
		active = requestedRole
	}

	log.Printf("auth login ok user=%s role=%s active=%s", employee.ID, identity.PrimaryRole, active)
	return &LoginResult{
		Token:      token,
		ExpiresAt:  exp,
		Employee:   employee.ToResponse(),
		Identity:   identity,
		ActiveRole: active,
		Dashboard:  model.DefaultDashboard(active),
	}, nil
}

func (s *authService) IssueSession(id model.Identity) (string, time.Time, error) {
	claims := jwt.SessionClaims{
		Name:        id.Name,
		Email:       id.Email,
		Role:        string(id.PrimaryRole),
		Department:  id.Department,
		Designation: id.Designation,
	}
	if id.SecondaryRole != nil {
		claims.SecondaryRole = string(*id.SecondaryRole)
	}
	return s.signer.IssueSession(id.ID.String(), claims)
}

func (s *authService) VerifySession(token string) (*model.Identity, bool) {
	sess, ok := s.Inspect(token)
	if !ok {
		return nil, false
	}
	return &sess.Identity, true
}

// Inspect verifies token and rebuilds the identity. Any signature, expiry,
// decoding or role problem yields (nil, false).
func (s *authService) Inspect(token string) (*Session, bool) {
	claims, err := s.signer.ParseSession(token)
	if err != nil {
		return nil, false
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, false
	}
	primary, ok := model.ParseRole(claims.Role)
	if !ok {
		return nil, false
	}
	identity := model.Identity{
		ID:          id,
		Name:        claims.Name,
		Email:       claims.Email,
		PrimaryRole: primary,
		Department:  claims.Department,
		Designation: claims.Designation,
	}
	if claims.SecondaryRole != "" {
		secondary, ok := model.ParseRole(claims.SecondaryRole)
		if !ok {
			return nil, false
		}
		identity.SecondaryRole = &secondary
	}
	return &Session{
		Identity:  identity,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, true
}

// Renew re-issues a session from the current employee record, so role
// changes and deactivation take effect on the next renewal.
func (s *authService) Renew(sess *Session) (string, time.Time, error) {
	employee, err := s.employeeRepo.FindByID(sess.Identity.ID)
	if err != nil || !employee.IsActive || !employee.Role.Valid() {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return s.IssueSession(employee.Identity())
}

// RequestPasswordReset mails an OTP when the account exists and is active.
// The caller cannot tell which happened, so failures past the lookup are only
// logged.
func (s *authService) RequestPasswordReset(email string) error {
	employee, err := s.employeeRepo.FindByEmail(model.NormalizeEmail(email))
	if err != nil || !employee.IsActive {
		compareDummy(email)
		log.Printf("auth otp requested for unknown or inactive account email=%s", maskEmail(email))
		return nil
	}

	code, err := newOTP()
	if err != nil {
		log.Printf("auth otp generate failed user=%s: %v", employee.ID, err)
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("auth otp hash failed user=%s: %v", employee.ID, err)
		return nil
	}

	expires := s.signer.Now().Add(OTPTTL)
	otp := &model.PasswordResetOTP{
		EmployeeID: employee.ID,
		CodeHash:   string(hash),
		ExpiresAt:  expires,
	}
	otp.CreatedBy = actorID(employee.ID)
	if err := s.otpRepo.Replace(otp); err != nil {
		log.Printf("auth otp store failed user=%s: %v", employee.ID, err)
		return nil
	}

	if err := s.mail.SendPasswordOTP(employee.Email, employee.Name, code, expires); err != nil {
		log.Printf("auth otp mail failed user=%s: %v", employee.ID, err)
		return nil
	}
	log.Printf("auth otp issued user=%s", employee.ID)
	return nil
}

func (s *authService) ResetPassword(email, code, newPassword string) error {
	if len(newPassword) < MinPasswordLen {
		return ErrWeakPassword
	}

	employee, err := s.employeeRepo.FindByEmail(model.NormalizeEmail(email))
	if err != nil || !employee.IsActive {
		compareDummy(code)
		return ErrInvalidOTP
	}

	otp, err := s.otpRepo.FindLatest(employee.ID)
	if err != nil {
		compareDummy(code)
		return ErrInvalidOTP
	}
	if !otp.Usable(s.signer.Now(), OTPMaxAttempts) {
		return ErrInvalidOTP
	}
	if bcrypt.CompareHashAndPassword([]byte(otp.CodeHash), []byte(code)) != nil {
		if err := s.otpRepo.IncrementAttempts(otp.ID); err != nil {
			log.Printf("auth otp attempt count user=%s: %v", employee.ID, err)
		}
		return ErrInvalidOTP
	}

	if err := s.otpRepo.Consume(otp.ID, s.signer.Now()); err != nil {
		// lost a race with another reset using the same code
		return ErrInvalidOTP
	}
	if err := employee.SetPassword(newPassword); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.employeeRepo.UpdatePassword(employee.ID, employee.Password); err != nil {
		return err
	}
	log.Printf("auth password reset via otp user=%s", employee.ID)
	return nil
}

func (s *authService) ChangePassword(employeeID uuid.UUID, current, next string) error {
	if len(next) < MinPasswordLen {
		return ErrWeakPassword
	}
	employee, err := s.employeeRepo.FindByID(employeeID)
	if err != nil {
		return notFound(err)
	}
	if !employee.CheckPassword(current) {
		return ErrWrongPassword
	}
	if err := employee.SetPassword(next); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.employeeRepo.UpdatePassword(employee.ID, employee.Password)
}

func newOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", OTPLength, n.Int64()), nil
}

func maskEmail(email string) string {
	email = model.NormalizeEmail(email)
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			if i == 0 {
				return "***" + email[i:]
			}
			return email[:1] + "***" + email[i:]
		}
	}
	return "***"
}

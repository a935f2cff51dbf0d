package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/tazhibayda/account-service/internal/domain"
	"github.com/tazhibayda/account-service/internal/log"
	"github.com/tazhibayda/account-service/internal/mail"
	"github.com/tazhibayda/account-service/internal/metrics"
	"github.com/tazhibayda/account-service/internal/queue"
	"github.com/tazhibayda/account-service/internal/security"
)

const mailTimeout = 10 * time.Second

// Engine is the account workflow core: registration, OTP verification,
// sign-in, password reset and user CRUD. It owns no state beyond what the
// UserStore persists; per-email locks keep each read-modify-write atomic
// relative to the check it was based on.
type Engine struct {
	store  UserStore
	mail   mail.Sender
	events queue.Publisher

	jwtSecret   string
	accessTTL   time.Duration
	otpTTL      time.Duration
	resetOtpTTL time.Duration
	bcryptCost  int
	exchange    string

	now   func() time.Time
	locks *keyedMutex
}

type Options struct {
	JWTSecret     string
	AccessTTL     time.Duration
	OtpTTL        time.Duration
	ResetOtpTTL   time.Duration
	BcryptCost    int
	EventExchange string
	Now           func() time.Time // test hook
}

func NewEngine(store UserStore, sender mail.Sender, events queue.Publisher, opts Options) *Engine {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = time.Hour
	}
	if opts.OtpTTL <= 0 {
		opts.OtpTTL = 120 * time.Second
	}
	if opts.ResetOtpTTL <= 0 {
		opts.ResetOtpTTL = 120 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if events == nil {
		events = queue.NewNoop()
	}
	return &Engine{
		store:       store,
		mail:        sender,
		events:      events,
		jwtSecret:   opts.JWTSecret,
		accessTTL:   opts.AccessTTL,
		otpTTL:      opts.OtpTTL,
		resetOtpTTL: opts.ResetOtpTTL,
		bcryptCost:  opts.BcryptCost,
		exchange:    opts.EventExchange,
		now:         opts.Now,
		locks:       newKeyedMutex(),
	}
}

// RegisterResult reports which register path ran: Created carries the new
// account; otherwise an existing unverified account got a fresh OTP.
type RegisterResult struct {
	Created bool
	User    *domain.User
}

type SignInResult struct {
	User  *domain.User
	Token string
}

func (e *Engine) Register(ctx context.Context, firstName, lastName, email, password string) (*RegisterResult, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	email = strings.TrimSpace(email)
	if firstName == "" || lastName == "" || email == "" || password == "" {
		return nil, ErrValidation
	}

	unlock := e.locks.Lock(email)
	defer unlock()

	u, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, storeErr(err)
	}

	if u != nil && u.Verified {
		return nil, ErrDuplicateEmail
	}

	code, err := security.NewOtp()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	hash, err := security.HashPassword(password, e.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if u != nil {
		// unverified re-registration: refresh OTP and password in place,
		// persist first, then notify. A failed send leaves a valid pending
		// OTP that a later resend overwrites.
		u.PasswordHash = hash
		u.SetOtp(code, e.now().UTC())
		if err := e.store.Update(ctx, u); err != nil {
			return nil, storeErr(err)
		}
		metrics.OtpIssuedTotal.WithLabelValues("verify").Inc()
		if err := e.sendVerification(ctx, u, code); err != nil {
			return nil, err
		}
		return &RegisterResult{Created: false}, nil
	}

	// fresh email: nothing is persisted until the OTP mail goes out
	nu := &domain.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
		Verified:     false,
	}
	nu.SetOtp(code, e.now().UTC())
	metrics.OtpIssuedTotal.WithLabelValues("verify").Inc()
	if err := e.sendVerification(ctx, nu, code); err != nil {
		return nil, err
	}
	if err := e.store.Create(ctx, nu); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, storeErr(err)
	}

	e.emit(ctx, "user.registered", queue.UserRegistered{UserID: nu.ID, Email: nu.Email})
	return &RegisterResult{Created: true, User: nu}, nil
}

func (e *Engine) VerifyOtp(ctx context.Context, email, otp string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	otp = strings.TrimSpace(otp)
	if email == "" || otp == "" {
		return nil, ErrValidation
	}

	unlock := e.locks.Lock(email)
	defer unlock()

	u, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, storeErr(err)
	}
	if u == nil {
		return nil, ErrNotFound
	}
	if u.Verified {
		return nil, ErrAlreadyVerified
	}
	if u.Otp == nil || u.OtpCreatedAt == nil {
		return nil, ErrNoOtpPending
	}
	if e.now().Sub(*u.OtpCreatedAt) > e.otpTTL {
		return nil, ErrOtpExpired
	}
	if *u.Otp != otp {
		return nil, ErrOtpMismatch
	}

	u.Verified = true
	u.ClearOtp()
	if err := e.store.Update(ctx, u); err != nil {
		return nil, storeErr(err)
	}

	e.emit(ctx, "user.verified", queue.UserVerified{UserID: u.ID, Email: u.Email})
	return u, nil
}

func (e *Engine) ResendOtp(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrValidation
	}

	unlock := e.locks.Lock(email)
	defer unlock()

	u, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		return storeErr(err)
	}
	if u == nil {
		return ErrNotFound
	}
	if u.Verified {
		return ErrAlreadyVerified
	}

	code, err := security.NewOtp()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	u.SetOtp(code, e.now().UTC())
	if err := e.store.Update(ctx, u); err != nil {
		return storeErr(err)
	}
	metrics.OtpIssuedTotal.WithLabelValues("verify").Inc()
	return e.sendVerification(ctx, u, code)
}

func (e *Engine) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	email = strings.TrimSpace(email)

	u, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, storeErr(err)
	}
	// one generic outcome for unknown email and bad password
	if u == nil || !security.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	tok, err := security.MakeAccess(e.jwtSecret, u.ID.Hex(), u.Email, e.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	e.emit(ctx, "user.signedin", queue.UserSignedIn{UserID: u.ID, Email: u.Email})
	return &SignInResult{User: u, Token: tok}, nil
}

func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrValidation
	}

	unlock := e.locks.Lock(email)
	defer unlock()

	u, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		return storeErr(err)
	}
	if u == nil {
		return ErrNotFound
	}

	code, err := security.NewOtp()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	u.SetResetOtp(code, e.now().UTC())
	if err := e.store.Update(ctx, u); err != nil {
		return storeErr(err)
	}
	metrics.OtpIssuedTotal.WithLabelValues("reset").Inc()

	mctx, cancel := context.WithTimeout(ctx, mailTimeout)
	defer cancel()
	if err := e.mail.SendResetOtp(mctx, u.Email, u.FirstName, code); err != nil {
		log.L.Error("reset mail failed", zap.String("email", u.Email), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

func (e *Engine) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	email = strings.TrimSpace(email)
	otp = strings.TrimSpace(otp)
	if email == "" || otp == "" || newPassword == "" {
		return ErrValidation
	}

	unlock := e.locks.Lock(email)
	defer unlock()

	u, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		return storeErr(err)
	}
	if u == nil {
		return ErrNotFound
	}
	if u.ResetOtp == nil || u.ResetOtpCreatedAt == nil || *u.ResetOtp != otp {
		return ErrOtpMismatch
	}
	if e.now().Sub(*u.ResetOtpCreatedAt) > e.resetOtpTTL {
		return ErrOtpExpired
	}

	hash, err := security.HashPassword(newPassword, e.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	u.ClearResetOtp()
	if err := e.store.Update(ctx, u); err != nil {
		return storeErr(err)
	}

	e.emit(ctx, "user.password_reset", queue.PasswordReset{UserID: u.ID, Email: u.Email})
	return nil
}

// GetAccount looks up a single account by email.
func (e *Engine) GetAccount(ctx context.Context, email string) (*domain.User, error) {
	u, err := e.store.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, storeErr(err)
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (e *Engine) ListAccounts(ctx context.Context) ([]domain.User, error) {
	users, err := e.store.List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return users, nil
}

func (e *Engine) DeleteAccount(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	u, err := e.store.Delete(ctx, oid)
	if err != nil {
		return nil, storeErr(err)
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

// UpdateFields carries a partial update; nil fields keep their prior value.
type UpdateFields struct {
	FirstName *string
	LastName  *string
	Email     *string
	Password  *string
}

func (e *Engine) UpdateAccount(ctx context.Context, id string, f UpdateFields) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	unlock := e.locks.Lock(id)
	defer unlock()

	u, err := e.store.FindByID(ctx, oid)
	if err != nil {
		return nil, storeErr(err)
	}
	if u == nil {
		return nil, ErrNotFound
	}

	if f.Email != nil {
		email := strings.TrimSpace(*f.Email)
		if email == "" {
			return nil, ErrValidation
		}
		if email != u.Email {
			other, err := e.store.FindByEmail(ctx, email)
			if err != nil {
				return nil, storeErr(err)
			}
			if other != nil && other.ID != u.ID {
				return nil, ErrDuplicateEmail
			}
			u.Email = email
		}
	}
	if f.FirstName != nil {
		if strings.TrimSpace(*f.FirstName) == "" {
			return nil, ErrValidation
		}
		u.FirstName = strings.TrimSpace(*f.FirstName)
	}
	if f.LastName != nil {
		if strings.TrimSpace(*f.LastName) == "" {
			return nil, ErrValidation
		}
		u.LastName = strings.TrimSpace(*f.LastName)
	}
	if f.Password != nil {
		if *f.Password == "" {
			return nil, ErrValidation
		}
		// credential writes always go through the hasher
		hash, err := security.HashPassword(*f.Password, e.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}

	if err := e.store.Update(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, storeErr(err)
	}
	return u, nil
}

func (e *Engine) sendVerification(ctx context.Context, u *domain.User, code string) error {
	mctx, cancel := context.WithTimeout(ctx, mailTimeout)
	defer cancel()
	if err := e.mail.SendVerificationOtp(mctx, u.Email, u.FirstName, code); err != nil {
		log.L.Error("verification mail failed", zap.String("email", u.Email), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

// emit publishes fire-and-forget; the request does not wait on the broker.
func (e *Engine) emit(ctx context.Context, key string, event any) {
	reqID := RequestIDFrom(ctx)
	go func() {
		if err := e.events.Publish(context.WithoutCancel(ctx), e.exchange, key, event, reqID); err != nil {
			log.L.Warn("event publish failed", zap.String("key", key), zap.Error(err))
		}
	}()
}

func storeErr(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateEmail) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStore, err)
}

package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the account document. The OTP pair (Otp/OtpCreatedAt) and the reset
// pair (ResetOtp/ResetOtpCreatedAt) are always set and cleared together.
type User struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"                  json:"id"`
	FirstName         string             `bson:"first_name"                     json:"first_name"`
	LastName          string             `bson:"last_name"                      json:"last_name"`
	Email             string             `bson:"email"                          json:"email"`
	PasswordHash      string             `bson:"password_hash"                  json:"-"`
	Verified          bool               `bson:"verified"                       json:"verified"`
	Otp               *string            `bson:"otp,omitempty"                  json:"-"`
	OtpCreatedAt      *time.Time         `bson:"otp_created_at,omitempty"       json:"-"`
	ResetOtp          *string            `bson:"reset_otp,omitempty"            json:"-"`
	ResetOtpCreatedAt *time.Time         `bson:"reset_otp_created_at,omitempty" json:"-"`
	CreatedAt         time.Time          `bson:"created_at"                     json:"created_at"`
}

// SetOtp stamps a fresh verification code onto the user.
func (u *User) SetOtp(code string, now time.Time) {
	u.Otp = &code
	u.OtpCreatedAt = &now
}

// ClearOtp removes the pending verification code.
func (u *User) ClearOtp() {
	u.Otp = nil
	u.OtpCreatedAt = nil
}

// SetResetOtp stamps a fresh password-reset code onto the user.
func (u *User) SetResetOtp(code string, now time.Time) {
	u.ResetOtp = &code
	u.ResetOtpCreatedAt = &now
}

// ClearResetOtp removes the pending password-reset code.
func (u *User) ClearResetOtp() {
	u.ResetOtp = nil
	u.ResetOtpCreatedAt = nil
}

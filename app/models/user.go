package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_CLIENT   = "client"
	ROLE_PROVIDER = "provider"
	ROLE_ADMIN    = "admin"

	STATUS_ACTIVE    = "active"
	STATUS_SUSPENDED = "suspended"
	STATUS_DISABLED  = "disabled"
)

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email    string `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password string `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role     string `gorm:"type:varchar(50);default:'client'" json:"role" validate:"oneof=client provider admin"`
	Status   string `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active suspended disabled"`
	// SubscriptionActive is the denormalized paid-tier gate for provider
	// profiles. It is only ever written through billing.Ledger operations so
	// that it stays in lockstep with the subscription row state.
	SubscriptionActive bool           `gorm:"default:false;index" json:"subscription_active"`
	APIKeyHash         string         `gorm:"type:varchar(64);default:null;uniqueIndex:ux_users_api_key" json:"-"`
	Phone              string         `gorm:"type:varchar(30);default:null" json:"phone" validate:"max=30"`
	AvatarURL          string         `gorm:"type:varchar(255);default:null" json:"avatar_url" validate:"max=255"`
	LastLoginAt        *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func CreateUser(name string, email string, password string, role string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:     name,
		Email:    email,
		Password: pw,
		Role:     role,
		Status:   STATUS_ACTIVE,
	}

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// HashAPIKey derives the stored lookup hash for a raw API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// IsSuspended is the single authoritative suspension check used by all
// billing and notification paths.
func (u *User) IsSuspended() bool {
	return u.Status == STATUS_SUSPENDED
}

// IsProvider reports whether the user holds the provider role
func (u *User) IsProvider() bool {
	return u.Role == ROLE_PROVIDER
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

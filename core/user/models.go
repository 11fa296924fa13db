package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/xmu-se/crms/core"
)

// User types
const (
	TypeUnbound = "unbound" // registered but not yet bound to a teacher/student identity
	TypeTeacher = "teacher"
	TypeStudent = "student"
)

// Genders
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

type User struct {
	ID           int64     `json:"id"`
	Phone        string    `json:"phone"`
	Name         string    `json:"name"`
	Number       string    `json:"number"`
	Email        string    `json:"email"`
	Type         string    `json:"type"`
	Gender       string    `json:"gender"`
	Title        string    `json:"title"`
	Avatar       string    `json:"avatar"`
	SchoolID     int64     `json:"-"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"-"` // UTC
	UpdatedAt    time.Time `json:"-"` // UTC
	LastLogin    time.Time `json:"-"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsTeacher() bool { return u.Type == TypeTeacher }
func (u *User) IsStudent() bool { return u.Type == TypeStudent }
func (u *User) IsUnbound() bool { return u.Type == TypeUnbound || u.Type == "" }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"`
	Number   string `json:"number"`
	Email    string `json:"email" validate:"omitempty,email"`
	Type     string `json:"type" validate:"omitempty,oneof=unbound teacher student"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nu.Phone = core.CleanString(nu.Phone)
	nu.Name = core.CleanString(nu.Name)
	nu.Number = core.CleanString(nu.Number)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if nu.Type == "" {
		nu.Type = TypeUnbound
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Phone, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields keep their current value.
type UpdateUser struct {
	Name            string    `json:"name"`
	Number          string    `json:"number"`
	Email           string    `json:"email" validate:"omitempty,email"`
	Gender          string    `json:"gender" validate:"omitempty,oneof=male female"`
	Title           string    `json:"title"`
	Avatar          string    `json:"avatar" validate:"omitempty,max=512"`
	School          *core.Ref `json:"school"`
	Type            string    `json:"type" validate:"omitempty,oneof=teacher student"`
	Password        string    `json:"password" validate:"omitempty"`
	PasswordConfirm string    `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`

	phone string // used by the password policy
}

var errTypeAlreadyBound = core.NewPermissionError("user type is already bound")

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc ServiceInterface) error {
	if typ := core.CleanString(uu.Type, true /* lower */); typ != "" && typ != origUsr.Type {
		if !origUsr.IsUnbound() {
			return errTypeAlreadyBound
		}
		uu.Type = typ
	} else {
		uu.Type = origUsr.Type
	}

	uu.Name = cleanOr(uu.Name, origUsr.Name)
	uu.Number = cleanOr(uu.Number, origUsr.Number)
	uu.Email = cleanOr(core.CleanString(uu.Email, true /* lower */), origUsr.Email)
	uu.Gender = cleanOr(uu.Gender, origUsr.Gender)
	uu.Title = cleanOr(uu.Title, origUsr.Title)
	uu.Avatar = cleanOr(uu.Avatar, origUsr.Avatar)
	uu.phone = origUsr.Phone

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, origUsr.Phone, uu.Email, origUsr)
}

func cleanOr(s, orig string) string {
	if s = core.CleanString(s); s != "" {
		return s
	}
	return orig
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	IDs          []int64 `query:"-"` // nil: no restriction
	Type         string  `query:"type"`
	NumberPrefix string  `query:"numBeginWith"`
	NamePrefix   string  `query:"nameBeginWith"`
}

func (qf *QueryFilter) Clean() {
	qf.Type = core.CleanString(qf.Type, true /* lower */)
	qf.NumberPrefix = core.CleanString(qf.NumberPrefix)
	qf.NamePrefix = core.CleanString(qf.NamePrefix)
}

// GetFilter selects a single User by the first non-empty field.
type GetFilter struct {
	ID    int64
	Phone string
	Email string
}

package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/xmu-se/crms/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user not found")
	ErrPhoneExists        = core.NewConflictError("a user with this phone already exists")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid phone or password")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrPhoneExists or ErrEmailExists; excludedID is ignored when 0.
		CheckUniqueness(ctx context.Context, phone, email string, excludedID int64) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	ServiceInterface interface {
		CheckUniqueness(ctx context.Context, phone, email string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, phone, pwd string) (User, error)
		GetByID(ctx context.Context, id int64) (User, error)
		GetByPhone(ctx context.Context, phone string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
		SetAvatar(ctx context.Context, id int64, url string) (User, error)
		SetPassword(ctx context.Context, id int64, pwd string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	secretKey = []byte(conf.SecretKey)
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	return &Service{repo: repo, mailSvc: mailSvc}
}

func (svc *Service) CheckUniqueness(ctx context.Context, phone, email string, exclUsers ...User) error {
	var exclID int64
	if len(exclUsers) > 0 {
		exclID = exclUsers[0].ID
	}
	if err := svc.repo.CheckUniqueness(ctx, phone, email, exclID); err != nil {
		switch err {
		case ErrPhoneExists:
			return err
		case ErrEmailExists:
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		default:
			return errors.Wrap(err, "checking user uniqueness")
		}
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Phone:     nu.Phone,
		Name:      nu.Name,
		Number:    nu.Number,
		Email:     nu.Email,
		Type:      nu.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if usr.Type == "" {
		usr.Type = TypeUnbound
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Authenticate checks the phone/password pair and records the login time.
func (svc *Service) Authenticate(ctx context.Context, phone, pwd string) (User, error) {
	usr, err := svc.GetByPhone(ctx, phone)
	if err != nil {
		return User{}, err
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByPhone(ctx context.Context, phone string) (User, error) {
	if phone = core.CleanString(phone); phone == "" {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{Phone: phone})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	if email = core.CleanString(email, true /* lower */); email == "" {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{Email: email})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if filter != nil && filter.IDs != nil && len(filter.IDs) == 0 {
		return []User{}, nil
	}
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

// Update applies a validated UpdateUser to usr.
func (svc *Service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr.Name = uu.Name
	usr.Number = uu.Number
	usr.Email = uu.Email
	usr.Gender = uu.Gender
	usr.Title = uu.Title
	usr.Avatar = uu.Avatar
	usr.Type = uu.Type
	if uu.School != nil {
		usr.SchoolID = uu.School.ID
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetAvatar(ctx context.Context, id int64, url string) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.Avatar = url
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetPassword(ctx context.Context, id int64, pwd string) error {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *Service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Phone": usr.Phone,
			"UID":   EncodeUID(usr),
			"Token": makeToken(usr),
		},
	})
}

func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	invalid := func(err error) error {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}

	id, err := decodeUID(data.UID)
	if err != nil {
		return invalid(errInvalidToken)
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return invalid(errInvalidToken)
		}
		return err
	}
	if err := verifyToken(usr, data.Token); err != nil {
		return invalid(err)
	}
	return svc.SetPassword(ctx, usr.ID, data.Password)
}

package user

import (
	"context"

	"github.com/xmu-se/crms/core"
)

type serviceMock struct {
	*Service
}

// NewServiceMock returns a Service that sends its mails synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) ServiceInterface {
	return &serviceMock{Service: NewService(repo, mailSvc, conf)}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}

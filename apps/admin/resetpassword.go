package main

import (
	"context"
)

func (cli *commandLine) resetPassword(phone, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByPhone(ctx, phone)
	if err != nil {
		return err
	}
	return cli.usrSvc.SetPassword(ctx, usr.ID, pwd)
}

package main

import (
	"context"
	"fmt"

	"github.com/xmu-se/crms/core/user"
)

// addUser validates nu the same way registration does, then creates the user.
func (cli *commandLine) addUser(nu user.NewUser) error {
	ctx := context.Background()
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	fmt.Printf("user %d created (%s, %s)\n", usr.ID, usr.Phone, usr.Type)
	return nil
}

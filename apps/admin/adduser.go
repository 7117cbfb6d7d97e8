package main

import (
	"context"

	"github.com/lingora/backend/core/user"
)

// addUser creates a user.User; role defaults to student unless -admin is set.
func (cli *commandLine) addUser(name, uname, email, level, pwd string, isAdmin bool) error {
	ctx := context.Background()

	nu := user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Level:           level,
	}
	if isAdmin {
		nu.Roles = []string{user.RoleAdminOwner}
	} else {
		nu.Roles = []string{user.RoleStudent}
	}

	if err := cli.usrSvc.CheckUniqueness(ctx, nu.Username, nu.Email); err != nil {
		return err
	}
	_, err := cli.usrSvc.Create(ctx, nu)
	return err
}

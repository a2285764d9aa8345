package main

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/xenking/combo-store/internal/domain/staff"
	"github.com/xenking/combo-store/internal/storage/postgres"
)

var pepperFlag = &cli.StringFlag{
	Name:     "api-key-pepper",
	Usage:    "HMAC pepper used by the API server",
	EnvVars:  []string{"STORE_API_KEY_PEPPER"},
	Required: true,
}

func staffCommand(lg *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "staff",
		Usage: "manage console accounts",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "create an account and print its API key",
				Flags: []cli.Flag{
					pepperFlag,
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "role", Value: string(staff.RoleAdmin), Usage: "admin, staff or user"},
				},
				Action: func(c *cli.Context) error {
					role, err := staff.ParseRole(c.String("role"))
					if err != nil {
						return err
					}
					pool, err := connect(c, lg)
					if err != nil {
						return err
					}
					defer pool.Close()

					svc := staff.NewService(postgres.NewStaffRepository(pool), []byte(c.String("api-key-pepper")))
					m, key, err := svc.Create(c.Context, c.String("name"), c.String("email"), role)
					if err != nil {
						return errors.Wrap(err, "create staff member")
					}
					lg.Info("Staff member created", zap.String("id", m.ID), zap.String("role", string(m.Role)))
					// The key is shown once; only its hash is stored.
					_, err = fmt.Fprintln(c.App.Writer, key)
					return err
				},
			},
			{
				Name:  "list",
				Usage: "list accounts",
				Action: func(c *cli.Context) error {
					pool, err := connect(c, lg)
					if err != nil {
						return err
					}
					defer pool.Close()

					members, err := postgres.NewStaffRepository(pool).List(c.Context)
					if err != nil {
						return errors.Wrap(err, "list staff")
					}
					for _, m := range members {
						if _, err := fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\t%s\tactive=%t\n",
							m.ID, m.Name, m.Email, m.Role, m.Active); err != nil {
							return err
						}
					}
					return nil
				},
			},
		},
	}
}

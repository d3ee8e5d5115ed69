package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/isdelr/realty-be/internal/client"
	"github.com/isdelr/realty-be/internal/models"
	"github.com/isdelr/realty-be/internal/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// Version is set via ldflags.
var Version = "dev"

type env struct {
	store  *session.Store
	client *client.Client
}

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "realty-cli",
		Usage:   "Command-line client for the realty listing API",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "API server address",
				EnvVars: []string{"REALTY_SERVER"},
				Value:   "localhost:8080",
			},
			&cli.StringFlag{
				Name:    "token-file",
				Usage:   "where the session token is kept (default ~/.realty/token)",
				EnvVars: []string{"REALTY_TOKEN_FILE"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "Enable verbose output",
			},
		},
		Before: setup,
		After: func(c *cli.Context) error {
			if e, ok := c.App.Metadata["env"].(*env); ok {
				e.store.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "signup",
				Usage: "Create an account and sign in",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, EnvVars: []string{"REALTY_PASSWORD"}, Required: true},
					&cli.StringFlag{Name: "first-name"},
					&cli.StringFlag{Name: "last-name"},
				},
				Action: signup,
			},
			{
				Name:  "login",
				Usage: "Sign in and keep the session token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, EnvVars: []string{"REALTY_PASSWORD"}, Required: true},
				},
				Action: login,
			},
			{
				Name:   "logout",
				Usage:  "Revoke and forget the session token",
				Action: logout,
			},
			{
				Name:   "whoami",
				Usage:  "Show the signed-in user",
				Action: whoami,
			},
			{
				Name:  "listings",
				Usage: "List properties",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Value: 1, Usage: "Page number"},
					&cli.IntFlag{Name: "page-size", Value: 10, Usage: "Page size (max 100)"},
					&cli.StringFlag{Name: "city", Usage: "Filter by city"},
					&cli.StringFlag{Name: "country", Usage: "Filter by country"},
					&cli.StringFlag{Name: "street", Usage: "Filter by street"},
				},
				Action: listings,
			},
			{
				Name:      "contact",
				Usage:     "Show how to reach a listing owner",
				ArgsUsage: "USER_ID",
				Action:    contact,
			},
		},
	}
}

func setup(c *cli.Context) error {
	level := zerolog.WarnLevel
	if c.Bool("verbose") {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: c.App.ErrWriter, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	path := c.String("token-file")
	if path == "" {
		var err error
		if path, err = session.DefaultTokenPath(); err != nil {
			return err
		}
	}
	store, err := session.NewStore(session.NewFilePersister(path))
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata["env"] = &env{store: store, client: client.New(c.String("server"), store.Token)}
	return nil
}

func envFrom(c *cli.Context) *env {
	return c.App.Metadata["env"].(*env)
}

func requireSession(e *env) error {
	if !e.store.IsAuthenticated() {
		return errors.New("not signed in; run realty-cli login")
	}
	return nil
}

func signup(c *cli.Context) error {
	e := envFrom(c)
	res, err := e.client.Signup(c.Context, client.SignupRequest{
		Email:     c.String("email"),
		Username:  c.String("username"),
		Password:  c.String("password"),
		FirstName: c.String("first-name"),
		LastName:  c.String("last-name"),
	})
	if err != nil {
		return err
	}
	if err := e.store.Login(res.Token); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Signed up as %s (id %d).\n", res.User.Username, res.User.ID)
	return nil
}

func login(c *cli.Context) error {
	e := envFrom(c)
	token, err := e.client.Login(c.Context, c.String("username"), c.String("password"))
	if err != nil {
		return err
	}
	if err := e.store.Login(token); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Signed in as %s until %s.\n", e.store.Identity().Username, e.store.ExpiresAt().Local().Format(time.RFC1123))
	return nil
}

func logout(c *cli.Context) error {
	e := envFrom(c)
	if e.store.IsAuthenticated() {
		ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
		defer cancel()
		if err := e.client.Logout(ctx); err != nil {
			log.Warn().Err(err).Msg("Server did not revoke the token")
		}
	}
	if err := e.store.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "Signed out.")
	return nil
}

func whoami(c *cli.Context) error {
	e := envFrom(c)
	if err := requireSession(e); err != nil {
		return err
	}
	me, err := e.client.Me(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s <%s> (id %d), session ends %s\n",
		me.Username, me.Email, me.ID, e.store.ExpiresAt().Local().Format(time.RFC1123))
	return nil
}

func listings(c *cli.Context) error {
	q := client.ListQuery{Page: c.Int("page"), PageSize: c.Int("page-size")}
	for _, cond := range []string{"city", "country", "street"} {
		if term := c.String(cond); term != "" {
			q.SearchCondition, q.SearchTerm = cond, term
			break
		}
	}

	page, err := envFrom(c).client.ListProperties(c.Context, q)
	if err != nil {
		return err
	}
	printListings(c.App.Writer, page.TotalCount, q.Page, page.Properties)
	return nil
}

func contact(c *cli.Context) error {
	var userID int64
	if _, err := fmt.Sscan(c.Args().First(), &userID); err != nil || userID <= 0 {
		return errors.New("usage: realty-cli contact USER_ID")
	}
	info, err := envFrom(c).client.ContactInfo(c.Context, userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "email: %s\nphone: %s\nprefers: %s\n", info.Email, info.PhoneNumber, info.PreferredContactMethod)
	return nil
}

func printListings(w io.Writer, total, page int, props []models.PropertyListing) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tPRICE\tADDRESS")
	for _, p := range props {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.0f\t%s, %s, %s\n",
			p.ID, p.PropertyType, p.PropertyStatus, p.Price, p.Street, p.City, p.Country)
	}
	tw.Flush()
	fmt.Fprintf(w, "page %d, %d listings in total\n", page, total)
}

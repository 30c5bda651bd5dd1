package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"jabbusiness-client-go/internal/domain/models"
)

func (c *CLI) loginCommand() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Sign in and store the session",
		Annotations: map[string]string{annotationPublic: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				line, err := bufio.NewReader(c.opts.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("password required: pass --password or pipe it on stdin")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if username == "" || password == "" {
				return errors.New("username and password are required")
			}

			resp, err := c.app.Hooks.Auth().Login(cmd.Context(), models.LoginPayload{
				Username: username,
				Password: password,
			})
			if err != nil {
				return notified(err)
			}
			who := username
			if resp.User != nil && resp.User.Email != "" {
				who = resp.User.Email
			}
			c.out.printf("Logged in as %s\n", c.out.out.value.Render(who))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when empty)")
	return cmd
}

func (c *CLI) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "logout",
		Short:       "Forget the stored session",
		Annotations: map[string]string{annotationPublic: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return notified(c.app.Hooks.Auth().Logout(cmd.Context()))
		},
	}
}

func (c *CLI) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth := c.app.Hooks.Auth()
			ctx := cmd.Context()

			c.out.header("Session")
			if u := auth.User(ctx); u != nil {
				c.out.field("Email", u.Email)
				c.out.field("Role", u.Role)
				if u.ClientID != "" {
					c.out.field("Client", u.ClientID)
				}
			}

			claims, err := tokenClaims(auth.Token(ctx))
			if err != nil {
				c.out.field("Token", "opaque")
				return nil
			}
			if sub, _ := claims.GetSubject(); sub != "" {
				c.out.field("Subject", sub)
			}
			if exp, _ := claims.GetExpirationTime(); exp != nil {
				left := exp.Time.Sub(c.opts.Now()).Round(time.Minute)
				state := fmt.Sprintf("%s (in %s)", exp.Time.Local().Format("2006-01-02 15:04"), left)
				if left <= 0 {
					state = exp.Time.Local().Format("2006-01-02 15:04") + " (expired)"
				}
				c.out.field("Expires", state)
			}
			return nil
		},
	}
}

// tokenClaims decodes the token payload without verifying the signature;
// the client never holds the signing key.
func tokenClaims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/client"
	"github.com/sakif/coursehub/internal/logging"
	"github.com/sakif/coursehub/internal/model"
)

// app is shared by every subcommand. Flags are bound through viper so each
// one can also come from COURSEHUB_<FLAG>, e.g. COURSEHUB_SERVER.
type app struct {
	v      *viper.Viper
	logger *slog.Logger
	client *client.Client
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "coursehub",
		Short:         "Browse and write course reviews",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().String("server", "http://localhost:8080", "CourseHub server URL")
	root.PersistentFlags().String("session-file", defaultSessionFile(), "where the session token is kept")
	root.PersistentFlags().Duration("timeout", client.DefaultTimeout, "per-request timeout")
	root.PersistentFlags().String("log-level", "warn", "debug, info, warn or error")

	a.v.SetEnvPrefix("COURSEHUB")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindPFlags(root.PersistentFlags())

	root.AddCommand(
		newSignUpCmd(a),
		newSignInCmd(a),
		newSignOutCmd(a),
		newWhoAmICmd(a),
		newReviewsCmd(a),
		newCoursesCmd(a),
		newReviewCmd(a),
		newProfileCmd(a),
	)
	return root
}

func (a *app) init() error {
	a.logger = logging.New(os.Stderr, a.v.GetString("log-level"), "text")

	c, err := client.New(a.v.GetString("server"),
		client.WithTimeout(a.v.GetDuration("timeout")),
		client.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	if token := a.loadToken(); token != "" {
		c.SetToken(token)
	}
	a.client = c
	return nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".coursehub-session"
	}
	return filepath.Join(dir, "coursehub", "session")
}

func (a *app) loadToken() string {
	data, err := os.ReadFile(a.v.GetString("session-file"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// saveToken persists the session; an empty token removes the file.
func (a *app) saveToken() error {
	path := a.v.GetString("session-file")
	token := a.client.Token()
	if token == "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing session file: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// principal returns the signed-in user or an Unauthorized error that tells
// the user what to run.
func (a *app) principal(ctx context.Context) (model.Principal, error) {
	p, err := a.client.Session(ctx)
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			return model.Principal{}, apperror.Unauthorized("not signed in; run `coursehub signin` first")
		}
		return model.Principal{}, err
	}
	return p, nil
}

func printReview(cmd *cobra.Command, r model.Review) {
	fmt.Fprintf(cmd.OutOrStdout(), "#%-4d %-30s %s  %s  (%s, %s)\n",
		r.ID, r.Course.Name, stars(r.Rating), r.Comment, r.User.Name, r.CreatedAt.Local().Format(time.DateOnly))
}

func stars(rating int) string {
	rating = model.ClampRating(rating)
	return strings.Repeat("★", rating) + strings.Repeat("☆", model.MaxRating-rating)
}

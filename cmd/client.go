package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/frahmantamala/rahat-dashboard/internal"
	"github.com/frahmantamala/rahat-dashboard/internal/backend"
	"github.com/frahmantamala/rahat-dashboard/internal/cache"
	userDatamodel "github.com/frahmantamala/rahat-dashboard/internal/core/datamodel/user"
	"github.com/frahmantamala/rahat-dashboard/pkg/logger"
	"github.com/spf13/cobra"
)

// Client commands talk to the relief backend directly with the operator's
// session cookie, the same way the dashboard does for a browser.
var (
	clientCookie  string
	clientBackend string
	clientVerbose bool

	signInEmail    string
	signInPassword string
	signInRemember bool
)

type clientDeps struct {
	Config  *internal.Config
	Logger  *slog.Logger
	Backend *backend.Client
	Cache   *cache.Cache
}

func newClient(cmd *cobra.Command) (context.Context, *clientDeps) {
	cfg, err := loadConfig(configDir)
	if err != nil {
		// no config file is fine for an operator shell; defaults point at a local backend
		cfg = internal.DefaultConfig()
	}
	if clientBackend != "" {
		cfg.Backend.BaseURL = clientBackend
	}

	lg := logger.Discard()
	if clientVerbose {
		lg = logger.Setup(logger.Options{Env: cfg.Env, Level: "debug", Format: "text"})
	}

	cookie := clientCookie
	if cookie == "" {
		cookie = os.Getenv("RAHAT_COOKIE")
	}
	ctx := internal.ContextWithCredentials(cmd.Context(), internal.Credentials{Cookie: cookie})

	client := backend.NewClient(backend.Config{
		BaseURL:        cfg.Backend.BaseURL,
		Timeout:        cfg.Backend.Timeout,
		MaxRetries:     cfg.Backend.MaxRetries,
		RetryBaseDelay: cfg.Backend.RetryBaseDelay,
		RetryMaxDelay:  cfg.Backend.RetryMaxDelay,
	}, lg)

	return ctx, &clientDeps{
		Config:  cfg,
		Logger:  lg,
		Backend: client,
		Cache:   cache.New(cache.WithLogger(lg)),
	}
}

// withViewer loads the operator's session so actions carry their user id and role.
func withViewer(ctx context.Context, deps *clientDeps) (context.Context, error) {
	snap, err := deps.Backend.GetSession(ctx)
	if err != nil {
		return ctx, err
	}
	if snap == nil || snap.User == nil {
		return ctx, fmt.Errorf("not signed in: run `rahat sign-in` and export RAHAT_COOKIE")
	}
	ctx = internal.ContextWithUserID(ctx, snap.User.ID)
	ctx = internal.ContextWithRahatRole(ctx, snap.User.RahatRole)
	return ctx, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describeError prints what the backend said, title first, the way the dashboard toasts it.
func describeError(err error) error {
	if apiErr, ok := backend.AsAPIError(err); ok {
		if apiErr.Title != "" && apiErr.Message != "" && apiErr.Title != apiErr.Message {
			return fmt.Errorf("%s: %s", apiErr.Title, apiErr.Message)
		}
		return apiErr
	}
	if appErr, ok := internal.IsAppError(err); ok && appErr.Title != "" {
		return fmt.Errorf("%s: %s", appErr.Title, appErr.Message)
	}
	return err
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the session the backend holds for RAHAT_COOKIE",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, deps := newClient(cmd)
		snap, err := deps.Backend.GetSession(ctx)
		if err != nil {
			return describeError(err)
		}
		if snap == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
			return nil
		}
		return printJSON(cmd.OutOrStdout(), snap)
	},
}

var signInCmd = &cobra.Command{
	Use:   "sign-in",
	Short: "Sign in with email and password and print the session cookie",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, deps := newClient(cmd)
		res, err := deps.Backend.SignInEmail(ctx, userDatamodel.SignInRequest{
			Email:      signInEmail,
			Password:   signInPassword,
			RememberMe: signInRemember,
		})
		if err != nil {
			return describeError(err)
		}
		var pairs []string
		for _, sc := range res.SetCookie {
			pair, _, _ := strings.Cut(sc, ";")
			pairs = append(pairs, strings.TrimSpace(pair))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "export RAHAT_COOKIE=%q\n", strings.Join(pairs, "; "))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&clientCookie, "cookie", "", "session cookie sent to the backend (defaults to $RAHAT_COOKIE)")
	rootCmd.PersistentFlags().StringVar(&clientBackend, "backend", "", "relief backend base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&clientVerbose, "verbose", "v", false, "log backend calls to stderr")

	signInCmd.Flags().StringVar(&signInEmail, "email", "", "account email")
	signInCmd.Flags().StringVar(&signInPassword, "password", "", "account password")
	signInCmd.Flags().BoolVar(&signInRemember, "remember-me", false, "ask for a long-lived session")
	_ = signInCmd.MarkFlagRequired("email")
	_ = signInCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(signInCmd)
}

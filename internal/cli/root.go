package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/acie-dev/kcauth/pkg/kcauth"
)

// Exit codes reported by Execute.
const (
	// ExitCodeSuccess indicates a token was obtained and printed.
	ExitCodeSuccess = 0
	// ExitCodeError indicates the flow failed (bad config, rejected grant).
	ExitCodeError = 1
	// ExitCodeInterrupt indicates the user aborted a pending flow.
	ExitCodeInterrupt = 130
)

// Command-line flags. Unset string flags fall back to the KEYCLOAK_*
// environment variables before any hard default applies.
var (
	flagServerURL    string
	flagAuthRealm    string
	flagRealm        string
	flagClientID     string
	flagClientSecret string
	flagUsername     string
	flagTOTPSecret   string
	flagDevice       bool
	flagDecode       bool
	flagQuiet        bool
	flagVerbose      bool
	flagInsecure     bool
	flagTimeout      time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "kctoken",
	Short: "Obtain an access token from a Keycloak server",
	Long: `kctoken obtains an OAuth2 access token from a Keycloak server and
prints it to stdout, so it composes with curl and scripts:

  curl -H "Authorization: Bearer $(kctoken)" https://api.example.com/

The grant is chosen from the flags: --device runs the device
authorization flow, --username runs the password grant (prompting for
the password when stdin is a terminal), and otherwise the client
credentials grant is used. Connection settings default to the
KEYCLOAK_URL, KEYCLOAK_CLIENT_ID, KEYCLOAK_CLIENT_SECRET,
KEYCLOAK_AUTH_REALM and KEYCLOAK_REALM environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagServerURL, "server-url", "", "Keycloak base URL (default $KEYCLOAK_URL)")
	flags.StringVar(&flagAuthRealm, "auth-realm", "", "realm to authenticate against (default $KEYCLOAK_AUTH_REALM or \"master\")")
	flags.StringVar(&flagRealm, "realm", "", "realm to operate on (default $KEYCLOAK_REALM or the auth realm)")
	flags.StringVar(&flagClientID, "client-id", "", "OAuth2 client id (default $KEYCLOAK_CLIENT_ID)")
	flags.StringVar(&flagClientSecret, "client-secret", "", "OAuth2 client secret (default $KEYCLOAK_CLIENT_SECRET)")
	flags.StringVarP(&flagUsername, "username", "u", "", "username for the password grant")
	flags.StringVar(&flagTOTPSecret, "totp-secret", "", "TOTP secret for accounts with OTP configured")
	flags.BoolVarP(&flagDevice, "device", "d", false, "use the device authorization flow")
	flags.BoolVar(&flagDecode, "decode", false, "print the decoded token claims instead of the raw token")
	flags.BoolVarP(&flagQuiet, "quiet", "q", false, "suppress everything except the token")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "log requests to stderr")
	flags.BoolVar(&flagInsecure, "insecure", false, "skip TLS certificate verification")
	flags.DurationVar(&flagTimeout, "timeout", 0, "per-request timeout (default 30s)")
}

// SetVersion injects the build version into the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the CLI and returns its exit code.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return ExitCodeInterrupt
		}
		fmt.Fprintf(os.Stderr, "kctoken: %v\n", err)
		return ExitCodeError
	}
	return ExitCodeSuccess
}

func runRoot(cmd *cobra.Command, args []string) error {
	setupLogging(flagVerbose)
	ctx := cmd.Context()

	cfg := buildConfig()

	token, err := acquire(ctx, cfg)
	if err != nil {
		return err
	}

	if flagDecode {
		return printClaims(cmd.OutOrStdout(), token.AccessToken)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token.AccessToken)
	return nil
}

// buildConfig merges flags over the environment-derived defaults.
func buildConfig() kcauth.Config {
	cfg := kcauth.FromEnv()

	if flagServerURL != "" {
		cfg.ServerURL = flagServerURL
	}
	if flagAuthRealm != "" {
		cfg.AuthRealm = flagAuthRealm
	}
	if flagRealm != "" {
		cfg.Realm = flagRealm
	}
	if flagClientID != "" {
		cfg.ClientID = flagClientID
	}
	if flagClientSecret != "" {
		cfg.ClientSecret = flagClientSecret
	}
	if flagInsecure {
		cfg.InsecureSkipTLS = true
	}
	if flagTimeout > 0 {
		cfg.Timeout = flagTimeout
	}
	return cfg
}

// acquire runs the grant selected by the flags.
func acquire(ctx context.Context, cfg kcauth.Config) (*kcauth.Token, error) {
	switch {
	case flagDevice:
		return kcauth.AcquireDeviceToken(ctx, cfg, deviceNotify)
	case flagUsername != "":
		password, err := readPassword(fmt.Sprintf("Password for %s: ", flagUsername))
		if err != nil {
			return nil, err
		}
		if flagTOTPSecret != "" {
			otp, err := totpCode(flagTOTPSecret, time.Now())
			if err != nil {
				return nil, err
			}
			return kcauth.AcquirePasswordOTP(ctx, cfg, flagUsername, password, otp)
		}
		return kcauth.AcquirePassword(ctx, cfg, flagUsername, password)
	default:
		return kcauth.AcquireClientCredentials(ctx, cfg)
	}
}

// deviceNotify tells the user where to confirm the device flow and tries
// to open the verification page for them.
func deviceNotify(verificationURI, userCode string) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "Open %s and enter code %s\n", verificationURI, userCode)
	}
	if err := openBrowser(verificationURI); err != nil && !flagQuiet {
		fmt.Fprintf(os.Stderr, "could not open browser: %v\n", err)
	}
}

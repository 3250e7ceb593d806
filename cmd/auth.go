package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teemow/ticktick-mcp/internal/config"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
)

type authOptions struct {
	Code       string
	DotenvDir  string
	ConfigDir  string
	TokenStore string

	// tokenURL and getenv replace the vendor endpoint and os.Getenv in tests.
	tokenURL string
	getenv   func(string) string
	now      func() time.Time
}

func newAuthCmd() *cobra.Command {
	var opts authOptions

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize ticktick-mcp against TickTick from the terminal",
		Long: `Run the OAuth authorization-code flow without the HTTP transport.

The command prints the TickTick consent URL. After approving access, paste
either the code parameter or the whole redirect URL, or pass it with --code.
The access token is written to the configured token store, where serve picks
it up on its next start.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Code, "code", "", "Authorization code from the redirect URL (skips the prompt)")
	cmd.Flags().StringVar(&opts.DotenvDir, "dotenv-dir", "", "Directory holding the .env fallback. Can also use TICKTICK_DOTENV_DIR env var.")
	cmd.Flags().StringVar(&opts.ConfigDir, "config-dir", "", "Directory holding the token caches (default: ~/.config/ticktick-mcp)")
	cmd.Flags().StringVar(&opts.TokenStore, "token-store", "", "Where the access token is kept: file or keyring. Can also use TICKTICK_TOKEN_STORE env var.")

	return cmd
}

func runAuth(ctx context.Context, in io.Reader, out io.Writer, opts authOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	now := opts.now
	if now == nil {
		now = time.Now
	}

	cfg, err := config.Resolve(config.ResolveOptions{
		ConfigDir:  opts.ConfigDir,
		DotenvDir:  opts.DotenvDir,
		TokenStore: opts.TokenStore,
		Getenv:     opts.getenv,
		Now:        now,
	})
	if err != nil {
		return fmt.Errorf("failed to resolve configuration: %w", err)
	}

	conf := ticktick.OAuthConfig(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI)
	if opts.tokenURL != "" {
		conf.Endpoint.TokenURL = opts.tokenURL
	}

	code := opts.Code
	if code == "" {
		state := uuid.NewString()
		fmt.Fprintf(out, "Open this URL in your browser and approve access:\n\n  %s\n\n", ticktick.AuthURL(conf, state))
		fmt.Fprint(out, "Paste the code or the full redirect URL: ")

		line, err := readLine(in)
		if err != nil {
			return fmt.Errorf("failed to read authorization code: %w", err)
		}
		code, err = extractCode(line, state)
		if err != nil {
			return err
		}
	}

	tok, err := ticktick.Exchange(ctx, conf, code)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	store := cfg.TokenStore()
	if err := store.Save(config.NewTokenCache(tok.AccessToken, tok.RefreshToken, ticktick.ExpiresIn(tok), now())); err != nil {
		return fmt.Errorf("failed to save token to %s: %w", store, err)
	}

	fmt.Fprintf(out, "Access token saved to %s\n", store)
	return nil
}

func readLine(in io.Reader) (string, error) {
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(scanner.Text()), nil
}

// extractCode accepts a bare code or a redirect URL carrying code and state.
// A state in the URL must match the one sent to the consent page.
func extractCode(input, state string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("no authorization code given")
	}
	if !strings.Contains(input, "code=") {
		return input, nil
	}

	raw := input
	if i := strings.Index(input, "?"); i >= 0 {
		raw = input[i+1:]
	}
	query, err := url.ParseQuery(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect URL: %w", err)
	}
	if got := query.Get("state"); got != "" && got != state {
		return "", fmt.Errorf("state mismatch in redirect URL")
	}
	code := query.Get("code")
	if code == "" {
		return "", fmt.Errorf("redirect URL carries no code")
	}
	return code, nil
}

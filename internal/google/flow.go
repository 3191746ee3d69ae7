package google

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// InteractiveFlow asks the user to open the consent page and paste back the
// authorization code, or the whole redirect URL. It implements
// auth.Authorizer.
type InteractiveFlow struct {
	Config *oauth2.Config
	In     io.Reader
	Out    io.Writer

	newState func() string
}

// NewInteractiveFlow returns a flow reading from in and prompting on out.
func NewInteractiveFlow(conf *oauth2.Config, in io.Reader, out io.Writer) *InteractiveFlow {
	return &InteractiveFlow{Config: conf, In: in, Out: out}
}

// Authorize runs the authorization code flow with PKCE and exchanges the
// code for an access and refresh token.
func (f *InteractiveFlow) Authorize(ctx context.Context) (*oauth2.Token, error) {
	if f.Config == nil {
		return nil, errors.New("oauth config is required")
	}
	if f.Config.ClientID == "" {
		return nil, errors.New("google client id is not configured")
	}

	state := f.state()
	verifier := oauth2.GenerateVerifier()
	authURL := f.Config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	fmt.Fprintf(f.Out, "Visit the URL below to grant access to Gmail:\n\n%s\n\n", authURL)
	fmt.Fprint(f.Out, "Paste the authorization code or the full redirect URL: ")

	line, err := readLine(ctx, f.In)
	if err != nil {
		return nil, fmt.Errorf("failed to read authorization code: %w", err)
	}
	code, err := parseAuthResponse(line, state)
	if err != nil {
		return nil, err
	}

	tok, err := f.Config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return tok, nil
}

func (f *InteractiveFlow) state() string {
	if f.newState != nil {
		return f.newState()
	}
	return uuid.NewString()
}

// parseAuthResponse extracts the code from a pasted code or redirect URL.
// A redirect URL must carry the expected state.
func parseAuthResponse(input, wantState string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("no authorization code entered")
	}
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("authorization denied: %s", e)
	}
	if q.Get("state") != wantState {
		return "", errors.New("state mismatch in redirect URL")
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.New("redirect URL has no code parameter")
	}
	return code, nil
}

// readLine reads one line from r, giving up when ctx is done.
func readLine(ctx context.Context, r io.Reader) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(r).ReadString('\n')
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		}
		ch <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

const signInEndpoint = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"

// FirebaseProvider talks to Firebase Authentication: the Admin SDK for user
// management and token verification, the Identity Toolkit REST API for
// password sign-in (the Admin SDK has no sign-in call).
type FirebaseProvider struct {
	client     *auth.Client
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// FirebaseConfig holds the values needed to reach a Firebase project.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string // empty means application default credentials
	APIKey          string
}

// NewFirebaseProvider initializes the Admin SDK. A missing API key is not
// fatal here: sign-in then fails with ErrConfiguration.
func NewFirebaseProvider(ctx context.Context, cfg FirebaseConfig) (*FirebaseProvider, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	var appConfig *firebase.Config
	if cfg.ProjectID != "" {
		appConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, appConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth client: %w", err)
	}

	return &FirebaseProvider{
		client:     client,
		apiKey:     cfg.APIKey,
		endpoint:   signInEndpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (p *FirebaseProvider) CreateUser(ctx context.Context, params CreateUserParams) (string, error) {
	toCreate := (&auth.UserToCreate{}).
		Email(params.Email).
		Password(params.Password).
		DisplayName(params.DisplayName).
		Disabled(false)

	rec, err := p.client.CreateUser(ctx, toCreate)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return "", ErrEmailExists
		}
		return "", fmt.Errorf("firebase create user: %w", err)
	}
	return rec.UID, nil
}

func (p *FirebaseProvider) UpdateUser(ctx context.Context, uid string, params UpdateUserParams) error {
	if params.empty() {
		return nil
	}
	toUpdate := &auth.UserToUpdate{}
	if params.Email != nil {
		toUpdate = toUpdate.Email(*params.Email)
	}
	if params.Password != nil {
		toUpdate = toUpdate.Password(*params.Password)
	}
	if params.DisplayName != nil {
		toUpdate = toUpdate.DisplayName(*params.DisplayName)
	}
	if params.Disabled != nil {
		toUpdate = toUpdate.Disabled(*params.Disabled)
	}

	if _, err := p.client.UpdateUser(ctx, uid, toUpdate); err != nil {
		switch {
		case auth.IsUserNotFound(err):
			return ErrUserNotFound
		case auth.IsEmailAlreadyExists(err):
			return ErrEmailExists
		}
		return fmt.Errorf("firebase update user: %w", err)
	}
	return nil
}

func (p *FirebaseProvider) DeleteUser(ctx context.Context, uid string) error {
	if err := p.client.DeleteUser(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("firebase delete user: %w", err)
	}
	return nil
}

func (p *FirebaseProvider) VerifyIDToken(ctx context.Context, token string) (*Claims, error) {
	tok, err := p.client.VerifyIDToken(ctx, token)
	if err != nil {
		if auth.IsIDTokenExpired(err) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	email, _ := tok.Claims["email"].(string)
	return &Claims{UID: tok.UID, Email: email}, nil
}

func (p *FirebaseProvider) SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error) {
	return signInWithPassword(ctx, p.httpClient, p.endpoint, p.apiKey, email, password)
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	ExpiresIn    string `json:"expiresIn"`
}

type signInError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// signInWithPassword performs the Identity Toolkit password sign-in and maps
// its error codes onto the package sentinels.
func signInWithPassword(ctx context.Context, client *http.Client, endpoint, apiKey, email, password string) (*SignInResult, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: FIREBASE_API_KEY is not set", ErrConfiguration)
	}

	payload, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sign-in request: %w", err)
	}

	u := endpoint + "?key=" + url.QueryEscape(apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform sign-in request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read sign-in response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp signInError
		_ = json.Unmarshal(body, &errResp)
		return nil, mapSignInError(errResp.Error.Message, resp.StatusCode)
	}

	var out signInResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode sign-in response: %w", err)
	}
	expiresIn, _ := strconv.Atoi(out.ExpiresIn)

	return &SignInResult{
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		LocalID:      out.LocalID,
		Email:        out.Email,
		ExpiresIn:    expiresIn,
	}, nil
}

// mapSignInError translates an Identity Toolkit error message such as
// "INVALID_PASSWORD" or "TOO_MANY_ATTEMPTS_TRY_LATER : ...".
func mapSignInError(message string, status int) error {
	code := message
	if i := strings.IndexAny(code, " :"); i >= 0 {
		code = code[:i]
	}
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL":
		return ErrInvalidCredentials
	case "USER_DISABLED":
		return ErrUserDisabled
	case "CONFIGURATION_NOT_FOUND", "API_KEY_INVALID", "PROJECT_NOT_FOUND":
		return fmt.Errorf("%w: %s", ErrConfiguration, message)
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return fmt.Errorf("%w: %s", ErrInvalidCredentials, message)
}

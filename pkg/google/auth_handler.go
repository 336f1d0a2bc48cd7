package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/greensquare/lessonsync/internal/config"
	"github.com/greensquare/lessonsync/internal/rest"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

type googleAuthRedirect struct {
	RedirectUrl string `json:"redirectUrl"`
}

// GoogleAuth provides the HTTP client used for Calendar calls. A service
// account key file takes precedence; otherwise the token stored by the OAuth
// flow is used.
type GoogleAuth struct {
	db              *pgxpool.Pool
	oauthConfig     *oauth2.Config
	credentialsFile string
}

func NewGoogleAuth(db *pgxpool.Pool, cfg config.Application) *GoogleAuth {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.Google.ClientId,
		ClientSecret: cfg.Google.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.Host + "/api/integrations/google/auth/callback",
		Scopes:       []string{calendar.CalendarEventsScope, calendar.CalendarReadonlyScope},
	}

	return &GoogleAuth{db: db, oauthConfig: oauthConfig, credentialsFile: cfg.Google.CredentialsFile}
}

func (g *GoogleAuth) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stateNonce := uuid.New().String()
	finalUrl := r.URL.Query().Get("finalUrl")

	err := pgx.BeginFunc(ctx, g.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM google_calendar_auth"); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, "INSERT INTO google_calendar_auth (id, nonce) VALUES (1, $1)", stateNonce)
		return err
	})
	if err != nil {
		log.Errorf("failed to store Google auth nonce: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to handle Google authentication", "")
		return
	}

	log.Tracef("Redirecting to Google auth URL with nonce: %s", stateNonce)
	u := g.oauthConfig.AuthCodeURL(finalUrl+"|"+stateNonce, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	rest.WriteJSON(w, googleAuthRedirect{RedirectUrl: u})
}

func (g *GoogleAuth) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.FormValue("code")
	finalUrl, nonce, ok := strings.Cut(r.FormValue("state"), "|")
	if !ok || nonce == "" {
		rest.WriteError(w, http.StatusBadRequest, "Invalid state parameter", "")
		return
	}

	token, err := g.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		err := fmt.Errorf("unable to exchange code for token: %v", err)
		log.Error(err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}

	result, err := g.db.Exec(r.Context(), "UPDATE google_calendar_auth SET access_token = $1, refresh_token = $2, expiry = $3 WHERE nonce = $4",
		token.AccessToken, token.RefreshToken, token.Expiry.Unix(), nonce)
	if err == nil && result.RowsAffected() == 0 {
		err = errors.New("nonce not found")
	}
	if err != nil {
		err := fmt.Errorf("unable to store Google auth token for nonce: %v", err)
		log.Error(err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}
	log.Debug("Successfully stored Google auth token for nonce: ", nonce)
	http.Redirect(w, r, finalUrl+"?success=true", http.StatusFound)
}

func (g *GoogleAuth) OAuthLogout(w http.ResponseWriter, r *http.Request) {
	if _, err := g.db.Exec(r.Context(), "DELETE FROM google_calendar_auth"); err != nil {
		log.Errorf("failed to delete Google auth row: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to handle Google authentication", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *GoogleAuth) getToken(ctx context.Context) (*oauth2.Token, error) {
	var accessToken, refreshToken *string
	var expiryTimestamp *int64
	err := g.db.QueryRow(ctx, "SELECT access_token, refresh_token, expiry FROM google_calendar_auth WHERE id = 1").
		Scan(&accessToken, &refreshToken, &expiryTimestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("unable to retrieve Google auth token: %v", err)
	}
	if accessToken == nil || refreshToken == nil {
		// login started but never completed
		return nil, nil
	}

	token := &oauth2.Token{AccessToken: *accessToken, RefreshToken: *refreshToken}
	if expiryTimestamp != nil {
		token.Expiry = time.Unix(*expiryTimestamp, 0)
	}
	return token, nil
}

// getClient returns nil without error when no credentials are available yet.
func (g *GoogleAuth) getClient(ctx context.Context) (*http.Client, error) {
	if g.credentialsFile != "" {
		data, err := os.ReadFile(g.credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read Google credentials file: %v", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, calendar.CalendarEventsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse Google credentials file: %v", err)
		}
		return oauth2.NewClient(ctx, creds.TokenSource), nil
	}

	token, err := g.getToken(ctx)
	if err != nil {
		log.Error(err)
		return nil, err
	}
	if token == nil {
		return nil, nil
	}
	return g.oauthConfig.Client(context.Background(), token), nil
}

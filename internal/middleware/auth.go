package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AdamBeresnev/championship-draw/internal/config"
	"github.com/AdamBeresnev/championship-draw/internal/httputil"
	"github.com/AdamBeresnev/championship-draw/internal/store"
	users "github.com/AdamBeresnev/championship-draw/internal/user"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/discord"
	"github.com/markbates/goth/providers/google"
)

type ContextKey string

const OperatorIDKey ContextKey = "operatorID"

// Session key holding the signed-in operator id
const SessionOperatorKey = "operatorID"

// InitAuth registers the configured OAuth providers and returns their names
func InitAuth(cfg config.OAuthConfig) []string {
	var providers []goth.Provider
	var names []string

	if cfg.DiscordEnabled() {
		providers = append(providers, discord.New(cfg.DiscordKey, cfg.DiscordSecret, cfg.DiscordCallbackURL, discord.ScopeIdentify, discord.ScopeEmail))
		names = append(names, "discord")
	}
	if cfg.GoogleEnabled() {
		providers = append(providers, google.New(cfg.GoogleKey, cfg.GoogleSecret, cfg.GoogleCallbackURL, "email", "profile"))
		names = append(names, "google")
	}

	goth.UseProviders(providers...)
	return names
}

// LoadOperator puts the signed-in operator, if any, in the request context
func LoadOperator(sessionManager *scs.SessionManager, operatorStore *store.OperatorStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idStr := sessionManager.GetString(r.Context(), SessionOperatorKey)
			if idStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			operatorID, err := uuid.Parse(idStr)
			if err != nil {
				sessionManager.Remove(r.Context(), SessionOperatorKey)
				next.ServeHTTP(w, r)
				return
			}

			operator, err := operatorStore.GetOperator(r.Context(), operatorID)
			if err != nil {
				slog.Warn("session refers to an unknown operator", "operator_id", operatorID, "error", err)
				sessionManager.Remove(r.Context(), SessionOperatorKey)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), OperatorIDKey, operatorID)
			ctx = context.WithValue(ctx, users.OperatorKey, operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin lets only signed-in operators through. Pages redirect to the
// login page, API calls get a 401.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAuthenticatedOperator(r.Context()) == nil {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				httputil.JSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetOperatorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	val := ctx.Value(OperatorIDKey)
	if val == nil {
		return uuid.Nil, false
	}

	id, ok := val.(uuid.UUID)
	return id, ok
}

func GetAuthenticatedOperator(ctx context.Context) *users.Operator {
	val := ctx.Value(users.OperatorKey)
	if val == nil {
		return nil
	}
	operator, ok := val.(*users.Operator)
	if !ok {
		return nil
	}
	return operator
}

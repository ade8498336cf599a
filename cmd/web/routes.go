package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AdamBeresnev/championship-draw/internal/config"
	"github.com/AdamBeresnev/championship-draw/internal/draw"
	"github.com/AdamBeresnev/championship-draw/internal/export"
	"github.com/AdamBeresnev/championship-draw/internal/httputil"
	"github.com/AdamBeresnev/championship-draw/internal/live"
	"github.com/AdamBeresnev/championship-draw/internal/logo"
	"github.com/AdamBeresnev/championship-draw/internal/metrics"
	"github.com/AdamBeresnev/championship-draw/internal/middleware"
	"github.com/AdamBeresnev/championship-draw/internal/service"
	"github.com/AdamBeresnev/championship-draw/internal/store"
	"github.com/AdamBeresnev/championship-draw/internal/utils"
	"github.com/AdamBeresnev/championship-draw/internal/viewsync"
	"github.com/AdamBeresnev/championship-draw/views"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/markbates/goth/gothic"
)

type app struct {
	cfg            *config.Config
	sessionManager *scs.SessionManager
	operatorStore  *store.OperatorStore
	operators      *service.OperatorService
	providers      []string

	tournaments *service.TournamentService
	draws       *service.DrawService
	session     *service.DrawSession
	display     *viewsync.Observer
	hub         *live.Hub
	logos       logo.Converter
	metrics     *metrics.Recorder
}

type stateResponse struct {
	draw.Snapshot
	Available []draw.Club `json:"available"`
	Drawing   bool        `json:"drawing"`
}

type fieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Extra room on top of the logo itself for the other form fields
const multipartOverhead = 1 << 20

func newRouter(a *app) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(a.sessionManager.LoadAndSave)
	r.Use(middleware.LoadOperator(a.sessionManager, a.operatorStore))

	r.Handle("/metrics", a.metrics.Handler())

	// Public display
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		views.Render(w, r, views.DisplayPage(views.PrepareDrawData(a.display.Current())))
	})
	r.Get("/partials/board", func(w http.ResponseWriter, r *http.Request) {
		views.Render(w, r, views.Board(views.PrepareDrawData(a.display.Current())))
	})
	r.Group(func(r chi.Router) {
		if len(a.cfg.CORSOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: a.cfg.CORSOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodOptions},
				MaxAge:         300,
			}))
		}
		r.Get("/api/state", func(w http.ResponseWriter, r *http.Request) {
			snapshot := a.display.Current()
			httputil.JSON(w, http.StatusOK, stateResponse{
				Snapshot:  snapshot,
				Available: snapshot.AvailableClubs(),
				Drawing:   a.session.Busy(),
			})
		})
		r.Get("/ws", a.hub.ServeWS)
	})

	// Admin
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)

		r.Get("/admin", func(w http.ResponseWriter, r *http.Request) {
			snapshot, err := a.tournaments.Snapshot(r.Context())
			if err != nil {
				httputil.InternalServerError(w, "Failed to load tournament", err)
				return
			}
			views.Render(w, r, views.AdminPage(views.PrepareDrawData(*snapshot), views.GetOperator(r.Context())))
		})

		r.Patch("/api/tournament", func(w http.ResponseWriter, r *http.Request) {
			var req fieldRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			snapshot, err := a.tournaments.SetField(r.Context(), draw.Field(req.Field), req.Value)
			if err != nil {
				httputil.DomainError(w, "Failed to update tournament", err)
				return
			}
			httputil.JSON(w, http.StatusOK, snapshot)
		})

		r.Post("/api/clubs", func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, a.cfg.LogoMaxBytes+multipartOverhead)
			if err := r.ParseMultipartForm(a.cfg.LogoMaxBytes + multipartOverhead); err != nil {
				httputil.BadRequest(w, "Invalid form data", err)
				return
			}

			// Rejected adds must not leave an uploaded logo behind
			if err := a.tournaments.CheckNewClub(r.Context(), r.FormValue("name")); err != nil {
				httputil.DomainError(w, "Failed to add club", err)
				return
			}

			logoRef, err := a.convertLogo(r)
			if err != nil {
				httputil.DomainError(w, "Failed to store logo", err)
				return
			}

			club, err := a.tournaments.AddClub(r.Context(), r.FormValue("name"), logoRef)
			if err != nil {
				httputil.DomainError(w, "Failed to add club", err)
				return
			}
			httputil.JSON(w, http.StatusCreated, club)
		})

		r.Put("/api/clubs/{id}", func(w http.ResponseWriter, r *http.Request) {
			var patch draw.ClubPatch
			if err := parseClubPatch(w, r, a, &patch); err != nil {
				httputil.DomainError(w, "Invalid club update", err)
				return
			}
			club, err := a.tournaments.UpdateClub(r.Context(), chi.URLParam(r, "id"), patch)
			if err != nil {
				httputil.DomainError(w, "Failed to update club", err)
				return
			}
			httputil.JSON(w, http.StatusOK, club)
		})

		r.Delete("/api/clubs/{id}", func(w http.ResponseWriter, r *http.Request) {
			if err := a.tournaments.RemoveClub(r.Context(), chi.URLParam(r, "id")); err != nil {
				httputil.DomainError(w, "Failed to remove club", err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		transitions := map[string]func(context.Context) (*draw.Snapshot, error){
			"start":   a.draws.Start,
			"finish":  a.draws.Finish,
			"restart": a.draws.Restart,
		}
		r.Post("/api/draw/{action:start|finish|restart}", func(w http.ResponseWriter, r *http.Request) {
			action := chi.URLParam(r, "action")
			if action == "restart" {
				a.session.Cancel()
			}
			snapshot, err := transitions[action](r.Context())
			if err != nil {
				httputil.DomainError(w, "Failed to "+action+" draw", err)
				return
			}
			httputil.JSON(w, http.StatusOK, snapshot)
		})

		r.Post("/api/draw/clubs/{id}", func(w http.ResponseWriter, r *http.Request) {
			assignment, err := a.session.Draw(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				httputil.DomainError(w, "Failed to draw club", err)
				return
			}
			httputil.JSON(w, http.StatusOK, assignment.Position)
		})

		r.Get("/api/export.xlsx", func(w http.ResponseWriter, r *http.Request) {
			snapshot, err := a.tournaments.Snapshot(r.Context())
			if err != nil {
				httputil.InternalServerError(w, "Failed to load tournament", err)
				return
			}
			var buf bytes.Buffer
			if err := export.WriteWorkbook(&buf, *snapshot); err != nil {
				httputil.InternalServerError(w, "Failed to export draw", err)
				return
			}
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="draw-%s.xlsx"`, time.Now().Format("20060102-150405")))
			buf.WriteTo(w)
		})
	})

	// Auth
	r.Get("/login", func(w http.ResponseWriter, r *http.Request) {
		views.Render(w, r, views.LoginPage(a.providers, a.operators.GuestAllowed()))
	})

	r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothic.BeginAuthHandler(w, r)
	})

	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			httputil.BadRequest(w, "Authentication failure", err)
			return
		}

		operator, err := a.operators.FindOrCreateOperatorByProvider(r.Context(), gothUser)
		if err != nil {
			if errors.Is(err, service.ErrNotAdmin) {
				httputil.JSONError(w, http.StatusForbidden, "This account is not an administrator")
				return
			}
			httputil.InternalServerError(w, "Failed to find or create operator", err)
			return
		}

		if err := a.sessionManager.RenewToken(r.Context()); err != nil {
			httputil.InternalServerError(w, "Failed to renew session", err)
			return
		}
		a.sessionManager.Put(r.Context(), middleware.SessionOperatorKey, operator.ID.String())
		http.Redirect(w, r, "/admin", http.StatusFound)
	})

	r.Post("/auth/guest", func(w http.ResponseWriter, r *http.Request) {
		operator, err := a.operators.EnsureGuestOperator(r.Context())
		if err != nil {
			if errors.Is(err, service.ErrNotAdmin) {
				httputil.NotFound(w, "Guest access is disabled", nil)
				return
			}
			httputil.InternalServerError(w, "Failed to login as guest", err)
			return
		}

		a.sessionManager.Put(r.Context(), middleware.SessionOperatorKey, operator.ID.String())
		http.Redirect(w, r, "/admin", http.StatusFound)
	})

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		a.sessionManager.Destroy(r.Context())
		http.Redirect(w, r, "/login", http.StatusFound)
	})

	return r
}

// convertLogo returns an empty reference when no file was uploaded
func (a *app) convertLogo(r *http.Request) (string, error) {
	file, header, err := r.FormFile("logo")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: unreadable logo upload", draw.ErrValidation)
	}
	defer file.Close()

	return a.logos.Convert(r.Context(), header.Header.Get("Content-Type"), file)
}

// parseClubPatch accepts JSON or a multipart form with an optional new logo
func parseClubPatch(w http.ResponseWriter, r *http.Request, a *app, patch *draw.ClubPatch) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Name *string `json:"name"`
			Logo *string `json:"logo"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return fmt.Errorf("%w: invalid request body", draw.ErrValidation)
		}
		patch.Name = body.Name
		patch.LogoRef = body.Logo
		return nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.LogoMaxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(a.cfg.LogoMaxBytes + multipartOverhead); err != nil {
		return fmt.Errorf("%w: invalid form data", draw.ErrValidation)
	}
	if _, ok := r.MultipartForm.Value["name"]; ok {
		patch.Name = utils.Ptr(r.FormValue("name"))
	}

	logoRef, err := a.convertLogo(r)
	if err != nil {
		return err
	}
	patch.LogoRef = utils.StringOrNil(logoRef)
	return nil
}

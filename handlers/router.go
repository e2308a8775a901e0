package handlers

import (
	"net/http"

	"github.com/ClarenceCat/awf-group-api/middleware"

	"github.com/gorilla/mux"
)

// RouterConfig collects the dependencies of NewRouter. Recorder, Metrics and
// AuthLimiter are optional.
type RouterConfig struct {
	Auth          AuthAPI
	Authenticator middleware.Authenticator
	Projects      ProjectAPI
	Tasks         TaskAPI
	Notifications NotificationAPI
	Store         Pinger

	Recorder    middleware.RequestRecorder
	Metrics     http.Handler
	AuthLimiter func(http.Handler) http.Handler
	CORSOrigin  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	if cfg.Recorder != nil {
		r.Use(middleware.Metrics(cfg.Recorder))
	}

	r.HandleFunc("/health", Health(cfg.Store)).Methods(http.MethodGet)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	authHandler := NewAuthHandler(cfg.Auth)
	auth := r.PathPrefix("/auth").Subrouter()
	if cfg.AuthLimiter != nil {
		auth.Use(cfg.AuthLimiter)
	}
	auth.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)

	requireUser := middleware.JWTAuthMiddleware(cfg.Authenticator)

	projectHandler := NewProjectHandler(cfg.Projects)
	taskHandler := NewTaskHandler(cfg.Tasks)
	projects := r.PathPrefix("/projects").Subrouter()
	projects.Use(requireUser)
	projects.HandleFunc("", projectHandler.ListProjects).Methods(http.MethodGet)
	projects.HandleFunc("", projectHandler.CreateProject).Methods(http.MethodPost)
	projects.HandleFunc("/{id}", projectHandler.GetProject).Methods(http.MethodGet)
	projects.HandleFunc("/{id}", projectHandler.UpdateProject).Methods(http.MethodPut)
	projects.HandleFunc("/{id}", projectHandler.DeleteProject).Methods(http.MethodDelete)
	projects.HandleFunc("/{id}/tasks", projectHandler.AddTask).Methods(http.MethodPost)
	projects.HandleFunc("/{id}/tasks/{taskId}", projectHandler.UpdateTask).Methods(http.MethodPut)
	projects.HandleFunc("/{id}/tasks/{taskId}", projectHandler.DeleteTask).Methods(http.MethodDelete)
	projects.HandleFunc("/{id}/tasks/{taskId}/assigned", taskHandler.Assign).Methods(http.MethodPost)
	projects.HandleFunc("/{id}/tasks/{taskId}/assigned", taskHandler.Unassign).Methods(http.MethodDelete)
	projects.HandleFunc("/{id}/members", projectHandler.AddMember).Methods(http.MethodPost)
	projects.HandleFunc("/{id}/members", projectHandler.RemoveMember).Methods(http.MethodDelete)

	tasks := r.PathPrefix("/tasks").Subrouter()
	tasks.Use(requireUser)
	tasks.HandleFunc("", taskHandler.ListAssigned).Methods(http.MethodGet)

	notificationHandler := NewNotificationHandler(cfg.Notifications)
	notifications := r.PathPrefix("/notifications").Subrouter()
	notifications.Use(requireUser)
	notifications.HandleFunc("", notificationHandler.List).Methods(http.MethodGet)
	notifications.HandleFunc("/{id}/read", notificationHandler.MarkRead).Methods(http.MethodPut)

	origin := cfg.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return middleware.EnableCORS(origin)(middleware.RequestLogger(r))
}

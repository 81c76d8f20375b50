package internal

import (
	"context"
	"database/sql"
	"embed"
	"log"
	"net/http"
	"os"
	"time"

	"dvbc-erp-api/internal/auth"
	"dvbc-erp-api/internal/config"
	"dvbc-erp-api/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed openapi
var openapiFS embed.FS

type Server struct {
	DB         *sql.DB
	Pool       *pgxpool.Pool
	Router     *chi.Mux
	JWTManager *auth.JWTManager
	Metrics    *Metrics
	Validate   *validator.Validate
}

func NewServer(dsn string, cfg *config.Config) *Server {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatal("Failed to open database connection:", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal("Database ping failed:", err)
	}

	// Also create a pgxpool for the export pipeline
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatal("Failed to create pgxpool:", err)
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)

	// Validate JWT configuration
	if err := jwtManager.ValidateConfig(); err != nil {
		log.Fatal("JWT configuration validation failed:", err)
	}

	// Initialize metrics
	metrics := NewMetrics()

	s := &Server{
		DB:         db,
		Pool:       pool,
		Router:     chi.NewRouter(),
		JWTManager: jwtManager,
		Metrics:    metrics,
		Validate:   validator.New(validator.WithRequiredStructEnabled()),
	}

	s.Router.Use(RequestLogger)

	// chi requires every Use before the first route registration
	metricsEnabled := os.Getenv("ENABLE_METRICS") == "true"
	if metricsEnabled {
		s.Router.Use(s.Metrics.Middleware())
	}

	// Mount public routes FIRST (no route-group middleware)
	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/dbping", func(w http.ResponseWriter, r *http.Request) {
		if err := s.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "db: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		if _, err := w.Write([]byte("db: ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	// Public auth routes (no JWT required)
	s.Router.Post("/auth/login", s.loginUser)
	s.Router.Post("/auth/google", s.googleLogin)
	s.mountDocs(s.Router)

	// Expose the scrape endpoint alongside the other public routes
	if metricsEnabled {
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	// Create a protected route group with middleware
	s.Router.Group(func(r chi.Router) {
		// Apply middleware to this group only
		r.Use(auth.AuthMiddleware(s.JWTManager))
		r.Use(s.withRLSSession)

		// Mount protected routes
		s.mountProtectedRoutes(r)
	})

	return s
}

// Close properly shuts down the server and cleans up resources
func (s *Server) Close(ctx context.Context) error {
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// withRLSSession middleware for org isolation
func (s *Server) withRLSSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID := auth.OrgIDFromContext(r.Context()) // from the JWT middleware
		conn, ctx2, err := withDBConn(r.Context(), s.DB, orgID)
		if err != nil {
			http.Error(w, "db acquire: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if conn != nil {
			defer conn.Close()
		}
		next.ServeHTTP(w, r.WithContext(ctx2))
	})
}

// mountDocs serves the OpenAPI spec and Swagger UI
func (s *Server) mountDocs(mux *chi.Mux) {
	// Check if Swagger is enabled
	if os.Getenv("ENABLE_SWAGGER") != "true" {
		return
	}

	// Serve the raw YAML
	mux.HandleFunc("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		data, err := openapiFS.ReadFile("openapi/openapi.yaml")
		if err != nil {
			http.Error(w, "Failed to read OpenAPI spec", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		if _, err := w.Write(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	// Serve Swagger UI page
	mux.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(200)
		w.Write([]byte(`<!doctype html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>DVBC ERP API - Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css">
    <style>
        body { margin: 0; background: #f7f7f7; }
        .swagger-ui .topbar { background: #1f2937; border-bottom: 3px solid #3b82f6; }
        .swagger-ui .topbar .download-url-wrapper { display: none; }
        .swagger-ui .info { margin: 20px 0; }
        .swagger-ui .info .title { color: #1f2937; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: '/openapi.yaml',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [
                    SwaggerUIBundle.presets.apis,
                    SwaggerUIBundle.presets.standalone
                ],
                layout: "StandaloneLayout",
                tryItOutEnabled: true
            });
        };
    </script>
</body>
</html>`))
	})
}

// mountProtectedRoutes mounts all protected routes that require authentication
func (s *Server) mountProtectedRoutes(r chi.Router) {
	// Employees - HR writes, everyone reads
	r.Get("/employees", s.listEmployees)
	r.Get("/employees/{id}", s.getEmployee)
	r.Post("/employees", auth.MustRole("hr_admin", "org_admin")(http.HandlerFunc(s.createEmployee)).(http.HandlerFunc))
	r.Put("/employees/{id}", auth.MustRole("hr_admin", "org_admin")(http.HandlerFunc(s.updateEmployee)).(http.HandlerFunc))
	r.Delete("/employees/{id}", auth.MustRole("hr_admin", "org_admin")(http.HandlerFunc(s.deleteEmployee)).(http.HandlerFunc))

	// Projects - managers own the portfolio
	r.Get("/projects", s.listProjects)
	r.Get("/projects/{id}", s.getProject)
	r.Post("/projects", auth.MustRole("manager", "org_admin")(http.HandlerFunc(s.createProject)).(http.HandlerFunc))
	r.Put("/projects/{id}", auth.MustRole("manager", "org_admin")(http.HandlerFunc(s.updateProject)).(http.HandlerFunc))
	r.Delete("/projects/{id}", auth.MustRole("org_admin")(http.HandlerFunc(s.deleteProject)).(http.HandlerFunc))

	// Tasks - any member may move their own work; the dates endpoint backs
	// the Gantt drag interactions
	r.Get("/tasks", s.listTasks)
	r.Get("/tasks/{id}", s.getTask)
	r.Post("/tasks", s.createTask)
	r.Put("/tasks/{id}", s.updateTask)
	r.Patch("/tasks/{id}/dates", s.updateTaskDates)
	r.Delete("/tasks/{id}", auth.MustRole("manager", "org_admin")(http.HandlerFunc(s.deleteTask)).(http.HandlerFunc))

	// Timesheets - weekly grid plus the approval flow
	r.Get("/timesheets", s.getTimesheet)
	r.Put("/timesheets", s.saveTimesheet)
	r.Post("/timesheets/{id}/submit", s.submitTimesheet)
	r.Post("/timesheets/{id}/approve", auth.MustRole("manager", "hr_admin", "org_admin")(http.HandlerFunc(s.approveTimesheet)).(http.HandlerFunc))
	r.Post("/timesheets/{id}/reject", auth.MustRole("manager", "hr_admin", "org_admin")(http.HandlerFunc(s.rejectTimesheet)).(http.HandlerFunc))

	// Travel reimbursements
	r.Get("/travel/reimbursements", s.listTravelClaims)
	r.Get("/travel/reimbursements/{id}", s.getTravelClaim)
	r.Post("/travel/reimbursements", s.createTravelClaim)
	r.Post("/travel/reimbursements/{id}/approve", auth.MustRole("manager", "hr_admin", "org_admin")(http.HandlerFunc(s.approveTravelClaim)).(http.HandlerFunc))
	r.Post("/travel/reimbursements/{id}/reject", auth.MustRole("manager", "hr_admin", "org_admin")(http.HandlerFunc(s.rejectTravelClaim)).(http.HandlerFunc))
	r.Delete("/travel/reimbursements/{id}", s.deleteTravelClaim)

	// SOWs - sales creates, kickoff hands over to delivery
	r.Get("/sow", s.listSOWs)
	r.Get("/sow/{id}", s.getSOW)
	r.Post("/sow", auth.MustRole("manager", "org_admin")(http.HandlerFunc(s.createSOW)).(http.HandlerFunc))
	r.Post("/sow/{id}/kickoff", auth.MustRole("manager", "org_admin")(http.HandlerFunc(s.kickoffSOW)).(http.HandlerFunc))
	r.Get("/sow/{id}/items", s.listSOWItems)
	r.Post("/sow/{id}/items", auth.MustRole("manager", "org_admin")(http.HandlerFunc(s.createSOWItem)).(http.HandlerFunc))
	r.Put("/sow/{id}/items/{itemID}", auth.MustRole("manager", "org_admin")(http.HandlerFunc(s.updateSOWItem)).(http.HandlerFunc))
	r.Delete("/sow/{id}/items/{itemID}", auth.MustRole("manager", "org_admin")(http.HandlerFunc(s.deleteSOWItem)).(http.HandlerFunc))

	// Chat - participant checks happen inside the handlers
	r.Get("/chat/conversations", s.listConversations)
	r.Post("/chat/conversations", s.createConversation)
	r.Get("/chat/conversations/{id}/messages", s.listMessages)
	r.Post("/chat/conversations/{id}/messages", s.sendMessage)
	r.Post("/chat/messages/{id}/read", s.markMessageRead)

	// Permission matrix - org_admin edits, everyone may read their org's
	r.Get("/permissions/matrix", s.getPermissionMatrix)
	r.Put("/permissions/matrix", auth.MustRole("org_admin")(http.HandlerFunc(s.putPermissionMatrix)).(http.HandlerFunc))

	// Attendance and office geofences
	r.Post("/attendance/check-in", s.checkIn)
	r.Post("/attendance/check-out", s.checkOut)
	r.Get("/attendance", s.listAttendance)
	r.Get("/attendance/offices", s.listOfficeLocations)
	r.Post("/attendance/offices", auth.MustRole("hr_admin", "org_admin")(http.HandlerFunc(s.createOfficeLocation)).(http.HandlerFunc))
	r.Delete("/attendance/offices/{id}", auth.MustRole("hr_admin", "org_admin")(http.HandlerFunc(s.deleteOfficeLocation)).(http.HandlerFunc))

	// Excel exports - payroll and timesheet workbooks
	exportsHandler := handlers.NewExportsHandler(s.Pool)
	r.Get("/exports/timesheets.xlsx", auth.MustRole("hr_admin", "org_admin")(http.HandlerFunc(exportsHandler.TimesheetsExcel)).(http.HandlerFunc))
	r.Get("/exports/payroll.xlsx", auth.MustRole("hr_admin", "org_admin")(http.HandlerFunc(exportsHandler.PayrollExcel)).(http.HandlerFunc))

	// User management - org_admin only, with multi-tenant logic
	r.Post("/users", auth.MustRole("org_admin")(http.HandlerFunc(s.createUser)).(http.HandlerFunc))
	r.Get("/users", auth.MustRole("org_admin")(http.HandlerFunc(s.listUsers)).(http.HandlerFunc))
	r.Get("/users/{id}", auth.MustRole("org_admin")(http.HandlerFunc(s.getUser)).(http.HandlerFunc))
	r.Put("/users/{id}", auth.MustRole("org_admin")(http.HandlerFunc(s.updateUser)).(http.HandlerFunc))
	r.Delete("/users/{id}", auth.MustRole("org_admin")(http.HandlerFunc(s.deleteUser)).(http.HandlerFunc))

	// Organization management - main tenant only
	r.Get("/organizations", auth.MustRole("org_admin")(http.HandlerFunc(s.listOrganizations)).(http.HandlerFunc))
	r.Get("/organizations/{id}", auth.MustRole("org_admin")(http.HandlerFunc(s.getOrganization)).(http.HandlerFunc))
	r.Get("/organizations/{id}/stats", auth.MustRole("org_admin")(http.HandlerFunc(s.getOrganizationStats)).(http.HandlerFunc))
	r.Post("/organizations", auth.MustRole("org_admin")(http.HandlerFunc(s.createOrganization)).(http.HandlerFunc))
	r.Put("/organizations/{id}", auth.MustRole("org_admin")(http.HandlerFunc(s.updateOrganization)).(http.HandlerFunc))
	r.Delete("/organizations/{id}", auth.MustRole("org_admin")(http.HandlerFunc(s.deleteOrganization)).(http.HandlerFunc))

	// Self-service routes
	r.Get("/auth/profile", s.getUserProfile)
	r.Put("/auth/profile", s.updateUserProfile)
	r.Put("/auth/change-password", s.changePassword)
}

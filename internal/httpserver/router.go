package httpserver

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"umrah-backoffice/internal/calc"
	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/importer"
	"umrah-backoffice/internal/logging"
	"umrah-backoffice/internal/service/auth"
	invoicesvc "umrah-backoffice/internal/service/invoice"
	"umrah-backoffice/internal/service/rooming"
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Parse(token string) (*domain.Agent, error)
	ListAgents(ctx context.Context, actor domain.Agent) ([]domain.Agent, error)
	CreateAgent(ctx context.Context, actor domain.Agent, in auth.NewAgent) (*domain.Agent, error)
	DeleteAgent(ctx context.Context, actor domain.Agent, id string) error
}

type InvoiceService interface {
	Create(ctx context.Context, actor domain.Agent, in invoicesvc.Input) (*domain.Invoice, error)
	Get(ctx context.Context, actor domain.Agent, id string) (*domain.Invoice, error)
	Update(ctx context.Context, actor domain.Agent, id string, p domain.InvoicePatch) (*domain.Invoice, error)
	UpdateStatus(ctx context.Context, actor domain.Agent, id string, status domain.InvoiceStatus) (*domain.Invoice, error)
	Delete(ctx context.Context, actor domain.Agent, id string) error
	List(ctx context.Context, actor domain.Agent, f calc.InvoiceFilter) (*invoicesvc.ListResult, error)
	Dashboard(ctx context.Context, actor domain.Agent) (*calc.DashboardStats, error)
	Today(ctx context.Context, actor domain.Agent) ([]domain.Invoice, error)
	AgentPerformance(ctx context.Context, actor domain.Agent) ([]calc.AgentStats, error)
}

type ClientService interface {
	List(ctx context.Context, query string) ([]domain.Client, error)
	Get(ctx context.Context, id string) (*domain.Client, error)
	Create(ctx context.Context, in domain.Client) (*domain.Client, error)
	Update(ctx context.Context, id string, p domain.ClientPatch) (*domain.Client, error)
	Delete(ctx context.Context, id string) error
}

type RoomingService interface {
	RoomsWithOccupancy(ctx context.Context, city domain.City) ([]rooming.RoomView, error)
	UnassignedClients(ctx context.Context, city domain.City, query string) ([]domain.Client, error)
	CreateRoom(ctx context.Context, in rooming.NewRoom) (*domain.Room, error)
	ChangeRoomType(ctx context.Context, roomID string, t domain.RoomType) (*domain.Room, error)
	DeleteRoom(ctx context.Context, roomID string) error
	AssignClientToRoom(ctx context.Context, roomID, clientID string, city domain.City) error
	RemoveClientFromRoom(ctx context.Context, clientID string, city domain.City) error
	Subscribe() (<-chan rooming.Event, func())
}

type ImportService interface {
	Stage(ctx context.Context, r io.Reader, filename string) (*importer.Batch, error)
	Commit(ctx context.Context, b *importer.Batch) ([]domain.Client, error)
}

// Deps are the services behind the routes.
type Deps struct {
	Auth     AuthService
	Invoices InvoiceService
	Clients  ClientService
	Rooming  RoomingService
	Importer ImportService

	// Ping backs /readyz.
	Ping        func(ctx context.Context) error
	CORSOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, deps Deps) *gin.Engine {
	logger = logging.OrNop(logger)
	router := gin.New()
	router.Use(requestLogger(logger), gin.CustomRecovery(recoverJSON(logger)))
	router.Use(cors.New(corsConfig(deps.CORSOrigins)))
	router.MaxMultipartMemory = importer.MaxFileSize

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Ping))

	api := router.Group("/api")
	api.POST("/auth/login", loginHandler(deps.Auth))

	authed := api.Group("", authRequired(deps.Auth))
	authed.GET("/auth/me", meHandler)

	agents := authed.Group("/agents", directorOnly())
	agents.GET("", listAgentsHandler(deps.Auth))
	agents.POST("", createAgentHandler(deps.Auth))
	agents.DELETE("/:id", deleteAgentHandler(deps.Auth))

	invoices := authed.Group("/invoices")
	invoices.GET("", listInvoicesHandler(deps.Invoices))
	invoices.POST("", createInvoiceHandler(deps.Invoices))
	invoices.GET("/:id", getInvoiceHandler(deps.Invoices))
	invoices.PATCH("/:id", updateInvoiceHandler(deps.Invoices))
	invoices.PUT("/:id/status", updateInvoiceStatusHandler(deps.Invoices))
	invoices.DELETE("/:id", deleteInvoiceHandler(deps.Invoices))

	dashboard := authed.Group("/dashboard")
	dashboard.GET("", dashboardHandler(deps.Invoices))
	dashboard.GET("/today", todayHandler(deps.Invoices))
	dashboard.GET("/performance", directorOnly(), performanceHandler(deps.Invoices))

	clients := authed.Group("/clients")
	clients.GET("", listClientsHandler(deps.Clients))
	clients.POST("", createClientHandler(deps.Clients))
	clients.POST("/import", importHandler(deps.Importer))
	clients.GET("/:id", getClientHandler(deps.Clients))
	clients.PATCH("/:id", updateClientHandler(deps.Clients))
	clients.DELETE("/:id", deleteClientHandler(deps.Clients))

	rooms := authed.Group("/rooms")
	rooms.GET("", listRoomsHandler(deps.Rooming))
	rooms.GET("/unassigned", unassignedClientsHandler(deps.Rooming))
	rooms.GET("/events", roomEventsHandler(deps.Rooming))
	rooms.POST("", createRoomHandler(deps.Rooming))
	rooms.PATCH("/:id", changeRoomTypeHandler(deps.Rooming))
	rooms.DELETE("/:id", deleteRoomHandler(deps.Rooming))

	assignments := authed.Group("/assignments")
	assignments.PUT("", assignHandler(deps.Rooming))
	assignments.DELETE("/:clientId", unassignHandler(deps.Rooming))

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

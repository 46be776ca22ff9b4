package main

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/chatflow/pkg/dispatcher"
	"github.com/dukex/chatflow/pkg/endpoint"
	"github.com/dukex/chatflow/pkg/eventbus"
	"github.com/dukex/chatflow/pkg/keyword"
	"github.com/dukex/chatflow/pkg/persistence"
	"github.com/dukex/chatflow/pkg/router"
	"github.com/dukex/chatflow/pkg/services"
	"github.com/dukex/chatflow/pkg/web"
	"github.com/dukex/chatflow/pkg/workflow"
	"github.com/dukex/chatflow/pkg/workflowstate"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	store       *workflowstate.Store
	dispatcher  *dispatcher.Dispatcher
	validate    *validator.Validate
	app         *fiber.App
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventPublisher,
	endpoints endpoint.Executor,
	tracer trace.Tracer,
	timeout time.Duration,
) *API {
	store := workflowstate.NewStore(logger, persistence.StateRepository(), workflowstate.WithPublisher(eventBus))

	r := router.New(logger,
		persistence.StateRepository(),
		persistence.DefinitionRepository(),
		persistence.ContactRepository(),
		router.WithTracer(tracer),
	)

	d := dispatcher.New(logger, r,
		workflow.NewExecutor(logger, store, endpoints,
			workflow.WithTracer(tracer), workflow.WithDefinitions(persistence.DefinitionRepository())),
		keyword.NewHandler(logger, endpoints, keyword.WithPublisher(eventBus), keyword.WithTracer(tracer)),
		store,
		persistence.ContactRepository(),
		dispatcher.WithTimeout(timeout),
	)

	return &API{
		logger:      logger,
		persistence: persistence,
		store:       store,
		dispatcher:  d,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Store is the workflow state store shared with the idle sweeper.
func (a *API) Store() *workflowstate.Store {
	return a.store
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		a.dispatcher,
		services.NewDefinitions(a.persistence, a.validate),
		services.NewConversations(a.store),
		a.validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Chatflow API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	a.app = a.App()

	return a.app.Listen(":" + strconv.Itoa(port))
}

func (a *API) Shutdown(timeout time.Duration) error {
	if a.app == nil {
		return nil
	}

	return a.app.ShutdownWithTimeout(timeout)
}

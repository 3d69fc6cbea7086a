package router

import (
	custsvc "creditline-backend/internal/application/customers"
	ingestsvc "creditline-backend/internal/application/ingest"
	loansvc "creditline-backend/internal/application/loans"
	"creditline-backend/internal/config"
	"creditline-backend/internal/infrastructure/database"
	custhandler "creditline-backend/internal/interfaces/handlers/customers"
	healthhandler "creditline-backend/internal/interfaces/handlers/health"
	ingesthandler "creditline-backend/internal/interfaces/handlers/ingest"
	loanhandler "creditline-backend/internal/interfaces/handlers/loans"
	"creditline-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp builds the Fiber app with global middleware and all routes.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var errDB error
		db, errDB = database.Open(cfg.DatabaseURL)
		if errDB != nil {
			return nil, nil, nil, errDB
		}
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opts)
	}

	hh := &healthhandler.Handlers{Rdb: rdb}
	if db != nil {
		hh.DB = &gormDBPinger{db: db}
	}
	app.Get("/health/json", hh.JSON)

	if db != nil {
		customerService := &custsvc.Service{DB: db}
		loanService := &loansvc.Service{DB: db}

		ch := &custhandler.Handlers{Service: customerService}
		lh := &loanhandler.Handlers{Service: loanService, Customers: customerService}

		app.Post("/register", ch.Register)
		app.Post("/check-eligibility", lh.CheckEligibility)
		app.Post("/create-loan", lh.CreateLoan)
		app.Get("/view-loan/:loan_id", lh.ViewLoan)
		app.Get("/view-loans/:customer_id", lh.ViewCustomerLoans)
	}

	if db != nil && rdb != nil {
		queue := &ingestsvc.Queue{DB: db, Rdb: rdb}
		ih := &ingesthandler.Handlers{
			Queue:            queue,
			CustomerDataFile: cfg.CustomerDataFile,
			LoanDataFile:     cfg.LoanDataFile,
		}
		ig := app.Group("/ingest")
		ig.Post("/customers", ih.IngestCustomers)
		ig.Post("/loans", ih.IngestLoans)
		ig.Post("/all", ih.IngestAll)
		ig.Get("/runs/:run_id", ih.GetRun)
	}

	return app, db, rdb, nil
}

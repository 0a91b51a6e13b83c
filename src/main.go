package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"regexp"
	"strconv"
	"syscall"
	"time"

	"mazza/src/boot"
	"mazza/src/config"
	"mazza/src/controllers"
	"mazza/src/middlewares"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	apiPrefix string = "/api/v1"
)

var idempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_\-:.]{8,128}$`)

var idempotencyKeyValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	key, ok := fl.Field().Interface().(string)
	return ok && idempotencyKeyPattern.MatchString(key)
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		mm := os.Getenv("MAINTENANCE_MODE")
		on, err := strconv.ParseBool(mm)
		if err == nil && on {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "code": "MAINTENANCE"})
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("idempotencykey", idempotencyKeyValidatorFunc)
	}
}

func setupCors(router *gin.Engine, cfg config.Config) {
	if cfg.IsLocal() {
		router.Use(cors.Default())
		return
	}
	cc := cors.DefaultConfig()
	cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "HEAD")
	cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization", "Idempotency-Key")
	cc.ExposeHeaders = append(cc.ExposeHeaders, "Idempotent-Replayed")
	cc.AllowOriginFunc = func(origin string) bool {
		if cfg.AppHost != "" {
			if match, _ := regexp.MatchString(regexp.QuoteMeta(cfg.AppHost), origin); match {
				return true
			}
		}
		match, _ := regexp.MatchString("app:mobile", origin)
		return match
	}
	cc.AllowCredentials = true
	cc.AllowAllOrigins = false
	router.Use(cors.New(cc))
}

// buildRouter mounts the authenticated API on top of the base router.
func buildRouter(cfg config.Config, app *boot.App) *gin.Engine {
	router := setupRouter()
	setupCors(router, cfg)
	registerValidators()
	router = maintenanceModeMiddleware(router)

	api := apiv1Group(router)
	api.Use(middlewares.AuthMiddleware([]byte(cfg.JWTSecret)))
	bookingHandlers(api, controllers.NewBookingsController(app.Bookings, cfg.TempDir))
	sellerHandlers(api, controllers.NewSellerController(app.Bookings))
	return router
}

func initLogger() {
	cwd, _ := os.Getwd()
	logsDir := path.Join(cwd, "logs")
	_ = os.MkdirAll(logsDir, 0o755)
	serverLogs := path.Join(logsDir, "server.log")
	apiLogs := path.Join(logsDir, "api.log")
	gin.ForceConsoleColor()

	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func main() {
	if os.Getenv("API_ENV") == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			log.Printf("No .env loaded: %s\n", err.Error())
		}
	}
	initLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := boot.Init(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %s", err)
	}
	if err := app.InitScheduler(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %s", err)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: buildRouter(cfg, app).Handler(),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %s", err)
		}
	}()
	log.Printf("Listening on :%s\n", cfg.Port)

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %s\n", err.Error())
	}
	app.Shutdown()
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"nulltrace/auth"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// Relay owns the in-memory state of the service. Everything is constructed
// here and injected so tests can build isolated instances.
type Relay struct {
	cfg     Config
	rooms   *RoomRegistry
	tokens  *TokenStore
	limiter *RateLimiter
	idents  *IdentityHasher
	origins map[string]struct{}
	started time.Time
}

func NewRelay(cfg Config) (*Relay, error) {
	idents, err := NewIdentityHasher(cfg.IdentityKey)
	if err != nil {
		return nil, err
	}
	return &Relay{
		cfg:     cfg,
		rooms:   NewRoomRegistry(),
		tokens:  NewTokenStore(cfg.TokenTTL),
		limiter: NewRateLimiter(cfg),
		idents:  idents,
		origins: buildOriginSet(cfg.AllowedOrigins),
		started: time.Now(),
	}, nil
}

func (rl *Relay) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.POST("/api/room-token", rl.HandleRoomToken)
	r.GET("/ws/:room", rl.HandleSocket)

	r.POST("/api/admin/login", auth.HandleAdminLogin)
	r.GET("/api/stats", auth.JwtMiddleware(), rl.HandleStats)

	if rl.cfg.StaticDir != "" {
		r.GET("/", func(c *gin.Context) {
			c.File(filepath.Join(rl.cfg.StaticDir, "index.html"))
		})
		r.Static("/static", rl.cfg.StaticDir)
	} else {
		r.GET("/", func(c *gin.Context) {
			c.JSON(200, gin.H{"ok": true})
		})
	}
}

// HandleRoomToken issues a single-use join token for a room. Cross-origin
// requests are logged but still served; the websocket handshake is where
// origin policy actually rejects.
func (rl *Relay) HandleRoomToken(c *gin.Context) {
	var req TokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request data"})
		return
	}
	if !validRoomID(req.RoomID) {
		c.JSON(400, gin.H{"error": "Invalid room id"})
		return
	}

	if origin := c.GetHeader("Origin"); origin != "" && !originAllowed(c.Request, rl.origins) {
		log.Printf("[SECURITY] Suspicious token request origin=%s", origin)
	}

	token, exp := rl.tokens.Issue(req.RoomID)
	c.JSON(200, TokenResponse{Token: token, Exp: exp.Unix()})
}

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func rateLimitErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.String(429, "Too many requests. Try again in "+time.Until(info.ResetTime).String())
}

func main() {
	_ = godotenv.Load()

	cfg := LoadConfig()
	relay, err := NewRelay(cfg)
	if err != nil {
		log.Fatal("Error initializing relay:", err)
	}

	r := gin.Default()

	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{Rate: time.Second, Limit: cfg.HTTPRateLimit})
	r.Use(ratelimit.RateLimiter(store, &ratelimit.Options{ErrorHandler: rateLimitErrorHandler, KeyFunc: keyFunc}))
	r.Use(cors.Default())
	r.Use(SecurityHeaders(cfg))

	relay.RegisterRoutes(r)

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Printf("Starting relay on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down relay...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("relay forced shutdown: %v", err)
	}
}

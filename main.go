package main

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/caffeinepub/momentum-sub000/api"
	"github.com/caffeinepub/momentum-sub000/domain"
	"github.com/caffeinepub/momentum-sub000/engine"
	"github.com/caffeinepub/momentum-sub000/storage"
)

func main() {
	logger := log.New()
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
		logger.SetLevel(log.DebugLevel)
	}

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		log.Fatal("missing BACKEND_URL")
	}
	userID := os.Getenv("USER_ID")
	if userID == "" {
		log.Fatal("missing USER_ID")
	}
	token := os.Getenv("BACKEND_TOKEN")

	client := storage.NewClient(strings.TrimRight(backendURL, "/"), storage.NewStaticTokenSource(token), nil)

	var backend interface {
		FetchAllTasks(ctx context.Context) ([]domain.Task, error)
		Apply(ctx context.Context, moves []engine.TaskMove) error
	} = client
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		rc := redis.NewClient(redisOptions(redisConn))
		backend = storage.NewCache(client, rc, userID, envDur("CACHE_TTL", 5*time.Minute))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	tasks, err := backend.FetchAllTasks(ctx)
	cancel()
	if err != nil {
		log.Fatalf("initial board fetch: %v", err)
	}
	boards := engine.NewBoardStore(domain.NewBoard(tasks))

	containers := domain.NewContainerSet()
	for _, name := range strings.Split(os.Getenv("CUSTOM_LISTS"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			containers.AddList(name, name)
		}
	}
	for _, name := range strings.Split(os.Getenv("ROUTINE_SECTIONS"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			containers.AddRoutine(name, name)
		}
	}

	notices := api.NewNotices()
	refresher := storage.NewBoardRefresher(backend, logger)
	coord := engine.NewCoordinator(boards, containers, backend, notices, refresher, logger, engine.CoordinatorConfig{
		QueueSize:      envInt("MOVE_QUEUE_SIZE", 64),
		BackendTimeout: envDur("BACKEND_TIMEOUT", 30*time.Second),
	})
	defer coord.Close()

	session := engine.NewSession(boards, coord, logger, engine.DragConfig{
		LongPress: envDur("LONG_PRESS", 500*time.Millisecond),
	})

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentEncoding},
	}))

	api.Register(e, boards, session, coord, containers, notices, logger)

	listenAddr := ":8090"
	if val, ok := os.LookupEnv("LISTEN_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

// redisOptions accepts either a redis URL or the comma-separated
// host,password=...,ssl=true form managed Redis hands out.
func redisOptions(conn string) *redis.Options {
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Fatalf("invalid %s: %q", name, v)
	}
	return n
}

func envDur(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Fatalf("invalid %s: %q", name, v)
	}
	return d
}

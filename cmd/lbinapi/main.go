package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	_ "github.com/joho/godotenv/autoload"

	"github.com/skyban/go-skyban/server"
)

var Commit = func() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}
	return ""
}()

func run() int {
	portOpt := flag.String("port", "", "Port to listen on (defaults to PORT or 8080)")
	debugOpt := flag.Bool("debug", false, "Run gin in debug mode")
	versionOpt := flag.Bool("v", false, "Print version information")
	flag.Parse()

	log.Println("lbinapi version", Commit)
	if *versionOpt {
		return 0
	}

	port := *portOpt
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "8080"
	}

	if !*debugOpt {
		gin.SetMode(gin.ReleaseMode)
	}

	key := os.Getenv("LBIN_KEY")
	if key == "" {
		log.Println("LBIN_KEY is not set, accepting unauthenticated updates")
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           server.NewServer(key).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		log.Println(err)
		return 1
	}

	log.Println("Listening on port", port)
	err = serve(ctx, srv, listener)
	if err != nil {
		log.Println(err)
		return 1
	}

	log.Println("Server stopped")
	return 0
}

// Serve until ctx is done, then return once in-flight requests are drained
func serve(ctx context.Context, srv *http.Server, listener net.Listener) error {
	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- srv.Shutdown(shutdownCtx)
	}()

	err := srv.Serve(listener)
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}

func main() {
	os.Exit(run())
}

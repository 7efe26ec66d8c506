package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"linguabridge-gateway/internal/bootstrap"
	"linguabridge-gateway/internal/config"
	"linguabridge-gateway/internal/server"
	"linguabridge-gateway/internal/tracer"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.Otel)
	defer shutdownTracer(context.Background())

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Println("Background: Starting snapshot consumer...")
		return container.StateConsumer.Consume(gctx)
	})
	if container.LifecycleService != nil {
		g.Go(func() error {
			log.Println("Background: Starting document lifecycle subscriber...")
			if err := container.LifecycleService.Start(gctx); err != nil {
				// Sibling refresh is best effort; the gateway keeps serving without it.
				log.Printf("[WARN] Lifecycle subscriber stopped: %v", err)
			}
			return nil
		})
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)
	g.Go(func() error {
		return srv.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), bootstrap.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		container.Close(shutdownCtx)
		return err
	})

	// 6. Run until a signal or a fatal error
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

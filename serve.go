package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"todo-chat/app/config"
	"todo-chat/app/controllers"
	"todo-chat/app/middleware"
	"todo-chat/app/routes"
	"todo-chat/app/services"
	"todo-chat/app/store"
)

// application is the wired service graph shared by the subcommands.
type application struct {
	store store.Store
	tasks *services.TaskService
	chat  *services.ChatService
}

func (c *cli) open(ctx context.Context) (*application, error) {
	st, err := config.OpenStore(ctx, c.cfg.Store, c.logger)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	tasks := services.NewTaskService(st, c.logger.Named("tasks"))
	chat := services.NewChatService(st, tasks, c.logger.Named("chat"),
		services.WithListLimit(c.cfg.Chat.ListLimit))
	return &application{store: st, tasks: tasks, chat: chat}, nil
}

func (a *application) handler(auth middleware.Authenticator, logger *zap.Logger) http.Handler {
	router := mux.NewRouter()
	routes.RegisterRoutes(router, routes.Controllers{
		Chat:  controllers.NewChatController(a.chat, a.tasks, logger),
		Tasks: controllers.NewTaskController(a.tasks, logger),
		Tools: controllers.NewToolController(a.tasks, logger),
	}, auth, logger)
	return router
}

func newServeCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func (c *cli) serve(ctx context.Context) error {
	// Setup runs to completion even if a signal is already pending.
	app, err := c.open(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	defer app.store.Close()

	if len(c.cfg.Auth.Tokens) == 0 {
		c.logger.Warn("no auth tokens configured, every authenticated route will answer 401")
	}
	srv := &http.Server{
		Addr:         c.cfg.Server.Addr,
		Handler:      app.handler(middleware.StaticTokens(c.cfg.Auth.Tokens), c.logger.Named("http")),
		ReadTimeout:  c.cfg.ReadTimeout(),
		WriteTimeout: c.cfg.WriteTimeout(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.logger.Info("listening", zap.String("addr", srv.Addr), zap.String("store", c.cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownTimeout())
		defer cancel()
		c.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"notesec/internal/chatstore"
	"notesec/internal/config"
	"notesec/internal/container"
	"notesec/internal/resolver"
	"notesec/internal/server"
	"notesec/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the notesec API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			logger := slog.Default()

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			key, err := cfg.ContainerKey()
			if err != nil {
				return err
			}
			codec, err := container.NewCodec(key, logger)
			if err != nil {
				return err
			}
			layout, err := chatstore.NewLayout(cfg.DataRoot, cfg.ConversationsDir)
			if err != nil {
				return err
			}
			messages, err := chatstore.NewMessageStore(codec, layout, chatstore.MessageStoreOptions{
				ReadConcurrency: cfg.Store.ReadConcurrency,
				Logger:          logger,
			})
			if err != nil {
				return err
			}
			attachments, err := chatstore.NewAttachmentStore(codec, layout, logger)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return fmt.Errorf("create db directory: %w", err)
			}
			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			fetchTimeout, err := cfg.FetchTimeout()
			if err != nil {
				return err
			}
			res := resolver.New(resolver.Options{
				FetchTimeout: fetchTimeout,
				MaxBytes:     cfg.Resolver.MaxBytes,
				Notes:        st,
				Logger:       logger,
			})

			chat := server.NewChatService(messages, attachments, res, st, logger)
			logger.Info("conversation root", "path", layout.Root())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(addr, chat, logger).ListenAndServe(ctx)
		},
	}
}

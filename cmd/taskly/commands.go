package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"taskly/internal/bot"
	"taskly/internal/config"
	"taskly/internal/server"
	"taskly/internal/service"
)

func newBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot and the recommendation digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.RequireTelegram(); err != nil {
				return err
			}

			telegramBot, err := bot.New(a.cfg.TelegramToken, a.users, a.tasks, a.settings, a.generator)
			if err != nil {
				return fmt.Errorf("bot: %w", err)
			}

			digest := service.NewDigestService(a.users, a.settingsRepo, a.generator, telegramBot)
			scheduler := service.NewSchedulerService(time.Local)
			if err := scheduleDigest(scheduler, a.cfg, digest); err != nil {
				return fmt.Errorf("schedule digest: %w", err)
			}
			if scheduler.Entries() > 0 {
				scheduler.Start()
				defer scheduler.Stop()
			}

			log.Println("[info] taskly bot started")
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("bot stopped with error: %w", err)
			}
			log.Println("[info] shutdown complete")
			return nil
		},
	}
}

// scheduleDigest prefers a fixed daily time and falls back to the interval.
func scheduleDigest(scheduler *service.SchedulerService, cfg config.Config, digest *service.DigestService) error {
	job := func(ctx context.Context) error {
		sent, err := digest.SendAll(ctx)
		if err != nil {
			return err
		}
		log.Printf("[info] digest delivered to %d users", sent)
		return nil
	}

	switch {
	case cfg.DigestTime != "":
		_, err := scheduler.ScheduleDaily(cfg.DigestTime, "digest", job)
		return err
	case cfg.ReportInterval > 0:
		_, err := scheduler.ScheduleInterval(cfg.ReportInterval, "digest", job)
		return err
	default:
		log.Println("[info] digest disabled")
		return nil
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and backend functions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cfg.RequireJWT(); err != nil {
				return err
			}

			srv := server.New(a.cfg.HTTPAddr, a.cfg.JWTSecret, server.Services{
				Tasks:           a.tasks,
				Settings:        a.settings,
				Users:           a.users,
				Recommendations: a.recRepo,
				Generator:       a.generator,
				Keys:            a.keys,
			})

			var wg sync.WaitGroup
			errChan := make(chan error, 1)
			srv.Start(&wg, errChan)

			select {
			case <-ctx.Done():
			case err := <-errChan:
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			wg.Wait()
			log.Println("[info] shutdown complete")
			return nil
		},
	}
}

func newRecommendCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Regenerate and print the recommendations of one user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			recs, err := a.generator.Regenerate(cmd.Context(), owner)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, rec := range recs {
				fmt.Fprintf(out, "%s %s\n", service.Icon(rec.Type), rec.Content)
				if rec.Reasoning != "" {
					fmt.Fprintf(out, "   %s\n", rec.Reasoning)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "user id to regenerate for")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an API token for a user id",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if err := cfg.RequireJWT(); err != nil {
				return err
			}

			claims := jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(time.Now())}
			if ttl > 0 {
				claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(ttl))
			}
			tok, err := server.IssueToken(cfg.JWTSecret, subject, claims)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "user id the token is issued to")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}

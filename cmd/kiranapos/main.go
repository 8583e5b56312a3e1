// kiranapos is the POS and customer-loyalty backend for small retail stores.
// It serves the dashboard's REST API: authentication with OTP support, the
// multi-step signup flow, customer/product/transaction management, and the
// sale computation engine with reward points and welcome discounts.
//
// Default port: 8081
package main

import (
	"log"
	"os"
	"time"

	"github.com/kirana-labs/kiranapos/internal/api"
	"github.com/kirana-labs/kiranapos/internal/config"
	"github.com/kirana-labs/kiranapos/internal/debug"
	"github.com/kirana-labs/kiranapos/internal/httpd"
	"github.com/kirana-labs/kiranapos/internal/otp"
	"github.com/kirana-labs/kiranapos/internal/signup"
	"github.com/kirana-labs/kiranapos/internal/sms"
	"github.com/kirana-labs/kiranapos/internal/store"
	"github.com/kirana-labs/kiranapos/pkg/kv"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	srv := httpd.New(httpd.Options{
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		LogLevel: cfg.Log.Level,
		Verbose:  cfg.Log.Verbose,
	})

	memStore := store.New()

	sender := &sms.LogSender{Logger: srv.Logger}
	otpEngine := otp.New(
		kv.New[otp.Record]("otp", memStore.Clock),
		sender,
		srv.Logger,
		time.Duration(cfg.OTP.TTLSeconds)*time.Second,
	)

	auth := api.NewAuth(memStore, otpEngine, srv.Logger, cfg.Loyalty.RewardPercent)
	signupSvc := signup.NewService(
		kv.New[signup.Flow]("flow", memStore.Clock),
		otpEngine,
		auth,
		memStore.Clock,
	)

	handler := api.NewHandler(memStore, auth, signupSvc, otpEngine, srv.Logger)
	handler.Routes(srv.Router)

	if cfg.Debug {
		debug.NewHandler(memStore, memStore.Clock).Routes(srv.Router)
		srv.Logger.Warn("debug control surface enabled")
	}

	if cfg.SeedFile != "" {
		data, err := os.ReadFile(cfg.SeedFile)
		if err != nil {
			log.Fatalf("failed to read seed file: %v", err)
		}
		if err := memStore.LoadState(data); err != nil {
			log.Fatalf("failed to load seed data: %v", err)
		}
		srv.Logger.Info("loaded seed data", "file", cfg.SeedFile)
	}

	srv.Logger.Info("kiranapos ready",
		"port", cfg.Server.Port,
		"otp_ttl_seconds", cfg.OTP.TTLSeconds,
		"reward_percentage", cfg.Loyalty.RewardPercent,
	)

	if err := srv.Serve(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/bookhaven/haven/internal/identity"
	"github.com/bookhaven/haven/internal/repositories"
	"github.com/bookhaven/haven/internal/server"
	"github.com/bookhaven/haven/internal/services"
	"github.com/bookhaven/haven/internal/shared"
	"github.com/bookhaven/haven/internal/socket"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	provider := identity.NewRESTProvider(
		config.Identity.BaseURL,
		config.Identity.TokenURL,
		config.Identity.APIKey,
		httpClient,
	)

	var store identity.SessionStore
	var history *repositories.ViewHistoryRepository
	if db, err := shared.NewDatabase(config.Database.Path); err == nil {
		defer db.Close()
		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
		store = repositories.NewSessionStore(repositories.NewSessionRepository(db))
		history = repositories.NewViewHistoryRepository(db)
	} else {
		logger.Warn("local database unavailable, sessions will not persist", "error", err)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     config.Identity.ClientID,
		ClientSecret: config.Identity.ClientSecret,
		RedirectURL:  config.Identity.RedirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     endpoints.Google,
	}

	manager := identity.NewManager(identity.ManagerOpts{
		Provider:    provider,
		Store:       store,
		Flow:        &server.BrowserFlow{},
		OAuthConfig: oauthConfig,
		Logger:      logger,
	})

	catalog := services.NewBooksService(config.API.BaseURL, httpClient, manager)
	images := services.NewImageHost(config.Images.UploadURL, config.Images.APIKey, httpClient)
	broadcast := socket.NewClient(config.API.SocketURL, logger)

	runner := NewRunner(RunnerOpts{
		Config:     config,
		Catalog:    catalog,
		Images:     images,
		Manager:    manager,
		Broadcast:  broadcast,
		History:    history,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "haven",
		Usage:    "Browse and manage the Book Haven catalog from the terminal",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/config"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/database"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/settings"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/users"
	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const app = "linkagectl"

// backend is the persistence the database commands work on.
type backend struct {
	users    users.UserRepository
	settings settings.Repository
	close    func(ctx context.Context) error
}

// openBackend connects to the configured MongoDB. Tests replace it.
var openBackend = func(ctx context.Context) (*backend, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	db := client.Database(cfg.MongoDB.Database)
	return &backend{
		users:    users.NewMongoUserRepository(db.Collection(database.UsersCollection)),
		settings: settings.NewMongoRepository(db.Collection(database.SettingsCollection)),
		close:    client.Disconnect,
	}, nil
}

func withBackend(ctx context.Context, fn func(b *backend) error) error {
	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	if b.close != nil {
		defer func() {
			if err := b.close(context.Background()); err != nil {
				logger.Warnf("close backend: %v", err)
			}
		}()
	}
	return fn(b)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           app,
		Short:         "linkagectl runs Linkage VA Hub maintenance and scoring tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if viper.GetBool("debug") {
				logger.Init("debug")
			}
			logger.UseJSON(viper.GetBool("json"))
		},
	}
	root.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	root.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	_ = viper.BindPFlag("debug", root.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("json", root.PersistentFlags().Lookup("json"))

	root.AddCommand(newDiscCmd(), newSearchCmd(), newSettingsCmd(), newAdminCmd(), newProfileCmd())
	return root
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSONFile(path string, v interface{}) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"youngin-studio/catalog"
	"youngin-studio/handlers/auth"
	"youngin-studio/studio"
)

var logLevel string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "youngin-studio",
		Short:         "Garment design studio server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			logrus.SetFormatter(&logrus.TextFormatter{
				FullTimestamp: true,
			})
			auth.InitAuth()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "loglevel", "info", "The log level (debug, info, warn, error).")

	root.AddCommand(newServeCmd(), newCompositeCmd(), newTokenCmd())
	return root
}

// loadCatalog reads GARMENT_CATALOG when set; ASSETS_DIR overrides the asset root.
func loadCatalog() (*catalog.Catalog, error) {
	c := catalog.Default()
	if path := os.Getenv("GARMENT_CATALOG"); path != "" {
		var err error
		if c, err = catalog.Load(path); err != nil {
			return nil, err
		}
	}
	if dir := os.Getenv("ASSETS_DIR"); dir != "" {
		c.Root = dir
	}
	return c, nil
}

// canvasSize reads CANVAS_WIDTH and CANVAS_HEIGHT, falling back to the studio defaults.
func canvasSize() (int, int) {
	return envInt("CANVAS_WIDTH", studio.DefaultCanvasWidth), envInt("CANVAS_HEIGHT", studio.DefaultCanvasHeight)
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logrus.WithField(key, v).Warn("Ignoring invalid value")
		return fallback
	}
	return n
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	if err := newRootCmd().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

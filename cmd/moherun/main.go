package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/abrezinsky/moherun/internal/app"
	"github.com/abrezinsky/moherun/internal/browser"
	"github.com/abrezinsky/moherun/internal/config"
	"github.com/abrezinsky/moherun/internal/logger"
	"github.com/abrezinsky/moherun/web"
)

var (
	version = "dev"
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:    "moherun",
		Usage:   "Run to Mohe challenge dashboard and lucky draw",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "moherun.yaml",
				Usage:   "YAML config file (missing file is fine)",
			},
			&cli.StringFlag{
				Name:  "env",
				Value: ".env",
				Usage: "dotenv file loaded before MOHERUN_* overrides",
			},
			&cli.StringFlag{
				Name:  "workbook",
				Usage: "read the spreadsheet from a local .xlsx instead of the published sheet",
			},
			&cli.StringFlag{
				Name:  "loglevel",
				Usage: "log level: debug, info, warn, error (overrides config)",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			leaderboardCommand(),
			drawStateCommand(),
			demoCommand(),
		},
		DefaultCommand: "serve",
	}
}

// loadConfig resolves the config and builds the logger the rest of the command uses
func loadConfig(c *cli.Context) (*config.Config, *logger.SlogLogger, error) {
	cfg, err := config.Load(c.String("config"), c.String("env"))
	if err != nil {
		return nil, nil, err
	}
	if wb := c.String("workbook"); wb != "" {
		cfg.Sheets.WorkbookPath = wb
	}
	if lvl := c.String("loglevel"); lvl != "" {
		cfg.Server.LogLevel = lvl
	}

	appLog := logger.NewWithOptions(logger.Options{
		Level:  logger.ParseLevel(cfg.Server.LogLevel),
		Format: cfg.Server.LogFormat,
		Output: c.App.ErrWriter,
	})
	return cfg, appLog, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the dashboard server",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "HTTP server port (overrides config)"},
			&cli.StringFlag{Name: "db", Usage: "SQLite database path (overrides config)"},
			&cli.BoolFlag{Name: "noanimate", Usage: "show the logo only, skip the animation"},
			&cli.BoolFlag{Name: "nokeyboard", Usage: "disable keyboard shortcuts"},
		},
		Action: func(c *cli.Context) error {
			cfg, appLog, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.IsSet("port") {
				cfg.Server.Port = c.Int("port")
			}
			if c.IsSet("db") {
				cfg.Server.DBPath = c.String("db")
			}

			showStartupAnimation(c.Bool("noanimate"))

			a, err := app.New(appLog, cfg, app.NewSheetsClient(cfg, appLog), web.GetTemplatesFS(), web.GetStaticFS())
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !c.Bool("nokeyboard") {
				printKeyboardHelp()
				go listenForKeyboard(ctx, keyboardActions{
					dashboardURL: browser.LocalURL(cfg.ListenAddr(), "/"),
					log:          appLog,
					refresh:      a.RefreshNow,
					quit:         stop,
				})
			} else {
				fmt.Printf("\n%sKeyboard shortcuts disabled (use --nokeyboard=false to enable)%s\n\n", yellow, reset)
			}

			return a.Run(ctx, cfg.ListenAddr())
		},
	}
}

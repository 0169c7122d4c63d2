package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/TheOksigen/autopart-backend/internal/config"
	"github.com/TheOksigen/autopart-backend/internal/events"
	"github.com/TheOksigen/autopart-backend/internal/importer"
	"github.com/TheOksigen/autopart-backend/internal/models"
	"github.com/TheOksigen/autopart-backend/internal/repository"
	"github.com/TheOksigen/autopart-backend/internal/services"
)

var logger = logrus.New()

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.WithError(err).Fatal("importer failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "importer",
		Usage: "Load product files into the catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Run a JSON, CSV or XLSX product file through bulk ingestion",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the product file",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Only validate and coerce records, nothing is stored",
					},
					&cli.BoolFlag{
						Name:  "async",
						Usage: "Publish the records to NATS for the service to ingest",
					},
					&cli.StringFlag{
						Name:    "rules",
						Usage:   "Path to a coercion rules YAML file",
						EnvVars: []string{"COERCION_CONFIG"},
					},
				},
			},
			{
				Name:   "create-admin",
				Usage:  "Create an admin account, or promote the existing account with that email",
				Action: createAdminCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Admin email address",
						EnvVars:  []string{"ADMIN_EMAIL"},
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Usage:    "Password for a new account (an existing account keeps its password)",
						EnvVars:  []string{"ADMIN_PASSWORD"},
						Required: true,
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name",
						Value: "Administrator",
					},
				},
			},
			{
				Name:   "template",
				Usage:  "Write the product import template",
				Action: templateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Template format (csv, xlsx)",
						Value: "csv",
					},
					&cli.StringFlag{
						Name:     "out",
						Aliases:  []string{"o"},
						Usage:    "Output file path",
						Required: true,
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level %q", c.String("log-level"))
	}
	logger.SetLevel(level)
	logger.SetOutput(c.App.ErrWriter)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return nil
}

// dryRunResult is the per-record outcome of a dry run
type dryRunResult struct {
	Index   int      `json:"index"`
	OemNo   string   `json:"OemNo"`
	Valid   bool     `json:"valid"`
	Message string   `json:"message,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

func ingestCommand(c *cli.Context) error {
	records, err := readFile(c.String("file"))
	if err != nil {
		return err
	}

	rules := config.DefaultCoercionRules()
	if path := c.String("rules"); path != "" {
		if rules, err = config.LoadCoercionRules(path); err != nil {
			return err
		}
	}

	switch {
	case c.Bool("dry-run"):
		return writeJSON(c.App.Writer, dryRun(services.NewRecordParser(rules), records))
	case c.Bool("async"):
		return publishRecords(c.Context, records, c.App.Writer)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}

	svc, err := services.NewBulkIngestionService(
		repository.NewManufacturerRepository(db, nil),
		repository.NewProductsRepository(db, nil),
		services.WithCoercionRules(rules),
		services.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	report, err := svc.Ingest(c.Context, records)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, report)
}

func dryRun(parser *services.RecordParser, records []models.RawProductRecord) []dryRunResult {
	results := make([]dryRunResult, len(records))
	for i, raw := range records {
		result := dryRunResult{Index: i, OemNo: services.Stringify(raw[models.FieldOemNo]), Valid: true}
		if result.OemNo == "" {
			result.OemNo = services.UnknownOemNo
		}

		if _, err := parser.Parse(raw); err != nil {
			result.Valid = false
			result.Message = err.Error()

			var missing *services.MissingFieldsError
			var invalid services.FieldErrors
			switch {
			case errors.As(err, &missing):
				result.Fields = missing.Fields
			case errors.As(err, &invalid):
				result.Fields = invalid.Fields()
			}
		}
		results[i] = result
	}
	return results
}

func publishRecords(ctx context.Context, records []models.RawProductRecord, out io.Writer) error {
	_ = godotenv.Load()
	cfg := config.Load()
	if cfg.NATSURL == "" {
		return errors.New("NATS_URL must be set for --async")
	}

	nc, err := events.Connect(cfg.NATSURL, "autopart-importer", logger)
	if err != nil {
		return err
	}
	publisher, err := events.NewPublisher(nc, logger)
	if err != nil {
		nc.Close()
		return err
	}
	defer publisher.Close()

	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	requestID := uuid.NewString()
	if err := publisher.PublishBulkRequested(ctx, requestID, body); err != nil {
		return err
	}
	return writeJSON(out, map[string]interface{}{
		"requestId": requestID,
		"records":   len(records),
		"subject":   events.SubjectBulkRequested,
	})
}

// adminAccounts is the part of the user repository create-admin needs
type adminAccounts interface {
	Create(ctx context.Context, email, name, password, role string) (*models.User, error)
	SetRole(ctx context.Context, email, role string) (*models.User, error)
}

const minPasswordLength = 6

func createAdminCommand(c *cli.Context) error {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}

	user, created, err := ensureAdmin(c.Context, repository.NewUserRepository(db),
		c.String("email"), c.String("name"), c.String("password"))
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, map[string]interface{}{
		"id":      user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"created": created,
	})
}

// ensureAdmin creates an admin account, or promotes the account already registered under email
func ensureAdmin(ctx context.Context, users adminAccounts, email, name, password string) (*models.User, bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, false, errors.New("email is required")
	}
	if len(password) < minPasswordLength {
		return nil, false, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	user, err := users.Create(ctx, email, name, password, models.RoleAdmin)
	if err == nil {
		logger.WithField("email", user.Email).Info("Admin account created")
		return user, true, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, false, err
	}

	user, err = users.SetRole(ctx, email, models.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	logger.WithField("email", user.Email).Info("Existing account promoted to admin")
	return user, false, nil
}

func templateCommand(c *cli.Context) error {
	f, err := os.Create(c.String("out"))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", c.String("out"), err)
	}
	defer f.Close()

	switch models.ImportFormat(strings.ToLower(c.String("format"))) {
	case models.ImportFormatCSV:
		return importer.WriteCSVTemplate(f)
	case models.ImportFormatXLSX:
		return importer.WriteXLSXTemplate(f)
	default:
		return fmt.Errorf("%w: %s", importer.ErrUnsupportedFormat, c.String("format"))
	}
}

func readFile(path string) ([]models.RawProductRecord, error) {
	format, err := importer.FormatFromFilename(filepath.Base(path))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return importer.ReadRecords(f, format)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

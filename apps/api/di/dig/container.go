package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/edupilot/apps/api/echo"
	"github.com/trezcool/edupilot/core"
	"github.com/trezcool/edupilot/core/analytics"
	"github.com/trezcool/edupilot/core/chat"
	"github.com/trezcool/edupilot/core/plan"
	"github.com/trezcool/edupilot/core/student"
	"github.com/trezcool/edupilot/core/user"
	emailsvc "github.com/trezcool/edupilot/services/email"
	funifiersvc "github.com/trezcool/edupilot/services/funifier"
	logsvc "github.com/trezcool/edupilot/services/logger"
	oraclesvc "github.com/trezcool/edupilot/services/oracle"
	"github.com/trezcool/edupilot/storage/database"
	inmemdb "github.com/trezcool/edupilot/storage/database/inmem"
	sqlxrepos "github.com/trezcool/edupilot/storage/database/sqlx"
)

const noOracleAnswer = "O assistente de IA não está configurado (GEMINI_APIKEY ausente)."

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// Stores are the repositories selected by conf.RosterStore and conf.PlanStore.
	Stores struct {
		dig.Out

		Roster    student.Repository
		Registrar user.Registrar
		Auth      user.Authenticator
		Plans     plan.Repository
		DB        *sqlx.DB // nil unless plans are kept in postgres
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDB(conf *core.Config, logger core.Logger) *sqlx.DB {
	setUp := func(ctx context.Context) (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(ctx, db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp(context.Background())
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newStores(conf *core.Config, logger core.Logger, dbLoggerParam DBLoggerParam) Stores {
	var (
		stores Stores
		client *funifiersvc.Client
		mem    *inmemdb.DB
	)
	funifier := func() *funifiersvc.Client {
		if client == nil {
			client = funifiersvc.NewClient(conf, logger)
		}
		return client
	}
	memory := func() *inmemdb.DB {
		if mem == nil {
			mem = inmemdb.Open()
		}
		return mem
	}

	switch conf.RosterStore {
	case "memory":
		players := inmemdb.NewPlayerRepository(memory())
		stores.Roster, stores.Registrar, stores.Auth = players, players, players
	default:
		players := funifiersvc.NewPlayerRepository(funifier())
		stores.Roster, stores.Registrar, stores.Auth = players, players, funifier()
	}

	switch conf.PlanStore {
	case "memory":
		stores.Plans = inmemdb.NewPlanRepository(memory())
	case "postgres":
		stores.DB = newDB(conf, dbLoggerParam.Logger)
		stores.Plans = sqlxrepos.NewPlanRepository(stores.DB)
	default:
		stores.Plans = funifiersvc.NewPlanRepository(funifier())
	}

	logger.Info(fmt.Sprintf("stores: roster=%s plans=%s", conf.RosterStore, conf.PlanStore))
	return stores
}

// newOracle falls back to a fixed answer when no Gemini key is configured, so that the
// rest of the API stays usable.
func newOracle(conf *core.Config, logger core.Logger) (core.TextOracle, error) {
	if conf.Gemini.APIKey == "" {
		logger.Warn("gemini api key is not set: the assistant answers with a fixed message")
		return oraclesvc.NewScripted().On("", noOracleAnswer), nil
	}
	return oraclesvc.NewGemini(context.Background(), conf, logger)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridAPIKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newAnalyticsService(
	conf *core.Config,
	students *student.Service,
	plans *plan.Service,
	oracle core.TextOracle,
	mailSvc core.EmailService,
	logger core.Logger,
) *analytics.Service {
	return analytics.NewService(students, plans, oracle, mailSvc, logger, conf.NotifyByEmail)
}

func newChatService(
	students *student.Service,
	plans *plan.Service,
	analyses *analytics.Service,
	oracle core.TextOracle,
	logger core.Logger,
) *chat.Service {
	return chat.NewService(students, plans, analyses, oracle, logger)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStores))
	must(c.Provide(newOracle))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(plan.NewService))
	must(c.Provide(newAnalyticsService))
	must(c.Provide(newChatService))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}

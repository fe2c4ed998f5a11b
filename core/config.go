package core

import (
	"fmt"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	serverConfig struct {
		Address                   string
		DebugHost                 string
		Host                      string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	databaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	funifierConfig struct {
		BaseURL   string
		APIKey    string
		BasicAuth string
		Timeout   time.Duration
	}

	geminiConfig struct {
		APIKey string
		Model  string
	}

	Config struct {
		AppName          string
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SessionFile      string

		// PlanStore is one of "funifier", "postgres" or "memory".
		PlanStore string
		// RosterStore is one of "funifier" or "memory".
		RosterStore string
		// NotifyByEmail sends the analysis digest to the teacher after each analysis.
		NotifyByEmail bool

		Server   serverConfig
		Database databaseConfig
		Funifier funifierConfig
		Gemini   geminiConfig

		RollbarToken   string
		SendgridAPIKey string
	}
)

func (c databaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` and the environment.
// Environment variables are prefixed with the upper-cased env name, eg. `DEV_DATABASE_HOST`.
func NewConfig() *Config {
	conf, err := loadConfig(os.Getenv("ENV"))
	if err != nil {
		panic(err)
	}
	return conf
}

func loadConfig(env string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// DEV (local; default), TEST, QA, PROD
	env = strings.ToUpper(CleanString(env))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}
	v.AutomaticEnv()

	fromEmail, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing defaultFromEmail")
	}

	conf := &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: *fromEmail,
		SessionFile:      v.GetString("sessionFile"),
		PlanStore:        strings.ToLower(v.GetString("planStore")),
		RosterStore:      strings.ToLower(v.GetString("rosterStore")),
		NotifyByEmail:    v.GetBool("notifyByEmail"),
		Server: serverConfig{
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			Host:                      v.GetString("server.host"),
			ReadTimeout:               v.GetDuration("server.readTimeout"),
			WriteTimeout:              v.GetDuration("server.writeTimeout"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: databaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Funifier: funifierConfig{
			BaseURL:   strings.TrimSuffix(v.GetString("funifier.baseURL"), "/"),
			APIKey:    v.GetString("funifier.apiKey"),
			BasicAuth: v.GetString("funifier.basicAuth"),
			Timeout:   v.GetDuration("funifier.timeout"),
		},
		Gemini: geminiConfig{
			APIKey: v.GetString("gemini.apiKey"),
			Model:  v.GetString("gemini.model"),
		},
		RollbarToken:   v.GetString("rollbarToken"),
		SendgridAPIKey: v.GetString("sendgridApiKey"),
	}

	switch conf.PlanStore {
	case "funifier", "postgres", "memory":
	default:
		return nil, fmt.Errorf("unknown planStore %q", conf.PlanStore)
	}
	switch conf.RosterStore {
	case "funifier", "memory":
	default:
		return nil, fmt.Errorf("unknown rosterStore %q", conf.RosterStore)
	}
	return conf, nil
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "EduPilot")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "k1v9-zt)aq$+3b=dz&uoxh2(h!e)#*c6(#rg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("defaultFromEmail", "EduPilot <noreply@localhost>")
	v.SetDefault("sessionFile", filepath.Join(os.TempDir(), "edupilot-session.json"))
	v.SetDefault("planStore", "funifier")
	v.SetDefault("rosterStore", "funifier")
	v.SetDefault("notifyByEmail", false)

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 3*time.Minute) // plan generation is slow
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 14*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "edupilot")
	v.SetDefault("database.user", "edupilot")
	v.SetDefault("database.password", "edupilot")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("funifier.baseURL", "https://service2.funifier.com/v3")
	v.SetDefault("funifier.apiKey", "")
	v.SetDefault("funifier.basicAuth", "")
	v.SetDefault("funifier.timeout", 30*time.Second)

	v.SetDefault("gemini.apiKey", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")

	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
}

package buildCFG

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"

	"eventtracker/internal/mailer"
)

type ServerConfig struct {
	Port     string
	Timezone *time.Location
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

type AuthConfig struct {
	Secret string
	Issuer string
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		log.Warn().Msg("server.port is not set, using 8080")
		port = "8080"
	}

	loc := time.UTC
	if name := cfg.GetString("server.timezone"); name != "" {
		l, err := time.LoadLocation(name)
		if err != nil {
			log.Warn().Err(err).Msgf("unknown timezone %q, using UTC", name)
		} else {
			loc = l
		}
	}
	return ServerConfig{Port: port, Timezone: loc}
}

// BuildDBConfig returns an empty master DSN when no database is configured;
// the caller then falls back to the in-memory repository.
func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	master := cfg.GetString("database.master")
	if master == "" {
		log.Warn().Msg("database.master is not set")
		return "", nil, nil, nil
	}

	// database.slaves is a comma separated DSN list.
	var slaves []string
	for _, dsn := range strings.Split(cfg.GetString("database.slaves"), ",") {
		if dsn = strings.TrimSpace(dsn); dsn != "" {
			slaves = append(slaves, dsn)
		}
	}

	lifetime := time.Duration(0)
	if raw := cfg.GetString("database.conn_max_lifetime"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return "", nil, nil, errors.New("database.conn_max_lifetime: " + err.Error())
		}
		lifetime = d
	}

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("database.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: lifetime,
	}
	return master, slaves, opts, nil
}

// BuildRabbitConfig reports ok=false when no broker URL is configured.
func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (RabbitConfig, bool, error) {
	rc := RabbitConfig{
		Url:      cfg.GetString("rabbitmq.url"),
		Exchange: cfg.GetString("rabbitmq.exchange"),
		Queue:    cfg.GetString("rabbitmq.queue"),
	}
	if rc.Url == "" {
		log.Info().Msg("rabbitmq.url is not set, mirroring in-process")
		return RabbitConfig{}, false, nil
	}
	if rc.Exchange == "" || rc.Queue == "" {
		return RabbitConfig{}, false, errors.New("rabbitmq.exchange and rabbitmq.queue are required")
	}
	return rc, true, nil
}

func BuildAuthConfig(cfg *config.Config, log *zerolog.Logger) (AuthConfig, error) {
	ac := AuthConfig{
		Secret: cfg.GetString("auth.secret"),
		Issuer: cfg.GetString("auth.issuer"),
	}
	if ac.Secret == "" {
		return AuthConfig{}, errors.New("auth.secret is required")
	}
	if len(ac.Secret) < 32 {
		log.Warn().Msg("auth.secret is shorter than 32 bytes")
	}
	return ac, nil
}

// BuildMailConfig reports ok=false when no SMTP host is configured.
func BuildMailConfig(cfg *config.Config, log *zerolog.Logger) (mailer.Config, bool) {
	mc := mailer.Config{
		Host:     cfg.GetString("mail.host"),
		Port:     cfg.GetInt("mail.port"),
		From:     cfg.GetString("mail.from"),
		Password: cfg.GetString("mail.password"),
	}
	if mc.Host == "" {
		log.Info().Msg("mail.host is not set, registration e-mails disabled")
		return mailer.Config{}, false
	}
	if mc.Port == 0 {
		mc.Port = 587
	}
	return mc, true
}

package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"time"
)

// DefaultCORSOrigin is the static site allowed to call the API from a browser.
const DefaultCORSOrigin = "https://stfrdywpuiprdcac.z9.web.core.windows.net"

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  A Config is built once at startup and never
// mutated afterwards; components receive the pieces they need by value.
type Config struct {
	Env         string // application environment (e.g. "Development", "Production")
	Port        string // HTTP port to listen on
	ServiceName string // name reported by health endpoints
	Region      string // deployment region reported by health endpoints

	DBUser  string        // database username
	DBPass  string        // database password (optional, may come from the secret store)
	DBHost  string        // database host address
	DBPort  string        // database port number
	DBName  string        // database name
	DBTable string        // diagram table name
	DBTLS   string        // go-sql-driver tls parameter ("", "true", "skip-verify", "preferred")
	DBDial  time.Duration // connect timeout

	JWTSecret  string // HS256 secret; empty disables bearer auth on diagram routes
	CORSOrigin string // allowed browser origin

	Secrets SecretsConfig
	Health  HealthConfig
	Events  EventsConfig
	Log     LogConfig
}

// SecretsConfig selects the secret/key store backing the health probes.
type SecretsConfig struct {
	Provider   string // "env" (default) or "aws"
	AWSRegion  string // region for Secrets Manager and KMS
	VaultURL   string // informational label for the store, echoed in health payloads
	EnvPrefix  string // prefix for env-backed secrets
	KeysPrefix string // prefix for env-backed keys
}

// HealthConfig tunes the diagnostic endpoints.
type HealthConfig struct {
	MountPath    string        // directory holding health.txt and the journal
	ProbeTimeout time.Duration // upper bound for one aggregator invocation
	Parallel     bool          // run independent probes concurrently
	SampleRows   int           // rows returned by the database sample read
}

// EventsConfig controls diagram lifecycle events.
type EventsConfig struct {
	RabbitURL   string // empty disables publishing
	Queue       string // queue receiving diagram events
	RunConsumer bool   // start the in-process audit consumer
	LogDir      string // directory for the consumer's audit file
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // text | json
	File   string // optional rotating log file
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:         envStr("AZURE_FUNCTIONS_ENVIRONMENT", envStr("APP_ENV", "Development")),
		Port:        envStr("APP_PORT", "8080"),
		ServiceName: envStr("SERVICE_NAME", "Friday-APIC"),
		Region:      envStr("SERVICE_REGION", "canadacentral-01"),

		DBUser:  must("DB_USER"),
		DBPass:  os.Getenv("DB_PASS"), // empty allowed
		DBHost:  must("DB_HOST"),
		DBPort:  envStr("DB_PORT", "3306"),
		DBName:  must("DB_NAME"),
		DBTable: envStr("DB_TABLE", "t_diagram"),
		DBTLS:   os.Getenv("DB_TLS"),
		DBDial:  envDur("DB_DIAL_TIMEOUT", 5*time.Second),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		CORSOrigin: envStr("CORS_ALLOW_ORIGIN", DefaultCORSOrigin),

		Secrets: SecretsConfig{
			Provider:   envStr("SECRETS_PROVIDER", "env"),
			AWSRegion:  os.Getenv("AWS_REGION"),
			VaultURL:   envStr("KEY_VAULT_URL", "env://"),
			EnvPrefix:  envStr("SECRETS_ENV_PREFIX", "DIAGRAM_SECRET_"),
			KeysPrefix: envStr("KEYS_ENV_PREFIX", "DIAGRAM_KEY_"),
		},
		Health: HealthConfig{
			MountPath:    envStr("HEALTH_MOUNT_PATH", "/func1"),
			ProbeTimeout: envDur("HEALTH_PROBE_TIMEOUT", 10*time.Second),
			Parallel:     envBool("HEALTH_PARALLEL", true),
			SampleRows:   envInt("HEALTH_SAMPLE_ROWS", 1),
		},
		Events: EventsConfig{
			RabbitURL:   envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
			Queue:       envStr("EVENTS_QUEUE", "diagram.events"),
			RunConsumer: envBool("EVENTS_CONSUMER", false),
			LogDir:      envStr("EVENTS_LOG_DIR", "logs"),
		},
		Log: LogConfig{
			Level:  envStr("LOG_LEVEL", "info"),
			Format: envStr("LOG_FORMAT", "text"),
			File:   os.Getenv("LOG_FILE"),
		},
	}
}

// AuthEnabled reports whether diagram routes require a bearer token.
func (c Config) AuthEnabled() bool { return c.JWTSecret != "" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

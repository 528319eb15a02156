package config

// EnvPrefix is passed to envconfig; variables already carry the full
// PERKGATE_ prefix in their tags so the processing prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "PERKGATE_DB_DSN"
	EnvDBHost = "PERKGATE_DB_HOST"
	EnvDBUser = "PERKGATE_DB_USER"
	EnvDBName = "PERKGATE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

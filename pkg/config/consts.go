package config

// EnvPrefix is the envconfig prefix for every variable this service reads.
const EnvPrefix = "LUNERA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "LUNERA_DB_DSN"
	EnvDBHost = "LUNERA_DB_HOST"
	EnvDBUser = "LUNERA_DB_USER"
	EnvDBName = "LUNERA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

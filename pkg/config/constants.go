package config

// EnvPrefix is passed to envconfig; individual fields carry fully-qualified names.
const EnvPrefix = "coursemint"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvDBDSN  = "COURSEMINT_DB_DSN"
	EnvDBHost = "COURSEMINT_DB_HOST"
	EnvDBUser = "COURSEMINT_DB_USER"
	EnvDBName = "COURSEMINT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

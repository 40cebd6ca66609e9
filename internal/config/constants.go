package config

// Default paths and endpoints
const (
	// DefaultDatabasePath is the default path for the local application database
	// (persisted token, web sessions).
	DefaultDatabasePath = "./bookclub.db"

	// DefaultAPIURL is the backend REST base URL used when NEXT_PUBLIC_API_URL is unset.
	DefaultAPIURL = "http://localhost:5000/api"

	// DefaultBackendURL is the asset base URL used when NEXT_PUBLIC_BACKEND_URL is unset.
	DefaultBackendURL = "http://localhost:5000"
)

// Environment names recognised by NEXT_PUBLIC_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

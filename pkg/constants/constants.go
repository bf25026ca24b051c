package constants

type ContextKey string

const (
	DBKey        ContextKey = "db"
	TxKey        ContextKey = "tx"
	ParamsKey    ContextKey = "params"
	LoggerKey    ContextKey = "logger"
	RequestStart ContextKey = "request_start"
)

const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
)

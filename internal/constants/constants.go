package constants

import "time"

const (
	RequestTimeout  = 30 * time.Second
	DatabaseTimeout = 5 * time.Second
	ClientTimeout   = 10 * time.Second
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 4
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBusyTimeoutMS   = 1000
)

const (
	// games whose meta.createdAt is older than this are dropped by the document store
	RetentionWindow = 365 * 24 * time.Hour
	MaxIDSequence   = 9999
	MaxBodyBytes    = 1 << 20
)

const (
	ShutdownTimeout = 5 * time.Second
)

// ISOMillis is the stored timestamp layout (UTC, millisecond precision).
const ISOMillis = "2006-01-02T15:04:05.000Z"

package redisx

import "time"

const (
	// Login session: session:{token} -> JSON session (credentials + cached user)
	KeySession = "session:%s"

	// Dedup event processing: dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLSession = 12 * time.Hour
	TTLDedup   = 48 * time.Hour
)

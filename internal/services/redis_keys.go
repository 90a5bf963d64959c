package services

import "time"

const (
	KeyState      = "quest:state:%s"
	KeyCiphertext = "quest:ct:%x"
	KeyChallenge  = "quest:challenge:%x"
	KeyRateLimit  = "ratelimit:%s:%s"

	TTLChallenge = 5 * time.Minute

	rateWindow = time.Minute

	DefaultRateLimitJoin  = 10 // Max 10 joins per minute
	DefaultRateLimitClaim = 30 // Max 30 claims per minute
	DefaultRateLimitLogin = 20 // Max 20 logins per minute
)

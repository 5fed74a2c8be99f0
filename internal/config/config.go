package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr          string
	DBDSN             string
	JWTIssuer         string
	JWTSecret         string
	InternalTokenHash string
	WebSocketOrigin   string
	TiersFile         string
	MonitorInterval   time.Duration
	MonitorJitter     time.Duration
	ReconcileEpsilon  string
	MigrateOnStart    bool
}

func Load() (Config, error) {
	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	c.DBDSN = os.Getenv("DB_DSN")
	if c.DBDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	c.JWTIssuer = os.Getenv("JWT_ISSUER")
	if c.JWTIssuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	c.JWTSecret = os.Getenv("JWT_SECRET")
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	c.InternalTokenHash = os.Getenv("INTERNAL_TOKEN_HASH")
	if c.InternalTokenHash == "" {
		missing = append(missing, "INTERNAL_TOKEN_HASH")
	}
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	if c.WebSocketOrigin == "" {
		missing = append(missing, "WS_ORIGIN")
	}
	c.TiersFile = os.Getenv("TIERS_FILE")
	interval := strings.TrimSpace(os.Getenv("MONITOR_INTERVAL"))
	if interval == "" {
		c.MonitorInterval = 2 * time.Second
	} else {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return c, errors.New("invalid MONITOR_INTERVAL")
		}
		if d <= 0 {
			return c, errors.New("MONITOR_INTERVAL must be positive")
		}
		c.MonitorInterval = d
	}
	jitter := strings.TrimSpace(os.Getenv("MONITOR_JITTER"))
	if jitter == "" {
		c.MonitorJitter = 250 * time.Millisecond
	} else {
		d, err := time.ParseDuration(jitter)
		if err != nil || d < 0 {
			return c, errors.New("invalid MONITOR_JITTER")
		}
		c.MonitorJitter = d
	}
	c.ReconcileEpsilon = os.Getenv("RECONCILE_EPSILON")
	if c.ReconcileEpsilon == "" {
		c.ReconcileEpsilon = "0.01"
	}
	migrate := os.Getenv("MIGRATE_ON_START")
	if migrate == "" {
		c.MigrateOnStart = true
	} else {
		b, err := strconv.ParseBool(migrate)
		if err != nil {
			return c, errors.New("invalid MIGRATE_ON_START")
		}
		c.MigrateOnStart = b
	}
	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}

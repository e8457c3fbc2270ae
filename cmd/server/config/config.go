// Package config holds the service configuration tree loaded by go-config
// from config files and environment variables.
package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// BaseConfig is the root configuration object.
type BaseConfig struct {
	App         *AppConfig         `koanf:"app" json:"app"`
	Auth        *AuthConfig        `koanf:"auth" json:"auth"`
	Persistence *PersistenceConfig `koanf:"persistence" json:"persistence"`
	Cache       *CacheConfig       `koanf:"cache" json:"cache"`
}

func (c *BaseConfig) GetApp() *AppConfig {
	if c.App == nil {
		c.App = &AppConfig{}
	}
	return c.App
}

func (c *BaseConfig) GetAuth() *AuthConfig {
	if c.Auth == nil {
		c.Auth = &AuthConfig{}
	}
	return c.Auth
}

func (c *BaseConfig) GetPersistence() *PersistenceConfig {
	if c.Persistence == nil {
		c.Persistence = &PersistenceConfig{}
	}
	return c.Persistence
}

func (c *BaseConfig) GetCache() *CacheConfig {
	if c.Cache == nil {
		c.Cache = &CacheConfig{}
	}
	return c.Cache
}

// Validate checks the settings the service cannot start without.
func (c *BaseConfig) Validate() error {
	return validation.Errors{
		"auth": c.GetAuth().Validate(),
	}.Filter()
}

// AppConfig covers the HTTP listener and service identity.
type AppConfig struct {
	Name    string `koanf:"name" json:"name"`
	Version string `koanf:"version" json:"version"`
	Address string `koanf:"address" json:"address"`
}

func (c *AppConfig) GetName() string {
	if c.Name == "" {
		return "go-users"
	}
	return c.Name
}

func (c *AppConfig) GetVersion() string {
	if c.Version == "" {
		return "dev"
	}
	return c.Version
}

func (c *AppConfig) GetAddress() string {
	if c.Address == "" {
		return ":8080"
	}
	return c.Address
}

// AuthConfig implements users.Config.
type AuthConfig struct {
	SigningKey            string `koanf:"signing_key" json:"signing_key"`
	TokenExpiration       int    `koanf:"token_expiration" json:"token_expiration"`
	TokenLookup           string `koanf:"token_lookup" json:"token_lookup"`
	AuthScheme            string `koanf:"auth_scheme" json:"auth_scheme"`
	ContextKey            string `koanf:"context_key" json:"context_key"`
	AdminUsername         string `koanf:"admin_username" json:"admin_username"`
	AdminPassword         string `koanf:"admin_password" json:"admin_password"`
	CacheTTL              int    `koanf:"cache_ttl" json:"cache_ttl"`
	BootstrapRetrySeconds int    `koanf:"bootstrap_retry_seconds" json:"bootstrap_retry_seconds"`
}

func (c *AuthConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SigningKey, validation.Required),
		validation.Field(&c.AdminUsername, validation.Required),
		validation.Field(&c.AdminPassword, validation.Required),
	)
}

func (c *AuthConfig) GetSigningKey() string {
	return c.SigningKey
}

// GetTokenExpiration returns the token validity window in seconds. Zero
// means tokens never expire by age.
func (c *AuthConfig) GetTokenExpiration() int {
	return c.TokenExpiration
}

func (c *AuthConfig) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return "header:Authorization,cookie:jwt,query:token"
	}
	return c.TokenLookup
}

func (c *AuthConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c *AuthConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

func (c *AuthConfig) GetAdminUsername() string {
	return c.AdminUsername
}

func (c *AuthConfig) GetAdminPassword() string {
	return c.AdminPassword
}

func (c *AuthConfig) GetCacheTTL() time.Duration {
	if c.CacheTTL <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.CacheTTL) * time.Second
}

func (c *AuthConfig) GetBootstrapRetryInterval() time.Duration {
	if c.BootstrapRetrySeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.BootstrapRetrySeconds) * time.Second
}

// PersistenceConfig feeds go-persistence-bun.
type PersistenceConfig struct {
	Debug bool   `koanf:"debug" json:"debug"`
	DSN   string `koanf:"dsn" json:"dsn"`
}

func (c *PersistenceConfig) GetDebug() bool {
	return c.Debug
}

func (c *PersistenceConfig) GetDSN() string {
	if c.DSN == "" {
		return "file::memory:?cache=shared"
	}
	return c.DSN
}

// CacheConfig selects the session cache backend. An empty Redis address
// falls back to the in-process cache.
type CacheConfig struct {
	RedisAddr     string `koanf:"redis_addr" json:"redis_addr"`
	RedisPassword string `koanf:"redis_password" json:"redis_password"`
	RedisDB       int    `koanf:"redis_db" json:"redis_db"`
}

func (c *CacheConfig) GetRedisAddr() string {
	return c.RedisAddr
}

func (c *CacheConfig) GetRedisPassword() string {
	return c.RedisPassword
}

func (c *CacheConfig) GetRedisDB() int {
	return c.RedisDB
}

func (c *CacheConfig) UseRedis() bool {
	return c.RedisAddr != ""
}

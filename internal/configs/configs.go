// Package configs contains the system configurations.
package configs

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultSlotLockTTL = 5 * time.Second

type configData struct {
	Env            string `json:"env"`
	ServerPort     int32  `json:"port"`
	DatabaseDSN    string `json:"database_dsn"`
	DatabaseDriver string `json:"database_driver"`
	PrivateKeyFile string `json:"private_key_file"`
	RedisAddr      string `json:"redis_addr"`
	RedisPassword  string `json:"redis_password"`
	SlotLockTTL    string `json:"slot_lock_ttl"`
}

// Config holds the system configuration.
type Config interface {
	Env() string
	ServerPort() int32
	DatabaseDSN() string
	DatabaseDriver() string
	PrivateKeyFile() string
	PrivateKey() rsa.PrivateKey
	RedisAddr() string
	RedisPassword() string
	SlotLockTTL() time.Duration
}

type defaultConfig struct {
	data        *configData
	privateKey  *rsa.PrivateKey
	slotLockTTL time.Duration
}

func (c *defaultConfig) Env() string {
	return c.data.Env
}

func (c *defaultConfig) ServerPort() int32 {
	return c.data.ServerPort
}

func (c *defaultConfig) DatabaseDSN() string {
	return c.data.DatabaseDSN
}

func (c *defaultConfig) DatabaseDriver() string {
	return c.data.DatabaseDriver
}

func (c *defaultConfig) PrivateKeyFile() string {
	return c.data.PrivateKeyFile
}

func (c *defaultConfig) PrivateKey() rsa.PrivateKey {
	return *c.privateKey
}

func (c *defaultConfig) RedisAddr() string {
	return c.data.RedisAddr
}

func (c *defaultConfig) RedisPassword() string {
	return c.data.RedisPassword
}

func (c *defaultConfig) SlotLockTTL() time.Duration {
	return c.slotLockTTL
}

// loadPrivateKey loads the PKCS1 private key. Relative paths are resolved against the config file directory.
func (c *defaultConfig) loadPrivateKey(configPath string) error {
	path := c.PrivateKeyFile()
	if _, err := os.Stat(path); os.IsNotExist(err) && !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(configPath), path)
	}
	pemFile, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	privatePem, _ := pem.Decode(pemFile)
	if privatePem == nil {
		return errors.New("the given private key is not PEM encoded")
	}
	pk, err := x509.ParsePKCS1PrivateKey(privatePem.Bytes)
	if err != nil {
		return fmt.Errorf("the given private key is not valid: %w", err)
	}
	c.privateKey = pk
	return nil
}

// applyEnv overrides the file values with the ones found in the environment.
func (c *defaultConfig) applyEnv() error {
	overrides := map[string]*string{
		"APP_ENV":         &c.data.Env,
		"DATABASE_DSN":    &c.data.DatabaseDSN,
		"DATABASE_DRIVER": &c.data.DatabaseDriver,
		"REDIS_ADDR":      &c.data.RedisAddr,
		"REDIS_PASSWORD":  &c.data.RedisPassword,
		"SLOT_LOCK_TTL":   &c.data.SlotLockTTL,
	}
	for key, field := range overrides {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.data.ServerPort = int32(port)
	}
	return nil
}

func (c *defaultConfig) validate() error {
	if c.data.ServerPort <= 0 || c.data.ServerPort > 65535 {
		return fmt.Errorf("invalid port %d", c.data.ServerPort)
	}
	if c.data.DatabaseDriver == "" {
		c.data.DatabaseDriver = "postgres"
	}
	c.slotLockTTL = defaultSlotLockTTL
	if c.data.SlotLockTTL != "" {
		ttl, err := time.ParseDuration(c.data.SlotLockTTL)
		if err != nil || ttl <= 0 {
			return fmt.Errorf("invalid slot_lock_ttl %q", c.data.SlotLockTTL)
		}
		c.slotLockTTL = ttl
	}
	return nil
}

// Load loads the given configuration file. Values found in the environment, or in a .env file
// placed in the working directory, take precedence over the file ones.
func Load(configPath string) (Config, error) {
	_ = godotenv.Load()
	data := &configData{}
	configFile, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("an error occurred while loading config file: %w", err)
	}
	defer configFile.Close()
	if err = json.NewDecoder(configFile).Decode(data); err != nil {
		return nil, fmt.Errorf("an error occurred while parsing config file: %w", err)
	}
	configuration := &defaultConfig{data: data}
	if err = configuration.applyEnv(); err != nil {
		return nil, err
	}
	if err = configuration.validate(); err != nil {
		return nil, err
	}
	if configuration.PrivateKeyFile() != "" {
		if err = configuration.loadPrivateKey(configPath); err != nil {
			return nil, err
		}
	}
	return configuration, nil
}

// MustLoad loads the given configuration file and if any error occurs, will panic.
func MustLoad(configPath string) Config {
	config, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	return config
}

package config

import (
	"fmt"
	"net"
	"net/mail"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries the sending identity, the IMAP account used to resolve
// message and part references, and the composer toggles. All values come
// from TROJITA_* environment variables; in development a .env file is
// loaded first.
type Config struct {
	Environment    string
	FromName       string
	FromAddress    string
	Organization   string
	IMAPHost       string
	IMAPPort       string
	IMAPUsername   string
	IMAPPassword   string
	Preload        bool
	RevealVersions bool
	Timezone       string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("TROJITA_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:    env,
		FromName:       os.Getenv("TROJITA_FROM_NAME"),
		FromAddress:    os.Getenv("TROJITA_FROM_ADDRESS"),
		Organization:   os.Getenv("TROJITA_ORGANIZATION"),
		IMAPHost:       os.Getenv("TROJITA_IMAP_HOST"),
		IMAPPort:       getEnvOrDefault("TROJITA_IMAP_PORT", "143"),
		IMAPUsername:   os.Getenv("TROJITA_IMAP_USER"),
		IMAPPassword:   os.Getenv("TROJITA_IMAP_PASSWORD"),
		Preload:        getEnvBool("TROJITA_PRELOAD", false),
		RevealVersions: getEnvBool("TROJITA_REVEAL_VERSIONS", true),
		Timezone:       getEnvOrDefault("TZ", "UTC"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.FromAddress != "" {
		if _, err := mail.ParseAddress(c.FromAddress); err != nil {
			return fmt.Errorf("TROJITA_FROM_ADDRESS is not a valid address: %w", err)
		}
	}

	if port, err := strconv.ParseUint(c.IMAPPort, 10, 16); err != nil || port == 0 {
		return fmt.Errorf("TROJITA_IMAP_PORT is not a valid port number: %q", c.IMAPPort)
	}

	if c.IMAPHost != "" {
		if c.IMAPUsername == "" {
			return fmt.Errorf("TROJITA_IMAP_USER is required when TROJITA_IMAP_HOST is set")
		}
		if c.IMAPPassword == "" {
			return fmt.Errorf("TROJITA_IMAP_PASSWORD is required when TROJITA_IMAP_HOST is set")
		}
	}

	return nil
}

// HasAccount reports whether an IMAP account is configured. Without one,
// referential attachments cannot be resolved.
func (c *Config) HasAccount() bool {
	return c.IMAPHost != ""
}

func (c *Config) IMAPAddr() string {
	return net.JoinHostPort(c.IMAPHost, c.IMAPPort)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

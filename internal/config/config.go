package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	// DBLockTimeout bounds row-lock waits inside a unit of work. Zero waits
	// indefinitely.
	DBLockTimeout time.Duration

	ServerPort  string
	AutoMigrate bool

	LogLevel  string
	LogFormat string
}

// Load reads configuration from defaults, an optional config file named by
// CONFIG_FILE, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	return &Config{
		DBHost:            v.GetString("db_host"),
		DBPort:            v.GetString("db_port"),
		DBUser:            v.GetString("db_user"),
		DBPassword:        v.GetString("db_password"),
		DBName:            v.GetString("db_name"),
		DBSSLMode:         v.GetString("db_sslmode"),
		DBMaxOpenConns:    v.GetInt("db_max_open_conns"),
		DBMaxIdleConns:    v.GetInt("db_max_idle_conns"),
		DBConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),
		DBLockTimeout:     v.GetDuration("db_lock_timeout"),
		ServerPort:        v.GetString("server_port"),
		AutoMigrate:       v.GetBool("auto_migrate"),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         v.GetString("log_format"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("config_file", "")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "password")
	v.SetDefault("db_name", "finance_ledger")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_max_open_conns", 25)
	v.SetDefault("db_max_idle_conns", 25)
	v.SetDefault("db_conn_max_lifetime", 5*time.Minute)
	v.SetDefault("db_lock_timeout", 5*time.Second)
	v.SetDefault("server_port", "8080")
	v.SetDefault("auto_migrate", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

package utils

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const DefaultAPIURL = "http://localhost:3001"

type Config struct {
	// Server configuration
	AppPort  string `yaml:"PORT"`
	LogLevel string `yaml:"LOG_LEVEL"`
	LogFile  string `yaml:"LOG_FILE"`

	CORSOrigins string `yaml:"CORS_ORIGINS"`

	// Backend collaborator (analyze-image, parse-order, submit-orders)
	APIURL string `yaml:"API_URL"`

	// Database configuration
	DBUser     string `yaml:"DB_USER"`
	DBName     string `yaml:"DB_NAME"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBPort     string `yaml:"DB_PORT"`
	DBHost     string `yaml:"DB_HOST"`

	// AWS S3 configuration
	AWSS3Bucket  string `yaml:"AWS_S3_BUCKET"`
	AWSS3Region  string `yaml:"AWS_S3_REGION"`
	AWSAccessKey string `yaml:"AWS_ACCESS_KEY"`
	AWSSecretKey string `yaml:"AWS_SECRET_KEY"`

	// Order form policy
	Managers               string `yaml:"MANAGERS"`
	RequiredFields         string `yaml:"REQUIRED_FIELDS"`
	RequireManualApplied   string `yaml:"REQUIRE_MANUAL_APPLIED"`
	AnalysisTimeoutSeconds string `yaml:"ANALYSIS_TIMEOUT_SECONDS"`
	RequestTimeoutSeconds  string `yaml:"REQUEST_TIMEOUT_SECONDS"`
	StaggerMillis          string `yaml:"STAGGER_MILLIS"`
	FormTTLMinutes         string `yaml:"FORM_TTL_MINUTES"`
}

var config Config

// LoadConfig reads config.yaml (or CONFIG_FILE) and then lets the process
// environment, including an optional .env file, override individual keys.
func LoadConfig() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading .env file: %s\n", err)
	}

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}

	file, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Error reading YAML file: %s\n", err)
	} else if err = yaml.Unmarshal(file, &config); err != nil {
		log.Printf("Error parsing YAML file: %s\n", err)
	}

	overrideFromEnv(&config)
}

func overrideFromEnv(c *Config) {
	for key, field := range map[string]*string{
		"PORT":                     &c.AppPort,
		"LOG_LEVEL":                &c.LogLevel,
		"LOG_FILE":                 &c.LogFile,
		"CORS_ORIGINS":             &c.CORSOrigins,
		"API_URL":                  &c.APIURL,
		"DB_USER":                  &c.DBUser,
		"DB_NAME":                  &c.DBName,
		"DB_PASSWORD":              &c.DBPassword,
		"DB_PORT":                  &c.DBPort,
		"DB_HOST":                  &c.DBHost,
		"AWS_S3_BUCKET":            &c.AWSS3Bucket,
		"AWS_S3_REGION":            &c.AWSS3Region,
		"AWS_ACCESS_KEY":           &c.AWSAccessKey,
		"AWS_SECRET_KEY":           &c.AWSSecretKey,
		"MANAGERS":                 &c.Managers,
		"REQUIRED_FIELDS":          &c.RequiredFields,
		"REQUIRE_MANUAL_APPLIED":   &c.RequireManualApplied,
		"ANALYSIS_TIMEOUT_SECONDS": &c.AnalysisTimeoutSeconds,
		"REQUEST_TIMEOUT_SECONDS":  &c.RequestTimeoutSeconds,
		"STAGGER_MILLIS":           &c.StaggerMillis,
		"FORM_TTL_MINUTES":         &c.FormTTLMinutes,
	} {
		if v, ok := os.LookupEnv(key); ok {
			*field = v
		}
	}
}

func GetConfig(key string) string {
	switch key {
	case "PORT":
		if config.AppPort == "" {
			return "3000"
		}
		return config.AppPort
	case "LOG_LEVEL":
		return config.LogLevel
	case "LOG_FILE":
		return config.LogFile
	case "CORS_ORIGINS":
		return config.CORSOrigins
	case "API_URL":
		if config.APIURL == "" {
			return DefaultAPIURL
		}
		return config.APIURL
	case "DB_USER":
		return config.DBUser
	case "DB_NAME":
		return config.DBName
	case "DB_PASSWORD":
		return config.DBPassword
	case "DB_PORT":
		return config.DBPort
	case "DB_HOST":
		return config.DBHost
	case "AWS_S3_BUCKET":
		return config.AWSS3Bucket
	case "AWS_S3_REGION":
		return config.AWSS3Region
	case "AWS_ACCESS_KEY":
		return config.AWSAccessKey
	case "AWS_SECRET_KEY":
		return config.AWSSecretKey
	case "MANAGERS":
		return config.Managers
	case "REQUIRED_FIELDS":
		return config.RequiredFields
	case "REQUIRE_MANUAL_APPLIED":
		return config.RequireManualApplied
	case "ANALYSIS_TIMEOUT_SECONDS":
		return config.AnalysisTimeoutSeconds
	case "REQUEST_TIMEOUT_SECONDS":
		return config.RequestTimeoutSeconds
	case "STAGGER_MILLIS":
		return config.StaggerMillis
	case "FORM_TTL_MINUTES":
		return config.FormTTLMinutes
	default:
		return ""
	}
}

// GetConfigList splits a comma separated value, dropping blanks.
func GetConfigList(key string) []string {
	var out []string
	for _, part := range strings.Split(GetConfig(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func GetConfigInt(key string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(GetConfig(key)))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func GetConfigBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(GetConfig(key)))
	if err != nil {
		return fallback
	}
	return b
}

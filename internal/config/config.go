package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTP        HTTPConfig        `mapstructure:"http"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Camera      CameraConfig      `mapstructure:"camera"`
	Recognition RecognitionConfig `mapstructure:"recognition"`
	OCR         OCRConfig         `mapstructure:"ocr"`
	Snapshots   SnapshotConfig    `mapstructure:"snapshots"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Events      EventsConfig      `mapstructure:"events"`
	Retention   RetentionConfig   `mapstructure:"retention"`
	Log         LogConfig         `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr           string        `mapstructure:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "mysql" {
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&clientFoundRows=true",
			d.User, d.Password, d.Host, d.Port, d.Name)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type CameraConfig struct {
	ID        string `mapstructure:"id"`
	Source    string `mapstructure:"source"`
	File      string `mapstructure:"file"`
	Device    int    `mapstructure:"device"`
	Reconnect bool   `mapstructure:"reconnect"`
}

// Origin is the label stored with each detection.
func (c CameraConfig) Origin() string {
	if c.Source == "webcam" {
		return "WEBCAM"
	}
	return "VIDEO"
}

type RecognitionConfig struct {
	ConfidenceFloorCar  float64       `mapstructure:"confidence_floor_car"`
	ConfidenceFloorMoto float64       `mapstructure:"confidence_floor_moto"`
	Cooldown            time.Duration `mapstructure:"cooldown"`
	FrameStride         int           `mapstructure:"frame_stride"`
}

type OCRConfig struct {
	Engine    string        `mapstructure:"engine"`
	Languages []string      `mapstructure:"languages"`
	Whitelist string        `mapstructure:"whitelist"`
	Timeout   time.Duration `mapstructure:"timeout"`
	AWSRegion string        `mapstructure:"aws_region"`
}

type SnapshotConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	KnownDir   string `mapstructure:"known_dir"`
	UnknownDir string `mapstructure:"unknown_dir"`
	Margin     int    `mapstructure:"margin"`
	Quality    int    `mapstructure:"quality"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type EventsConfig struct {
	AWSRegion   string `mapstructure:"aws_region"`
	SQSQueueURL string `mapstructure:"sqs_queue_url"`
	IoTEndpoint string `mapstructure:"iot_endpoint"`
	IoTTopic    string `mapstructure:"iot_topic"`
}

type RetentionConfig struct {
	Days     int           `mapstructure:"days"`
	Interval time.Duration `mapstructure:"interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.shutdown_grace", 10*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "lpr")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("camera.id", "camera-1")
	v.SetDefault("camera.source", "file")
	v.SetDefault("camera.file", "video_entrada.mp4")
	v.SetDefault("camera.device", 0)
	v.SetDefault("camera.reconnect", false)

	v.SetDefault("recognition.confidence_floor_car", 0.94)
	v.SetDefault("recognition.confidence_floor_moto", 0.97)
	v.SetDefault("recognition.cooldown", 120*time.Second)
	v.SetDefault("recognition.frame_stride", 1)

	v.SetDefault("ocr.engine", "tesseract")
	v.SetDefault("ocr.languages", []string{"eng"})
	v.SetDefault("ocr.whitelist", "")
	v.SetDefault("ocr.timeout", 5*time.Second)
	v.SetDefault("ocr.aws_region", "us-east-1")

	v.SetDefault("snapshots.enabled", true)
	v.SetDefault("snapshots.known_dir", "placas_conhecidas")
	v.SetDefault("snapshots.unknown_dir", "placas_desconhecidas")
	v.SetDefault("snapshots.margin", 10)
	v.SetDefault("snapshots.quality", 90)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("events.aws_region", "us-east-1")
	v.SetDefault("events.sqs_queue_url", "")
	v.SetDefault("events.iot_endpoint", "")
	v.SetDefault("events.iot_topic", "lpr/detections")

	v.SetDefault("retention.days", 0)
	v.SetDefault("retention.interval", time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Load reads .env, the optional YAML file at path and LPR_* environment
// variables, in increasing order of precedence over the defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LPR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	r := c.Recognition
	if r.ConfidenceFloorCar < 0 || r.ConfidenceFloorCar > 1 {
		errs = append(errs, fmt.Errorf("recognition.confidence_floor_car must be within [0,1], got %v", r.ConfidenceFloorCar))
	}
	if r.ConfidenceFloorMoto < 0 || r.ConfidenceFloorMoto > 1 {
		errs = append(errs, fmt.Errorf("recognition.confidence_floor_moto must be within [0,1], got %v", r.ConfidenceFloorMoto))
	}
	if r.Cooldown <= 0 {
		errs = append(errs, fmt.Errorf("recognition.cooldown must be positive, got %v", r.Cooldown))
	}
	if r.FrameStride < 1 {
		errs = append(errs, fmt.Errorf("recognition.frame_stride must be at least 1, got %d", r.FrameStride))
	}

	switch c.Database.Driver {
	case "postgres", "mysql":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be postgres or mysql, got %q", c.Database.Driver))
	}

	switch c.Camera.Source {
	case "file", "webcam":
	default:
		errs = append(errs, fmt.Errorf("camera.source must be file or webcam, got %q", c.Camera.Source))
	}

	switch c.OCR.Engine {
	case "tesseract", "rekognition", "vision":
	default:
		errs = append(errs, fmt.Errorf("ocr.engine must be tesseract, rekognition or vision, got %q", c.OCR.Engine))
	}

	if c.Retention.Days > 0 && c.Retention.Interval <= 0 {
		errs = append(errs, fmt.Errorf("retention.interval must be positive when retention.days is set, got %v", c.Retention.Interval))
	}

	if c.Snapshots.Margin < 0 {
		errs = append(errs, fmt.Errorf("snapshots.margin must not be negative, got %d", c.Snapshots.Margin))
	}

	return errors.Join(errs...)
}

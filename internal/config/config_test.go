package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Recognition.ConfidenceFloorCar != 0.94 {
		t.Errorf("car floor = %v, want 0.94", cfg.Recognition.ConfidenceFloorCar)
	}
	if cfg.Recognition.ConfidenceFloorMoto != 0.97 {
		t.Errorf("moto floor = %v, want 0.97", cfg.Recognition.ConfidenceFloorMoto)
	}
	if cfg.Recognition.Cooldown != 120*time.Second {
		t.Errorf("cooldown = %v, want 2m0s", cfg.Recognition.Cooldown)
	}
	if cfg.Recognition.FrameStride != 1 {
		t.Errorf("frame stride = %d, want 1", cfg.Recognition.FrameStride)
	}
	if cfg.Snapshots.Margin != 10 {
		t.Errorf("snapshot margin = %d, want 10", cfg.Snapshots.Margin)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q, want postgres", cfg.Database.Driver)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
recognition:
  confidence_floor_car: 0.97
  cooldown: 30s
  frame_stride: 3
camera:
  source: webcam
  device: 2
database:
  driver: mysql
  port: 3306
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LPR_RECOGNITION_CONFIDENCE_FLOOR_MOTO", "0.99")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Recognition.ConfidenceFloorCar != 0.97 {
		t.Errorf("car floor = %v, want 0.97 from file", cfg.Recognition.ConfidenceFloorCar)
	}
	if cfg.Recognition.ConfidenceFloorMoto != 0.99 {
		t.Errorf("moto floor = %v, want 0.99 from env", cfg.Recognition.ConfidenceFloorMoto)
	}
	if cfg.Recognition.Cooldown != 30*time.Second {
		t.Errorf("cooldown = %v, want 30s", cfg.Recognition.Cooldown)
	}
	if cfg.Recognition.FrameStride != 3 {
		t.Errorf("frame stride = %d, want 3", cfg.Recognition.FrameStride)
	}
	if cfg.Camera.Origin() != "WEBCAM" || cfg.Camera.Device != 2 {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if !strings.HasPrefix(cfg.Database.DSN(), "postgres:@tcp(localhost:3306)/lpr") {
		t.Errorf("mysql dsn = %q", cfg.Database.DSN())
	}
}

func TestDatabaseDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "postgres",
			cfg:  DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "lpr", Password: "pw", Name: "lpr", SSLMode: "disable"},
			want: "host=db port=5432 user=lpr password=pw dbname=lpr sslmode=disable",
		},
		{
			// Unchanged updates must still report the matched row.
			name: "mysql reports found rows",
			cfg:  DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "lpr", Password: "pw", Name: "lpr"},
			want: "lpr:pw@tcp(db:3306)/lpr?charset=utf8mb4&parseTime=True&loc=Local&clientFoundRows=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DSN(); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg.Recognition.ConfidenceFloorCar = 1.5
	cfg.Recognition.FrameStride = 0
	cfg.Database.Driver = "sqlite"
	cfg.OCR.Engine = "paddle"
	cfg.Retention.Days = 30
	cfg.Retention.Interval = 0

	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"confidence_floor_car", "frame_stride", "database.driver", "ocr.engine", "retention.interval"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

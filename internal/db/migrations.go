package db

import (
	"fmt"

	"gorm.io/gorm"
)

var postgresStatements = []string{
	`CREATE TABLE IF NOT EXISTS owners (
		id          BIGSERIAL PRIMARY KEY,
		name        VARCHAR(100) NOT NULL,
		cpf         VARCHAR(14) UNIQUE,
		phone       VARCHAR(20),
		kind        VARCHAR(20) NOT NULL CHECK (kind IN ('PARTICULAR', 'OFICIAL')),
		authorized  BOOLEAN NOT NULL DEFAULT TRUE,
		notes       TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id              BIGSERIAL PRIMARY KEY,
		plate           VARCHAR(10) NOT NULL UNIQUE,
		plate_category  VARCHAR(20) NOT NULL,
		owner_id        BIGINT REFERENCES owners(id) ON DELETE SET NULL,
		make            VARCHAR(100),
		model           VARCHAR(100),
		color           VARCHAR(50),
		kind            VARCHAR(20) NOT NULL CHECK (kind IN ('CARRO', 'MOTO', 'CAMINHAO', 'OUTRO')),
		flagged         BOOLEAN NOT NULL DEFAULT FALSE,
		flag_reason     TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE TABLE IF NOT EXISTS accesses (
		id            BIGSERIAL PRIMARY KEY,
		vehicle_id    BIGINT REFERENCES vehicles(id) ON DELETE SET NULL,
		plate         VARCHAR(10) NOT NULL,
		category      VARCHAR(20) NOT NULL,
		event_kind    VARCHAR(20) NOT NULL DEFAULT 'DETECTADO',
		confidence    NUMERIC(5,4) NOT NULL,
		frame_number  BIGINT,
		source        VARCHAR(50),
		session_id    VARCHAR(36),
		image_path    VARCHAR(255),
		fragments     JSONB,
		detected_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_accesses_plate ON accesses(plate);`,
	`CREATE INDEX IF NOT EXISTS idx_accesses_detected_at ON accesses(detected_at);`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id          BIGSERIAL PRIMARY KEY,
		vehicle_id  BIGINT REFERENCES vehicles(id) ON DELETE CASCADE,
		plate       VARCHAR(10) NOT NULL,
		kind        VARCHAR(50) NOT NULL,
		message     TEXT NOT NULL,
		resolved    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_resolved ON alerts(resolved);`,
	`CREATE TABLE IF NOT EXISTS operators (
		id             BIGSERIAL PRIMARY KEY,
		username       VARCHAR(64) NOT NULL UNIQUE,
		password_hash  TEXT NOT NULL,
		role           VARCHAR(20) NOT NULL CHECK (role IN ('ADMIN', 'OPERATOR', 'VIEWER')),
		active         BOOLEAN NOT NULL DEFAULT TRUE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
}

var mysqlStatements = []string{
	`CREATE TABLE IF NOT EXISTS owners (
		id          BIGINT AUTO_INCREMENT PRIMARY KEY,
		name        VARCHAR(100) NOT NULL,
		cpf         VARCHAR(14) UNIQUE,
		phone       VARCHAR(20),
		kind        VARCHAR(20) NOT NULL,
		authorized  BOOLEAN NOT NULL DEFAULT TRUE,
		notes       TEXT,
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id              BIGINT AUTO_INCREMENT PRIMARY KEY,
		plate           VARCHAR(10) NOT NULL UNIQUE,
		plate_category  VARCHAR(20) NOT NULL,
		owner_id        BIGINT NULL,
		make            VARCHAR(100),
		model           VARCHAR(100),
		color           VARCHAR(50),
		kind            VARCHAR(20) NOT NULL,
		flagged         BOOLEAN NOT NULL DEFAULT FALSE,
		flag_reason     TEXT,
		created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (owner_id) REFERENCES owners(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS accesses (
		id            BIGINT AUTO_INCREMENT PRIMARY KEY,
		vehicle_id    BIGINT NULL,
		plate         VARCHAR(10) NOT NULL,
		category      VARCHAR(20) NOT NULL,
		event_kind    VARCHAR(20) NOT NULL DEFAULT 'DETECTADO',
		confidence    DECIMAL(5,4) NOT NULL,
		frame_number  BIGINT,
		source        VARCHAR(50),
		session_id    VARCHAR(36),
		image_path    VARCHAR(255),
		fragments     JSON,
		detected_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_accesses_plate (plate),
		INDEX idx_accesses_detected_at (detected_at),
		FOREIGN KEY (vehicle_id) REFERENCES vehicles(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id          BIGINT AUTO_INCREMENT PRIMARY KEY,
		vehicle_id  BIGINT NULL,
		plate       VARCHAR(10) NOT NULL,
		kind        VARCHAR(50) NOT NULL,
		message     TEXT NOT NULL,
		resolved    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_alerts_resolved (resolved),
		FOREIGN KEY (vehicle_id) REFERENCES vehicles(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	`CREATE TABLE IF NOT EXISTS operators (
		id             BIGINT AUTO_INCREMENT PRIMARY KEY,
		username       VARCHAR(64) NOT NULL UNIQUE,
		password_hash  TEXT NOT NULL,
		role           VARCHAR(20) NOT NULL,
		active         BOOLEAN NOT NULL DEFAULT TRUE,
		created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
}

func migrationStatements(driver string) []string {
	if driver == "mysql" {
		return mysqlStatements
	}
	return postgresStatements
}

func runMigrations(db *gorm.DB, driver string) error {
	for i, stmt := range migrationStatements(driver) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

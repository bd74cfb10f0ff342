package cmd

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/database/postgres"
	"github.com/kozaktomas/face-attend/internal/security"
)

// buildCodec creates the at-rest encryption codec for face images. Encryption
// is on unless explicitly disabled, and then a passphrase is mandatory.
func buildCodec(cfg *config.Config) (*security.Codec, error) {
	if cfg.Security.EncryptionDisabled {
		return nil, nil
	}
	if cfg.Security.EncryptionPassword == "" {
		return nil, errors.New("ENCRYPTION_PASSWORD environment variable is required (or set ENCRYPTION_DISABLED=true)")
	}
	return security.NewCodec(cfg.Security.EncryptionPassword)
}

// initDatabase connects to PostgreSQL, runs migrations and registers the
// repositories. Every command that touches the store calls this first.
func initDatabase(cfg *config.Config) error {
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	codec, err := buildCodec(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	pool := postgres.GetGlobalPool()
	faceRepo := postgres.NewFaceRepository(pool, codec)
	recordingRepo := postgres.NewRecordingRepository(pool)
	frameRepo := postgres.NewFrameRepository(pool)
	detectionRepo := postgres.NewDetectionRepository(pool)
	attendanceRepo := postgres.NewAttendanceRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	statsRepo := postgres.NewStatsRepository(pool)

	database.RegisterBackend(database.Repositories{
		Faces:      func() database.FaceWriter { return faceRepo },
		Recordings: func() database.RecordingStore { return recordingRepo },
		Frames:     func() database.FrameStore { return frameRepo },
		Detections: func() database.DetectionWriter { return detectionRepo },
		Attendance: func() database.AttendanceStore { return attendanceRepo },
		Sessions:   func() database.SessionStore { return sessionRepo },
		Stats:      func() database.StatsReader { return statsRepo },
	})
	fmt.Printf("Using PostgreSQL backend\n")
	return nil
}

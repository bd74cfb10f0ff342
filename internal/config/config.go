package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var profilesYAML []byte

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Engine      EngineConfig
	Recognition RecognitionConfig
	Camera      CameraConfig
	Storage     StorageConfig
	Security    SecurityConfig
	Profiles    ProfilesConfig
}

type ServerConfig struct {
	Port int // HTTP listen port (default 5000)
}

type DatabaseConfig struct {
	URL           string // PostgreSQL connection URL
	MaxOpenConns  int    // Maximum open connections (default 25)
	MaxIdleConns  int    // Maximum idle connections (default 5)
	HNSWIndexPath string // Path to persist the face template index (optional, if empty index is rebuilt on startup)
}

// EngineConfig tunes the stability pipeline. Zero values are never produced
// by Load; defaults come from the selected profile.
type EngineConfig struct {
	WindowCapacity     int           // observations kept per face track
	StabilityThreshold int           // most recent observations that must agree
	MinConfidence      float64       // confidence floor for recording attendance
	Cooldown           time.Duration // minimum gap between records for one person
	TrackMaxAge        time.Duration // idle tracks older than this are dropped
	BucketSize         int           // grid cell size in pixels for track keys
}

type RecognitionConfig struct {
	Threshold        float64 // minimum template similarity to accept a match
	Profile          string  // profile name from profiles.yaml (default "default")
	CascadeFile      string  // path to the pigo face detection cascade
	DatasetDir       string  // directory with <person>_<n>.jpg reference photos
	SearchCandidates int     // nearest neighbours fetched per lookup (default 5)
}

type CameraConfig struct {
	URL           string // MJPEG stream URL (e.g., http://cam.local:8080/video)
	Location      string // location label stored with attendance records
	FrameInterval int    // process every Nth frame (default 3)
	FPS           int    // nominal frames per second of the source (default 30)
}

type StorageConfig struct {
	Dir string // directory for recorded frames and streams (default "storage")
}

type SecurityConfig struct {
	APIToken           string // bearer token for mutating API endpoints (empty disables auth)
	EncryptionPassword string // passphrase for encrypting face images at rest
	EncryptionDisabled bool   // explicit opt-out; images are stored as plain bytes
}

type ProfilesConfig struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile is a named preset of pipeline tuning values. Durations are plain
// seconds in the YAML so the presets read naturally.
type Profile struct {
	WindowCapacity       int     `yaml:"window_capacity"`
	StabilityThreshold   int     `yaml:"stability_threshold"`
	MinConfidence        float64 `yaml:"min_confidence"`
	RecognitionThreshold float64 `yaml:"recognition_threshold"`
	CooldownSeconds      float64 `yaml:"cooldown_seconds"`
	TrackMaxAgeSeconds   float64 `yaml:"track_max_age_seconds"`
}

func (p Profile) Cooldown() time.Duration {
	return time.Duration(p.CooldownSeconds * float64(time.Second))
}

func (p Profile) TrackMaxAge() time.Duration {
	return time.Duration(p.TrackMaxAgeSeconds * float64(time.Second))
}

// Get returns the named profile, falling back to "default" for names that
// are not in profiles.yaml.
func (c *ProfilesConfig) Get(name string) Profile {
	if p, ok := c.Profiles[name]; ok {
		return p
	}
	return c.Profiles["default"]
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float in [0, 1].
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f <= 1 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable and parses it as a Go duration
// string like "5s" or "1500ms". Returns the default value if the env var is
// unset, empty, invalid, or negative.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

// envString reads an environment variable, returning the default when unset
// or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean ("true", "1", ...).
// Returns false if the env var is unset, empty, or invalid.
func envBool(key string) bool {
	s := os.Getenv(key)
	if s == "" {
		return false
	}
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func Load() *Config {
	var profiles ProfilesConfig
	if err := yaml.Unmarshal(profilesYAML, &profiles); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded profiles.yaml: " + err.Error())
	}

	profileName := envString("ENGINE_PROFILE", "default")
	p := profiles.Get(profileName)

	return &Config{
		Server: ServerConfig{
			Port: envInt("PORT", 5000),
		},
		Database: DatabaseConfig{
			URL:           os.Getenv("DATABASE_URL"),
			MaxOpenConns:  envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  envInt("DATABASE_MAX_IDLE_CONNS", 5),
			HNSWIndexPath: os.Getenv("HNSW_INDEX_PATH"),
		},
		Engine: EngineConfig{
			WindowCapacity:     envInt("ENGINE_WINDOW", p.WindowCapacity),
			StabilityThreshold: envInt("ENGINE_STABILITY", p.StabilityThreshold),
			MinConfidence:      envFloat("ENGINE_MIN_CONFIDENCE", p.MinConfidence),
			Cooldown:           envDuration("ENGINE_COOLDOWN", p.Cooldown()),
			TrackMaxAge:        envDuration("ENGINE_TRACK_MAX_AGE", p.TrackMaxAge()),
			BucketSize:         envInt("ENGINE_BUCKET_SIZE", 50),
		},
		Recognition: RecognitionConfig{
			Threshold:        envFloat("RECOGNITION_THRESHOLD", p.RecognitionThreshold),
			Profile:          profileName,
			CascadeFile:      envString("CASCADE_PATH", "cascade/facefinder"),
			DatasetDir:       envString("DATASET_PATH", "dataset"),
			SearchCandidates: envInt("RECOGNITION_CANDIDATES", 5),
		},
		Camera: CameraConfig{
			URL:           os.Getenv("CAMERA_SOURCE"),
			Location:      envString("CAMERA_LOCATION", "Camera_1"),
			FrameInterval: envInt("FRAME_INTERVAL", 3),
			FPS:           envInt("CAMERA_FPS", 30),
		},
		Storage: StorageConfig{
			Dir: envString("STORAGE_DIR", "storage"),
		},
		Security: SecurityConfig{
			APIToken:           os.Getenv("API_TOKEN"),
			EncryptionPassword: os.Getenv("ENCRYPTION_PASSWORD"),
			EncryptionDisabled: envBool("ENCRYPTION_DISABLED"),
		},
		Profiles: profiles,
	}
}

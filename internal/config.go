package internal

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ArchiveFileName is the canonical database inside the data directory
const ArchiveFileName = "chatvault.db"

// Profile is the resolved runtime configuration. Flags and CHATVAULT_*
// environment variables feed it; Validate fills the rest.
type Profile struct {
	Data        string // archive directory
	ArchivePath string // archive database file, derived from Data when empty
	StorageRoot string // editor storage root override, empty autodetects
	AgentRoot   string // agent session root override
	LegacyDir   string // directory scanned for legacy export files

	ServiceURL     string // chat service base URL, empty disables the source
	ServiceToken   string
	ServiceTimeout int // seconds per request

	Snapshot bool // copy stores aside before reading them
	Verbose  bool
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// FromEnv loads the settings that only ever come from the environment.
// The service token in particular never travels through flags.
func (p *Profile) FromEnv() {
	if p.ServiceURL == "" {
		p.ServiceURL = getEnvOrDefault("CHATVAULT_SERVICE_URL", "")
	}
	p.ServiceToken = getEnvOrDefault("CHATVAULT_SERVICE_TOKEN", "")
	p.ServiceTimeout = getEnvOrDefaultInt("CHATVAULT_SERVICE_TIMEOUT_SECONDS", 30)
}

// Validate normalizes the profile and creates the data directory
func (p *Profile) Validate() error {
	if p.Data == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "resolve home directory")
		}
		p.Data = filepath.Join(home, ".chatvault")
	}
	if !filepath.IsAbs(p.Data) {
		abs, err := filepath.Abs(p.Data)
		if err != nil {
			return errors.Wrapf(err, "resolve data directory %s", p.Data)
		}
		p.Data = abs
	}
	p.Data = strings.TrimRight(p.Data, "\\/")
	if err := os.MkdirAll(p.Data, 0o755); err != nil {
		return errors.Wrapf(err, "create data directory %s", p.Data)
	}

	if p.ArchivePath == "" {
		p.ArchivePath = filepath.Join(p.Data, ArchiveFileName)
	}
	if p.ServiceTimeout <= 0 {
		p.ServiceTimeout = 30
	}
	return nil
}

// StoragePaths resolves the editor and agent store locations this
// profile points at
func (p *Profile) StoragePaths() (StoragePaths, error) {
	return ResolveStoragePaths(p.StorageRoot, p.AgentRoot)
}

// BuildSources assembles the ingestion sources the profile enables.
// selection narrows to the named sources; empty means all available.
func (p *Profile) BuildSources(selection []string) ([]Source, error) {
	wanted := func(name string) bool {
		if len(selection) == 0 {
			return true
		}
		for _, s := range selection {
			if strings.EqualFold(strings.TrimSpace(s), name) {
				return true
			}
		}
		return false
	}

	paths, err := p.StoragePaths()
	if err != nil {
		return nil, err
	}

	var sources []Source
	if wanted(SourceEditor) {
		sources = append(sources, NewEditorSource(paths, p.Snapshot))
	}
	if wanted(SourceAgent) && paths.HasAgentStorage() {
		sources = append(sources, NewAgentSource(paths))
	}
	if wanted(SourceLegacy) && p.LegacyDir != "" {
		files, err := FindLegacyChatFiles(p.LegacyDir)
		if err != nil {
			return nil, err
		}
		sources = append(sources, NewLegacySource(files))
	}
	if wanted(SourceChatService) && p.ServiceURL != "" {
		client := NewChatServiceClient(p.ServiceURL, p.ServiceToken, &http.Client{
			Timeout: time.Duration(p.ServiceTimeout) * time.Second,
		})
		sources = append(sources, NewChatServiceSource(client))
	}
	return sources, nil
}

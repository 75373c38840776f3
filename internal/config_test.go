package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iksnae/chatvault/testutil"
)

func TestProfileValidate_Defaults(t *testing.T) {
	data := filepath.Join(t.TempDir(), "vault")

	p := &Profile{Data: data + string(filepath.Separator)}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if p.Data != data {
		t.Errorf("Data = %q, want trailing separator trimmed to %q", p.Data, data)
	}
	if info, err := os.Stat(p.Data); err != nil || !info.IsDir() {
		t.Errorf("data directory not created: %v", err)
	}
	if want := filepath.Join(data, ArchiveFileName); p.ArchivePath != want {
		t.Errorf("ArchivePath = %q, want %q", p.ArchivePath, want)
	}
	if p.ServiceTimeout != 30 {
		t.Errorf("ServiceTimeout = %d, want the 30s default", p.ServiceTimeout)
	}
}

func TestProfileValidate_KeepsExplicitSettings(t *testing.T) {
	tmpDir := t.TempDir()
	archive := filepath.Join(tmpDir, "elsewhere.db")

	p := &Profile{
		Data:           filepath.Join(tmpDir, "vault"),
		ArchivePath:    archive,
		ServiceTimeout: 120,
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.ArchivePath != archive {
		t.Errorf("ArchivePath = %q, want explicit path kept", p.ArchivePath)
	}
	if p.ServiceTimeout != 120 {
		t.Errorf("ServiceTimeout = %d, want 120", p.ServiceTimeout)
	}
}

func TestProfileFromEnv(t *testing.T) {
	t.Setenv("CHATVAULT_SERVICE_URL", "https://chat.example.com")
	t.Setenv("CHATVAULT_SERVICE_TOKEN", "sk-test")
	t.Setenv("CHATVAULT_SERVICE_TIMEOUT_SECONDS", "45")

	p := &Profile{}
	p.FromEnv()
	if p.ServiceURL != "https://chat.example.com" || p.ServiceToken != "sk-test" || p.ServiceTimeout != 45 {
		t.Errorf("profile = %+v", p)
	}
}

func TestProfileFromEnv_FlagWins(t *testing.T) {
	t.Setenv("CHATVAULT_SERVICE_URL", "https://env.example.com")

	p := &Profile{ServiceURL: "https://flag.example.com"}
	p.FromEnv()
	if p.ServiceURL != "https://flag.example.com" {
		t.Errorf("ServiceURL = %q, flag value must win over the environment", p.ServiceURL)
	}
}

func TestProfileFromEnv_BadTimeout(t *testing.T) {
	t.Setenv("CHATVAULT_SERVICE_TIMEOUT_SECONDS", "soon")

	p := &Profile{}
	p.FromEnv()
	if p.ServiceTimeout != 30 {
		t.Errorf("ServiceTimeout = %d, want the default for unparseable input", p.ServiceTimeout)
	}
}

func TestProfileBuildSources(t *testing.T) {
	tmpDir := testutil.CreateTempDir(t)
	agentRoot := filepath.Join(tmpDir, "chats")
	testutil.CreateAgentStoreFixture(t, agentRoot, "session-1", map[string]string{})
	legacyDir := filepath.Join(tmpDir, "exports")
	testutil.CreateLegacyExportFixture(t, legacyDir, "abc123", map[string]interface{}{"tabs": []interface{}{}})

	p := &Profile{
		StorageRoot: tmpDir,
		AgentRoot:   agentRoot,
		LegacyDir:   legacyDir,
		ServiceURL:  "https://chat.example.com",
	}

	sources, err := p.BuildSources(nil)
	if err != nil {
		t.Fatalf("BuildSources() error = %v", err)
	}
	var names []string
	for _, s := range sources {
		names = append(names, s.Name())
	}
	want := []string{SourceEditor, SourceAgent, SourceLegacy, SourceChatService}
	if len(names) != len(want) {
		t.Fatalf("sources = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("sources[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestProfileBuildSources_Selection(t *testing.T) {
	tmpDir := testutil.CreateTempDir(t)
	legacyDir := filepath.Join(tmpDir, "exports")
	testutil.CreateLegacyExportFixture(t, legacyDir, "abc123", map[string]interface{}{"tabs": []interface{}{}})

	p := &Profile{
		StorageRoot: tmpDir,
		LegacyDir:   legacyDir,
		ServiceURL:  "https://chat.example.com",
	}

	// Selection is case- and whitespace-tolerant.
	sources, err := p.BuildSources([]string{" Legacy ", "CHATSERVICE"})
	if err != nil {
		t.Fatalf("BuildSources() error = %v", err)
	}
	if len(sources) != 2 || sources[0].Name() != SourceLegacy || sources[1].Name() != SourceChatService {
		t.Errorf("sources = %d, want legacy and chatservice only", len(sources))
	}
}

func TestProfileBuildSources_UnavailableSkipped(t *testing.T) {
	tmpDir := testutil.CreateTempDir(t)

	// Agent root missing, no legacy directory, no service URL: selecting
	// them yields nothing rather than broken sources.
	p := &Profile{
		StorageRoot: tmpDir,
		AgentRoot:   filepath.Join(tmpDir, "no-such-chats"),
	}
	sources, err := p.BuildSources([]string{SourceAgent, SourceLegacy, SourceChatService})
	if err != nil {
		t.Fatalf("BuildSources() error = %v", err)
	}
	if len(sources) != 0 {
		t.Errorf("sources = %d, want 0", len(sources))
	}
}

func TestProfileBuildSources_BadLegacyDir(t *testing.T) {
	tmpDir := testutil.CreateTempDir(t)

	p := &Profile{
		StorageRoot: tmpDir,
		LegacyDir:   filepath.Join(tmpDir, "missing-exports"),
	}
	if _, err := p.BuildSources([]string{SourceLegacy}); err == nil {
		t.Error("BuildSources() expected error for unreadable legacy directory")
	}
}

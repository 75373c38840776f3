package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// legacyIDNamespace scopes derived identities for records whose source
// never assigned a durable id. The value is arbitrary but must never
// change: derived ids feed idempotent upserts.
var legacyIDNamespace = uuid.MustParse("b4c9a289-ddf1-4b0e-9a70-5c1e4f5a6b3d")

// DeriveLegacyID produces a stable external id for a legacy record from
// an import scope and the tab id inside it. The scope is the workspace
// hash the file was exported for, so re-importing the file updates in
// place even after the file itself has changed.
func DeriveLegacyID(scope, tabID string) string {
	return uuid.NewSHA1(legacyIDNamespace, []byte(scope+":"+tabID)).String()
}

// HashContent returns the hex sha256 of a byte payload
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MessageFingerprint hashes the identifying fields of a message. It backs
// derived message ids when a source assigns no native ones.
func MessageFingerprint(role Role, text string, createdAt int64) string {
	h := sha256.New()
	h.Write([]byte(role))
	h.Write([]byte{0})
	h.Write([]byte(text))
	h.Write([]byte{0})
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(createdAt >> (8 * (7 - i)))
	}
	h.Write(buf[:])
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeFolderURI turns a workspace folder URI into a filesystem path.
// Editor stores record folders as file:// URIs with percent-encoding.
func NormalizeFolderURI(folderURI string) string {
	if folderURI == "" {
		return ""
	}
	if !strings.Contains(folderURI, "://") {
		return filepath.Clean(folderURI)
	}
	u, err := url.Parse(folderURI)
	if err != nil || u.Scheme != "file" || u.Path == "" {
		return folderURI
	}
	// url.Parse already percent-decodes Path.
	return filepath.Clean(u.Path)
}

// WorkspaceHashFromLegacyName extracts the workspace hash a legacy export
// file was keyed by. Files are named chat_data_<hash>.json; anything else
// yields "".
func WorkspaceHashFromLegacyName(path string) string {
	name := filepath.Base(path)
	rest, ok := strings.CutPrefix(name, "chat_data_")
	if !ok {
		return ""
	}
	hash, ok := strings.CutSuffix(rest, ".json")
	if !ok || hash == "" {
		return ""
	}
	return hash
}

package internal

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// EditorSource reads the editor family: per-workspace stores (ownership
// registry + old inline chat tabs) and the shared global store (modern
// composers, split-layout bodies).
type EditorSource struct {
	paths    StoragePaths
	snapshot bool
}

// NewEditorSource builds a source over the detected editor stores. With
// snapshot set, databases are copied before reading so a running editor
// holding locks doesn't block the pass.
func NewEditorSource(paths StoragePaths, snapshot bool) *EditorSource {
	return &EditorSource{paths: paths, snapshot: snapshot}
}

func (s *EditorSource) Name() string {
	return SourceEditor
}

type workspaceScan struct {
	hash        string
	composerIDs []string
	tabs        []RawTab
}

// Resolve normalizes every editor conversation updated after since.
func (s *EditorSource) Resolve(ctx context.Context, since int64) ([]*Conversation, error) {
	paths := s.paths
	if s.snapshot {
		copied, cleanup, err := SnapshotStoragePaths(paths)
		if err != nil {
			return nil, fmt.Errorf("snapshot failed: %w", err)
		}
		defer cleanup()
		paths = copied
	}

	workspaces, err := DetectWorkspaces(paths.WorkspaceStorage)
	if err != nil {
		return nil, err
	}
	refs, err := paths.FindWorkspaceStores()
	if err != nil {
		return nil, err
	}

	// Workspace stores are independent read-only databases; scan them
	// concurrently. Failures skip the one workspace.
	scans := make([]workspaceScan, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, ref := range refs {
		i, ref := i, ref // per-iteration copies; required while go.mod targets go < 1.22
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ws, err := OpenWorkspaceStore(ref)
			if err != nil {
				LogWarn("skipping workspace store %s: %v", ref.Hash, err)
				return nil
			}
			defer ws.Close()

			scan := workspaceScan{hash: ref.Hash}
			if scan.composerIDs, err = ws.ComposerIDs(); err != nil {
				LogWarn("workspace %s composer registry unreadable: %v", ref.Hash, err)
			}
			if scan.tabs, err = ws.ChatTabs(); err != nil {
				LogWarn("workspace %s chat tabs unreadable: %v", ref.Hash, err)
			}
			scans[i] = scan
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	owners := make(map[string]string)
	var conversations []*Conversation

	for _, scan := range scans {
		for _, composerID := range scan.composerIDs {
			owners[composerID] = scan.hash
		}
		for i, tab := range scan.tabs {
			externalID := tab.Key()
			if externalID == "" {
				// Old tabs occasionally lack ids; derive one that is
				// stable for this workspace and position.
				externalID = DeriveLegacyID(scan.hash, fmt.Sprintf("tab-%d", i))
			}
			conv := ResolveTab(tab, SourceEditor, externalID, scan.hash)
			if info := workspaces[scan.hash]; info != nil {
				conv.WorkspaceFolder = info.FolderURI
				conv.WorkspacePath = info.Path
			}
			if since > 0 && conv.UpdatedAt <= since {
				continue
			}
			conversations = append(conversations, conv)
		}
	}

	if !paths.GlobalStorageExists() {
		LogDebug("no global store at %s", paths.GetGlobalStorageDBPath())
		return conversations, nil
	}

	global, err := OpenGlobalStore(paths.GetGlobalStorageDBPath())
	if err != nil {
		// Workspace tabs already resolved are still worth returning.
		LogWarn("global store unreadable: %v", err)
		return conversations, nil
	}
	defer global.Close()

	composers, err := global.LoadComposers()
	if err != nil {
		return nil, err
	}
	contexts, err := global.LoadMessageContexts()
	if err != nil {
		LogWarn("message contexts unreadable, workspace linkage degraded: %v", err)
		contexts = nil
	}

	for _, composer := range composers {
		if err := ctx.Err(); err != nil {
			return conversations, err
		}
		// Filter before fetching bodies; unchanged conversations cost
		// nothing.
		if since > 0 && composer.UpdatedMillis() != 0 && composer.UpdatedMillis() <= since {
			continue
		}

		var bubbles BubbleLookup
		if composer.Layout() == LayoutSplit {
			ids := make([]string, 0, len(composer.FullConversationHeadersOnly))
			for _, h := range composer.FullConversationHeadersOnly {
				ids = append(ids, h.BubbleID)
			}
			set, err := global.LoadBubbles(composer.ComposerID, ids)
			if err != nil {
				LogWarn("skipping conversation %s: %v", composer.ComposerID, err)
				continue
			}
			bubbles = set
		}

		conv, err := ResolveComposer(composer, bubbles, SourceEditor)
		if err != nil {
			LogWarn("skipping conversation %s: %v", composer.ComposerID, err)
			continue
		}

		hash := owners[composer.ComposerID]
		if hash == "" {
			hash = AssociateComposerWithWorkspace(composer.ComposerID, contexts[composer.ComposerID], workspaces)
		}
		if hash != "" {
			conv.WorkspaceHash = hash
			if info := workspaces[hash]; info != nil {
				conv.WorkspaceFolder = info.FolderURI
				conv.WorkspacePath = info.Path
			}
		}

		if since > 0 && conv.UpdatedAt <= since {
			continue
		}
		conversations = append(conversations, conv)
	}

	return conversations, nil
}

package internal

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/iksnae/chatvault/internal/archive"
)

// Source is one origin of conversations: the editor stores, the agent
// CLI stores, the chat service, or a legacy export. Resolve returns
// conversations updated strictly after since, already normalized and
// identity-resolved; since=0 means everything. Sources recover from
// bad records internally, so a non-nil error may still come with
// partial results worth committing.
type Source interface {
	Name() string
	Resolve(ctx context.Context, since int64) ([]*Conversation, error)
}

// Summary totals one ingestion pass across all sources
type Summary struct {
	Sources         int `json:"sources"`
	ChatsSeen       int `json:"chats_seen"`
	ChatsCreated    int `json:"chats_created"`
	ChatsUpdated    int `json:"chats_updated"`
	ChatsSkipped    int `json:"chats_skipped"`
	MessagesWritten int `json:"messages_written"`
	Errors          int `json:"errors"`
}

// Syncer commits normalized conversations to the archive. One pass at a
// time: the archive is single-writer.
type Syncer struct {
	store *archive.Store
}

func NewSyncer(store *archive.Store) *Syncer {
	return &Syncer{store: store}
}

// Run executes one ingestion pass. Incremental passes start each source
// from its watermark; full passes revisit everything and rely on the
// upserts being idempotent. Per-record failures are counted and skipped;
// only archive-level failures abort the pass.
func (s *Syncer) Run(ctx context.Context, sources []Source, full bool) (*Summary, error) {
	sum := &Summary{}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := s.runSource(ctx, src, full, sum); err != nil {
			return sum, err
		}
		sum.Sources++
	}
	return sum, nil
}

func (s *Syncer) runSource(ctx context.Context, src Source, full bool, sum *Summary) error {
	since := int64(0)
	if !full {
		wm, err := s.store.Watermark(ctx, src.Name())
		if err != nil {
			return err
		}
		since = wm
	}

	LogDebug("syncing %s since %d", src.Name(), since)
	conversations, err := src.Resolve(ctx, since)
	if err != nil {
		LogWarn("source %s: %v", src.Name(), err)
		sum.Errors++
	}

	// Ascending update time, so the watermark can only ever cover
	// conversations that are already committed.
	sort.SliceStable(conversations, func(i, j int) bool {
		if conversations[i].UpdatedAt != conversations[j].UpdatedAt {
			return conversations[i].UpdatedAt < conversations[j].UpdatedAt
		}
		return conversations[i].ExternalID < conversations[j].ExternalID
	})

	state := &archive.SyncState{Source: src.Name()}
	watermark := since
	retryBelow := int64(-1)
	var interrupted error

	for _, conv := range conversations {
		if err := ctx.Err(); err != nil {
			interrupted = err
			if retryBelow < 0 {
				retryBelow = conv.UpdatedAt
			}
			break
		}
		state.ChatsSeen++
		res, err := s.upsertOne(ctx, conv)
		if err != nil {
			if ctx.Err() != nil {
				// The transaction was torn down by cancellation, not by
				// the record itself.
				interrupted = ctx.Err()
				if retryBelow < 0 {
					retryBelow = conv.UpdatedAt
				}
				break
			}
			LogWarn("%s: conversation %s not committed: %v", src.Name(), conv.ExternalID, err)
			state.Errors++
			if retryBelow < 0 {
				retryBelow = conv.UpdatedAt
			}
			continue
		}
		switch {
		case res.created:
			state.ChatsCreated++
		case res.skipped:
			state.ChatsSkipped++
		default:
			state.ChatsUpdated++
		}
		state.MessagesWritten += int64(res.messages)
		if conv.UpdatedAt > watermark {
			watermark = conv.UpdatedAt
		}
	}

	// A failed or interrupted conversation must be seen again next
	// pass, so the watermark may not reach its update time.
	if retryBelow >= 0 && watermark >= retryBelow {
		watermark = retryBelow - 1
		if !full && watermark < since {
			watermark = since
		}
	}

	state.Watermark = watermark
	state.LastRunAt = time.Now().UnixMilli()
	if err := s.store.RecordPass(context.WithoutCancel(ctx), state); err != nil {
		return err
	}

	sum.ChatsSeen += int(state.ChatsSeen)
	sum.ChatsCreated += int(state.ChatsCreated)
	sum.ChatsUpdated += int(state.ChatsUpdated)
	sum.ChatsSkipped += int(state.ChatsSkipped)
	sum.MessagesWritten += int(state.MessagesWritten)
	sum.Errors += int(state.Errors)

	LogInfo("%s: %d seen, %d created, %d updated, %d skipped, %d errors",
		src.Name(), state.ChatsSeen, state.ChatsCreated, state.ChatsUpdated,
		state.ChatsSkipped, state.Errors)
	return interrupted
}

type upsertResult struct {
	created  bool
	skipped  bool
	messages int
}

// upsertOne commits a single conversation as one transaction: workspace
// sighting, chat row, message rows, search index mirror, and file
// references all land together or not at all.
func (s *Syncer) upsertOne(ctx context.Context, conv *Conversation) (*upsertResult, error) {
	// The external id is the chat's identity; without one the upsert
	// would alias unrelated conversations onto a single row.
	if conv.ExternalID == "" {
		return nil, errors.New("conversation has no external id")
	}

	res := &upsertResult{}
	err := s.store.WithTx(ctx, func(tx *sql.Tx) error {
		existing, err := archive.GetChatTx(tx, conv.ExternalID)
		if err != nil {
			return err
		}
		// Last write wins: an older snapshot of a known conversation
		// never touches anything.
		if existing != nil && conv.UpdatedAt < existing.UpdatedAt {
			res.skipped = true
			return nil
		}

		var workspaceID *int64
		if conv.WorkspaceHash != "" {
			id, err := archive.UpsertWorkspaceTx(tx, conv.WorkspaceHash,
				conv.WorkspaceFolder, conv.WorkspacePath, conv.UpdatedAt)
			if err != nil {
				return err
			}
			workspaceID = &id
		}

		chat := &archive.Chat{
			ExternalID:    conv.ExternalID,
			WorkspaceID:   workspaceID,
			Title:         conv.Title,
			Mode:          conv.Mode,
			CreatedAt:     conv.CreatedAt,
			UpdatedAt:     conv.UpdatedAt,
			Source:        conv.Source,
			MessagesCount: len(conv.Messages),
		}
		if existing == nil {
			id, err := archive.InsertChatTx(tx, chat)
			if err != nil {
				return err
			}
			chat.ID = id
			res.created = true
		} else {
			chat.ID = existing.ID
			if chat.CreatedAt == 0 {
				chat.CreatedAt = existing.CreatedAt
			}
			if err := archive.UpdateChatTx(tx, chat); err != nil {
				return err
			}
		}

		for i := range conv.Messages {
			m := &conv.Messages[i]
			row := &archive.Message{
				ChatID:    chat.ID,
				Role:      string(m.Role),
				Kind:      string(m.Kind),
				Text:      m.Text,
				RichText:  m.RichText,
				CreatedAt: m.CreatedAt,
				NativeID:  m.NativeID,
				RawJSON:   string(m.Raw),
			}
			if m.NativeID != "" {
				id, found, err := archive.GetMessageIDTx(tx, chat.ID, m.NativeID)
				if err != nil {
					return err
				}
				if found {
					row.ID = id
					if err := archive.UpdateMessageTx(tx, row); err != nil {
						return err
					}
					res.messages++
					continue
				}
			}
			// No native id means no idempotency key; the row is
			// appended as-is.
			if _, err := archive.InsertMessageTx(tx, row); err != nil {
				return err
			}
			res.messages++
		}

		for _, path := range conv.Files {
			if err := archive.AddFileTx(tx, chat.ID, path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

package cmd

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/iksnae/chatvault/internal"
)

var (
	inspectSampleRows int
	inspectKeys       string
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [database-path]",
	Short: "Inspect the raw stores feeding the archive",
	Long: `Inspect the raw stores the archive ingests from.

Without arguments, surveys every discovered store: the editor's global
and workspace stores, agent session databases, and legacy exports, with
record counts for each. With a database path, dumps that database's
schema, key-prefix distribution, and sample rows.

Examples:
  chatvault inspect                              # Survey all discovered stores
  chatvault inspect ~/.cursor/chats/a1/b2/store.db
  chatvault inspect --sample 5 /path/to/state.vscdb
  chatvault inspect --keys 'composerData:%'      # Dump matching raw keys`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var dbPath string
		if len(args) > 0 {
			dbPath = args[0]
		}

		if inspectKeys != "" {
			if dbPath == "" {
				profile, err := loadProfile()
				if err != nil {
					return err
				}
				paths, err := profile.StoragePaths()
				if err != nil {
					return err
				}
				if !paths.GlobalStorageExists() {
					return fmt.Errorf("no global store found, pass a database path")
				}
				dbPath = paths.GetGlobalStorageDBPath()
			}
			return dumpKeys(dbPath, inspectKeys)
		}

		if dbPath != "" {
			return inspectDatabase(dbPath)
		}
		return surveyStores()
	},
}

// dumpKeys lists the raw keys matching a LIKE pattern across the
// database's key-value tables, with value sizes and previews.
func dumpKeys(dbPath, pattern string) error {
	db, err := internal.OpenSourceDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	tables, err := listTables(db)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	fmt.Printf("📋 Database: %s\n", dbPath)
	fmt.Printf("🔑 Keys matching %q\n\n", pattern)

	found := 0
	for _, table := range tables {
		columns, err := tableSchema(db, table)
		if err != nil {
			continue
		}
		hasKey, hasValue := false, false
		for _, col := range columns {
			switch col.Name {
			case "key":
				hasKey = true
			case "value":
				hasValue = true
			}
		}
		if !hasKey || !hasValue {
			continue
		}

		pairs, err := internal.QueryKVLike(db, table, pattern)
		if err != nil {
			fmt.Printf("⚠️  Error querying %s: %v\n", table, err)
			continue
		}
		for _, pair := range pairs {
			found++
			preview := pair.Value
			if idx := strings.IndexByte(preview, '\n'); idx >= 0 {
				preview = preview[:idx]
			}
			if len(preview) > 120 {
				preview = preview[:120] + "..."
			}
			fmt.Printf("%s  [%s, %d bytes]\n", pair.Key, table, len(pair.Value))
			if preview != "" {
				fmt.Printf("    %s\n", preview)
			}
		}
	}

	if found == 0 {
		fmt.Println("No matching keys")
	} else {
		fmt.Printf("\n%d key(s) matched\n", found)
	}
	return nil
}

func surveyStores() error {
	profile, err := loadProfile()
	if err != nil {
		return err
	}
	paths, err := profile.StoragePaths()
	if err != nil {
		return err
	}

	fmt.Println("📊 Store Survey")
	fmt.Println()

	// Global store: composers and their bubbles.
	fmt.Println("── Global store ──")
	if paths.GlobalStorageExists() {
		global, err := internal.OpenGlobalStore(paths.GetGlobalStorageDBPath())
		if err != nil {
			fmt.Printf("⚠️  Cannot open %s: %v\n", paths.GetGlobalStorageDBPath(), err)
		} else {
			composers, _ := global.CountKeys("composerData:%")
			bubbles, _ := global.CountKeys("bubbleId:%")
			contexts, _ := global.CountKeys("messageRequestContext:%")
			fmt.Printf("   %s\n", global.Path())
			fmt.Printf("   %d composer(s), %d bubble(s), %d request context(s)\n", composers, bubbles, contexts)
			_ = global.Close()
		}
	} else {
		fmt.Printf("   not found (%s)\n", paths.GetGlobalStorageDBPath())
	}
	fmt.Println()

	// Workspace stores: ownership registries and inline tabs.
	fmt.Println("── Workspace stores ──")
	workspaces, _ := internal.DetectWorkspaces(paths.WorkspaceStorage)
	refs, err := paths.FindWorkspaceStores()
	if err != nil {
		fmt.Printf("⚠️  Cannot scan %s: %v\n", paths.WorkspaceStorage, err)
	} else if len(refs) == 0 {
		fmt.Println("   none found")
	} else {
		for _, ref := range refs {
			ws, err := internal.OpenWorkspaceStore(ref)
			if err != nil {
				fmt.Printf("   %s  ⚠️  %v\n", ref.Hash, err)
				continue
			}
			ids, _ := ws.ComposerIDs()
			tabs, _ := ws.ChatTabs()
			_ = ws.Close()

			name := ""
			if info, ok := workspaces[ref.Hash]; ok && info.Path != "" {
				name = "  " + info.Path
			}
			fmt.Printf("   %s  %d composer(s), %d inline tab(s)%s\n", ref.Hash, len(ids), len(tabs), name)
		}
	}
	fmt.Println()

	// Agent session stores.
	fmt.Println("── Agent sessions ──")
	if paths.HasAgentStorage() {
		storeDBs, err := paths.FindAgentStoreDBs()
		if err != nil {
			fmt.Printf("⚠️  Cannot scan %s: %v\n", paths.AgentStorage, err)
		} else if len(storeDBs) == 0 {
			fmt.Println("   none found")
		} else {
			fmt.Printf("   %d session database(s) under %s\n", len(storeDBs), paths.AgentStorage)
			for i, db := range storeDBs {
				if i >= 5 {
					fmt.Printf("   ... and %d more\n", len(storeDBs)-5)
					break
				}
				fmt.Printf("   %s\n", db)
			}
		}
	} else {
		fmt.Println("   not found")
	}
	fmt.Println()

	// Legacy exports, when a directory is configured.
	if profile.LegacyDir != "" {
		fmt.Println("── Legacy exports ──")
		files, err := internal.FindLegacyChatFiles(profile.LegacyDir)
		if err != nil {
			fmt.Printf("⚠️  Cannot scan %s: %v\n", profile.LegacyDir, err)
		} else {
			fmt.Printf("   %d export file(s) under %s\n", len(files), profile.LegacyDir)
		}
		fmt.Println()
	}

	fmt.Printf("💡 Tip: `chatvault inspect <database-path>` dumps one database's schema\n")
	return nil
}

func inspectDatabase(dbPath string) error {
	db, err := internal.OpenSourceDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	tables, err := listTables(db)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	if len(tables) == 0 {
		fmt.Println("⚠️  No tables found in database")
		return nil
	}

	fmt.Printf("📋 Database: %s\n", dbPath)
	fmt.Printf("📊 Found %d table(s)\n\n", len(tables))

	for _, table := range tables {
		if err := inspectTable(db, table); err != nil {
			fmt.Printf("⚠️  Error inspecting table %s: %v\n", table, err)
			continue
		}
		fmt.Println()
	}
	return nil
}

func listTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			continue
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func inspectTable(db *sql.DB, table string) error {
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("📦 Table: %s\n", table)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")

	var rowCount int
	if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&rowCount); err != nil {
		return fmt.Errorf("failed to get row count: %w", err)
	}
	fmt.Printf("📊 Rows: %d\n\n", rowCount)

	columns, err := tableSchema(db, table)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}

	fmt.Printf("📐 Schema:\n")
	keyColumn := false
	for _, col := range columns {
		pk := ""
		if col.PrimaryKey {
			pk = " [PRIMARY KEY]"
		}
		if col.Name == "key" {
			keyColumn = true
		}
		fmt.Printf("  • %s: %s%s\n", col.Name, col.Type, pk)
	}
	fmt.Println()

	// Key-value tables carry their structure in the key namespace, not
	// the schema. The prefix histogram is what actually distinguishes
	// composers from bubbles from contexts.
	if keyColumn && rowCount > 0 {
		if err := showKeyPrefixes(db, table); err != nil {
			fmt.Printf("⚠️  Error reading key prefixes: %v\n", err)
		}
	}

	if rowCount > 0 && inspectSampleRows > 0 {
		if err := showSampleRows(db, table, columns, inspectSampleRows); err != nil {
			fmt.Printf("⚠️  Error showing sample rows: %v\n", err)
		}
	}
	return nil
}

type columnInfo struct {
	Name       string
	Type       string
	PrimaryKey bool
}

func tableSchema(db *sql.DB, table string) ([]columnInfo, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []columnInfo
	for rows.Next() {
		var col columnInfo
		var cid, notNull, pk int
		var defaultValue sql.NullString
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &defaultValue, &pk); err != nil {
			continue
		}
		col.PrimaryKey = pk == 1
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func showKeyPrefixes(db *sql.DB, table string) error {
	rows, err := db.Query(fmt.Sprintf("SELECT key FROM %s", table))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			continue
		}
		prefix := key
		if i := strings.IndexByte(key, ':'); i >= 0 {
			prefix = key[:i+1]
		}
		counts[prefix]++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	prefixes := make([]string, 0, len(counts))
	for p := range counts {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		if counts[prefixes[i]] != counts[prefixes[j]] {
			return counts[prefixes[i]] > counts[prefixes[j]]
		}
		return prefixes[i] < prefixes[j]
	})

	fmt.Printf("🔑 Key prefixes:\n")
	for i, p := range prefixes {
		if i >= 10 {
			fmt.Printf("  ... and %d more\n", len(prefixes)-10)
			break
		}
		fmt.Printf("  • %-40s %d\n", p, counts[p])
	}
	fmt.Println()
	return nil
}

func showSampleRows(db *sql.DB, table string, columns []columnInfo, limit int) error {
	if len(columns) == 0 {
		return nil
	}

	colNames := make([]string, len(columns))
	for i, col := range columns {
		colNames[i] = col.Name
	}

	query := fmt.Sprintf("SELECT %s FROM %s LIMIT %d", strings.Join(colNames, ", "), table, limit)
	rows, err := db.Query(query)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	fmt.Printf("📄 Sample rows (first %d):\n", limit)
	rowNum := 0
	for rows.Next() {
		rowNum++
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			fmt.Printf("  ⚠️  Row %d: error scanning: %v\n", rowNum, err)
			continue
		}

		fmt.Printf("\n  Row %d:\n", rowNum)
		for i, col := range columns {
			val := values[i]
			var valStr string
			if val == nil {
				valStr = "<NULL>"
			} else {
				valStr = fmt.Sprintf("%v", val)
				if len(valStr) > 200 {
					valStr = valStr[:200] + "..."
				}
				if idx := strings.IndexByte(valStr, '\n'); idx >= 0 {
					valStr = valStr[:idx] + "..."
				}
			}
			fmt.Printf("    %s: %s\n", col.Name, valStr)
		}
	}
	return rows.Err()
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().IntVar(&inspectSampleRows, "sample", 3, "Number of sample rows to show per table")
	inspectCmd.Flags().StringVar(&inspectKeys, "keys", "", "Dump raw keys matching this LIKE pattern")
}

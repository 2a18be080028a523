package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

// Read-only view over a groupchat Badger store. Useful to check what
// the engine actually persisted without starting the server.
func main() {
	dbPath := flag.String("db", "/tmp/groupchat", "Path to badger DB")
	// Messages by default; index keys (user:name:, room:name:) are skipped.
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg:, room:id:, user:id:, member:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(
		fmt.Sprintf("  ====== groupchat store: %s (%s) ======", *dbPath, *prefix)))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Kind", "Timestamp", "Author", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			// Name indexes hold raw ids, not JSON records.
			if strings.HasPrefix(key, "user:name:") || strings.HasPrefix(key, "room:name:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				kind, at, author, detail := describe(key, v)
				table.Append([]string{key, kind, at, author, detail})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

// describe decodes one record into table columns based on its key
// prefix. Undecodable values are shown raw rather than aborting the
// whole scan.
func describe(key string, value []byte) (kind, at, author, detail string) {
	switch {
	case strings.HasPrefix(key, "msg:"):
		var m struct {
			AuthorName  string    `json:"username"`
			Content     string    `json:"content"`
			IsAI        bool      `json:"is_ai"`
			TriggeredBy string    `json:"triggered_by"`
			CreatedAt   time.Time `json:"created_at"`
		}
		if err := json.Unmarshal(value, &m); err != nil {
			return "MSG", "", "", fmt.Sprintf("undecodable: %v", err)
		}
		kind = "MSG"
		if m.IsAI {
			kind = "AI"
			m.AuthorName = fmt.Sprintf("%s (for %s)", m.AuthorName, m.TriggeredBy)
		}
		return kind, m.CreatedAt.Format("15:04:05"), m.AuthorName, truncate(m.Content, 60)

	case strings.HasPrefix(key, "room:id:"):
		var r struct {
			Name      string    `json:"name"`
			IsPrivate bool      `json:"is_private"`
			CreatedAt time.Time `json:"created_at"`
		}
		if err := json.Unmarshal(value, &r); err != nil {
			return "ROOM", "", "", fmt.Sprintf("undecodable: %v", err)
		}
		visibility := "public"
		if r.IsPrivate {
			visibility = "private"
		}
		return "ROOM", r.CreatedAt.Format("15:04:05"), "", fmt.Sprintf("%s (%s)", r.Name, visibility)

	case strings.HasPrefix(key, "user:id:"):
		var u struct {
			Username  string    `json:"username"`
			CreatedAt time.Time `json:"created_at"`
		}
		if err := json.Unmarshal(value, &u); err != nil {
			return "USER", "", "", fmt.Sprintf("undecodable: %v", err)
		}
		return "USER", u.CreatedAt.Format("15:04:05"), u.Username, ""

	case strings.HasPrefix(key, "member:") || strings.HasPrefix(key, "memberof:"):
		var m struct {
			Role string `json:"role"`
		}
		_ = json.Unmarshal(value, &m)
		return "MEMBER", "", "", m.Role

	default:
		return "?", "", "", truncate(string(value), 60)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		// A crashed server can leave the value log in need of a
		// truncate, which only a writable open performs.
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}
			db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}

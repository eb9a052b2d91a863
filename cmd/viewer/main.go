// Viewer is a read-only inspector for the document store. It opens the
// same badger directory as a running app (BypassLockGuard) and prints
// every document of a collection, newest insertion last.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

type envelope struct {
	Seq    uint64         `json:"seq"`
	Fields map[string]any `json:"fields"`
}

func main() {
	dbPath := flag.String("db", "", "Path to badger DB")
	collection := flag.String("collection", "matches", "Collection to dump")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("Missing -db path")
	}

	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Seq", "ID", "Fields"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	type row struct {
		seq    uint64
		id     string
		fields string
	}
	var rows []row

	prefix := []byte("doc:" + *collection + ":")
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(prefix):])

			err := item.Value(func(v []byte) error {
				var env envelope
				if err := json.Unmarshal(v, &env); err != nil {
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}
				rows = append(rows, row{seq: env.Seq, id: id, fields: summarize(env.Fields)})
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

	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	for _, r := range rows {
		table.Append([]string{fmt.Sprintf("%d", r.seq), r.id, r.fields})
	}

	color.Cyan.Printf("%s (%d documents)\n", *collection, len(rows))
	table.Render()
}

// summarize flattens a document to one line, decoding the persisted
// microsecond timestamps back to something readable.
func summarize(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, format(k, fields[k])))
	}
	return strings.Join(parts, " ")
}

func format(key string, value any) string {
	if n, ok := value.(float64); ok && looksLikeTimestamp(key) {
		return time.UnixMicro(int64(n)).UTC().Format(time.RFC3339)
	}
	if value == nil {
		return "null"
	}
	return fmt.Sprintf("%v", value)
}

func looksLikeTimestamp(key string) bool {
	lower := strings.ToLower(key)
	return strings.HasSuffix(lower, "at") || strings.Contains(lower, "time") || lower == "timestamp"
}

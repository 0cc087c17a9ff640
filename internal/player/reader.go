package player

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"
)

// Entry is one bag message, already joined against its topic name —
// the player's in-memory counterpart to internal/recorder's bagEntry.
type Entry struct {
	Topic   string
	Payload []byte
	TSNano  int64
}

// bagMetadata mirrors only the fields the player needs out of the
// metadata.yaml internal/recorder.BagWriter writes (the "ROS 2 bag v9"
// layout) — the list of relative data-file paths.
type bagMetadata struct {
	Info struct {
		RelativeFilePaths []string `yaml:"relative_file_paths"`
	} `yaml:"rosbag2_bagfile_information"`
}

// readBag loads every message out of dir's bag, in the bag reader's
// own row order (insertion order, per the `messages.id` autoincrement
// internal/recorder.BagWriter relies on), which is the order replay
// emits them in.
func readBag(dir string) ([]Entry, error) {
	metaPath := filepath.Join(dir, "metadata.yaml")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("player: read %s: %w", metaPath, err)
	}

	var meta bagMetadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("player: parse %s: %w", metaPath, err)
	}
	if len(meta.Info.RelativeFilePaths) == 0 {
		return nil, fmt.Errorf("player: %s lists no data files", metaPath)
	}

	var entries []Entry
	for _, rel := range meta.Info.RelativeFilePaths {
		rows, err := readDataFile(filepath.Join(dir, rel))
		if err != nil {
			return nil, err
		}
		entries = append(entries, rows...)
	}
	return entries, nil
}

// readDataFile reads one <bag-name>_N.db3 SQLite data file, joining
// messages against topics for the topic name.
func readDataFile(dbPath string) ([]Entry, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("player: open %s: %w", dbPath, err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT topics.name, messages.timestamp, messages.data
		FROM messages
		JOIN topics ON topics.id = messages.topic_id
		ORDER BY messages.id
	`)
	if err != nil {
		return nil, fmt.Errorf("player: query %s: %w", dbPath, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Topic, &e.TSNano, &e.Payload); err != nil {
			return nil, fmt.Errorf("player: scan %s: %w", dbPath, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

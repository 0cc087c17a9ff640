package recorder

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// bagMetadata mirrors the "ROS 2 bag v9" metadata.yaml top-level
// shape, so that external bag-inspection tooling built
// against that convention can read a Tide recording's topic list,
// message counts, and time span without understanding Tide at all.
type bagMetadata struct {
	Info bagInfo `yaml:"rosbag2_bagfile_information"`
}

type bagInfo struct {
	Version                int              `yaml:"version"`
	StorageIdentifier       string           `yaml:"storage_identifier"`
	RelativeFilePaths       []string         `yaml:"relative_file_paths"`
	Duration                durationNanos    `yaml:"duration"`
	StartingTime            startingTime     `yaml:"starting_time"`
	MessageCount            int64            `yaml:"message_count"`
	TopicsWithMessageCount  []topicWithCount `yaml:"topics_with_message_count"`
	CompressionFormat       string           `yaml:"compression_format"`
	CompressionMode         string           `yaml:"compression_mode"`
	BagID                   string           `yaml:"bag_id"`
}

type durationNanos struct {
	Nanoseconds int64 `yaml:"nanoseconds"`
}

type startingTime struct {
	NanosecondsSinceEpoch int64 `yaml:"nanoseconds_since_epoch"`
}

type topicWithCount struct {
	TopicMetadata topicMetadata `yaml:"topic_metadata"`
	MessageCount  int64         `yaml:"message_count"`
}

type topicMetadata struct {
	Name                string `yaml:"name"`
	Type                string `yaml:"type"`
	SerializationFormat string `yaml:"serialization_format"`
	OfferedQosProfiles  string `yaml:"offered_qos_profiles"`
}

// writeMetadata writes metadata.yaml into the bag directory, summarizing
// every topic seen and the recording's overall time span. Called once,
// from Close, after the writer goroutine has fully drained.
func (w *BagWriter) writeMetadata() error {
	w.mu.Lock()
	var total int64
	topics := make([]topicWithCount, 0, len(w.counts))
	for topic, count := range w.counts {
		total += count
		topics = append(topics, topicWithCount{
			TopicMetadata: topicMetadata{
				Name:                topic,
				Type:                "bytes",
				SerializationFormat: rawSerializationFormat,
			},
			MessageCount: count,
		})
	}
	meta := bagMetadata{Info: bagInfo{
		Version:           bagSchemaVersion,
		StorageIdentifier: "sqlite3",
		RelativeFilePaths: []string{filepath.Base(w.dbPath)},
		Duration:          durationNanos{Nanoseconds: w.endNano - w.startNano},
		StartingTime:      startingTime{NanosecondsSinceEpoch: w.startNano},
		MessageCount:            total,
		TopicsWithMessageCount:  topics,
		CompressionFormat:       "",
		CompressionMode:         "none",
		BagID:                   w.bagID,
	}}
	w.mu.Unlock()

	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata.yaml: %w", err)
	}

	path := filepath.Join(w.dir, "metadata.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

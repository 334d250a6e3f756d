package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ClareAI/astra-message-service/internal/domain"
	"github.com/ClareAI/astra-message-service/pkg/gcs"
	"github.com/ClareAI/astra-message-service/pkg/logger"
	"go.uber.org/zap"
)

const tmpStoragePath = "/tmp"

// AudioStore manages transient voice-note payloads in a scratch directory,
// with an optional asynchronous archive to GCS. Scratch files are named by
// the correlation id so a redelivered webhook overwrites rather than
// accumulates.
type AudioStore struct {
	scratchDir string
	maxBytes   int64

	archiveEnabled bool
	gcsClient      *gcs.GCSClient
}

// NewAudioStore creates the scratch directory (under /tmp when a relative
// path is given) and, when archiveBucket is non-empty, a GCS archive client.
// Archive setup failure disables archiving but never fails store creation.
func NewAudioStore(ctx context.Context, scratchDir string, maxBytes int64, archiveBucket string) (*AudioStore, error) {
	if scratchDir == "" {
		scratchDir = "astra-audio"
	}
	if !filepath.IsAbs(scratchDir) {
		scratchDir = filepath.Join(tmpStoragePath, scratchDir)
	}
	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %v", err)
	}

	store := &AudioStore{
		scratchDir: scratchDir,
		maxBytes:   maxBytes,
	}

	if archiveBucket != "" {
		gcsClient, err := gcs.NewGCSClient(ctx, archiveBucket)
		if err != nil {
			logger.Base().Warn("failed to create GCS archive client, archiving disabled",
				zap.Error(err),
				zap.String("bucket", archiveBucket))
		} else {
			store.gcsClient = gcsClient
			store.archiveEnabled = true
			logger.Base().Info("audio archive enabled", zap.String("bucket", archiveBucket))
		}
	}

	logger.Base().Info("audio store initialized",
		zap.String("scratch_dir", scratchDir),
		zap.Int64("max_bytes", maxBytes))
	return store, nil
}

// ValidateSize fails with AudioTooLargeError when the payload exceeds the
// configured ceiling. A payload of exactly the ceiling passes.
func (s *AudioStore) ValidateSize(payload []byte) error {
	if int64(len(payload)) > s.maxBytes {
		return domain.NewAudioTooLargeError(
			fmt.Sprintf("audio file too large (limit %d MB)", s.maxBytes/(1024*1024)))
	}
	return nil
}

// Save persists payload under the correlation id and returns the file path.
func (s *AudioStore) Save(correlationID string, payload []byte) (string, error) {
	path := s.Path(correlationID)
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return "", fmt.Errorf("failed to write scratch audio: %v", err)
	}
	logger.Base().Debug("scratch audio written",
		zap.String("path", path),
		zap.Int("bytes", len(payload)))
	return path, nil
}

// Path returns the scratch location for a correlation id.
func (s *AudioStore) Path(correlationID string) string {
	return filepath.Join(s.scratchDir, correlationID+".ogg")
}

// Remove deletes the scratch file for a correlation id. Best effort: a
// missing file or failed deletion is logged and swallowed.
func (s *AudioStore) Remove(correlationID string) {
	path := s.Path(correlationID)
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			logger.Base().Warn("failed to remove scratch audio",
				zap.String("path", path),
				zap.Error(err))
		}
		return
	}
	logger.Base().Debug("scratch audio removed", zap.String("path", path))
}

// Archive uploads the payload to the configured GCS bucket in the background.
// Failures are logged, never surfaced to the processing pass.
func (s *AudioStore) Archive(correlationID string, payload []byte) {
	if !s.archiveEnabled {
		return
	}
	data := make([]byte, len(payload))
	copy(data, payload)

	go func() {
		objectPath := fmt.Sprintf("voice-notes/%s.ogg", correlationID)
		url, err := s.gcsClient.UploadBytes(context.Background(), objectPath, data)
		if err != nil {
			logger.Base().Warn("failed to archive voice note",
				zap.String("correlation_id", correlationID),
				zap.Error(err))
			return
		}
		logger.Base().Info("voice note archived",
			zap.String("correlation_id", correlationID),
			zap.String("url", url))
	}()
}

// Close releases the archive client if one was created.
func (s *AudioStore) Close() error {
	if s.gcsClient != nil {
		return s.gcsClient.Close()
	}
	return nil
}

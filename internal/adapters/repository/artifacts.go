package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/phonoecho/pkg/logger"
)

// Artifacts are the paths of one attempt's raw files.
type Artifacts struct {
	AudioPath  string
	ResultPath string
	At         time.Time
}

// SaveRecording writes the canonical WAV of an attempt as
// <day>/<selection>-<YYYY-MM-DD_HH-MM-SS>.wav.
func (r *FileRepository) SaveRecording(ctx context.Context, user, selection string, wav []byte) (Artifacts, error) {
	at := r.now()
	base := r.layout.ArtifactBase(user, selection, at)
	a := Artifacts{AudioPath: base + ".wav", ResultPath: base + ".json", At: at}
	if err := os.MkdirAll(filepath.Dir(base), dirPerm); err != nil {
		return a, err
	}
	if err := writeAtomic(a.AudioPath, wav); err != nil {
		return a, fmt.Errorf("save recording: %w", err)
	}
	r.log.Debug(ctx, "recording saved", logger.String("path", a.AudioPath), logger.Int("bytes", len(wav)))
	return a, nil
}

// SaveResult writes the raw assessment response next to its recording,
// re-indented when it is valid JSON.
func (r *FileRepository) SaveResult(ctx context.Context, a Artifacts, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err == nil {
		raw = buf.Bytes()
	}
	if err := writeAtomic(a.ResultPath, raw); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	r.log.Debug(ctx, "result saved", logger.String("path", a.ResultPath))
	return nil
}

// PracticeDays lists the user's practice days, oldest first.
func (r *FileRepository) PracticeDays(_ context.Context, user string) ([]string, error) {
	entries, err := os.ReadDir(r.layout.PracticeDir(user))
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	days := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(dayLayout, e.Name()); err == nil {
			days = append(days, e.Name())
		}
	}
	return days, nil
}

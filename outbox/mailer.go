// Package outbox hands exported files to the external mail client by dropping them, with a JSON
// manifest, into a directory the client picks up from.
package outbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mmdatafocus/fieldsales_backend/utils"
)

const ManifestName = "manifest.json"

// Manifest describes one message waiting in the outbox.
type Manifest struct {
	ID                 string    `json:"id"`
	Subject            string    `json:"subject"`
	Files              []string  `json:"files"`
	RepresentativeCode string    `json:"representative_code,omitempty"`
	RunID              string    `json:"run_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// DirMailer implements the mail collaborator on top of a directory.
type DirMailer struct {
	Dir    string
	Logger *logrus.Logger
	now    func() time.Time
}

func NewDirMailer(dir string, logger *logrus.Logger) *DirMailer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DirMailer{Dir: dir, Logger: logger, now: time.Now}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func slug(s string) string {
	s = strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSpace(s), "-"), "-")
	if len(s) > 48 {
		s = s[:48]
	}
	if s == "" {
		return "message"
	}
	return s
}

// Send copies files into a new message directory and writes its manifest last, so a client
// that waits for the manifest never sees a half-written message.
func (m *DirMailer) Send(ctx context.Context, files []string, subject string) error {
	if len(files) == 0 {
		return fmt.Errorf("outbox: nothing to send")
	}
	now := m.now()
	manifest := Manifest{
		ID:        uuid.NewString(),
		Subject:   subject,
		CreatedAt: now.UTC(),
	}
	manifest.RepresentativeCode, _ = utils.GetRepresentativeCodeFromContext(ctx)
	manifest.RunID, _ = utils.GetRunIdFromContext(ctx)

	msgDir := filepath.Join(m.Dir, now.UTC().Format("20060102T150405Z")+"-"+slug(subject))
	if err := os.MkdirAll(msgDir, 0o750); err != nil {
		return fmt.Errorf("outbox: create message dir: %w", err)
	}
	for _, src := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := filepath.Base(src)
		if err := copyFile(src, filepath.Join(msgDir, name)); err != nil {
			return fmt.Errorf("outbox: copy %s: %w", name, err)
		}
		manifest.Files = append(manifest.Files, name)
	}
	if err := utils.WriteJSONFile(filepath.Join(msgDir, ManifestName), manifest); err != nil {
		return fmt.Errorf("outbox: write manifest: %w", err)
	}

	m.Logger.WithFields(logrus.Fields{
		"module":  "outbox",
		"dir":     msgDir,
		"subject": subject,
		"files":   manifest.Files,
	}).Info("message queued for the mail client")
	return nil
}

// Pending lists the manifests waiting in the outbox, oldest first.
func (m *DirMailer) Pending() ([]Manifest, error) {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Manifest
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.Dir, e.Name(), ManifestName))
		if err != nil {
			continue
		}
		var man Manifest
		if err := utils.UnmarshalFromJSON(data, &man); err != nil {
			m.Logger.WithError(err).WithField("dir", e.Name()).Warn("unreadable outbox manifest")
			continue
		}
		out = append(out, man)
	}
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(filepath.Clean(dst))
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

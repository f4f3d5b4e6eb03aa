package vpn

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// DefaultStatusFile is where OpenVPN writes its status export by default.
const DefaultStatusFile = "/var/log/openvpn-status.log"

// ErrStatusLogMissing is returned when the status export does not exist.
var ErrStatusLogMissing = errors.New("vpn status file not found")

// PeerSource yields the current peer table. The flat status file is one
// implementation; a management-socket client could be another.
type PeerSource interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// FileSource reads the OpenVPN status export from disk on every call.
type FileSource struct {
	Path string
	// Location interprets textual timestamps that carry no time_t column.
	Location *time.Location
}

// NewFileSource returns a FileSource for path (DefaultStatusFile when empty).
func NewFileSource(path string, loc *time.Location) *FileSource {
	if path == "" {
		path = DefaultStatusFile
	}
	return &FileSource{Path: path, Location: loc}
}

// Snapshot parses the file. A missing file yields ErrStatusLogMissing.
func (s *FileSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	before, err := os.Stat(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrStatusLogMissing, s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("stat vpn status file: %w", err)
	}

	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStatusLogMissing, s.Path)
		}
		return nil, fmt.Errorf("open vpn status file: %w", err)
	}
	defer f.Close()

	snap, err := ParseStatus(f, s.Location)
	if err != nil {
		return nil, fmt.Errorf("read vpn status file: %w", err)
	}

	snap.ModTime = before.ModTime()
	snap.Size = before.Size()
	if after, err := os.Stat(s.Path); err == nil {
		snap.ChangedDuringRead = !after.ModTime().Equal(before.ModTime())
		snap.ModTime = after.ModTime()
		snap.Size = after.Size()
	}
	return snap, nil
}

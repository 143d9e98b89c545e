package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"

	"github.com/jmylchreest/camvault/internal/models"
)

// SourceDevice describes the removable volume (or local directory) a source
// root lives on, used to populate models.IngestSession's optional device
// fields. The rescan gate does not compare these fields.
type SourceDevice struct {
	MountPoint string
	Label      string
	Filesystem string
}

// DetectSourceDevice finds the mounted partition that contains sourceRoot by
// picking the longest matching mountpoint prefix among all mounted
// partitions, mirroring how `df` resolves a path to its filesystem. Returns
// a zero-value SourceDevice (not an error) when no partition matches -
// sources on unusual mounts or under test fixtures are not a failure, just
// undetected.
func DetectSourceDevice(ctx context.Context, sourceRoot string) (SourceDevice, error) {
	abs, err := filepath.Abs(sourceRoot)
	if err != nil {
		return SourceDevice{}, err
	}

	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return SourceDevice{}, err
	}

	var best disk.PartitionStat
	bestLen := -1
	for _, part := range partitions {
		mount := filepath.Clean(part.Mountpoint)
		if mount == "" {
			continue
		}
		if abs != mount && !strings.HasPrefix(abs, mount+string(filepath.Separator)) {
			continue
		}
		if len(mount) > bestLen {
			best = part
			bestLen = len(mount)
		}
	}

	if bestLen < 0 {
		return SourceDevice{}, nil
	}

	return SourceDevice{
		MountPoint: best.Mountpoint,
		Label:      best.Device,
		Filesystem: best.Fstype,
	}, nil
}

// ApplyToSession copies detected device info onto a session's optional
// device fields, leaving them blank if detection found nothing - spec.md
// defines deviceLabel/deviceMountPoint as optional precisely for this case.
func (d SourceDevice) ApplyToSession(session *models.IngestSession) {
	if d.MountPoint != "" {
		session.DeviceMountPoint = d.MountPoint
	}
	if d.Label != "" {
		session.DeviceLabel = d.Label
	}
}

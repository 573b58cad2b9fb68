package scanService

import (
	"TailorScan/internal/api/scan"
	contextPkg "TailorScan/pkg/context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const defaultRetentionDays = 90

// Run archives finished sessions older than the retention window to object
// storage and purges the archived rows. Live sessions are never swept, and
// rows are only purged after the archive upload succeeded.
func (r *retentionDomainImpl) Run(c context.Context) (scan.RetentionRunResponse, error) {
	requestID := contextPkg.GetRequestID(c)

	days := defaultRetentionDays
	if v := os.Getenv("SCAN_RETENTION_DAYS"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"value":      v,
			}).Warn("Invalid SCAN_RETENTION_DAYS, using default")
		} else {
			days = parsed
		}
	}

	now := time.Now()
	cutoff := now.AddDate(0, 0, -days)

	repo, err := r.repo.NewClient(false)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return scan.RetentionRunResponse{}, err
	}

	sessions, err := repo.Session.GetPurgeableSessions(c, cutoff, now)
	if err != nil {
		return scan.RetentionRunResponse{}, err
	}

	if len(sessions) == 0 {
		return scan.RetentionRunResponse{}, nil
	}

	// Rows that ran out their timer without ever being read again still
	// hold pending or processing; the archive records what they became.
	for i := range sessions {
		sessions[i].Status = sessions[i].EffectiveStatus(now)
	}

	body, err := json.Marshal(sessions)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to encode retention archive")
		return scan.RetentionRunResponse{}, err
	}

	key := fmt.Sprintf("scan-archives/%s.json", now.UTC().Format("20060102T150405Z"))
	location, err := r.s3Client.UploadArchive(key, body)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to upload retention archive")
		return scan.RetentionRunResponse{}, err
	}

	purged, err := repo.Session.DeletePurgeableSessions(c, cutoff, now)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Archived sessions but failed to purge rows")
		return scan.RetentionRunResponse{Archived: len(sessions), Location: location}, err
	}

	r.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"archived":   len(sessions),
		"purged":     purged,
		"location":   location,
	}).Info("Retention run finished")

	return scan.RetentionRunResponse{
		Archived: len(sessions),
		Purged:   int(purged),
		Location: location,
	}, nil
}

package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/quantship/contractd/internal/domain"
)

// minPartSize is the minimum allowed part size for S3 multipart uploads (5 MiB).
const minPartSize int64 = 5 * 1024 * 1024

// Archiver implements domain.SnapshotArchiver by serializing the final
// snapshot of a contract to JSON and uploading it to the configured bucket
// under contracts/{yyyy-mm-dd}/{id}.json. The archive is written before the
// contract is deleted from the durable store, giving operators a post-hoc
// record of settled contracts.
type Archiver struct {
	client *s3.Client
	bucket string
}

// NewArchiver creates an Archiver that uploads into the client's bucket.
func NewArchiver(c *Client) *Archiver {
	return &Archiver{
		client: c.S3(),
		bucket: c.Bucket(),
	}
}

// Archive uploads the snapshot as a single PutObject request.
func (a *Archiver) Archive(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("s3blob: marshal snapshot %s: %w", snap.ID, err)
	}

	key := archiveKey(snap.ID, time.Now().UTC())
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put object %s: %w", key, err)
	}
	return nil
}

// ArchiveBatch uploads a JSONL file of many snapshots in one multipart
// upload, for bulk exports of the contracts table.
func (a *Archiver) ArchiveBatch(ctx context.Context, key string, snaps []domain.Snapshot) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, snap := range snaps {
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("s3blob: encode snapshot %s: %w", snap.ID, err)
		}
	}

	uploader := manager.NewUploader(a.client, func(u *manager.Uploader) {
		u.PartSize = minPartSize
	})

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        &buf,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: multipart upload %s: %w", key, err)
	}
	return nil
}

func archiveKey(id string, now time.Time) string {
	return fmt.Sprintf("contracts/%s/%s.json", now.Format("2006-01-02"), id)
}

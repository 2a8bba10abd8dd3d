// Package storage issues time-limited S3 URLs for request images. Objects
// are never proxied through this service; clients upload and download
// directly against the presigned URLs.
package storage

import (
	"context"
	"fmt"
	"time"

	"helpconnect/internal/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type ImageStorage struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
}

func NewImageStorage(client *s3.Client, bucket string, ttl time.Duration) *ImageStorage {
	return &ImageStorage{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		ttl:     ttl,
	}
}

// UploadTicket is what a client needs to PUT one image.
type UploadTicket struct {
	UploadURL   string `json:"uploadUrl"`
	ImageKey    string `json:"imageKey"`
	ImageID     string `json:"image_id"`
	ContentType string `json:"content_type"`
}

// PresignUpload issues a PUT URL for a fresh image key. Keys for images tied
// to a request live under requests/<request_id>/; loose uploads go under
// uploads/.
func (s *ImageStorage) PresignUpload(ctx context.Context, requestID, contentType string) (*UploadTicket, error) {
	if contentType == "" {
		contentType = "image/jpeg"
	}

	ext := "jpg"
	if contentType == "image/png" {
		ext = "png"
	}

	imageID := utils.NanoID()

	imageKey := fmt.Sprintf("uploads/%s.%s", imageID, ext)
	if requestID != "" {
		imageKey = fmt.Sprintf("requests/%s/%s.%s", requestID, imageID, ext)
	}

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(imageKey),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("presign upload for %s: %w", imageKey, err)
	}

	return &UploadTicket{
		UploadURL:   req.URL,
		ImageKey:    imageKey,
		ImageID:     imageID,
		ContentType: contentType,
	}, nil
}

// PresignView issues a GET URL for an existing image key.
func (s *ImageStorage) PresignView(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign view for %s: %w", key, err)
	}

	return req.URL, nil
}

// ListRequestImages returns the object keys stored under a request's prefix.
func (s *ImageStorage) ListRequestImages(ctx context.Context, requestID string) ([]string, error) {
	prefix := fmt.Sprintf("requests/%s/", requestID)

	var keys []string
	var continuation *string

	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("list images for request %s: %w", requestID, err)
		}

		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}

		if out.NextContinuationToken == nil {
			break
		}
		continuation = out.NextContinuationToken
	}

	return keys, nil
}

func (s *ImageStorage) DeleteImage(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete image %s: %w", key, err)
	}

	return nil
}

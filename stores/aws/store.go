package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"youngin-studio/core"
)

const keyPrefix = "designs"

// s3API is the subset of the S3 client the store uses.
type s3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Store struct {
	s3Client s3API
	bucket   string
}

// NewStore creates a new S3-based store using the default AWS configuration chain.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}
	return newStore(s3.NewFromConfig(cfg), bucketName)
}

func newStore(client s3API, bucketName string) *s3Store {
	return &s3Store{s3Client: client, bucket: bucketName}
}

// getDesignKey builds designs/<userID>/<id>.json, refusing ids that are paths.
func (s *s3Store) getDesignKey(userID, id string) (string, error) {
	for _, part := range []string{userID, id} {
		if part == "" || part == "." || part == ".." || path.Base(part) != part {
			return "", fmt.Errorf("invalid key component %q: must be a plain name", part)
		}
	}
	return path.Join(keyPrefix, userID, id+".json"), nil
}

func (s *s3Store) Save(ctx context.Context, design *core.Design) (string, error) {
	id := ulid.Make().String()
	key, err := s.getDesignKey(design.UserID, id)
	if err != nil {
		return "", err
	}

	stored := *design
	stored.ID = id
	now := time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.LastModified = now

	data, err := json.Marshal(&stored)
	if err != nil {
		return "", fmt.Errorf("failed to marshal design: %w", err)
	}
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to save design %s: %w", id, err)
	}

	logrus.WithFields(logrus.Fields{"user_id": design.UserID, "design_id": id, "key": key}).Info("Design saved successfully")
	return id, nil
}

func (s *s3Store) ListByOwner(ctx context.Context, userID string) ([]*core.Design, error) {
	if _, err := s.getDesignKey(userID, "x"); err != nil {
		return nil, err
	}
	log := logrus.WithField("user_id", userID)
	prefix := path.Join(keyPrefix, userID) + "/"

	designs := []*core.Design{}
	pages := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list designs for user %s: %w", userID, err)
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}
			design, err := s.read(ctx, key)
			if err != nil {
				log.WithError(err).WithField("key", key).Warn("Failed to read design, skipping")
				continue
			}
			designs = append(designs, design.Summary())
		}
	}
	core.SortNewestFirst(designs)

	log.Infof("Listed %d designs", len(designs))
	return designs, nil
}

func (s *s3Store) Get(ctx context.Context, userID, id string) (*core.Design, error) {
	key, err := s.getDesignKey(userID, id)
	if err != nil {
		return nil, err
	}
	design, err := s.read(ctx, key)
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", core.ErrDesignNotFound, id)
		}
		return nil, fmt.Errorf("failed to get design %s: %w", id, err)
	}
	return design, nil
}

func (s *s3Store) read(ctx context.Context, key string) (*core.Design, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read design data: %w", err)
	}
	var design core.Design
	if err := json.Unmarshal(data, &design); err != nil {
		return nil, fmt.Errorf("failed to unmarshal design data: %w", err)
	}
	return &design, nil
}

// Delete removes a design. S3 deletes are idempotent, so existence is checked first.
func (s *s3Store) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	key, _ := s.getDesignKey(userID, id)
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete design %s: %w", id, err)
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id}).Info("Design deleted successfully")
	return nil
}

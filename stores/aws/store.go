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
	"sort"
	"time"

	"github.com/Pabi691/custom-clothology/core"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

// ObjectAPI is the subset of the S3 client the store uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type s3Store struct {
	s3Client ObjectAPI
	bucket   string
}

// NewStore creates a new S3-based store using the default AWS config chain.
func NewStore(bucketName string) *s3Store {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}
	return NewStoreWithClient(s3.NewFromConfig(cfg), bucketName)
}

// NewStoreWithClient creates a store on an existing client.
func NewStoreWithClient(client ObjectAPI, bucketName string) *s3Store {
	return &s3Store{s3Client: client, bucket: bucketName}
}

func designKey(ownerID, id string) (string, error) {
	if err := core.CheckDesignID(ownerID); err != nil {
		return "", err
	}
	if err := core.CheckDesignID(id); err != nil {
		return "", err
	}
	return path.Join("designs", ownerID, id+".json"), nil
}

func (s *s3Store) List(ctx context.Context, ownerID string) ([]*core.Design, error) {
	if err := core.CheckDesignID(ownerID); err != nil {
		return nil, err
	}
	prefix := path.Join("designs", ownerID) + "/"

	designs := []*core.Design{}
	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list designs for owner %s: %w", ownerID, err)
		}
		for _, object := range page.Contents {
			d, err := s.read(ctx, aws.ToString(object.Key))
			if err != nil {
				logrus.WithField("key", aws.ToString(object.Key)).WithError(err).Warn("Failed to read design object, skipping")
				continue
			}
			designs = append(designs, d.Summary())
		}
	}
	sort.Slice(designs, func(i, j int) bool {
		return designs[i].UpdatedAt.After(designs[j].UpdatedAt)
	})
	return designs, nil
}

func (s *s3Store) Get(ctx context.Context, ownerID, id string) (*core.Design, error) {
	key, err := designKey(ownerID, id)
	if err != nil {
		return nil, err
	}
	d, err := s.read(ctx, key)
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", core.ErrDesignNotFound, id)
		}
		return nil, fmt.Errorf("failed to get design %s: %w", id, err)
	}
	d.OwnerID = ownerID
	return d, nil
}

func (s *s3Store) Save(ctx context.Context, design *core.Design) error {
	key, err := designKey(design.OwnerID, design.ID)
	if err != nil {
		return err
	}

	// Preserve CreatedAt on update
	design.CreatedAt = time.Now()
	if existing, err := s.read(ctx, key); err == nil {
		design.CreatedAt = existing.CreatedAt
	}
	design.UpdatedAt = time.Now()

	data, err := json.Marshal(design)
	if err != nil {
		return fmt.Errorf("failed to marshal design: %w", err)
	}

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to save design %s: %w", design.ID, err)
	}
	logrus.WithFields(logrus.Fields{"owner_id": design.OwnerID, "design_id": design.ID}).Info("Design saved")
	return nil
}

func (s *s3Store) Delete(ctx context.Context, ownerID, id string) error {
	key, err := designKey(ownerID, id)
	if err != nil {
		return err
	}
	_, err = s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete design %s: %w", id, err)
	}
	return nil
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
	var d core.Design
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal design data: %w", err)
	}
	return &d, nil
}

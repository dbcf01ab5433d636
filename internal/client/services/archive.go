package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/melvin/internal/client/models"
	"github.com/dmitrijs2005/melvin/internal/client/session"
)

// ArchiveConfig points at an S3-compatible bucket. An empty Bucket
// disables the archive.
type ArchiveConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Transcript is the archived form of one conversation.
type Transcript struct {
	Username     string              `json:"username"`
	Conversation models.Conversation `json:"conversation"`
	Messages     []models.Message    `json:"messages"`
	ExportedAt   time.Time           `json:"exported_at"`
}

// ArchiveService exports the active conversation as a JSON transcript.
type ArchiveService interface {
	Enabled() bool
	Export(ctx context.Context) (string, error)
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}
	archiveNow = time.Now
)

type archiveService struct {
	cfg           ArchiveConfig
	session       *session.Session
	conversations ConversationService
}

func NewArchiveService(cfg ArchiveConfig, sess *session.Session, conversations ConversationService) ArchiveService {
	return &archiveService{cfg: cfg, session: sess, conversations: conversations}
}

func (s *archiveService) Enabled() bool {
	return s.cfg.Bucket != ""
}

func (s *archiveService) client(ctx context.Context) (objectPutter, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(s.cfg.Region)}
	if s.cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKey, s.cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if s.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Export uploads the active conversation and returns the object key.
func (s *archiveService) Export(ctx context.Context) (string, error) {
	if !s.Enabled() {
		return "", ErrArchiveDisabled
	}
	conv, ok := s.conversations.Active()
	if !ok {
		return "", ErrNoActiveConversation
	}

	now := archiveNow().UTC()
	username := s.session.Username()
	if username == "" {
		username = "anonymous"
	}

	body, err := json.MarshalIndent(Transcript{
		Username:     username,
		Conversation: conv,
		Messages:     s.conversations.Messages(),
		ExportedAt:   now,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}

	c, err := s.client(ctx)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("transcripts/%s/%d-%d.json", username, conv.ID, now.Unix())
	_, err = c.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload transcript: %w", err)
	}
	return key, nil
}

package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/akarpov87/ideaforge/internal/common"
	sc "github.com/akarpov87/ideaforge/internal/server/config"
	"github.com/akarpov87/ideaforge/internal/server/models"
	"github.com/akarpov87/ideaforge/internal/server/repositories/repomanager"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ExportFormat names an export rendering.
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatPDF      ExportFormat = "pdf"
	ExportFormatHTML     ExportFormat = "html"
)

// ExportResult is a rendered document ready to send or upload.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders documents into downloadable artifacts and, on demand,
// uploads them to S3-compatible storage and hands out presigned GET URLs.
type ExportService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	config *sc.Config
}

// NewExportService constructs an ExportService.
func NewExportService(db *sql.DB, repos repomanager.RepositoryManager, config *sc.Config) *ExportService {
	return &ExportService{db: db, repos: repos, config: config}
}

// Export renders the document in the requested format. Only the owner can
// export a document.
//
// PDF output is currently the markdown bytes served under the PDF MIME type;
// a real renderer has not been wired yet.
func (s *ExportService) Export(ctx context.Context, userID, documentID string, format ExportFormat) (*ExportResult, error) {
	doc, err := s.repos.Documents(s.db).FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: document %s", common.ErrorNotFound, documentID)
		}
		return nil, fmt.Errorf("error loading document: %w", err)
	}
	if doc.UserID != userID {
		return nil, common.ErrUnauthorizedAccess
	}

	markdown := exportMarkdown(doc)
	base := exportFilename(doc)

	switch format {
	case ExportFormatMarkdown:
		return &ExportResult{Filename: base + ".md", ContentType: "text/markdown", Data: []byte(markdown)}, nil
	case ExportFormatPDF:
		return &ExportResult{Filename: base + ".pdf", ContentType: "application/pdf", Data: []byte(markdown)}, nil
	case ExportFormatHTML:
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
			return nil, fmt.Errorf("error rendering html: %w", err)
		}
		return &ExportResult{Filename: base + ".html", ContentType: "text/html", Data: buf.Bytes()}, nil
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", common.ErrInvariantViolation, format)
	}
}

// ExportToStorage renders the document, uploads the artifact, and returns a
// presigned GET URL valid for 15 minutes.
func (s *ExportService) ExportToStorage(ctx context.Context, userID, documentID string, format ExportFormat) (string, error) {
	result, err := s.Export(ctx, userID, documentID, format)
	if err != nil {
		return "", err
	}

	client, err := s.getS3Client()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket
	key := exportStorageKey(userID, result.Filename)

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(result.Data),
		ContentType: &result.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("error uploading export: %w", err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("error presigning export url: %w", err)
	}

	return req.URL, nil
}

func (s *ExportService) getS3Client() (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

func exportStorageKey(userID, filename string) string {
	d := time.Now()
	return fmt.Sprintf("exports/%s/%d/%d/%d/%s-%s", userID, d.Year(), d.Month(), d.Day(), uuid.New(), filename)
}

// exportMarkdown extracts the document body as markdown, falling back to the
// full content pretty-printed as JSON when no text field is present.
func exportMarkdown(doc *models.Document) string {
	if text := doc.Content().Text(); text != "" {
		return text
	}
	raw, err := json.MarshalIndent(doc.Content(), "", "  ")
	if err != nil {
		return ""
	}
	return string(raw)
}

func exportFilename(doc *models.Document) string {
	slug := strings.ToLower(strings.TrimSpace(doc.Title))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = string(doc.Type)
	}
	return fmt.Sprintf("%s-v%d", slug, doc.Version)
}

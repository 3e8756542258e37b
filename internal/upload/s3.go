// Package upload publishes the raw CMS extracts to the bronze layer of the S3 data lake.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/c2h5oh/datasize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/vitebski/claims-ops/pkg/models"
)

// Data lake layout
const (
	BronzeLayer = "bronze/raw/cms-data"
	SilverLayer = "silver/processed"
	GoldLayer   = "gold/curated"
)

// ErrAccessDenied is returned when the bucket exists but cannot be accessed
var ErrAccessDenied = errors.New("access denied to bucket, check IAM permissions (s3:CreateBucket, s3:ListBucket, s3:PutObject)")

// FileSpec describes one extract to upload
type FileSpec struct {
	Name           string
	LocalPath      string
	Description    string
	ExpectedRows   int
	ExpectedSizeMB int
}

// S3Key returns the bronze object key of the file
func (f FileSpec) S3Key() string {
	return fmt.Sprintf("%s/%s/%s.csv", BronzeLayer, f.Name, f.Name)
}

// Files are the CMS extracts loaded daily
var Files = []FileSpec{
	{
		Name: "ipps_charges", LocalPath: "data/ipps_charges.csv",
		Description:  "Medicare Inpatient Hospitals - by Provider and Service",
		ExpectedRows: 146427, ExpectedSizeMB: 40,
	},
	{
		Name: "hospital_general_info", LocalPath: "data/hospital_general_info.csv",
		Description:  "Hospital General Information master list",
		ExpectedRows: 5421, ExpectedSizeMB: 1,
	},
	{
		Name: "readmissions", LocalPath: "data/readmissions.csv",
		Description:  "Hospital Readmissions Reduction Program data",
		ExpectedRows: 18510, ExpectedSizeMB: 2,
	},
}

// Folders receive a .keep marker so the layout is visible in the console
var Folders = []string{
	BronzeLayer + "/ipps_charges/",
	BronzeLayer + "/hospital_general_info/",
	BronzeLayer + "/readmissions/",
	SilverLayer + "/",
	GoldLayer + "/",
	"metadata/",
	"logs/",
}

// S3API is the subset of the S3 client used here
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// ObjectUploader streams a body to S3, switching to multipart for large files
type ObjectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Uploader publishes local files to one bucket
type Uploader struct {
	Client   S3API
	Transfer ObjectUploader
	Fs       afero.Fs
	Bucket   string
	Region   string
	// BaseDir resolves relative local paths
	BaseDir string
	Logger  *logrus.Logger
	Now     func() time.Time
}

// NewUploader creates an uploader using the default AWS credential chain
func NewUploader(ctx context.Context, bucket, region, baseDir string, logger *logrus.Logger) (*Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &Uploader{
		Client:   client,
		Transfer: manager.NewUploader(client),
		Fs:       afero.NewOsFs(),
		Bucket:   bucket,
		Region:   region,
		BaseDir:  baseDir,
		Logger:   logger,
		Now:      time.Now,
	}, nil
}

func statusCode(err error) int {
	var re interface{ HTTPStatusCode() int }
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// EnsureBucket checks the bucket is reachable and creates it when missing
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	_, err := u.Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(u.Bucket)})
	if err == nil {
		u.Logger.Infof("Successfully connected to S3 bucket: %s", u.Bucket)
		return nil
	}

	switch statusCode(err) {
	case 404:
		u.Logger.Infof("Bucket %s not found. Attempting to create...", u.Bucket)
		return u.createBucket(ctx)
	case 403:
		return fmt.Errorf("%w: %s", ErrAccessDenied, u.Bucket)
	default:
		return fmt.Errorf("connect to bucket %s: %w", u.Bucket, err)
	}
}

func (u *Uploader) createBucket(ctx context.Context) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(u.Bucket)}
	if u.Region != "" && u.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(u.Region),
		}
	}

	_, err := u.Client.CreateBucket(ctx, input)
	switch {
	case err == nil:
		u.Logger.Infof("Created bucket: %s", u.Bucket)
		return nil
	case errorCode(err) == "BucketAlreadyOwnedByYou":
		u.Logger.Infof("Bucket %s already exists and is owned by you.", u.Bucket)
		return nil
	case errorCode(err) == "BucketAlreadyExists":
		return fmt.Errorf("bucket name %s is already taken globally, use a unique name: %w", u.Bucket, err)
	default:
		return fmt.Errorf("create bucket %s: %w", u.Bucket, err)
	}
}

// CreateFolderStructure writes empty folder markers. Failures are logged and skipped.
func (u *Uploader) CreateFolderStructure(ctx context.Context) int {
	created := 0
	for _, folder := range Folders {
		_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:   aws.String(u.Bucket),
			Key:      aws.String(folder + ".keep"),
			Body:     bytes.NewReader(nil),
			Metadata: map[string]string{"purpose": "folder_marker"},
		})
		if err != nil {
			u.Logger.Warnf("Could not create folder %s: %v", folder, err)
			continue
		}
		created++
		u.Logger.Infof("Created folder structure: %s", folder)
	}
	return created
}

func (u *Uploader) localPath(p string) string {
	if filepath.IsAbs(p) || u.BaseDir == "" {
		return p
	}
	return filepath.Join(u.BaseDir, p)
}

// UploadFile uploads one extract with metadata and server-side encryption,
// then verifies the stored size matches the local file. It returns the size in bytes.
func (u *Uploader) UploadFile(ctx context.Context, file FileSpec) (int64, error) {
	path := u.localPath(file.LocalPath)
	info, err := u.Fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("file not found: %s", path)
		}
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()
	key := file.S3Key()
	u.Logger.Infof("Uploading %s (%s) to %s", filepath.Base(path), datasize.ByteSize(size).HumanReadable(), key)

	f, err := u.Fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	_, err = u.Transfer.Upload(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(u.Bucket),
		Key:                  aws.String(key),
		Body:                 f,
		ContentType:          aws.String("text/csv"),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
		Metadata: map[string]string{
			"upload_date":   u.Now().UTC().Format(time.RFC3339),
			"description":   file.Description,
			"expected_rows": fmt.Sprintf("%d", file.ExpectedRows),
			"source":        "CMS",
			"data_layer":    "bronze",
			"file_type":     "csv",
		},
	})
	if err != nil {
		return 0, fmt.Errorf("upload %s: %w", key, err)
	}

	head, err := u.Client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(u.Bucket), Key: aws.String(key)})
	if err != nil {
		return 0, fmt.Errorf("verify %s: %w", key, err)
	}
	remote := aws.ToInt64(head.ContentLength)
	if remote != size {
		return 0, fmt.Errorf("verify %s: uploaded %d bytes, local file has %d", key, remote, size)
	}

	u.Logger.Infof("Successfully uploaded %s", filepath.Base(path))
	u.Logger.Infof("  Size: %s", datasize.ByteSize(remote).HumanReadable())
	u.Logger.Infof("  S3 Path: s3://%s/%s", u.Bucket, key)
	return size, nil
}

// SizeMB converts bytes to megabytes rounded to 2 places
func SizeMB(n int64) float64 {
	return math.Round(float64(n)/float64(datasize.MB)*100) / 100
}

// CreateManifest writes a JSON manifest of the upload under metadata/ and returns its key
func (u *Uploader) CreateManifest(ctx context.Context, files []models.ManifestFile) (string, error) {
	now := u.Now().UTC()
	manifest := models.UploadManifest{
		UploadTimestamp: now.Format(time.RFC3339),
		Bucket:          u.Bucket,
		Region:          u.Region,
		Files:           files,
	}
	body, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}

	key := fmt.Sprintf("metadata/upload_manifest_%s.json", now.Format("20060102_150405"))
	_, err = u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{"purpose": "upload_manifest"},
	})
	if err != nil {
		return "", fmt.Errorf("write manifest %s: %w", key, err)
	}
	u.Logger.Infof("Created upload manifest: %s", key)
	return key, nil
}

// Summary is the outcome of Run
type Summary struct {
	Files       []models.ManifestFile
	Uploaded    int
	ManifestKey string
}

// Run ensures the bucket, creates the layout, uploads every file and writes the manifest.
// Only an unreachable bucket or a manifest failure is returned as an error.
func (u *Uploader) Run(ctx context.Context, files []FileSpec) (*Summary, error) {
	if err := u.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("cannot proceed without S3 connection: %w", err)
	}

	u.Logger.Info("Creating S3 folder structure...")
	u.CreateFolderStructure(ctx)

	u.Logger.Info("Starting file uploads...")
	summary := &Summary{}
	for _, file := range files {
		entry := models.ManifestFile{
			S3Key:       file.S3Key(),
			LocalPath:   file.LocalPath,
			Description: file.Description,
			Status:      "success",
		}
		size, err := u.UploadFile(ctx, file)
		if err != nil {
			u.Logger.Errorf("Failed to upload %s: %v", file.LocalPath, err)
			entry.Status = "failed"
		} else {
			summary.Uploaded++
			entry.SizeBytes = size
			entry.SizeMB = SizeMB(size)
		}
		summary.Files = append(summary.Files, entry)
	}

	u.Logger.Info("Creating upload manifest...")
	key, err := u.CreateManifest(ctx, summary.Files)
	if err != nil {
		return summary, err
	}
	summary.ManifestKey = key
	return summary, nil
}

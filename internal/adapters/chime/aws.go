// Package chime implements the control plane on Amazon Chime SDK meetings
// and media capture pipelines.
package chime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmediapipelines"
	pipetypes "github.com/aws/aws-sdk-go-v2/service/chimesdkmediapipelines/types"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmeetings"
	"github.com/aws/aws-sdk-go-v2/service/chimesdkmeetings/types"
	"github.com/dkeye/Huddle/internal/domain"
)

type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// AccountID and Bucket address the recording source and sink.
	AccountID string
	Bucket    string
	// MeetingsEndpoint overrides the regional meetings endpoint.
	MeetingsEndpoint string
}

// LoadAWSConfig uses static credentials when both keys are set and the
// default credential chain otherwise.
func LoadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// NewClients builds the meetings and media pipelines clients for cfg.
func NewClients(awsCfg aws.Config, cfg Config) (*chimesdkmeetings.Client, *chimesdkmediapipelines.Client) {
	meetings := chimesdkmeetings.NewFromConfig(awsCfg, func(o *chimesdkmeetings.Options) {
		if cfg.MeetingsEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.MeetingsEndpoint)
		}
	})
	return meetings, chimesdkmediapipelines.NewFromConfig(awsCfg)
}

// mapErr turns the services' not-found errors into domain.ErrMeetingNotFound.
func mapErr(err error, format string, args ...any) error {
	op := fmt.Sprintf(format, args...)
	var nf *types.NotFoundException
	var pnf *pipetypes.NotFoundException
	if errors.As(err, &nf) || errors.As(err, &pnf) {
		return fmt.Errorf("%s: %w: %s", op, domain.ErrMeetingNotFound, err.Error())
	}
	return fmt.Errorf("%s: %w", op, err)
}
